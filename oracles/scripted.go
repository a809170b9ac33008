package oracles

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

var ErrScriptExhausted = errors.New("script exhausted")

// Record is one oracle exchange as stored in a JSONL script.
type Record struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// KindComplete marks records of free-text completions.
const KindComplete Kind = "complete"

// Scripted replays canned replies in order. Free-text completions come from a
// separate queue so that summaries do not consume structured replies.
type Scripted struct {
	mu          sync.Mutex
	replies     []string
	completions []string
	requests    []Request
}

var _ Oracle = new(Scripted)

// NewScripted builds a Scripted oracle. Strings are used verbatim, other values are json encoded.
func NewScripted(replies ...any) *Scripted {
	ret := new(Scripted)
	for _, reply := range replies {
		ret.replies = append(ret.replies, scriptText(reply))
	}
	return ret
}

func scriptText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	bs, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(bs)
}

// LoadScript reads records written by Recording.
func LoadScript(r io.Reader) (*Scripted, error) {
	ret := new(Scripted)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 16<<20)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if record.Kind == KindComplete {
			ret.completions = append(ret.completions, record.Text)
		} else {
			ret.replies = append(ret.replies, record.Text)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// WithCompletions sets the free-text replies.
func (s *Scripted) WithCompletions(texts ...string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions = append(s.completions, texts...)
	return s
}

func (s *Scripted) Query(ctx context.Context, req Request) (ret Reply, err error) {
	if err := ctx.Err(); err != nil {
		return ret, err
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		s.mu.Unlock()
		return ret, fmt.Errorf("%w after %d requests", ErrScriptExhausted, len(s.requests)-1)
	}
	text := s.replies[0]
	s.replies = s.replies[1:]
	s.mu.Unlock()

	ret.Text = text
	ret.Usage.Model = "scripted"
	ret.Response, err = Parse(req.Kind, text)
	return ret, err
}

func (s *Scripted) Complete(ctx context.Context, dialog Dialog, prompt string) (string, Usage, error) {
	usage := Usage{Model: "scripted"}
	if err := ctx.Err(); err != nil {
		return "", usage, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.completions) == 0 {
		return "", usage, nil
	}
	text := s.completions[0]
	s.completions = s.completions[1:]
	return text, usage, nil
}

// Requests returns the structured requests received so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]Request, len(s.requests))
	copy(ret, s.requests)
	return ret
}

func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies)
}
