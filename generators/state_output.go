package generators

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Output writes contents to w as they stream in, then passes them upstream.
// Thoughts are hidden unless enabled, and are wrapped in <think> tags.
type Output struct {
	upstream State
	w        io.Writer
	color    bool
	thoughts bool
	usage    bool

	// last written role and whether a <think> block is open
	role     Role
	thinking bool
}

func NewOutput(upstream State, w io.Writer) Output {
	file, ok := w.(*os.File)
	return Output{
		upstream: upstream,
		w:        w,
		color:    ok && term.IsTerminal(int(file.Fd())),
	}
}

func (s Output) WithThoughts(yes bool) Output {
	s.thoughts = yes
	return s
}

func (s Output) WithUsage(yes bool) Output {
	s.usage = yes
	return s
}

var _ State = Output{}

func roleColor(role Role) string {
	switch role {
	case RoleUser:
		return ColorUser
	case RoleTool:
		return ColorTool
	case RoleSystem:
		return ColorSystem
	case RoleLog:
		return ColorLog
	}
	return ColorReset
}

func (s *Output) closeThought(buf *bytes.Buffer) {
	if s.thinking {
		buf.WriteString("\n</think>\n")
		s.thinking = false
	}
}

func (s *Output) emit(buf *bytes.Buffer, role Role, thought bool, text string) {
	if thought && !s.thinking {
		buf.WriteString("<think>\n")
		s.thinking = true
	} else if !thought {
		s.closeThought(buf)
	}
	if !s.color {
		buf.WriteString(text)
		return
	}
	color := roleColor(role)
	if thought {
		color = ColorThought
	}
	buf.WriteString(color + text + ColorReset)
}

func (s Output) AppendContent(content *Content) (State, error) {
	ret := s
	buf := new(bytes.Buffer)

	if ret.role != "" && ret.role != content.Role {
		ret.closeThought(buf)
		buf.WriteString("\n\n")
	}

	for _, part := range content.Parts {
		switch part := part.(type) {
		case Text:
			ret.emit(buf, content.Role, false, string(part))
		case Thought:
			if ret.thoughts {
				ret.emit(buf, content.Role, true, string(part))
			}
		case FinishReason:
			ret.emit(buf, content.Role, false, fmt.Sprintf("[Finish: %s]", part))
		case Usage:
			if ret.usage {
				ret.emit(buf, content.Role, false, fmt.Sprintf("[Tokens: prompt %d, output %d, thoughts %d]",
					part.Prompt.TokenCount, part.Candidates.TokenCount, part.Thoughts.TokenCount))
			}
		case Error:
			ret.emit(buf, content.Role, false, fmt.Sprintf("[Error: %v]", part.Error))
		}
	}

	if buf.Len() > 0 {
		if _, err := s.w.Write(buf.Bytes()); err != nil {
			return nil, err
		}
	}
	ret.role = content.Role

	var err error
	ret.upstream, err = s.upstream.AppendContent(content)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (s Output) Contents() []*Content {
	return s.upstream.Contents()
}

func (s Output) SystemPrompt() string {
	return s.upstream.SystemPrompt()
}

func (s Output) Flush() (State, error) {
	ret := s
	buf := new(bytes.Buffer)
	ret.closeThought(buf)
	buf.WriteString("\n\n")
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	var err error
	ret.upstream, err = s.upstream.Flush()
	if err != nil {
		return nil, err
	}
	ret.role = ""
	return ret, nil
}

func (s Output) Unwrap() State {
	return s.upstream
}
