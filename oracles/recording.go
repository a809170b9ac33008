package oracles

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// RecordSink writes whole JSONL records to w. One sink may back many Recordings.
type RecordSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewRecordSink(w io.Writer) *RecordSink {
	return &RecordSink{
		w: w,
	}
}

func (s *RecordSink) Write(record Record) error {
	bs, err := json.Marshal(record)
	if err != nil {
		return err
	}
	bs = append(bs, '\n')
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(bs)
	return err
}

// Recording appends every reply of the wrapped oracle to sink.
type Recording struct {
	upstream Oracle
	sink     *RecordSink
}

var _ Oracle = new(Recording)

func NewRecording(upstream Oracle, sink *RecordSink) *Recording {
	return &Recording{
		upstream: upstream,
		sink:     sink,
	}
}

func (r *Recording) Query(ctx context.Context, req Request) (Reply, error) {
	reply, err := r.upstream.Query(ctx, req)
	if reply.Text != "" {
		if err := r.sink.Write(Record{Kind: req.Kind, Text: reply.Text}); err != nil {
			return reply, err
		}
	}
	return reply, err
}

func (r *Recording) Complete(ctx context.Context, dialog Dialog, prompt string) (string, Usage, error) {
	text, usage, err := r.upstream.Complete(ctx, dialog, prompt)
	if err != nil {
		return text, usage, err
	}
	if err := r.sink.Write(Record{Kind: KindComplete, Text: text}); err != nil {
		return text, usage, err
	}
	return text, usage, nil
}
