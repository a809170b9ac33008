package agents

import (
	"context"
	"strings"

	"github.com/reusee/taiplan/prompts"
)

// adviceFor asks which advice rules apply to a step. It returns "" when there are no rules or none applies.
func (s *Session) adviceFor(ctx context.Context, description string) string {
	if s.advice == "" {
		return ""
	}
	text, usage, err := s.oracle.Complete(ctx, s.Trace.Dialog, prompts.Advice(s.advice, description))
	s.addUsage(usage)
	if err != nil {
		s.logger.WarnContext(ctx, "advice", "error", err)
		return ""
	}
	text = strings.TrimSpace(text)
	switch text {
	case "", `""`, "-", `- ""`:
		return ""
	}
	return "Advice:\n" + text + "\n"
}
