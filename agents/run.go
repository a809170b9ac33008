package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reusee/taiplan/logs"
	"github.com/reusee/taiplan/oracles"
	"github.com/reusee/taiplan/plans"
	"github.com/reusee/taiplan/prompts"
	"github.com/reusee/taiplan/storages"
	"github.com/reusee/taiplan/traces"
)

// Outcome is the result of one top-level task.
type Outcome struct {
	Mode       Mode
	Summary    string
	Trace      *traces.Trace
	Usage      oracles.Usage
	Iterations int
	OutputDir  string
}

func (o Outcome) Done() bool {
	return o.Mode == ModeDone
}

// DefaultPlanTask names the top-level task of a plan given without one.
const DefaultPlanTask = "Execute the plan"

// RunTask lets the oracle decide how to approach task.
func (s *Session) RunTask(ctx context.Context, task string) (Outcome, error) {
	root, err := plans.NewInfo(plans.FromTask(task))
	if err != nil {
		return Outcome{}, err
	}
	return s.start(ctx, task, false, step{
		Mode: ModeStrategize,
		Info: root,
	})
}

// RunPlan carries out steps in order without strategizing. task is the parent of the plan.
func (s *Session) RunPlan(ctx context.Context, task string, steps ...string) (Outcome, error) {
	if task == "" {
		task = DefaultPlanTask
	}
	info, err := plans.NewInfo(plans.New(steps...))
	if err != nil {
		return Outcome{}, err
	}
	root, err := plans.NewInfo(plans.FromTask(task))
	if err != nil {
		return Outcome{}, err
	}
	return s.start(ctx, task, false, step{
		Mode:  ModeAct,
		Info:  info,
		Stack: plans.Stack{root},
	})
}

func (s *Session) start(ctx context.Context, task string, keep bool, st step) (Outcome, error) {
	if err := s.begin(task, keep); err != nil {
		return Outcome{}, err
	}
	ctx = logs.WithSession(ctx, s.ID)
	ctx, _ = s.newSpan(ctx, "", "task")
	s.logger.InfoContext(ctx, "task start",
		"task", task,
		"mode", st.Mode,
		"stem", s.Stem,
	)
	s.Trace.Sayf("\nTop-Level Task: %s\n", task)

	mode, err := s.Run(ctx, st.Mode, st.Info, st.Stack)
	if err != nil {
		if _, flushErr := s.Flush(); flushErr != nil {
			s.logger.ErrorContext(ctx, "flush", "error", flushErr)
		}
		return Outcome{Mode: mode, Trace: s.Trace}, err
	}
	return s.finish(ctx, mode)
}

// finish asks for a summary, saves the trace and records the run.
func (s *Session) finish(ctx context.Context, mode Mode) (Outcome, error) {
	question := prompts.SummaryDone
	if mode != ModeDone {
		question = prompts.SummaryAbort(string(mode))
	}
	summary, usage, err := s.oracle.Complete(ctx, s.Trace.Dialog, question)
	s.addUsage(usage)
	if err != nil {
		s.logger.WarnContext(ctx, "summary", "error", err)
		summary = ""
	}
	summary = strings.TrimSpace(summary)
	s.Trace.Sayf("\nOutcome: %s\n", mode)
	if summary != "" {
		s.Trace.Sayf("%s\n", summary)
	}

	outcome := Outcome{
		Mode:       mode,
		Summary:    summary,
		Trace:      s.Trace,
		Usage:      s.TotalUsage(),
		Iterations: s.Iteration,
	}
	outcome.OutputDir, err = s.Flush()
	if err != nil {
		return outcome, fmt.Errorf("save trace: %w", err)
	}

	s.logger.InfoContext(ctx, "task end",
		"outcome", mode,
		"iterations", s.Iteration,
		"prompt_tokens", outcome.Usage.PromptTokens,
		"completion_tokens", outcome.Usage.CompletionTokens,
		"dir", outcome.OutputDir,
	)

	if s.Ledger != nil {
		if err := s.Ledger.Record(ctx, storages.Run{
			ID:               s.Stem,
			Task:             s.Task,
			Outcome:          string(mode),
			Iterations:       s.Iteration,
			PromptTokens:     outcome.Usage.PromptTokens,
			CompletionTokens: outcome.Usage.CompletionTokens,
			Started:          s.Started,
			Finished:         time.Now(),
			Summary:          summary,
			OutputDir:        outcome.OutputDir,
		}); err != nil {
			return outcome, fmt.Errorf("record run: %w", err)
		}
	}

	return outcome, nil
}
