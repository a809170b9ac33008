package agents

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/reusee/taiplan/oracles"
	"github.com/reusee/taiplan/plans"
	"github.com/reusee/taiplan/procs"
)

// step is one state of the dispatcher: a mode applied to a cursor and its ancestors.
type step struct {
	Mode  Mode
	Info  plans.Info
	Stack plans.Stack
}

type run struct {
	ctx   context.Context
	final step
}

// Run drives the state machine from mode until a terminal mode is reached with an empty stack.
// Errors are reserved for cancellation; every other failure ends in an abort mode.
func (s *Session) Run(ctx context.Context, mode Mode, info plans.Info, stack plans.Stack) (Mode, error) {
	r := &run{
		ctx: ctx,
	}
	if _, err := procs.Drive(r, s.proc(step{
		Mode:  mode,
		Info:  info,
		Stack: stack,
	})); err != nil {
		return r.final.Mode, err
	}
	return r.final.Mode, nil
}

func (s *Session) proc(st step) procs.Proc[*run] {
	return procs.Func[*run](func(r *run) (procs.Proc[*run], error) {
		next, final, err := s.dispatch(r.ctx, st)
		if err != nil {
			r.final = st
			return nil, err
		}
		if final {
			r.final = next
			return nil, nil
		}
		return s.proc(next), nil
	})
}

// dispatch performs one transition. final is true when next is the outcome of the run.
func (s *Session) dispatch(ctx context.Context, st step) (next step, final bool, err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		s.logger.ErrorContext(ctx, "panic in dispatcher",
			"mode", st.Mode,
			"panic", p,
			"stack", string(debug.Stack()),
		)
		s.observe(fmt.Sprintf("Error: internal fault in mode %s: %v\n", st.Mode, p))
		next = st.with(ModeAbortPythonError)
		final = false
		err = nil
	}()

	s.logger.DebugContext(ctx, "dispatch",
		"mode", st.Mode,
		"step", st.Info.StepNumber,
		"depth", st.Stack.Depth(),
		"iteration", s.Iteration,
	)

	switch {

	case st.Mode.IsTerminal():
		parent, rest, ok := st.Stack.Pop()
		if !ok {
			return st, true, nil
		}
		if st.Mode == ModeDone {
			return step{Mode: ModeNextStep, Info: parent, Stack: rest}, false, nil
		}
		// aborts propagate to the parent unchanged
		return step{Mode: st.Mode, Info: parent, Stack: rest}, false, nil

	case st.Mode == ModeStart:
		return st.with(ModeStrategize), false, nil

	case st.Mode == ModeNextStep:
		info, ok := plans.Advance(st.Info)
		if !ok {
			s.observe("\nThat was the last step! Plan execution is complete.\n")
			return st.with(ModeDone), false, nil
		}
		return step{Mode: ModeAct, Info: info, Stack: st.Stack}, false, nil

	case st.Mode == ModeAct &&
		len(st.Info.Plan) > 1 &&
		st.Info.StepDescription == plans.PartialPlanTail:
		// the explored part is done, plan the rest in place
		return st.with(ModeContinuePlan), false, nil

	}

	if s.Iteration >= s.Settings.MaxIterations {
		observation := fmt.Sprintf("Yikes!!! Exceeded MAX_ITERATIONS (%d) steps! Giving up!", s.Settings.MaxIterations)
		s.observe(observation)
		s.Trace.Sayf("%s\n", observation)
		return st.with(ModeAbortIterations), false, nil
	}
	if limit := s.Settings.MaxWallTime; limit > 0 {
		if elapsed := time.Since(s.Started); elapsed >= limit {
			observation := fmt.Sprintf("Yikes!!! Exceeded the time budget (%s) after %s! Giving up!", limit, elapsed.Round(time.Second))
			s.observe(observation)
			s.Trace.Sayf("%s\n", observation)
			return st.with(ModeAbortIterations), false, nil
		}
	}

	next, err = s.consult(ctx, st)
	if errors.Is(err, ErrInvariant) {
		s.logger.ErrorContext(ctx, "invariant", "mode", st.Mode, "error", err)
		s.observe(fmt.Sprintf("Error: %v\n", err))
		return st.with(ModeAbortPythonError), false, nil
	}
	return next, false, err
}

func (st step) with(mode Mode) step {
	st.Mode = mode
	return st
}

// consult issues the one oracle query of an oracle-driven mode and interprets the reply.
func (s *Session) consult(ctx context.Context, st step) (step, error) {
	kind, ok := st.Mode.ResponseKind()
	if !ok {
		return st, fmt.Errorf("%w: no handler for mode %q", ErrInvariant, st.Mode)
	}
	s.Iteration++

	var advice string
	if st.Mode == ModeAct {
		advice = s.adviceFor(ctx, st.Info.StepDescription)
	}
	header, comment := s.header(st, advice)

	var prompt strings.Builder
	prompt.WriteString(s.Observations)
	if st.Mode != ModeReflect {
		prompt.WriteString("\n")
		prompt.WriteString(plans.Format(st.Info, st.Stack))
	}
	prompt.WriteString(header)
	prompt.WriteString(st.Mode.instruction(s.Settings.AllowShortcuts))
	s.Observations = ""

	if len(st.Info.Plan) > 1 {
		s.Trace.Sayf("Step %d: %s\n", st.Info.StepNumber, st.Info.StepDescription)
	}
	s.Trace.Sayf("%s\n", comment)

	s.Trace.Dialog = s.Trace.Dialog.Append(oracles.RoleEngine, prompt.String())
	reply, err := s.oracle.Query(ctx, oracles.Request{
		Kind:        kind,
		Dialog:      s.Trace.Dialog,
		Temperature: st.Mode.temperature(),
	})
	s.addUsage(reply.Usage)
	if reply.Text != "" {
		s.Trace.Dialog = s.Trace.Dialog.Append(oracles.RoleOracle, reply.Text)
	}
	if err != nil {
		if errors.Is(err, oracles.ErrMalformed) {
			return s.malformed(ctx, st, err), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return st, ctxErr
		}
		s.logger.ErrorContext(ctx, "oracle query", "mode", st.Mode, "error", err)
		s.observe(fmt.Sprintf("Error: the oracle could not be queried: %v\n", err))
		return st.with(ModeAbortPythonError), nil
	}

	switch resp := reply.Response.(type) {
	case oracles.Strategy:
		return s.onStrategy(ctx, st, resp), nil
	case oracles.PlanResponse:
		return s.onPlan(ctx, st, resp), nil
	case oracles.PlanReflection:
		return s.onPlanReflection(ctx, st, resp), nil
	case oracles.Action:
		return s.onAction(ctx, st, resp)
	case oracles.Reflection:
		return s.onReflection(ctx, st, resp), nil
	}
	return st, fmt.Errorf("%w: reply %T for mode %s", ErrInvariant, reply.Response, st.Mode)
}

// malformed falls back to retry, subject to the retry limit.
func (s *Session) malformed(ctx context.Context, st step, err error) step {
	s.logger.WarnContext(ctx, "malformed reply", "mode", st.Mode, "error", err)
	s.observe(fmt.Sprintf("\nError: the last reply could not be used (%v). Reply with exactly one JSON object of the requested shape.\n", err))
	mode, line := s.Policy.OnReflection(&s.Counters, ModeRetry, st.Info.StepNumber)
	s.observe(line + "\n")
	s.Trace.Sayf("%s\n", line)
	return st.with(mode)
}

func (s *Session) onStrategy(ctx context.Context, st step, resp oracles.Strategy) step {
	observation := fmt.Sprintf("\nStrategy: %s\nExplanation: %s\n\n%s\n", resp.Strategy, resp.Explanation, dashes)
	s.observe(observation)
	s.Trace.Say(observation)

	switch strings.ToLower(strings.TrimSpace(resp.Strategy)) {
	case "do":
		return st.with(ModeAct)
	case "plan":
		return st.with(ModePlan)
	case "explore":
		return st.with(ModePartialPlan)
	}
	s.logger.WarnContext(ctx, "unrecognized strategy, planning", "strategy", resp.Strategy)
	return st.with(ModePlan)
}

func (s *Session) onPlan(ctx context.Context, st step, resp oracles.PlanResponse) step {
	plan := resp.Plan
	if st.Mode == ModePartialPlan {
		plan, _ = plans.ForcePartialPlanTail(plan)
	}
	info, err := plans.NewInfo(plan)
	if err != nil {
		return s.malformed(ctx, st, err)
	}
	s.Trace.Sayf("Plan:\n%s\n", plans.Pretty(plan, 3))

	switch st.Mode {
	case ModePlan, ModePartialPlan:
		return step{
			Mode:  ModeReflectOnPlan,
			Info:  info,
			Stack: st.Stack.Push(st.Info),
		}
	default:
		// replan and continue_plan replace the current plan
		return step{
			Mode:  ModeReflectOnPlan,
			Info:  info,
			Stack: st.Stack,
		}
	}
}

func (s *Session) onPlanReflection(ctx context.Context, st step, resp oracles.PlanReflection) step {
	observation := fmt.Sprintf("\nDoable: %s\nExplanation: %s\n\n%s\n", resp.Doable, resp.Explanation, dashes)
	s.observe(observation)
	s.Trace.Say(observation)

	if strings.ToLower(strings.TrimSpace(resp.Doable)) == "no" {
		if !s.Settings.AllowShortcuts {
			return st.with(ModeAbortBeyondCapabilities)
		}
		s.logger.WarnContext(ctx, "plan judged not doable, going on with workarounds")
	}
	return st.with(ModeAct)
}

func (s *Session) onAction(ctx context.Context, st step, resp oracles.Action) (step, error) {
	thinking := fmt.Sprintf("Coding thoughts:\nThought: %s\nAction (code):\n%s\n\n%s\n\n", resp.Thought, resp.Code, dashes)
	s.Trace.Say(thinking)

	report := s.Executor.Run(ctx, s.Interpreter, resp.Code)
	s.Trace.Quiet(report.Observation)
	s.Trace.Code.WriteString(report.Code)
	s.Trace.AddPlots(report.Plots...)
	s.Trace.AddArtifacts(s.Tools.Artifacts()...)
	s.observe(thinking + report.Observation)

	if err := ctx.Err(); err != nil {
		return st, err
	}
	return st.with(ModeReflect), nil
}

func (s *Session) onReflection(ctx context.Context, st step, resp oracles.Reflection) step {
	shortcuts := "n/a"
	if resp.TookShortcuts != nil {
		shortcuts = fmt.Sprint(*resp.TookShortcuts)
	}

	var mode Mode
	var target oracles.RetryEarlierStep
	switch next := resp.Next.(type) {

	case oracles.NextActionName:
		mode = Mode(strings.TrimSpace(string(next)))
		switch mode {
		case ModeDone, ModeNextStep, ModeContinue, ModeDebug, ModeRetry, ModeReplan, ModeAbortImpossible:
		case ModeAbortShortcuts:
			if s.Settings.AllowShortcuts {
				s.logger.WarnContext(ctx, "shortcuts are allowed, retrying instead", "next_action", next)
				mode = ModeRetry
			}
		default:
			s.logger.WarnContext(ctx, "unrecognized next_action, retrying", "next_action", next)
			mode = ModeRetry
		}

	case oracles.RetryEarlierStep:
		target = next
		mode = ModeRetryEarlierStep
		if next.StepNumber < 1 || next.StepNumber > len(st.Info.Plan) {
			s.logger.WarnContext(ctx, "retry_earlier_step out of range, retrying",
				"step", next.StepNumber,
				"steps", len(st.Info.Plan),
			)
			mode = ModeRetry
		}

	default:
		s.logger.WarnContext(ctx, "missing next_action, retrying")
		mode = ModeRetry
	}

	nextAction := string(mode)
	if mode == ModeRetryEarlierStep {
		nextAction = fmt.Sprintf("%s (step %d: %s)", mode, target.StepNumber, target.RevisedInstructions)
	}
	observation := fmt.Sprintf("\nThought: %s\nOverall task complete? %t\nCurrent step complete? %t\nSoftware bug? %t\nTook shortcuts? %s\nNext action: %s\n%s\n\n",
		resp.Thought,
		resp.TaskComplete,
		resp.CurrentStepComplete,
		resp.SoftwareBug,
		shortcuts,
		nextAction,
		dashes,
	)

	mode, line := s.Policy.OnReflection(&s.Counters, mode, st.Info.StepNumber)
	s.observe(observation + line + "\n")
	s.Trace.Say(observation + line + "\n")

	next := st.with(mode)
	if mode == ModeRetryEarlierStep {
		info, err := plans.RetryEarlierStep(st.Info, target.StepNumber, target.RevisedInstructions)
		if err != nil {
			return s.malformed(ctx, st, err)
		}
		next.Info = info
	}
	return next
}

// header frames the title of a turn. comment is the short progress note shown to the user.
func (s *Session) header(st step, advice string) (header string, comment string) {
	n := s.Iteration
	k := st.Info.StepNumber
	var title string
	comment = "Coding..."
	switch st.Mode {
	case ModeStrategize:
		title = fmt.Sprintf("#%d. Strategize how to proceed\n", n)
		comment = "Strategizing..."
	case ModePartialPlan:
		title = fmt.Sprintf("#%d. Generate Partial Plan (Explore)\n", n)
		comment = "Generating a partial plan..."
	case ModeContinuePlan:
		title = fmt.Sprintf("#%d. Generate a Continuing Plan...\n", n)
		comment = "Generating a continuation of the plan..."
	case ModePlan:
		title = fmt.Sprintf("#%d. Generate Initial Plan\n", n)
		comment = "Planning..."
	case ModeReflectOnPlan:
		title = fmt.Sprintf("#%d. Reflecting on the Plan\n", n)
		comment = "Reflecting..."
	case ModeReplan:
		title = fmt.Sprintf("#%d. Replan Task\n", n)
		comment = "Replanning..."
	case ModeAct:
		title = fmt.Sprintf("#%d. Perform Step %d: %s\n", n, k, st.Info.StepDescription) + advice
		if advice != "" {
			comment = "Found advice: " + advice + "Coding..."
		}
	case ModeContinue:
		title = fmt.Sprintf("#%d. Continue Step %d\n", n, k)
	case ModeDebug, ModeRetry:
		title = fmt.Sprintf("#%d. An error occurred doing step %d. Let's try and debug the problem and retry (retry number %d).\n", n, k, s.Counters.Retry)
	case ModeRetryEarlierStep:
		title = fmt.Sprintf("#%d. Step %d failed, indicating a problem at an earlier step in the plan. Returning to retry that earlier step (earlier retry number %d).\n", n, k, s.Counters.EarlierStepRetry)
	case ModeReflect:
		title = fmt.Sprintf("#%d. Reflect on Step %d\n", n, k)
		comment = "Reflecting..."
	}
	return dashes + "\n" + title + dashes + "\n", comment
}
