package agents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/reusee/dscope"
	"github.com/reusee/taiplan/modes"
	"github.com/reusee/taiplan/oracles"
	"github.com/reusee/taiplan/storages"
	"github.com/reusee/taiplan/taiconfigs"
)

func newTestScope(t *testing.T, edit func(*taiconfigs.Settings)) dscope.Scope {
	settings := taiconfigs.DefaultSettings()
	settings.OutputDir = t.TempDir()
	settings.ExecTimeout = time.Minute
	if edit != nil {
		edit(&settings)
	}
	return dscope.New(
		new(Module),
		modes.ForTest(t),
	).Fork(
		func() taiconfigs.Settings {
			return settings
		},
	)
}

func strategy(s string) map[string]any {
	return map[string]any{
		"strategy":    s,
		"explanation": "because",
	}
}

func planReply(steps ...string) map[string]any {
	var plan []map[string]any
	for i, step := range steps {
		plan = append(plan, map[string]any{
			"step_number": i + 1,
			"step":        step,
		})
	}
	return map[string]any{
		"plan": plan,
	}
}

func doable(v string) map[string]any {
	return map[string]any{
		"doable":      v,
		"explanation": "checked",
	}
}

func action(code string) map[string]any {
	return map[string]any{
		"thought": "let's see",
		"action":  code,
	}
}

func reflection(next any) map[string]any {
	return map[string]any{
		"thought":               "looked at the output",
		"task_complete":         next == "done",
		"current_step_complete": next == "done" || next == "next_step",
		"software_bug":          next == "debug",
		"next_action":           next,
	}
}

func kinds(requests []oracles.Request) []oracles.Kind {
	var ret []oracles.Kind
	for _, req := range requests {
		ret = append(ret, req.Kind)
	}
	return ret
}

func lastPrompt(t *testing.T, req oracles.Request) string {
	t.Helper()
	turn, ok := req.Dialog.Last()
	if !ok || turn.Role != oracles.RoleEngine {
		t.Fatalf("got %+v", req.Dialog)
	}
	return turn.Text
}

func TestComputeTwoPlusTwo(t *testing.T) {
	newTestScope(t, nil).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(
			strategy("do"),
			action("print(2 + 2)"),
			reflection("done"),
		).WithCompletions("Printed 4.")
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}

		outcome, err := session.RunTask(t.Context(), "compute 2+2")
		if err != nil {
			t.Fatal(err)
		}
		if outcome.Mode != ModeDone || !outcome.Done() {
			t.Fatalf("got %v", outcome.Mode)
		}
		if outcome.Summary != "Printed 4." {
			t.Fatalf("got %q", outcome.Summary)
		}
		if outcome.Iterations != 3 {
			t.Fatalf("got %d", outcome.Iterations)
		}
		if !strings.Contains(outcome.Trace.Human.String(), "4\n") {
			t.Fatalf("got %q", outcome.Trace.Human.String())
		}

		requests := oracle.Requests()
		want := []oracles.Kind{oracles.KindStrategize, oracles.KindAct, oracles.KindReflect}
		if !slices.Equal(kinds(requests), want) {
			t.Fatalf("got %v", kinds(requests))
		}
		if !strings.Contains(requests[0].Dialog.System, "compute 2+2") {
			t.Fatalf("got %q", requests[0].Dialog.System)
		}
		first := lastPrompt(t, requests[0])
		if !strings.Contains(first, "Top-Level Task: compute 2+2\n") ||
			!strings.Contains(first, "#1. Strategize how to proceed\n") {
			t.Fatalf("got %q", first)
		}
		act := lastPrompt(t, requests[1])
		if !strings.Contains(act, "Strategy: do\n") ||
			!strings.Contains(act, "#2. Perform Step 1: compute 2+2\n") {
			t.Fatalf("got %q", act)
		}
		reflect := lastPrompt(t, requests[2])
		if !strings.Contains(reflect, "In [1]: print(2 + 2)\n4\n") ||
			!strings.Contains(reflect, "#3. Reflect on Step 1\n") {
			t.Fatalf("got %q", reflect)
		}
		// reflect prompts carry no hierarchy
		if strings.Contains(reflect, "Top-Level Task") {
			t.Fatalf("got %q", reflect)
		}
		for _, req := range requests {
			if req.Temperature != 0 {
				t.Fatalf("got %v", req.Temperature)
			}
		}

		read := func(suffix string) string {
			content, err := os.ReadFile(filepath.Join(outcome.OutputDir, session.Stem+suffix))
			if err != nil {
				t.Fatal(err)
			}
			return string(content)
		}
		if !strings.Contains(read("-trace.txt"), "4\n") {
			t.Fatal("human trace")
		}
		if !strings.Contains(read(".star"), "print(2 + 2)\n") {
			t.Fatal("code log")
		}
		if !strings.Contains(read("-trace-long.txt"), "Reflect on Step 1") {
			t.Fatal("long trace")
		}
	})
}

func TestRunPlanOneStep(t *testing.T) {
	newTestScope(t, nil).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(
			action(`print("four")`),
			reflection("next_step"),
		)
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}
		outcome, err := session.RunPlan(t.Context(), "", "print four")
		if err != nil {
			t.Fatal(err)
		}
		if outcome.Mode != ModeDone {
			t.Fatalf("got %v", outcome.Mode)
		}
		requests := oracle.Requests()
		if len(requests) != 2 {
			t.Fatalf("got %d", len(requests))
		}
		prompt := lastPrompt(t, requests[0])
		if !strings.Contains(prompt, "Top-Level Task: "+DefaultPlanTask+"\n") ||
			!strings.Contains(prompt, "Current SubTask: print four (step 1)\n") ||
			!strings.Contains(prompt, "#1. Perform Step 1: print four\n") {
			t.Fatalf("got %q", prompt)
		}
	})
}

func TestDebugEscalatesToReplan(t *testing.T) {
	newTestScope(t, func(settings *taiconfigs.Settings) {
		settings.MaxRetries = 2
	}).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(
			strategy("do"),
			action("x = 1"),
			reflection("debug"),
			action("x = 2"),
			reflection("debug"),
			action("x = 3"),
			reflection("debug"),
			planReply("try differently"),
			doable("no"),
		)
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}
		outcome, err := session.RunTask(t.Context(), "something hard")
		if err != nil {
			t.Fatal(err)
		}
		if outcome.Mode != ModeAbortBeyondCapabilities {
			t.Fatalf("got %v", outcome.Mode)
		}

		requests := oracle.Requests()
		want := []oracles.Kind{
			oracles.KindStrategize,
			oracles.KindAct, oracles.KindReflect,
			oracles.KindAct, oracles.KindReflect,
			oracles.KindAct, oracles.KindReflect,
			oracles.KindPlan,
			oracles.KindReflectOnPlan,
		}
		if !slices.Equal(kinds(requests), want) {
			t.Fatalf("got %v", kinds(requests))
		}
		for i, n := range map[int]int{3: 1, 5: 2} {
			prompt := lastPrompt(t, requests[i])
			if !strings.Contains(prompt, fmt.Sprintf("Let's try and debug the problem and retry (retry number %d).", n)) {
				t.Fatalf("got %q", prompt)
			}
		}
		replan := lastPrompt(t, requests[7])
		if !strings.Contains(replan, "Too many retries! I seem to be stuck on step 1. Let's abandon this effort and replan.\n") ||
			!strings.Contains(replan, "#8. Replan Task\n") {
			t.Fatalf("got %q", replan)
		}
		if requests[7].Temperature != 0.7 {
			t.Fatalf("got %v", requests[7].Temperature)
		}
		if session.Counters.Retry != 0 {
			t.Fatalf("got %+v", session.Counters)
		}
	})
}

func TestNestedPlan(t *testing.T) {
	newTestScope(t, nil).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(
			strategy("plan"),
			planReply("a", "b"),
			doable("yes"),
			action(`print("a")`),
			reflection("next_step"),
			action(`print("b")`),
			reflection("next_step"),
		)
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}
		outcome, err := session.RunTask(t.Context(), "a then b")
		if err != nil {
			t.Fatal(err)
		}
		if outcome.Mode != ModeDone {
			t.Fatalf("got %v", outcome.Mode)
		}
		requests := oracle.Requests()
		if len(requests) != 7 {
			t.Fatalf("got %d", len(requests))
		}
		if prompt := lastPrompt(t, requests[1]); !strings.Contains(prompt, "#2. Generate Initial Plan\n") {
			t.Fatalf("got %q", prompt)
		}
		first := lastPrompt(t, requests[3])
		if !strings.Contains(first, "Top-Level Task: a then b\nCurrent Plan:\n   1. a\n   2. b\n\nCurrent SubTask: a (step 1)\n") ||
			!strings.Contains(first, "Doable: yes\n") {
			t.Fatalf("got %q", first)
		}
		second := lastPrompt(t, requests[5])
		if !strings.Contains(second, "Step 1 complete. Moving onto the next step in the plan...\n") ||
			!strings.Contains(second, "#6. Perform Step 2: b\n") {
			t.Fatalf("got %q", second)
		}
	})
}

func TestPartialPlanContinues(t *testing.T) {
	newTestScope(t, nil).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(
			strategy("explore"),
			planReply("look around", "then decide"),
			doable("yes"),
			action(`print("looked")`),
			reflection("next_step"),
			planReply("finish"),
			doable("unsure"),
			action(`print("finished")`),
			reflection("next_step"),
		)
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}
		outcome, err := session.RunTask(t.Context(), "explore")
		if err != nil {
			t.Fatal(err)
		}
		if outcome.Mode != ModeDone {
			t.Fatalf("got %v", outcome.Mode)
		}
		requests := oracle.Requests()
		if len(requests) != 9 {
			t.Fatalf("got %v", kinds(requests))
		}
		if prompt := lastPrompt(t, requests[1]); !strings.Contains(prompt, "Generate Partial Plan (Explore)") {
			t.Fatalf("got %q", prompt)
		}
		if prompt := lastPrompt(t, requests[3]); !strings.Contains(prompt, "   2. Plan what to do next\n") {
			t.Fatalf("got %q", prompt)
		}
		cont := lastPrompt(t, requests[5])
		if !strings.Contains(cont, "Generate a Continuing Plan...") {
			t.Fatalf("got %q", cont)
		}
		if requests[5].Temperature != 0.7 {
			t.Fatalf("got %v", requests[5].Temperature)
		}
		// the continuation replaces the partial plan in place
		last := lastPrompt(t, requests[7])
		if !strings.Contains(last, "Current Plan:\n   1. finish\n\nCurrent SubTask: finish (step 1)\n") ||
			strings.Contains(last, "Current SubPlan") {
			t.Fatalf("got %q", last)
		}
	})
}

func TestIterationBudget(t *testing.T) {
	newTestScope(t, func(settings *taiconfigs.Settings) {
		settings.MaxIterations = 3
	}).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(
			strategy("do"),
			action("print(1)"),
			reflection("continue"),
			action("print(2)"),
		)
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}
		outcome, err := session.RunTask(t.Context(), "count")
		if err != nil {
			t.Fatal(err)
		}
		if outcome.Mode != ModeAbortIterations {
			t.Fatalf("got %v", outcome.Mode)
		}
		if outcome.Iterations != 3 || len(oracle.Requests()) != 3 || oracle.Remaining() != 1 {
			t.Fatalf("got %d %d", outcome.Iterations, len(oracle.Requests()))
		}
		if !strings.Contains(outcome.Trace.Human.String(), "Yikes!!! Exceeded MAX_ITERATIONS (3) steps! Giving up!") {
			t.Fatalf("got %q", outcome.Trace.Human.String())
		}
	})
}

func TestWallTimeBudget(t *testing.T) {
	newTestScope(t, func(settings *taiconfigs.Settings) {
		settings.MaxWallTime = time.Nanosecond
	}).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(strategy("do"))
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}
		outcome, err := session.RunTask(t.Context(), "slow")
		if err != nil {
			t.Fatal(err)
		}
		if outcome.Mode != ModeAbortIterations {
			t.Fatalf("got %v", outcome.Mode)
		}
		if len(oracle.Requests()) != 0 {
			t.Fatalf("got %d", len(oracle.Requests()))
		}
	})
}

func TestMalformedReplyRetries(t *testing.T) {
	newTestScope(t, func(settings *taiconfigs.Settings) {
		settings.MaxRetries = 5
	}).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(
			strategy("do"),
			"I'd rather not answer in json",
			action("print(1)"),
			reflection("dance"),
			action("print(2)"),
			reflection(map[string]any{
				"action":               "retry_earlier_step",
				"step_number":          5,
				"revised_instructions": "nope",
			}),
			action("print(3)"),
			reflection("done"),
		)
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}
		outcome, err := session.RunTask(t.Context(), "be robust")
		if err != nil {
			t.Fatal(err)
		}
		if outcome.Mode != ModeDone {
			t.Fatalf("got %v", outcome.Mode)
		}
		requests := oracle.Requests()
		if len(requests) != 8 {
			t.Fatalf("got %v", kinds(requests))
		}
		retry := lastPrompt(t, requests[2])
		if !strings.Contains(retry, "could not be used") ||
			!strings.Contains(retry, "#3. An error occurred doing step 1. Let's try and debug the problem and retry (retry number 1).\n") {
			t.Fatalf("got %q", retry)
		}
		// unknown next_action
		if prompt := lastPrompt(t, requests[4]); !strings.Contains(prompt, "(retry number 2)") {
			t.Fatalf("got %q", prompt)
		}
		// out of range rollback
		if prompt := lastPrompt(t, requests[6]); !strings.Contains(prompt, "(retry number 3)") {
			t.Fatalf("got %q", prompt)
		}
	})
}

func TestRetryEarlierStep(t *testing.T) {
	newTestScope(t, func(settings *taiconfigs.Settings) {
		settings.MaxEarlierStepRetries = 1
	}).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(
			action(`print("one")`),
			reflection("next_step"),
			action(`print("two")`),
			reflection(map[string]any{
				"action":               "retry_earlier_step",
				"step_number":          1,
				"revised_instructions": "one again",
			}),
			action(`print("one again")`),
			reflection(map[string]any{
				"action":               "retry_earlier_step",
				"step_number":          1,
				"revised_instructions": "one more time",
			}),
		)
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}
		outcome, err := session.RunPlan(t.Context(), "two steps", "one", "two")
		if err != nil {
			t.Fatal(err)
		}
		if outcome.Mode != ModeAbortIterations {
			t.Fatalf("got %v", outcome.Mode)
		}
		requests := oracle.Requests()
		if len(requests) != 6 {
			t.Fatalf("got %v", kinds(requests))
		}
		rollback := lastPrompt(t, requests[4])
		if !strings.Contains(rollback, "#5. Step 1 failed, indicating a problem at an earlier step in the plan. Returning to retry that earlier step (earlier retry number 1).\n") ||
			!strings.Contains(rollback, "   1. one again\n   2. two\n") ||
			!strings.Contains(rollback, "Current SubTask: one again (step 1)\n") {
			t.Fatalf("got %q", rollback)
		}
		if !strings.Contains(outcome.Trace.Human.String(), "Too many retries from an earlier step! Giving up!") {
			t.Fatalf("got %q", outcome.Trace.Human.String())
		}
	})
}

func TestShortcutsAllowed(t *testing.T) {
	newTestScope(t, func(settings *taiconfigs.Settings) {
		settings.AllowShortcuts = true
	}).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(
			strategy("plan"),
			planReply("fake it"),
			doable("no"),
			action("print(1)"),
			reflection("abort_shortcuts"),
			action("print(2)"),
			reflection("done"),
		)
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}
		outcome, err := session.RunTask(t.Context(), "anything")
		if err != nil {
			t.Fatal(err)
		}
		// done of the subplan, then done of the task
		if outcome.Mode != ModeDone {
			t.Fatalf("got %v", outcome.Mode)
		}
		if len(oracle.Requests()) != 7 {
			t.Fatalf("got %v", kinds(oracle.Requests()))
		}
	})
}

func TestAbortPropagates(t *testing.T) {
	newTestScope(t, nil).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(
			strategy("plan"),
			planReply("first", "second"),
			doable("yes"),
			action("print(1)"),
			reflection("abort_impossible"),
		)
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}
		outcome, err := session.RunTask(t.Context(), "impossible")
		if err != nil {
			t.Fatal(err)
		}
		if outcome.Mode != ModeAbortImpossible {
			t.Fatalf("got %v", outcome.Mode)
		}
		if len(oracle.Requests()) != 5 {
			t.Fatalf("got %v", kinds(oracle.Requests()))
		}
	})
}

type panicOracle struct{}

func (panicOracle) Query(ctx context.Context, req oracles.Request) (oracles.Reply, error) {
	panic("boom")
}

func (panicOracle) Complete(ctx context.Context, dialog oracles.Dialog, prompt string) (string, oracles.Usage, error) {
	return "", oracles.Usage{}, nil
}

func TestPanicBecomesAbort(t *testing.T) {
	newTestScope(t, nil).Call(func(
		newSession NewSession,
	) {
		session, err := newSession(panicOracle{})
		if err != nil {
			t.Fatal(err)
		}
		outcome, err := session.RunPlan(t.Context(), "nested", "step")
		if err != nil {
			t.Fatal(err)
		}
		if outcome.Mode != ModeAbortPythonError {
			t.Fatalf("got %v", outcome.Mode)
		}
		if !strings.Contains(session.Observations, "boom") {
			t.Fatalf("got %q", session.Observations)
		}
	})
}

func TestOracleFailureAborts(t *testing.T) {
	newTestScope(t, nil).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(strategy("do"))
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}
		outcome, err := session.RunTask(t.Context(), "short script")
		if err != nil {
			t.Fatal(err)
		}
		if outcome.Mode != ModeAbortPythonError {
			t.Fatalf("got %v", outcome.Mode)
		}
	})
}

func TestCancel(t *testing.T) {
	newTestScope(t, nil).Call(func(
		newSession NewSession,
	) {
		session, err := newSession(oracles.NewScripted(strategy("do")))
		if err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if _, err := session.RunTask(ctx, "never"); err == nil {
			t.Fatal("should fail")
		}
	})
}

func TestAdvice(t *testing.T) {
	dir := t.TempDir()
	adviceFile := filepath.Join(dir, "advice.txt")
	if err := os.WriteFile(adviceFile, []byte("IF printing THEN print the result twice\n"), 0644); err != nil {
		t.Fatal(err)
	}
	newTestScope(t, func(settings *taiconfigs.Settings) {
		settings.AdviceFile = adviceFile
	}).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(
			action("print(1)"),
			reflection("next_step"),
		).WithCompletions("- print the result twice", "Printed.")
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}
		outcome, err := session.RunPlan(t.Context(), "", "printing")
		if err != nil {
			t.Fatal(err)
		}
		prompt := lastPrompt(t, oracle.Requests()[0])
		if !strings.Contains(prompt, "#1. Perform Step 1: printing\nAdvice:\n- print the result twice\n"+dashes+"\n") {
			t.Fatalf("got %q", prompt)
		}
		if outcome.Summary != "Printed." {
			t.Fatalf("got %q", outcome.Summary)
		}
	})
}

func TestNamespaceBetweenTasks(t *testing.T) {
	run := func(t *testing.T, resetNamespace bool) string {
		var human string
		newTestScope(t, func(settings *taiconfigs.Settings) {
			settings.ResetNamespace = resetNamespace
		}).Call(func(
			newSession NewSession,
		) {
			oracle := oracles.NewScripted(
				action("n = 41"),
				reflection("done"),
				action("print(n + 1)"),
				reflection("done"),
			)
			session, err := newSession(oracle)
			if err != nil {
				t.Fatal(err)
			}
			first, err := session.RunPlan(t.Context(), "", "define n")
			if err != nil {
				t.Fatal(err)
			}
			second, err := session.RunPlan(t.Context(), "", "use n")
			if err != nil {
				t.Fatal(err)
			}
			if first.OutputDir == second.OutputDir {
				t.Fatalf("got %s", first.OutputDir)
			}
			// the dialog is reset by default
			if n := len(oracle.Requests()[2].Dialog.Turns); n != 1 {
				t.Fatalf("got %d", n)
			}
			human = second.Trace.Human.String()
		})
		return human
	}

	if human := run(t, false); !strings.Contains(human, "42\n") {
		t.Fatalf("got %q", human)
	}
	if human := run(t, true); !strings.Contains(human, "undefined") {
		t.Fatalf("got %q", human)
	}
}

func TestInteractive(t *testing.T) {
	newTestScope(t, nil).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(
			action("answer = 6 * 7\nprint(answer)"),
			reflection("done"),
			action("print(answer + 1)"),
			reflection("done"),
		)
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}
		lines := []string{
			"action: compute the answer",
			"",
			"action: increment it",
			"q",
			"never read",
		}
		var questions []string
		prompt := func(question string) (string, error) {
			questions = append(questions, question)
			line := lines[0]
			lines = lines[1:]
			return line, nil
		}
		var outcomes []Outcome
		if err := session.Interactive(t.Context(), prompt, func(outcome Outcome) {
			outcomes = append(outcomes, outcome)
		}); err != nil {
			t.Fatal(err)
		}

		if len(outcomes) != 2 || len(lines) != 1 {
			t.Fatalf("got %d outcomes, %d lines left", len(outcomes), len(lines))
		}
		if !strings.Contains(questions[0], NextTaskQuestion) {
			t.Fatalf("got %q", questions[0])
		}
		if !strings.Contains(outcomes[1].Trace.Human.String(), "43\n") {
			t.Fatalf("got %q", outcomes[1].Trace.Human.String())
		}
		// the dialog carries over
		requests := oracle.Requests()
		next := requests[2]
		if len(next.Dialog.Turns) != 5 {
			t.Fatalf("got %d", len(next.Dialog.Turns))
		}
		if prompt := lastPrompt(t, next); !strings.Contains(prompt, "STARTING THE NEXT TASK") ||
			!strings.Contains(prompt, "Top-Level Task: increment it\n") {
			t.Fatalf("got %q", prompt)
		}
	})
}

func TestInteractiveIterationBudget(t *testing.T) {
	newTestScope(t, func(settings *taiconfigs.Settings) {
		settings.MaxIterations = 3
	}).Call(func(
		newSession NewSession,
	) {
		oracle := oracles.NewScripted(
			action("print(1)"),
			reflection("done"),
			action("print(2)"),
			reflection("done"),
		)
		session, err := newSession(oracle)
		if err != nil {
			t.Fatal(err)
		}
		lines := []string{
			"action: first",
			"action: second",
			"q",
		}
		prompt := func(string) (string, error) {
			line := lines[0]
			lines = lines[1:]
			return line, nil
		}
		var outcomes []Outcome
		if err := session.Interactive(t.Context(), prompt, func(outcome Outcome) {
			outcomes = append(outcomes, outcome)
		}); err != nil {
			t.Fatal(err)
		}

		if len(outcomes) != 2 {
			t.Fatalf("got %d", len(outcomes))
		}
		if outcomes[0].Mode != ModeDone || outcomes[0].Iterations != 2 {
			t.Fatalf("got %v %d", outcomes[0].Mode, outcomes[0].Iterations)
		}
		if outcomes[1].Mode != ModeAbortIterations || outcomes[1].Iterations != 3 {
			t.Fatalf("got %v %d", outcomes[1].Mode, outcomes[1].Iterations)
		}
		if oracle.Remaining() != 1 {
			t.Fatalf("got %d", oracle.Remaining())
		}
	})
}

func TestRunBatch(t *testing.T) {
	newTestScope(t, nil).Call(func(
		runBatch RunBatch,
	) {
		ledger, err := storages.OpenLedger(t.Context(), filepath.Join(t.TempDir(), "ledger.db"))
		if err != nil {
			t.Fatal(err)
		}
		defer ledger.Close()

		tasks := []string{"first", "second", "third"}
		results, err := runBatch(t.Context(), tasks, 2, func(task string) (oracles.Oracle, error) {
			return oracles.NewScripted(
				strategy("do"),
				action("name = "+`"`+task+`"`+"\nprint(name)"),
				reflection("done"),
			), nil
		}, ledger)
		if err != nil {
			t.Fatal(err)
		}

		dirs := make(map[string]bool)
		for i, result := range results {
			if result.Err != nil {
				t.Fatal(result.Err)
			}
			if result.Task != tasks[i] || result.Outcome.Mode != ModeDone {
				t.Fatalf("got %+v", result)
			}
			if !strings.Contains(result.Outcome.Trace.Human.String(), tasks[i]+"\n") {
				t.Fatalf("got %q", result.Outcome.Trace.Human.String())
			}
			dirs[result.Outcome.OutputDir] = true
		}
		if len(dirs) != len(tasks) {
			t.Fatalf("got %v", dirs)
		}

		n, err := ledger.Count(t.Context(), string(ModeDone))
		if err != nil {
			t.Fatal(err)
		}
		if n != len(tasks) {
			t.Fatalf("got %d", n)
		}
	})
}
