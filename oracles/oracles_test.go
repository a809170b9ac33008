package oracles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/reusee/dscope"
	"github.com/reusee/taiplan/configs"
	"github.com/reusee/taiplan/generators"
	"github.com/reusee/taiplan/modes"
	"github.com/reusee/taiplan/plans"
)

func TestParse(t *testing.T) {

	t.Run("fenced json", func(t *testing.T) {
		resp, err := Parse(KindStrategize, "Sure.\n```json\n{\"strategy\": \"Do\", \"explanation\": \"simple\"}\n```\n")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(Strategy{Strategy: "do", Explanation: "simple"}, resp); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("bare object", func(t *testing.T) {
		resp, err := Parse(KindAct, `here: {"thought": "add", "action": "print(2+2)"} done`)
		if err != nil {
			t.Fatal(err)
		}
		if resp.(Action).Code != "print(2+2)" {
			t.Fatalf("got %+v", resp)
		}
	})

	t.Run("plan renumbered", func(t *testing.T) {
		resp, err := Parse(KindPlan, `{"plan": [{"step_number": 3, "step": "a"}, {"step_number": 7, "step": "b"}]}`)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(plans.New("a", "b"), resp.(PlanResponse).Plan); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		for _, c := range []struct {
			kind Kind
			text string
		}{
			{KindStrategize, "no json here"},
			{KindStrategize, `{"explanation": "x"}`},
			{KindPlan, `{"plan": []}`},
			{KindPlan, `{"plan": [{"step_number": 1, "step": ""}]}`},
			{KindReflectOnPlan, `{"doable": null}`},
			{KindAct, `{"thought": "x", "action": "  "}`},
			{KindAct, `{"thought": "x", "action": 42}`},
			{KindReflect, `{"thought": "x", "next_action": [1]}`},
		} {
			_, err := Parse(c.kind, c.text)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("%s %s: got %v", c.kind, c.text, err)
			}
		}
	})

	t.Run("reflection", func(t *testing.T) {
		resp, err := Parse(KindReflect, `{"thought": "ok", "task_complete": true, "current_step_complete": true, "software_bug": false, "took_shortcuts": false, "next_action": "done"}`)
		if err != nil {
			t.Fatal(err)
		}
		r := resp.(Reflection)
		if !r.TaskComplete || r.Next != NextActionName("done") || r.TookShortcuts == nil || *r.TookShortcuts {
			t.Fatalf("got %+v", r)
		}
	})

	t.Run("compound next action", func(t *testing.T) {
		resp, err := Parse(KindReflect, `{"thought": "bad data", "next_action": {"action": "retry_earlier_step", "step_number": 1, "revised_instructions": "fetch again"}}`)
		if err != nil {
			t.Fatal(err)
		}
		want := RetryEarlierStep{StepNumber: 1, RevisedInstructions: "fetch again"}
		if resp.(Reflection).Next != want {
			t.Fatalf("got %+v", resp)
		}
	})

	t.Run("unknown next action is not an error", func(t *testing.T) {
		for _, text := range []string{
			`{"thought": "x", "next_action": "dance"}`,
			`{"thought": "x"}`,
			`{"thought": "x", "next_action": {"action": "dance"}}`,
		} {
			resp, err := Parse(KindReflect, text)
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := resp.(Reflection).Next.(NextActionName); !ok {
				t.Fatalf("got %+v", resp)
			}
		}
	})
}

func TestDialogAppend(t *testing.T) {
	d := Dialog{System: "sys"}.Append(RoleEngine, "a")
	d1 := d.Append(RoleOracle, "b")
	d2 := d.Append(RoleOracle, "c")
	if d1.Turns[1].Text != "b" || d2.Turns[1].Text != "c" {
		t.Fatalf("got %+v %+v", d1, d2)
	}
	d3 := d1.AppendToLast("!")
	if d1.Turns[1].Text != "b" || d3.Turns[1].Text != "b!" {
		t.Fatalf("got %+v %+v", d1, d3)
	}
}

func TestScriptedAndRecording(t *testing.T) {
	ctx := context.Background()
	scripted := NewScripted(
		map[string]any{"strategy": "do", "explanation": "easy"},
		`{"thought": "t", "action": "print(1)"}`,
	).WithCompletions("it worked")

	buf := new(bytes.Buffer)
	oracle := NewRecording(scripted, NewRecordSink(buf))

	reply, err := oracle.Query(ctx, Request{Kind: KindStrategize})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Response.(Strategy).Strategy != "do" {
		t.Fatalf("got %+v", reply)
	}
	if _, err := oracle.Query(ctx, Request{Kind: KindAct}); err != nil {
		t.Fatal(err)
	}
	summary, _, err := oracle.Complete(ctx, Dialog{}, "summarize")
	if err != nil {
		t.Fatal(err)
	}
	if summary != "it worked" {
		t.Fatalf("got %q", summary)
	}
	if _, err := oracle.Query(ctx, Request{Kind: KindReflect}); !errors.Is(err, ErrScriptExhausted) {
		t.Fatalf("got %v", err)
	}

	replay, err := LoadScript(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatal(err)
	}
	if replay.Remaining() != 2 {
		t.Fatalf("got %d", replay.Remaining())
	}
	reply, err = replay.Query(ctx, Request{Kind: KindStrategize})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Response.(Strategy).Explanation != "easy" {
		t.Fatalf("got %+v", reply)
	}
	if summary, _, _ := replay.Complete(ctx, Dialog{}, ""); summary != "it worked" {
		t.Fatalf("got %q", summary)
	}
}

func TestRecordingsShareSink(t *testing.T) {
	ctx := context.Background()
	buf := new(bytes.Buffer)
	sink := NewRecordSink(buf)
	texts := make(map[string]bool)
	var wg sync.WaitGroup
	for i := range 8 {
		text := strings.Repeat(string(rune('a'+i)), 64*1024)
		texts[text] = true
		oracle := NewRecording(NewScripted().WithCompletions(text), sink)
		wg.Go(func() {
			if _, _, err := oracle.Complete(ctx, Dialog{}, ""); err != nil {
				t.Error(err)
			}
		})
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != len(texts) {
		t.Fatalf("got %d lines", len(lines))
	}
	for _, line := range lines {
		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatal(err)
		}
		if !texts[record.Text] {
			t.Fatalf("got %.20q", record.Text)
		}
		delete(texts, record.Text)
	}
}

// fakeGenerator answers with queued texts and records the contents it saw.
type fakeGenerator struct {
	args    generators.GeneratorArgs
	replies *[]string
	seen    *[][]*generators.Content
}

var _ generators.Generator = fakeGenerator{}

func (f fakeGenerator) Args() generators.GeneratorArgs { return f.args }

func (f fakeGenerator) WithArgs(args generators.GeneratorArgs) generators.Generator {
	f.args = args
	return f
}

// one token per word
func (f fakeGenerator) CountTokens(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func (f fakeGenerator) Generate(ctx context.Context, state generators.State) (generators.State, error) {
	*f.seen = append(*f.seen, state.Contents())
	if len(*f.replies) == 0 {
		return state, errors.New("no more replies")
	}
	text := (*f.replies)[0]
	*f.replies = (*f.replies)[1:]
	state, err := state.AppendContent(&generators.Content{
		Role:  generators.RoleModel,
		Parts: []generators.Part{generators.Text(text)},
	})
	if err != nil {
		return nil, err
	}
	return state.Flush()
}

func newFake(replies ...string) fakeGenerator {
	var seen [][]*generators.Content
	return fakeGenerator{
		args:    generators.GeneratorArgs{Model: "fake"},
		replies: &replies,
		seen:    &seen,
	}
}

func testScope(t *testing.T) dscope.Scope {
	loader := configs.NewLoader(nil, "")
	return dscope.New(
		modes.ForTest(t),
		&loader,
		new(Module),
	)
}

func TestGeneratorOracleRetriesMalformed(t *testing.T) {
	testScope(t).Call(func(
		newOracle NewGeneratorOracle,
	) {
		gen := newFake(
			"I cannot answer in json",
			`{"doable": "yes", "explanation": "fine"}`,
		)
		oracle := newOracle(gen, 0)
		reply, err := oracle.Query(t.Context(), Request{
			Kind:   KindReflectOnPlan,
			Dialog: Dialog{System: "sys"}.Append(RoleEngine, "is it doable?"),
		})
		if err != nil {
			t.Fatal(err)
		}
		if reply.Response.(PlanReflection).Doable != "yes" {
			t.Fatalf("got %+v", reply)
		}
		if len(*gen.seen) != 2 {
			t.Fatalf("got %d calls", len(*gen.seen))
		}

		gen = newFake("x", "y", "z", "never")
		oracle = newOracle(gen, 0)
		_, err = oracle.Query(t.Context(), Request{
			Kind:   KindAct,
			Dialog: Dialog{}.Append(RoleEngine, "act"),
		})
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("got %v", err)
		}
		if len(*gen.replies) != 1 {
			t.Fatalf("got %d left", len(*gen.replies))
		}
	})
}

func TestGeneratorOracleTruncates(t *testing.T) {
	testScope(t).Call(func(
		newOracle NewGeneratorOracle,
	) {
		gen := newFake("summary text")
		oracle := newOracle(gen, 12)
		dialog := Dialog{}.
			Append(RoleEngine, "task: count words").
			Append(RoleOracle, "one two three four five").
			Append(RoleEngine, "six seven eight nine ten").
			Append(RoleOracle, "eleven twelve").
			Append(RoleEngine, "now what")
		text, _, err := oracle.Complete(t.Context(), dialog, "summarize")
		if err != nil {
			t.Fatal(err)
		}
		if text != "summary text" {
			t.Fatalf("got %q", text)
		}
		seen := (*gen.seen)[0]
		first := generators.TextOf(seen[:1], generators.RoleUser)
		if !strings.HasPrefix(first, "task: count words") || !strings.Contains(first, "omitted") {
			t.Fatalf("got %q", first)
		}
		all := generators.TextOf(seen, generators.RoleUser) + generators.TextOf(seen, generators.RoleModel)
		if strings.Contains(all, "one two") {
			t.Fatalf("oldest turns should be dropped: %q", all)
		}
		if !strings.Contains(all, "summarize") {
			t.Fatalf("prompt must be kept: %q", all)
		}
	})
}
