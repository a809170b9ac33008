package plans

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAdvanceVisitsEveryStepOnce(t *testing.T) {
	for n := 1; n <= 5; n++ {
		descs := make([]string, n)
		for i := range descs {
			descs[i] = strings.Repeat("x", i+1)
		}
		info, err := NewInfo(New(descs...))
		if err != nil {
			t.Fatal(err)
		}
		visited := []int{info.StepNumber}
		for {
			next, ok := Advance(info)
			if !ok {
				break
			}
			if next.StepNumber != info.StepNumber+1 {
				t.Fatalf("got %v after %v", next.StepNumber, info.StepNumber)
			}
			if next.StepDescription != descs[next.StepNumber-1] {
				t.Fatalf("got %q", next.StepDescription)
			}
			info = next
			visited = append(visited, info.StepNumber)
		}
		if len(visited) != n || visited[n-1] != n {
			t.Fatalf("got %v", visited)
		}
		if !info.IsLastStep() {
			t.Fatal("should be at last step")
		}
	}
}

func TestRetryEarlierStep(t *testing.T) {
	info, err := NewInfo(New("gather", "clean", "analyze"))
	if err != nil {
		t.Fatal(err)
	}
	info, _ = Advance(info)
	info, _ = Advance(info)
	before := info.Plan.Clone()

	info, err = RetryEarlierStep(info, 1, "gather again, skipping nulls")
	if err != nil {
		t.Fatal(err)
	}
	if info.StepNumber != 1 || info.StepDescription != "gather again, skipping nulls" {
		t.Fatalf("got %+v", info)
	}
	if len(info.Plan) != len(before) {
		t.Fatalf("length changed")
	}
	want := before.Clone()
	want[0].Description = "gather again, skipping nulls"
	if diff := cmp.Diff(want, info.Plan); diff != "" {
		t.Fatal(diff)
	}

	if _, err := RetryEarlierStep(info, 4, "x"); !errors.Is(err, ErrStepOutOfRange) {
		t.Fatalf("got %v", err)
	}
	if _, err := RetryEarlierStep(info, 0, "x"); !errors.Is(err, ErrStepOutOfRange) {
		t.Fatalf("got %v", err)
	}
}

func TestValidate(t *testing.T) {
	if err := Plan(nil).Validate(); !errors.Is(err, ErrEmptyPlan) {
		t.Fatalf("got %v", err)
	}
	gap := Plan{{Number: 1, Description: "a"}, {Number: 3, Description: "b"}}
	if err := gap.Validate(); !errors.Is(err, ErrStepOutOfRange) {
		t.Fatalf("got %v", err)
	}
	if err := gap.Renumber().Validate(); err != nil {
		t.Fatal(err)
	}
	blank := Plan{{Number: 1, Description: " "}}
	if err := blank.Validate(); err == nil {
		t.Fatal("should error")
	}
}

func TestStack(t *testing.T) {
	var stack Stack
	root, _ := NewInfo(FromTask("task"))
	sub, _ := NewInfo(New("a", "b"))

	s1 := stack.Push(root)
	s2 := s1.Push(sub)
	if s1.Depth() != 1 || s2.Depth() != 2 {
		t.Fatalf("got %v %v", s1.Depth(), s2.Depth())
	}
	top, rest, ok := s2.Pop()
	if !ok || top.StepDescription != "a" || rest.Depth() != 1 {
		t.Fatalf("got %+v %v %v", top, rest, ok)
	}
	if _, _, ok := stack.Pop(); ok {
		t.Fatal("empty stack should not pop")
	}
}

func TestForcePartialPlanTail(t *testing.T) {
	p, changed := ForcePartialPlanTail(New("look around", "plan what to do next."))
	if changed {
		t.Fatal("similar tail should not count as a change")
	}
	if p[1].Description != PartialPlanTail {
		t.Fatalf("got %q", p[1].Description)
	}
	p, changed = ForcePartialPlanTail(New("look around", "finish"))
	if !changed || p[1].Description != PartialPlanTail {
		t.Fatalf("got %v %q", changed, p[1].Description)
	}
}

func TestFormat(t *testing.T) {
	root, _ := NewInfo(FromTask("Study addition"))
	sub, _ := NewInfo(New("Make questions", "Score answers"))
	sub, _ = Advance(sub)

	got := Format(sub, Stack{root})
	want := "Top-Level Task: Study addition\n" +
		"Current Plan:\n" +
		"   1. Make questions\n" +
		"   2. Score answers\n" +
		"\n" +
		"Current SubTask: Score answers (step 2)\n" +
		"\n"
	if got != want {
		t.Fatalf("got %q", got)
	}

	if got := Format(root, nil); got != "Top-Level Task: Study addition\n\n" {
		t.Fatalf("got %q", got)
	}
}
