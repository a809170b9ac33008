package plans

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyPlan      = errors.New("empty plan")
	ErrStepOutOfRange = errors.New("step out of range")
)

// PartialPlanTail is the final step every partial plan ends with.
const PartialPlanTail = "Plan what to do next"

type Step struct {
	Number      int    `json:"step_number" yaml:"step_number"`
	Description string `json:"step" yaml:"step"`
}

// Plan is an ordered list of steps numbered densely from 1.
type Plan []Step

func New(descriptions ...string) Plan {
	ret := make(Plan, 0, len(descriptions))
	for i, desc := range descriptions {
		ret = append(ret, Step{
			Number:      i + 1,
			Description: desc,
		})
	}
	return ret
}

// FromTask models a bare task as a one-step plan.
func FromTask(task string) Plan {
	return New(task)
}

func (p Plan) Validate() error {
	if len(p) == 0 {
		return ErrEmptyPlan
	}
	for i, step := range p {
		if step.Number != i+1 {
			return fmt.Errorf("step %d numbered %d: %w", i+1, step.Number, ErrStepOutOfRange)
		}
		if strings.TrimSpace(step.Description) == "" {
			return fmt.Errorf("step %d has no description", step.Number)
		}
	}
	return nil
}

// Renumber returns a copy with dense numbering, keeping order.
func (p Plan) Renumber() Plan {
	ret := make(Plan, len(p))
	for i, step := range p {
		ret[i] = Step{
			Number:      i + 1,
			Description: step.Description,
		}
	}
	return ret
}

func (p Plan) StepDescription(n int) (string, error) {
	if n < 1 || n > len(p) {
		return "", fmt.Errorf("step %d of %d: %w", n, len(p), ErrStepOutOfRange)
	}
	return p[n-1].Description, nil
}

func (p Plan) Clone() Plan {
	if p == nil {
		return nil
	}
	ret := make(Plan, len(p))
	copy(ret, p)
	return ret
}

// ForcePartialPlanTail replaces the last step with PartialPlanTail. It reports whether the step was changed.
func ForcePartialPlanTail(p Plan) (Plan, bool) {
	if len(p) == 0 {
		return p, false
	}
	ret := p.Clone()
	last := &ret[len(ret)-1]
	if similar(last.Description, PartialPlanTail) {
		last.Description = PartialPlanTail
		return ret, false
	}
	last.Description = PartialPlanTail
	return ret, true
}

func similar(a, b string) bool {
	norm := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		return strings.TrimRight(s, ".!")
	}
	return norm(a) == norm(b)
}
