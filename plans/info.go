package plans

import "fmt"

// Info is the cursor over one plan.
type Info struct {
	Plan            Plan
	StepNumber      int
	StepDescription string
}

func NewInfo(plan Plan) (Info, error) {
	if err := plan.Validate(); err != nil {
		return Info{}, err
	}
	return Info{
		Plan:            plan,
		StepNumber:      1,
		StepDescription: plan[0].Description,
	}, nil
}

func (i Info) IsLastStep() bool {
	return i.StepNumber == len(i.Plan)
}

// Advance moves the cursor to the next step. It reports false, leaving the cursor unchanged, when the plan is exhausted.
func Advance(info Info) (Info, bool) {
	if info.StepNumber >= len(info.Plan) {
		return info, false
	}
	info.StepNumber++
	info.StepDescription = info.Plan[info.StepNumber-1].Description
	return info, true
}

// RetryEarlierStep rewrites the description of step n and moves the cursor to it.
// The plan is modified in place; no other step and not the plan length changes.
func RetryEarlierStep(info Info, n int, revised string) (Info, error) {
	if n < 1 || n > len(info.Plan) {
		return info, fmt.Errorf("retry step %d of %d: %w", n, len(info.Plan), ErrStepOutOfRange)
	}
	info.Plan[n-1].Description = revised
	info.StepNumber = n
	info.StepDescription = revised
	return info, nil
}
