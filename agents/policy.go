package agents

import "fmt"

// Counters are the retry budgets spent so far.
// Retry stays within [0, MaxRetries] and EarlierStepRetry within [0, MaxEarlierStepRetries].
type Counters struct {
	Retry            int
	EarlierStepRetry int
}

type Policy struct {
	MaxRetries            int
	MaxEarlierStepRetries int
}

// OnReflection applies the retry limits to the mode a reflection asked for.
// It returns the mode to enter and a line for the observations.
func (p Policy) OnReflection(counters *Counters, mode Mode, step int) (Mode, string) {
	switch mode {

	case ModeDone:
		return mode, "Step complete."

	case ModeNextStep:
		counters.Retry = 0
		counters.EarlierStepRetry = 0
		return mode, fmt.Sprintf("Step %d complete. Moving onto the next step in the plan...", step)

	case ModeContinue:
		counters.Retry = 0
		return mode, fmt.Sprintf("Step %d not yet complete. Let's continue to work on it...", step)

	case ModeReplan:
		counters.Retry = 0
		return mode, "The current plan doesn't seem to be going anywhere. I'll replan..."

	case ModeAbortShortcuts:
		return mode, "Step doesn't appear doable (a shortcut was taken). Giving up..."

	case ModeAbortImpossible:
		return mode, "It seems logically impossible to do this task. Giving up..."

	case ModeRetryEarlierStep:
		counters.Retry = 0
		if counters.EarlierStepRetry >= p.MaxEarlierStepRetries {
			return ModeAbortIterations, "Too many retries from an earlier step! Giving up!"
		}
		counters.EarlierStepRetry++
		return mode, fmt.Sprintf("Step %d failed, indicating a problem at an earlier step in the plan. Returning to retry that earlier step.", step)

	case ModeDebug, ModeRetry:
		if counters.Retry >= p.MaxRetries {
			counters.Retry = 0
			return ModeReplan, fmt.Sprintf("Too many retries! I seem to be stuck on step %d. Let's abandon this effort and replan.", step)
		}
		counters.Retry++
		return mode, fmt.Sprintf("An error occurred doing step %d. Let's try and debug the problem and retry (retry number %d).", step, counters.Retry)

	}
	return mode, ""
}
