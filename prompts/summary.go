package prompts

import "fmt"

const SummaryDone = "Generate one or two sentences that briefly summarize the conclusions of this task."

func SummaryAbort(outcome string) string {
	return fmt.Sprintf("The task failed (%s). Generate one or two sentences briefly summarizing what went wrong.", outcome)
}

// Advice asks which of the rules apply to a step. An empty reply means none.
func Advice(rules string, step string) string {
	return fmt.Sprintf(`Here are some rules of thumb, each of the form IF <condition> THEN <advice>:
%s

The next step to perform is:
%s

List the advice (the THEN parts) of the rules whose condition applies to this step, one per line starting with "- ". If no rule applies, reply with an empty string.`, rules, step)
}
