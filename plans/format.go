package plans

import (
	"fmt"
	"strings"
)

func Pretty(plan Plan, indent int) string {
	var b strings.Builder
	pad := strings.Repeat(" ", indent)
	for _, step := range plan {
		fmt.Fprintf(&b, "%s%d. %s\n", pad, step.Number, step.Description)
	}
	return b.String()
}

// Format renders the task hierarchy from the top-level task down to the current step.
func Format(info Info, stack Stack) string {
	levels := make([]Info, 0, len(stack)+1)
	levels = append(levels, stack...)
	levels = append(levels, info)

	var b strings.Builder
	b.WriteString("Top-Level Task: " + levels[0].StepDescription + "\n")
	sub := ""
	for _, level := range levels[1:] {
		b.WriteString("Current " + sub + "Plan:\n")
		b.WriteString(Pretty(level.Plan, 3))
		b.WriteString("\n")
		sub += "Sub"
		fmt.Fprintf(&b, "Current %sTask: %s (step %d)\n", sub, level.StepDescription, level.StepNumber)
	}
	b.WriteString("\n")
	return b.String()
}
