package prompts

import "strings"

const system = `
You are the reasoning component of a task engine. The engine works through a task by asking you one question per turn, running the code you write, and showing you the results in the next turn.

Each turn ends with a header naming what is being asked (strategize, plan, act, reflect ...). Answer with exactly one JSON object in the shape requested by that turn, and nothing else.

Code you write is executed in a persistent {{language}} environment. Variables, functions and files created in one turn are available in later turns. Each top-level statement runs separately; execution stops at the first statement that fails, and the failure is reported back to you.

Available builtins:
{{builtins}}
{{shortcuts}}`

const noShortcuts = `
Do not fake results. Never fabricate data, hard-code an answer that should be computed, or skip a step while claiming it is done. If a step cannot be done honestly, say so when reflecting.
`

const allowShortcuts = `
If a step cannot be done as specified, a reasonable workaround is acceptable, as long as you say clearly what was changed.
`

// System is the system prompt for one session.
func System(language string, builtins string, shortcuts bool) string {
	guidance := noShortcuts
	if shortcuts {
		guidance = allowShortcuts
	}
	return strings.NewReplacer(
		"{{language}}", language,
		"{{builtins}}", builtins,
		"{{shortcuts}}", guidance,
	).Replace(system)
}

const bars = "\n======================================================================\n"

// Intro opens the dialog of a run with the top-level task.
func Intro(task string, background string) string {
	var b strings.Builder
	b.WriteString(bars)
	if background != "" {
		b.WriteString("\nBackground knowledge for this task:\n" + background + "\n")
	}
	if task != "" {
		b.WriteString("\nThe top-level task is:\n" + task + "\n")
	}
	b.WriteString(bars)
	return b.String()
}
