package prompts

import "fmt"

const Strategize = `
Decide how to approach the current task. Reply:
{"strategy": "do" | "plan" | "explore", "explanation": "..."}
- "do": the task is simple enough to do directly with code.
- "plan": the task needs several steps; a plan will be made next.
- "explore": too little is known to plan everything; make a partial plan and plan the rest later.
`

const planShape = `Reply:
{"plan": [{"step_number": 1, "step": "..."}, {"step_number": 2, "step": "..."}, ...]}
Steps are numbered from 1 and each one should be doable with a few statements of code.
`

const Plan = `
Make a plan for the current task.
` + planShape

const PartialPlan = `
Make a partial plan for the current task, covering only what can be decided now. The last step must be "Plan what to do next".
` + planShape

const ContinuePlan = `
The partial plan has been carried out. Make a plan for what remains of the task, based on what was learned.
` + planShape

const Replan = `
The current plan is not working. Make a new plan for the current task, taking the problems seen so far into account.
` + planShape

const ReflectOnPlan = `
Judge whether the plan can actually be carried out with the builtins and code available, without faking any step. Reply:
{"doable": "yes" | "unsure" | "no", "explanation": "..."}
`

const ReflectOnPlanAllowShortcuts = `
Judge whether the plan can be carried out. Where a step cannot be done as written, describe a workaround in the explanation. Reply:
{"doable": "yes" | "unsure", "explanation": "..."}
`

const actionShape = `Reply:
{"thought": "...", "action": "<code>"}
`

const Act = `
Write code to perform the current step.
` + actionShape

const Continue = `
The current step is not finished yet. Write code to continue it.
` + actionShape

const Debug = `
The last code failed or gave wrong results. Find the cause and write code that fixes it and redoes the work.
` + actionShape

const reflectShape = `{"thought": "...",
 "task_complete": true | false,
 "current_step_complete": true | false,
 "software_bug": true | false,%s
 "next_action": "done" | "next_step" | "continue" | "debug" | "replan" | "abort_impossible"%s
   or {"action": "retry_earlier_step", "step_number": N, "revised_instructions": "..."}}
`

const reflectLead = `
Look at the results of the code just run and decide what to do next. Reply:
`

var (
	Reflect = reflectLead + fmt.Sprintf(reflectShape,
		"\n \"took_shortcuts\": true | false,",
		` | "abort_shortcuts"`,
	)
	ReflectAllowShortcuts = reflectLead + fmt.Sprintf(reflectShape, "", "")
)
