package oracles

import "github.com/reusee/taiplan/plans"

// Kind selects the shape of a structured reply.
type Kind string

const (
	KindStrategize    Kind = "strategize"
	KindPlan          Kind = "plan"
	KindReflectOnPlan Kind = "reflect_on_plan"
	KindAct           Kind = "act"
	KindReflect       Kind = "reflect"
)

// Response is one of Strategy, PlanResponse, PlanReflection, Action or Reflection.
type Response interface {
	Kind() Kind
}

type Strategy struct {
	Strategy    string `json:"strategy"`
	Explanation string `json:"explanation"`
}

func (Strategy) Kind() Kind { return KindStrategize }

type PlanResponse struct {
	Plan plans.Plan `json:"plan"`
}

func (PlanResponse) Kind() Kind { return KindPlan }

type PlanReflection struct {
	Doable      string `json:"doable"`
	Explanation string `json:"explanation"`
}

func (PlanReflection) Kind() Kind { return KindReflectOnPlan }

type Action struct {
	Thought string `json:"thought"`
	Code    string `json:"action"`
}

func (Action) Kind() Kind { return KindAct }

type Reflection struct {
	Thought             string     `json:"thought"`
	TaskComplete        bool       `json:"task_complete"`
	CurrentStepComplete bool       `json:"current_step_complete"`
	SoftwareBug         bool       `json:"software_bug"`
	TookShortcuts       *bool      `json:"took_shortcuts,omitempty"`
	Next                NextAction `json:"-"`
}

func (Reflection) Kind() Kind { return KindReflect }

// NextAction is NextActionName or RetryEarlierStep.
type NextAction interface {
	isNextAction()
}

// NextActionName is a plain next_action value. Unknown names are kept as is.
type NextActionName string

func (NextActionName) isNextAction() {}

type RetryEarlierStep struct {
	StepNumber          int    `json:"step_number"`
	RevisedInstructions string `json:"revised_instructions"`
}

func (RetryEarlierStep) isNextAction() {}

// Usage counts tokens of one model.
type Usage struct {
	Model            string `json:"model" yaml:"model"`
	PromptTokens     int    `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens" yaml:"completion_tokens"`
}

// Reply is a parsed response together with the raw text it came from.
type Reply struct {
	Response Response
	Text     string
	Usage    Usage
}
