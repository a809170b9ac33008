package oracles

import "slices"

type Role string

const (
	// RoleEngine marks prompts written by the engine.
	RoleEngine Role = "ENGINE"
	// RoleOracle marks replies from the oracle.
	RoleOracle Role = "LLM"
)

type Turn struct {
	Role Role   `json:"role" yaml:"role"`
	Text string `json:"text" yaml:"text"`
}

// Dialog is the conversation sent with every request. It only grows.
type Dialog struct {
	System string `json:"system" yaml:"system"`
	Turns  []Turn `json:"turns" yaml:"turns"`
}

// Append returns a dialog with one more turn. The receiver is not modified and
// never shares its tail with the result.
func (d Dialog) Append(role Role, text string) Dialog {
	d.Turns = append(slices.Clip(d.Turns), Turn{
		Role: role,
		Text: text,
	})
	return d
}

// AppendToLast adds text to the final turn, or starts an engine turn when empty.
func (d Dialog) AppendToLast(text string) Dialog {
	if len(d.Turns) == 0 {
		return d.Append(RoleEngine, text)
	}
	turns := slices.Clone(d.Turns)
	turns[len(turns)-1].Text += text
	d.Turns = turns
	return d
}

func (d Dialog) Last() (Turn, bool) {
	if len(d.Turns) == 0 {
		return Turn{}, false
	}
	return d.Turns[len(d.Turns)-1], true
}
