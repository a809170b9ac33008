package generators

import (
	"fmt"
	"slices"
)

// Prompts is the innermost State: the system prompt and the dialog sent to a backend.
// It is a value; appending never mutates contents shared with earlier states.
type Prompts struct {
	system   string
	contents []*Content
}

func NewPrompts(system string, contents []*Content) Prompts {
	return Prompts{
		system:   system,
		contents: contents,
	}
}

var _ State = Prompts{}

func (p Prompts) AppendContent(content *Content) (State, error) {
	if content.Role == "" {
		return nil, fmt.Errorf("content without role: %+v", content.Parts)
	}
	contents := slices.Clone(p.contents)
	if n := len(contents); n > 0 {
		// streamed chunks of one turn arrive as separate contents
		if merged, ok := contents[n-1].Merge(content); ok {
			contents[n-1] = merged
			return NewPrompts(p.system, contents), nil
		}
	}
	return NewPrompts(p.system, append(contents, content)), nil
}

func (p Prompts) Contents() []*Content {
	return p.contents
}

func (p Prompts) SystemPrompt() string {
	return p.system
}

func (p Prompts) Flush() (State, error) {
	return p, nil
}

func (p Prompts) Unwrap() State {
	return nil
}
