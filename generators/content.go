package generators

import "slices"

type Role string

const (
	RoleUser   Role = "user"
	RoleSystem Role = "system"
	// model role as named by OpenAI-compatible backends
	RoleAssistant Role = "assistant"
	// model role as named by Gemini, and in every State
	RoleModel Role = "model"
	RoleTool  Role = "tool"
	// local notes, never sent to a backend
	RoleLog Role = "log"
)

// Content is one turn of a State.
type Content struct {
	Role  Role
	Parts []Part
}

// Merge joins two contents of the same role. Adjacent text parts and adjacent thought parts are concatenated.
func (c Content) Merge(other *Content) (*Content, bool) {
	if c.Role != other.Role {
		return nil, false
	}
	ret := &Content{
		Role: c.Role,
	}
	for _, part := range append(slices.Clip(c.Parts), other.Parts...) {
		ret.Parts = appendPart(ret.Parts, part)
	}
	return ret, true
}

func appendPart(parts []Part, part Part) []Part {
	if n := len(parts); n > 0 {
		switch last := parts[n-1].(type) {
		case Text:
			if text, ok := part.(Text); ok {
				parts[n-1] = last + text
				return parts
			}
		case Thought:
			if thought, ok := part.(Thought); ok {
				parts[n-1] = last + thought
				return parts
			}
		}
	}
	return append(parts, part)
}
