package generators

// OpenAIParser assembles streamed deltas into contents.
type OpenAIParser struct {
	current *Content
}

func (o *OpenAIParser) Input(delta ChatCompletionStreamChoiceDelta) (ret []*Content) {
	if deltaIsEmpty(delta) {
		return nil
	}

	role := Role(delta.Role)
	if role == RoleAssistant {
		role = RoleModel
	}

	if o.current == nil {
		if role == "" {
			role = RoleModel
		}
		o.current = &Content{
			Role: role,
		}
	} else if role != "" && o.current.Role != role {
		// role change
		ret = append(ret, o.current)
		o.current = &Content{
			Role: role,
		}
	}

	if delta.ReasoningContent != "" {
		o.appendPart(Thought(delta.ReasoningContent))
	}
	if delta.Content != "" {
		o.appendPart(Text(delta.Content))
	}

	// emit in chunks so decorators can show progress
	if o.pendingLen() > 64 {
		ret = append(ret, o.current)
		o.current = &Content{
			Role: o.current.Role,
		}
	}

	return
}

func (o *OpenAIParser) pendingLen() (n int) {
	for _, part := range o.current.Parts {
		switch part := part.(type) {
		case Text:
			n += len(part)
		case Thought:
			n += len(part)
		}
	}
	return
}

func (o *OpenAIParser) appendPart(part Part) {
	if len(o.current.Parts) > 0 {
		prev := o.current.Parts[len(o.current.Parts)-1]
		switch part := part.(type) {
		case Text:
			if text, ok := prev.(Text); ok {
				o.current.Parts[len(o.current.Parts)-1] = text + part
				return
			}
		case Thought:
			if thought, ok := prev.(Thought); ok {
				o.current.Parts[len(o.current.Parts)-1] = thought + part
				return
			}
		}
	}
	o.current.Parts = append(o.current.Parts, part)
}

func (o *OpenAIParser) End() (ret []*Content) {
	if o.current != nil && len(o.current.Parts) > 0 {
		ret = append(ret, o.current)
	}
	o.current = nil
	return
}

func deltaIsEmpty(delta ChatCompletionStreamChoiceDelta) bool {
	return delta.Content == "" &&
		delta.Role == "" &&
		delta.ReasoningContent == ""
}
