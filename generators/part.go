package generators

type Part interface {
	isPart()
}

type Text string

func (Text) isPart() {}

type Thought string

func (Thought) isPart() {}

type FinishReason string

func (FinishReason) isPart() {}

type Usage struct {
	Prompt struct {
		TokenCount       int
		TokenCountCached int
	}
	Candidates struct {
		TokenCount int
	}
	Thoughts struct {
		TokenCount int
	}
}

func (Usage) isPart() {}

type Error struct {
	Error error
}

func (Error) isPart() {}

// TextOf concatenates the text parts of contents with the given role, ignoring thoughts.
func TextOf(contents []*Content, role Role) string {
	var ret string
	for _, content := range contents {
		if content.Role != role {
			continue
		}
		for _, part := range content.Parts {
			if text, ok := part.(Text); ok {
				ret += string(text)
			}
		}
	}
	return ret
}
