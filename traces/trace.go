package traces

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/reusee/taiplan/oracles"
)

// Trace is everything a Session produced. It only grows.
type Trace struct {
	// what the oracle saw
	Dialog oracles.Dialog
	// condensed, what the user saw
	Human strings.Builder
	// statements that ran, failed ones commented out
	Code      strings.Builder
	Plots     []string
	Artifacts []string

	// optional, receives everything written to Human
	Live io.Writer
}

func New(dialog oracles.Dialog, live io.Writer) *Trace {
	return &Trace{
		Dialog: dialog,
		Live:   live,
	}
}

// Say appends to the human trace.
func (t *Trace) Say(s string) {
	t.Human.WriteString(s)
	if t.Live != nil {
		io.WriteString(t.Live, s)
	}
}

func (t *Trace) Sayf(format string, args ...any) {
	t.Say(fmt.Sprintf(format, args...))
}

// Quiet appends to the human trace without echoing to Live, for text the user has already seen.
func (t *Trace) Quiet(s string) {
	t.Human.WriteString(s)
}

func (t *Trace) AddPlots(names ...string) {
	for _, name := range names {
		if !slices.Contains(t.Plots, name) {
			t.Plots = append(t.Plots, name)
		}
	}
}

func (t *Trace) AddArtifacts(names ...string) {
	for _, name := range names {
		if !slices.Contains(t.Artifacts, name) {
			t.Artifacts = append(t.Artifacts, name)
		}
	}
}
