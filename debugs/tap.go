package debugs

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/reusee/taiplan/logs"
	"go.starlark.net/repl"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Tap opens a starlark REPL on stdin over namespace, the variables left by a finished session.
// Plain values are converted, starlark values such as user functions stay callable.
type Tap func(ctx context.Context, what string, namespace map[string]any)

var tapOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

func (Module) Tap(
	logger logs.Logger,
) Tap {
	return func(ctx context.Context, what string, namespace map[string]any) {
		logger.InfoContext(ctx, "tap: "+what,
			"names", slices.Sorted(maps.Keys(namespace)),
		)
		defer func() {
			logger.InfoContext(ctx, "tap end: "+what)
		}()

		globals := make(starlark.StringDict, len(namespace))
		for name, value := range namespace {
			globals[name] = ToStarlarkValue(value)
		}
		describe(os.Stderr, globals)

		thread := &starlark.Thread{
			Name: "tap",
		}
		repl.REPLOptions(tapOptions, thread, globals)
	}
}

// describe lists the names in globals with their types.
func describe(w io.Writer, globals starlark.StringDict) {
	if len(globals) == 0 {
		fmt.Fprintln(w, "(empty namespace)")
		return
	}
	width := 0
	for name := range globals {
		width = max(width, len(name))
	}
	var b strings.Builder
	for _, name := range slices.Sorted(maps.Keys(globals)) {
		fmt.Fprintf(&b, "%-*s  %s\n", width, name, globals[name].Type())
	}
	io.WriteString(w, b.String())
}
