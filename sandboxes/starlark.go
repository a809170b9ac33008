package sandboxes

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/reusee/taiplan/debugs"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var starlarkOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

var starlarkDialect = Dialect{
	Language:  LanguageStarlark,
	Extension: ".star",
	Comment:   "# ",
	ShowCall:  "plt.show()",
	SaveCall:  "plt.savefig(%q)",
	Builtins:  `- print(*args)
- save_artifact(name, value): save a value as <name>.yaml among the run artifacts
- read_file(path) -> str, text files only
- write_file(path, text)
- glob(pattern) -> list of paths, ** matches any depth
- read_pdf(path) -> str
- shell(command) -> {"stdout": str, "stderr": str, "exit_code": int}
- json.encode(value), json.decode(str)
- math: the math module
- struct(**kwargs)
- plt.plot(x, y=None, label=None), plt.title(s), plt.xlabel(s), plt.ylabel(s), plt.savefig(name), plt.show()
`,
}

type Starlark struct {
	tools    *Tools
	figure   *Figure
	globals  starlark.StringDict
	builtins starlark.StringDict
}

var _ Interpreter = new(Starlark)

func NewStarlark(tools *Tools) *Starlark {
	s := &Starlark{
		tools:  tools,
		figure: new(Figure),
	}
	s.builtins = s.makeBuiltins()
	s.globals = make(starlark.StringDict, len(s.builtins))
	maps.Copy(s.globals, s.builtins)
	return s
}

func (s *Starlark) Dialect() Dialect {
	return starlarkDialect
}

// Split returns the source lines of each top-level statement.
// Statements sharing a line are kept together.
func (s *Starlark) Split(code string) ([]string, error) {
	code = strings.TrimLeft(code, "\n")
	f, err := starlarkOptions.Parse("<action>", code, 0)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(code, "\n")

	type span struct {
		start, end int
	}
	var spans []span
	for _, stmt := range f.Stmts {
		start, end := stmt.Span()
		startLine, endLine := int(start.Line), int(end.Line)
		if endLine < startLine {
			endLine = startLine
		}
		if n := len(spans); n > 0 && spans[n-1].end >= startLine {
			spans[n-1].end = max(spans[n-1].end, endLine)
			continue
		}
		spans = append(spans, span{startLine, endLine})
	}

	ret := make([]string, 0, len(spans))
	for _, sp := range spans {
		end := min(sp.end, len(lines))
		chunk := strings.TrimRight(strings.Join(lines[sp.start-1:end], "\n"), " \t\r\n")
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		ret = append(ret, chunk)
	}
	return ret, nil
}

func (s *Starlark) Exec(ctx context.Context, stmt string, out io.Writer) error {
	f, err := starlarkOptions.Parse("<stmt>", stmt, 0)
	if err != nil {
		return err
	}

	thread := &starlark.Thread{
		Name: "action",
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(out, msg)
		},
	}
	thread.SetLocal("context", ctx)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	err = starlark.ExecREPLChunk(f, thread, s.globals)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}

func (s *Starlark) Names() []string {
	var ret []string
	for name, value := range s.globals {
		if builtin, ok := s.builtins[name]; ok && builtin == value {
			continue
		}
		ret = append(ret, name)
	}
	slices.Sort(ret)
	return ret
}

func (s *Starlark) Export(name string) (any, bool) {
	if builtin, ok := s.builtins[name]; ok && builtin == s.globals[name] {
		return nil, false
	}
	value, ok := s.globals[name]
	if !ok {
		return nil, false
	}
	// plain data is converted, functions and other starlark objects are returned as is
	if v, err := debugs.FromStarlarkValue(value); err == nil {
		return v, true
	}
	return value, true
}

func threadContext(thread *starlark.Thread) context.Context {
	if ctx, ok := thread.Local("context").(context.Context); ok {
		return ctx
	}
	return context.Background()
}
