package sandboxes

import (
	"context"
	"go/scanner"
	"go/token"
	"io"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

var yaegiDialect = Dialect{
	Language:  LanguageGo,
	Extension: ".go",
	Comment:   "// ",
	ShowCall:  "plt.Show()",
	SaveCall:  "plt.SaveFig(%q)",
	Builtins:  `The Go standard library, plus these packages, already imported:
- tools.SaveArtifact(name string, value any) error: save a value as <name>.yaml among the run artifacts
- tools.ReadFile(path string) (string, error), text files only
- tools.WriteFile(path, text string) error
- tools.Glob(pattern string) ([]string, error), ** matches any depth
- tools.ReadPDF(path string) (string, error)
- tools.Shell(command string) (tools.ShellResult, error), with fields Stdout, Stderr and ExitCode
- plt.Plot(xs, ys []float64) error, plt.PlotLabel(xs, ys []float64, label string) error
- plt.Title(s), plt.XLabel(s), plt.YLabel(s), plt.SaveFig(name string) error, plt.Show()
Write plain statements; they run at the top level without a main function.
`,
}

// Yaegi runs Go statements in a persistent interpreter.
// The packages plt and tools are imported before the first statement.
type Yaegi struct {
	interp *interp.Interpreter
	out    *switchWriter
	tools  *Tools
	figure *Figure
	ctx    context.Context
}

var _ Interpreter = new(Yaegi)

func NewYaegi(tools *Tools) (*Yaegi, error) {
	out := &switchWriter{
		w: io.Discard,
	}
	y := &Yaegi{
		out:    out,
		tools:  tools,
		figure: new(Figure),
		ctx:    context.Background(),
	}
	y.interp = interp.New(interp.Options{
		Stdout: out,
		Stderr: out,
	})
	if err := y.interp.Use(stdlib.Symbols); err != nil {
		return nil, err
	}
	if err := y.interp.Use(y.exports()); err != nil {
		return nil, err
	}
	if _, err := y.interp.Eval(`import ("plt"; "tools")`); err != nil {
		return nil, err
	}
	return y, nil
}

func (y *Yaegi) exports() interp.Exports {
	return interp.Exports{
		"plt/plt": {
			"Plot": reflect.ValueOf(func(xs, ys []float64) error {
				return y.figure.Plot(xs, ys, "")
			}),
			"PlotLabel": reflect.ValueOf(func(xs, ys []float64, label string) error {
				return y.figure.Plot(xs, ys, label)
			}),
			"Title": reflect.ValueOf(func(s string) {
				y.figure.Title = s
			}),
			"XLabel": reflect.ValueOf(func(s string) {
				y.figure.XLabel = s
			}),
			"YLabel": reflect.ValueOf(func(s string) {
				y.figure.YLabel = s
			}),
			"SaveFig": reflect.ValueOf(func(name string) error {
				if err := y.tools.savePlot(name, y.figure.SVG()); err != nil {
					return err
				}
				y.figure.Reset()
				return nil
			}),
			"Show": reflect.ValueOf(func() {
				y.figure.Reset()
			}),
		},
		"tools/tools": {
			"SaveArtifact": reflect.ValueOf(y.tools.SaveArtifact),
			"ReadFile":     reflect.ValueOf(y.tools.ReadFile),
			"WriteFile":    reflect.ValueOf(y.tools.WriteFile),
			"Glob":         reflect.ValueOf(y.tools.Glob),
			"ReadPDF":      reflect.ValueOf(y.tools.ReadPDF),
			"Shell": reflect.ValueOf(func(command string) (ShellResult, error) {
				return y.tools.Shell(y.ctx, command)
			}),
			"ShellResult": reflect.ValueOf((*ShellResult)(nil)),
		},
	}
}

func (y *Yaegi) Dialect() Dialect {
	return yaegiDialect
}

// Split cuts code at statement-ending semicolons, explicit or inserted at newlines, outside brackets and control clauses.
func (y *Yaegi) Split(code string) ([]string, error) {
	src := []byte(code)
	fset := token.NewFileSet()
	file := fset.AddFile("action.go", -1, len(src))
	var errs scanner.ErrorList
	var s scanner.Scanner
	s.Init(file, src, func(pos token.Position, msg string) {
		errs.Add(pos, msg)
	}, 0)

	var ret []string
	add := func(stmt string) {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			ret = append(ret, stmt)
		}
	}

	depth := 0
	start := 0
	header := false
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		switch tok {
		case token.FOR, token.IF, token.SWITCH, token.SELECT:
			if depth == 0 {
				header = true
			}
		case token.LBRACE:
			if depth == 0 {
				header = false
			}
			depth++
		case token.LPAREN, token.LBRACK:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
		case token.SEMICOLON:
			if depth != 0 || header {
				continue
			}
			offset := file.Offset(pos)
			add(code[start:min(offset, len(code))])
			start = min(offset+len(lit), len(code))
			if lit == "\n" {
				start = min(offset+1, len(code))
			}
		}
	}
	if errs.Len() > 0 {
		return nil, errs.Err()
	}
	if depth != 0 {
		return nil, scanner.Error{
			Pos: fset.Position(file.Pos(len(src))),
			Msg: "unbalanced brackets",
		}
	}
	add(code[start:])
	return ret, nil
}

func (y *Yaegi) Exec(ctx context.Context, stmt string, out io.Writer) error {
	y.ctx = ctx
	y.out.set(out)
	defer func() {
		y.out.set(io.Discard)
		y.ctx = context.Background()
	}()
	_, err := y.interp.EvalWithContext(ctx, stmt)
	return err
}

func (y *Yaegi) Names() []string {
	var ret []string
	for name := range y.interp.Globals() {
		ret = append(ret, name)
	}
	slices.Sort(ret)
	return ret
}

func (y *Yaegi) Export(name string) (any, bool) {
	value, ok := y.interp.Globals()[name]
	if !ok || !value.IsValid() || !value.CanInterface() {
		return nil, false
	}
	return value.Interface(), true
}

// switchWriter lets one interpreter-wide stdout follow the current statement.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
