package sandboxes

import (
	"fmt"

	"github.com/reusee/taiplan/debugs"
	"go.starlark.net/lib/math"
	"go.starlark.net/lib/json"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

func (s *Starlark) makeBuiltins() starlark.StringDict {
	return starlark.StringDict{
		"save_artifact": starlark.NewBuiltin("save_artifact", s.saveArtifact),
		"read_file":     starlark.NewBuiltin("read_file", s.readFile),
		"write_file":    starlark.NewBuiltin("write_file", s.writeFile),
		"glob":          starlark.NewBuiltin("glob", s.glob),
		"read_pdf":      starlark.NewBuiltin("read_pdf", s.readPDF),
		"shell":         starlark.NewBuiltin("shell", s.shell),
		"struct":        starlark.NewBuiltin("struct", starlarkstruct.Make),
		"json":          json.Module,
		"math":          math.Module,
		"plt": &starlarkstruct.Module{
			Name: "plt",
			Members: starlark.StringDict{
				"plot":    starlark.NewBuiltin("plot", s.plot),
				"title":   s.figureLabel("title", func(f *Figure, v string) { f.Title = v }),
				"xlabel":  s.figureLabel("xlabel", func(f *Figure, v string) { f.XLabel = v }),
				"ylabel":  s.figureLabel("ylabel", func(f *Figure, v string) { f.YLabel = v }),
				"savefig": starlark.NewBuiltin("savefig", s.savefig),
				"show":    starlark.NewBuiltin("show", s.show),
				"clf":     starlark.NewBuiltin("clf", s.show),
			},
		},
	}
}

func (s *Starlark) saveArtifact(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var value starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "value", &value); err != nil {
		return nil, err
	}
	data, err := debugs.FromStarlarkValue(value)
	if err != nil {
		return nil, err
	}
	if err := s.tools.SaveArtifact(name, data); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func (s *Starlark) readFile(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &path); err != nil {
		return nil, err
	}
	content, err := s.tools.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return starlark.String(content), nil
}

func (s *Starlark) writeFile(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path, text string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &path, "text", &text); err != nil {
		return nil, err
	}
	if err := s.tools.WriteFile(path, text); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func (s *Starlark) glob(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var pattern string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pattern", &pattern); err != nil {
		return nil, err
	}
	matches, err := s.tools.Glob(pattern)
	if err != nil {
		return nil, err
	}
	return debugs.ToStarlarkValue(matches), nil
}

func (s *Starlark) readPDF(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &path); err != nil {
		return nil, err
	}
	text, err := s.tools.ReadPDF(path)
	if err != nil {
		return nil, err
	}
	return starlark.String(text), nil
}

func (s *Starlark) shell(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var command string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "command", &command); err != nil {
		return nil, err
	}
	result, err := s.tools.Shell(threadContext(thread), command)
	if err != nil {
		return nil, err
	}
	return debugs.ToStarlarkValue(map[string]any{
		"stdout":    result.Stdout,
		"stderr":    result.Stderr,
		"exit_code": result.ExitCode,
	}), nil
}

func (s *Starlark) plot(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x, y starlark.Value
	var label string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "x", &x, "y?", &y, "label?", &label); err != nil {
		return nil, err
	}
	xs, err := toFloats(x)
	if err != nil {
		return nil, fmt.Errorf("%s: x: %w", b.Name(), err)
	}
	var ys []float64
	if y != nil && y != starlark.None {
		ys, err = toFloats(y)
		if err != nil {
			return nil, fmt.Errorf("%s: y: %w", b.Name(), err)
		}
	}
	if err := s.figure.Plot(xs, ys, label); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func (s *Starlark) figureLabel(name string, set func(*Figure, string)) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var text string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "text", &text); err != nil {
			return nil, err
		}
		set(s.figure, text)
		return starlark.None, nil
	})
}

func (s *Starlark) savefig(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
		return nil, err
	}
	if err := s.tools.savePlot(name, s.figure.SVG()); err != nil {
		return nil, err
	}
	s.figure.Reset()
	return starlark.None, nil
}

func (s *Starlark) show(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	s.figure.Reset()
	return starlark.None, nil
}

func toFloats(v starlark.Value) ([]float64, error) {
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("want a sequence of numbers, got %s", v.Type())
	}
	iter := iterable.Iterate()
	defer iter.Done()
	var ret []float64
	var elem starlark.Value
	for iter.Next(&elem) {
		f, ok := starlark.AsFloat(elem)
		if !ok {
			return nil, fmt.Errorf("want a number, got %s", elem.Type())
		}
		ret = append(ret, f)
	}
	return ret, nil
}
