package traces

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/taiplan/modes"
	"github.com/reusee/taiplan/oracles"
)

func TestRecorderSave(t *testing.T) {
	root := t.TempDir()
	dscope.New(
		new(Module),
		modes.ForTest(t),
	).Call(func(
		newRecorder NewRecorder,
	) {
		recorder := newRecorder(root)

		var dialog oracles.Dialog
		dialog.System = "be brief"
		dialog = dialog.Append(oracles.RoleEngine, "what is 2+2?")
		dialog = dialog.Append(oracles.RoleOracle, `{"strategy": "do"}`)
		trace := New(dialog, nil)
		trace.Sayf("Strategy: %s\n", "do")
		trace.Code.WriteString("print(2 + 2)\n")

		dir, err := recorder.Save("run", trace, ".star", map[string]any{
			"answer": 4,
			"bad":    func() {},
		})
		if err != nil {
			t.Fatal(err)
		}
		if dir != filepath.Join(root, "run") {
			t.Fatalf("got %s", dir)
		}

		read := func(name string) string {
			content, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				t.Fatal(err)
			}
			return string(content)
		}

		if got := read("run-trace.txt"); got != "Strategy: do\n" {
			t.Fatalf("got %q", got)
		}
		long := read("run-trace-long.txt")
		want := SystemHeader + "\n\nbe brief\n\n" +
			EngineHeader + "\nwhat is 2+2?\n" +
			OracleHeader + "\n{\"strategy\": \"do\"}\n"
		if long != want {
			t.Fatalf("got %q", long)
		}
		if got := read("run.star"); got != "print(2 + 2)\n" {
			t.Fatalf("got %q", got)
		}
		if got := read("run-artifacts.yaml"); got != "answer: 4\n" {
			t.Fatalf("got %q", got)
		}
		if _, err := os.Stat(filepath.Join(dir, "run-files.yaml")); !os.IsNotExist(err) {
			t.Fatalf("got %v", err)
		}

		// saving again replaces
		trace.Say("done\n")
		trace.AddPlots("plot_1.svg")
		trace.AddArtifacts("answer", "answer")
		if _, err := recorder.Save("run", trace, ".star", nil); err != nil {
			t.Fatal(err)
		}
		if got := read("run-files.yaml"); got != "plots:\n    - plot_1.svg\nartifacts:\n    - answer\n" {
			t.Fatalf("got %q", got)
		}
		if got := read("run-trace.txt"); !strings.HasSuffix(got, "done\n") {
			t.Fatalf("got %q", got)
		}
	})
}

func TestTraceSay(t *testing.T) {
	var live strings.Builder
	trace := New(oracles.Dialog{}, &live)
	trace.Say("100%")
	trace.Quiet("hidden")
	trace.Sayf(" %d%%", 50)
	if trace.Human.String() != "100%hidden 50%" {
		t.Fatalf("got %q", trace.Human.String())
	}
	if live.String() != "100% 50%" {
		t.Fatalf("got %q", live.String())
	}
	trace.AddPlots("a.svg", "a.svg", "b.svg")
	if len(trace.Plots) != 2 {
		t.Fatalf("got %v", trace.Plots)
	}
}
