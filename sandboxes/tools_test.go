package sandboxes

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestStarlarkTools(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	tools := NewTools(filepath.Join(dir, "artifacts"))
	interp := NewStarlark(tools)
	executor := NewExecutor(time.Minute, nil, nil)

	t.Run("files", func(t *testing.T) {
		report := executor.Run(t.Context(), interp, `write_file("data/a.txt", "hello")
write_file("data/b.txt", "world")
print(glob("data/*.txt"))
print(read_file("data/a.txt"))
`)
		if report.Failed() {
			t.Fatalf("got %q", report.Observation)
		}
		if report.Output() != "[\"data/a.txt\", \"data/b.txt\"]\nhello\n" {
			t.Fatalf("got %q", report.Output())
		}
	})

	t.Run("save artifact", func(t *testing.T) {
		report := executor.Run(t.Context(), interp, `save_artifact("scores", {"alice": 3, "bob": [1, 2]})`)
		if report.Failed() {
			t.Fatalf("got %q", report.Observation)
		}
		content, err := os.ReadFile(filepath.Join(dir, "artifacts", "scores.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if string(content) != "alice: 3\nbob:\n    - 1\n    - 2\n" {
			t.Fatalf("got %q", content)
		}
		if !slices.Equal(tools.Artifacts(), []string{"scores"}) {
			t.Fatalf("got %v", tools.Artifacts())
		}
	})

	t.Run("shell", func(t *testing.T) {
		report := executor.Run(t.Context(), interp, `r = shell("echo hi; exit 3")
print(r["stdout"], r["exit_code"])
`)
		if report.Failed() {
			t.Fatalf("got %q", report.Observation)
		}
		if report.Output() != "hi\n 3\n" {
			t.Fatalf("got %q", report.Output())
		}
	})

	t.Run("json", func(t *testing.T) {
		report := executor.Run(t.Context(), interp, `print(json.decode('{"a": 1}')["a"] + 1)`)
		if report.Output() != "2\n" {
			t.Fatalf("got %q", report.Observation)
		}
	})
}

func TestReadFileRejectsBinary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob")
	if err := os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0x03, 0x00, 0x10, 0x00}, 0644); err != nil {
		t.Fatal(err)
	}
	_, err := NewTools(dir).ReadFile(path)
	if !errors.Is(err, ErrBinaryContent) {
		t.Fatalf("got %v", err)
	}
}

func TestArtifactNames(t *testing.T) {
	tools := NewTools(t.TempDir())
	for _, name := range []string{"", ".", "..", "..yaml", ".yaml", "/", "a/.."} {
		if err := tools.SaveArtifact(name, 1); err == nil {
			t.Fatalf("%q should fail", name)
		}
	}
	if err := tools.SaveArtifact("../escape", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(tools.Dir, "escape.yaml")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(tools.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %v", entries)
	}
	if got := tools.Artifacts(); len(got) != 1 || got[0] != "escape" {
		t.Fatalf("got %v", got)
	}
}

func TestFigureSVG(t *testing.T) {
	var fig Figure
	if err := fig.Plot([]float64{1, 2}, []float64{1}, ""); err == nil {
		t.Fatal("should fail")
	}
	if err := fig.Plot([]float64{3, 1, 2}, nil, "a<b"); err != nil {
		t.Fatal(err)
	}
	fig.XLabel = "step"
	svg := string(fig.SVG())
	if !strings.Contains(svg, "<polyline") || !strings.Contains(svg, "a&lt;b") || !strings.Contains(svg, ">step<") {
		t.Fatalf("got %s", svg)
	}
	fig.Reset()
	if len(fig.Series) != 0 {
		t.Fatal("should reset")
	}
}
