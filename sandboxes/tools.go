package sandboxes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"gopkg.in/yaml.v3"
)

var ErrBinaryContent = errors.New("binary content")

// Tools are the host functions action code may call, shared by every interpreter.
// Relative file paths resolve against the process working directory.
// Artifacts and plots are written under Dir.
type Tools struct {
	Dir string

	mu        sync.Mutex
	artifacts []string
	plots     []string
}

func NewTools(dir string) *Tools {
	return &Tools{
		Dir: dir,
	}
}

func (t *Tools) Artifacts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.artifacts)
}

func (t *Tools) Plots() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.plots)
}

// artifactName strips directories and ext from name.
func artifactName(name string, ext string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(name), ext)
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return "", fmt.Errorf("bad artifact name: %q", name)
	}
	return base, nil
}

func (t *Tools) artifactPath(file string) (string, error) {
	if err := os.MkdirAll(t.Dir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(t.Dir, file), nil
}

// SaveArtifact writes value as <name>.yaml in Dir.
func (t *Tools) SaveArtifact(name string, value any) error {
	name, err := artifactName(name, ".yaml")
	if err != nil {
		return err
	}
	path, err := t.artifactPath(name + ".yaml")
	if err != nil {
		return err
	}
	content, err := marshalYAML(value)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return err
	}
	t.mu.Lock()
	if !slices.Contains(t.artifacts, name) {
		t.artifacts = append(t.artifacts, name)
	}
	t.mu.Unlock()
	return nil
}

func (t *Tools) savePlot(name string, content []byte) error {
	name, err := artifactName(name, "")
	if err != nil {
		return err
	}
	path, err := t.artifactPath(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return err
	}
	t.mu.Lock()
	if !slices.Contains(t.plots, name) {
		t.plots = append(t.plots, name)
	}
	t.mu.Unlock()
	return nil
}

func (t *Tools) ReadFile(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	if !isText(mtype) {
		return "", fmt.Errorf("%s: %w (%s)", path, ErrBinaryContent, mtype.String())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func isText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func (t *Tools) WriteFile(path string, text string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(text), 0644)
}

func (t *Tools) Glob(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, err
	}
	slices.Sort(matches)
	return matches, nil
}

func (t *Tools) ReadPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	text, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type ShellResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Shell runs command with /bin/sh. A non-zero exit is reported in the result, not as an error.
func (t *Tools) Shell(ctx context.Context, command string) (ret ShellResult, err error) {
	if command == "" {
		return ret, fmt.Errorf("command is required")
	}
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err = cmd.Run()
	ret.Stdout = stdout.String()
	ret.Stderr = stderr.String()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return ret, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ret, ctxErr
		}
		ret.ExitCode = exitErr.ExitCode()
	}
	return ret, nil
}

func marshalYAML(v any) (content []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cannot save %T: %v", v, p)
		}
	}()
	return yaml.Marshal(v)
}
