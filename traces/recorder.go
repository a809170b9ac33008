package traces

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/reusee/taiplan/logs"
	"github.com/reusee/taiplan/oracles"
	"gopkg.in/yaml.v3"
)

const (
	SystemHeader = "============================ SYSTEM PROMPT ==========================="
	EngineHeader = "============================== ENGINE =============================="
	OracleHeader = "=============================== LLM ================================"
)

// Recorder writes traces under Root, one directory per stem.
type Recorder struct {
	Root   string
	Logger logs.Logger
}

type NewRecorder func(root string) Recorder

func (Module) NewRecorder(
	logger logs.Logger,
) NewRecorder {
	return func(root string) Recorder {
		return Recorder{
			Root:   root,
			Logger: logger,
		}
	}
}

func (r Recorder) Dir(stem string) string {
	return filepath.Join(r.Root, stem)
}

func (r Recorder) ArtifactsDir(stem string) string {
	return filepath.Join(r.Dir(stem), "artifacts")
}

// fileIndex lists what action code wrote under the artifacts dir.
type fileIndex struct {
	Plots     []string `yaml:"plots,omitempty"`
	Artifacts []string `yaml:"artifacts,omitempty"`
}

// Save writes the trace files, replacing earlier saves of the same stem.
// namespace holds plain values; ones yaml cannot encode are skipped.
func (r Recorder) Save(stem string, trace *Trace, codeExt string, namespace map[string]any) (string, error) {
	dir := r.Dir(stem)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	pathStem := filepath.Join(dir, stem)

	if err := os.WriteFile(pathStem+"-trace.txt", []byte(trace.Human.String()), 0644); err != nil {
		return "", err
	}
	if err := os.WriteFile(pathStem+"-trace-long.txt", LongTrace(trace.Dialog), 0644); err != nil {
		return "", err
	}
	if err := os.WriteFile(pathStem+codeExt, []byte(trace.Code.String()), 0644); err != nil {
		return "", err
	}

	if len(namespace) > 0 {
		values := make(map[string]any, len(namespace))
		for _, name := range slices.Sorted(maps.Keys(namespace)) {
			if _, err := marshal(namespace[name]); err != nil {
				if r.Logger != nil {
					r.Logger.Debug("skip namespace value", "name", name, "error", err)
				}
				continue
			}
			values[name] = namespace[name]
		}
		content, err := yaml.Marshal(values)
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(pathStem+"-artifacts.yaml", content, 0644); err != nil {
			return "", err
		}
	}

	if len(trace.Plots) > 0 || len(trace.Artifacts) > 0 {
		content, err := yaml.Marshal(fileIndex{
			Plots:     trace.Plots,
			Artifacts: trace.Artifacts,
		})
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(pathStem+"-files.yaml", content, 0644); err != nil {
			return "", err
		}
	}

	if r.Logger != nil {
		r.Logger.Info("trace saved", "dir", dir)
	}
	return dir, nil
}

// LongTrace renders the dialog with a header before every turn.
func LongTrace(dialog oracles.Dialog) []byte {
	var b bytes.Buffer
	b.WriteString(SystemHeader + "\n\n")
	b.WriteString(dialog.System + "\n\n")
	for _, turn := range dialog.Turns {
		switch turn.Role {
		case oracles.RoleOracle:
			b.WriteString(OracleHeader + "\n")
		default:
			b.WriteString(EngineHeader + "\n")
		}
		b.WriteString(turn.Text + "\n")
	}
	return b.Bytes()
}

// marshal converts yaml encoder panics on unsupported kinds into errors.
func marshal(v any) (content []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("yaml: %v", p)
		}
	}()
	return yaml.Marshal(v)
}
