package agents

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reusee/taiplan/logs"
	"github.com/reusee/taiplan/oracles"
	"github.com/reusee/taiplan/prompts"
	"github.com/reusee/taiplan/sandboxes"
	"github.com/reusee/taiplan/storages"
	"github.com/reusee/taiplan/taiconfigs"
	"github.com/reusee/taiplan/traces"
)

var ErrInvariant = errors.New("internal invariant violated")

const dashes = "----------------------------------------"

// Session is the mutable state of one run. Sessions share nothing, so several may run concurrently.
// A Session itself must be driven by one goroutine.
type Session struct {
	ID       string
	Stem     string
	Task     string
	Settings taiconfigs.Settings
	Policy   Policy
	Counters Counters
	// oracle-driven dispatches of the current task
	Iteration int
	// text for the next prompt, cleared when the prompt is sent
	Observations string
	Started      time.Time
	// by model
	Usage map[string]oracles.Usage

	Interpreter sandboxes.Interpreter
	Executor    *sandboxes.Executor
	Tools       *sandboxes.Tools
	Trace       *traces.Trace

	// optional, records every finished task
	Ledger *storages.Ledger

	oracle   oracles.Oracle
	recorder traces.Recorder
	logger   logs.Logger
	newSpan  logs.NewSpan
	live     io.Writer
	advice   string
	baseStem string
	tasks    int
}

type NewSession func(oracle oracles.Oracle) (*Session, error)

func (Module) NewSession(
	settings taiconfigs.Settings,
	newRecorder traces.NewRecorder,
	logger logs.Logger,
	newSpan logs.NewSpan,
	live oracles.LiveWriter,
	confine sandboxes.Confine,
) NewSession {
	return func(oracle oracles.Oracle) (*Session, error) {
		if settings.Safe {
			if err := confine(settings.OutputDir); err != nil {
				return nil, fmt.Errorf("confine: %w", err)
			}
		}

		var advice string
		if settings.AdviceFile != "" {
			content, err := os.ReadFile(settings.AdviceFile)
			if err != nil {
				return nil, fmt.Errorf("read advice: %w", err)
			}
			advice = strings.TrimSpace(string(content))
		}

		id := uuid.NewString()
		stem := fmt.Sprintf("task-%s-%s", time.Now().Format("20060102-150405"), id[:8])
		recorder := newRecorder(settings.OutputDir)
		tools := sandboxes.NewTools(recorder.ArtifactsDir(stem))
		interp, err := sandboxes.New(settings.Language, tools)
		if err != nil {
			return nil, err
		}

		s := &Session{
			ID:       id,
			Stem:     stem,
			Settings: settings,
			Policy: Policy{
				MaxRetries:            settings.MaxRetries,
				MaxEarlierStepRetries: settings.MaxEarlierStepRetries,
			},
			Usage:       make(map[string]oracles.Usage),
			Interpreter: interp,
			Executor:    sandboxes.NewExecutor(settings.ExecTimeout, live, logger),
			Tools:       tools,
			oracle:      oracle,
			recorder:    recorder,
			logger:      logger,
			newSpan:     newSpan,
			live:        live,
			advice:      advice,
			baseStem:    stem,
		}
		return s, nil
	}
}

const nextTaskBanner = dashes + "\n     STARTING THE NEXT TASK\n" + dashes + "\n"

// begin readies the session for a new top-level task.
// keep carries the namespace and dialog over regardless of the reset settings.
func (s *Session) begin(task string, keep bool) error {
	s.tasks++
	s.Task = task
	if !keep {
		// tasks of an interactive session share one iteration budget
		s.Iteration = 0
	}
	s.Counters = Counters{}
	s.Observations = ""
	s.Started = time.Now()
	s.Usage = make(map[string]oracles.Usage)

	if s.Trace == nil {
		s.Trace = traces.New(s.newDialog(task), s.live)
		return nil
	}

	s.Stem = fmt.Sprintf("%s-%d", s.baseStem, s.tasks)
	resetNamespace := s.Settings.ResetNamespace && !keep
	resetDialog := s.Settings.ResetDialog && !keep

	code := s.Trace.Code.String()
	if resetNamespace {
		tools := sandboxes.NewTools(s.recorder.ArtifactsDir(s.Stem))
		interp, err := sandboxes.New(s.Settings.Language, tools)
		if err != nil {
			return err
		}
		s.Tools = tools
		s.Interpreter = interp
		s.Executor.Reset()
		code = ""
	} else {
		s.Tools.Dir = s.recorder.ArtifactsDir(s.Stem)
	}

	dialog := s.Trace.Dialog
	if resetDialog {
		dialog = s.newDialog(task)
	} else {
		s.Observations = nextTaskBanner
	}
	s.Trace = traces.New(dialog, s.live)
	s.Trace.Code.WriteString(code)
	return nil
}

func (s *Session) newDialog(task string) oracles.Dialog {
	dialect := s.Interpreter.Dialect()
	return oracles.Dialog{
		System: prompts.System(dialect.Language, dialect.Builtins, s.Settings.AllowShortcuts) +
			prompts.Intro(task, ""),
	}
}

func (s *Session) observe(text string) {
	s.Observations += text
}

func (s *Session) addUsage(usage oracles.Usage) {
	if usage.Model == "" && usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		return
	}
	u := s.Usage[usage.Model]
	u.Model = usage.Model
	u.PromptTokens += usage.PromptTokens
	u.CompletionTokens += usage.CompletionTokens
	s.Usage[usage.Model] = u
}

// TotalUsage sums token usage over every model.
func (s *Session) TotalUsage() (ret oracles.Usage) {
	for _, u := range s.Usage {
		ret.PromptTokens += u.PromptTokens
		ret.CompletionTokens += u.CompletionTokens
		if ret.Model == "" {
			ret.Model = u.Model
		} else if ret.Model != u.Model {
			ret.Model = "mixed"
		}
	}
	return
}

// Namespace exports every user-defined name of the interpreter.
func (s *Session) Namespace() map[string]any {
	ret := make(map[string]any)
	for _, name := range s.Interpreter.Names() {
		if v, ok := s.Interpreter.Export(name); ok {
			ret[name] = v
		}
	}
	return ret
}

// Flush writes the trace of the current task and returns its directory.
func (s *Session) Flush() (string, error) {
	if s.Trace == nil {
		return "", fmt.Errorf("%w: flush before any task", ErrInvariant)
	}
	return s.recorder.Save(
		s.Stem,
		s.Trace,
		s.Interpreter.Dialect().Extension,
		s.Namespace(),
	)
}
