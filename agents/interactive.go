package agents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/reusee/taiplan/plans"
)

const NextTaskQuestion = "What is the next task you'd like me to do (or 'q' to quit)?"

// Prompter reads one line of input. io.EOF ends the loop.
type Prompter func(prompt string) (string, error)

// Interactive reads tasks until the user quits. The namespace and dialog carry over between tasks.
// A task prefixed with "task: " is planned first, one prefixed with "action: " is acted on directly.
func (s *Session) Interactive(ctx context.Context, prompt Prompter, onOutcome func(Outcome)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := prompt("\n" + NextTaskQuestion + "\n> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "q" {
			return nil
		}

		mode := ModeStrategize
		task := line
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "task: "):
			mode = ModePlan
			task = strings.TrimSpace(line[len("task: "):])
		case strings.HasPrefix(lower, "action: "):
			mode = ModeAct
			task = strings.TrimSpace(line[len("action: "):])
		}

		root, err := plans.NewInfo(plans.FromTask(task))
		if err != nil {
			return err
		}
		outcome, err := s.start(ctx, task, true, step{
			Mode: mode,
			Info: root,
		})
		if err != nil {
			return err
		}
		if onOutcome != nil {
			onOutcome(outcome)
		}
	}
}

// LinerPrompter reads from the terminal with line editing. History is kept in historyFile when it is not empty.
// done must be called to restore the terminal.
func LinerPrompter(historyFile string) (prompt Prompter, done func() error) {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			state.ReadHistory(f)
			f.Close()
		}
	}
	prompt = func(p string) (string, error) {
		// liner renders single line prompts only
		if i := strings.LastIndex(p, "\n"); i >= 0 {
			fmt.Print(p[:i+1])
			p = p[i+1:]
		}
		line, err := state.Prompt(p)
		if err == nil && strings.TrimSpace(line) != "" {
			state.AppendHistory(line)
		}
		return line, err
	}
	done = func() error {
		if historyFile != "" {
			if err := os.MkdirAll(filepath.Dir(historyFile), 0755); err == nil {
				if f, err := os.Create(historyFile); err == nil {
					state.WriteHistory(f)
					f.Close()
				}
			}
		}
		return state.Close()
	}
	return
}
