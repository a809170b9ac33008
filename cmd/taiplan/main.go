package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/reusee/dscope"
	"github.com/reusee/taiplan/agents"
	"github.com/reusee/taiplan/cmds"
	"github.com/reusee/taiplan/debugs"
	"github.com/reusee/taiplan/generators"
	"github.com/reusee/taiplan/logs"
	"github.com/reusee/taiplan/modes"
	"github.com/reusee/taiplan/oracles"
	"github.com/reusee/taiplan/storages"
	"github.com/reusee/taiplan/taiconfigs"
	"github.com/reusee/taiplan/vars"
)

const (
	exitDone    = 0
	exitFailure = 1
	exitAbort   = 2
)

var (
	replayFlag = cmds.VarDesc[string]("-replay", "answer oracle requests from a JSONL script")
	recordFlag = cmds.VarDesc[string]("-record", "append oracle replies to a JSONL file")
	tapFlag    = cmds.SwitchDesc("-tap", "open a REPL over the namespace after the run")
	jobsFlag   = cmds.VarDesc[int]("-jobs", "concurrent sessions of batch")
	stepsFlag  = cmds.Collect[string]("step")
)

type command func(a *app, ctx context.Context) int

var selected command

func selectCommand(cmd command) error {
	if selected != nil {
		return errors.New("only one of task, plan, interactive, batch and history may be given")
	}
	selected = cmd
	return nil
}

func init() {
	cmds.Define("task", cmds.Func(func(task string) error {
		return selectCommand(func(a *app, ctx context.Context) int {
			return a.runOne(ctx, func(session *agents.Session) (agents.Outcome, error) {
				return session.RunTask(ctx, task)
			})
		})
	}).Desc(`run a task: task "..."`))

	cmds.Define("plan", cmds.Func(func(task string) error {
		return selectCommand(func(a *app, ctx context.Context) int {
			steps := *stepsFlag
			if len(steps) == 0 {
				fmt.Fprintln(os.Stderr, `plan needs at least one step: plan "task" step "..." step "..."`)
				return exitFailure
			}
			return a.runOne(ctx, func(session *agents.Session) (agents.Outcome, error) {
				return session.RunPlan(ctx, task, steps...)
			})
		})
	}).Desc(`carry out a plan: plan "task" step "..." step "..."`))

	cmds.Define("interactive", cmds.Func(func() error {
		return selectCommand((*app).interactive)
	}).Desc("read tasks from the terminal"))

	cmds.Define("batch", cmds.Func(func(file string) error {
		return selectCommand(func(a *app, ctx context.Context) int {
			return a.batch(ctx, file)
		})
	}).Desc("run every line of FILE as a task"))

	cmds.Define("history", cmds.Func(func() error {
		return selectCommand((*app).history)
	}).Desc("list recent runs of the ledger"))
}

type app struct {
	settings     taiconfigs.Settings
	newSession   agents.NewSession
	runBatch     agents.RunBatch
	getGenerator generators.GetDefaultGenerator
	newOracle    oracles.NewGeneratorOracle
	tap          debugs.Tap
	logger       logs.Logger

	// shared by every oracle of the process
	record *oracles.RecordSink
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cmds.Execute(os.Args[1:])
	if selected == nil {
		cmds.GlobalExecutor.PrintUsage(os.Stderr)
		os.Exit(exitFailure)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)

	scope := dscope.New(
		new(agents.Module),
		modes.ForProduction(),
	).Fork(
		func() oracles.LiveWriter {
			return os.Stdout
		},
	)

	code := exitFailure
	scope.Call(func(
		settings taiconfigs.Settings,
		newSession agents.NewSession,
		runBatch agents.RunBatch,
		getGenerator generators.GetDefaultGenerator,
		newOracle oracles.NewGeneratorOracle,
		tap debugs.Tap,
		logger logs.Logger,
	) {
		a := &app{
			settings:     settings,
			newSession:   newSession,
			runBatch:     runBatch,
			getGenerator: getGenerator,
			newOracle:    newOracle,
			tap:          tap,
			logger:       logger,
		}
		if *recordFlag != "" {
			f, err := os.OpenFile(*recordFlag, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
			if err != nil {
				fmt.Fprintf(os.Stderr, "open record file: %v\n", err)
				return
			}
			defer f.Close()
			a.record = oracles.NewRecordSink(f)
		}
		code = selected(a, ctx)
	})

	cancel()
	os.Exit(code)
}

func (a *app) oracle(task string) (oracles.Oracle, error) {
	var ret oracles.Oracle
	if *replayFlag != "" {
		f, err := os.Open(*replayFlag)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		scripted, err := oracles.LoadScript(f)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", *replayFlag, err)
		}
		ret = scripted
	} else {
		generator, err := a.getGenerator()
		if err != nil {
			return nil, err
		}
		a.logger.Info("oracle",
			"model", generator.Args().Model,
			"task", task,
		)
		ret = a.newOracle(generator, a.settings.MaxDialogTokens)
	}
	if a.record != nil {
		ret = oracles.NewRecording(ret, a.record)
	}
	return ret, nil
}

func (a *app) ledger(ctx context.Context) (*storages.Ledger, error) {
	if a.settings.Ledger == "" {
		return nil, nil
	}
	return storages.OpenLedger(ctx, a.settings.Ledger)
}

func (a *app) session(ctx context.Context, task string) (*agents.Session, func(), error) {
	oracle, err := a.oracle(task)
	if err != nil {
		return nil, nil, err
	}
	session, err := a.newSession(oracle)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := a.ledger(ctx)
	if err != nil {
		return nil, nil, err
	}
	session.Ledger = ledger
	return session, func() {
		if ledger != nil {
			ledger.Close()
		}
	}, nil
}

func (a *app) runOne(ctx context.Context, run func(*agents.Session) (agents.Outcome, error)) int {
	session, done, err := a.session(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer done()

	outcome, err := run(session)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	printOutcome(outcome)

	if *tapFlag {
		a.tap(ctx, "namespace", session.Namespace())
	}

	if outcome.Done() {
		return exitDone
	}
	return exitAbort
}

func printOutcome(outcome agents.Outcome) {
	fmt.Printf("\n%s (%d iterations, %d+%d tokens)\n",
		outcome.Mode,
		outcome.Iterations,
		outcome.Usage.PromptTokens,
		outcome.Usage.CompletionTokens,
	)
	if outcome.OutputDir != "" {
		fmt.Printf("trace saved to %s\n", outcome.OutputDir)
	}
}

func (a *app) interactive(ctx context.Context) int {
	session, done, err := a.session(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer done()

	prompt, closePrompt := agents.LinerPrompter(filepath.Join(a.settings.OutputDir, ".history"))
	err = session.Interactive(ctx, prompt, printOutcome)
	if err := closePrompt(); err != nil {
		a.logger.Warn("close terminal", "error", err)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	if *tapFlag {
		a.tap(ctx, "namespace", session.Namespace())
	}
	return exitDone
}

func (a *app) batch(ctx context.Context, file string) int {
	if *replayFlag != "" {
		// a script holds the replies of one session
		fmt.Fprintln(os.Stderr, "-replay cannot be used with batch")
		return exitFailure
	}
	tasks, err := readTasks(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	ledger, err := a.ledger(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	if ledger != nil {
		defer ledger.Close()
	}

	results, err := a.runBatch(ctx, tasks, vars.FirstNonZero(*jobsFlag, 2), a.oracle, ledger)

	code := exitDone
	for _, result := range results {
		switch {
		case result.Err != nil:
			fmt.Printf("%-28s %s: %v\n", "error", result.Task, result.Err)
			code = max(code, exitFailure)
		case result.Outcome.Mode == "":
			fmt.Printf("%-28s %s\n", "not run", result.Task)
			code = max(code, exitFailure)
		default:
			fmt.Printf("%-28s %s\n", result.Outcome.Mode, result.Task)
			if !result.Outcome.Done() {
				code = exitAbort
			}
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	return code
}

func readTasks(file string) (tasks []string, err error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tasks = append(tasks, line)
	}
	return tasks, scanner.Err()
}

func (a *app) history(ctx context.Context) int {
	ledger, err := a.ledger(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	if ledger == nil {
		fmt.Fprintln(os.Stderr, "no ledger configured, use -ledger FILE")
		return exitFailure
	}
	defer ledger.Close()

	runs, err := ledger.Recent(ctx, 20)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tOUTCOME\tITERATIONS\tDURATION\tTASK")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			run.Started.Format(time.DateTime),
			run.Outcome,
			run.Iterations,
			run.Finished.Sub(run.Started).Round(time.Second),
			run.Task,
		)
	}
	if err := w.Flush(); err != nil {
		return exitFailure
	}
	return exitDone
}
