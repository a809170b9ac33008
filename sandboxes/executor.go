package sandboxes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/reusee/taiplan/logs"
)

const (
	ExecuteIntro  = "I'll now execute the actions (code) you suggested...\n\n"
	EnvStart      = "---------- START PYTHON ENVIRONMENT ----------\n"
	EnvEnd        = "----------- END PYTHON ENVIRONMENT -----------\n\n"
	codeSeparator = "----------"
)

// Executor runs code blocks statement by statement.
// Statement and plot numbering continue across runs.
type Executor struct {
	Timeout time.Duration
	// optional, receives the framing and statement output as it happens
	Live   io.Writer
	Logger logs.Logger

	inputs int
	plots  int
}

func NewExecutor(timeout time.Duration, live io.Writer, logger logs.Logger) *Executor {
	return &Executor{
		Timeout: timeout,
		Live:    live,
		Logger:  logger,
		inputs:  1,
	}
}

// Reset restarts statement numbering. Plot numbering is kept so plot files are never overwritten.
func (e *Executor) Reset() {
	e.inputs = 1
}

func (e *Executor) Run(ctx context.Context, interp Interpreter, code string) (report Report) {
	if e.inputs < 1 {
		e.inputs = 1
	}
	dialect := interp.Dialect()

	var obs strings.Builder
	live := e.Live
	if live == nil {
		live = io.Discard
	}
	emit := func(s string) {
		obs.WriteString(s)
		io.WriteString(live, s)
	}

	obs.WriteString(ExecuteIntro)
	emit(EnvStart + "\n")

	stmts, err := interp.Split(code)
	if err != nil {
		report.ParseError = err
		emit(fmt.Sprintf(
			"Error: Can't even parse the generated commands:\n----------\n%s\n----------\nError: %v\n",
			code, err,
		))
		emit(EnvEnd)
		report.Observation = obs.String()
		return report
	}

	var record strings.Builder
	for _, stmt := range stmts {
		if strings.Contains(stmt, dialect.ShowCall) {
			e.plots++
			file := fmt.Sprintf("plot%d.svg", e.plots)
			stmt = strings.ReplaceAll(stmt, dialect.ShowCall, dialect.saveCall(file))
			report.Plots = append(report.Plots, file)
		}

		emit(fmt.Sprintf("In [%d]: %s\n", e.inputs, stmt))
		e.inputs++

		result := e.exec(ctx, interp, stmt, live)
		report.Results = append(report.Results, result)
		obs.WriteString(result.Output)

		switch result.Kind {
		case Success:
			record.WriteString(stmt + "\n")
		case Timeout:
			emit(fmt.Sprintf(
				"Error: Timeout!! The code took more than the max %d secs (infinite loop)? Aborting execution...\n",
				int(e.Timeout/time.Second),
			))
			record.WriteString(commentOut(dialect, "TimeOut", stmt))
		case Fault:
			msg := fmt.Sprintf("Error: %v\n", result.Err)
			if bt := backtrace(result.Err); bt != "" {
				msg += "Traceback:\n" + bt + "\n"
			}
			emit(msg)
			record.WriteString(commentOut(dialect, firstLine(result.Err.Error()), stmt))
		}
		emit("\n")

		if result.Kind != Success {
			if e.Logger != nil {
				e.Logger.InfoContext(ctx, "statement failed",
					"kind", result.Kind,
					"error", result.Err,
				)
			}
			break
		}
	}

	emit(EnvEnd)
	report.Observation = obs.String()
	sep := dialect.Comment + codeSeparator
	report.Code = "\n" + sep + "\n" + record.String() + "\n" + sep + "\n"
	return report
}

func (e *Executor) exec(ctx context.Context, interp Interpreter, stmt string, live io.Writer) Result {
	stmtCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		stmtCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	var out strings.Builder
	err := interp.Exec(stmtCtx, stmt, io.MultiWriter(&out, live))
	result := Result{
		Stmt:   stmt,
		Output: out.String(),
		Err:    err,
	}
	switch {
	case err == nil:
		result.Kind = Success
	case errors.Is(stmtCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		result.Kind = Timeout
	default:
		result.Kind = Fault
	}
	return result
}

func commentOut(dialect Dialect, reason string, stmt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sThe below command failed to execute (raised a %s exception)\n", dialect.Comment, reason)
	for line := range strings.SplitSeq(stmt, "\n") {
		b.WriteString(dialect.Comment + line + "\n")
	}
	return b.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func backtrace(err error) string {
	var bt interface {
		Backtrace() string
	}
	if errors.As(err, &bt) {
		return strings.TrimRight(bt.Backtrace(), "\n")
	}
	return ""
}
