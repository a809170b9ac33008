package sandboxes

import (
	"context"
	"fmt"
	"io"
)

// Interpreter holds one persistent namespace that action code runs against.
// Implementations are not safe for concurrent use; a Session drives its interpreter sequentially.
type Interpreter interface {
	Dialect() Dialect
	// Split breaks a code block into top-level statements, in source order.
	Split(code string) ([]string, error)
	// Exec runs one statement. Printed output goes to out.
	// A returned error is a fault of the statement, or ctx.Err() when it was cancelled.
	Exec(ctx context.Context, stmt string, out io.Writer) error
	// Names lists the user-defined names in the namespace, sorted.
	Names() []string
	Export(name string) (any, bool)
}

type Dialect struct {
	Language  string
	Extension string
	// line comment marker, including the trailing space
	Comment  string
	ShowCall string
	// format with a quoted file name
	SaveCall string
	// description of the builtins, shown to the oracle
	Builtins string
}

func (d Dialect) saveCall(file string) string {
	return fmt.Sprintf(d.SaveCall, file)
}

const (
	LanguageStarlark = "starlark"
	LanguageGo       = "go"
)

// New creates an interpreter for language, with tools bound as builtins.
func New(language string, tools *Tools) (Interpreter, error) {
	switch language {
	case LanguageStarlark, "":
		return NewStarlark(tools), nil
	case LanguageGo, "yaegi":
		return NewYaegi(tools)
	}
	return nil, fmt.Errorf("unknown language: %s", language)
}
