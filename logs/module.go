package logs

import (
	"io"
	"os"

	"github.com/reusee/dscope"
	"github.com/reusee/taiplan/cmds"
)

type Module struct {
	dscope.Module
}

// Writer receives local log output. The live transcript owns stdout, so logs default to stderr.
type Writer io.Writer

var logFileFlag = cmds.VarDesc[string]("-log-file", "append logs to a file instead of stderr")

func (Module) Writer() Writer {
	if *logFileFlag == "" {
		return os.Stderr
	}
	f, err := os.OpenFile(*logFileFlag, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		// unwritable, fall back to stderr
		return os.Stderr
	}
	return f
}
