package sandboxes

import "strings"

type Kind uint8

const (
	Success Kind = iota
	Fault
	Timeout
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Fault:
		return "fault"
	case Timeout:
		return "timeout"
	}
	return "unknown"
}

// Result is the outcome of one statement.
type Result struct {
	Kind   Kind
	Stmt   string
	Output string
	Err    error
}

// Report is the outcome of one code block.
type Report struct {
	// text fed back to the oracle
	Observation string
	// framed code log chunk, failed statement commented out
	Code    string
	Results []Result
	Plots   []string
	// set when the block could not be split into statements
	ParseError error
}

func (r Report) Failed() bool {
	if r.ParseError != nil {
		return true
	}
	for _, result := range r.Results {
		if result.Kind != Success {
			return true
		}
	}
	return false
}

// Output concatenates the captured output of every statement.
func (r Report) Output() string {
	var b strings.Builder
	for _, result := range r.Results {
		b.WriteString(result.Output)
	}
	return b.String()
}
