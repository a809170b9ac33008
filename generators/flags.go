package generators

import "github.com/reusee/taiplan/cmds"

var (
	debugGenerate = cmds.SwitchDesc("-debug-generate", "log every streamed model response")
)

const (
	ColorReset   = "\033[0m"
	ColorUser    = "\033[32m"
	ColorTool    = "\033[33m"
	ColorSystem  = "\033[35m"
	ColorLog     = "\033[90m"
	ColorThought = "\033[36m"
)
