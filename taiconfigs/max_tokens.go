package taiconfigs

import (
	"github.com/reusee/taiplan/cmds"
	"github.com/reusee/taiplan/configs"
	"github.com/reusee/taiplan/vars"
)

// MaxDialogTokens bounds the dialog sent to the oracle. Zero means unbounded.
type MaxDialogTokens int

var _ configs.Configurable = MaxDialogTokens(0)

func (MaxDialogTokens) ConfigKey() string {
	return "max_context_tokens"
}

var maxTokensFlag = cmds.VarDesc[int]("-max-tokens", "max tokens of the dialog sent to the model")

func (Module) MaxDialogTokens(
	loader configs.Loader,
) MaxDialogTokens {
	configured, _ := configs.Lookup[MaxDialogTokens](loader)
	n := vars.FirstNonZero(
		MaxDialogTokens(*maxTokensFlag),
		configured,
		configs.First[MaxDialogTokens](loader, "max_tokens"),
	)
	return max(n, 0)
}
