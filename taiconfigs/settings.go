package taiconfigs

import (
	"time"

	"github.com/reusee/taiplan/cmds"
	"github.com/reusee/taiplan/configs"
	"github.com/reusee/taiplan/logs"
	"github.com/reusee/taiplan/modes"
	"github.com/reusee/taiplan/vars"
)

// Settings configure one Session. Each Session gets its own copy.
type Settings struct {
	AllowShortcuts        bool
	MaxIterations         int
	MaxRetries            int
	MaxEarlierStepRetries int
	ExecTimeout           time.Duration
	// reset the interpreter namespace between tasks of one session, interactive ones excepted
	ResetNamespace bool
	// reset the dialog between tasks of one session, interactive ones excepted
	ResetDialog bool
	Language    string
	OutputDir   string
	// zero means unbounded
	MaxDialogTokens int
	// zero means unbounded
	MaxWallTime time.Duration
	Safe        bool
	// IF ... THEN ... rules consulted before each action, optional
	AdviceFile string
	// sqlite ledger path, optional
	Ledger string
}

func DefaultSettings() Settings {
	return Settings{
		MaxIterations:         200,
		MaxRetries:            2,
		MaxEarlierStepRetries: 2,
		ExecTimeout:           time.Hour,
		ResetNamespace:        true,
		ResetDialog:           true,
		Language:              "starlark",
		OutputDir:             "output",
	}
}

var (
	allowShortcutsFlag        = cmds.SwitchDesc("-allow-shortcuts", "allow simulated data and other shortcuts")
	maxIterationsFlag         = cmds.VarDesc[int]("-max-iterations", "max oracle calls per task")
	maxRetriesFlag            = cmds.VarDesc[*int]("-max-retries", "debug attempts per step before replanning")
	maxEarlierStepRetriesFlag = cmds.VarDesc[*int]("-max-earlier-step-retries", "rollbacks to earlier steps before giving up")
	execTimeoutFlag           = cmds.VarDesc[time.Duration]("-exec-timeout", "per statement timeout")
	keepNamespaceFlag         = cmds.SwitchDesc("-keep-namespace", "keep the namespace between interactive tasks")
	keepDialogFlag            = cmds.SwitchDesc("-keep-dialog", "keep the dialog between interactive tasks")
	languageFlag              = cmds.VarDesc[string]("-lang", "action language, starlark or go")
	outputDirFlag             = cmds.VarDesc[string]("-output", "output directory")
	maxWallTimeFlag           = cmds.VarDesc[time.Duration]("-max-time", "wall time budget per task")
	safeFlag                  = cmds.SwitchDesc("-safe", "restrict filesystem writes with landlock")
	adviceFlag                = cmds.VarDesc[string]("-advice", "file of IF ... THEN ... advice rules")
	ledgerFlag                = cmds.VarDesc[string]("-ledger", "sqlite file recording every run")
)

func (Module) Settings(
	loader configs.Loader,
	maxTokens MaxDialogTokens,
	root modes.OutputRoot,
	logger logs.Logger,
) (ret Settings) {
	defer func() {
		logger.Debug("settings", "settings", ret)
	}()

	ret = DefaultSettings()

	ret.AllowShortcuts = *allowShortcutsFlag ||
		configs.First[bool](loader, "allow_shortcuts")

	ret.MaxIterations = vars.FirstNonZero(
		*maxIterationsFlag,
		configs.First[int](loader, "max_iterations"),
		ret.MaxIterations,
	)

	// zero is meaningful for retry limits, so unset is nil
	ret.MaxRetries = *vars.FirstNonZero(
		*maxRetriesFlag,
		configs.First[*int](loader, "max_retries"),
		&ret.MaxRetries,
	)
	ret.MaxEarlierStepRetries = *vars.FirstNonZero(
		*maxEarlierStepRetriesFlag,
		configs.First[*int](loader, "max_earlier_step_retries"),
		&ret.MaxEarlierStepRetries,
	)

	ret.ExecTimeout = vars.FirstNonZero(
		*execTimeoutFlag,
		seconds(configs.First[float64](loader, "exec_timeout")),
		ret.ExecTimeout,
	)

	if *keepNamespaceFlag {
		ret.ResetNamespace = false
	} else if v := configs.First[*bool](loader, "reset_namespace"); v != nil {
		ret.ResetNamespace = *v
	}
	if *keepDialogFlag {
		ret.ResetDialog = false
	} else if v := configs.First[*bool](loader, "reset_dialog"); v != nil {
		ret.ResetDialog = *v
	}

	ret.Language = vars.FirstNonZero(
		*languageFlag,
		configs.First[string](loader, "language"),
		ret.Language,
	)
	ret.OutputDir = vars.FirstNonZero(
		*outputDirFlag,
		configs.First[string](loader, "output_dir"),
		string(root),
		ret.OutputDir,
	)
	ret.MaxDialogTokens = int(maxTokens)
	ret.MaxWallTime = vars.FirstNonZero(
		*maxWallTimeFlag,
		seconds(configs.First[float64](loader, "max_wall_time")),
	)
	ret.Safe = *safeFlag || configs.First[bool](loader, "safe")
	ret.AdviceFile = vars.FirstNonZero(
		*adviceFlag,
		configs.First[string](loader, "advice_file"),
	)
	ret.Ledger = vars.FirstNonZero(
		*ledgerFlag,
		configs.First[string](loader, "ledger"),
	)

	return ret
}

func seconds(n float64) time.Duration {
	return time.Duration(n * float64(time.Second))
}
