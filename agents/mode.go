package agents

import (
	"strings"

	"github.com/reusee/taiplan/oracles"
	"github.com/reusee/taiplan/prompts"
)

// Mode is a state of the dispatcher.
type Mode string

const (
	ModeStart                   Mode = "start"
	ModeStrategize              Mode = "strategize"
	ModePlan                    Mode = "plan"
	ModePartialPlan             Mode = "partial_plan"
	ModeReplan                  Mode = "replan"
	ModeContinuePlan            Mode = "continue_plan"
	ModeReflectOnPlan           Mode = "reflect_on_plan"
	ModeAct                     Mode = "act"
	ModeContinue                Mode = "continue"
	ModeDebug                   Mode = "debug"
	ModeRetry                   Mode = "retry"
	ModeRetryEarlierStep        Mode = "retry_earlier_step"
	ModeReflect                 Mode = "reflect"
	ModeNextStep                Mode = "next_step"
	ModeDone                    Mode = "done"
	ModeAbortIterations         Mode = "abort_iterations"
	ModeAbortShortcuts          Mode = "abort_shortcuts"
	ModeAbortImpossible         Mode = "abort_impossible"
	ModeAbortBeyondCapabilities Mode = "abort_beyond_capabilities"
	// a fault escaped a mode handler
	ModeAbortPythonError Mode = "abort_python_error"
)

var Modes = []Mode{
	ModeStart,
	ModeStrategize,
	ModePlan,
	ModePartialPlan,
	ModeReplan,
	ModeContinuePlan,
	ModeReflectOnPlan,
	ModeAct,
	ModeContinue,
	ModeDebug,
	ModeRetry,
	ModeRetryEarlierStep,
	ModeReflect,
	ModeNextStep,
	ModeDone,
	ModeAbortIterations,
	ModeAbortShortcuts,
	ModeAbortImpossible,
	ModeAbortBeyondCapabilities,
	ModeAbortPythonError,
}

func (m Mode) IsAbort() bool {
	return strings.HasPrefix(string(m), "abort_")
}

func (m Mode) IsTerminal() bool {
	return m == ModeDone || m.IsAbort()
}

// IsAction reports whether the mode asks for code to run.
func (m Mode) IsAction() bool {
	switch m {
	case ModeAct, ModeContinue, ModeDebug, ModeRetry, ModeRetryEarlierStep:
		return true
	}
	return false
}

// ResponseKind is the reply shape of an oracle-driven mode. ok is false for bookkeeping modes.
func (m Mode) ResponseKind() (kind oracles.Kind, ok bool) {
	switch m {
	case ModeStrategize:
		return oracles.KindStrategize, true
	case ModePlan, ModePartialPlan, ModeReplan, ModeContinuePlan:
		return oracles.KindPlan, true
	case ModeReflectOnPlan:
		return oracles.KindReflectOnPlan, true
	case ModeReflect:
		return oracles.KindReflect, true
	}
	if m.IsAction() {
		return oracles.KindAct, true
	}
	return "", false
}

func (m Mode) temperature() float32 {
	switch m {
	case ModeReplan, ModeContinuePlan:
		// a fresh plan, not the one that just failed
		return 0.7
	}
	return 0
}

func (m Mode) instruction(allowShortcuts bool) string {
	switch m {
	case ModeStrategize:
		return prompts.Strategize
	case ModePlan:
		return prompts.Plan
	case ModePartialPlan:
		return prompts.PartialPlan
	case ModeContinuePlan:
		return prompts.ContinuePlan
	case ModeReplan:
		return prompts.Replan
	case ModeReflectOnPlan:
		if allowShortcuts {
			return prompts.ReflectOnPlanAllowShortcuts
		}
		return prompts.ReflectOnPlan
	case ModeAct:
		return prompts.Act
	case ModeContinue:
		return prompts.Continue
	case ModeDebug, ModeRetry, ModeRetryEarlierStep:
		return prompts.Debug
	case ModeReflect:
		if allowShortcuts {
			return prompts.ReflectAllowShortcuts
		}
		return prompts.Reflect
	}
	return ""
}
