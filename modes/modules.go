package modes

import (
	"testing"

	"github.com/reusee/dscope"
)

// ModuleForProduction is installed by the command. Runs write under ./output.
type ModuleForProduction struct {
	dscope.Module
}

func ForProduction() ModuleForProduction {
	return ModuleForProduction{}
}

func (ModuleForProduction) Mode() Mode {
	return ModeProduction
}

func (ModuleForProduction) T() *testing.T {
	return nil
}

func (ModuleForProduction) OutputRoot() OutputRoot {
	return "output"
}

// ModuleForTest gives each test its own output root, removed when the test ends.
type ModuleForTest struct {
	dscope.Module
	t *testing.T
}

func ForTest(t *testing.T) ModuleForTest {
	return ModuleForTest{
		t: t,
	}
}

func (m ModuleForTest) Mode() Mode {
	return ModeDevelopment
}

func (m ModuleForTest) T() *testing.T {
	return m.t
}

func (m ModuleForTest) OutputRoot() OutputRoot {
	return OutputRoot(m.t.TempDir())
}
