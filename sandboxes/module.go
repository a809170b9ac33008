package sandboxes

import (
	"sync"

	"github.com/reusee/dscope"
	"github.com/reusee/taiplan/debugs"
	"github.com/reusee/taiplan/logs"
)

type Module struct {
	dscope.Module
	Logs   logs.Module
	Debugs debugs.Module
}

// Confine applies the landlock ruleset once per process. Later calls return the first result.
type Confine func(writable ...string) error

func (Module) Confine(
	logger logs.Logger,
) Confine {
	var once sync.Once
	var err error
	return func(writable ...string) error {
		once.Do(func() {
			err = ApplyLandlock(logger, writable...)
		})
		return err
	}
}
