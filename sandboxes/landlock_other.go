//go:build !linux

package sandboxes

import "github.com/reusee/taiplan/logs"

func ApplyLandlock(logger logs.Logger, writable ...string) error {
	logger.Warn("landlock is only available on linux, running without filesystem sandbox")
	return nil
}
