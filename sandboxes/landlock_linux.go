//go:build linux

package sandboxes

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"unsafe"

	"github.com/reusee/taiplan/logs"
	"golang.org/x/sys/unix"
)

// ApplyLandlock confines every thread of the process, irreversibly.
// Reads stay unrestricted. Writes are allowed beneath the working directory and the writable dirs.
// Kernels without landlock leave the process unconfined with a warning.
// Processes linking cgo cannot confine all threads, that is an error.
func ApplyLandlock(logger logs.Logger, writable ...string) error {
	abi, err := landlockABI()
	if err != nil {
		return err
	}
	if abi < 1 {
		logger.Warn("landlock unavailable, running without filesystem sandbox")
		return nil
	}

	read, write := landlockRights(abi)
	rules, err := newRuleset(read | write)
	if err != nil {
		return err
	}
	defer unix.Close(rules.fd)

	if err := rules.allow("/", read); err != nil {
		return err
	}
	for _, dir := range append([]string{"."}, writable...) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		if err := rules.allow(dir, read|write); err != nil {
			return err
		}
	}

	if err := rules.enforce(); err != nil {
		return err
	}
	logger.Info("landlock applied", "abi", abi, "writable", writable)
	return nil
}

// landlockABI returns 0 when the kernel has no landlock or has it disabled.
func landlockABI() (int, error) {
	abi, _, errno := unix.Syscall(
		unix.SYS_LANDLOCK_CREATE_RULESET,
		0, 0, unix.LANDLOCK_CREATE_RULESET_VERSION,
	)
	switch errno {
	case 0:
		return int(abi), nil
	case unix.ENOSYS, unix.EOPNOTSUPP, unix.ENOPKG, unix.EINVAL:
		return 0, nil
	}
	return 0, fmt.Errorf("landlock abi: %w", errno)
}

func landlockRights(abi int) (read uint64, write uint64) {
	read = unix.LANDLOCK_ACCESS_FS_READ_FILE |
		unix.LANDLOCK_ACCESS_FS_READ_DIR
	write = unix.LANDLOCK_ACCESS_FS_WRITE_FILE |
		unix.LANDLOCK_ACCESS_FS_REMOVE_DIR |
		unix.LANDLOCK_ACCESS_FS_REMOVE_FILE |
		unix.LANDLOCK_ACCESS_FS_MAKE_CHAR |
		unix.LANDLOCK_ACCESS_FS_MAKE_DIR |
		unix.LANDLOCK_ACCESS_FS_MAKE_REG |
		unix.LANDLOCK_ACCESS_FS_MAKE_SOCK |
		unix.LANDLOCK_ACCESS_FS_MAKE_FIFO |
		unix.LANDLOCK_ACCESS_FS_MAKE_BLOCK |
		unix.LANDLOCK_ACCESS_FS_MAKE_SYM
	if abi >= 2 {
		write |= unix.LANDLOCK_ACCESS_FS_REFER
	}
	if abi >= 3 {
		write |= unix.LANDLOCK_ACCESS_FS_TRUNCATE
	}
	return
}

type ruleset struct {
	fd int
}

func newRuleset(handled uint64) (ruleset, error) {
	attr := unix.LandlockRulesetAttr{
		Access_fs: handled,
	}
	fd, _, errno := unix.Syscall(
		unix.SYS_LANDLOCK_CREATE_RULESET,
		uintptr(unsafe.Pointer(&attr)),
		unsafe.Sizeof(attr),
		0,
	)
	if errno != 0 {
		return ruleset{}, fmt.Errorf("landlock ruleset: %w", errno)
	}
	return ruleset{fd: int(fd)}, nil
}

func (r ruleset) allow(dir string, rights uint64) error {
	fd, err := unix.Open(dir, unix.O_PATH|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", dir, err)
	}
	defer unix.Close(fd)
	attr := unix.LandlockPathBeneathAttr{
		Parent_fd:      int32(fd),
		Allowed_access: rights,
	}
	if _, _, errno := unix.Syscall(
		unix.SYS_LANDLOCK_ADD_RULE,
		uintptr(r.fd),
		unix.LANDLOCK_RULE_PATH_BENEATH,
		uintptr(unsafe.Pointer(&attr)),
	); errno != 0 {
		return fmt.Errorf("landlock rule for %s: %w", dir, errno)
	}
	return nil
}

var errCgoThreads = errors.New("cannot confine all threads of a cgo process, build with CGO_ENABLED=0")

// enforce restricts every OS thread of the runtime, not only the calling one.
func (r ruleset) enforce() error {
	if _, _, errno := syscall.AllThreadsSyscall6(
		unix.SYS_PRCTL,
		unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0, 0,
	); errno != 0 {
		if errno == syscall.ENOTSUP {
			return errCgoThreads
		}
		return fmt.Errorf("no_new_privs: %w", errno)
	}
	if _, _, errno := syscall.AllThreadsSyscall(
		unix.SYS_LANDLOCK_RESTRICT_SELF,
		uintptr(r.fd), 0, 0,
	); errno != 0 {
		return fmt.Errorf("landlock restrict: %w", errno)
	}
	return nil
}
