// Package system provisions the host-level prerequisites: the operations
// account, its SSH directory, and the OS package set.
package system

import (
	"os"

	"github.com/calebmarsh/hostup/internal/errors"
)

// geteuid is swappable for tests.
var geteuid = os.Geteuid

// CheckPrivileged returns an error unless the process runs with root
// privileges. Nothing is mutated before this check passes.
func CheckPrivileged() error {
	if geteuid() != 0 {
		return errors.New(errors.ErrPrivilege,
			"hostup setup must run as root",
			"Re-run with sudo: sudo hostup setup ...")
	}
	return nil
}
