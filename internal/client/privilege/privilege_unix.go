//go:build unix

package privilege

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

func ids() (ruid, euid int) {
	return unix.Getuid(), unix.Geteuid()
}

func setEffective(uid int) error {
	if err := syscall.Seteuid(uid); err != nil {
		return fmt.Errorf("privilege: seteuid %d: %w", uid, err)
	}
	return nil
}
