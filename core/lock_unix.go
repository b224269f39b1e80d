//go:build linux || darwin || freebsd || netbsd || openbsd

package core

import (
	"errors"
	"golang.org/x/sys/unix"
	"io"
	"os"
)

// lockRange places a non-blocking advisory fcntl lock on [off, off+n) of fh (n=0: to the end).
// Shared locks need fh opened for reading, exclusive locks need it opened for writing.
// The locks are released when fh is closed.
func lockRange(fh *os.File, exclusive bool, off, n int64) error {
	lk := unix.Flock_t{
		Type:   unix.F_RDLCK,
		Whence: io.SeekStart,
		Start:  off,
		Len:    n,
	}
	if exclusive {
		lk.Type = unix.F_WRLCK
	}

	err := unix.FcntlFlock(fh.Fd(), unix.F_SETLK, &lk)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ENOLCK) || errors.Is(err, unix.EOPNOTSUPP) ||
		errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EINVAL) {
		return errLockUnsupported
	}
	return err
}
