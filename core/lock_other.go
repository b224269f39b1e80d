//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package core

import "os"

// lockRange: advisory byte range locks are not implemented on this platform.
func lockRange(fh *os.File, exclusive bool, off, n int64) error {
	return errLockUnsupported
}
