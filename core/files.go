package core

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"github.com/hashicorp/go-multierror"
	"io/fs"
	"log"
	"math/big"
	"os"
	"time"
)

// errLockUnsupported marks lock results that mean "this platform/filesystem can't lock".
// Those are ignored; every other lock failure is an error.
var errLockUnsupported = errors.New("advisory locks not supported")

// acquire locks a byte range of fh (n=0: to the end of the file).
func acquire(fh *os.File, exclusive bool, off, n int64) error {
	err := lockRange(fh, exclusive, off, n)
	if err == nil || errors.Is(err, errLockUnsupported) {
		return nil
	}
	return newError(KindLock, fh.Name(), err)
}

// seek sets the offset for the next Read on file to the part start
func seek(fh *os.File, offset int64) error {
	o, err := fh.Seek(offset, 0)
	if err != nil {
		return newError(KindRead, fh.Name(), err)
	}
	if o != offset {
		return newError(KindRead, fh.Name(), fmt.Errorf("seek error: wrong offset %d != %d", o, offset))
	}
	return nil
}

// statRegular returns the info of a regular file (symlinks are followed).
func statRegular(path string) (os.FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: KindNotFound, Path: path, Err: err}
		}
		return nil, newError(KindOpen, path, err)
	}
	if !st.Mode().IsRegular() {
		return nil, &Error{Kind: KindNotRegularFile, Path: path}
	}
	return st, nil
}

// statDir checks that path is an existing directory.
func statDir(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Error{Kind: KindNotFound, Path: path, Err: err}
		}
		return newError(KindOpen, path, err)
	}
	if !st.IsDir() {
		return &Error{Kind: KindNotDirectory, Path: path}
	}
	return nil
}

// exists reports whether something (file, dir, link) is at path.
func exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// chtimes is os.Chtimes (replaced in tests).
var chtimes = os.Chtimes

// setTime sets access and modification time.
func setTime(path string, t time.Time) error {
	if err := chtimes(path, t, t); err != nil {
		return newError(KindTimestamp, path, err)
	}
	return nil
}

// randomTimeStart is the earliest random part timestamp.
var randomTimeStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// randomTime returns a uniform random time between 2000-01-01 and now.
// Only the first part keeps the real timestamp; the others must not reveal the order.
func randomTime() (time.Time, error) {
	span := time.Since(randomTimeStart)
	n, err := crand.Int(crand.Reader, big.NewInt(int64(span)))
	if err != nil {
		return time.Time{}, err
	}
	return randomTimeStart.Add(time.Duration(n.Int64())), nil
}

// cleanup removes files best-effort. Failures are only logged: they must not hide the original error.
func cleanup(fn string, paths ...string) {
	var errs error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = multierror.Append(errs, err)
		}
	}
	if errs != nil {
		log.Printf("WARNING: %s/%s: rollback incomplete: %v", packageName, fn, errs)
	}
}

// closeQuiet closes fh and ignores the error (rollback of an already failed task).
func closeQuiet(fh *os.File) {
	if fh != nil {
		_ = fh.Close()
	}
}
