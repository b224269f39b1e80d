package core

import (
	"bufio"
	crand "crypto/rand"
	"errors"
	"fmt"
	enc "github.com/SchnorcherSepp/splitparts/encoding"
	impl "github.com/SchnorcherSepp/storage/defaultimpl"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// SplitOptions configures Split.
type SplitOptions struct {
	// MinPartLength and MaxPartLength bound the plain data length of every part
	// (the last part may be shorter than MinPartLength).
	MinPartLength int64
	MaxPartLength int64

	// Rand is the source for the first part name and the part lengths (default crypto/rand).
	Rand io.Reader
	// Observer gets progress and is polled for cancellation (optional).
	Observer Observer
	// BufferSize is the copy buffer in bytes (default DefaultBufferSize).
	BufferSize int
	// DebugLvl (0=off, 1=debug, 2=high)
	DebugLvl uint8
}

// Split encrypts inputFile into part files in outputDir.
// Either all parts are written, or every file this call created is removed again
// and an *Error is returned.
func Split(inputFile, outputDir string, key Key, opt SplitOptions) error {
	// debug (0=off, 1=debug, 2=high)
	debug := opt.DebugLvl >= impl.DebugLow

	if opt.Rand == nil {
		opt.Rand = crand.Reader
	}
	if opt.Observer == nil {
		opt.Observer = _NopObserver{}
	}
	if opt.BufferSize <= 0 {
		opt.BufferSize = DefaultBufferSize
	}

	// source
	st, err := statRegular(inputFile)
	if err != nil {
		log.Printf("ERROR: %s/Split: %v", packageName, err)
		return err
	}
	size := st.Size()
	if err := checkBounds(inputFile, size, opt.MinPartLength, opt.MaxPartLength); err != nil {
		log.Printf("ERROR: %s/Split: %v", packageName, err)
		return err
	}

	tx := &splitTx{
		key:   key,
		opt:   opt,
		dir:   outputDir,
		size:  size,
		mtime: st.ModTime(),
		debug: debug,
	}

	// target folder (created if missing)
	if err := tx.prepareDir(); err != nil {
		log.Printf("ERROR: %s/Split: %v", packageName, err)
		return err
	}

	// plan
	parts, err := plan(outputDir, size, opt.MinPartLength, opt.MaxPartLength, opt.Rand, key, debug)
	if err != nil {
		log.Printf("ERROR: %s/Split: %v", packageName, err)
		return tx.rollback(err)
	}
	log.Printf("INFO: %s/Split: '%s' (%d bytes) -> %d parts in '%s'", packageName, inputFile, size, len(parts), outputDir)

	// write
	if err := tx.run(inputFile, parts); err != nil {
		log.Printf("ERROR: %s/Split: %v", packageName, err)
		return tx.rollback(err)
	}
	return nil
}

// splitTx is one Split call. created and createdDir are only used by rollback.
type splitTx struct {
	key   Key
	opt   SplitOptions
	dir   string
	size  int64
	mtime time.Time
	debug bool

	src     *os.File
	tmp     *os.File
	tmpPath string

	created    []string // finished part files of this call
	createdDir bool
}

// prepareDir makes sure the output folder exists.
func (tx *splitTx) prepareDir() error {
	err := statDir(tx.dir)
	if err == nil {
		return nil
	}
	if KindOf(err) != KindNotFound {
		return err
	}
	if err := os.MkdirAll(tx.dir, 0700); err != nil {
		return newError(KindCreateDir, tx.dir, err)
	}
	tx.createdDir = true
	return nil
}

func (tx *splitTx) run(inputFile string, parts []Part) error {
	src, err := os.Open(inputFile)
	if err != nil {
		return newError(KindOpen, inputFile, err)
	}
	tx.src = src

	offset := int64(0)
	for i, part := range parts {
		if tx.opt.Observer.Canceled() {
			return &Error{Kind: KindCancelled, Path: inputFile}
		}
		if err := tx.writePart(i, len(parts), part, offset); err != nil {
			return err
		}
		offset += part.Length
	}

	if offset != tx.size {
		return &Error{Kind: KindRead, Path: inputFile, Err: fmt.Errorf("%d of %d bytes split", offset, tx.size)}
	}

	err = tx.src.Close()
	tx.src = nil
	if err != nil {
		return newError(KindClose, inputFile, err)
	}
	return nil
}

// writePart encrypts one part into a temp file and renames it to the part name.
func (tx *splitTx) writePart(index, count int, part Part, offset int64) error {
	target := filepath.Join(tx.dir, part.Name)
	if tx.debug {
		log.Printf("DEBUG: %s/writePart: part %d/%d: offset=%d, length=%d, '%s'", packageName, index+1, count, offset, part.Length, part.Name)
	}

	// source range
	if err := acquire(tx.src, false, offset, part.Length); err != nil {
		return err
	}
	if err := seek(tx.src, offset); err != nil {
		return err
	}

	// temp file
	tmp, err := os.CreateTemp(tx.dir, tempPattern)
	if err != nil {
		return newError(KindCreateTemp, tx.dir, err)
	}
	tx.tmp, tx.tmpPath = tmp, tmp.Name()
	if err := acquire(tmp, true, 0, 0); err != nil {
		return err
	}

	// timestamp stored in the part (the first part carries the real one)
	mtime := tx.mtime
	if index > 0 {
		if mtime, err = randomTime(); err != nil {
			return &Error{Kind: KindRead, Err: fmt.Errorf("random source: %w", err)}
		}
	}

	// encrypt
	r := &trackReader{
		r: bufio.NewReaderSize(tx.src, tx.opt.BufferSize),
		report: func(n int64) {
			tx.opt.Observer.Progress(fraction(n, part.Length), fraction(offset+n, tx.size))
		},
	}
	bw := bufio.NewWriterSize(tmp, tx.opt.BufferSize)
	w := &trackWriter{w: bw}
	id := encodeID(tx.key, part.Name, index, count)
	if err := tx.key.Encrypt(w, r, part.Length, id, mtime); err != nil {
		return classify(err, r, w, tx.src.Name(), tx.tmpPath)
	}
	if err := bw.Flush(); err != nil {
		return newError(KindWrite, tx.tmpPath, err)
	}
	tx.opt.Observer.Progress(1, fraction(offset+part.Length, tx.size))

	// close temp
	err = tmp.Close()
	tx.tmp = nil
	if err != nil {
		return newError(KindClose, tx.tmpPath, err)
	}

	// the plan checked the name, but the folder may have changed since
	if ok, err := exists(target); err != nil {
		return newError(KindRead, target, err)
	} else if ok {
		log.Printf("WARNING: %s/writePart: '%s' appeared after planning; replaced", packageName, target)
		if err := os.Remove(target); err != nil {
			return newError(KindDelete, target, err)
		}
	}

	// publish
	if err := os.Rename(tx.tmpPath, target); err != nil {
		return newError(KindRename, target, err)
	}
	tx.tmpPath = ""
	tx.created = append(tx.created, target)

	// file system time: real for the first part, random for the others
	return setTime(target, mtime)
}

// rollback removes everything this call created and returns cause.
func (tx *splitTx) rollback(cause error) error {
	closeQuiet(tx.src)
	closeQuiet(tx.tmp)
	tx.src, tx.tmp = nil, nil

	cleanup("Split", append([]string{tx.tmpPath}, tx.created...)...)
	if tx.debug && len(tx.created) > 0 {
		log.Printf("DEBUG: %s/Split: rollback: %d parts removed", packageName, len(tx.created))
	}
	if tx.createdDir {
		cleanup("Split", tx.dir) // only works when empty
	}
	tx.created = nil
	return cause
}

// classify turns an Encrypt/Decrypt error into an *Error blaming the right file.
func classify(err error, r *trackReader, w *trackWriter, srcPath, dstPath string) error {
	switch {
	case r.err != nil:
		return newError(KindRead, srcPath, r.err)
	case w.err != nil:
		return newError(KindWrite, dstPath, w.err)
	case errors.Is(err, enc.ErrTooShort):
		return &Error{Kind: KindPartTooShort, Path: srcPath, Err: err}
	case errors.Is(err, io.ErrUnexpectedEOF):
		return newError(KindRead, srcPath, err)
	}
	return &Error{Kind: KindCrypto, Path: srcPath, Err: err}
}
