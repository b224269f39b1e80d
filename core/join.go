package core

import (
	"bufio"
	impl "github.com/SchnorcherSepp/storage/defaultimpl"
	"log"
	"os"
	"path/filepath"
	"time"
)

// JoinOptions configures Join.
type JoinOptions struct {
	// Resolver picks the set when inputDir holds more than one (optional; nil cancels).
	Resolver Resolver
	// Observer gets progress and is polled for cancellation (optional).
	Observer Observer
	// BufferSize is the copy buffer in bytes (default DefaultBufferSize).
	BufferSize int
	// DebugLvl (0=off, 1=debug, 2=high)
	DebugLvl uint8
}

// Join finds the split set in inputDir, checks the whole chain and decrypts it into outputFile.
// outputFile gets the timestamp of the first part. The part files are not removed.
// On error nothing is left behind (see joinTx.rollback for the one exception).
func Join(inputDir, outputFile string, key Key, opt JoinOptions) error {
	// debug (0=off, 1=debug, 2=high)
	debug := opt.DebugLvl >= impl.DebugLow

	if opt.Observer == nil {
		opt.Observer = _NopObserver{}
	}
	if opt.BufferSize <= 0 {
		opt.BufferSize = DefaultBufferSize
	}

	// find and check the set (nothing is written before this is done)
	firsts, err := Scan(inputDir, key, opt.DebugLvl)
	if err != nil {
		return err // logging in Scan
	}
	first, err := chooseSet(inputDir, firsts, opt.Resolver)
	if err != nil {
		log.Printf("ERROR: %s/Join: %v", packageName, err)
		return err
	}
	parts, err := validateChain(inputDir, first, key, debug)
	if err != nil {
		log.Printf("ERROR: %s/Join: %v", packageName, err)
		return err
	}

	// output must not be a folder or similar
	if st, err := os.Lstat(outputFile); err == nil && !st.Mode().IsRegular() {
		e := &Error{Kind: KindNotRegularFile, Path: outputFile}
		log.Printf("ERROR: %s/Join: %v", packageName, e)
		return e
	}

	log.Printf("INFO: %s/Join: %d parts from '%s' -> '%s'", packageName, len(parts), inputDir, outputFile)
	tx := &joinTx{
		key:    key,
		opt:    opt,
		dir:    inputDir,
		output: outputFile,
		debug:  debug,
	}
	if err := tx.run(parts); err != nil {
		log.Printf("ERROR: %s/Join: %v", packageName, err)
		return tx.rollback(err)
	}
	return nil
}

// joinTx is one Join call.
type joinTx struct {
	key    Key
	opt    JoinOptions
	dir    string
	output string
	debug  bool

	part    *os.File
	tmp     *os.File
	tmpPath string

	removedExisting bool // the old outputFile is gone: the temp file must survive
	renamed         bool
}

func (tx *joinTx) run(parts []Part) error {
	total := int64(0)
	for _, p := range parts {
		total += p.Length
	}

	// temp output next to the final file
	tmp, err := os.CreateTemp(filepath.Dir(tx.output), tempPattern)
	if err != nil {
		return newError(KindCreateTemp, filepath.Dir(tx.output), err)
	}
	tx.tmp, tx.tmpPath = tmp, tmp.Name()
	if err := acquire(tmp, true, 0, 0); err != nil {
		return err
	}
	bw := bufio.NewWriterSize(tmp, tx.opt.BufferSize)

	var mtime time.Time
	done := int64(0)
	for i, part := range parts {
		if tx.opt.Observer.Canceled() {
			return &Error{Kind: KindCancelled, Path: tx.output}
		}
		ts, err := tx.readPart(i, len(parts), part, bw, done, total)
		if err != nil {
			return err
		}
		if i == 0 {
			mtime = ts // the other parts carry random times
		}
		done += part.Length
	}

	// close temp
	if err := bw.Flush(); err != nil {
		return newError(KindWrite, tx.tmpPath, err)
	}
	err = tmp.Close()
	tx.tmp = nil
	if err != nil {
		return newError(KindClose, tx.tmpPath, err)
	}

	// replace old output
	if ok, err := exists(tx.output); err != nil {
		return newError(KindRead, tx.output, err)
	} else if ok {
		if err := os.Remove(tx.output); err != nil {
			return newError(KindDelete, tx.output, err)
		}
		tx.removedExisting = true
		if tx.debug {
			log.Printf("DEBUG: %s/Join: old '%s' removed", packageName, tx.output)
		}
	}

	// publish
	if err := os.Rename(tx.tmpPath, tx.output); err != nil {
		e := newError(KindRename, tx.output, err)
		if tx.removedExisting {
			e.TempPath = tx.tmpPath // kept by rollback
		}
		return e
	}
	tx.tmpPath = ""
	tx.renamed = true

	return setTime(tx.output, mtime)
}

// readPart decrypts one part into w and returns the timestamp stored in it.
func (tx *joinTx) readPart(index, count int, part Part, w *bufio.Writer, done, total int64) (time.Time, error) {
	path := filepath.Join(tx.dir, part.Name)
	if tx.debug {
		log.Printf("DEBUG: %s/readPart: part %d/%d: %d bytes, '%s'", packageName, index+1, count, part.Length, part.Name)
	}

	fh, err := os.Open(path)
	if err != nil {
		return time.Time{}, newError(KindOpen, path, err)
	}
	tx.part = fh
	if err := acquire(fh, false, 0, 0); err != nil {
		return time.Time{}, err
	}

	r := &trackReader{
		r: bufio.NewReaderSize(fh, tx.opt.BufferSize),
		report: func(n int64) {
			tx.opt.Observer.Progress(fraction(n, part.Length), fraction(done+n, total))
		},
	}
	tw := &trackWriter{w: w}
	ts, err := tx.key.Decrypt(tw, r, part.Length)
	if err != nil {
		return time.Time{}, classify(err, r, tw, path, tx.tmpPath)
	}

	err = fh.Close()
	tx.part = nil
	if err != nil {
		return time.Time{}, newError(KindClose, path, err)
	}
	return ts, nil
}

// rollback closes everything and removes the temp output, returning cause.
// Once the old output was removed, the new data is the only copy and is never deleted:
// a failed rename keeps the temp file (its path is in the returned error),
// a failed timestamp after the rename keeps the output.
func (tx *joinTx) rollback(cause error) error {
	closeQuiet(tx.part)
	closeQuiet(tx.tmp)
	tx.part, tx.tmp = nil, nil

	switch {
	case tx.removedExisting && tx.tmpPath != "":
		log.Printf("WARNING: %s/Join: temporary file kept: '%s'", packageName, tx.tmpPath)
	case tx.renamed && tx.removedExisting:
		// the old output is gone: the complete new one stays, only its timestamp is wrong
		log.Printf("WARNING: %s/Join: output kept: '%s'", packageName, tx.output)
	case tx.renamed:
		cleanup("Join", tx.output)
	default:
		cleanup("Join", tx.tmpPath)
	}
	return cause
}
