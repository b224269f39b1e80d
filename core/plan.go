package core

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math/big"
	"os"
	"path/filepath"
)

// Part is one planned (split) or discovered (join) part file.
type Part struct {
	// Name is the file name: 40 lowercase hex characters.
	Name string
	// Length is the plain data length (split) or the file size (join).
	Length int64
}

// errors that throw away the current plan attempt
var (
	errCollision = errors.New("part name already exists")
	errTooMany   = errors.New("too many parts")
)

// checkBounds validates the inputs of a split before anything is planned or written.
func checkBounds(path string, size, minLen, maxLen int64) error {
	if minLen < 1 || maxLen < minLen {
		return &Error{Kind: KindInvalidBounds, Path: path, Err: fmt.Errorf("min=%d, max=%d", minLen, maxLen)}
	}
	if size <= 0 {
		return &Error{Kind: KindFileEmpty, Path: path}
	}
	mean := minLen + (maxLen-minLen)/2
	if parts := (size-1)/mean + 1; parts > MaxParts {
		return &Error{Kind: KindFileTooLong, Path: path, Err: fmt.Errorf("%d parts needed, %d allowed", parts, MaxParts)}
	}
	return nil
}

// plan decides the names and lengths of all parts before any file is written.
// A name that already exists in dir discards the whole attempt: the chain depends on
// the first name, so a single name can't be replaced.
func plan(dir string, size, minLen, maxLen int64, rnd io.Reader, key Key, debug bool) ([]Part, error) {
	if err := checkBounds(dir, size, minLen, maxLen); err != nil {
		return nil, err
	}

	var last error
	for attempt := 1; attempt <= maxPlanAttempts; attempt++ {
		parts, err := planOnce(dir, size, minLen, maxLen, rnd, key)
		if err == nil {
			if debug {
				log.Printf("DEBUG: %s/plan: %d parts after %d attempt(s)", packageName, len(parts), attempt)
			}
			return parts, nil
		}
		if !errors.Is(err, errCollision) && !errors.Is(err, errTooMany) {
			return nil, err
		}
		if debug {
			log.Printf("DEBUG: %s/plan: attempt %d discarded: %v", packageName, attempt, err)
		}
		last = err
	}

	if errors.Is(last, errTooMany) {
		return nil, &Error{Kind: KindFileTooLong, Path: dir, Err: last}
	}
	return nil, &Error{Kind: KindNameCollision, Path: dir, Err: last}
}

// planOnce makes one attempt with a fresh random first name.
func planOnce(dir string, size, minLen, maxLen int64, rnd io.Reader, key Key) ([]Part, error) {
	chain, err := newNameChain(rnd, key)
	if err != nil {
		return nil, &Error{Kind: KindRead, Err: fmt.Errorf("random source: %w", err)}
	}

	parts := make([]Part, 0)
	for remaining := size; remaining > 0; {
		if len(parts) == MaxParts {
			return nil, errTooMany
		}

		// length in [minLen, min(maxLen, remaining)]; the rest if that range is empty
		length := remaining
		if hi := min(maxLen, remaining); hi >= minLen {
			length, err = randRange(rnd, minLen, hi)
			if err != nil {
				return nil, &Error{Kind: KindRead, Err: fmt.Errorf("random source: %w", err)}
			}
		}

		name := chain.next()
		p := filepath.Join(dir, name)
		if _, err := os.Lstat(p); err == nil {
			return nil, fmt.Errorf("%w: '%s'", errCollision, p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, newError(KindRead, p, err)
		}

		parts = append(parts, Part{Name: name, Length: length})
		remaining -= length
	}
	return parts, nil
}

// randRange returns a uniform random number in [lo, hi].
func randRange(rnd io.Reader, lo, hi int64) (int64, error) {
	if hi == lo {
		return lo, nil
	}
	n, err := crand.Int(rnd, big.NewInt(hi-lo+1))
	if err != nil {
		return 0, err
	}
	return lo + n.Int64(), nil
}
