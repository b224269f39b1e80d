package core

import (
	"fmt"
	impl "github.com/SchnorcherSepp/storage/defaultimpl"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FirstPart describes a file whose header decodes to index 0: the start of a split set.
type FirstPart struct {
	Name    string
	Count   int       // declared number of parts
	ModTime time.Time // file system time of the first part (= original file time)
}

// Scan lists all split sets in dir, newest first.
// Files without the part name shape are ignored.
func Scan(dir string, key Key, debugLvl uint8) ([]FirstPart, error) {
	// debug (0=off, 1=debug, 2=high)
	debug := debugLvl >= impl.DebugLow

	if err := statDir(dir); err != nil {
		log.Printf("ERROR: %s/Scan: %v", packageName, err)
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		e := newError(KindRead, dir, err)
		log.Printf("ERROR: %s/Scan: %v", packageName, e)
		return nil, e
	}

	plausible := 0
	firsts := make([]FirstPart, 0)
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !isPartName(entry.Name()) {
			continue
		}
		plausible++

		info, err := entry.Info()
		if err != nil {
			continue // removed in the meantime
		}
		path := filepath.Join(dir, entry.Name())
		index, count, err := readID(path, key)
		if err != nil {
			if debug {
				log.Printf("DEBUG: %s/Scan: skip '%s': %v", packageName, path, err)
			}
			continue
		}
		if index != 0 {
			continue
		}
		firsts = append(firsts, FirstPart{
			Name:    entry.Name(),
			Count:   count,
			ModTime: info.ModTime(),
		})
	}

	if debug {
		log.Printf("DEBUG: %s/Scan: '%s': %d entries, %d part files, %d sets", packageName, dir, len(entries), plausible, len(firsts))
	}
	if plausible == 0 {
		return nil, &Error{Kind: KindNoFileParts, Path: dir}
	}
	if len(firsts) == 0 {
		return nil, &Error{Kind: KindNoSetsOfFileParts, Path: dir}
	}

	sort.Slice(firsts, func(i, j int) bool {
		if !firsts[i].ModTime.Equal(firsts[j].ModTime) {
			return firsts[i].ModTime.After(firsts[j].ModTime)
		}
		return firsts[i].Name < firsts[j].Name
	})
	return firsts, nil
}

// chooseSet picks the split set to join: the only one, or the resolver's choice.
func chooseSet(dir string, firsts []FirstPart, resolver Resolver) (FirstPart, error) {
	if len(firsts) == 1 {
		return firsts[0], nil
	}
	if resolver == nil {
		return FirstPart{}, &Error{Kind: KindSelectionCancelled, Path: dir, Err: fmt.Errorf("%d sets found, no resolver", len(firsts))}
	}
	choice, ok := resolver.Resolve(firsts)
	if !ok {
		return FirstPart{}, &Error{Kind: KindSelectionCancelled, Path: dir}
	}
	return choice, nil
}

// validateChain rebuilds the name chain of first and checks every part before anything is written:
// it must exist, be big enough and carry its own position and the declared count.
func validateChain(dir string, first FirstPart, key Key, debug bool) ([]Part, error) {
	if first.Count < 1 || first.Count > MaxParts || !isPartName(first.Name) {
		return nil, &Error{Kind: KindInconsistent, Path: filepath.Join(dir, first.Name), Err: fmt.Errorf("bad set: count=%d", first.Count)}
	}

	chain := chainFrom(first.Name, key)
	parts := make([]Part, 0, first.Count)
	for i := 0; i < first.Count; i++ {
		name := chain.next()
		path := filepath.Join(dir, name)

		st, err := os.Stat(path)
		if err != nil || !st.Mode().IsRegular() {
			return nil, &Error{Kind: KindInconsistent, Path: path, Err: fmt.Errorf("part %d of %d missing: %v", i+1, first.Count, err)}
		}
		if st.Size() < key.Overhead() {
			return nil, &Error{Kind: KindPartTooShort, Path: path, Err: fmt.Errorf("%d bytes, need %d", st.Size(), key.Overhead())}
		}

		index, count, err := readID(path, key)
		if err != nil {
			return nil, &Error{Kind: KindInconsistent, Path: path, Err: err}
		}
		if index != i || count != first.Count {
			return nil, &Error{Kind: KindInconsistent, Path: path, Err: fmt.Errorf("part %d/%d, expected %d/%d", index, count, i, first.Count)}
		}
		if debug {
			log.Printf("DEBUG: %s/validateChain: part %d/%d ok: '%s'", packageName, i+1, first.Count, name)
		}

		parts = append(parts, Part{Name: name, Length: st.Size()})
	}
	return parts, nil
}

// readID reads the header of a part file and decodes (index, count).
func readID(path string, key Key) (index, count int, err error) {
	fh, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer fh.Close()

	id, err := key.HeaderID(io.LimitReader(fh, key.HeaderSize()))
	if err != nil {
		return 0, 0, err
	}
	index, count = decodeID(key, filepath.Base(path), id)
	return index, count, nil
}
