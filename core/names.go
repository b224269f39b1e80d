package core

import (
	"encoding/hex"
	enc "github.com/SchnorcherSepp/splitparts/encoding"
	"io"
)

// nameChain produces the part names of one split.
// Only the first name is random; all others come from a generator seeded with the first name,
// so the first name alone is enough to rebuild the whole chain.
type nameChain struct {
	first string
	gen   enc.Generator
	used  map[string]struct{}
}

// newNameChain starts a chain with a random first name (new split).
func newNameChain(rnd io.Reader, key Key) (*nameChain, error) {
	b := make([]byte, nameBytes)
	if _, err := io.ReadFull(rnd, b); err != nil {
		return nil, err
	}
	return chainFrom(hex.EncodeToString(b), key), nil
}

// chainFrom rebuilds the chain of a known first name (join).
func chainFrom(first string, key Key) *nameChain {
	return &nameChain{
		first: first,
		gen:   key.Seed(first),
		used:  make(map[string]struct{}),
	}
}

// next returns the first name on the first call. After that it draws from the generator
// and skips every name this chain already returned.
func (c *nameChain) next() string {
	if len(c.used) == 0 {
		c.used[c.first] = struct{}{}
		return c.first
	}

	b := make([]byte, nameBytes)
	for {
		_, _ = c.gen.Read(b)
		name := hex.EncodeToString(b)
		if _, ok := c.used[name]; !ok {
			c.used[name] = struct{}{}
			return name
		}
	}
}

// isPartName reports whether name has the shape of a part file name (40 lowercase hex characters).
func isPartName(name string) bool {
	if len(name) != NameLength {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
