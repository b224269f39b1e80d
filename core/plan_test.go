package core

import (
	"bytes"
	crand "crypto/rand"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// repeatReader returns the same bytes over and over.
type repeatReader []byte

func (r repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r[i%len(r)]
	}
	return len(p), nil
}

func Test_checkBounds(t *testing.T) {
	cases := []struct {
		size, min, max int64
		kind           Kind
	}{
		{100, 10, 20, KindUnknown},
		{1, 1, 1, KindUnknown},
		{50, 100, 200, KindUnknown},
		{100, 0, 20, KindInvalidBounds},
		{100, -5, 20, KindInvalidBounds},
		{100, 30, 20, KindInvalidBounds},
		{0, 30, 20, KindInvalidBounds}, // bounds are checked first
		{0, 10, 20, KindFileEmpty},
		{MaxParts, 1, 1, KindUnknown},
		{MaxParts + 1, 1, 1, KindFileTooLong},
		{MaxParts*10 + 1, 10, 10, KindFileTooLong},
		{MaxParts * 15, 10, 20, KindUnknown},
		{MaxParts*15 + 1, 10, 20, KindFileTooLong},
	}
	for _, c := range cases {
		err := checkBounds("x", c.size, c.min, c.max)
		if c.kind == KindUnknown {
			if err != nil {
				t.Errorf("size=%d, min=%d, max=%d: %v", c.size, c.min, c.max, err)
			}
			continue
		}
		if KindOf(err) != c.kind {
			t.Errorf("size=%d, min=%d, max=%d: %v, want %v", c.size, c.min, c.max, err, c.kind)
		}
	}
}

func Test_plan_lengths(t *testing.T) {
	key := testKey(t, 1)
	dir := t.TempDir()

	cases := [][3]int64{
		{10000, 2000, 4000},
		{10000, 1, 10000},
		{10000, 1000, 1000},
		{9999, 1000, 1000},
		{1, 1, 1},
		{1, 10, 20},
		{123457, 100, 999},
	}
	for _, c := range cases {
		size, minLen, maxLen := c[0], c[1], c[2]
		for round := 0; round < 20; round++ {
			parts, err := plan(dir, size, minLen, maxLen, crand.Reader, key, false)
			if err != nil {
				t.Fatalf("%v: %v", c, err)
			}

			sum := int64(0)
			names := make(map[string]bool)
			for i, p := range parts {
				sum += p.Length
				last := i == len(parts)-1
				if p.Length < 1 || p.Length > maxLen || (!last && p.Length < minLen) {
					t.Fatalf("%v: part %d has length %d", c, i, p.Length)
				}
				if last && p.Length < minLen && sum-p.Length+minLen <= size {
					t.Fatalf("%v: short last part %d although %d bytes were left", c, p.Length, size-sum+p.Length)
				}
				if !isPartName(p.Name) || names[p.Name] {
					t.Fatalf("%v: bad or repeated name %q", c, p.Name)
				}
				names[p.Name] = true
			}
			if sum != size {
				t.Fatalf("%v: lengths sum to %d", c, sum)
			}

			// the names are the chain of the first one
			chain := chainFrom(parts[0].Name, key)
			for i, p := range parts {
				if n := chain.next(); n != p.Name {
					t.Fatalf("%v: part %d is %s, chain says %s", c, i, p.Name, n)
				}
			}

			if size == 10000 && minLen == 2000 && (len(parts) < 3 || len(parts) > 5) {
				t.Fatalf("%d parts for 10000/2000/4000", len(parts))
			}
		}
	}

	// nothing was written
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("plan created %d files", len(entries))
	}
}

func Test_plan_collisionFirst(t *testing.T) {
	key := testKey(t, 1)
	dir := t.TempDir()

	taken := bytes.Repeat([]byte{0x42}, nameBytes)
	takenName := strings.Repeat("42", 20)
	if err := os.WriteFile(filepath.Join(dir, takenName), []byte("other"), 0600); err != nil {
		t.Fatal(err)
	}

	// three attempts with the taken name, then random ones (min==max: no random lengths)
	rnd := io.MultiReader(bytes.NewReader(taken), bytes.NewReader(taken), bytes.NewReader(taken), crand.Reader)
	parts, err := plan(dir, 5000, 1000, 1000, rnd, key, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 5 {
		t.Fatalf("%d parts", len(parts))
	}
	for _, p := range parts {
		if p.Name == takenName {
			t.Fatalf("existing name planned")
		}
	}
}

func Test_plan_collisionLater(t *testing.T) {
	key := testKey(t, 1)
	dir := t.TempDir()

	first := bytes.Repeat([]byte{0x17}, nameBytes)
	firstName := strings.Repeat("17", 20)

	// the third name of that chain exists
	chain := chainFrom(firstName, key)
	chain.next()
	chain.next()
	third := chain.next()
	if err := os.WriteFile(filepath.Join(dir, third), nil, 0600); err != nil {
		t.Fatal(err)
	}

	// two parts: no collision
	parts, err := plan(dir, 2000, 1000, 1000, bytes.NewReader(first), key, false)
	if err != nil || parts[0].Name != firstName {
		t.Fatalf("parts=%v, err=%v", parts, err)
	}

	// three parts: the whole chain is dropped
	rnd := io.MultiReader(bytes.NewReader(first), crand.Reader)
	parts, err = plan(dir, 3000, 1000, 1000, rnd, key, false)
	if err != nil {
		t.Fatal(err)
	}
	if parts[0].Name == firstName {
		t.Errorf("colliding chain was used")
	}
	for _, p := range parts {
		if p.Name == third {
			t.Errorf("existing name planned")
		}
	}
}

func Test_plan_exhausted(t *testing.T) {
	key := testKey(t, 1)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, strings.Repeat("99", 20)), nil, 0600); err != nil {
		t.Fatal(err)
	}

	_, err := plan(dir, 3000, 1000, 1000, repeatReader{0x99}, key, false)
	if !errors.Is(err, ErrNameCollision) {
		t.Errorf("err=%v", err)
	}

	// broken random source
	_, err = plan(dir, 3000, 1000, 1000, bytes.NewReader(nil), key, false)
	if err == nil || errors.Is(err, ErrNameCollision) {
		t.Errorf("err=%v", err)
	}
}

func Test_randRange(t *testing.T) {
	if n, err := randRange(crand.Reader, 7, 7); n != 7 || err != nil {
		t.Errorf("n=%d, err=%v", n, err)
	}
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		n, err := randRange(crand.Reader, 3, 6)
		if err != nil {
			t.Fatal(err)
		}
		if n < 3 || n > 6 {
			t.Fatalf("n=%d", n)
		}
		seen[n] = true
	}
	if len(seen) != 4 {
		t.Errorf("not all values drawn: %v", seen)
	}
}
