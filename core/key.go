package core

import (
	enc "github.com/SchnorcherSepp/splitparts/encoding"
	"io"
	"time"
)

var _ Key = (*enc.Key)(nil)

// Key is the stream cipher and keyed generator used by Split and Join.
// *enc.Key is the implementation; tests wrap it.
type Key interface {
	// Encrypt writes a complete part (header with id, encrypted data, trailer) for exactly n plain bytes.
	Encrypt(dst io.Writer, src io.Reader, n int64, id uint32, mtime time.Time) error
	// Decrypt reads a complete part of n bytes, writes the plain data and returns the stored timestamp.
	Decrypt(dst io.Writer, src io.Reader, n int64) (time.Time, error)
	// HeaderID reads the header prefix of a part and returns its id.
	HeaderID(r io.Reader) (uint32, error)
	// HeaderSize is the number of bytes HeaderID needs.
	HeaderSize() int64
	// Overhead is the size of a part with an empty payload.
	Overhead() int64
	// Seed returns a generator; the same seed always gives the same stream.
	Seed(seed string) enc.Generator
	// Mask returns the header id mask of a part name (not derived from Seed).
	Mask(name string) uint32
}
