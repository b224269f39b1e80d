package enc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Format versions written and accepted by this package.
const (
	Version    = 1
	MinVersion = 1
	MaxVersion = 1
)

// Sizes of the part file sections.
const (
	HeaderSize    = 4 + 2 + 2 + 2 + 16 + 2 // id + version + min + max + salt + reserved
	TimestampSize = 8
	TagSize       = 32 // HMAC-SHA256
)

// ErrVersion is returned for parts written in a format this package can't read.
var ErrVersion = errors.New("unsupported part format version")

// Header is the fixed-size prefix of every part file.
//
//   [0:4]   ID          obfuscated (index,count)
//   [4:6]   Version     format of this part
//   [6:8]   MinVersion  oldest format the writer could read
//   [8:10]  MaxVersion  newest format the writer could read
//   [10:26] Salt        random, per part
//   [26:28] reserved
type Header struct {
	ID         uint32
	Version    uint16
	MinVersion uint16
	MaxVersion uint16
	Salt       [16]byte
}

// Marshal serializes the header (little endian).
func (h Header) Marshal() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.ID)
	binary.LittleEndian.PutUint16(b[4:6], h.Version)
	binary.LittleEndian.PutUint16(b[6:8], h.MinVersion)
	binary.LittleEndian.PutUint16(b[8:10], h.MaxVersion)
	copy(b[10:26], h.Salt[:])
	return b
}

// UnmarshalHeader parses a header and checks the format version.
func UnmarshalHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, errors.New("header: short buffer")
	}
	h.ID = binary.LittleEndian.Uint32(b[0:4])
	h.Version = binary.LittleEndian.Uint16(b[4:6])
	h.MinVersion = binary.LittleEndian.Uint16(b[6:8])
	h.MaxVersion = binary.LittleEndian.Uint16(b[8:10])
	copy(h.Salt[:], b[10:26])

	if h.Version < MinVersion || h.Version > MaxVersion || h.MinVersion > h.MaxVersion {
		return h, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	return h, nil
}

// ReadHeader reads and parses exactly HeaderSize bytes.
func ReadHeader(r io.Reader) (Header, []byte, error) {
	b := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return Header{}, nil, err
	}
	h, err := UnmarshalHeader(b)
	return h, b, err
}
