package enc

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrAuth is returned when the trailer of a part does not match its content.
var ErrAuth = errors.New("part authentication failed")

// ErrTooShort is returned for parts smaller than Overhead().
var ErrTooShort = errors.New("part is too short")

// Overhead is the size of a part with an empty payload (header + timestamp + trailer).
func (k *Key) Overhead() int64 {
	return HeaderSize + TimestampSize + TagSize
}

// HeaderSize returns the number of bytes HeaderID reads.
func (k *Key) HeaderSize() int64 {
	return HeaderSize
}

// HeaderID reads the header prefix of a part and returns the obfuscated id.
func (k *Key) HeaderID(r io.Reader) (uint32, error) {
	h, _, err := ReadHeader(r)
	if err != nil {
		return 0, err
	}
	return h.ID, nil
}

// Encrypt reads exactly n plain bytes from src and writes a complete part to dst:
// header (with id), encrypted timestamp and data, HMAC trailer.
func (k *Key) Encrypt(dst io.Writer, src io.Reader, n int64, id uint32, mtime time.Time) error {
	if n < 0 {
		return errors.New("negative length")
	}

	// header
	h := Header{
		ID:         id,
		Version:    Version,
		MinVersion: MinVersion,
		MaxVersion: MaxVersion,
	}
	if _, err := io.ReadFull(rand.Reader, h.Salt[:]); err != nil {
		return err
	}
	hb := h.Marshal()

	mac := hmac.New(sha256.New, k.macKey(h.Salt[:]))
	w := io.MultiWriter(dst, mac)
	if _, err := w.Write(hb); err != nil {
		return err
	}

	// body: timestamp || data
	ts := make([]byte, TimestampSize)
	binary.LittleEndian.PutUint64(ts, uint64(mtime.UnixNano()))
	body := io.MultiReader(bytes.NewReader(ts), io.LimitReader(src, n))

	copied, err := io.Copy(w, CryptoReader(body, 0, k.DataKey(h.Salt[:])))
	if err != nil {
		return err
	}
	if copied != n+TimestampSize {
		return fmt.Errorf("source: %w: %d of %d bytes", io.ErrUnexpectedEOF, copied-TimestampSize, n)
	}

	// trailer
	_, err = dst.Write(mac.Sum(nil))
	return err
}

// Decrypt reads a complete part of n bytes from src, writes the plain data to dst
// and returns the timestamp stored in the part.
// dst has already received the data when the trailer check fails.
func (k *Key) Decrypt(dst io.Writer, src io.Reader, n int64) (time.Time, error) {
	if n < k.Overhead() {
		return time.Time{}, ErrTooShort
	}

	// header
	h, hb, err := ReadHeader(src)
	if err != nil {
		return time.Time{}, err
	}
	mac := hmac.New(sha256.New, k.macKey(h.Salt[:]))
	mac.Write(hb)

	// body
	bodyLen := n - HeaderSize - TagSize
	body := io.TeeReader(io.LimitReader(src, bodyLen), mac)
	cr := CryptoReader(body, 0, k.DataKey(h.Salt[:]))

	ts := make([]byte, TimestampSize)
	if _, err := io.ReadFull(cr, ts); err != nil {
		return time.Time{}, err
	}
	copied, err := io.Copy(dst, cr)
	if err != nil {
		return time.Time{}, err
	}
	if copied != bodyLen-TimestampSize {
		return time.Time{}, io.ErrUnexpectedEOF
	}

	// trailer
	tag := make([]byte, TagSize)
	if _, err := io.ReadFull(src, tag); err != nil {
		return time.Time{}, err
	}
	if !hmac.Equal(tag, mac.Sum(nil)) {
		return time.Time{}, ErrAuth
	}

	return time.Unix(0, int64(binary.LittleEndian.Uint64(ts))), nil
}
