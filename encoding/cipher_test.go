package enc_test

import (
	"bytes"
	"errors"
	enc "github.com/SchnorcherSepp/splitparts/encoding"
	"io"
	"testing"
	"time"
)

func testKey(t *testing.T, b byte) *enc.Key {
	k, err := enc.NewKey(bytes.Repeat([]byte{b}, 64))
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func TestEncryptDecrypt(t *testing.T) {
	k := testKey(t, 1)
	mtime := time.Date(2019, 3, 4, 5, 6, 7, 891, time.UTC)

	for _, size := range []int{0, 1, 15, 16, 17, 1000, 64*1024 + 3} {
		plain := make([]byte, size)
		for i := range plain {
			plain[i] = byte(i * 7)
		}

		// source is longer than n: only n bytes are used
		src := bytes.NewReader(append(plain, 0xAA, 0xBB))
		part := new(bytes.Buffer)
		if err := k.Encrypt(part, src, int64(size), 0xCAFEBABE, mtime); err != nil {
			t.Fatalf("size=%d: %v", size, err)
		}
		if int64(part.Len()) != int64(size)+k.Overhead() {
			t.Fatalf("size=%d: wrong part size %d", size, part.Len())
		}
		if src.Len() != 2 {
			t.Errorf("size=%d: encrypt read too much", size)
		}

		// header id
		id, err := k.HeaderID(bytes.NewReader(part.Bytes()))
		if err != nil || id != 0xCAFEBABE {
			t.Errorf("size=%d: id=%x, err=%v", size, id, err)
		}

		// cipher text is not plain text
		if size >= 16 && bytes.Contains(part.Bytes(), plain) {
			t.Errorf("size=%d: plain text in part", size)
		}

		// decrypt
		out := new(bytes.Buffer)
		ts, err := k.Decrypt(out, bytes.NewReader(part.Bytes()), int64(part.Len()))
		if err != nil {
			t.Fatalf("size=%d: %v", size, err)
		}
		if !bytes.Equal(out.Bytes(), plain) {
			t.Errorf("size=%d: wrong plain text", size)
		}
		if !ts.Equal(mtime) {
			t.Errorf("size=%d: wrong timestamp %v", size, ts)
		}
	}
}

func TestEncryptShortSource(t *testing.T) {
	k := testKey(t, 1)
	err := k.Encrypt(io.Discard, bytes.NewReader(make([]byte, 10)), 11, 1, time.Now())
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("wrong error: %v", err)
	}
}

func TestDecryptFail(t *testing.T) {
	k := testKey(t, 1)
	part := new(bytes.Buffer)
	if err := k.Encrypt(part, bytes.NewReader([]byte("hello world")), 11, 1, time.Now()); err != nil {
		t.Fatal(err)
	}
	b := part.Bytes()

	// too short
	if _, err := k.Decrypt(io.Discard, bytes.NewReader(b[:10]), 10); !errors.Is(err, enc.ErrTooShort) {
		t.Errorf("wrong error: %v", err)
	}

	// flipped body byte
	bad := append([]byte{}, b...)
	bad[enc.HeaderSize+enc.TimestampSize+2] ^= 0x01
	if _, err := k.Decrypt(io.Discard, bytes.NewReader(bad), int64(len(bad))); !errors.Is(err, enc.ErrAuth) {
		t.Errorf("wrong error: %v", err)
	}

	// flipped header id
	bad = append([]byte{}, b...)
	bad[0] ^= 0x01
	if _, err := k.Decrypt(io.Discard, bytes.NewReader(bad), int64(len(bad))); !errors.Is(err, enc.ErrAuth) {
		t.Errorf("wrong error: %v", err)
	}

	// wrong key
	if _, err := testKey(t, 2).Decrypt(io.Discard, bytes.NewReader(b), int64(len(b))); !errors.Is(err, enc.ErrAuth) {
		t.Errorf("wrong error: %v", err)
	}

	// unknown version
	bad = append([]byte{}, b...)
	bad[4] = 9
	if _, err := k.Decrypt(io.Discard, bytes.NewReader(bad), int64(len(bad))); !errors.Is(err, enc.ErrVersion) {
		t.Errorf("wrong error: %v", err)
	}
	if _, err := k.HeaderID(bytes.NewReader(bad)); !errors.Is(err, enc.ErrVersion) {
		t.Errorf("wrong error: %v", err)
	}
}

func TestHeaderMarshal(t *testing.T) {
	h := enc.Header{ID: 0x01020304, Version: 1, MinVersion: 1, MaxVersion: 1}
	copy(h.Salt[:], "0123456789abcdef")

	b := h.Marshal()
	if len(b) != enc.HeaderSize {
		t.Fatalf("wrong size: %d", len(b))
	}
	if b[0] != 0x04 || b[3] != 0x01 {
		t.Errorf("id is not little endian: %x", b[:4])
	}

	h2, err := enc.UnmarshalHeader(b)
	if err != nil {
		t.Fatal(err)
	}
	if h2 != h {
		t.Errorf("%+v != %+v", h2, h)
	}

	if _, err := enc.UnmarshalHeader(b[:enc.HeaderSize-1]); err == nil {
		t.Error("no error")
	}
}

func TestGenerator(t *testing.T) {
	k := testKey(t, 1)

	a := make([]byte, 100)
	b := make([]byte, 100)
	_, _ = k.Seed("seed").Read(a)
	_, _ = k.Seed("seed").Read(b)
	if !bytes.Equal(a, b) {
		t.Error("same seed, different stream")
	}

	// reading in pieces gives the same stream
	g := k.Seed("seed")
	c := make([]byte, 0, 100)
	for i := 0; i < 25; i++ {
		v := g.Uint32()
		c = append(c, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
	if !bytes.Equal(a, c) {
		t.Error("Uint32 stream differs from Read stream")
	}

	_, _ = k.Seed("other").Read(b)
	if bytes.Equal(a, b) {
		t.Error("different seed, same stream")
	}
	_, _ = testKey(t, 2).Seed("seed").Read(b)
	if bytes.Equal(a, b) {
		t.Error("different key, same stream")
	}
}

func TestMask(t *testing.T) {
	k := testKey(t, 1)

	if k.Mask("name") != k.Mask("name") {
		t.Error("mask not deterministic")
	}
	if k.Mask("name") == k.Mask("other") {
		t.Error("different names, same mask")
	}
	if k.Mask("name") == testKey(t, 2).Mask("name") {
		t.Error("different keys, same mask")
	}
	if k.Mask("name") == k.Seed("name").Uint32() {
		t.Error("mask is the start of the generator stream")
	}
}
