package enc_test

import (
	"bytes"
	"encoding/hex"
	enc "github.com/SchnorcherSepp/splitparts/encoding"
	"io"
	"testing"
)

func TestCryptoReader(t *testing.T) {
	key, _ := hex.DecodeString("1f685083dcddadb70c3d9d93da8eabb42176a09e2784d5766c06302ef542d2db")

	// reader is nil
	r := enc.CryptoReader(nil, 0, key)
	if n, err := r.Read(make([]byte, 12)); n != 0 || err == nil {
		t.Error("no error")
	}

	// wrong key length
	r = enc.CryptoReader(bytes.NewReader([]byte{'X'}), 0, key[:5])
	if n, err := r.Read(make([]byte, 12)); n != 0 || err == nil {
		t.Error("no error")
	}

	// empty inner reader
	buf := make([]byte, 4)
	r = enc.CryptoReader(bytes.NewReader([]byte{}), 0, key)
	if n, err := r.Read(buf); n != 0 || err != io.EOF {
		t.Errorf("n=%d, err=%v", n, err)
	}

	// inner reader with 1 byte; read 4 bytes
	r = enc.CryptoReader(bytes.NewReader([]byte{'X'}), 0, key)
	if n, err := r.Read(buf); n != 1 || err != nil {
		t.Errorf("n=%d, err=%v", n, err)
	}
	if n, err := r.Read(buf); n != 0 || err != io.EOF { // second read
		t.Errorf("n=%d, err=%v", n, err)
	}

	// plain text
	plain := make([]byte, 32*1024+1)
	for i := range plain {
		plain[i] = byte(i % 256)
	}

	whole, err := io.ReadAll(enc.CryptoReader(bytes.NewReader(plain), 0, key))
	if err != nil {
		t.Fatal(err)
	}

	// a reader started at an offset continues the stream of the whole body
	for _, off := range []int64{0, 1, 15, 16, 17, 4095, 32 * 1024} {
		got, err := io.ReadAll(enc.CryptoReader(bytes.NewReader(plain[off:]), off, key))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, whole[off:]) {
			t.Errorf("off=%d: offset stream differs", off)
		}

		// twice == plain
		back, err := io.ReadAll(enc.CryptoReader(bytes.NewReader(got), off, key))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(back, plain[off:]) {
			t.Errorf("off=%d: decrypt fail", off)
		}
	}

	// small reads keep the stream position
	small := make([]byte, 0, len(plain))
	r = enc.CryptoReader(bytes.NewReader(plain), 0, key)
	tmp := make([]byte, 3)
	for {
		n, err := r.Read(tmp)
		small = append(small, tmp[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if !bytes.Equal(small, whole) {
		t.Error("small reads: stream differs")
	}
}
