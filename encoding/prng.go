package enc

import (
	"encoding/binary"
	"golang.org/x/crypto/chacha20"
	"io"
)

// Generator is a keyed, seeded pseudorandom byte stream.
// The same key and the same seed always give the same stream.
type Generator interface {
	io.Reader
	Uint32() uint32
}

var _ Generator = (*_ChaChaGenerator)(nil)

type _ChaChaGenerator struct {
	stream *chacha20.Cipher
}

// Seed returns a new generator for the seed (usually a part file name).
// The generator key is HKDF(nameSecret, seed); the nonce is zero because every seed has its own key.
func (k *Key) Seed(seed string) Generator {
	key := expand(k.nameSecret, "gen:"+seed, chacha20.KeySize)
	stream, err := chacha20.NewUnauthenticatedCipher(key, make([]byte, chacha20.NonceSize))
	if err != nil {
		panic("can't create generator: " + err.Error()) // only with wrong key/nonce sizes
	}
	return &_ChaChaGenerator{stream: stream}
}

// Read fills p with the next bytes of the stream. It never fails.
func (g *_ChaChaGenerator) Read(p []byte) (int, error) {
	clear(p)
	g.stream.XORKeyStream(p, p)
	return len(p), nil
}

// Uint32 returns the next 4 bytes of the stream (little endian).
func (g *_ChaChaGenerator) Uint32() uint32 {
	var b [4]byte
	_, _ = g.Read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// Mask returns the 32-bit header mask of a part name.
// It is derived with its own HKDF info, so it shares nothing with the name chain of Seed(name).
func (k *Key) Mask(name string) uint32 {
	return binary.LittleEndian.Uint32(expand(k.nameSecret, "mask:"+name, 4))
}
