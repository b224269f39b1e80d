package enc

import (
	"crypto/aes"
	"crypto/cipher"
)

// newCTR returns an AES-CTR stream positioned at offset of a part body.
//
//   The nonce is static! Therefore, each part MUST have its own key (@see Key.DataKey).
//   Counter start at 0 and changes with the offset.
//   There is no padding.
func newCTR(key []byte, offset int64) (cipher.Stream, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	// counter = number of the block holding offset (big endian, like cipher.NewCTR increments it)
	iv := make([]byte, aes.BlockSize)
	blockNo := uint64(offset / aes.BlockSize)
	for i := 0; i < 8; i++ {
		iv[aes.BlockSize-1-i] = byte(blockNo >> (8 * i))
	}
	stream := cipher.NewCTR(block, iv)

	// skip the bytes before offset inside that block
	if skip := offset % aes.BlockSize; skip != 0 {
		tmp := make([]byte, skip)
		stream.XORKeyStream(tmp, tmp)
	}
	return stream, nil
}
