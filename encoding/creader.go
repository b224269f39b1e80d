package enc

import (
	"crypto/cipher"
	"errors"
	"io"
)

var _ io.Reader = (*_CryptoReader)(nil)

type _CryptoReader struct {
	inner  io.Reader
	stream cipher.Stream
	err    error
}

// CryptoReader decrypts or encrypts a given reader.
// cryptOff is for the correct encryption position.
// A wrong key length is reported by the first Read.
func CryptoReader(r io.Reader, cryptOff int64, dataKey []byte) io.Reader {
	stream, err := newCTR(dataKey, cryptOff)
	return &_CryptoReader{
		inner:  r,
		stream: stream,
		err:    err,
	}
}

//--------------------------------------------------------------------------------------------------------------------//

func (cr *_CryptoReader) Read(p []byte) (n int, err error) {
	// nil reader check
	if cr.inner == nil {
		return 0, errors.New("inner reader is nil")
	}
	if cr.err != nil {
		return 0, cr.err
	}

	// read
	n, err = cr.inner.Read(p)

	// crypt (the stream keeps the position)
	cr.stream.XORKeyStream(p[:n], p[:n])

	// return n AND error
	return n, err
}
