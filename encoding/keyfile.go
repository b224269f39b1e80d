package enc

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
	"io"
	"os"
)

// KeyFileSize is the exact size of a key file.
const KeyFileSize = 128

// passphraseSalt is fixed: the same passphrase must always give the same key.
const passphraseSalt = "splitparts/passphrase/v1"

// Key manages the secrets used to encrypt parts and to derive part names.
type Key struct {
	cryptSecret []byte // for part data encryption
	nameSecret  []byte // for the keyed generator (part names, header mask)
	macSecret   []byte // for the part trailer
}

// NewKey derives all secrets from master key material (at least 32 bytes).
func NewKey(master []byte) (*Key, error) {
	if len(master) < 32 {
		return nil, errors.New("master key must be at least 32 bytes long")
	}
	k := new(Key)
	k.cryptSecret = expand(master, "master_secret", 64)
	k.nameSecret = expand(master, "hash_secret", 64)
	k.macSecret = expand(master, "mac_secret", 64)
	return k, nil
}

// LoadKeyFile read the 128 bytes key file and generate the secrets.
func LoadKeyFile(path string) (*Key, error) {

	// read key file
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// file size == 128 bytes
	if len(b) != KeyFileSize {
		return nil, errors.New("key file must be exactly 128 bytes long")
	}

	master := pbkdf2.Key(b, []byte("key_file"), 60000, 64, sha512.New)
	return NewKey(master)
}

// FromPassphrase derives the key from a passphrase (argon2id, 64 MiB).
func FromPassphrase(pass []byte) (*Key, error) {
	if len(pass) == 0 {
		return nil, errors.New("passphrase is empty")
	}
	master := argon2.IDKey(pass, []byte(passphraseSalt), 3, 64*1024, 4, 64)
	return NewKey(master)
}

// DataKey calculates the AES-256 key for the body of one part.
// The salt is random and stored in the part header.
func (k *Key) DataKey(salt []byte) []byte {
	return expandSalted(k.cryptSecret, salt, "data", 32)
}

// macKey calculates the HMAC key for the trailer of one part.
func (k *Key) macKey(salt []byte) []byte {
	return expandSalted(k.macSecret, salt, "mac", 32)
}

//--------------------------------------------------------------------------------------------------------------------//

// CreateKeyFile creates a new key file that contains exactly 128 random bytes.
// Existing files are NOT overwritten.
func CreateKeyFile(path string) error {
	// random key
	randKey := make([]byte, KeyFileSize)
	if _, err := io.ReadFull(rand.Reader, randKey); err != nil {
		return err
	}

	// don't overwrite files
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err = fh.Write(randKey); err != nil {
		_ = fh.Close()
		return err
	}
	if err = fh.Close(); err != nil {
		return err
	}

	// read test
	_, err = LoadKeyFile(path)
	return err
}

// ----------  HELPER  -----------------------------------------------------------------------------------------------//

func expand(secret []byte, info string, n int) []byte {
	return expandSalted(secret, nil, info, n)
}

// expandSalted is HKDF-SHA256. It can't fail for the small sizes used here.
func expandSalted(secret, salt []byte, info string, n int) []byte {
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(info)), out); err != nil {
		panic("hkdf: " + err.Error())
	}
	return out
}
