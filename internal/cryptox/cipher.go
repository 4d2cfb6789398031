// Package cryptox implements the symmetric cipher used to store credential
// secrets (passwords, PINs, patterns) at rest.
//
// The persisted format is base64(iv || ciphertext): AES-CBC with a fresh
// random one-block IV per call and PKCS#7 padding. Changing the key makes
// all previously encrypted data unreadable; that is an operational
// invariant, not a bug.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/mwodeola/mwodeola-server/internal/common"
)

// Cipher encrypts and decrypts short text secrets with a process-wide key.
type Cipher struct {
	key []byte
}

// NewCipher constructs a Cipher from the given key. The key length must be
// a valid AES key size (16, 24 or 32 bytes).
func NewCipher(key []byte) (*Cipher, error) {
	if _, err := aes.NewCipher(key); err != nil {
		return nil, fmt.Errorf("cipher key: %w", err)
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Cipher{key: k}, nil
}

// Encrypt encrypts plaintext and returns base64(iv || ciphertext).
// A nil input encrypts to nil: absent fields stay absent, they are never
// turned into a ciphertext of an empty sentinel.
func (c *Cipher) Encrypt(plaintext *string) (*string, error) {
	if plaintext == nil {
		return nil, nil
	}

	padded := pad([]byte(*plaintext), aes.BlockSize)

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, aes.BlockSize+len(padded))
	copy(buf, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf[aes.BlockSize:], padded)

	enc := base64.StdEncoding.EncodeToString(buf)
	return &enc, nil
}

// Decrypt is the exact inverse of Encrypt. A nil input decrypts to nil.
// Malformed base64, truncated ciphertext and corrupted padding all fail
// with common.ErrDecryption; garbage plaintext is never returned silently.
func (c *Cipher) Decrypt(ciphertext *string) (*string, error) {
	if ciphertext == nil {
		return nil, nil
	}

	raw, err := base64.StdEncoding.DecodeString(*ciphertext)
	if err != nil {
		return nil, common.ErrDecryption
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return nil, common.ErrDecryption
	}

	iv, enc := raw[:aes.BlockSize], raw[aes.BlockSize:]

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}

	padded := make([]byte, len(enc))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, enc)

	plain, err := unpad(padded, aes.BlockSize)
	if err != nil {
		return nil, err
	}

	s := string(plain)
	return &s, nil
}

// pad appends PKCS#7 padding: n bytes of value n, n in [1, blockSize].
// A plaintext that is already block-aligned gets a full block of padding.
func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, common.ErrDecryption
	}
	n := int(b[len(b)-1])
	if n < 1 || n > blockSize {
		return nil, common.ErrDecryption
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, common.ErrDecryption
		}
	}
	return b[:len(b)-n], nil
}
