package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
)

// ErrEmptyKey is returned when a Box is built without key material.
var ErrEmptyKey = errors.New("crypto: empty key")

// Box seals secrets at rest with AES-256-GCM. The nonce is prepended to the ciphertext.
type Box struct {
	aead cipher.AEAD
}

// NewBox derives a 32-byte key from secret via SHA-256.
func NewBox(secret string) (*Box, error) {
	if secret == "" {
		return nil, ErrEmptyKey
	}
	sum := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Box{aead: gcm}, nil
}

// Seal encrypts plaintext. Empty input yields nil so optional columns stay NULL.
func (b *Box) Seal(plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, nil
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return b.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Open reverses Seal.
func (b *Box) Open(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}
	nonceSize := b.aead.NonceSize()
	if len(payload) < nonceSize {
		return "", io.ErrUnexpectedEOF
	}
	plain, err := b.aead.Open(nil, payload[:nonceSize], payload[nonceSize:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
