// Package crypto seals individual text columns with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// sealedPrefix marks a value written by an enabled Cipher. Values without it
// are plaintext rows written before a key was configured.
const sealedPrefix byte = 0x01

var ErrKeyRequired = errors.New("sealed value found but DATA_ENCRYPTION_KEY is not set")

// Cipher is a no-op passthrough when built without a key.
type Cipher struct {
	aead cipher.AEAD
}

func New(key string) (*Cipher, error) {
	if key == "" {
		return &Cipher{}, nil
	}
	decoded, err := decodeKey(key)
	if err != nil {
		return nil, err
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must be 32 bytes after decoding")
	}
	block, err := aes.NewCipher(decoded)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

func (c *Cipher) Enabled() bool {
	return c != nil && c.aead != nil
}

func (c *Cipher) SealString(value string) ([]byte, error) {
	if value == "" {
		return []byte{}, nil
	}
	if !c.Enabled() {
		return []byte(value), nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+len(nonce)+len(value)+c.aead.Overhead())
	out = append(out, sealedPrefix)
	out = append(out, nonce...)
	return c.aead.Seal(out, nonce, []byte(value), nil), nil
}

func (c *Cipher) OpenString(stored []byte) (string, error) {
	if len(stored) == 0 {
		return "", nil
	}
	if stored[0] != sealedPrefix {
		return string(stored), nil
	}
	if !c.Enabled() {
		return "", ErrKeyRequired
	}
	body := stored[1:]
	if len(body) < c.aead.NonceSize() {
		return "", errors.New("sealed value too short")
	}
	nonce, data := body[:c.aead.NonceSize()], body[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, data, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func decodeKey(raw string) ([]byte, error) {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded, nil
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return decoded, nil
	}
	return []byte(raw), nil
}
