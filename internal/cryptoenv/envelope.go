// Package cryptoenv implements the optional AES-256-GCM envelope for
// chat payloads. File-transfer records are never wrapped by this
// package; encryption here is purely a courtesy for the free-form chat
// channel, independent of the transfer protocol's own integrity check
// (the per-chunk and whole-file CRC16).
package cryptoenv

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const (
	prefix    = "ENC:"
	nonceSize = 12
	keySize   = 32
)

// Envelope encrypts and decrypts chat lines with a single pre-shared
// 256-bit key, shared out of band between both ends of the link.
type Envelope struct {
	aead cipher.AEAD
}

// New builds an Envelope from a 32-byte key.
func New(key [keySize]byte) (*Envelope, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cryptoenv: building AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptoenv: building GCM: %w", err)
	}
	return &Envelope{aead: aead}, nil
}

// Encrypt wraps plaintext as "ENC:" + base64(nonce || ciphertext || tag).
func (e *Envelope) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cryptoenv: reading nonce: %w", err)
	}
	sealed := e.aead.Seal(nil, nonce, []byte(plaintext), nil)
	combined := append(nonce, sealed...)
	return prefix + base64.StdEncoding.EncodeToString(combined), nil
}

// Decrypt reverses Encrypt. It returns ok=false for anything that isn't
// a well-formed, authentic envelope for this key: wrong prefix, bad
// base64, undersized payload, or a failed GCM tag check all collapse to
// the same "not decryptable" result, matching
// crypto_utils.decrypt's blanket except-and-return-None behavior.
func (e *Envelope) Decrypt(msg string) (plaintext string, ok bool) {
	if !IsEncrypted(msg) {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(msg, prefix))
	if err != nil || len(raw) < nonceSize {
		return "", false
	}
	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	opened, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", false
	}
	return string(opened), true
}

// IsEncrypted reports whether msg carries the envelope prefix.
func IsEncrypted(msg string) bool {
	return strings.HasPrefix(msg, prefix)
}

// LoadOrCreateKey reads a hex-encoded 256-bit key from path, generating
// and persisting (mode 0600) a fresh one if the file does not exist —
// the Go equivalent of get_or_create_key.
func LoadOrCreateKey(path string) ([keySize]byte, error) {
	var key [keySize]byte

	data, err := os.ReadFile(path)
	if err == nil {
		decoded, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return key, fmt.Errorf("cryptoenv: key file %s is not valid hex: %w", path, err)
		}
		if len(decoded) != keySize {
			return key, fmt.Errorf("cryptoenv: key file %s has %d bytes, want %d", path, len(decoded), keySize)
		}
		copy(key[:], decoded)
		return key, nil
	}
	if !os.IsNotExist(err) {
		return key, fmt.Errorf("cryptoenv: reading key file %s: %w", path, err)
	}

	key, err = GenerateKey()
	if err != nil {
		return key, err
	}
	encoded := hex.EncodeToString(key[:])
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return key, fmt.Errorf("cryptoenv: writing key file %s: %w", path, err)
	}
	return key, nil
}

// GenerateKey returns a fresh random 256-bit key, the Go equivalent of
// crypto_utils.generate_key.
func GenerateKey() ([keySize]byte, error) {
	var key [keySize]byte
	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("cryptoenv: generating key: %w", err)
	}
	return key, nil
}
