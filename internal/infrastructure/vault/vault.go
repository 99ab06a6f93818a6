// Package vault seals tenant gateway credentials with AES-256-GCM.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	keySize = 32
	ivSize  = 12
	tagSize = 16
)

var (
	// ErrInvalidKey means the configured key is absent or not 64 hex characters.
	ErrInvalidKey = errors.New("vault key must be 64 hex characters")
	// ErrDecryptFailed is returned for any authentication or decoding failure.
	ErrDecryptFailed = errors.New("failed to decrypt credentials")
)

// Sealed holds the parts of one AES-GCM encryption.
type Sealed struct {
	Ciphertext []byte
	IV         []byte
	Tag        []byte
}

type Vault struct {
	aead cipher.AEAD
	rand io.Reader
}

// New builds a vault from a 64-character hex key.
func New(hexKey string) (*Vault, error) {
	if len(hexKey) != keySize*2 {
		return nil, ErrInvalidKey
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}

	return &Vault{aead: aead, rand: rand.Reader}, nil
}

// Encrypt seals plain under a fresh random IV.
func (v *Vault) Encrypt(plain map[string]string) (Sealed, error) {
	payload, err := json.Marshal(plain)
	if err != nil {
		return Sealed{}, fmt.Errorf("failed to encode credentials: %w", err)
	}
	return v.seal(payload)
}

// EncryptString seals a single secret such as a webhook signing secret.
func (v *Vault) EncryptString(plain string) (Sealed, error) {
	return v.seal([]byte(plain))
}

func (v *Vault) seal(payload []byte) (Sealed, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(v.rand, iv); err != nil {
		return Sealed{}, fmt.Errorf("failed to generate iv: %w", err)
	}

	out := v.aead.Seal(nil, iv, payload, nil)
	split := len(out) - tagSize
	return Sealed{
		Ciphertext: out[:split],
		IV:         iv,
		Tag:        out[split:],
	}, nil
}

// Decrypt opens a sealed credential map. Every failure is ErrDecryptFailed.
func (v *Vault) Decrypt(ciphertext, iv, tag []byte) (map[string]string, error) {
	payload, err := v.open(ciphertext, iv, tag)
	if err != nil {
		return nil, err
	}
	var plain map[string]string
	if err := json.Unmarshal(payload, &plain); err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}

func (v *Vault) DecryptString(ciphertext, iv, tag []byte) (string, error) {
	payload, err := v.open(ciphertext, iv, tag)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (v *Vault) open(ciphertext, iv, tag []byte) ([]byte, error) {
	if len(iv) != ivSize || len(tag) != tagSize {
		return nil, ErrDecryptFailed
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	payload, err := v.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return payload, nil
}
