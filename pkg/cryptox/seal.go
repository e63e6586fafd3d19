package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealVersion prefixes sealed values so the format can change later.
const sealVersion = "v1."

var ErrUnseal = errors.New("cryptox: cannot unseal value")

// Sealer encrypts small secrets for storage at rest using XChaCha20-Poly1305
// with a key derived from configured key material via HKDF-SHA256.
type Sealer struct {
	key []byte
}

// NewSealer derives a sealing key from material. The context string binds
// the derived key to one purpose, so the same material can serve several.
func NewSealer(material []byte, context string) (*Sealer, error) {
	if len(material) == 0 {
		return nil, errors.New("cryptox: empty key material")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, material, nil, []byte(context))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("cryptox: derive key: %w", err)
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts plaintext and returns "v1." + base64url(nonce || ciphertext).
// The additional data is authenticated but not stored; pass the same value to
// Open.
func (s *Sealer) Seal(plaintext, additional []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cryptox: nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, plaintext, additional)
	return sealVersion + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string, additional []byte) ([]byte, error) {
	if len(sealed) < len(sealVersion) || sealed[:len(sealVersion)] != sealVersion {
		return nil, ErrUnseal
	}
	raw, err := base64.RawURLEncoding.DecodeString(sealed[len(sealVersion):])
	if err != nil {
		return nil, ErrUnseal
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrUnseal
	}

	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, additional)
	if err != nil {
		return nil, ErrUnseal
	}
	return pt, nil
}
