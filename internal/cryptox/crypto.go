// Package cryptox implements the AEAD cipher engine: AES-256-GCM over
// per-owner master keys, with base64 transport encoding.
package cryptox

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// NonceSize is the GCM nonce length in bytes.
const NonceSize = 12

// ErrDecrypt is returned for every decryption failure: authentication-tag
// mismatch, malformed nonce, malformed ciphertext. The cause is deliberately
// not distinguished so callers cannot be used as a padding or format oracle.
var ErrDecrypt = errors.New("decryption failed")

// KeySource supplies the stable master key of an owner.
type KeySource interface {
	GetOrCreate(ctx context.Context, ownerID string) ([]byte, error)
}

// Engine performs authenticated encryption with keys from a KeySource.
type Engine struct {
	keys KeySource
}

// NewEngine constructs an Engine over the given key source.
func NewEngine(keys KeySource) *Engine {
	return &Engine{keys: keys}
}

// Encrypt encrypts plaintext for the owner with a fresh random 96-bit nonce
// and returns the ciphertext and nonce, both base64-encoded. The empty
// string is a valid plaintext.
func (e *Engine) Encrypt(ctx context.Context, ownerID, plaintext string) (string, string, error) {
	key, err := e.keys.GetOrCreate(ctx, ownerID)
	if err != nil {
		return "", "", fmt.Errorf("fetch key: %w", err)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return "", "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext),
		base64.StdEncoding.EncodeToString(nonce), nil
}

// Decrypt authenticates and decrypts a base64 ciphertext/nonce pair for the
// owner. Any malformed input or failed authentication yields ErrDecrypt;
// partial plaintext is never returned. The caller is responsible for the
// unlock gate.
func (e *Engine) Decrypt(ctx context.Context, ownerID, ciphertextB64, nonceB64 string) (string, error) {
	key, err := e.keys.GetOrCreate(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("fetch key: %w", err)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", ErrDecrypt
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return "", ErrDecrypt
	}
	if len(nonce) != NonceSize {
		return "", ErrDecrypt
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}

// newAEAD builds an AES-256-GCM cipher from a 32-byte key.
func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}
