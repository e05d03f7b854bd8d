// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/mdelaney/nutri-tui/internal/util"
)

// Stored value format: ENC:base64(salt | nonce | ciphertext+tag).
const (
	encryptedPrefix = "ENC:"
	saltSize        = 16
	nonceSize       = 12
	keySize         = 32
	kdfIterations   = 600_000
)

var (
	// ErrInvalidCiphertext indicates the stored value is not a valid sealed blob.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	// ErrDecryptionFailed indicates a wrong key or tampered data.
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")
)

// Crypter seals values with AES-256-GCM. The key material is a random
// machine-local key file; a per-value salt feeds PBKDF2-SHA-256 so two
// identical plaintexts never produce the same ciphertext.
type Crypter struct {
	keyMaterial []byte
}

// NewCrypter loads the key file, generating it on first use.
func NewCrypter(keyPath string) (*Crypter, error) {
	material, err := os.ReadFile(keyPath)
	if errors.Is(err, os.ErrNotExist) {
		material = make([]byte, keySize)
		if _, err := rand.Read(material); err != nil {
			return nil, fmt.Errorf("failed to generate key material: %w", err)
		}
		if err := util.AtomicWriteFile(keyPath, material, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write key file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return &Crypter{keyMaterial: material}, nil
}

// Encrypt seals plaintext into the ENC: storage format.
func (c *Crypter) Encrypt(plaintext []byte) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 0, saltSize+nonceSize+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *Crypter) Decrypt(value string) ([]byte, error) {
	if !strings.HasPrefix(value, encryptedPrefix) {
		return nil, ErrInvalidCiphertext
	}

	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encryptedPrefix))
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	if len(blob) < saltSize+nonceSize {
		return nil, ErrInvalidCiphertext
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	sealed := blob[saltSize+nonceSize:]

	gcm, err := c.aead(salt)
	if err != nil {
		return nil, err
	}

	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plain, nil
}

func (c *Crypter) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.keyMaterial, salt, kdfIterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
