// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err, "Open failed")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGetDelete(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(KeyUser)
	assert.ErrorIs(t, err, ErrNotFound, "Get on empty store")

	require.NoError(t, s.Set(KeyUser, `{"id":1,"username":"alice"}`))

	got, err := s.Get(KeyUser)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"username":"alice"}`, got)

	// Overwrite replaces.
	require.NoError(t, s.Set(KeyUser, `{"id":2,"username":"bob"}`))
	got, err = s.Get(KeyUser)
	require.NoError(t, err)
	assert.Contains(t, got, "bob", "overwrite not applied")

	require.NoError(t, s.Delete(KeyUser))
	_, err = s.Get(KeyUser)
	assert.ErrorIs(t, err, ErrNotFound, "Get after Delete")

	// Deleting an absent key is fine.
	assert.NoError(t, s.Delete("never-set"))
}

func TestSecretRoundTrip(t *testing.T) {
	s := openTestStore(t)

	token := "eyJhbGciOiJIUzI1NiJ9.secret-token-payload"
	require.NoError(t, s.SetSecret(KeyToken, token))

	// The raw stored value must not contain the plaintext.
	raw, err := s.Get(KeyToken)
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret-token-payload", "secret stored in plaintext")
	assert.True(t, strings.HasPrefix(raw, "ENC:"), "stored secret missing ENC: prefix: %q", raw[:8])

	got, err := s.GetSecret(KeyToken)
	require.NoError(t, err)
	assert.Equal(t, token, got)
}

func TestSecretSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetSecret(KeyToken, "tok-123"))
	s.Close()

	// Reopen with the same key file on disk.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.GetSecret(KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", got)
}

func TestCrypterRejectsTamperedData(t *testing.T) {
	c, err := NewCrypter(filepath.Join(t.TempDir(), "state.key"))
	require.NoError(t, err)

	sealed, err := c.Encrypt([]byte("payload"))
	require.NoError(t, err)

	// Flip a character near the end of the base64 body.
	tampered := sealed[:len(sealed)-2] + "A="
	_, err = c.Decrypt(tampered)
	assert.Error(t, err, "Decrypt of tampered ciphertext should fail")

	_, err = c.Decrypt("not-sealed")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}
