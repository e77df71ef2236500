package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func testToken() *Token {
	return &Token{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-def",
		ObtainedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		ExpiresIn:    600,
	}
}

func TestEncryptedFileStorage_SaveLoadDelete(t *testing.T) {
	store := NewEncryptedFileStorage(t.TempDir())

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.Save(testToken()))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "access-abc", loaded.AccessToken)
	assert.Equal(t, "refresh-def", loaded.RefreshToken)
	assert.Equal(t, 600, loaded.ExpiresIn)
	assert.True(t, loaded.ObtainedAt.Equal(testToken().ObtainedAt))

	require.NoError(t, store.Delete())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestEncryptedFileStorage_FileIsEncrypted(t *testing.T) {
	dir := t.TempDir()
	store := NewEncryptedFileStorage(dir)
	require.NoError(t, store.Save(testToken()))

	raw, err := os.ReadFile(filepath.Join(dir, "tokens.json.enc"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "access-abc")
	assert.NotContains(t, string(raw), "refresh-def")
}

func TestEncryptedFileStorage_KeyFilePermissions(t *testing.T) {
	dir := t.TempDir()
	store := NewEncryptedFileStorage(dir)
	require.NoError(t, store.Save(testToken()))

	info, err := os.Stat(filepath.Join(dir, "tokens.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEncryptedFileStorage_OverwriteReplacesToken(t *testing.T) {
	store := NewEncryptedFileStorage(t.TempDir())
	require.NoError(t, store.Save(testToken()))

	rotated := testToken()
	rotated.AccessToken = "access-new"
	rotated.RefreshToken = "refresh-new"
	require.NoError(t, store.Save(rotated))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "access-new", loaded.AccessToken)
	assert.Equal(t, "refresh-new", loaded.RefreshToken)
}

func TestKeyringStorage_SaveLoadDelete(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStorage()

	require.NoError(t, store.Save(testToken()))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "access-abc", loaded.AccessToken)

	require.NoError(t, store.Delete())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	// Deleting again is a no-op, not an error.
	assert.NoError(t, store.Delete())
}
