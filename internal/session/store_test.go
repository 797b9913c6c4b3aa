package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brizzai/cogauth/internal/auth/models"
	"github.com/brizzai/cogauth/internal/config"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTokens() *models.Tokens {
	return &models.Tokens{
		AccessToken:  "access",
		IDToken:      "id",
		RefreshToken: "refresh",
		ExpiresAt:    time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
		LoginID:      "a@b.com",
	}
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"file": func(t *testing.T) Store {
			return NewFileStore(&config.SessionConfig{Path: filepath.Join(t.TempDir(), "nested", "session.yaml")})
		},
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			_, err := store.Load()
			assert.ErrorIs(t, err, models.ErrNoSession)

			require.NoError(t, store.Save(sampleTokens()))

			got, err := store.Load()
			require.NoError(t, err)
			if diff := cmp.Diff(sampleTokens(), got); diff != "" {
				t.Errorf("loaded tokens mismatch (-want +got):\n%s", diff)
			}

			require.NoError(t, store.Clear())
			_, err = store.Load()
			assert.ErrorIs(t, err, models.ErrNoSession)

			// clearing twice is fine
			assert.NoError(t, store.Clear())
		})
	}
}

func TestFileStore_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	store := NewFileStore(&config.SessionConfig{Path: path})
	require.NoError(t, store.Save(sampleTokens()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("access_token: [unterminated"), 0o600))

	_, err := NewFileStore(&config.SessionConfig{Path: path}).Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrNoSession)
}

func TestFileStore_EmptyFileIsNoSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("login_id: a@b.com\n"), 0o600))

	_, err := NewFileStore(&config.SessionConfig{Path: path}).Load()
	assert.ErrorIs(t, err, models.ErrNoSession)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	tokens := sampleTokens()
	require.NoError(t, store.Save(tokens))
	tokens.AccessToken = "mutated"

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
}
