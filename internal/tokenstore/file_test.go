package tokenstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	store := NewFile(filepath.Join(t.TempDir(), "strava_tokens.json"))

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strava_tokens.json")
	store := NewFile(path)

	require.NoError(t, store.Save(Pair{AccessToken: "a-1", RefreshToken: "r-1"}))

	pair, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, Pair{AccessToken: "a-1", RefreshToken: "r-1"}, pair)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveOverwritesWholeDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strava_tokens.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"old","refresh_token":"old-r","athlete":{"id":1}}`), 0o600))

	store := NewFile(path)
	require.NoError(t, store.Save(Pair{AccessToken: "new", RefreshToken: "new-r"}))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"access_token":"new","refresh_token":"new-r"}`, string(body))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file should not be left behind")
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strava_tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFile(path).Load()
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
