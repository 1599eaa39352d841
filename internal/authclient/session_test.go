package authclient

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_HydrateMissingFileStartsEmpty(t *testing.T) {
	session := NewSession(NewFileStorage(filepath.Join(t.TempDir(), "session.json")))

	require.NoError(t, session.Hydrate())
	assert.False(t, session.Authenticated())
}

func TestSession_PersistsAndHydrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	first := NewSession(NewFileStorage(path))
	require.NoError(t, first.Set(User{ID: "u1", Name: "Ann"}, "t1"))
	require.NoError(t, first.UpdateAccessToken("t2"))
	require.NoError(t, first.UpdateUser(User{ID: "u1", Name: "Anna"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second := NewSession(NewFileStorage(path))
	require.NoError(t, second.Hydrate())

	user, ok := second.User()
	require.True(t, ok)
	assert.Equal(t, "Anna", user.Name)
	assert.Equal(t, "t2", second.AccessToken())
}

func TestSession_ClearRemovesState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	session := NewSession(NewFileStorage(path))
	require.NoError(t, session.Set(User{ID: "u1"}, "t1"))

	require.NoError(t, session.Clear())
	require.NoError(t, session.Clear())

	assert.False(t, session.Authenticated())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSession_HydrateCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	assert.Error(t, NewSession(NewFileStorage(path)).Hydrate())
}
