package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionFile_LoadMissing(t *testing.T) {
	f := NewSessionFile(filepath.Join(t.TempDir(), "none.json"))
	u, err := f.Load()
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestSessionFile_SaveLoadClear(t *testing.T) {
	f := NewSessionFile(filepath.Join(t.TempDir(), "session.json"))

	require.NoError(t, f.Save(&User{UID: "u1", Email: "a@b.c"}))
	u, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, &User{UID: "u1", Email: "a@b.c"}, u)

	require.NoError(t, f.Clear())
	require.NoError(t, f.Clear())
	u, err = f.Load()
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestSessionFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewSessionFile(path).Load()
	assert.Error(t, err)
}
