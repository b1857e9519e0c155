package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Name  string
	Count int
	Tags  []string
}

func TestSaveLoadGob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "snap.gob")
	in := snapshot{Name: "views", Count: 3, Tags: []string{"a", "b"}}

	require.NoError(t, SaveGob(path, in))

	var out snapshot
	require.NoError(t, LoadGob(path, &out))
	assert.Equal(t, in, out)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestSaveGobOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.gob")
	require.NoError(t, SaveGob(path, snapshot{Name: "first"}))
	require.NoError(t, SaveGob(path, snapshot{Name: "second"}))

	var out snapshot
	require.NoError(t, LoadGob(path, &out))
	assert.Equal(t, "second", out.Name)
}

func TestLoadGobMissing(t *testing.T) {
	var out snapshot
	err := LoadGob(filepath.Join(t.TempDir(), "missing.gob"), &out)
	assert.Equal(t, os.ErrNotExist, err)
}

func TestLoadGobCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gob")
	require.NoError(t, os.WriteFile(path, []byte("not gob"), 0600))

	var out snapshot
	assert.Error(t, LoadGob(path, &out))
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.gob")
	require.NoError(t, SaveGob(path, snapshot{}))
	require.NoError(t, Remove(path))
	require.NoError(t, Remove(path), "removing twice is fine")

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
