package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttach(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("some plain text notes\n"), 0644))

	f, err := Attach(path)
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "notes.txt", f.Name)
	assert.EqualValues(t, 22, f.Size)
	assert.True(t, strings.HasPrefix(f.Type, "text/plain"), f.Type)
	assert.Equal(t, "file://"+filepath.ToSlash(path), f.URL)
	assert.Empty(t, f.Data)
}

func TestAttachErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Attach(dir)
	assert.ErrorContains(t, err, "is a directory")

	_, err = AttachAll([]string{filepath.Join(dir, "missing.txt")})
	assert.ErrorContains(t, err, "missing.txt")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandPath("~/chats.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "chats.db"), expanded)

	expanded, err = ExpandPath("/var/chats.db")
	require.NoError(t, err)
	assert.Equal(t, "/var/chats.db", expanded)
}

func TestCreateDirectoryIfNotExist(t *testing.T) {
	directory := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, CreateDirectoryIfNotExist(directory))
	ok, err := DirectoryExists(directory)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, CreateDirectoryIfNotExist(directory))
}
