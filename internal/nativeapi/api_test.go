package nativeapi

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0o644))
	}
}

func TestLocal_ReadDir(t *testing.T) {
	// Arrange
	root := t.TempDir()
	writeTree(t, root, "a.txt", "b.md", "sub/c.txt", "sub/deep/d.txt")
	api := NewLocal(root)
	ctx := context.Background()

	// Act
	flat, err := api.ReadDir(ctx, ".", ReadDirOptions{Relative: true})
	require.NoError(t, err)
	recursive, err := api.ReadDir(ctx, ".", ReadDirOptions{Recursive: true, Relative: true, FilterGlobs: []string{"**/*.txt"}})
	require.NoError(t, err)
	withDirs, err := api.ReadDir(ctx, ".", ReadDirOptions{IncludeDirectories: true, Relative: true})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, []string{"a.txt", "b.md"}, flat)
	assert.Equal(t, []string{"a.txt", "sub/c.txt", "sub/deep/d.txt"}, recursive)
	assert.Equal(t, []string{"a.txt", "b.md", "sub"}, withDirs)
}

func TestLocal_ReadWriteTextFile(t *testing.T) {
	api := NewLocal(t.TempDir())
	ctx := context.Background()

	require.NoError(t, api.WriteTextFile(ctx, "out/note.txt", "hello"))
	got, err := api.ReadTextFile(ctx, "out/note.txt")

	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestLocal_RejectsEscapes(t *testing.T) {
	api := NewLocal(t.TempDir())

	_, err := api.ReadTextFile(context.Background(), "../etc/passwd")

	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestLocal_InvalidGlob(t *testing.T) {
	api := NewLocal(t.TempDir())

	_, err := api.ReadDir(context.Background(), ".", ReadDirOptions{FilterGlobs: []string{"[oops"}})

	assert.Error(t, err)
}
