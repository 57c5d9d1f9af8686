package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTreeCmd(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (dir, treeID string) {
		t.Helper()

		dir = t.TempDir()
		_, err := runCmd(t, "-C", dir, "init")
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello\n"), 0o644))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "world.txt"), []byte("world\n"), 0o644))

		out, err := runCmd(t, "-C", dir, "write-tree")
		require.NoError(t, err)
		treeID = strings.TrimSuffix(out, "\n")
		require.Len(t, treeID, 40)
		return dir, treeID
	}

	t.Run("ls-tree should show the sorted entries", func(t *testing.T) {
		t.Parallel()

		dir, treeID := setup(t)
		out, err := runCmd(t, "-C", dir, "ls-tree", treeID)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "100644 blob "))
		assert.True(t, strings.HasSuffix(lines[0], "    hello.txt"))
		assert.True(t, strings.HasPrefix(lines[1], "040000 tree "))
		assert.True(t, strings.HasSuffix(lines[1], "    sub"))
	})

	t.Run("ls-tree --name-only should show only the names", func(t *testing.T) {
		t.Parallel()

		dir, treeID := setup(t)
		out, err := runCmd(t, "-C", dir, "ls-tree", "--name-only", treeID)
		require.NoError(t, err)
		assert.Equal(t, "hello.txt\nsub\n", out)
	})

	t.Run("write-tree should be deterministic", func(t *testing.T) {
		t.Parallel()

		dir, treeID := setup(t)
		out, err := runCmd(t, "-C", dir, "write-tree")
		require.NoError(t, err)
		assert.Equal(t, treeID+"\n", out)
	})

	t.Run("ls-tree should refuse a blob", func(t *testing.T) {
		t.Parallel()

		dir, _ := setup(t)
		_, err := runCmd(t, "-C", dir, "ls-tree", "ce01")
		require.Error(t, err)
	})
}
