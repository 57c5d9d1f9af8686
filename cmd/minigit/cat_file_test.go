package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatFileCmd(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) string {
		t.Helper()

		dir := t.TempDir()
		_, err := runCmd(t, "-C", dir, "init")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello\n"), 0o644))

		_, err = runCmd(t, "-C", dir, "hash-object", "-w", filepath.Join(dir, "hello.txt"))
		require.NoError(t, err)
		return dir
	}

	t.Run("should print a blob verbatim", func(t *testing.T) {
		t.Parallel()

		dir := setup(t)
		out, err := runCmd(t, "-C", dir, "cat-file", "-p", "ce013625030ba8dba906f756967f9e9ca394464a")
		require.NoError(t, err)
		assert.Equal(t, "hello\n", out)
	})

	t.Run("should accept an abbreviated name", func(t *testing.T) {
		t.Parallel()

		dir := setup(t)
		out, err := runCmd(t, "-C", dir, "cat-file", "-p", "ce01")
		require.NoError(t, err)
		assert.Equal(t, "hello\n", out)
	})

	t.Run("should print a tree like ls-tree", func(t *testing.T) {
		t.Parallel()

		dir := setup(t)
		out, err := runCmd(t, "-C", dir, "write-tree")
		require.NoError(t, err)
		treeID := strings.TrimSuffix(out, "\n")

		out, err = runCmd(t, "-C", dir, "cat-file", "-p", treeID)
		require.NoError(t, err)
		assert.Equal(t, "100644 blob ce013625030ba8dba906f756967f9e9ca394464a    hello.txt\n", out)
	})

	t.Run("should require -p", func(t *testing.T) {
		t.Parallel()

		dir := setup(t)
		_, err := runCmd(t, "-C", dir, "cat-file", "ce01")
		require.Error(t, err)
	})

	t.Run("should fail on an unknown object", func(t *testing.T) {
		t.Parallel()

		dir := setup(t)
		_, err := runCmd(t, "-C", dir, "cat-file", "-p", "dead")
		require.Error(t, err)
	})
}
