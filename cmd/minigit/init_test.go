package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCmd executes the CLI with the given args and returns stdout
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInitCmd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out, err := runCmd(t, "-C", dir, "init")
	require.NoError(t, err)
	assert.Equal(t, "Initialized git directory\n", out)

	head, err := os.ReadFile(filepath.Join(dir, ".git", "HEAD"))
	require.NoError(t, err)
	assert.Equal(t, "ref: refs/heads/main\n", string(head))

	for _, sub := range []string{"objects", "refs"} {
		info, err := os.Stat(filepath.Join(dir, ".git", sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
