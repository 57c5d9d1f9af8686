package fsbackend_test

import (
	"testing"

	"github.com/minigit-scm/minigit/backend/fsbackend"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) (*fsbackend.Backend, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	b := fsbackend.New(fs, ".git")
	require.NoError(t, b.Init())
	return b, fs
}

func TestInit(t *testing.T) {
	t.Parallel()

	_, fs := newBackend(t)

	for _, dir := range []string{".git", ".git/objects", ".git/refs", ".git/refs/heads"} {
		info, err := fs.Stat(dir)
		require.NoError(t, err, "%s should exist", dir)
		assert.True(t, info.IsDir(), "%s should be a directory", dir)
	}

	data, err := afero.ReadFile(fs, ".git/HEAD")
	require.NoError(t, err)
	assert.Equal(t, "ref: refs/heads/main\n", string(data))

	data, err = afero.ReadFile(fs, ".git/config")
	require.NoError(t, err)
	assert.Contains(t, string(data), "repositoryformatversion")

	_, err = fs.Stat(".git/description")
	require.NoError(t, err)
}

func TestInitIsIdempotent(t *testing.T) {
	t.Parallel()

	b, _ := newBackend(t)
	assert.NoError(t, b.Init())
}

func TestUserSignature(t *testing.T) {
	t.Parallel()

	t.Run("should fall back to the default identity", func(t *testing.T) {
		t.Parallel()

		b, _ := newBackend(t)
		sig, err := b.UserSignature()
		require.NoError(t, err)
		assert.Equal(t, "123abc", sig.Name)
		assert.Equal(t, "123abc@example.com", sig.Email)
	})

	t.Run("should use the user section when set", func(t *testing.T) {
		t.Parallel()

		b, fs := newBackend(t)
		cfg := "[user]\n\tname = Jane Doe\n\temail = jane@example.com\n"
		require.NoError(t, afero.WriteFile(fs, ".git/config", []byte(cfg), 0o644))

		sig, err := b.UserSignature()
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", sig.Name)
		assert.Equal(t, "jane@example.com", sig.Email)
	})

	t.Run("should default when the config file is missing", func(t *testing.T) {
		t.Parallel()

		b, fs := newBackend(t)
		require.NoError(t, fs.Remove(".git/config"))

		sig, err := b.UserSignature()
		require.NoError(t, err)
		assert.Equal(t, "123abc", sig.Name)
	})
}
