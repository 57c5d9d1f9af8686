package ginternals_test

import (
	"fmt"
	"testing"

	"github.com/minigit-scm/minigit/ginternals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveReference(t *testing.T) {
	t.Parallel()

	oid, err := ginternals.NewOidFromStr("ce013625030ba8dba906f756967f9e9ca394464a")
	require.NoError(t, err)

	t.Run("should resolve an oid reference", func(t *testing.T) {
		t.Parallel()

		finder := func(name string) ([]byte, error) {
			return []byte(oid.String() + "\n"), nil
		}

		ref, err := ginternals.ResolveReference("refs/heads/main", finder)
		require.NoError(t, err)
		assert.Equal(t, ginternals.OidReference, ref.Type())
		assert.Equal(t, oid, ref.Target())
		assert.Equal(t, "refs/heads/main", ref.Name())
	})

	t.Run("should follow a symbolic reference", func(t *testing.T) {
		t.Parallel()

		contents := map[string]string{
			"HEAD":            "ref: refs/heads/main\n",
			"refs/heads/main": oid.String() + "\n",
		}
		finder := func(name string) ([]byte, error) {
			data, ok := contents[name]
			if !ok {
				return nil, ginternals.ErrRefNotFound
			}
			return []byte(data), nil
		}

		ref, err := ginternals.ResolveReference("HEAD", finder)
		require.NoError(t, err)
		assert.Equal(t, ginternals.SymbolicReference, ref.Type())
		assert.Equal(t, "refs/heads/main", ref.SymbolicTarget())
		assert.Equal(t, oid, ref.Target())
	})

	t.Run("should catch circular references", func(t *testing.T) {
		t.Parallel()

		contents := map[string]string{
			"refs/heads/a": "ref: refs/heads/b\n",
			"refs/heads/b": "ref: refs/heads/a\n",
		}
		finder := func(name string) ([]byte, error) {
			return []byte(contents[name]), nil
		}

		_, err := ginternals.ResolveReference("refs/heads/a", finder)
		require.Error(t, err)
		assert.ErrorIs(t, err, ginternals.ErrRefInvalid)
	})

	t.Run("should reject invalid content", func(t *testing.T) {
		t.Parallel()

		finder := func(name string) ([]byte, error) {
			return []byte("nope"), nil
		}

		_, err := ginternals.ResolveReference("refs/heads/main", finder)
		require.Error(t, err)
		assert.ErrorIs(t, err, ginternals.ErrRefInvalid)
	})
}

func TestIsRefNameValid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		valid bool
	}{
		{name: "refs/heads/main", valid: true},
		{name: "HEAD", valid: true},
		{name: "refs/heads/feat/clone", valid: true},
		{name: "", valid: false},
		{name: "/", valid: false},
		{name: "refs/heads/", valid: false},
		{name: "refs/heads/main.", valid: false},
		{name: "refs/heads/ma..in", valid: false},
		{name: "refs/heads/ma in", valid: false},
		{name: "refs/heads/main.lock", valid: false},
		{name: "refs/heads/.hidden", valid: false},
		{name: "refs/heads/a@{b}", valid: false},
	}
	for i, tc := range testCases {
		tc := tc
		i := i
		t.Run(fmt.Sprintf("%d/%s", i, tc.name), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.valid, ginternals.IsRefNameValid(tc.name))
		})
	}
}
