package fsbackend

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/minigit-scm/minigit/ginternals"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Reference returns a stored reference from its name.
// ErrRefNotFound is returned if the reference doesn't exist
func (b *Backend) Reference(name string) (*ginternals.Reference, error) {
	finder := func(name string) ([]byte, error) {
		data, err := afero.ReadFile(b.fs, b.refPath(name))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, xerrors.Errorf(`ref "%s": %w`, name, ginternals.ErrRefNotFound)
			}
			return nil, xerrors.Errorf("could not read reference content: %w", err)
		}
		return data, nil
	}
	return ginternals.ResolveReference(name, finder)
}

// refPath returns the on-disk path of a ref from its name.
// Ex. On windows refs/heads/main would return refs\heads\main
func (b *Backend) refPath(name string) string {
	return filepath.Join(b.root, filepath.FromSlash(name))
}

// WriteReference writes the given reference on disk. If the
// reference already exists it will be overwritten
func (b *Backend) WriteReference(ref *ginternals.Reference) error {
	if !ginternals.IsRefNameValid(ref.Name()) {
		return ginternals.ErrRefNameInvalid
	}

	target := ""
	switch ref.Type() {
	case ginternals.SymbolicReference:
		target = fmt.Sprintf("ref: %s\n", ref.SymbolicTarget())
	case ginternals.OidReference:
		target = fmt.Sprintf("%s\n", ref.Target().String())
	default:
		return xerrors.Errorf("reference type %d: %w", ref.Type(), ginternals.ErrUnknownRefType)
	}

	p := b.refPath(ref.Name())
	if err := b.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return xerrors.Errorf("could not create the parent directory of %s: %w", ref.Name(), err)
	}
	if err := afero.WriteFile(b.fs, p, []byte(target), 0o644); err != nil {
		return xerrors.Errorf("could not persist reference to disk: %w", err)
	}
	return nil
}
