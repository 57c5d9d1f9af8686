package minigit

import (
	"github.com/minigit-scm/minigit/fetch"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Clone creates dir, fetches the remote's HEAD into a fresh
// repository, and checks out the advertised branch
func Clone(t fetch.Transport, remote, dir string) (*Repository, error) {
	return CloneWithFs(afero.NewOsFs(), t, remote, dir)
}

// CloneWithFs clones a remote on the given filesystem
func CloneWithFs(fs afero.Fs, t fetch.Transport, remote, dir string) (*Repository, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.Errorf("could not create %s: %w", dir, err)
	}

	r, err := InitRepositoryWithFs(fs, dir)
	if err != nil {
		return nil, xerrors.Errorf("could not init the repository: %w", err)
	}

	head, err := fetch.Fetch(t, remote, r.dotGit)
	if err != nil {
		return nil, err
	}

	if err := r.MakeBranch(head.Branch, head.ID.String()); err != nil {
		return nil, xerrors.Errorf("could not create branch %s: %w", head.Branch, err)
	}
	if err := r.Checkout(head.Branch); err != nil {
		return nil, xerrors.Errorf("could not check out %s: %w", head.Branch, err)
	}
	return r, nil
}
