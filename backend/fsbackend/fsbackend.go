// Package fsbackend contains the filesystem implementation of the
// object database: loose objects, references, and the repo layout
package fsbackend

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/minigit-scm/minigit/internal/cache"
	"github.com/minigit-scm/minigit/internal/gitpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// isNotExist reports whether err means a file or directory is missing
func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

const (
	// prefixCacheSize is the max amount of directory listings kept
	// in memory for the abbreviated-name resolution
	prefixCacheSize = 512
	// objectCacheSize is the max amount of decoded objects kept
	// in memory
	objectCacheSize = 1024
)

// Backend is an object database that uses the filesystem to store data
type Backend struct {
	fs   afero.Fs
	root string

	// prefixes caches the file listing of objects/<xx>/, keyed by
	// the 2-char prefix. Any write under a prefix purges its entry
	prefixes *cache.LRU
	objects  *cache.LRU
}

// New returns a new Backend storing its data at dotGitPath
func New(fs afero.Fs, dotGitPath string) *Backend {
	return &Backend{
		fs:       fs,
		root:     dotGitPath,
		prefixes: cache.NewLRU(prefixCacheSize),
		objects:  cache.NewLRU(objectCacheSize),
	}
}

// Path returns the root path of the backend (the .git directory)
func (b *Backend) Path() string {
	return b.root
}

// Init initializes a repository:
// .git/HEAD, .git/objects, .git/refs/heads, .git/config,
// and .git/description
func (b *Backend) Init() error {
	dirs := []string{
		gitpath.ObjectsPath,
		gitpath.RefsPath,
		gitpath.RefsHeadsPath,
	}
	for _, d := range dirs {
		fullPath := filepath.Join(b.root, filepath.FromSlash(d))
		if err := b.fs.MkdirAll(fullPath, 0o755); err != nil {
			return xerrors.Errorf("could not create directory %s: %w", d, err)
		}
	}

	// Create the files with their default content
	files := []struct {
		path    string
		content []byte
	}{
		{
			path:    gitpath.HEADPath,
			content: []byte("ref: " + gitpath.LocalBranch("main") + "\n"),
		},
		{
			path:    gitpath.DescriptionPath,
			content: []byte("Unnamed repository; edit this file 'description' to name the repository.\n"),
		},
	}
	for _, f := range files {
		fullPath := filepath.Join(b.root, f.path)
		if err := afero.WriteFile(b.fs, fullPath, f.content, 0o644); err != nil {
			return xerrors.Errorf("could not create file %s: %w", f.path, err)
		}
	}

	if err := b.setDefaultConfig(); err != nil {
		return xerrors.Errorf("could not set the default config: %w", err)
	}

	return nil
}
