// Package minigit implements a minimal content-addressed version
// control system compatible on disk and on the wire with the git
// object model
package minigit

import (
	"errors"
	"io"
	"path/filepath"

	"github.com/minigit-scm/minigit/backend/fsbackend"
	"github.com/minigit-scm/minigit/ginternals"
	"github.com/minigit-scm/minigit/ginternals/object"
	"github.com/minigit-scm/minigit/internal/errutil"
	"github.com/minigit-scm/minigit/internal/gitpath"
	"github.com/minigit-scm/minigit/internal/readutil"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// List of errors returned by the Repository struct
var (
	ErrRepositoryNotExist = errors.New("repository does not exist")
)

// Repository represents a git repository: a working tree and the
// .git directory inside it that tracks its history
// https://git-scm.com/book/en/v2/Git-Internals-Plumbing-and-Porcelain
type Repository struct {
	dotGit *fsbackend.Backend
	fs     afero.Fs
	root   string
}

// InitRepository initializes a new repository by creating the .git
// directory in the given path
func InitRepository(repoPath string) (*Repository, error) {
	return InitRepositoryWithFs(afero.NewOsFs(), repoPath)
}

// InitRepositoryWithFs initializes a new repository on the given
// filesystem
func InitRepositoryWithFs(fs afero.Fs, repoPath string) (*Repository, error) {
	r := &Repository{
		fs:     fs,
		root:   repoPath,
		dotGit: fsbackend.New(fs, filepath.Join(repoPath, gitpath.DotGitPath)),
	}
	if err := r.dotGit.Init(); err != nil {
		return nil, err
	}
	return r, nil
}

// OpenRepository loads an existing repository from the given path
func OpenRepository(repoPath string) (*Repository, error) {
	return OpenRepositoryWithFs(afero.NewOsFs(), repoPath)
}

// OpenRepositoryWithFs loads an existing repository on the given
// filesystem
func OpenRepositoryWithFs(fs afero.Fs, repoPath string) (*Repository, error) {
	r := &Repository{
		fs:     fs,
		root:   repoPath,
		dotGit: fsbackend.New(fs, filepath.Join(repoPath, gitpath.DotGitPath)),
	}

	// since we can't rely on the directory existing to validate the
	// repo, we check HEAD instead (it should always be there)
	if _, err := fs.Stat(filepath.Join(r.dotGit.Path(), gitpath.HEADPath)); err != nil {
		return nil, ErrRepositoryNotExist
	}
	return r, nil
}

// Path returns the root of the working tree
func (r *Repository) Path() string {
	return r.root
}

// ResolveName resolves an object name (a full 40-char id or an
// abbreviated prefix) to an Oid
func (r *Repository) ResolveName(name string) (ginternals.Oid, error) {
	return r.dotGit.ResolvePrefix(name)
}

// Object returns the object matching the given oid
func (r *Repository) Object(oid ginternals.Oid) (*object.Object, error) {
	return r.dotGit.Object(oid)
}

// TypeOf returns the type of the object matching the given oid,
// reading only its header
func (r *Repository) TypeOf(oid ginternals.Oid) (object.Type, error) {
	return r.dotGit.TypeOf(oid)
}

// WriteObject persists an object in the odb and returns its oid
func (r *Repository) WriteObject(o *object.Object) (ginternals.Oid, error) {
	return r.dotGit.WriteObject(o)
}

// WriteTreeFromDirectory snapshots the whole working tree into tree
// and blob objects and returns the oid of the root tree
func (r *Repository) WriteTreeFromDirectory() (ginternals.Oid, error) {
	return r.writeTree(r.root)
}

func (r *Repository) writeTree(dir string) (ginternals.Oid, error) {
	infos, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not read directory %s: %w", dir, err)
	}

	entries := []object.TreeEntry{}
	for _, info := range infos {
		if info.Name() == gitpath.DotGitPath {
			continue
		}

		fullPath := filepath.Join(dir, info.Name())
		switch info.IsDir() {
		case true:
			oid, err := r.writeTree(fullPath)
			if err != nil {
				return ginternals.NullOid, err
			}
			entries = append(entries, object.TreeEntry{
				Mode: object.ModeDirectory,
				Path: info.Name(),
				ID:   oid,
			})
		case false:
			data, err := afero.ReadFile(r.fs, fullPath)
			if err != nil {
				return ginternals.NullOid, xerrors.Errorf("could not read file %s: %w", fullPath, err)
			}
			oid, err := r.dotGit.WriteObject(object.New(object.TypeBlob, data))
			if err != nil {
				return ginternals.NullOid, xerrors.Errorf("could not write blob for %s: %w", fullPath, err)
			}
			entries = append(entries, object.TreeEntry{
				Mode: object.ModeFile,
				Path: info.Name(),
				ID:   oid,
			})
		}
	}
	object.SortEntries(entries)

	return r.dotGit.WriteObject(object.NewTree(entries).ToObject())
}

// CommitTree creates a commit out of an existing tree and persists
// it. The tree and the optional parent may be abbreviated names.
// The identity comes from the user section of .git/config
func (r *Repository) CommitTree(treeName, parentName, message string) (ginternals.Oid, error) {
	treeID, err := r.dotGit.ResolvePrefix(treeName)
	if err != nil {
		return ginternals.NullOid, err
	}
	typ, err := r.dotGit.TypeOf(treeID)
	if err != nil {
		return ginternals.NullOid, err
	}
	if typ != object.TypeTree {
		return ginternals.NullOid, xerrors.Errorf("%s is a %s, not a tree: %w", treeName, typ.String(), ginternals.ErrWrongObjectType)
	}

	opts := &object.CommitOptions{Message: message}
	if opts.Message == "" || opts.Message[len(opts.Message)-1] != '\n' {
		opts.Message += "\n"
	}

	if parentName != "" {
		parentID, err := r.dotGit.ResolvePrefix(parentName)
		if err != nil {
			return ginternals.NullOid, err
		}
		typ, err := r.dotGit.TypeOf(parentID)
		if err != nil {
			return ginternals.NullOid, err
		}
		if typ != object.TypeCommit {
			return ginternals.NullOid, xerrors.Errorf("%s is a %s, not a commit: %w", parentName, typ.String(), ginternals.ErrWrongObjectType)
		}
		opts.ParentIDs = []ginternals.Oid{parentID}
	}

	sig, err := r.dotGit.UserSignature()
	if err != nil {
		return ginternals.NullOid, err
	}

	c := object.NewCommit(treeID, sig, opts)
	return r.dotGit.WriteObject(c.ToObject())
}

// MakeBranch creates the branch refs/heads/<name> pointing at the
// given commit
func (r *Repository) MakeBranch(name, commitName string) error {
	oid, err := r.dotGit.ResolvePrefix(commitName)
	if err != nil {
		return err
	}
	typ, err := r.dotGit.TypeOf(oid)
	if err != nil {
		return err
	}
	if typ != object.TypeCommit {
		return xerrors.Errorf("%s is a %s and so can't be made a branch: %w", commitName, typ.String(), ginternals.ErrWrongObjectType)
	}

	return r.dotGit.WriteReference(ginternals.NewReference(gitpath.LocalBranch(name), oid))
}

// Checkout points HEAD at the given branch and materializes the tree
// of its commit in the working tree.
// Files not present in the tree are left alone, existing files are
// overwritten
func (r *Repository) Checkout(branch string) (err error) {
	ref, err := r.dotGit.Reference(gitpath.LocalBranch(branch))
	if err != nil {
		return err
	}

	head := ginternals.NewSymbolicReference(ginternals.Head, gitpath.LocalBranch(branch))
	if err = r.dotGit.WriteReference(head); err != nil {
		return xerrors.Errorf("could not update HEAD: %w", err)
	}

	treeID, err := r.commitTreeID(ref.Target())
	if err != nil {
		return err
	}
	return r.checkoutTree(r.root, treeID)
}

// commitTreeID streams the first line of a commit to extract the id
// of its tree
func (r *Repository) commitTreeID(commitID ginternals.Oid) (oid ginternals.Oid, err error) {
	cr, err := r.dotGit.ObjectReader(commitID)
	if err != nil {
		return ginternals.NullOid, err
	}
	defer errutil.Close(cr, &err)

	typ, _, err := object.ReadHeader(cr)
	if err != nil {
		return ginternals.NullOid, err
	}
	if typ != object.TypeCommit {
		return ginternals.NullOid, xerrors.Errorf("%s is a %s, not a commit: %w", commitID.String(), typ.String(), ginternals.ErrWrongObjectType)
	}

	// the first line of a commit is "tree " followed by 40 hex chars
	// and a "\n"
	literal, err := readutil.ReadBytes(cr, 5)
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not read the tree line: %w", err)
	}
	if string(literal) != "tree " {
		return ginternals.NullOid, xerrors.Errorf("commit %s doesn't start with a tree: %w", commitID.String(), object.ErrCommitInvalid)
	}
	hexChars, err := readutil.ReadBytes(cr, ginternals.OidSize*2)
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not read the tree id: %w", err)
	}
	oid, err = ginternals.NewOidFromChars(hexChars)
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("tree id %q: %w", hexChars, err)
	}
	nl, err := readutil.ReadByte(cr)
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not read the end of the tree line: %w", err)
	}
	if nl != '\n' {
		return ginternals.NullOid, xerrors.Errorf("commit %s has a malformed tree line: %w", commitID.String(), object.ErrCommitInvalid)
	}
	return oid, nil
}

// checkoutTree writes the content of a tree at the given path,
// recursing into subtrees
func (r *Repository) checkoutTree(path string, treeID ginternals.Oid) error {
	entries, err := r.treeEntries(treeID)
	if err != nil {
		return err
	}

	for _, e := range entries {
		dest := filepath.Join(path, e.Path)
		switch e.Mode {
		case object.ModeDirectory:
			if err := r.fs.MkdirAll(dest, 0o755); err != nil {
				return xerrors.Errorf("could not create directory %s: %w", dest, err)
			}
			if err := r.checkoutTree(dest, e.ID); err != nil {
				return err
			}
		default:
			if err := r.checkoutBlob(dest, e.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// treeEntries loads and parses the tree matching the given oid
func (r *Repository) treeEntries(treeID ginternals.Oid) (entries []object.TreeEntry, err error) {
	tr, err := r.dotGit.ObjectReader(treeID)
	if err != nil {
		return nil, err
	}
	defer errutil.Close(tr, &err)

	typ, size, err := object.ReadHeader(tr)
	if err != nil {
		return nil, err
	}
	if typ != object.TypeTree {
		return nil, xerrors.Errorf("%s is a %s, not a tree: %w", treeID.String(), typ.String(), ginternals.ErrWrongObjectType)
	}
	return object.ReadTreeEntries(tr, size)
}

// checkoutBlob streams the content of a blob into a file
func (r *Repository) checkoutBlob(dest string, oid ginternals.Oid) (err error) {
	br, err := r.dotGit.ObjectReader(oid)
	if err != nil {
		return err
	}
	defer errutil.Close(br, &err)

	typ, _, err := object.ReadHeader(br)
	if err != nil {
		return err
	}
	if typ != object.TypeBlob {
		return xerrors.Errorf("%s is a %s, not a blob: %w", oid.String(), typ.String(), ginternals.ErrWrongObjectType)
	}

	f, err := r.fs.Create(dest)
	if err != nil {
		return xerrors.Errorf("could not create %s: %w", dest, err)
	}
	defer errutil.Close(f, &err)

	if _, err = io.Copy(f, br); err != nil {
		return xerrors.Errorf("could not write %s: %w", dest, err)
	}
	return nil
}
