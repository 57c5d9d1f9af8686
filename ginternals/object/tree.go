package object

import (
	"bytes"
	"io"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/minigit-scm/minigit/ginternals"
	"github.com/minigit-scm/minigit/internal/readutil"
	"golang.org/x/xerrors"
)

// TreeObjectMode represents the mode of an object inside a tree
// Non-standard modes (like 0o100664) are not supported
type TreeObjectMode int32

const (
	// ModeFile represents the mode to use for a regular file
	ModeFile TreeObjectMode = 0o100644
	// ModeExecutable represents the mode to use for an executable file
	ModeExecutable TreeObjectMode = 0o100755
	// ModeDirectory represents the mode to use for a directory
	ModeDirectory TreeObjectMode = 0o040000
	// ModeSymLink represents the mode to use for a symbolic link
	ModeSymLink TreeObjectMode = 0o120000
	// ModeGitLink represents the mode to use for a gitlink (submodule)
	ModeGitLink TreeObjectMode = 0o160000
)

// IsValid returns whether the mode is a supported mode or not
func (m TreeObjectMode) IsValid() bool {
	switch m {
	case ModeFile, ModeExecutable, ModeDirectory, ModeSymLink, ModeGitLink:
		return true
	default:
		return false
	}
}

// ObjectType returns the object type associated to a mode
func (m TreeObjectMode) ObjectType() Type {
	switch m {
	case ModeDirectory:
		return TypeTree
	case ModeGitLink:
		return TypeCommit
	case ModeExecutable, ModeFile, ModeSymLink:
		return TypeBlob
	default:
		// We treat anything unexpected as blob
		return TypeBlob
	}
}

// String returns the mode the way it's written inside a tree object:
// octal with no leading zero, ex. "100644" and "40000"
func (m TreeObjectMode) String() string {
	return strconv.FormatInt(int64(m), 8)
}

// Tree represents a git tree object
type Tree struct {
	rawObject *Object
	// we don't use pointers to make sure entries are immutable
	entries []TreeEntry
}

// TreeEntry represents an entry inside a git tree
type TreeEntry struct {
	Path string
	ID   ginternals.Oid
	Mode TreeObjectMode
}

// NewTree returns a new tree with the given entries
func NewTree(entries []TreeEntry) *Tree {
	t := &Tree{
		entries: entries,
	}
	t.rawObject = t.ToObject()
	return t
}

// NewTreeFromObject returns a new tree from an object
//
// A tree has the following format:
//
// {octal_mode} {path_name}\0{encoded_sha}
//
// Note:
// - a Tree may have multiple entries
func NewTreeFromObject(o *Object) (*Tree, error) {
	if o.Type() != TypeTree {
		return nil, xerrors.Errorf("type %s is not a tree: %w", o.typ, ErrObjectInvalid)
	}

	entries, err := ReadTreeEntries(bytes.NewReader(o.Bytes()), o.Size())
	if err != nil {
		return nil, err
	}
	return &Tree{
		rawObject: o,
		entries:   entries,
	}, nil
}

// ReadTreeEntries reads size bytes worth of tree entries from r.
// Each entry is "{mode} {name}" followed by a NUL char and the 20
// raw bytes of the child's id, so every entry accounts for
// len(info) + 21 bytes of the payload
func ReadTreeEntries(r io.Reader, size int) ([]TreeEntry, error) {
	entries := []TreeEntry{}

	// the variable i is only used for error messages, not for
	// actual processing
	for i := 1; size > 0; i++ {
		info, err := readutil.ReadUntilNul(r)
		if err != nil {
			return nil, xerrors.Errorf("could not read the info of entry %d: %s: %w", i, err.Error(), ErrTreeInvalid)
		}
		if !utf8.Valid(info) {
			return nil, xerrors.Errorf("entry %d info is not valid UTF-8: %w", i, ErrTreeInvalid)
		}

		modeChars := readutil.ReadTo(info, ' ')
		if modeChars == nil {
			return nil, xerrors.Errorf("could not retrieve the mode of entry %d: %w", i, ErrTreeInvalid)
		}
		mode, err := strconv.ParseInt(string(modeChars), 8, 32)
		if err != nil {
			return nil, xerrors.Errorf("could not parse mode of entry %d: %s: %w", i, err.Error(), ErrTreeInvalid)
		}

		path := string(info[len(modeChars)+1:])
		if path == "" {
			return nil, xerrors.Errorf("could not retrieve the path of entry %d: %w", i, ErrTreeInvalid)
		}

		sha, err := readutil.ReadBytes(r, ginternals.OidSize)
		if err != nil {
			return nil, xerrors.Errorf("could not retrieve the ID of entry %d: %s: %w", i, err.Error(), ErrTreeInvalid)
		}
		id, err := ginternals.NewOidFromHex(sha)
		if err != nil {
			return nil, xerrors.Errorf("invalid SHA for entry %d: %w", i, ErrTreeInvalid)
		}

		entries = append(entries, TreeEntry{
			Mode: TreeObjectMode(mode),
			Path: path,
			ID:   id,
		})
		size -= len(info) + 1 + ginternals.OidSize
	}
	if size < 0 {
		return nil, xerrors.Errorf("entries overflow the declared tree size: %w", ErrTreeInvalid)
	}

	return entries, nil
}

// SortEntries sorts tree entries the way git expects them: by path,
// byte-lexicographically, with directory names compared as if they had
// a trailing "/"
func SortEntries(entries []TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return sortablePath(entries[i]) < sortablePath(entries[j])
	})
}

func sortablePath(e TreeEntry) string {
	if e.Mode == ModeDirectory {
		return e.Path + "/"
	}
	return e.Path
}

// Entries returns a copy of the tree entries
func (t *Tree) Entries() []TreeEntry {
	out := make([]TreeEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ID returns the object's ID
func (t *Tree) ID() ginternals.Oid {
	return t.rawObject.ID()
}

// ToObject returns an Object representing the tree
func (t *Tree) ToObject() *Object {
	// Quick reminder that the Write* methods on bytes.Buffer never fail,
	// the error returned is always nil
	buf := new(bytes.Buffer)

	// The format of a tree entry is:
	// {octal_mode} {path_name}\0{encoded_sha}
	// A tree object is only composed of a bunch of entries back to back
	for _, e := range t.entries {
		buf.WriteString(e.Mode.String())
		buf.WriteByte(' ')
		buf.WriteString(e.Path)
		buf.WriteByte(0)
		buf.Write(e.ID.Bytes())
	}

	return New(TypeTree, buf.Bytes())
}
