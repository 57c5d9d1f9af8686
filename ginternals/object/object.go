// Package object contains methods and objects to work with git objects
package object

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"strconv"

	"github.com/minigit-scm/minigit/ginternals"
	"github.com/minigit-scm/minigit/internal/errutil"
	"golang.org/x/xerrors"
)

var (
	// ErrObjectUnknown represents an error thrown when encountering an
	// unknown object type
	ErrObjectUnknown = errors.New("invalid object type")

	// ErrObjectInvalid represents an error thrown when an object contains
	// unexpected data or when the wrong object is provided to a method
	ErrObjectInvalid = errors.New("invalid object")

	// ErrTreeInvalid represents an error thrown when parsing an invalid
	// tree object
	ErrTreeInvalid = errors.New("invalid tree")

	// ErrCommitInvalid represents an error thrown when parsing an invalid
	// commit object
	ErrCommitInvalid = errors.New("invalid commit")
)

// Type represents the type of an object as stored in a packfile
type Type int8

// List of all the possible object types
const (
	TypeCommit Type = 1
	TypeTree   Type = 2
	TypeBlob   Type = 3
	TypeTag    Type = 4
	// 5 is reserved for future use
	ObjectDeltaOFS Type = 6
	ObjectDeltaRef Type = 7
)

func (t Type) String() string {
	switch t {
	case TypeCommit:
		return "commit"
	case TypeTree:
		return "tree"
	case TypeBlob:
		return "blob"
	case TypeTag:
		return "tag"
	case ObjectDeltaOFS:
		return "ofs-delta"
	case ObjectDeltaRef:
		return "ref-delta"
	default:
		panic(fmt.Sprintf("unknown object type %d", t))
	}
}

// IsValid checks if the object type is an existing type
func (t Type) IsValid() bool {
	switch t {
	case TypeCommit,
		TypeTree,
		TypeBlob,
		TypeTag,
		ObjectDeltaOFS,
		ObjectDeltaRef:
		return true
	default:
		return false
	}
}

// IsStorable checks if the object type can be persisted on disk as a
// loose object. Deltas only exist inside packfiles
func (t Type) IsStorable() bool {
	switch t {
	case TypeCommit, TypeTree, TypeBlob, TypeTag:
		return true
	case ObjectDeltaOFS, ObjectDeltaRef:
		return false
	default:
		return false
	}
}

// NewTypeFromString returns a Type from its string
// representation
func NewTypeFromString(t string) (Type, error) {
	switch t {
	case "commit":
		return TypeCommit, nil
	case "tree":
		return TypeTree, nil
	case "blob":
		return TypeBlob, nil
	case "tag":
		return TypeTag, nil
	default:
		return 0, ErrObjectUnknown
	}
}

// Object represents a git object. An object can be of multiple types
// but they all share the same storage system and the same header.
// Objects are stored zlib compressed in .git/objects
// https://git-scm.com/book/en/v2/Git-Internals-Git-Objects
type Object struct {
	id      ginternals.Oid
	typ     Type
	content []byte
}

// New creates a new git object of the given type.
// The ID is computed right away from the framed content
func New(typ Type, content []byte) *Object {
	o := &Object{
		typ:     typ,
		content: content,
	}
	o.id = ginternals.NewOidFromContent(o.Frame())
	return o
}

// ID returns the ID of the object
func (o *Object) ID() ginternals.Oid {
	return o.id
}

// Size returns the size of the object's content
func (o *Object) Size() int {
	return len(o.content)
}

// Type returns the Type of this object
func (o *Object) Type() Type {
	return o.typ
}

// Bytes returns the object's content
func (o *Object) Bytes() []byte {
	return o.content
}

// Frame returns the hashable form of the object:
// [type] [size][NULL][content]
// The type in ascii, followed by a space, followed by the size in ascii,
// followed by a null character (0), followed by the object data
func (o *Object) Frame() []byte {
	// Quick reminder that the Write* methods on bytes.Buffer never fail,
	// the error returned is always nil
	w := new(bytes.Buffer)
	w.WriteString(o.typ.String())
	w.WriteRune(' ')
	w.WriteString(strconv.Itoa(o.Size()))
	w.WriteByte(0)
	w.Write(o.content)
	return w.Bytes()
}

// Compress returns the object zlib compressed.
// The compressed data contains the same framed form the ID is
// computed over
func (o *Object) Compress() (data []byte, err error) {
	compressedContent := new(bytes.Buffer)
	zw := zlib.NewWriter(compressedContent)

	if _, err = zw.Write(o.Frame()); err != nil {
		errutil.Close(zw, &err)
		return nil, xerrors.Errorf("could not zlib the object: %w", err)
	}
	// the encoder must be closed before reading the buffer, otherwise
	// the compressed trailer is missing
	if err = zw.Close(); err != nil {
		return nil, xerrors.Errorf("could not finish compressing the object: %w", err)
	}
	return compressedContent.Bytes(), nil
}

// AsBlob parses the object as Blob
func (o *Object) AsBlob() *Blob {
	return NewBlob(o)
}

// AsTree parses the object as Tree
func (o *Object) AsTree() (*Tree, error) {
	return NewTreeFromObject(o)
}

// AsCommit parses the object as Commit
func (o *Object) AsCommit() (*Commit, error) {
	return NewCommitFromObject(o)
}
