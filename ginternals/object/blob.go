package object

import "github.com/minigit-scm/minigit/ginternals"

// Blob represents a blob object
type Blob struct {
	rawObject *Object
}

// NewBlob returns a new blob from an object
func NewBlob(o *Object) *Blob {
	return &Blob{rawObject: o}
}

// ID returns the blob's ID
func (b *Blob) ID() ginternals.Oid {
	return b.rawObject.ID()
}

// Size returns the blob's size
func (b *Blob) Size() int {
	return b.rawObject.Size()
}

// Bytes returns the blob's contents
func (b *Blob) Bytes() []byte {
	return b.rawObject.Bytes()
}

// IsPersisted reports whether the blob has a non-zero ID.
// The ID is computed from the content when the object is created, so
// this does not tell whether the blob was written to the odb
func (b *Blob) IsPersisted() bool {
	return !b.rawObject.ID().IsZero()
}
