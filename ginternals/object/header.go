package object

import (
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/minigit-scm/minigit/internal/readutil"
	"golang.org/x/xerrors"
)

// ReadHeader reads an object header ("{type} {size}\0") from r.
// Nothing is consumed past the NUL char, which leaves r positioned at
// the first byte of the object's content
func ReadHeader(r io.Reader) (Type, int, error) {
	header, err := readutil.ReadUntilNul(r)
	if err != nil {
		return 0, 0, xerrors.Errorf("could not read object header: %w", err)
	}
	if !utf8.Valid(header) {
		return 0, 0, xerrors.Errorf("object header is not valid UTF-8: %w", ErrObjectInvalid)
	}

	typeChars := readutil.ReadTo(header, ' ')
	if typeChars == nil {
		return 0, 0, xerrors.Errorf("object header has no space: %w", ErrObjectInvalid)
	}
	typ, err := NewTypeFromString(string(typeChars))
	if err != nil {
		return 0, 0, xerrors.Errorf("object type %q: %w", typeChars, err)
	}

	size, err := strconv.Atoi(string(header[len(typeChars)+1:]))
	if err != nil {
		return 0, 0, xerrors.Errorf("invalid object size: %w", ErrObjectInvalid)
	}
	if size < 0 {
		return 0, 0, xerrors.Errorf("negative object size: %w", ErrObjectInvalid)
	}
	return typ, size, nil
}
