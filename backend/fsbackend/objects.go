package fsbackend

import (
	"compress/zlib"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minigit-scm/minigit/ginternals"
	"github.com/minigit-scm/minigit/ginternals/object"
	"github.com/minigit-scm/minigit/internal/errutil"
	"github.com/minigit-scm/minigit/internal/gitpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// looseObjectPath returns the path of an object, under the backend's root
// .git/objects/first_2_chars_of_sha/remaining_chars_of_sha
// Ex. path of fcfe68a0e44e04bd7fd564fc0b75f1ae457e18b3 is:
// .git/objects/fc/fe68a0e44e04bd7fd564fc0b75f1ae457e18b3
func (b *Backend) looseObjectPath(sha string) string {
	return filepath.Join(b.root, filepath.FromSlash(gitpath.LooseObject(sha)))
}

// WriteObject adds an object to the odb and returns its oid.
// Writing an object that already exists succeeds and rewrites the
// file: the odb is content-addressed so the bytes are identical
func (b *Backend) WriteObject(o *object.Object) (ginternals.Oid, error) {
	if !o.Type().IsStorable() {
		return ginternals.NullOid, xerrors.Errorf("cannot store a %s: %w", o.Type().String(), object.ErrObjectInvalid)
	}

	data, err := o.Compress()
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not compress object: %w", err)
	}

	sha := o.ID().String()
	p := b.looseObjectPath(sha)

	// We need to make sure the dest dir exists
	dest := filepath.Dir(p)
	if err = b.fs.MkdirAll(dest, 0o755); err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not create the destination directory %s: %w", dest, err)
	}

	if err = afero.WriteFile(b.fs, p, data, 0o644); err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not persist object %s at path %s: %w", sha, p, err)
	}

	// the listing under this prefix changed, drop the stale cache entry
	b.prefixes.Remove(sha[:2])
	b.objects.Add(o.ID(), o)
	return o.ID(), nil
}

// ObjectReader returns a reader that yields the decompressed framed
// form of the object ("{type} {size}\0{content}").
// The caller is in charge of closing the reader
func (b *Backend) ObjectReader(oid ginternals.Oid) (io.ReadCloser, error) {
	sha := oid.String()
	p := b.looseObjectPath(sha)
	f, err := b.fs.Open(p)
	if err != nil {
		return nil, xerrors.Errorf("could not open object %s: %w", sha, ginternals.ErrObjectNotFound)
	}

	// Objects are zlib encoded
	zr, err := zlib.NewReader(f)
	if err != nil {
		f.Close() //nolint:errcheck // it already failed
		return nil, xerrors.Errorf("could not decompress object %s at path %s: %w", sha, p, err)
	}
	return &objectReader{source: f, zr: zr}, nil
}

// objectReader wraps the zlib stream of a loose object and closes
// both the decompressor and the underlying file
type objectReader struct {
	source afero.File
	zr     io.ReadCloser
}

func (r *objectReader) Read(p []byte) (int, error) {
	return r.zr.Read(p)
}

func (r *objectReader) Close() (err error) {
	errutil.Close(r.zr, &err)
	errutil.Close(r.source, &err)
	return err
}

// Object returns the object that has the given oid.
// The format of a loose object is an ascii encoded type, an ascii
// encoded space, then an ascii encoded length of the object, then a
// null character, then the body of the object
func (b *Backend) Object(oid ginternals.Oid) (o *object.Object, err error) {
	if cachedO, found := b.objects.Get(oid); found {
		if o, valid := cachedO.(*object.Object); valid {
			return o, nil
		}
	}

	r, err := b.ObjectReader(oid)
	if err != nil {
		return nil, err
	}
	defer errutil.Close(r, &err)

	typ, size, err := object.ReadHeader(r)
	if err != nil {
		return nil, xerrors.Errorf("object %s: %w", oid.String(), err)
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("could not read object %s: %w", oid.String(), err)
	}
	if len(content) != size {
		return nil, xerrors.Errorf("object %s marked as size %d, but has %d: %w", oid.String(), size, len(content), object.ErrObjectInvalid)
	}

	o = object.New(typ, content)
	b.objects.Add(oid, o)
	return o, nil
}

// HasObject returns whether an object exists in the odb
func (b *Backend) HasObject(oid ginternals.Oid) (bool, error) {
	if _, found := b.objects.Get(oid); found {
		return true, nil
	}

	_, err := b.fs.Stat(b.looseObjectPath(oid.String()))
	if err == nil {
		return true, nil
	}
	if isNotExist(err) {
		return false, nil
	}
	return false, xerrors.Errorf("could not check object %s: %w", oid.String(), err)
}

// TypeOf returns the type of the object matching the given oid.
// Only the object's header is decompressed
func (b *Backend) TypeOf(oid ginternals.Oid) (typ object.Type, err error) {
	r, err := b.ObjectReader(oid)
	if err != nil {
		return 0, err
	}
	defer errutil.Close(r, &err)

	typ, _, err = object.ReadHeader(r)
	if err != nil {
		return 0, xerrors.Errorf("object %s: %w", oid.String(), err)
	}
	return typ, nil
}

// ResolvePrefix resolves an abbreviated object name (2 to 40 hex
// chars) to the oid of the unique matching object.
// ErrPrefixTooShort, ErrObjectNotFound, and ErrPrefixAmbiguous are
// returned when the prefix cannot be resolved
func (b *Backend) ResolvePrefix(prefix string) (ginternals.Oid, error) {
	if len(prefix) < 2 {
		return ginternals.NullOid, xerrors.Errorf("%q: %w", prefix, ginternals.ErrPrefixTooShort)
	}
	if len(prefix) > ginternals.OidSize*2 {
		return ginternals.NullOid, xerrors.Errorf("%q: %w", prefix, ginternals.ErrObjectNotFound)
	}

	dir := prefix[:2]
	rest := prefix[2:]

	names, err := b.prefixListing(dir)
	if err != nil {
		return ginternals.NullOid, err
	}

	matches := []string{}
	for _, name := range names {
		if strings.HasPrefix(name, rest) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return ginternals.NullOid, xerrors.Errorf("%q: %w", prefix, ginternals.ErrObjectNotFound)
	case 1:
		oid, err := ginternals.NewOidFromStr(dir + matches[0])
		if err != nil {
			return ginternals.NullOid, xerrors.Errorf("unexpected file %q in the odb: %w", matches[0], err)
		}
		return oid, nil
	default:
		return ginternals.NullOid, xerrors.Errorf("%q: %w", prefix, ginternals.ErrPrefixAmbiguous)
	}
}

// prefixListing returns the file names under objects/<prefix>/,
// going through the LRU cache
func (b *Backend) prefixListing(prefix string) ([]string, error) {
	if cached, found := b.prefixes.Get(prefix); found {
		if names, valid := cached.([]string); valid {
			return names, nil
		}
	}

	p := filepath.Join(b.root, filepath.FromSlash(gitpath.LooseObjectDir(prefix)))
	infos, err := afero.ReadDir(b.fs, p)
	if err != nil {
		if isNotExist(err) {
			return nil, xerrors.Errorf("no object under %q: %w", prefix, ginternals.ErrObjectNotFound)
		}
		return nil, xerrors.Errorf("could not list %s: %w", p, err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)

	b.prefixes.Add(prefix, names)
	return names, nil
}
