// Package packfile contains methods to read packfiles, the bulk
// transport format of git objects
package packfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"

	"github.com/minigit-scm/minigit/ginternals"
	"github.com/minigit-scm/minigit/ginternals/object"
	"github.com/minigit-scm/minigit/internal/errutil"
	"golang.org/x/xerrors"
)

const (
	// packfileHeaderSize contains the size of the header of a packfile.
	// The first 4 bytes contain the magic, the 4 next bytes contain the
	// version, and the last 4 bytes contain the number of objects in
	// the packfile, for a total of 12 bytes
	packfileHeaderSize = 12

	// deltaCopyDefaultSize is the size used by a copy instruction
	// whose size bits are all 0
	deltaCopyDefaultSize = 0x10000
)

func packfileMagic() []byte {
	return []byte{'P', 'A', 'C', 'K'}
}

var (
	// ErrPackInvalid is an error thrown when a packfile has a bad
	// magic, a bad checksum, or objects that don't match their
	// declared sizes
	ErrPackInvalid = errors.New("invalid packfile")

	// ErrObjectUnsupported is an error thrown when a packfile contains
	// an object record we cannot process (ofs-delta)
	ErrObjectUnsupported = errors.New("unsupported object in packfile")

	// ErrIntOverflow is an error thrown when the packfile couldn't
	// be parsed because some data couldn't fit in an int64
	ErrIntOverflow = errors.New("int64 overflow")
)

// ObjectDB represents the part of the object database the unpacker
// needs: persisting new objects and loading delta bases
type ObjectDB interface {
	WriteObject(o *object.Object) (ginternals.Oid, error)
	Object(oid ginternals.Oid) (*object.Object, error)
}

// Unpack decodes a packfile and stores its objects in the odb.
//
// The packfile contains a header, a content, and a footer:
// Header: 12 bytes
//         The first 4 bytes contain the magic ('P', 'A', 'C', 'K')
//         The next 4 bytes contain the version
//         The last 4 bytes contain the number of objects in the packfile
// Content: Variable size
//          Each object starts with a variable-size metadata header
//          holding its type and inflated size, then its zlib stream.
//          Deltified objects carry extra data before the zlib stream.
// Footer: 20 bytes
//         Contains the SHA1 sum of everything before it
// https://git-scm.com/docs/gitformat-pack
//
// The id of the pack (its trailing checksum) is returned
func Unpack(r io.Reader, odb ObjectDB) (ginternals.Oid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not read pack data: %w", err)
	}
	if len(data) < packfileHeaderSize+ginternals.OidSize {
		return ginternals.NullOid, xerrors.Errorf("pack of %d bytes is too small: %w", len(data), ErrPackInvalid)
	}
	if !bytes.Equal(data[:4], packfileMagic()) {
		return ginternals.NullOid, xerrors.Errorf("bad magic: %w", ErrPackInvalid)
	}

	// The footer is the SHA1 of every byte before it
	content := data[:len(data)-ginternals.OidSize]
	checksum := data[len(data)-ginternals.OidSize:]
	packID := ginternals.NewOidFromContent(content)
	if !bytes.Equal(checksum, packID.Bytes()) {
		return ginternals.NullOid, xerrors.Errorf("checksum mismatch: %w", ErrPackInvalid)
	}

	objectCount := binary.BigEndian.Uint32(data[8:packfileHeaderSize])

	// bytes.Reader implements io.ByteReader, so the inflater reads
	// its stream byte per byte and leaves the cursor on the first
	// byte of the next record
	cursor := bytes.NewReader(content[packfileHeaderSize:])
	for i := uint32(0); i < objectCount; i++ {
		if err := unpackObject(cursor, odb); err != nil {
			return ginternals.NullOid, xerrors.Errorf("object %d/%d: %w", i+1, objectCount, err)
		}
	}

	return packID, nil
}

// unpackObject decodes a single object record and persists the result
func unpackObject(cursor *bytes.Reader, odb ObjectDB) error {
	typ, size, err := readTypeAndSize(cursor)
	if err != nil {
		return err
	}

	switch typ {
	case object.TypeCommit, object.TypeTree, object.TypeBlob:
		payload, err := inflate(cursor, size)
		if err != nil {
			return err
		}
		if _, err := odb.WriteObject(object.New(typ, payload)); err != nil {
			return xerrors.Errorf("could not store %s: %w", typ.String(), err)
		}
		return nil
	case object.TypeTag:
		// tags are decoded to keep the cursor in sync, but not stored
		_, err := inflate(cursor, size)
		return err
	case object.ObjectDeltaOFS:
		return xerrors.Errorf("ofs-delta: %w", ErrObjectUnsupported)
	case object.ObjectDeltaRef:
		return unpackRefDelta(cursor, size, odb)
	default:
		return xerrors.Errorf("type %d: %w", typ, ErrObjectUnsupported)
	}
}

// unpackRefDelta decodes a ref-delta record: the oid of the base
// object followed by a zlib stream of delta instructions.
// The rebuilt object keeps the type of its base
func unpackRefDelta(cursor *bytes.Reader, size int, odb ObjectDB) error {
	sha := make([]byte, ginternals.OidSize)
	if _, err := io.ReadFull(cursor, sha); err != nil {
		return xerrors.Errorf("could not read the base object id: %w", err)
	}
	baseID, err := ginternals.NewOidFromHex(sha)
	if err != nil {
		return xerrors.Errorf("invalid base object id: %w", err)
	}

	delta, err := inflate(cursor, size)
	if err != nil {
		return err
	}

	base, err := odb.Object(baseID)
	if err != nil {
		return xerrors.Errorf("could not get base object %s: %w", baseID.String(), err)
	}

	content, err := applyDelta(base.Bytes(), delta)
	if err != nil {
		return err
	}
	if _, err := odb.WriteObject(object.New(base.Type(), content)); err != nil {
		return xerrors.Errorf("could not store the rebuilt %s: %w", base.Type().String(), err)
	}
	return nil
}

// readTypeAndSize parses the metadata in front of every object record.
// The first byte contains:
// - a MSB (1 bit) telling whether the next byte is still metadata
// - the object type (3 bits)
// - the low 4 bits of the inflated size
// Each subsequent byte contains a MSB and 7 more size bits, stored
// little-endian (the chunks stack up from the right)
func readTypeAndSize(r io.ByteReader) (object.Type, int, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, 0, xerrors.Errorf("could not read object metadata: %w", err)
	}

	// value       : MTTT_SSSS // M = MSB ; T = type ; S = size
	// & 0111_0000 : 0TTT_0000
	// >> 4        : 0000_0TTT
	typ := object.Type((b & 0b_0111_0000) >> 4)
	if !typ.IsValid() {
		return 0, 0, xerrors.Errorf("unknown object type %d: %w", typ, ErrPackInvalid)
	}

	size := uint64(b & 0b_0000_1111)
	shift := uint(4)
	for isMSBSet(b) {
		if b, err = r.ReadByte(); err != nil {
			return 0, 0, xerrors.Errorf("could not read object size: %w", err)
		}
		if shift > 63 {
			return 0, 0, ErrIntOverflow
		}
		size |= uint64(b&0b_0111_1111) << shift
		shift += 7
	}

	return typ, int(size), nil
}

// readDeltaSize reads one of the base-128 sizes at the front of
// a delta: 7 bits of data per byte, little-endian, the MSB telling
// whether another byte follows
func readDeltaSize(r io.ByteReader) (int, error) {
	size := uint64(0)
	shift := uint(0)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, xerrors.Errorf("could not read delta size: %w", err)
		}
		if shift > 63 {
			return 0, ErrIntOverflow
		}
		size |= uint64(b&0b_0111_1111) << shift
		shift += 7
		if !isMSBSet(b) {
			break
		}
	}
	return int(size), nil
}

// applyDelta rebuilds an object's content by replaying the delta
// instructions against the content of the base object.
//
// The format of a delta is:
// - The size of the base (base-128 varint)
// - The size of the target (base-128 varint)
// - A list of copy/insert instructions
// https://git-scm.com/docs/pack-format#_deltified_representation
func applyDelta(source, delta []byte) ([]byte, error) {
	buf := bytes.NewReader(delta)

	sourceSize, err := readDeltaSize(buf)
	if err != nil {
		return nil, err
	}
	if sourceSize != len(source) {
		return nil, xerrors.Errorf("base object has size %d, delta expects %d: %w", len(source), sourceSize, ErrPackInvalid)
	}
	targetSize, err := readDeltaSize(buf)
	if err != nil {
		return nil, err
	}

	target := bytes.Buffer{}
	for buf.Len() > 0 {
		instr, err := buf.ReadByte()
		if err != nil {
			return nil, xerrors.Errorf("could not read delta instruction: %w", err)
		}

		// An instruction with the MSB unset is an INSERT: the low
		// 7 bits count the literal bytes to append from the delta
		if !isMSBSet(instr) {
			if instr == 0 {
				return nil, xerrors.Errorf("insert instruction of size 0: %w", ErrPackInvalid)
			}
			if _, err := io.CopyN(&target, buf, int64(instr)); err != nil {
				return nil, xerrors.Errorf("could not copy %d literal bytes: %w", instr, err)
			}
			continue
		}

		// Otherwise it's a COPY from the base object.
		// Bits 0 to 3 flag which of the 4 offset bytes follow,
		// bits 4 to 6 flag which of the 3 size bytes follow.
		// Both numbers are little-endian, missing bytes count as 0
		offset := 0
		for i := uint(0); i < 4; i++ {
			if instr&(1<<i) != 0 {
				b, err := buf.ReadByte()
				if err != nil {
					return nil, xerrors.Errorf("could not read copy offset: %w", err)
				}
				offset |= int(b) << (8 * i)
			}
		}
		size := 0
		for i := uint(0); i < 3; i++ {
			if instr&(0b_0001_0000<<i) != 0 {
				b, err := buf.ReadByte()
				if err != nil {
					return nil, xerrors.Errorf("could not read copy size: %w", err)
				}
				size |= int(b) << (8 * i)
			}
		}
		// a copy size of 0 means 0x10000
		if size == 0 {
			size = deltaCopyDefaultSize
		}
		if offset+size > len(source) {
			return nil, xerrors.Errorf("copy of %d bytes at offset %d overflows the base object: %w", size, offset, ErrPackInvalid)
		}
		target.Write(source[offset : offset+size])
	}

	if target.Len() != targetSize {
		return nil, xerrors.Errorf("rebuilt object has size %d, delta expects %d: %w", target.Len(), targetSize, ErrPackInvalid)
	}
	return target.Bytes(), nil
}

// inflate decompresses the zlib stream sitting at the cursor and
// checks the result against the size declared in the object metadata.
// The cursor is left on the first byte after the stream
func inflate(cursor *bytes.Reader, size int) (data []byte, err error) {
	zr, err := zlib.NewReader(cursor)
	if err != nil {
		return nil, xerrors.Errorf("could not read the object's zlib stream: %w", err)
	}
	defer errutil.Close(zr, &err)

	data, err = io.ReadAll(zr)
	if err != nil {
		return nil, xerrors.Errorf("could not decompress the object: %w", err)
	}
	if len(data) != size {
		return nil, xerrors.Errorf("expected an object of %d bytes, got %d: %w", size, len(data), ErrPackInvalid)
	}
	return data, nil
}

// isMSBSet checks if the Most Significant Bit of a byte is set to 1
func isMSBSet(b byte) bool {
	return b&0b_1000_0000 != 0
}
