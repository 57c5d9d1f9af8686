package minigit_test

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"encoding/binary"
	"io"
	"testing"
	"time"

	minigit "github.com/minigit-scm/minigit"
	"github.com/minigit-scm/minigit/ginternals"
	"github.com/minigit-scm/minigit/ginternals/object"
	"github.com/minigit-scm/minigit/ginternals/pktline"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cannedTransport serves a pre-recorded advertisement and pack
type cannedTransport struct {
	advertisement []byte
	pack          []byte
}

func (t *cannedTransport) Get(url string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(t.advertisement)), nil
}

func (t *cannedTransport) Post(url, contentType string, body io.Reader) (io.ReadCloser, error) {
	resp := append([]byte("0008NAK\n"), t.pack...)
	return io.NopCloser(bytes.NewReader(resp)), nil
}

// packRecord encodes a full object record: metadata header then the
// zlib stream
func packRecord(t *testing.T, o *object.Object) []byte {
	t.Helper()

	size := o.Size()
	b := byte(o.Type())<<4 | byte(size&0b_1111)
	size >>= 4
	record := []byte{}
	for size > 0 {
		record = append(record, b|0b_1000_0000)
		b = byte(size & 0b_0111_1111)
		size >>= 7
	}
	record = append(record, b)

	compressed := new(bytes.Buffer)
	zw := zlib.NewWriter(compressed)
	_, err := zw.Write(o.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return append(record, compressed.Bytes()...)
}

func buildPackOf(t *testing.T, objects ...*object.Object) []byte {
	t.Helper()

	pack := []byte("PACK")
	pack = append(pack, 0, 0, 0, 2)
	count := make([]byte, 4)
	binary.BigEndian.PutUint32(count, uint32(len(objects)))
	pack = append(pack, count...)
	for _, o := range objects {
		pack = append(pack, packRecord(t, o)...)
	}
	checksum := sha1.Sum(pack)
	return append(pack, checksum[:]...)
}

// remoteHistory builds the objects of a tiny remote: one commit
// holding hello.txt and sub/world.txt
func remoteHistory(t *testing.T) (commit, tree, sub, hello, world *object.Object) {
	t.Helper()

	hello = object.New(object.TypeBlob, []byte("hello\n"))
	world = object.New(object.TypeBlob, []byte("world\n"))

	sub = object.NewTree([]object.TreeEntry{
		{Mode: object.ModeFile, Path: "world.txt", ID: world.ID()},
	}).ToObject()

	tree = object.NewTree([]object.TreeEntry{
		{Mode: object.ModeFile, Path: "hello.txt", ID: hello.ID()},
		{Mode: object.ModeDirectory, Path: "sub", ID: sub.ID()},
	}).ToObject()

	author := object.Signature{
		Name:  "123abc",
		Email: "123abc@example.com",
		Time:  time.Unix(1566115917, 0).In(time.FixedZone("", 0)),
	}
	commit = object.NewCommit(tree.ID(), author, &object.CommitOptions{
		Message: "initial import\n",
	}).ToObject()
	return commit, tree, sub, hello, world
}

func buildAdvertisement(t *testing.T, head ginternals.Oid, branch string) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	w := pktline.NewWriter(buf)
	require.NoError(t, w.WriteString("# service=git-upload-pack\n"))
	require.NoError(t, w.Flush())
	require.NoError(t, w.WriteString(head.String()+" HEAD\x00multi_ack\n"))
	require.NoError(t, w.WriteString(head.String()+" refs/heads/"+branch+"\n"))
	require.NoError(t, w.Flush())
	return buf.Bytes()
}

func TestClone(t *testing.T) {
	t.Parallel()

	t.Run("should rebuild the remote working tree", func(t *testing.T) {
		t.Parallel()

		commit, tree, sub, hello, world := remoteHistory(t)
		transport := &cannedTransport{
			advertisement: buildAdvertisement(t, commit.ID(), "main"),
			pack:          buildPackOf(t, commit, tree, sub, hello, world),
		}

		fs := afero.NewMemMapFs()
		r, err := minigit.CloneWithFs(fs, transport, "http://example.com/repo.git", "work")
		require.NoError(t, err)
		assert.Equal(t, "work", r.Path())

		head, err := afero.ReadFile(fs, "work/.git/HEAD")
		require.NoError(t, err)
		assert.Equal(t, "ref: refs/heads/main\n", string(head))

		ref, err := afero.ReadFile(fs, "work/.git/refs/heads/main")
		require.NoError(t, err)
		assert.Equal(t, commit.ID().String()+"\n", string(ref))

		data, err := afero.ReadFile(fs, "work/hello.txt")
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(data))

		data, err = afero.ReadFile(fs, "work/sub/world.txt")
		require.NoError(t, err)
		assert.Equal(t, "world\n", string(data))
	})

	t.Run("should store the fetched objects as loose objects", func(t *testing.T) {
		t.Parallel()

		commit, tree, sub, hello, world := remoteHistory(t)
		transport := &cannedTransport{
			advertisement: buildAdvertisement(t, commit.ID(), "main"),
			pack:          buildPackOf(t, commit, tree, sub, hello, world),
		}

		fs := afero.NewMemMapFs()
		r, err := minigit.CloneWithFs(fs, transport, "http://example.com/repo.git", "work")
		require.NoError(t, err)

		for _, o := range []*object.Object{commit, tree, sub, hello, world} {
			got, err := r.Object(o.ID())
			require.NoError(t, err, "object %s should be in the odb", o.ID().String())
			assert.Equal(t, o.Bytes(), got.Bytes())
		}
	})

	t.Run("should work with a non-default branch name", func(t *testing.T) {
		t.Parallel()

		commit, tree, sub, hello, world := remoteHistory(t)
		transport := &cannedTransport{
			advertisement: buildAdvertisement(t, commit.ID(), "trunk"),
			pack:          buildPackOf(t, commit, tree, sub, hello, world),
		}

		fs := afero.NewMemMapFs()
		_, err := minigit.CloneWithFs(fs, transport, "http://example.com/repo.git", "work")
		require.NoError(t, err)

		head, err := afero.ReadFile(fs, "work/.git/HEAD")
		require.NoError(t, err)
		assert.Equal(t, "ref: refs/heads/trunk\n", string(head))
	})
}
