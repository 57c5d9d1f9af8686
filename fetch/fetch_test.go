package fetch_test

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/minigit-scm/minigit/fetch"
	"github.com/minigit-scm/minigit/ginternals"
	"github.com/minigit-scm/minigit/ginternals/object"
	"github.com/minigit-scm/minigit/ginternals/pktline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memODB is an in-memory ObjectDB
type memODB struct {
	objects map[ginternals.Oid]*object.Object
}

func newMemODB() *memODB {
	return &memODB{objects: map[ginternals.Oid]*object.Object{}}
}

func (db *memODB) WriteObject(o *object.Object) (ginternals.Oid, error) {
	db.objects[o.ID()] = o
	return o.ID(), nil
}

func (db *memODB) Object(oid ginternals.Oid) (*object.Object, error) {
	o, ok := db.objects[oid]
	if !ok {
		return nil, ginternals.ErrObjectNotFound
	}
	return o, nil
}

// cannedTransport implements fetch.Transport with pre-recorded
// responses
type cannedTransport struct {
	getBody  []byte
	postBody []byte

	gotGetURL      string
	gotPostURL     string
	gotContentType string
	gotPostPayload []byte
}

func (t *cannedTransport) Get(url string) (io.ReadCloser, error) {
	t.gotGetURL = url
	return io.NopCloser(bytes.NewReader(t.getBody)), nil
}

func (t *cannedTransport) Post(url, contentType string, body io.Reader) (io.ReadCloser, error) {
	t.gotPostURL = url
	t.gotContentType = contentType
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	t.gotPostPayload = payload
	return io.NopCloser(bytes.NewReader(t.postBody)), nil
}

// buildPack assembles a single-blob pack
func buildPack(t *testing.T, content []byte) []byte {
	t.Helper()

	compressed := new(bytes.Buffer)
	zw := zlib.NewWriter(compressed)
	_, err := zw.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.Less(t, len(content), 16, "this helper only encodes sizes that fit the first metadata byte")

	pack := []byte("PACK")
	pack = append(pack, 0, 0, 0, 2)
	count := make([]byte, 4)
	binary.BigEndian.PutUint32(count, 1)
	pack = append(pack, count...)
	pack = append(pack, byte(object.TypeBlob)<<4|byte(len(content)))
	pack = append(pack, compressed.Bytes()...)
	checksum := sha1.Sum(pack)
	return append(pack, checksum[:]...)
}

// buildAdvertisement frames a canonical info/refs response
func buildAdvertisement(t *testing.T, head ginternals.Oid, refs map[string]ginternals.Oid) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	w := pktline.NewWriter(buf)
	require.NoError(t, w.WriteString("# service=git-upload-pack\n"))
	require.NoError(t, w.Flush())
	require.NoError(t, w.WriteString(head.String()+" HEAD\x00multi_ack side-band-64k\n"))
	for name, oid := range refs {
		require.NoError(t, w.WriteString(oid.String()+" "+name+"\n"))
	}
	require.NoError(t, w.Flush())
	return buf.Bytes()
}

func TestFetch(t *testing.T) {
	t.Parallel()

	blob := object.New(object.TypeBlob, []byte("hello\n"))

	t.Run("should store the pack and report the branch", func(t *testing.T) {
		t.Parallel()

		transport := &cannedTransport{
			getBody:  buildAdvertisement(t, blob.ID(), map[string]ginternals.Oid{"refs/heads/main": blob.ID()}),
			postBody: append([]byte("0008NAK\n"), buildPack(t, []byte("hello\n"))...),
		}

		odb := newMemODB()
		head, err := fetch.Fetch(transport, "http://example.com/repo.git/", odb)
		require.NoError(t, err)
		assert.Equal(t, blob.ID(), head.ID)
		assert.Equal(t, "main", head.Branch)

		// the trailing slash must have been stripped
		assert.Equal(t, "http://example.com/repo.git/info/refs?service=git-upload-pack", transport.gotGetURL)
		assert.Equal(t, "http://example.com/repo.git/git-upload-pack?service=git-upload-pack", transport.gotPostURL)
		assert.Equal(t, "application/x-git-upload-pack-request", transport.gotContentType)

		// the request must be a want, a flush, and a done
		want := "0032want " + blob.ID().String() + "\n" + "0000" + "0009done\n"
		assert.Equal(t, want, string(transport.gotPostPayload))

		o, err := odb.Object(blob.ID())
		require.NoError(t, err)
		assert.Equal(t, []byte("hello\n"), o.Bytes())
	})

	t.Run("should fail when no ref matches HEAD", func(t *testing.T) {
		t.Parallel()

		other := object.New(object.TypeBlob, []byte("other\n"))
		transport := &cannedTransport{
			getBody: buildAdvertisement(t, blob.ID(), map[string]ginternals.Oid{"refs/heads/main": other.ID()}),
		}

		_, err := fetch.Fetch(transport, "http://example.com/repo.git", newMemODB())
		require.Error(t, err)
		assert.ErrorIs(t, err, fetch.ErrBranchNotFound)
	})

	t.Run("should fail when the first ref isn't HEAD", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		w := pktline.NewWriter(buf)
		require.NoError(t, w.WriteString("# service=git-upload-pack\n"))
		require.NoError(t, w.Flush())
		require.NoError(t, w.WriteString(blob.ID().String()+" refs/heads/main\n"))
		require.NoError(t, w.Flush())

		transport := &cannedTransport{getBody: buf.Bytes()}
		_, err := fetch.Fetch(transport, "http://example.com/repo.git", newMemODB())
		require.Error(t, err)
		assert.ErrorIs(t, err, fetch.ErrAdvertisementInvalid)
	})

	t.Run("should fail when the server doesn't NAK", func(t *testing.T) {
		t.Parallel()

		transport := &cannedTransport{
			getBody:  buildAdvertisement(t, blob.ID(), map[string]ginternals.Oid{"refs/heads/main": blob.ID()}),
			postBody: []byte("0008ACK\n"),
		}

		_, err := fetch.Fetch(transport, "http://example.com/repo.git", newMemODB())
		require.Error(t, err)
		assert.ErrorIs(t, err, fetch.ErrUploadPackInvalid)
	})

	t.Run("should pick the short branch name from the full ref", func(t *testing.T) {
		t.Parallel()

		transport := &cannedTransport{
			getBody:  buildAdvertisement(t, blob.ID(), map[string]ginternals.Oid{"refs/heads/feature": blob.ID()}),
			postBody: append([]byte("0008NAK\n"), buildPack(t, []byte("hello\n"))...),
		}

		head, err := fetch.Fetch(transport, "http://example.com/repo.git", newMemODB())
		require.NoError(t, err)
		assert.Equal(t, "feature", head.Branch)
	})

	t.Run("should survive an advertisement without announcement", func(t *testing.T) {
		t.Parallel()

		// some servers skip the announcement: the parser shouldn't
		// rely on a fixed amount of lines to skip
		buf := new(bytes.Buffer)
		w := pktline.NewWriter(buf)
		require.NoError(t, w.WriteString(blob.ID().String()+" HEAD\x00caps\n"))
		require.NoError(t, w.WriteString(blob.ID().String()+" refs/heads/main\n"))
		require.NoError(t, w.Flush())

		transport := &cannedTransport{
			getBody:  buf.Bytes(),
			postBody: append([]byte("0008NAK\n"), buildPack(t, []byte("hello\n"))...),
		}

		head, err := fetch.Fetch(transport, "http://example.com/repo.git", newMemODB())
		require.NoError(t, err)
		assert.Equal(t, "main", head.Branch)
	})

	t.Run("should fail on a truncated advertisement", func(t *testing.T) {
		t.Parallel()

		transport := &cannedTransport{getBody: []byte("001e# service=git")}
		_, err := fetch.Fetch(transport, "http://example.com/repo.git", newMemODB())
		require.Error(t, err)
	})
}

func TestFetchStripsBranchNewline(t *testing.T) {
	t.Parallel()

	blob := object.New(object.TypeBlob, []byte("hello\n"))
	transport := &cannedTransport{
		getBody:  buildAdvertisement(t, blob.ID(), map[string]ginternals.Oid{"refs/heads/main": blob.ID()}),
		postBody: append([]byte("0008NAK\n"), buildPack(t, []byte("hello\n"))...),
	}

	head, err := fetch.Fetch(transport, "http://example.com/repo.git", newMemODB())
	require.NoError(t, err)
	assert.False(t, strings.HasSuffix(head.Branch, "\n"))
}
