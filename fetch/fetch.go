// Package fetch contains a client for the git smart-HTTP protocol.
// It discovers the remote's HEAD through info/refs and downloads the
// matching pack through git-upload-pack
// https://git-scm.com/docs/http-protocol
package fetch

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/minigit-scm/minigit/ginternals"
	"github.com/minigit-scm/minigit/ginternals/packfile"
	"github.com/minigit-scm/minigit/ginternals/pktline"
	"github.com/minigit-scm/minigit/internal/errutil"
	"golang.org/x/xerrors"
)

const uploadPackService = "git-upload-pack"

var (
	// ErrAdvertisementInvalid is returned when the ref advertisement
	// of the remote cannot be parsed
	ErrAdvertisementInvalid = errors.New("invalid ref advertisement")

	// ErrBranchNotFound is returned when no advertised ref matches
	// the remote's HEAD
	ErrBranchNotFound = errors.New("no ref matches the advertised HEAD")

	// ErrUploadPackInvalid is returned when the upload-pack response
	// doesn't start with a NAK
	ErrUploadPackInvalid = errors.New("invalid upload-pack response")
)

// Head represents the advertised state of a remote: the commit its
// HEAD points to and the short name of the matching branch
type Head struct {
	ID     ginternals.Oid
	Branch string
}

// Fetch negotiates with the remote and stores the commits, trees, and
// blobs of the returned pack in the odb (tags are decoded and dropped)
func Fetch(t Transport, remote string, odb packfile.ObjectDB) (head Head, err error) {
	remote = strings.TrimSuffix(remote, "/")

	head, err = discoverHead(t, remote)
	if err != nil {
		return Head{}, xerrors.Errorf("could not discover the remote HEAD: %w", err)
	}

	if err = downloadPack(t, remote, head.ID, odb); err != nil {
		return Head{}, xerrors.Errorf("could not download the pack: %w", err)
	}
	return head, nil
}

// discoverHead downloads and parses the ref advertisement.
//
// The advertisement contains a service announcement line, a flush-pkt,
// then one pkt-line per ref. The first ref is HEAD followed by a NUL
// and the capabilities of the server, which we ignore
func discoverHead(t Transport, remote string) (head Head, err error) {
	body, err := t.Get(remote + "/info/refs?service=" + uploadPackService)
	if err != nil {
		return Head{}, err
	}
	defer errutil.Close(body, &err)

	refs := pktline.NewReader(body)

	// Skip the announcement lines and section breaks until the first
	// real payload shows up
	var first []byte
	for first == nil {
		line, err := refs.ReadLine()
		switch {
		case err == io.EOF:
			// flush-pkt separating the announcement from the refs
			continue
		case err != nil:
			return Head{}, err
		}
		if bytes.HasPrefix(line, []byte("# service=")) {
			continue
		}
		first = line
	}

	// The first ref is "{hash} HEAD\x00{capabilities}"
	ref, _, _ := bytes.Cut(first, []byte{0})
	fields := bytes.SplitN(ref, []byte{' '}, 2)
	if len(fields) != 2 {
		return Head{}, xerrors.Errorf("first ref %q has no name: %w", ref, ErrAdvertisementInvalid)
	}
	if name := string(bytes.TrimSuffix(fields[1], []byte{'\n'})); name != ginternals.Head {
		return Head{}, xerrors.Errorf("expected the first ref to be HEAD, got %q: %w", name, ErrAdvertisementInvalid)
	}
	head.ID, err = ginternals.NewOidFromChars(fields[0])
	if err != nil {
		return Head{}, xerrors.Errorf("HEAD id %q: %w", fields[0], ErrAdvertisementInvalid)
	}

	// The remaining refs tell us which branch HEAD points to: the
	// first one carrying the same id wins
	for {
		line, err := refs.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Head{}, err
		}

		fields := bytes.SplitN(line, []byte{' '}, 2)
		if len(fields) != 2 {
			return Head{}, xerrors.Errorf("ref %q has no name: %w", line, ErrAdvertisementInvalid)
		}
		oid, err := ginternals.NewOidFromChars(fields[0])
		if err != nil {
			return Head{}, xerrors.Errorf("ref id %q: %w", fields[0], ErrAdvertisementInvalid)
		}
		if oid == head.ID && head.Branch == "" {
			fullName := string(bytes.TrimSuffix(fields[1], []byte{'\n'}))
			segments := strings.Split(fullName, "/")
			head.Branch = segments[len(segments)-1]
		}
	}

	if head.Branch == "" {
		return Head{}, ErrBranchNotFound
	}
	return head, nil
}

// downloadPack asks the remote for everything reachable from want and
// feeds the resulting pack to the unpacker
func downloadPack(t Transport, remote string, want ginternals.Oid, odb packfile.ObjectDB) (err error) {
	request := new(bytes.Buffer)
	w := pktline.NewWriter(request)
	if err = w.WriteString("want " + want.String() + "\n"); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = w.WriteString("done\n"); err != nil {
		return err
	}

	body, err := t.Post(remote+"/"+uploadPackService+"?service="+uploadPackService,
		"application/x-git-upload-pack-request", request)
	if err != nil {
		return err
	}
	defer errutil.Close(body, &err)

	// Since we have nothing to negotiate the server answers with a
	// single NAK before the pack
	nak, err := pktline.NewReader(body).ReadLine()
	if err != nil {
		return xerrors.Errorf("could not read the server ack: %w", err)
	}
	if string(nak) != "NAK\n" {
		return xerrors.Errorf("expected a NAK, got %q: %w", nak, ErrUploadPackInvalid)
	}

	if _, err = packfile.Unpack(body, odb); err != nil {
		return err
	}
	return nil
}
