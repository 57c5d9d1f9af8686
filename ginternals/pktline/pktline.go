// Package pktline contains methods to read and write the pkt-line
// framing used by the git smart protocols.
// A pkt-line is a 4-char ascii hex length (which includes the length
// itself) followed by the payload. A length of 0000 is a flush-pkt and
// marks the end of a section
// https://git-scm.com/docs/protocol-common#_pkt_line_format
package pktline

import (
	"errors"
	"io"
	"strconv"

	"github.com/minigit-scm/minigit/internal/readutil"
	"golang.org/x/xerrors"
)

// MaxPayloadLen is the maximum length of a pkt-line payload
const MaxPayloadLen = 65516

var (
	// ErrLineInvalid is returned when a pkt-line has an invalid
	// length prefix
	ErrLineInvalid = errors.New("invalid pkt-line length")

	// ErrLineTooLong is returned when writing a payload that doesn't
	// fit in a single pkt-line
	ErrLineTooLong = errors.New("pkt-line too long")
)

// Reader reads pkt-line records from an underlying reader
type Reader struct {
	r io.Reader
}

// NewReader creates a new Reader from r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadLine returns the payload of the next pkt-line.
// A flush-pkt (or a delim-pkt, whose length is also ≤ 4) ends the
// current section and is reported as (nil, io.EOF)
func (r *Reader) ReadLine() ([]byte, error) {
	prefix, err := readutil.ReadBytes(r.r, 4)
	if err != nil {
		return nil, xerrors.Errorf("could not read pkt-line length: %w", err)
	}
	length, err := strconv.ParseInt(string(prefix), 16, 32)
	if err != nil {
		return nil, xerrors.Errorf("pkt-line length %q: %w", prefix, ErrLineInvalid)
	}
	if length <= 4 {
		return nil, io.EOF
	}
	payload, err := readutil.ReadBytes(r.r, int(length)-4)
	if err != nil {
		return nil, xerrors.Errorf("could not read pkt-line payload: %w", err)
	}
	return payload, nil
}

// Writer writes pkt-line records to an underlying writer
type Writer struct {
	w io.Writer
}

// NewWriter creates a new Writer from w
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteLine writes p as a single pkt-line record
func (w *Writer) WriteLine(p []byte) error {
	if len(p) > MaxPayloadLen {
		return ErrLineTooLong
	}
	prefix := []byte("000" + strconv.FormatInt(int64(len(p)+4), 16))
	if _, err := w.w.Write(prefix[len(prefix)-4:]); err != nil {
		return xerrors.Errorf("could not write pkt-line length: %w", err)
	}
	if _, err := w.w.Write(p); err != nil {
		return xerrors.Errorf("could not write pkt-line payload: %w", err)
	}
	return nil
}

// WriteString writes s as a single pkt-line record
func (w *Writer) WriteString(s string) error {
	return w.WriteLine([]byte(s))
}

// Flush sends a flush-pkt to the underlying writer
func (w *Writer) Flush() error {
	if _, err := w.w.Write([]byte("0000")); err != nil {
		return xerrors.Errorf("could not write flush-pkt: %w", err)
	}
	return nil
}
