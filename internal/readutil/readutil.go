// Package readutil contains small helpers to read framed binary data,
// either from a buffer or from a stream
package readutil

import (
	"io"

	"golang.org/x/xerrors"
)

// ReadTo reads from b until to is seen and returns the bytes between the
// start and to, exclusive of to. Returns nil if to is not found
func ReadTo(b []byte, to byte) []byte {
	var i int
	for ; i < len(b) && b[i] != to; i++ {
		// the conditions handle it all!
	}

	if i == len(b) {
		return nil
	}

	return b[0:i]
}

// ReadBytes reads exactly n bytes from r.
// A short read is reported as an error
func ReadBytes(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, xerrors.Errorf("could not read %d bytes: %w", n, err)
	}
	return buf, nil
}

// ReadByte reads a single byte from r
func ReadByte(r io.Reader) (byte, error) {
	buf, err := ReadBytes(r, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUntilNul reads from r up to the next NUL char. The NUL is consumed
// but not returned. Reaching the end of the stream before a NUL is
// an error
func ReadUntilNul(r io.Reader) ([]byte, error) {
	var out []byte
	for {
		b, err := ReadByte(r)
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return out, nil
		}
		out = append(out, b)
	}
}
