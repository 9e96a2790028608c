// Package stream decodes newline-delimited JSON bodies incrementally.
//
// Decoder splits a byte stream into lines, one chunk read at a time, without
// ever holding more than the current partial line plus one chunk. Stream wraps a
// Decoder and a per-line parser into a lazy, single-use sequence that releases
// the underlying body as soon as the consumer stops.
package stream

import (
	"bytes"
	"io"

	"github.com/hyp3rd/memclient/internal/constants"
)

// Decoder splits an io.Reader into newline-terminated records.
type Decoder struct {
	r     io.Reader
	buf   []byte
	off   int
	chunk []byte
	line  int
	eof   bool
	err   error
}

// NewDecoder returns a decoder reading chunkSize bytes at a time.
// A non-positive chunkSize selects the default.
func NewDecoder(r io.Reader, chunkSize int) *Decoder {
	if chunkSize <= 0 {
		chunkSize = constants.DefaultStreamChunkSize
	}

	return &Decoder{r: r, chunk: make([]byte, chunkSize)}
}

// Next returns the next non-blank record and its 1-based line number.
// A trailing record without a final newline is returned once the reader is exhausted.
// The returned slice is only valid until the following call.
// Next returns io.EOF after the last record. A read failure is returned once every
// complete record read before it has been handed out.
func (d *Decoder) Next() ([]byte, int, error) {
	for {
		if i := bytes.IndexByte(d.buf[d.off:], '\n'); i >= 0 {
			raw := d.buf[d.off : d.off+i]
			d.off += i + 1
			d.line++

			if rec := trim(raw); len(rec) > 0 {
				return rec, d.line, nil
			}

			continue
		}

		if d.err != nil {
			return nil, d.line, d.err
		}

		if d.eof {
			rest := d.buf[d.off:]
			d.off = len(d.buf)

			if rec := trim(rest); len(rec) > 0 {
				d.line++

				return rec, d.line, nil
			}

			return nil, d.line, io.EOF
		}

		d.fill()
	}
}

// fill compacts the buffer and appends one chunk from the reader.
// Read failures are kept in d.err so the bytes read alongside them are still decoded.
func (d *Decoder) fill() {
	if d.off > 0 {
		n := copy(d.buf, d.buf[d.off:])
		d.buf = d.buf[:n]
		d.off = 0
	}

	n, err := d.r.Read(d.chunk)
	if n > 0 {
		d.buf = append(d.buf, d.chunk[:n]...)
	}

	switch {
	case err == io.EOF: //nolint:errorlint // io.Reader contract returns io.EOF unwrapped
		d.eof = true
	case err != nil:
		d.err = err
	}
}

// Buffered returns the number of bytes held for the current partial record.
func (d *Decoder) Buffered() int { return len(d.buf) - d.off }

func trim(b []byte) []byte {
	return bytes.TrimSpace(b)
}
