// Package wire implements HTTP/1.1's byte-level framing: bounded line
// and token reads off a buffered socket, and chunked transfer-encoding
// on both read and write (spec.md §4.1).
package wire

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// ErrLineTooLong is returned by Reader.ReadLine when a line does not fit
// the caller-supplied buffer bound. The connection service (spec.md
// §4.5 step 2) translates this into RequestHeaderFieldsTooLarge or
// UriTooLong depending on which read produced it.
var ErrLineTooLong = errors.New("wire: line exceeds buffer bound")

// Reader wraps a buffered socket reader with bounded line/token reads.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps br. Buffer sizing is the caller's responsibility
// (config.BufferSize, spec.md §6).
func NewReader(br *bufio.Reader) *Reader {
	return &Reader{br: br}
}

// ReadLine reads up to a CRLF terminator (a bare LF is also accepted, as
// is conventional for HTTP/1.1 lenience) and returns the bytes before it
// as a string, not including the terminator. maxLen bounds the number of
// bytes read before the terminator is found; exceeding it returns
// ErrLineTooLong.
func (r *Reader) ReadLine(maxLen int) (string, error) {
	var line []byte
	for {
		chunk, isPrefix, err := r.br.ReadLine()
		if err != nil {
			return "", err
		}
		if len(line)+len(chunk) > maxLen {
			// Drain the rest of the oversized line so the connection
			// can still be read from afterwards (or closed cleanly).
			for isPrefix {
				_, isPrefix, err = r.br.ReadLine()
				if err != nil {
					break
				}
			}
			return "", ErrLineTooLong
		}
		line = append(line, chunk...)
		if !isPrefix {
			return string(line), nil
		}
	}
}

// ReadToken reads bytes up to any byte in delimiters, leaving the cursor
// past the delimiter. maxLen bounds the token length.
func (r *Reader) ReadToken(delimiters string, maxLen int) (string, error) {
	var tok []byte
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			return "", err
		}
		if indexByte(delimiters, b) >= 0 {
			return string(tok), nil
		}
		if len(tok) >= maxLen {
			return "", ErrLineTooLong
		}
		tok = append(tok, b)
	}
}

// Peek exposes the underlying bufio.Reader's Peek, used to implement the
// "wait for one byte" liveness probe (spec.md §4.5 step 1) without
// consuming it.
func (r *Reader) Peek(n int) ([]byte, error) {
	return r.br.Peek(n)
}

// ReadByte reads and consumes exactly one byte.
func (r *Reader) ReadByte() (byte, error) {
	return r.br.ReadByte()
}

// ReadFull reads exactly len(buf) bytes.
func (r *Reader) ReadFull(buf []byte) (int, error) {
	return io.ReadFull(r.br, buf)
}

// Buffered returns the underlying bufio.Reader for callers (e.g. chunked
// body decoding) that need direct access.
func (r *Reader) Buffered() *bufio.Reader { return r.br }

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
