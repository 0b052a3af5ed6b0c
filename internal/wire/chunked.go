package wire

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ChunkedReader decodes a chunked-transfer-encoded body, stopping at the
// zero-length terminator chunk (spec.md §4.1 "symmetrical" read side).
// It implements io.Reader so it can be wrapped as an Entity stream.
type ChunkedReader struct {
	br   *bufio.Reader
	n    int64 // bytes left in the current chunk
	done bool
}

// NewChunkedReader wraps br, positioned just after the request/response
// headers (i.e. at the first chunk-size line).
func NewChunkedReader(br *bufio.Reader) *ChunkedReader {
	return &ChunkedReader{br: br}
}

func (c *ChunkedReader) Read(p []byte) (int, error) {
	if c.done {
		return 0, io.EOF
	}
	if c.n == 0 {
		size, err := c.readChunkSize()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			c.done = true
			if err := c.discardTrailers(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		c.n = size
	}
	if int64(len(p)) > c.n {
		p = p[:c.n]
	}
	n, err := c.br.Read(p)
	c.n -= int64(n)
	if err != nil {
		return n, err
	}
	if c.n == 0 {
		if err := c.discardCRLF(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (c *ChunkedReader) readChunkSize() (int64, error) {
	line, err := c.br.ReadString('\n')
	if err != nil {
		return 0, err
	}
	line = strings.TrimRight(line, "\r\n")
	// Strip chunk extensions, if any ("<size>;ext=value").
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	size, err := strconv.ParseInt(strings.TrimSpace(line), 16, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "wire: malformed chunk size %q", line)
	}
	return size, nil
}

func (c *ChunkedReader) discardCRLF() error {
	_, err := c.br.Discard(2)
	return err
}

// discardTrailers reads (and ignores) trailer headers up to the blank
// line, per the non-goal on trailers in spec.md §1: we accept them on
// read for interop but never surface them.
func (c *ChunkedReader) discardTrailers() error {
	for {
		line, err := c.br.ReadString('\n')
		if err != nil {
			return err
		}
		if strings.TrimRight(line, "\r\n") == "" {
			return nil
		}
	}
}
