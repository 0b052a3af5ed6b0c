package wire

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLineReturnsTextBeforeCRLF(t *testing.T) {
	r := NewReader(bufio.NewReader(bytes.NewBufferString("GET / HTTP/1.1\r\nHost: x\r\n\r\n")))

	line, err := r.ReadLine(1024)
	require.NoError(t, err)
	assert.Equal(t, "GET / HTTP/1.1", line)

	line, err = r.ReadLine(1024)
	require.NoError(t, err)
	assert.Equal(t, "Host: x", line)

	line, err = r.ReadLine(1024)
	require.NoError(t, err)
	assert.Equal(t, "", line)
}

func TestReadLineTooLongReturnsErrLineTooLong(t *testing.T) {
	r := NewReader(bufio.NewReader(bytes.NewBufferString("a very long line indeed\r\nnext\r\n")))

	_, err := r.ReadLine(5)
	assert.ErrorIs(t, err, ErrLineTooLong)

	// the connection can keep reading afterward.
	line, err := r.ReadLine(1024)
	require.NoError(t, err)
	assert.Equal(t, "next", line)
}

func TestReadTokenStopsAtDelimiter(t *testing.T) {
	r := NewReader(bufio.NewReader(bytes.NewBufferString("GET /path HTTP/1.1")))

	tok, err := r.ReadToken(" ", 1024)
	require.NoError(t, err)
	assert.Equal(t, "GET", tok)

	tok, err = r.ReadToken(" ", 1024)
	require.NoError(t, err)
	assert.Equal(t, "/path", tok)
}

func TestPeekDoesNotConsume(t *testing.T) {
	r := NewReader(bufio.NewReader(bytes.NewBufferString("X")))

	b, err := r.Peek(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("X"), b)

	got, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('X'), got)
}
