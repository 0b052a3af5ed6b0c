package message

import (
	"bytes"
	"io"
	"os"
)

// Entity abstracts over a byte source attached to a message. The length
// is known for in-memory and file-backed entities, and unknown (chunked
// on the wire) for arbitrary streams. Callers must Close an Entity
// after consuming it; a repeat Close is tolerated (spec.md §3, §5 "each
// response body's stream is closed at most twice... guarded").
type Entity interface {
	// Reader returns the byte stream. In-memory and file-backed entities
	// return a fresh stream from the start on each call; a stream entity
	// returns its single underlying stream every time, so a later call
	// sees only what earlier reads left unread.
	Reader() io.Reader

	// Length returns the known length and true, or (0, false) if the
	// length cannot be determined without consuming the stream.
	Length() (int64, bool)

	// Close releases any resources held by the entity (an open file
	// descriptor, a network body, ...). Close may be called more than
	// once; calls after the first release nothing further.
	Close() error
}

// EmptyEntity is an Entity with no bytes and a known length of zero.
var EmptyEntity Entity = bytesEntity{}

type bytesEntity struct {
	data []byte
}

// NewBytesEntity wraps data as an Entity with a known length.
func NewBytesEntity(data []byte) Entity {
	return bytesEntity{data: data}
}

func (e bytesEntity) Reader() io.Reader     { return bytes.NewReader(e.data) }
func (e bytesEntity) Length() (int64, bool) { return int64(len(e.data)), true }
func (e bytesEntity) Close() error          { return nil }

type fileEntity struct {
	path string
	size int64
	file *os.File
}

// NewFileEntity opens path lazily (on the first call to Reader) and
// reports size as its known length.
func NewFileEntity(path string, size int64) Entity {
	return &fileEntity{path: path, size: size}
}

func (e *fileEntity) Reader() io.Reader {
	f, err := os.Open(e.path)
	if err != nil {
		return errReader{err}
	}
	e.file = f
	return f
}

func (e *fileEntity) Length() (int64, bool) { return e.size, true }

func (e *fileEntity) Close() error {
	if e.file == nil {
		return nil
	}
	return e.file.Close()
}

type fileRangeEntity struct {
	path        string
	start, size int64
	file        *os.File
}

// NewFileRangeEntity opens path lazily and yields exactly size bytes
// starting at offset start, for the static handler's byte-range support
// (SPEC_FULL.md §6).
func NewFileRangeEntity(path string, start, size int64) Entity {
	return &fileRangeEntity{path: path, start: start, size: size}
}

func (e *fileRangeEntity) Reader() io.Reader {
	f, err := os.Open(e.path)
	if err != nil {
		return errReader{err}
	}
	if _, err := f.Seek(e.start, io.SeekStart); err != nil {
		f.Close()
		return errReader{err}
	}
	e.file = f
	return io.LimitReader(f, e.size)
}

func (e *fileRangeEntity) Length() (int64, bool) { return e.size, true }

func (e *fileRangeEntity) Close() error {
	if e.file == nil {
		return nil
	}
	return e.file.Close()
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// streamEntity wraps an already-open stream of unknown or externally
// tracked length (e.g. a socket body, a pipe from a handler).
type streamEntity struct {
	r      io.ReadCloser
	length int64
	known  bool
}

// NewStreamEntity wraps r as an Entity. length < 0 means unknown length
// (the connection engine will use chunked transfer encoding for it).
func NewStreamEntity(r io.ReadCloser, length int64) Entity {
	return &streamEntity{r: r, length: length, known: length >= 0}
}

func (e *streamEntity) Reader() io.Reader     { return e.r }
func (e *streamEntity) Length() (int64, bool) { return e.length, e.known }
func (e *streamEntity) Close() error          { return e.r.Close() }
