package internal

import (
	"io"
)

// Payload is a read-only byte source with a known size and media type.
// Chunks are read with ReadAt so the payload is never mutated or buffered as a whole.
type Payload interface {
	io.ReaderAt
	Size() int64
	ContentType() string
}

// Chunker splits a payload into ordered chunks of at most chunksize bytes.
// It is not restartable: every call to Next advances the offset.
type Chunker struct {
	payload   Payload
	chunksize int64

	off   int64
	chunk int     // chunks emitted so far
	count Counter // bytes read through emitted chunks
}

func NewChunker(payload Payload, chunksize int64) *Chunker {
	return &Chunker{
		payload:   payload,
		chunksize: chunksize,
	}
}

// Chunks returns the total number of chunks the payload splits into.
func (r *Chunker) Chunks() int {
	return Chunks(r.payload.Size(), r.chunksize)
}

// Next returns the reader for the next chunk, or false once the payload is exhausted.
func (r *Chunker) Next() (*ChunkReader, bool) {
	if r.off >= r.payload.Size() {
		return nil, false
	}
	rd, next := Slice(r.payload, r.off, r.chunksize)
	rd.count = &r.count
	r.off = next
	r.chunk++
	return rd, true
}

// Offset is the byte offset of the next chunk.
func (r *Chunker) Offset() int64 {
	return r.off
}

// Emitted is the number of chunks returned by Next so far.
func (r *Chunker) Emitted() int {
	return r.chunk
}

// Count is the number of bytes read through the emitted chunk readers.
func (r *Chunker) Count() int64 {
	return r.count.Load()
}

// Chunks computes ceil(size / chunksize).
func Chunks(size, chunksize int64) int {
	if size <= 0 || chunksize <= 0 {
		return 0
	}
	n := size / chunksize
	if size%chunksize != 0 {
		n++
	}
	return int(n)
}

// Slice returns a reader over payload[off:off+chunksize], clamped to the payload size,
// along with the offset of the following chunk.
func Slice(payload Payload, off, chunksize int64) (*ChunkReader, int64) {
	size := payload.Size()
	if off > size {
		off = size
	}
	limit := off + chunksize
	// adjust limit for last chunk
	if limit > size || limit < off {
		limit = size
	}
	return NewChunkReader(payload, off, limit), limit
}

// ChunkReader reads the byte range [base, limit) of a payload.
type ChunkReader struct {
	reader Payload
	base   int64
	off    int64
	limit  int64
	count  *Counter
}

func NewChunkReader(r Payload, off, limit int64) *ChunkReader {
	return &ChunkReader{
		reader: r,
		base:   off,
		off:    off,
		limit:  limit,
	}
}

// MD5 digests the chunk without moving the read position.
func (r *ChunkReader) MD5() (string, string, error) {
	cr := NewChunkReader(r.reader, r.base, r.limit)
	return MD5Sum(cr)
}

func (r *ChunkReader) Read(p []byte) (int, error) {
	if r.off >= r.limit {
		return 0, io.EOF
	}
	if max := r.limit - r.off; int64(len(p)) > max {
		p = p[0:max]
	}
	n, err := r.reader.ReadAt(p, r.off)
	r.off += int64(n)
	if err == io.EOF && r.off < r.limit {
		err = io.ErrUnexpectedEOF
	} else if err == io.EOF {
		err = nil
	}
	if r.count != nil {
		r.count.Add(int64(n))
	}
	return n, err
}

// Bytes reads the unread remainder of the chunk into memory.
func (r *ChunkReader) Bytes() ([]byte, error) {
	buf := make([]byte, r.limit-r.off)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Offset is the position of the chunk within the payload.
func (r *ChunkReader) Offset() int64 {
	return r.base
}

func (r *ChunkReader) Size() int64 {
	return r.limit - r.base
}
