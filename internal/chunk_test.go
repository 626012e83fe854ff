package internal

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFile = "./testdata/file.txt"

func TestChunkReader(t *testing.T) {
	var chunksize int64 = 4
	fc, err := OpenFile(testFile, "")
	require.NoError(t, err)
	defer fc.Close()

	b64, hex, err := fc.MD5()
	require.NoError(t, err)
	assert.Equal(t, "DXAGzQVelM9hRYfh0q4Mjg==", b64)
	assert.Equal(t, "0d7006cd055e94cf614587e1d2ae0c8e", hex)
	t.Logf("file: %s name: %s content: %s md5: %s %s", testFile, fc.Name(), fc.ContentType(), b64, hex)

	// chunk checksum
	chunkExpected := []string{
		"02edd93949f6d3c57d9822691b59f649",
		"6bfadd843596cfc9c19bfdc6eeea3d5d",
		"6ee4af43b83dad7d8bd82c62b421a1a7",
		"68dfd4a4137b53c1261b80b4a78985e8",
		"e31ea54fa887658979543dee0e0414f5",
		"ba535ef5a9f7b8bc875812bb081286bb",
		"9936417bcaeb75bca4f13b34cb290e3b",
		"054d72a20626265363dead7e70fafb34",
		"4c1f9f0a1bd51518e1b47b2b447f3b23",
		"3e8573f693b3c0663827e985305f079c",
		"de2f413b6d271cb3242d85f9d2eb5038",
		"68b329da9893e34099c7d8ad5cb9c940",
	}
	chunker := NewChunker(fc, chunksize)
	assert.Equal(t, len(chunkExpected), chunker.Chunks())

	expected, err := os.ReadFile(testFile)
	require.NoError(t, err)

	buf := bytes.NewBuffer(nil)
	i := 0
	for {
		rd, ok := chunker.Next()
		if !ok {
			break
		}
		_, hex, err := rd.MD5()
		require.NoError(t, err)
		assert.Equal(t, chunkExpected[i], hex, "chunk %d", i)
		_, err = io.Copy(buf, rd)
		require.NoError(t, err)
		i++
	}
	assert.Equal(t, len(chunkExpected), chunker.Emitted())
	assert.Equal(t, string(expected), buf.String())
	assert.Equal(t, int64(len(expected)), chunker.Count())
	assert.Equal(t, fc.Size(), chunker.Offset())
}

func TestChunkerScenario(t *testing.T) {
	const mib = 1024 * 1024
	data := make([]byte, 12*mib)
	p := NewBytesPayload(data, "application/octet-stream")

	var sizes []int64
	chunker := NewChunker(p, 5*mib)
	for {
		rd, ok := chunker.Next()
		if !ok {
			break
		}
		sizes = append(sizes, rd.Size())
	}
	assert.Equal(t, []int64{5 * mib, 5 * mib, 2 * mib}, sizes)
	assert.Equal(t, 3, chunker.Chunks())

	_, ok := chunker.Next()
	assert.False(t, ok, "chunker must not restart")
}

func TestChunkerDeterministic(t *testing.T) {
	p := NewBytesPayload(bytes.Repeat([]byte("abcdefg"), 1000), "text/plain")
	lengths := func() []int64 {
		var l []int64
		c := NewChunker(p, 999)
		for rd, ok := c.Next(); ok; rd, ok = c.Next() {
			l = append(l, rd.Size())
		}
		return l
	}
	first := lengths()
	assert.Equal(t, first, lengths())

	var total int64
	for _, n := range first {
		total += n
	}
	assert.Equal(t, p.Size(), total)
	assert.Len(t, first, Chunks(7000, 999))
}

func TestSlice(t *testing.T) {
	p := NewBytesPayload([]byte("0123456789"), "text/plain")

	tests := []struct {
		name      string
		off, size int64
		want      string
		next      int64
	}{
		{"first", 0, 4, "0123", 4},
		{"middle", 4, 4, "4567", 8},
		{"last is short", 8, 4, "89", 10},
		{"exact", 0, 10, "0123456789", 10},
		{"past end", 12, 4, "", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rd, next := Slice(p, tt.off, tt.size)
			b, err := rd.Bytes()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(b))
			assert.Equal(t, tt.next, next)
		})
	}
}

func TestChunkerEmpty(t *testing.T) {
	c := NewChunker(NewBytesPayload(nil, "text/plain"), 4)
	assert.Equal(t, 0, c.Chunks())
	_, ok := c.Next()
	assert.False(t, ok)

	rd, next := Slice(NewBytesPayload(nil, "text/plain"), 0, 0)
	assert.Equal(t, int64(0), next)
	b, err := rd.Bytes()
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestChunkReaderCount(t *testing.T) {
	p := NewBytesPayload([]byte("0123456789"), "text/plain")
	c := NewChunker(p, 6)
	rd, _ := c.Next()

	b, err := io.ReadAll(rd)
	require.NoError(t, err)
	assert.Equal(t, "012345", string(b))
	assert.Equal(t, int64(6), c.Count())
	assert.Equal(t, int64(0), rd.Offset())

	// MD5 reads a separate reader over the same range
	sum, _, err := rd.MD5()
	require.NoError(t, err)
	assert.NotEmpty(t, sum)
	assert.Equal(t, int64(6), c.Count())

	rd, _ = c.Next()
	b, err = rd.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "6789", string(b))
	assert.Equal(t, int64(10), c.Count())
	assert.Equal(t, 2, c.Emitted())
}

func TestChunks(t *testing.T) {
	assert.Equal(t, 0, Chunks(0, 5))
	assert.Equal(t, 1, Chunks(5, 5))
	assert.Equal(t, 2, Chunks(6, 5))
	// objects beyond 2^31 bytes
	assert.Equal(t, 1025, Chunks(5<<30+1, 5<<20))
}

// zeroPayload reads as size zero bytes without holding them in memory.
type zeroPayload int64

func (p zeroPayload) ReadAt(b []byte, off int64) (int, error) {
	if off >= int64(p) {
		return 0, io.EOF
	}
	n := len(b)
	if rest := int64(p) - off; int64(n) > rest {
		n = int(rest)
	}
	for i := range b[:n] {
		b[i] = 0
	}
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

func (p zeroPayload) Size() int64         { return int64(p) }
func (p zeroPayload) ContentType() string { return "application/octet-stream" }

func TestChunkerLargePayload(t *testing.T) {
	const size = 5 << 30
	const chunksize = 5 << 20
	p := zeroPayload(size)

	c := NewChunker(p, chunksize)
	assert.Equal(t, 1024, c.Chunks())

	var last *ChunkReader
	var off int64
	for {
		rd, ok := c.Next()
		if !ok {
			break
		}
		require.Equal(t, off, rd.Offset())
		require.Equal(t, int64(chunksize), rd.Size())
		off += rd.Size()
		last = rd
	}
	assert.Equal(t, 1024, c.Emitted())
	assert.Equal(t, int64(size), c.Offset())
	assert.Equal(t, int64(0), c.Count())
	require.NotNil(t, last)
	assert.Equal(t, int64(size-chunksize), last.Offset())
	assert.Greater(t, last.Offset(), int64(1<<31))

	// a short tail past 2^32
	rd, next := Slice(p, size-100, chunksize)
	assert.Equal(t, int64(size-100), rd.Offset())
	assert.Equal(t, int64(100), rd.Size())
	assert.Equal(t, int64(size), next)

	buf := make([]byte, 64)
	n, err := rd.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	n, err = rd.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 36, n)
	_, err = rd.Read(buf)
	assert.Equal(t, io.EOF, err)

	rd, next = Slice(p, size, chunksize)
	assert.Equal(t, int64(0), rd.Size())
	assert.Equal(t, int64(size), next)
}
