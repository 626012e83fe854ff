package internal

import (
	"bytes"
	"os"
	"path/filepath"
)

// BytesPayload is an in-memory payload.
type BytesPayload struct {
	r           *bytes.Reader
	contentType string
}

func NewBytesPayload(data []byte, contentType string) *BytesPayload {
	return &BytesPayload{
		r:           bytes.NewReader(data),
		contentType: contentType,
	}
}

func (p *BytesPayload) ReadAt(b []byte, off int64) (int, error) {
	return p.r.ReadAt(b, off)
}

func (p *BytesPayload) Size() int64 {
	return p.r.Size()
}

func (p *BytesPayload) ContentType() string {
	return p.contentType
}

// File is a payload backed by a file on disk.
type File struct {
	filename    string
	file        *os.File
	name        string
	contentType string
	size        int64
}

// OpenFile opens filename and sniffs its media type unless contentType is given.
func OpenFile(filename, contentType string) (*File, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if contentType == "" {
		contentType, err = ContentType(file)
		if err != nil {
			file.Close()
			return nil, err
		}
	}
	return &File{
		filename:    filename,
		file:        file,
		name:        filepath.Base(fi.Name()),
		contentType: contentType,
		size:        fi.Size(),
	}, nil
}

func (r *File) ReadAt(p []byte, off int64) (int, error) {
	return r.file.ReadAt(p, off)
}

func (r *File) Close() error {
	if r.file == nil {
		return os.ErrInvalid
	}
	return r.file.Close()
}

func (r *File) Filename() string {
	return r.filename
}

func (r *File) Name() string {
	return r.name
}

func (r *File) ContentType() string {
	return r.contentType
}

func (r *File) Size() int64 {
	return r.size
}

// MD5 digests the whole file.
func (r *File) MD5() (string, string, error) {
	return MD5Sum(NewChunkReader(r, 0, r.size))
}
