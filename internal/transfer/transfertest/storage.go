// Package transfertest provides an in-memory transfer.Storage for tests.
package transfertest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gostones/s3transfer/internal/transfer"
)

type object struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

type upload struct {
	id          string
	contentType string
	metadata    map[string]string
	parts       map[int64][]byte
}

// Storage keeps objects and multipart sessions in memory. Presigned URLs
// point at BaseURL, which should serve Handler.
type Storage struct {
	BaseURL string

	mu      sync.Mutex
	err     error
	objects map[string]*object
	uploads map[string]*upload
	n       int
	calls   []string
}

var _ transfer.Storage = (*Storage)(nil)

func New() *Storage {
	return &Storage{
		objects: make(map[string]*object),
		uploads: make(map[string]*upload),
	}
}

// ETag returns the ETag Storage assigns to data.
func ETag(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// Calls lists the operations performed so far, in order.
func (s *Storage) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Object returns a stored object.
func (s *Storage) Object(id string) (data []byte, contentType string, metadata map[string]string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[id]
	if !ok {
		return nil, "", nil, false
	}
	return o.data, o.contentType, o.metadata, true
}

// OpenUploads is the number of initiated but not completed sessions.
func (s *Storage) OpenUploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

// Fail makes every later call return err. A nil err clears the failure.
func (s *Storage) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Storage) call(op string) error {
	s.calls = append(s.calls, op)
	return s.err
}

func (s *Storage) CreateMultipartUpload(ctx context.Context, id, contentType string, metadata map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("createMultipartUpload"); err != nil {
		return "", err
	}
	if id == "" {
		return "", transfer.InvalidArgument("createMultipartUpload", transfer.ErrMissingID)
	}
	s.n++
	uploadID := fmt.Sprintf("upload-%d", s.n)
	s.uploads[uploadID] = &upload{id: id, contentType: contentType, metadata: metadata, parts: make(map[int64][]byte)}
	return uploadID, nil
}

func (s *Storage) CompleteMultipartUpload(ctx context.Context, id, uploadID string, parts []transfer.Part) (*transfer.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "completeMultipartUpload"
	if err := s.call(op); err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, transfer.InvalidArgument(op, transfer.ErrMissingParts)
	}
	up, ok := s.uploads[uploadID]
	if !ok || up.id != id {
		return nil, &transfer.BackendError{Op: op, ID: id, Code: "NoSuchUpload", StatusCode: http.StatusNotFound, Message: "The specified upload does not exist."}
	}
	var data []byte
	for i, p := range parts {
		b, ok := up.parts[p.PartNumber]
		if !ok || p.PartNumber != int64(i+1) || p.ETag != ETag(b) {
			return nil, &transfer.BackendError{Op: op, ID: id, Code: "InvalidPart", StatusCode: http.StatusBadRequest, Message: "One or more of the specified parts could not be found."}
		}
		data = append(data, b...)
	}
	delete(s.uploads, uploadID)
	s.objects[id] = &object{data: data, contentType: up.contentType, metadata: up.metadata}
	return &transfer.Completion{
		Location: s.BaseURL + "/" + id,
		Bucket:   "memory",
		Key:      id,
		ETag:     fmt.Sprintf(`"%s-%d"`, uploadID, len(parts)),
	}, nil
}

func (s *Storage) SignURL(ctx context.Context, req *transfer.SignRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "signUrl"
	if err := s.call(op); err != nil {
		return "", err
	}
	if req.ID == "" {
		return "", transfer.InvalidArgument(op, transfer.ErrMissingID)
	}
	q := url.Values{}
	q.Set("id", req.ID)
	q.Set("command", string(req.Operation))
	if req.Part != nil {
		q.Set("uploadId", req.Part.UploadID)
		q.Set("partNumber", strconv.FormatInt(req.Part.PartNumber, 10))
	}
	if req.Expires > 0 {
		q.Set("expires", strconv.FormatInt(int64(req.Expires.Seconds()), 10))
	}
	return s.BaseURL + "/object?" + q.Encode(), nil
}

func (s *Storage) store(id, contentType string, data []byte, part *transfer.PartContext, metadata map[string]string) (string, error) {
	if part == nil {
		s.objects[id] = &object{data: data, contentType: contentType, metadata: metadata}
		return ETag(data), nil
	}
	up, ok := s.uploads[part.UploadID]
	if !ok {
		return "", &transfer.BackendError{Op: "uploadPart", ID: id, Code: "NoSuchUpload", StatusCode: http.StatusNotFound, Message: "The specified upload does not exist."}
	}
	up.parts[part.PartNumber] = data
	return ETag(data), nil
}

func (s *Storage) PutObject(ctx context.Context, req *transfer.PutRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "putObject"
	if err := s.call(op); err != nil {
		return "", err
	}
	if req.ID == "" {
		return "", transfer.InvalidArgument(op, transfer.ErrMissingID)
	}
	data, err := transfer.Decode(req.Buffer)
	if err != nil {
		return "", transfer.InvalidArgument(op, err)
	}
	return s.store(req.ID, req.ContentType, data, req.Part, req.Metadata)
}

func (s *Storage) GetObject(ctx context.Context, id string) (*transfer.EncodedObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	const op = "getObject"
	if err := s.call(op); err != nil {
		return nil, err
	}
	o, ok := s.objects[id]
	if !ok {
		return nil, &transfer.BackendError{Op: op, ID: id, Code: "NoSuchKey", StatusCode: http.StatusNotFound, Message: "The specified key does not exist."}
	}
	return &transfer.EncodedObject{ID: id, Buffer: transfer.Encode(o.data), ContentType: o.contentType}, nil
}

func (s *Storage) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("remove"); err != nil {
		return err
	}
	delete(s.objects, id)
	return nil
}

// Handler serves the presigned URLs returned by SignURL.
func (s *Storage) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		id := q.Get("id")
		switch r.Method {
		case http.MethodPut:
			data, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			var part *transfer.PartContext
			if q.Get("command") == string(transfer.OpUploadPart) {
				n, _ := strconv.ParseInt(q.Get("partNumber"), 10, 64)
				part = &transfer.PartContext{UploadID: q.Get("uploadId"), PartNumber: n}
			}
			s.mu.Lock()
			etag, err := s.store(id, r.Header.Get("Content-Type"), data, part, nil)
			s.mu.Unlock()
			if err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			w.Header().Set("ETag", etag)
		case http.MethodGet:
			s.mu.Lock()
			o, ok := s.objects[id]
			s.mu.Unlock()
			if !ok {
				http.Error(w, "NoSuchKey", http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", o.contentType)
			w.Write(o.data)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}
