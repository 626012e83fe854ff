package transfer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"testing"
)

type memObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

type memUpload struct {
	id          string
	contentType string
	metadata    map[string]string
	parts       map[int64][]byte
}

// memStorage is an in-memory Storage. Presigned URLs point at an httptest
// server backed by the same maps, so Direct and Relayed modes share state.
type memStorage struct {
	mu sync.Mutex

	objects map[string]*memObject
	uploads map[string]*memUpload
	nextID  int

	// failPart makes the put of that part number fail.
	failPart     int64
	failCreate   error
	failComplete error

	creates      []string
	puts         []int // body sizes of every put, whole objects and parts
	partNumbers  []int64
	completes    [][]Part
	signRequests []SignRequest
	md5Headers   []string
	removes      []string

	srv *httptest.Server
}

func newMemStorage(t *testing.T) *memStorage {
	t.Helper()
	m := &memStorage{
		objects: make(map[string]*memObject),
		uploads: make(map[string]*memUpload),
	}
	m.srv = httptest.NewServer(m)
	t.Cleanup(m.srv.Close)
	return m
}

func etagOf(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func (m *memStorage) CreateMultipartUpload(ctx context.Context, id, contentType string, metadata map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates = append(m.creates, id)
	if m.failCreate != nil {
		return "", m.failCreate
	}
	m.nextID++
	uploadID := fmt.Sprintf("upload-%d", m.nextID)
	m.uploads[uploadID] = &memUpload{
		id:          id,
		contentType: contentType,
		metadata:    metadata,
		parts:       make(map[int64][]byte),
	}
	return uploadID, nil
}

func (m *memStorage) CompleteMultipartUpload(ctx context.Context, id, uploadID string, parts []Part) (*Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completes = append(m.completes, parts)
	if m.failComplete != nil {
		return nil, m.failComplete
	}
	up, ok := m.uploads[uploadID]
	if !ok || up.id != id {
		return nil, &BackendError{Op: "completeMultipartUpload", ID: id, Code: "NoSuchUpload", StatusCode: 404, Message: "unknown upload"}
	}
	var data []byte
	for i, p := range parts {
		b, ok := up.parts[p.PartNumber]
		if !ok || p.PartNumber != int64(i+1) || p.ETag != etagOf(b) {
			return nil, &BackendError{Op: "completeMultipartUpload", ID: id, Code: "InvalidPart", StatusCode: 400, Message: "invalid part"}
		}
		data = append(data, b...)
	}
	delete(m.uploads, uploadID)
	m.objects[id] = &memObject{data: data, contentType: up.contentType, metadata: up.metadata}
	return &Completion{
		Location: m.srv.URL + "/" + id,
		Key:      id,
		ETag:     fmt.Sprintf(`"%s-%d"`, uploadID, len(parts)),
	}, nil
}

func (m *memStorage) SignURL(ctx context.Context, req *SignRequest) (string, error) {
	m.mu.Lock()
	m.signRequests = append(m.signRequests, *req)
	m.mu.Unlock()

	q := url.Values{}
	q.Set("id", req.ID)
	q.Set("command", string(req.Operation))
	q.Set("contentType", req.ContentType)
	if req.Part != nil {
		q.Set("uploadId", req.Part.UploadID)
		q.Set("partNumber", strconv.FormatInt(req.Part.PartNumber, 10))
	}
	return m.srv.URL + "/object?" + q.Encode(), nil
}

// store records one put and returns its ETag.
func (m *memStorage) store(id, contentType string, data []byte, part *PartContext, metadata map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts = append(m.puts, len(data))
	if part == nil {
		m.objects[id] = &memObject{data: data, contentType: contentType, metadata: metadata}
		return etagOf(data), nil
	}
	m.partNumbers = append(m.partNumbers, part.PartNumber)
	if part.PartNumber == m.failPart {
		return "", &TransportError{Op: "put", ID: id, StatusCode: http.StatusInternalServerError, Message: "part failed"}
	}
	up, ok := m.uploads[part.UploadID]
	if !ok {
		return "", &BackendError{Op: "uploadPart", ID: id, Code: "NoSuchUpload", StatusCode: 404}
	}
	up.parts[part.PartNumber] = data
	return etagOf(data), nil
}

func (m *memStorage) PutObject(ctx context.Context, req *PutRequest) (string, error) {
	data, err := Decode(req.Buffer)
	if err != nil {
		return "", InvalidArgument("putObject", err)
	}
	return m.store(req.ID, req.ContentType, data, req.Part, req.Metadata)
}

func (m *memStorage) GetObject(ctx context.Context, id string) (*EncodedObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[id]
	if !ok {
		return nil, &BackendError{Op: "getObject", ID: id, Code: "NoSuchKey", StatusCode: 404}
	}
	return &EncodedObject{ID: id, Buffer: Encode(obj.data), ContentType: obj.contentType}, nil
}

func (m *memStorage) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removes = append(m.removes, id)
	delete(m.objects, id)
	return nil
}

// ServeHTTP plays the storage endpoint behind presigned URLs.
func (m *memStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.ContentLength != int64(len(data)) {
			http.Error(w, "content length mismatch", http.StatusBadRequest)
			return
		}
		m.mu.Lock()
		m.md5Headers = append(m.md5Headers, r.Header.Get("Content-MD5"))
		m.mu.Unlock()

		var part *PartContext
		if q.Get("command") == string(OpUploadPart) {
			n, _ := strconv.ParseInt(q.Get("partNumber"), 10, 64)
			part = &PartContext{UploadID: q.Get("uploadId"), PartNumber: n}
		}
		var metadata map[string]string
		if v := r.Header.Get("X-Amz-Meta-Owner"); v != "" {
			metadata = map[string]string{"owner": v}
		}
		etag, err := m.store(id, r.Header.Get("Content-Type"), data, part, metadata)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("ETag", etag)
	case http.MethodGet:
		m.mu.Lock()
		obj, ok := m.objects[id]
		m.mu.Unlock()
		if !ok {
			http.Error(w, "NoSuchKey", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Write(obj.data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (m *memStorage) objectIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
