package transfer

import (
	"context"
	"time"
)

// Operation names the storage operation a presigned URL grants.
type Operation string

const (
	OpPutObject  Operation = "PutObject"
	OpGetObject  Operation = "GetObject"
	OpUploadPart Operation = "UploadPart"
)

// ParseOperation validates s as an Operation.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OpPutObject, OpGetObject, OpUploadPart:
		return op, nil
	}
	return "", ErrUnknownOperation
}

// PartContext identifies one part of a multipart upload session.
type PartContext struct {
	UploadID   string
	PartNumber int64
}

// SignRequest describes the operation a presigned URL is issued for.
type SignRequest struct {
	ID          string
	Operation   Operation
	Part        *PartContext // UploadPart only
	ContentType string
	ContentMD5  string
	Expires     time.Duration
	Metadata    map[string]string
}

// PutRequest carries base64 encoded bytes for a relayed put.
// Part is nil for a single-part object.
type PutRequest struct {
	ID          string
	Buffer      string
	ContentType string
	Part        *PartContext
	ContentMD5  string
	Metadata    map[string]string
}

// EncodedObject is an object as returned by a relayed get.
type EncodedObject struct {
	ID          string
	Buffer      string
	ContentType string
}

// Object is a downloaded object.
type Object struct {
	ID          string
	Buffer      []byte
	ContentType string
}

// Completion is the storage response to a completed multipart upload.
type Completion struct {
	Location string
	Bucket   string
	Key      string
	ETag     string
}

// Storage is the object storage service the transfer core talks to, either
// in-process or through a relay.
type Storage interface {
	CreateMultipartUpload(ctx context.Context, id, contentType string, metadata map[string]string) (string, error)
	CompleteMultipartUpload(ctx context.Context, id, uploadID string, parts []Part) (*Completion, error)
	SignURL(ctx context.Context, req *SignRequest) (string, error)
	PutObject(ctx context.Context, req *PutRequest) (string, error)
	GetObject(ctx context.Context, id string) (*EncodedObject, error)
	Remove(ctx context.Context, id string) error
}
