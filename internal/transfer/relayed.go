package transfer

import (
	"bytes"
	"context"

	"github.com/gostones/s3transfer/internal"
)

// RelayedTransport hands encoded bytes to the storage service, which
// performs the storage call on the caller's behalf.
type RelayedTransport struct {
	storage Storage
}

func NewRelayedTransport(storage Storage) *RelayedTransport {
	return &RelayedTransport{storage: storage}
}

func (t *RelayedTransport) Put(ctx context.Context, id string, chunk *internal.ChunkReader, contentType string, part *PartContext, opts *Options) (string, error) {
	if contentType == "" {
		return "", InvalidArgument("put", ErrMissingContentType)
	}
	data, err := chunk.Bytes()
	if err != nil {
		return "", err
	}
	req := &PutRequest{
		ID:          id,
		Buffer:      Encode(data),
		ContentType: contentType,
		Part:        part,
	}
	if opts != nil {
		if opts.ContentMD5 {
			b64, _, err := internal.MD5Sum(bytes.NewReader(data))
			if err != nil {
				return "", err
			}
			req.ContentMD5 = b64
		}
		if part == nil {
			req.Metadata = opts.Metadata
		}
	}
	return t.storage.PutObject(ctx, req)
}

func (t *RelayedTransport) Get(ctx context.Context, id string, opts *Options) (*Object, error) {
	obj, err := t.storage.GetObject(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := Decode(obj.Buffer)
	if err != nil {
		return nil, &TransportError{Op: "get", ID: id, Message: "malformed relay payload", Err: err}
	}
	return &Object{
		ID:          id,
		Buffer:      data,
		ContentType: obj.ContentType,
	}, nil
}
