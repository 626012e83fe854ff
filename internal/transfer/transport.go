package transfer

import (
	"context"
	"net/http"

	"github.com/gostones/s3transfer/internal"
)

// Transport moves one chunk or one whole object between the caller and storage.
type Transport interface {
	// Put stores chunk and returns its ETag. part is nil for a single-part object.
	Put(ctx context.Context, id string, chunk *internal.ChunkReader, contentType string, part *PartContext, opts *Options) (string, error)
	// Get fetches a whole object.
	Get(ctx context.Context, id string, opts *Options) (*Object, error)
}

// NewTransport returns the Transport implementing mode.
func NewTransport(mode Mode, storage Storage, client *http.Client) (Transport, error) {
	if storage == nil {
		return nil, InvalidArgument("new transport", ErrMissingStorage)
	}
	switch mode {
	case Direct:
		return NewDirectTransport(storage, client), nil
	case Relayed:
		return NewRelayedTransport(storage), nil
	}
	return nil, InvalidArgument("new transport", ErrUnknownMode)
}
