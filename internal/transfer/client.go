package transfer

import (
	"context"
)

// Client bundles an Uploader and a Downloader sharing one transport,
// plus pass-through removal.
type Client struct {
	*Uploader
	*Downloader

	storage Storage
	mode    Mode
}

func New(storage Storage, cfg Config) (*Client, error) {
	if cfg.ChunkSize < MinChunkSize {
		return nil, InvalidArgument("new client", ErrChunkSizeTooSmall)
	}
	transport, err := NewTransport(cfg.Mode, storage, cfg.HTTPClient)
	if err != nil {
		return nil, err
	}
	return &Client{
		Uploader:   newUploader(storage, transport, cfg),
		Downloader: newDownloader(transport, cfg),
		storage:    storage,
		mode:       cfg.Mode,
	}, nil
}

func (c *Client) Mode() Mode {
	return c.mode
}

func (c *Client) Remove(ctx context.Context, id string) error {
	if id == "" {
		return InvalidArgument("remove", ErrMissingID)
	}
	return c.storage.Remove(ctx, id)
}
