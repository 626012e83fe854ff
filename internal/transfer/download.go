package transfer

import (
	"context"

	"github.com/rs/zerolog"
)

// Downloader fetches whole objects through the configured transport.
type Downloader struct {
	transport Transport
	logger    zerolog.Logger
}

func NewDownloader(storage Storage, cfg Config) (*Downloader, error) {
	transport, err := NewTransport(cfg.Mode, storage, cfg.HTTPClient)
	if err != nil {
		return nil, err
	}
	return newDownloader(transport, cfg), nil
}

func newDownloader(transport Transport, cfg Config) *Downloader {
	d := &Downloader{transport: transport, logger: zerolog.Nop()}
	if cfg.Logger != nil {
		d.logger = *cfg.Logger
	}
	return d
}

func (d *Downloader) Download(ctx context.Context, id string, opts *Options) (*Object, error) {
	if id == "" {
		return nil, InvalidArgument("download", ErrMissingID)
	}
	d.logger.Debug().Str("id", id).Msg("download")
	obj, err := d.transport.Get(ctx, id, opts)
	if err != nil {
		return nil, err
	}
	d.logger.Debug().Str("id", id).Int("size", len(obj.Buffer)).Str("contentType", obj.ContentType).Msg("download succeeded")
	return obj, nil
}
