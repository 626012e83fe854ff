package transfer

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gostones/s3transfer/internal"
)

// Result describes a completed upload.
type Result struct {
	ID       string
	ETag     string
	UploadID string // empty for single-part uploads
	Parts    int
	Location string
}

// Uploader uploads payloads either in one put or as a multipart upload,
// depending on the payload size relative to the chunk size.
// It holds no per-upload state and is safe for concurrent use.
type Uploader struct {
	storage   Storage
	transport Transport
	chunksize int64
	observer  Observer
	logger    zerolog.Logger
}

func NewUploader(storage Storage, cfg Config) (*Uploader, error) {
	if cfg.ChunkSize < MinChunkSize {
		return nil, InvalidArgument("new uploader", ErrChunkSizeTooSmall)
	}
	transport, err := NewTransport(cfg.Mode, storage, cfg.HTTPClient)
	if err != nil {
		return nil, err
	}
	return newUploader(storage, transport, cfg), nil
}

func newUploader(storage Storage, transport Transport, cfg Config) *Uploader {
	u := &Uploader{
		storage:   storage,
		transport: transport,
		chunksize: cfg.ChunkSize,
		observer:  cfg.Observer,
		logger:    zerolog.Nop(),
	}
	if u.observer == nil {
		u.observer = nopObserver{}
	}
	if cfg.Logger != nil {
		u.logger = *cfg.Logger
	}
	return u
}

// ChunkSize is the single-part threshold and multipart part size.
func (u *Uploader) ChunkSize() int64 {
	return u.chunksize
}

// Upload stores payload under id. Payloads up to the chunk size are put in one
// request; larger payloads are sent as a multipart upload, one part at a time.
//
// A failed part or completion leaves the multipart session open on the backend;
// cleanup is left to the bucket lifecycle rules.
func (u *Uploader) Upload(ctx context.Context, id string, payload internal.Payload, opts *Options) (*Result, error) {
	if id == "" {
		return nil, InvalidArgument("upload", ErrMissingID)
	}
	if payload == nil {
		return nil, InvalidArgument("upload", ErrMissingPayload)
	}
	if payload.ContentType() == "" {
		return nil, InvalidArgument("upload", ErrMissingContentType)
	}
	if opts == nil {
		opts = &Options{}
	}

	if payload.Size() <= u.chunksize {
		u.logger.Debug().Str("id", id).Int64("size", payload.Size()).Msg("singlepart upload")
		return u.singlepartUpload(ctx, id, payload, opts)
	}
	u.logger.Debug().Str("id", id).Int64("size", payload.Size()).Msg("multipart upload")
	return u.multipartUpload(ctx, id, payload, opts)
}

func (u *Uploader) singlepartUpload(ctx context.Context, id string, payload internal.Payload, opts *Options) (*Result, error) {
	chunk, _ := internal.Slice(payload, 0, payload.Size())
	etag, err := u.transport.Put(ctx, id, chunk, payload.ContentType(), nil, opts)
	if err != nil {
		return nil, err
	}
	u.observer.Notify(Event{
		Type: EventUploadCompleted,
		ID:   id,
		Size: payload.Size(),
		ETag: etag,
	})
	return &Result{ID: id, ETag: etag, Parts: 1}, nil
}

// multipartUpload (1) initiates a session, (2) puts every chunk in order and
// (3) completes the session with the collected part records.
func (u *Uploader) multipartUpload(ctx context.Context, id string, payload internal.Payload, opts *Options) (*Result, error) {
	contentType := payload.ContentType()

	// (1)
	uploadID, err := u.storage.CreateMultipartUpload(ctx, id, contentType, opts.Metadata)
	if err != nil {
		return nil, err
	}
	u.logger.Debug().Str("id", id).Str("uploadId", uploadID).Msg("multipart upload created")
	u.observer.Notify(Event{Type: EventSessionInitiated, ID: id, UploadID: uploadID})

	// (2)
	s := newSession(id, uploadID)
	chunker := internal.NewChunker(payload, u.chunksize)
	for {
		chunk, ok := chunker.Next()
		if !ok {
			break
		}
		partNumber := s.next()
		u.observer.Notify(Event{
			Type:       EventPartStarted,
			ID:         id,
			UploadID:   uploadID,
			PartNumber: partNumber,
			Size:       chunk.Size(),
		})
		etag, err := u.transport.Put(ctx, id, chunk, contentType, &PartContext{
			UploadID:   uploadID,
			PartNumber: partNumber,
		}, opts)
		if err != nil {
			u.logger.Warn().Err(err).
				Str("id", id).
				Str("uploadId", uploadID).
				Int64("partNumber", partNumber).
				Int64("offset", chunk.Offset()).
				Msg("upload part failed, session left open")
			return nil, err
		}
		s.complete(partNumber, chunk.Size(), etag)
		u.observer.Notify(Event{
			Type:       EventPartCompleted,
			ID:         id,
			UploadID:   uploadID,
			PartNumber: partNumber,
			Size:       chunk.Size(),
			ETag:       etag,
		})
	}

	// (3)
	u.logger.Debug().
		Str("id", id).
		Str("uploadId", uploadID).
		Int("parts", s.tracker.Len()).
		Int("chunks", chunker.Emitted()).
		Int64("offset", chunker.Offset()).
		Int64("sent", chunker.Count()).
		Msg("complete multipart upload")
	completion, err := u.storage.CompleteMultipartUpload(ctx, id, uploadID, s.tracker.All())
	if err != nil {
		u.logger.Warn().Err(err).Str("id", id).Str("uploadId", uploadID).Msg("complete multipart upload failed, session left open")
		return nil, err
	}
	u.observer.Notify(Event{
		Type:     EventSessionCompleted,
		ID:       id,
		UploadID: uploadID,
		Size:     s.offset,
		ETag:     completion.ETag,
	})
	return &Result{
		ID:       id,
		ETag:     completion.ETag,
		UploadID: uploadID,
		Parts:    s.tracker.Len(),
		Location: completion.Location,
	}, nil
}
