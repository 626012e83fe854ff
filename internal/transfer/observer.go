package transfer

import (
	"github.com/rs/zerolog"
)

type EventType string

const (
	EventSessionInitiated EventType = "session-initiated"
	EventPartStarted      EventType = "part-started"
	EventPartCompleted    EventType = "part-completed"
	EventSessionCompleted EventType = "session-completed"
	EventUploadCompleted  EventType = "upload-completed"
)

// Event is a progress notification emitted by the Uploader.
type Event struct {
	Type       EventType
	ID         string
	UploadID   string
	PartNumber int64
	Size       int64
	ETag       string
}

// Observer receives progress events synchronously from the uploading call.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) {
	f(e)
}

type logObserver struct {
	logger zerolog.Logger
}

// LogObserver writes events to logger at debug level.
func LogObserver(logger zerolog.Logger) Observer {
	return &logObserver{logger: logger}
}

func (o *logObserver) Notify(e Event) {
	ev := o.logger.Debug().Str("event", string(e.Type)).Str("id", e.ID)
	if e.UploadID != "" {
		ev = ev.Str("uploadId", e.UploadID)
	}
	if e.PartNumber != 0 {
		ev = ev.Int64("partNumber", e.PartNumber)
	}
	if e.Size != 0 {
		ev = ev.Int64("size", e.Size)
	}
	if e.ETag != "" {
		ev = ev.Str("etag", e.ETag)
	}
	ev.Msg("transfer")
}

type nopObserver struct{}

func (nopObserver) Notify(Event) {}
