package transfer

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// MinChunkSize is the smallest part size S3 accepts for all but the last part.
	MinChunkSize int64 = 5 * 1024 * 1024

	// DefaultExpires is how long presigned URLs stay valid.
	DefaultExpires = 15 * time.Minute
)

// Mode selects how bytes reach storage.
type Mode int

const (
	// Direct transfers go straight to storage through presigned URLs.
	Direct Mode = iota
	// Relayed transfers hand base64 encoded bytes to the storage service.
	Relayed
)

func (m Mode) String() string {
	switch m {
	case Direct:
		return "direct"
	case Relayed:
		return "relayed"
	}
	return "unknown"
}

// ParseMode parses "direct" or "relayed".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct", "":
		return Direct, nil
	case "relayed", "relay", "proxy":
		return Relayed, nil
	}
	return Direct, InvalidArgument("parse mode", ErrUnknownMode)
}

// Config is fixed at construction and read-only afterwards.
type Config struct {
	// ChunkSize is the part size and the single-part threshold. Must be >= MinChunkSize.
	ChunkSize int64
	Mode      Mode

	// HTTPClient performs presigned transfers in Direct mode. Default: http.DefaultClient.
	HTTPClient *http.Client
	Observer   Observer
	Logger     *zerolog.Logger
}

// Options tune one upload or download.
type Options struct {
	// Expires bounds presigned URL validity. Default: DefaultExpires.
	Expires time.Duration
	// ContentMD5 sends a Content-MD5 digest with every put.
	ContentMD5 bool
	// Metadata is passed through to storage as object metadata.
	Metadata map[string]string
}

func (o *Options) expires() time.Duration {
	if o == nil || o.Expires <= 0 {
		return DefaultExpires
	}
	return o.Expires
}
