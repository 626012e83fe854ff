package transfer

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for invalid input. Every CallerError matches ErrInvalidArgument
// with errors.Is, in addition to the specific sentinel it wraps.
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrMissingID          = errors.New("missing id")
	ErrMissingPayload     = errors.New("missing payload")
	ErrMissingContentType = errors.New("missing content type")
	ErrMissingStorage     = errors.New("missing storage")
	ErrChunkSizeTooSmall  = errors.New("chunk size below the minimum part size")
	ErrUnknownMode        = errors.New("unknown transfer mode")
	ErrUnknownOperation   = errors.New("unknown operation")
	ErrMissingPart        = errors.New("missing upload id or part number")
	ErrMissingParts       = errors.New("missing parts")
)

// CallerError reports invalid input detected before any I/O. It is never retried.
type CallerError struct {
	Op  string
	Err error
}

func (e *CallerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CallerError) Unwrap() error {
	return e.Err
}

func (e *CallerError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// InvalidArgument builds a CallerError for op.
func InvalidArgument(op string, err error) error {
	return &CallerError{Op: op, Err: err}
}

// TransportError reports a network failure or an unexpected HTTP status
// while moving bytes to or from storage.
type TransportError struct {
	Op         string
	ID         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Op, e.ID, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.ID, msg)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BackendError reports an explicit rejection by the storage service,
// such as an unknown upload id or a malformed part list.
type BackendError struct {
	Op         string
	ID         string
	Code       string
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %s (status %d): %s", e.Op, e.ID, e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Op, e.ID, e.Code, e.Message)
}
