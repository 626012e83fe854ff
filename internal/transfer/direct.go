package transfer

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gostones/s3transfer/internal"
)

// maxErrorBody bounds how much of an error response is kept as the message.
const maxErrorBody = 4 << 10

// DirectTransport obtains a presigned URL from storage for every operation
// and performs the HTTP request against it.
type DirectTransport struct {
	storage Storage
	client  *http.Client
}

func NewDirectTransport(storage Storage, client *http.Client) *DirectTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &DirectTransport{storage: storage, client: client}
}

func (t *DirectTransport) Put(ctx context.Context, id string, chunk *internal.ChunkReader, contentType string, part *PartContext, opts *Options) (string, error) {
	if contentType == "" {
		return "", InvalidArgument("put", ErrMissingContentType)
	}
	sign := &SignRequest{
		ID:          id,
		Operation:   OpPutObject,
		ContentType: contentType,
		Expires:     opts.expires(),
	}
	if part != nil {
		sign.Operation = OpUploadPart
		sign.Part = part
		sign.ContentType = ""
	} else if opts != nil {
		sign.Metadata = opts.Metadata
	}
	if opts != nil && opts.ContentMD5 {
		b64, _, err := chunk.MD5()
		if err != nil {
			return "", err
		}
		sign.ContentMD5 = b64
	}

	presignedURL, err := t.storage.SignURL(ctx, sign)
	if err != nil {
		return "", err
	}

	var body io.Reader = chunk
	if chunk.Size() == 0 {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, body)
	if err != nil {
		return "", &TransportError{Op: "put", ID: id, Err: err}
	}
	req.ContentLength = chunk.Size()
	req.Header.Set("Content-Type", contentType)
	if sign.ContentMD5 != "" {
		req.Header.Set("Content-MD5", sign.ContentMD5)
	}
	for k, v := range sign.Metadata {
		req.Header.Set("X-Amz-Meta-"+k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", &TransportError{Op: "put", ID: id, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", statusError("put", id, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Header.Get("ETag"), nil
}

func (t *DirectTransport) Get(ctx context.Context, id string, opts *Options) (*Object, error) {
	presignedURL, err := t.storage.SignURL(ctx, &SignRequest{
		ID:        id,
		Operation: OpGetObject,
		Expires:   opts.expires(),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, presignedURL, nil)
	if err != nil {
		return nil, &TransportError{Op: "get", ID: id, Err: err}
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "get", ID: id, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, statusError("get", id, resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "get", ID: id, StatusCode: resp.StatusCode, Err: err}
	}
	return &Object{
		ID:          id,
		Buffer:      data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func statusError(op, id string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(b))
	if msg == "" {
		msg = resp.Status
	}
	return &TransportError{Op: op, ID: id, StatusCode: resp.StatusCode, Message: msg}
}
