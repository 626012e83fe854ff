// Package client implements transfer.Storage against a relay server.
package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/gostones/s3transfer/internal/transfer"
	. "github.com/gostones/s3transfer/internal/types"
)

// Remote calls the relay server endpoints.
type Remote struct {
	c *resty.Client
}

var _ transfer.Storage = (*Remote)(nil)

// NewRemote returns a Remote for the relay at baseURL. A nil httpClient uses resty's default.
func NewRemote(baseURL string, httpClient *http.Client) *Remote {
	c := resty.New()
	if httpClient != nil {
		c = resty.NewWithClient(httpClient)
	}
	c.SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	return &Remote{c: c}
}

// CreateMultipartUpload obtains an uploadId generated by the relay's storage backend.
// The uploadId is used for every part of the upload.
func (r *Remote) CreateMultipartUpload(ctx context.Context, id, contentType string, metadata map[string]string) (string, error) {
	var result StartUploadResponse
	resp, err := r.c.R().
		SetContext(ctx).
		SetBody(&StartUploadRequest{
			FileName: id,
			FileType: contentType,
			Metadata: metadata,
		}).
		SetResult(&result).
		SetError(&ErrorResponse{}).
		Post("/start-upload")
	if err := check("start-upload", id, resp, err); err != nil {
		return "", err
	}
	return result.UploadID, nil
}

func (r *Remote) CompleteMultipartUpload(ctx context.Context, id, uploadID string, parts []transfer.Part) (*transfer.Completion, error) {
	req := CompleteUploadRequest{
		Params: CompleteUploadParams{
			FileName: id,
			Parts:    make([]CompleteUploadPart, 0, len(parts)),
			UploadID: uploadID,
		},
	}
	for _, p := range parts {
		req.Params.Parts = append(req.Params.Parts, CompleteUploadPart{
			ETag:       p.ETag,
			PartNumber: p.PartNumber,
		})
	}

	var result CompleteUploadResponse
	resp, err := r.c.R().
		SetContext(ctx).
		SetBody(&req).
		SetResult(&result).
		SetError(&ErrorResponse{}).
		Post("/complete-upload")
	if err := check("complete-upload", id, resp, err); err != nil {
		return nil, err
	}
	return &transfer.Completion{
		Location: result.Data.Location,
		Bucket:   result.Data.Bucket,
		Key:      result.Data.Key,
		ETag:     result.Data.ETag,
	}, nil
}

func (r *Remote) SignURL(ctx context.Context, in *transfer.SignRequest) (string, error) {
	params := map[string]string{
		"fileName": in.ID,
		"command":  string(in.Operation),
	}
	if in.Part != nil {
		params["uploadId"] = in.Part.UploadID
		params["partNumber"] = strconv.FormatInt(in.Part.PartNumber, 10)
	}
	if in.ContentType != "" {
		params["fileType"] = in.ContentType
	}
	if in.ContentMD5 != "" {
		params["md5"] = in.ContentMD5
	}
	if secs := int64(in.Expires.Seconds()); secs > 0 {
		params["expiresIn"] = strconv.FormatInt(secs, 10)
	}

	var result GetUploadURLResponse
	resp, err := r.c.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&result).
		SetError(&ErrorResponse{}).
		Get("/get-upload-url")
	if err := check("get-upload-url", in.ID, resp, err); err != nil {
		return "", err
	}
	return result.PresignedURL, nil
}

func (r *Remote) PutObject(ctx context.Context, in *transfer.PutRequest) (string, error) {
	body := &PutObjectRequest{
		FileName: in.ID,
		FileType: in.ContentType,
		Buffer:   in.Buffer,
		MD5:      in.ContentMD5,
		Metadata: in.Metadata,
	}
	if in.Part != nil {
		body.UploadID = in.Part.UploadID
		body.PartNumber = in.Part.PartNumber
	}

	var result PutObjectResponse
	resp, err := r.c.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&ErrorResponse{}).
		Post("/put-object")
	if err := check("put-object", in.ID, resp, err); err != nil {
		return "", err
	}
	return result.ETag, nil
}

func (r *Remote) GetObject(ctx context.Context, id string) (*transfer.EncodedObject, error) {
	var result GetObjectResponse
	resp, err := r.c.R().
		SetContext(ctx).
		SetQueryParam("fileName", id).
		SetResult(&result).
		SetError(&ErrorResponse{}).
		Get("/get-object")
	if err := check("get-object", id, resp, err); err != nil {
		return nil, err
	}
	return &transfer.EncodedObject{
		ID:          id,
		Buffer:      result.Buffer,
		ContentType: result.FileType,
	}, nil
}

func (r *Remote) Remove(ctx context.Context, id string) error {
	resp, err := r.c.R().
		SetContext(ctx).
		SetQueryParam("fileName", id).
		SetError(&ErrorResponse{}).
		Delete("/remove")
	return check("remove", id, resp, err)
}

// check turns a failed call or an error response into a transfer error.
// Input the relay refused comes back as a caller error; other rejections
// keep their code and status.
func check(op, id string, resp *resty.Response, err error) error {
	if err != nil {
		return &transfer.TransportError{Op: op, ID: id, Err: err}
	}
	if !resp.IsError() {
		return nil
	}
	e, ok := resp.Error().(*ErrorResponse)
	if !ok || e.Code == "" {
		return &transfer.TransportError{Op: op, ID: id, StatusCode: resp.StatusCode(), Message: resp.String()}
	}
	switch e.Code {
	case "InvalidArgument":
		return transfer.InvalidArgument(op, errors.New(e.Message))
	case "TransportFailure":
		return &transfer.TransportError{Op: op, ID: id, StatusCode: resp.StatusCode(), Message: e.Message}
	}
	return &transfer.BackendError{Op: op, ID: id, Code: e.Code, StatusCode: resp.StatusCode(), Message: e.Message}
}
