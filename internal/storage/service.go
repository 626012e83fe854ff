// Package storage implements the transfer Storage collaborator on top of S3.
package storage

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/gostones/s3transfer/internal/transfer"
)

// Options configures a Service.
type Options struct {
	Bucket string
	// Prefix, when set, is prepended to every id with Delimiter.
	Prefix    string
	Delimiter string
	// Expires is the default validity of presigned URLs.
	Expires time.Duration
	Logger  *zerolog.Logger
}

// Service maps transfer identifiers onto keys of one bucket.
type Service struct {
	svc       s3iface.S3API
	bucket    string
	prefix    string
	delimiter string
	expires   time.Duration
	logger    zerolog.Logger
}

var _ transfer.Storage = (*Service)(nil)

func New(svc s3iface.S3API, opts Options) (*Service, error) {
	if svc == nil {
		return nil, errors.New("storage: s3 client must be provided")
	}
	if opts.Bucket == "" {
		return nil, errors.New("storage: bucket must be provided")
	}
	s := &Service{
		svc:       svc,
		bucket:    opts.Bucket,
		prefix:    opts.Prefix,
		delimiter: opts.Delimiter,
		expires:   opts.Expires,
		logger:    zerolog.Nop(),
	}
	if s.delimiter == "" {
		s.delimiter = "/"
	}
	if s.expires <= 0 {
		s.expires = transfer.DefaultExpires
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}
	return s, nil
}

// Key returns the object key for id.
func (s *Service) Key(id string) string {
	if s.prefix != "" {
		return s.prefix + s.delimiter + id
	}
	return id
}

func (s *Service) Bucket() string {
	return s.bucket
}

func (s *Service) CreateMultipartUpload(ctx context.Context, id, contentType string, metadata map[string]string) (string, error) {
	const op = "createMultipartUpload"
	if id == "" {
		return "", transfer.InvalidArgument(op, transfer.ErrMissingID)
	}
	if contentType == "" {
		return "", transfer.InvalidArgument(op, transfer.ErrMissingContentType)
	}
	s.logger.Debug().Str("op", op).Str("id", id).Msg("storage call")

	input := &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(id)),
		ContentType: aws.String(contentType),
	}
	if len(metadata) > 0 {
		input.Metadata = aws.StringMap(metadata)
	}
	output, err := s.svc.CreateMultipartUploadWithContext(ctx, input)
	if err != nil {
		return "", convert(op, id, err)
	}
	return aws.StringValue(output.UploadId), nil
}

func (s *Service) CompleteMultipartUpload(ctx context.Context, id, uploadID string, parts []transfer.Part) (*transfer.Completion, error) {
	const op = "completeMultipartUpload"
	if id == "" {
		return nil, transfer.InvalidArgument(op, transfer.ErrMissingID)
	}
	if uploadID == "" {
		return nil, transfer.InvalidArgument(op, transfer.ErrMissingPart)
	}
	if len(parts) == 0 {
		return nil, transfer.InvalidArgument(op, transfer.ErrMissingParts)
	}
	s.logger.Debug().Str("op", op).Str("id", id).Str("uploadId", uploadID).Int("parts", len(parts)).Msg("storage call")

	completedParts := make([]*s3.CompletedPart, 0, len(parts))
	for _, p := range parts {
		completedParts = append(completedParts, &s3.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int64(p.PartNumber),
		})
	}
	output, err := s.svc.CompleteMultipartUploadWithContext(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.Key(id)),
		UploadId: aws.String(uploadID),
		MultipartUpload: &s3.CompletedMultipartUpload{
			Parts: completedParts,
		},
	})
	if err != nil {
		return nil, convert(op, id, err)
	}
	return &transfer.Completion{
		Location: aws.StringValue(output.Location),
		Bucket:   aws.StringValue(output.Bucket),
		Key:      aws.StringValue(output.Key),
		ETag:     aws.StringValue(output.ETag),
	}, nil
}

// SignURL presigns a PutObject, GetObject or UploadPart request.
func (s *Service) SignURL(ctx context.Context, in *transfer.SignRequest) (string, error) {
	const op = "signUrl"
	if in == nil || in.ID == "" {
		return "", transfer.InvalidArgument(op, transfer.ErrMissingID)
	}
	bucket, key := aws.String(s.bucket), aws.String(s.Key(in.ID))

	var req *request.Request
	switch in.Operation {
	case transfer.OpPutObject:
		input := &s3.PutObjectInput{Bucket: bucket, Key: key}
		if in.ContentType != "" {
			input.ContentType = aws.String(in.ContentType)
		}
		if in.ContentMD5 != "" {
			input.ContentMD5 = aws.String(in.ContentMD5)
		}
		if len(in.Metadata) > 0 {
			input.Metadata = aws.StringMap(in.Metadata)
		}
		req, _ = s.svc.PutObjectRequest(input)
	case transfer.OpGetObject:
		req, _ = s.svc.GetObjectRequest(&s3.GetObjectInput{Bucket: bucket, Key: key})
	case transfer.OpUploadPart:
		if in.Part == nil || in.Part.UploadID == "" || in.Part.PartNumber <= 0 {
			return "", transfer.InvalidArgument(op, transfer.ErrMissingPart)
		}
		input := &s3.UploadPartInput{
			Bucket:     bucket,
			Key:        key,
			UploadId:   aws.String(in.Part.UploadID),
			PartNumber: aws.Int64(in.Part.PartNumber),
		}
		if in.ContentMD5 != "" {
			input.ContentMD5 = aws.String(in.ContentMD5)
		}
		req, _ = s.svc.UploadPartRequest(input)
	default:
		return "", transfer.InvalidArgument(op, errors.Wrapf(transfer.ErrUnknownOperation, "%q", in.Operation))
	}
	req.SetContext(ctx)

	expires := in.Expires
	if expires <= 0 {
		expires = s.expires
	}
	u, err := req.Presign(expires)
	if err != nil {
		return "", convert(op, in.ID, err)
	}
	s.logger.Debug().Str("op", op).Str("id", in.ID).Str("command", string(in.Operation)).Dur("expires", expires).Msg("presigned url")
	return u, nil
}

// PutObject decodes a relayed buffer and stores it as an object, or as one
// part when req.Part is set.
func (s *Service) PutObject(ctx context.Context, req *transfer.PutRequest) (string, error) {
	const op = "putObject"
	if req == nil || req.ID == "" {
		return "", transfer.InvalidArgument(op, transfer.ErrMissingID)
	}
	if req.ContentType == "" {
		return "", transfer.InvalidArgument(op, transfer.ErrMissingContentType)
	}
	data, err := transfer.Decode(req.Buffer)
	if err != nil {
		return "", transfer.InvalidArgument(op, errors.Wrap(err, "decode buffer"))
	}
	bucket, key := aws.String(s.bucket), aws.String(s.Key(req.ID))

	if req.Part != nil {
		if req.Part.UploadID == "" || req.Part.PartNumber <= 0 {
			return "", transfer.InvalidArgument(op, transfer.ErrMissingPart)
		}
		s.logger.Debug().Str("op", "uploadPart").Str("id", req.ID).Int64("partNumber", req.Part.PartNumber).Int("size", len(data)).Msg("storage call")
		input := &s3.UploadPartInput{
			Bucket:        bucket,
			Key:           key,
			UploadId:      aws.String(req.Part.UploadID),
			PartNumber:    aws.Int64(req.Part.PartNumber),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
		}
		if req.ContentMD5 != "" {
			input.ContentMD5 = aws.String(req.ContentMD5)
		}
		output, err := s.svc.UploadPartWithContext(ctx, input)
		if err != nil {
			return "", convert("uploadPart", req.ID, err)
		}
		return aws.StringValue(output.ETag), nil
	}

	s.logger.Debug().Str("op", op).Str("id", req.ID).Int("size", len(data)).Msg("storage call")
	input := &s3.PutObjectInput{
		Bucket:        bucket,
		Key:           key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(req.ContentType),
	}
	if req.ContentMD5 != "" {
		input.ContentMD5 = aws.String(req.ContentMD5)
	}
	if len(req.Metadata) > 0 {
		input.Metadata = aws.StringMap(req.Metadata)
	}
	output, err := s.svc.PutObjectWithContext(ctx, input)
	if err != nil {
		return "", convert(op, req.ID, err)
	}
	return aws.StringValue(output.ETag), nil
}

// GetObject reads a whole object and returns it encoded for relaying.
func (s *Service) GetObject(ctx context.Context, id string) (*transfer.EncodedObject, error) {
	const op = "getObject"
	if id == "" {
		return nil, transfer.InvalidArgument(op, transfer.ErrMissingID)
	}
	s.logger.Debug().Str("op", op).Str("id", id).Msg("storage call")
	output, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(id)),
	})
	if err != nil {
		return nil, convert(op, id, err)
	}
	defer output.Body.Close()
	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, &transfer.TransportError{Op: op, ID: id, Err: err}
	}
	return &transfer.EncodedObject{
		ID:          id,
		Buffer:      transfer.Encode(data),
		ContentType: aws.StringValue(output.ContentType),
	}, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	const op = "remove"
	if id == "" {
		return transfer.InvalidArgument(op, transfer.ErrMissingID)
	}
	s.logger.Debug().Str("op", op).Str("id", id).Msg("storage call")
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(id)),
	})
	return convert(op, id, err)
}
