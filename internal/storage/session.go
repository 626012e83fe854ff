package storage

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
)

// ClientOptions configures the S3 client. Static credentials are used when
// both keys are set, otherwise the default credential chain applies.
type ClientOptions struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// NewClient creates an S3 client signing with signature v4.
func NewClient(opts ClientOptions) (*s3.S3, error) {
	cfg := aws.NewConfig().
		WithRegion(opts.Region).
		WithS3ForcePathStyle(opts.ForcePathStyle)
	if opts.Endpoint != "" {
		cfg = cfg.WithEndpoint(opts.Endpoint)
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentials(opts.AccessKeyID, opts.SecretAccessKey, "")
		if _, err := creds.Get(); err != nil {
			return nil, errors.Wrap(err, "bad credentials")
		}
		cfg = cfg.WithCredentials(creds)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create aws session")
	}
	return s3.New(sess), nil
}
