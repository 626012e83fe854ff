package storage

import (
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"

	"github.com/gostones/s3transfer/internal/transfer"
)

// convert maps aws-sdk-go errors onto the transfer error taxonomy.
func convert(op, id string, err error) error {
	if err == nil {
		return nil
	}
	if reqErr, ok := err.(awserr.RequestFailure); ok {
		return &transfer.BackendError{
			Op:         op,
			ID:         id,
			Code:       reqErr.Code(),
			StatusCode: reqErr.StatusCode(),
			Message:    reqErr.Message(),
		}
	}
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case request.ErrCodeRequestError, request.ErrCodeResponseTimeout, request.CanceledErrorCode:
			return &transfer.TransportError{Op: op, ID: id, Message: aerr.Message(), Err: aerr.OrigErr()}
		}
		return &transfer.BackendError{Op: op, ID: id, Code: aerr.Code(), Message: aerr.Message()}
	}
	return &transfer.TransportError{Op: op, ID: id, Err: err}
}
