package server

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/gostones/s3transfer/internal/transfer"
	"github.com/gostones/s3transfer/internal/types"
)

// Error codes carried in types.ErrorResponse.
const (
	CodeInvalidArgument  = "InvalidArgument"
	CodeTransportFailure = "TransportFailure"
	CodeInternalError    = "InternalError"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorStatus maps an error to the status and body returned to relay clients.
func errorStatus(err error) (int, *types.ErrorResponse) {
	var backendErr *transfer.BackendError
	var transportErr *transfer.TransportError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, &types.ErrorResponse{Code: CodeTransportFailure, Message: err.Error()}
	case errors.Is(err, transfer.ErrInvalidArgument):
		return http.StatusBadRequest, &types.ErrorResponse{Code: CodeInvalidArgument, Message: err.Error()}
	case errors.As(err, &backendErr):
		status := backendErr.StatusCode
		if status < 400 {
			status = http.StatusBadGateway
		}
		return status, &types.ErrorResponse{Code: backendErr.Code, Message: backendErr.Message}
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, &types.ErrorResponse{Code: CodeTransportFailure, Message: err.Error()}
	}
	return http.StatusInternalServerError, &types.ErrorResponse{Code: CodeInternalError, Message: err.Error()}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorStatus(err)
	s.logger.Error().Err(err).
		Str("path", r.URL.Path).
		Str("requestId", w.Header().Get(requestIDHeader)).
		Int("status", status).
		Msg("request failed")
	writeJSON(w, status, body)
}
