// Package server exposes a transfer.Storage over HTTP so clients without
// storage credentials can transfer through presigned URLs or through the relay itself.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/gostones/s3transfer/internal/transfer"
	. "github.com/gostones/s3transfer/internal/types"
)

// DefaultMaxBodySize bounds relayed request bodies: a 64MB chunk after base64 expansion.
const DefaultMaxBodySize = 96 << 20

// bodyOverhead covers the JSON envelope around an encoded chunk.
const bodyOverhead = 1 << 20

// MaxBodySizeFor returns the body limit needed to relay chunks of chunkSize
// bytes, never less than DefaultMaxBodySize.
func MaxBodySizeFor(chunkSize int64) int64 {
	n := (chunkSize+2)/3*4 + bodyOverhead
	if n < DefaultMaxBodySize {
		return DefaultMaxBodySize
	}
	return n
}

type Options struct {
	MaxBodySize int64
	Logger      *zerolog.Logger
}

type Server struct {
	storage     transfer.Storage
	maxBodySize int64
	logger      zerolog.Logger
	router      *mux.Router
}

func New(storage transfer.Storage, opts Options) *Server {
	s := &Server{
		storage:     storage,
		maxBodySize: opts.MaxBodySize,
		logger:      zerolog.Nop(),
		router:      mux.NewRouter(),
	}
	if s.maxBodySize <= 0 {
		s.maxBodySize = DefaultMaxBodySize
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.requestID, s.requestLogger)

	r.HandleFunc("/start-upload", s.startUpload).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/get-upload-url", s.getUploadURL).Methods(http.MethodGet)
	r.HandleFunc("/complete-upload", s.completeUpload).Methods(http.MethodPost)
	r.HandleFunc("/put-object", s.putObject).Methods(http.MethodPost)
	r.HandleFunc("/get-object", s.getObject).Methods(http.MethodGet)
	r.HandleFunc("/remove", s.remove).Methods(http.MethodDelete)
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

func parseStartUploadRequest(r *http.Request) (*StartUploadRequest, error) {
	if r.Method == http.MethodPost {
		var q StartUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			return nil, transfer.InvalidArgument("start-upload", errors.Wrap(err, "decode request"))
		}
		return &q, nil
	}
	q := r.URL.Query()
	return &StartUploadRequest{
		FileName: q.Get("fileName"),
		FileType: q.Get("fileType"),
	}, nil
}

func (s *Server) startUpload(w http.ResponseWriter, r *http.Request) {
	q, err := parseStartUploadRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	uploadID, err := s.storage.CreateMultipartUpload(r.Context(), q.FileName, q.FileType, q.Metadata)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &StartUploadResponse{UploadID: uploadID})
}

func parseGetUploadURLRequest(r *http.Request) *GetUploadURLRequest {
	q := r.URL.Query()
	return &GetUploadURLRequest{
		FileName:   q.Get("fileName"),
		Command:    q.Get("command"),
		PartNumber: q.Get("partNumber"),
		UploadID:   q.Get("uploadId"),
		FileType:   q.Get("fileType"),
		MD5:        q.Get("md5"),
		ExpiresIn:  q.Get("expiresIn"),
	}
}

// toSignRequest converts query parameters. Without a command, a request carrying
// an upload id is taken to be UploadPart and anything else PutObject.
func toSignRequest(q *GetUploadURLRequest) (*transfer.SignRequest, error) {
	const op = "get-upload-url"
	command := q.Command
	if command == "" {
		command = string(transfer.OpPutObject)
		if q.UploadID != "" {
			command = string(transfer.OpUploadPart)
		}
	}
	operation, err := transfer.ParseOperation(command)
	if err != nil {
		return nil, transfer.InvalidArgument(op, errors.Wrapf(err, "%q", command))
	}
	req := &transfer.SignRequest{
		ID:          q.FileName,
		Operation:   operation,
		ContentType: q.FileType,
		ContentMD5:  q.MD5,
	}
	if q.ExpiresIn != "" {
		secs, err := strconv.Atoi(q.ExpiresIn)
		if err != nil || secs <= 0 {
			return nil, transfer.InvalidArgument(op, errors.Errorf("invalid expiresIn %q", q.ExpiresIn))
		}
		req.Expires = time.Duration(secs) * time.Second
	}
	if operation == transfer.OpUploadPart {
		n, err := strconv.ParseInt(q.PartNumber, 10, 64)
		if err != nil || n <= 0 || q.UploadID == "" {
			return nil, transfer.InvalidArgument(op, transfer.ErrMissingPart)
		}
		req.Part = &transfer.PartContext{UploadID: q.UploadID, PartNumber: n}
	}
	return req, nil
}

func (s *Server) getUploadURL(w http.ResponseWriter, r *http.Request) {
	req, err := toSignRequest(parseGetUploadURLRequest(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.storage.SignURL(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &GetUploadURLResponse{PresignedURL: u})
}

func (s *Server) completeUpload(w http.ResponseWriter, r *http.Request) {
	var q CompleteUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		s.writeError(w, r, transfer.InvalidArgument("complete-upload", errors.Wrap(err, "decode request")))
		return
	}
	parts := make([]transfer.Part, 0, len(q.Params.Parts))
	for _, p := range q.Params.Parts {
		parts = append(parts, transfer.Part{PartNumber: p.PartNumber, ETag: p.ETag})
	}
	c, err := s.storage.CompleteMultipartUpload(r.Context(), q.Params.FileName, q.Params.UploadID, parts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &CompleteUploadResponse{
		Data: CompleteUploadData{
			Location: c.Location,
			Bucket:   c.Bucket,
			Key:      c.Key,
			ETag:     c.ETag,
		},
	})
}

func (s *Server) putObject(w http.ResponseWriter, r *http.Request) {
	var q PutObjectRequest
	body := http.MaxBytesReader(w, r.Body, s.maxBodySize)
	if err := json.NewDecoder(body).Decode(&q); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, &transfer.TransportError{
				Op:         "put-object",
				StatusCode: http.StatusRequestEntityTooLarge,
				Message:    "request body exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes",
				Err:        err,
			})
			return
		}
		s.writeError(w, r, transfer.InvalidArgument("put-object", errors.Wrap(err, "decode request")))
		return
	}
	req := &transfer.PutRequest{
		ID:          q.FileName,
		Buffer:      q.Buffer,
		ContentType: q.FileType,
		ContentMD5:  q.MD5,
		Metadata:    q.Metadata,
	}
	if q.UploadID != "" || q.PartNumber != 0 {
		req.Part = &transfer.PartContext{UploadID: q.UploadID, PartNumber: q.PartNumber}
	}
	etag, err := s.storage.PutObject(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &PutObjectResponse{FileName: q.FileName, ETag: etag})
}

func (s *Server) getObject(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("fileName")
	obj, err := s.storage.GetObject(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &GetObjectResponse{
		FileName: id,
		Buffer:   obj.Buffer,
		FileType: obj.ContentType,
	})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("fileName")
	if err := s.storage.Remove(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &RemoveResponse{FileName: id})
}
