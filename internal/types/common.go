package types

type StartUploadRequest struct {
	FileName string            `json:"fileName"`
	FileType string            `json:"fileType"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type StartUploadResponse struct {
	UploadID string `json:"uploadId"`
}

// GetUploadURLRequest asks for a presigned URL. Command is one of
// PutObject, GetObject or UploadPart; the latter requires PartNumber and UploadID.
type GetUploadURLRequest struct {
	FileName   string `json:"fileName"`
	Command    string `json:"command"`
	PartNumber string `json:"partNumber"`
	UploadID   string `json:"uploadId"`
	FileType   string `json:"fileType"`
	MD5        string `json:"md5"`
	ExpiresIn  string `json:"expiresIn"` // seconds
}

type GetUploadURLResponse struct {
	PresignedURL string `json:"presignedUrl"`
}

type CompleteUploadRequest struct {
	Params CompleteUploadParams `json:"params"`
}

type CompleteUploadParams struct {
	FileName string               `json:"fileName"`
	Parts    []CompleteUploadPart `json:"parts"`
	UploadID string               `json:"uploadId"`
}

type CompleteUploadPart struct {
	ETag       string
	PartNumber int64
}

type CompleteUploadResponse struct {
	Data CompleteUploadData `json:"data"`
}

type CompleteUploadData struct {
	Location string
	Bucket   string
	Key      string
	ETag     string
}

// PutObjectRequest carries base64 encoded bytes to be stored by the relay,
// either as a whole object or as one part of a multipart upload.
type PutObjectRequest struct {
	FileName   string            `json:"fileName"`
	FileType   string            `json:"fileType"`
	Buffer     string            `json:"buffer"`
	UploadID   string            `json:"uploadId,omitempty"`
	PartNumber int64             `json:"partNumber,omitempty"`
	MD5        string            `json:"md5,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type PutObjectResponse struct {
	FileName string `json:"fileName"`
	ETag     string
}

type GetObjectResponse struct {
	FileName string `json:"fileName"`
	Buffer   string `json:"buffer"`
	FileType string `json:"fileType"`
}

type RemoveResponse struct {
	FileName string `json:"fileName"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
