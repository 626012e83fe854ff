package transfer

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostones/s3transfer/internal"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"", Direct},
		{"direct", Direct},
		{" Direct ", Direct},
		{"relayed", Relayed},
		{"relay", Relayed},
		{"PROXY", Relayed},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseMode("carrier-pigeon")
	assert.True(t, errors.Is(err, ErrUnknownMode))
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	assert.Equal(t, "direct", Direct.String())
	assert.Equal(t, "relayed", Relayed.String())
	assert.Equal(t, "unknown", Mode(9).String())
}

func TestParseOperation(t *testing.T) {
	for _, op := range []Operation{OpPutObject, OpGetObject, OpUploadPart} {
		got, err := ParseOperation(string(op))
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}
	_, err := ParseOperation("deleteObject")
	assert.True(t, errors.Is(err, ErrUnknownOperation))
}

func TestPartTracker(t *testing.T) {
	var tr PartTracker
	assert.Empty(t, tr.All())

	tr.Record(2, `"b"`)
	tr.Record(1, `"a"`)
	tr.Record(1, `"a"`)
	assert.Equal(t, 3, tr.Len())

	// Records keep issue order, duplicates included.
	parts := tr.All()
	assert.Equal(t, []Part{{2, `"b"`}, {1, `"a"`}, {1, `"a"`}}, parts)

	parts[0].ETag = "changed"
	assert.Equal(t, `"b"`, tr.All()[0].ETag)
}

func TestSession(t *testing.T) {
	s := newSession("id", "u-1")
	assert.Equal(t, int64(1), s.next())
	s.complete(1, 10, "e1")
	assert.Equal(t, int64(2), s.next())
	s.complete(2, 4, "e2")

	assert.Equal(t, int64(14), s.offset)
	assert.Equal(t, []Part{{1, "e1"}, {2, "e2"}}, s.tracker.All())
}

func TestEncodeAllByteValues(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	decoded, err := Decode(Encode(data))
	require.NoError(t, err)
	assert.Equal(t, data, decoded)

	_, err = Decode("not base64!")
	assert.Error(t, err)
}

func TestRelayedBinaryRoundTrip(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	m := newMemStorage(t)
	c := newTestClient(t, m, Relayed, nil)

	_, err := c.Upload(context.Background(), "bytes.bin", internal.NewBytesPayload(data, "application/octet-stream"), nil)
	require.NoError(t, err)
	assert.Equal(t, data, m.objects["bytes.bin"].data)

	obj, err := c.Download(context.Background(), "bytes.bin", nil)
	require.NoError(t, err)
	assert.Len(t, obj.Buffer, 256)
	assert.Equal(t, data, obj.Buffer)
}

func TestRelayedGetMalformed(t *testing.T) {
	m := newMemStorage(t)
	tr := NewRelayedTransport(badBufferStorage{m})

	_, err := tr.Get(context.Background(), "x", nil)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "get", te.Op)
}

type badBufferStorage struct {
	*memStorage
}

func (badBufferStorage) GetObject(ctx context.Context, id string) (*EncodedObject, error) {
	return &EncodedObject{ID: id, Buffer: "%%%"}, nil
}

func TestDownload(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			m := newMemStorage(t)
			c := newTestClient(t, m, mode, nil)

			_, err := c.Download(context.Background(), "", nil)
			assert.True(t, errors.Is(err, ErrMissingID))

			_, err = c.Download(context.Background(), "missing", nil)
			require.Error(t, err)
			if mode == Direct {
				var te *TransportError
				require.True(t, errors.As(err, &te))
				assert.Equal(t, http.StatusNotFound, te.StatusCode)
				assert.Equal(t, "NoSuchKey", te.Message)
			} else {
				var be *BackendError
				require.True(t, errors.As(err, &be))
				assert.Equal(t, "NoSuchKey", be.Code)
			}
		})
	}
}

func TestDownloaderStandalone(t *testing.T) {
	m := newMemStorage(t)
	m.objects["a.txt"] = &memObject{data: []byte("abc"), contentType: "text/plain"}

	d, err := NewDownloader(m, Config{Mode: Relayed})
	require.NoError(t, err)
	obj, err := d.Download(context.Background(), "a.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, &Object{ID: "a.txt", Buffer: []byte("abc"), ContentType: "text/plain"}, obj)
}

func TestRemove(t *testing.T) {
	m := newMemStorage(t)
	m.objects["a.txt"] = &memObject{data: []byte("abc")}
	c := newTestClient(t, m, Relayed, nil)

	assert.True(t, errors.Is(c.Remove(context.Background(), ""), ErrMissingID))
	require.NoError(t, c.Remove(context.Background(), "a.txt"))
	assert.Equal(t, []string{"a.txt"}, m.removes)
	assert.Empty(t, m.objectIDs())
	assert.Equal(t, Relayed, c.Mode())
}

func TestDirectPutRejectsMissingContentType(t *testing.T) {
	m := newMemStorage(t)
	tr := NewDirectTransport(m, nil)
	chunk, _ := internal.Slice(internal.NewBytesPayload([]byte("abc"), ""), 0, 3)

	_, err := tr.Put(context.Background(), "a", chunk, "", nil, nil)
	assert.True(t, errors.Is(err, ErrMissingContentType))
	assert.Empty(t, m.signRequests)
}

func TestDirectPutStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<Error><Code>SignatureDoesNotMatch</Code></Error>\n"))
	}))
	defer srv.Close()

	storage := &fixedURLStorage{memStorage: newMemStorage(t), url: srv.URL}
	tr := NewDirectTransport(storage, srv.Client())
	chunk, _ := internal.Slice(internal.NewBytesPayload([]byte("abc"), "text/plain"), 0, 3)

	_, err := tr.Put(context.Background(), "a", chunk, "text/plain", nil, nil)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusForbidden, te.StatusCode)
	assert.Equal(t, "<Error><Code>SignatureDoesNotMatch</Code></Error>", te.Message)
	assert.Contains(t, te.Error(), "status 403")
}

type fixedURLStorage struct {
	*memStorage
	url string
}

func (s *fixedURLStorage) SignURL(ctx context.Context, req *SignRequest) (string, error) {
	return s.url, nil
}

func TestErrors(t *testing.T) {
	err := InvalidArgument("upload", ErrMissingID)
	assert.Equal(t, "upload: missing id", err.Error())
	assert.False(t, errors.Is(err, ErrMissingPayload))

	te := &TransportError{Op: "put", ID: "a", Err: errors.New("connection reset")}
	assert.Equal(t, "put a: connection reset", te.Error())
	assert.Equal(t, "connection reset", errors.Unwrap(te).Error())

	be := &BackendError{Op: "complete", ID: "a", Code: "InvalidPart", StatusCode: 400, Message: "bad"}
	assert.Equal(t, "complete a: InvalidPart (status 400): bad", be.Error())
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	LogObserver(logger).Notify(Event{Type: EventPartCompleted, ID: "a", UploadID: "u", PartNumber: 2, Size: 5, ETag: `"e"`})
	out := buf.String()
	assert.Contains(t, out, `"event":"part-completed"`)
	assert.Contains(t, out, `"partNumber":2`)
	assert.Contains(t, out, `"message":"transfer"`)

	buf.Reset()
	LogObserver(logger.Level(zerolog.InfoLevel)).Notify(Event{Type: EventUploadCompleted, ID: "a"})
	assert.Empty(t, buf.String())
}
