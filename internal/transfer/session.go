package transfer

// session is the state of one multipart upload. It lives for a single
// Upload call and is never shared.
type session struct {
	id       string
	uploadID string
	offset   int64
	part     int64
	tracker  PartTracker
}

func newSession(id, uploadID string) *session {
	return &session{id: id, uploadID: uploadID}
}

// next returns the number of the next part, starting at 1.
func (s *session) next() int64 {
	s.part++
	return s.part
}

func (s *session) complete(partNumber, size int64, etag string) {
	s.offset += size
	s.tracker.Record(partNumber, etag)
}
