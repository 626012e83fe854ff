package transfer

// Part is the completion record of one uploaded part.
type Part struct {
	PartNumber int64
	ETag       string
}

// PartTracker accumulates part records in the order they were issued.
// It neither sorts nor deduplicates; the backend rejects gaps at completion.
type PartTracker struct {
	parts []Part
}

func (t *PartTracker) Record(partNumber int64, etag string) {
	t.parts = append(t.parts, Part{PartNumber: partNumber, ETag: etag})
}

// All returns a copy of the recorded parts.
func (t *PartTracker) All() []Part {
	parts := make([]Part, len(t.parts))
	copy(parts, t.parts)
	return parts
}

func (t *PartTracker) Len() int {
	return len(t.parts)
}
