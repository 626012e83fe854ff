package internal

import (
	"sync/atomic"
)

// Counter is a byte counter safe for concurrent use.
type Counter struct {
	n atomic.Int64
}

func (r *Counter) Add(n int64) int64 {
	return r.n.Add(n)
}

func (r *Counter) Load() int64 {
	return r.n.Load()
}
