package correlation

import (
	"context"
	"sync"
	"sync/atomic"
)

var open atomic.Int64

type scope struct {
	value    Context
	released atomic.Bool
	once     sync.Once
}

// Begin attaches c to ctx for the duration of one unit of work. The returned
// release func must be deferred by the caller; it is safe to call more than
// once. After release the context no longer reports c through FromContext.
func Begin(ctx context.Context, c Context) (context.Context, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &scope{value: c}
	open.Add(1)

	return context.WithValue(ctx, scopeKey{}, s), func() {
		s.once.Do(func() {
			s.released.Store(true)
			open.Add(-1)
		})
	}
}

// Open reports how many scopes have been begun but not yet released.
func Open() int64 {
	return open.Load()
}
