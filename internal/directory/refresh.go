package directory

import (
	"context"
	"sync"
	"time"
)

type job struct {
	kind Kind
}

// refresher runs directory refreshes in the background, single-flight per
// kind: a refresh already in flight absorbs later requests for the same list.
type refresher struct {
	ch    chan job
	inFly sync.Map // kind -> struct{}
	do    func(ctx context.Context, kind Kind)
}

func newRefresher(capacity int, workerCount int, do func(ctx context.Context, kind Kind)) *refresher {
	if capacity <= 0 {
		capacity = 16
	}
	if workerCount <= 0 {
		workerCount = 1
	}
	r := &refresher{ch: make(chan job, capacity), do: do}
	for i := 0; i < workerCount; i++ {
		go r.worker()
	}
	return r
}

func (r *refresher) enqueue(kind Kind) {
	if _, exists := r.inFly.LoadOrStore(kind, struct{}{}); exists {
		return
	}
	select {
	case r.ch <- job{kind: kind}:
	default:
		// drop if saturated
		r.inFly.Delete(kind)
	}
}

func (r *refresher) worker() {
	for j := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		func() {
			defer func() {
				r.inFly.Delete(j.kind)
				cancel()
			}()
			if r.do != nil {
				r.do(ctx, j.kind)
			}
		}()
	}
}
