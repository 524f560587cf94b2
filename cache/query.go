package cache

import (
	"context"
	"sync"
	"time"
)

// Status is the lifecycle position of a cached query
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Query is one fetch of a cache key. Done is closed once the fetch settles.
type Query struct {
	key  string
	done chan struct{}

	mu        sync.RWMutex
	status    Status
	data      any
	err       error
	updatedAt time.Time
	stale     bool
}

func newQuery(key string) *Query {
	return &Query{
		key:    key,
		done:   make(chan struct{}),
		status: StatusPending,
	}
}

// Key returns the cache key
func (q *Query) Key() string {
	return q.key
}

// Done is closed when the query reaches success or error
func (q *Query) Done() <-chan struct{} {
	return q.done
}

// Status returns the current status
func (q *Query) Status() Status {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.status
}

// Settled reports whether the query reached a terminal status
func (q *Query) Settled() bool {
	return q.Status() != StatusPending
}

// Result returns the data and error of a settled query
func (q *Query) Result() (any, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.data, q.err
}

// Wait blocks until the query settles or ctx is done
func (q *Query) Wait(ctx context.Context) (any, error) {
	select {
	case <-q.done:
		return q.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Query) settle(data any, err error) {
	q.mu.Lock()
	if err != nil {
		q.status = StatusError
	} else {
		q.status = StatusSuccess
	}
	q.data = data
	q.err = err
	q.updatedAt = time.Now()
	q.mu.Unlock()

	close(q.done)
}

func (q *Query) markStale() {
	q.mu.Lock()
	q.stale = true
	q.mu.Unlock()
}

// fresh reports whether a settled query can be served without refetching
func (q *Query) fresh(now time.Time, staleTime time.Duration) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	switch q.status {
	case StatusPending:
		return true
	case StatusSuccess:
		return !q.stale && now.Sub(q.updatedAt) < staleTime
	default:
		return false
	}
}

// Get returns the typed data of a successful query
func Get[T any](q *Query) (T, bool) {
	var zero T
	if q == nil {
		return zero, false
	}
	data, err := q.Result()
	if err != nil {
		return zero, false
	}
	v, ok := data.(T)
	return v, ok
}
