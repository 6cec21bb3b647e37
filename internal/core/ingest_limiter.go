package core

// ingest_limiter.go bounds how many uploads are parsed at the same time.
//
// Parsing holds a whole file in memory, so parallel ingests across sessions
// share a fixed number of slots. A request that cannot get a slot within
// maxWait fails with ErrTooManyUploads. WaitForDrain lets shutdown wait for
// in-flight parses to finish.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyUploads is returned when no ingest slot frees up in time.
var ErrTooManyUploads = errors.New("too many uploads in progress, please try again later")

const (
	DefaultMaxConcurrentIngests = 5
	DefaultMaxIngestWait        = 30 * time.Second
)

// IngestLimiter is a counting semaphore for upload parsing.
type IngestLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// LimiterStatus is a point-in-time view of the limiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// NewIngestLimiter allows maxConcurrent parses at once. Non-positive
// arguments fall back to the package defaults.
func NewIngestLimiter(maxConcurrent int, maxWait time.Duration) *IngestLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentIngests
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxIngestWait
	}
	return &IngestLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a free slot. The caller must Release it afterwards.
func (l *IngestLimiter) Acquire(ctx context.Context) error {
	if l.TryAcquire() {
		return nil
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyUploads
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *IngestLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *IngestLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// ActiveCount returns the number of parses holding a slot.
func (l *IngestLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *IngestLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free slots.
func (l *IngestLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// Status returns a snapshot for health output.
func (l *IngestLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}

// WaitForDrain blocks until no parse holds a slot or ctx ends.
func (l *IngestLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
