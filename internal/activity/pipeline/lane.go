package pipeline

import (
	"context"
	"fmt"
	"sync"

	"vowly/internal/activity"
	"vowly/pkg/platform/sentinel"
)

var (
	// ErrLaneFull is returned when the lane cannot accept a record without
	// blocking the caller.
	ErrLaneFull = fmt.Errorf("activity lane full: %w", sentinel.ErrUnavailable)
	// ErrLaneClosed is returned once the lane stopped accepting records.
	ErrLaneClosed = fmt.Errorf("activity lane: %w", sentinel.ErrClosed)
)

// Lane hands a record to background persistence. Enqueue must not wait on
// the store.
type Lane interface {
	Enqueue(ctx context.Context, rec activity.Record) error
}

// ChannelLane is a bounded in-process lane drained by Workers.
type ChannelLane struct {
	mu     sync.RWMutex
	ch     chan activity.Record
	closed bool
}

func NewChannelLane(size int) *ChannelLane {
	if size <= 0 {
		size = 1024
	}
	return &ChannelLane{ch: make(chan activity.Record, size)}
}

// Enqueue performs a non-blocking send.
func (l *ChannelLane) Enqueue(_ context.Context, rec activity.Record) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrLaneClosed
	}
	select {
	case l.ch <- rec:
		return nil
	default:
		return ErrLaneFull
	}
}

// Records is the receive side consumed by Worker.Run. It is closed by Close
// after buffered records remain readable.
func (l *ChannelLane) Records() <-chan activity.Record {
	return l.ch
}

func (l *ChannelLane) Len() int {
	return len(l.ch)
}

func (l *ChannelLane) Cap() int {
	return cap(l.ch)
}

// Close stops intake. Workers keep draining buffered records and return once
// the lane is empty. Safe to call more than once.
func (l *ChannelLane) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.ch)
}

// SyncLane persists inline through the worker and blocks the caller for the
// whole retry loop. Tests only.
type SyncLane struct {
	worker *Worker
}

func NewSyncLane(worker *Worker) *SyncLane {
	return &SyncLane{worker: worker}
}

func (l *SyncLane) Enqueue(ctx context.Context, rec activity.Record) error {
	return l.worker.Handle(ctx, rec)
}
