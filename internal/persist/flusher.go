package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// FlushObserver is notified after every flush that wrote at least one slot.
type FlushObserver interface {
	ObserveFlush(slots int, duration time.Duration, err error)
}

// Flusher buffers the latest snapshot of each slot in memory and periodically
// writes them to the backend. Only the newest snapshot per slot is kept, so a
// burst of mutations costs one write. It is safe for concurrent use.
type Flusher struct {
	backend       Backend
	pending       map[string]any
	mu            sync.Mutex
	writeMu       sync.Mutex
	flushInterval time.Duration
	observer      FlushObserver
	done          chan struct{}
	stopOnce      sync.Once
}

// NewFlusher creates a Flusher that writes pending snapshots to backend every
// flushInterval.
func NewFlusher(backend Backend, flushInterval time.Duration) *Flusher {
	return &Flusher{
		backend:       backend,
		pending:       make(map[string]any),
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}
}

// SetObserver installs an observer for flush outcomes. Call before Start.
func (f *Flusher) SetObserver(o FlushObserver) {
	f.observer = o
}

// Start begins flushing on a timer. It blocks until Stop is called or the
// context is cancelled, flushing once more before returning.
func (f *Flusher) Start(ctx context.Context) {
	ticker := time.NewTicker(f.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.Flush()
		case <-ctx.Done():
			f.Flush()
			return
		case <-f.done:
			f.Flush()
			return
		}
	}
}

// Save replaces the pending snapshot for slot. The state must not be mutated
// by the caller afterwards.
func (f *Flusher) Save(slot string, state any) {
	f.mu.Lock()
	f.pending[slot] = state
	f.mu.Unlock()
}

// Pending returns the number of slots waiting to be written.
func (f *Flusher) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Flush drains all pending snapshots and writes them to the backend. Errors
// are logged rather than returned so callers are never blocked on storage.
func (f *Flusher) Flush() {
	// Writers are serialised so an older batch never lands after a newer one,
	// and a Flush that finds nothing pending still waits for one in progress.
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		return
	}
	batch := f.pending
	f.pending = make(map[string]any, len(batch))
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	var firstErr error
	for slot, state := range batch {
		data, err := Encode(state)
		if err != nil {
			slog.Error("failed to encode state snapshot", "slot", slot, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := f.backend.Save(ctx, slot, data); err != nil {
			slog.Error("failed to write state snapshot", "slot", slot, "bytes", len(data), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if f.observer != nil {
		f.observer.ObserveFlush(len(batch), time.Since(start), firstErr)
	}
}

// Stop signals the background goroutine to exit and performs a final flush.
// It is safe to call more than once.
func (f *Flusher) Stop() {
	f.stopOnce.Do(func() {
		close(f.done)
	})
	f.Flush()
}
