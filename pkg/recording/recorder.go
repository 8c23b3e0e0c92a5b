package recording

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const maxBatch = 64

// Recorder writes frames to a Store from its own goroutine so the frame
// loop never waits on disk. When the queue is full frames are dropped.
type Recorder struct {
	store   *Store
	session uuid.UUID
	logger  *slog.Logger

	mu      sync.RWMutex
	closed  bool
	records chan FrameRecord
	done    chan struct{}
	err     error

	written atomic.Uint64
	dropped atomic.Uint64
}

// NewRecorder starts a recorder for session with a queue of buffer frames.
func NewRecorder(store *Store, session uuid.UUID, buffer int, logger *slog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &Recorder{
		store:   store,
		session: session,
		logger:  logger.With("session_id", session.String()),
		records: make(chan FrameRecord, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues rec. It returns false if the frame was dropped.
func (r *Recorder) Record(rec FrameRecord) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return false
	}
	select {
	case r.records <- rec:
		return true
	default:
		if r.dropped.Add(1) == 1 {
			r.logger.Warn("recording queue full, dropping frames")
		}
		return false
	}
}

// Close flushes queued frames and stops the writer. It returns the first
// write error, if any.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.records)
	}
	r.mu.Unlock()

	<-r.done
	r.logger.Info("recording closed",
		"written", r.written.Load(),
		"dropped", r.dropped.Load())
	return r.err
}

// Written returns the number of frames stored.
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Dropped returns the number of frames discarded.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

func (r *Recorder) run() {
	defer close(r.done)

	batch := make([]FrameRecord, 0, maxBatch)
	for rec := range r.records {
		batch = append(batch[:0], rec)
	drain:
		for len(batch) < maxBatch {
			select {
			case rec, ok := <-r.records:
				if !ok {
					break drain
				}
				batch = append(batch, rec)
			default:
				break drain
			}
		}

		if err := r.store.AppendBatch(context.Background(), r.session, batch); err != nil {
			r.logger.Error("write frames", "error", err, "frames", len(batch))
			if r.err == nil {
				r.err = err
			}
			continue
		}
		r.written.Add(uint64(len(batch)))
	}
}
