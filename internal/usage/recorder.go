// Package usage buffers per-request audit records in memory and writes them
// to durable storage in timed batches (write-behind), keeping the request
// path free of database writes.
package usage

import (
	"context"
	"sync"
	"time"

	"github.com/aman-churiwal/auth-gateway/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Writer interface {
	InsertBatch(ctx context.Context, records []models.UsageRecord) error
}

// Recorder owns the in-memory queue. Enqueue is O(1) under a single mutex and
// never performs I/O; a background flusher drains the queue on a fixed
// interval and performs one multi-row insert per batch. Accounting is
// best-effort: a failed insert is logged and the batch dropped, never
// retried on the request path.
type Recorder struct {
	mu    sync.Mutex
	queue []models.UsageRecord

	writer   Writer
	interval time.Duration
	clock    func() time.Time
	logger   *zap.Logger

	stop    chan struct{}
	done    chan struct{}
	started bool
	once    sync.Once
}

func NewRecorder(writer Writer, interval time.Duration, logger *zap.Logger) *Recorder {
	return &Recorder{
		writer:   writer,
		interval: interval,
		clock:    time.Now,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Enqueue appends one record. Safe for concurrent use with a running flush:
// the flusher swaps the queue out under the same mutex, so no record is lost
// or flushed twice.
func (r *Recorder) Enqueue(userID uuid.UUID, path string) {
	r.mu.Lock()
	r.queue = append(r.queue, models.UsageRecord{
		UserID: userID,
		Path:   path,
	})
	r.mu.Unlock()
}

// Start launches the background flush loop. Call Close to stop it; Close
// performs a final flush so records buffered at shutdown are not lost.
func (r *Recorder) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.Flush(context.Background())
			case <-r.stop:
				return
			}
		}
	}()
}

// Flush atomically drains the queue and, if non-empty, writes the batch in
// one insert. The queue lock is not held across the write. Each record is
// stamped with the flush time.
func (r *Recorder) Flush(ctx context.Context) {
	r.mu.Lock()
	batch := r.queue
	r.queue = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	now := r.clock().UTC()
	for i := range batch {
		batch[i].CreatedAt = now
	}

	if err := r.writer.InsertBatch(ctx, batch); err != nil {
		r.logger.Error("failed to insert usage batch",
			zap.Int("records", len(batch)),
			zap.Error(err))
		return
	}

	r.logger.Debug("flushed usage batch", zap.Int("records", len(batch)))
}

// Close stops the flush loop and flushes whatever is still queued.
func (r *Recorder) Close() {
	r.once.Do(func() {
		r.mu.Lock()
		started := r.started
		r.mu.Unlock()

		close(r.stop)
		if started {
			<-r.done
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r.Flush(ctx)
	})
}

// Pending reports the number of queued records, for status endpoints.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}
