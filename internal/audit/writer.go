package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amorize/checkout-backend/pkg/db/models"
	"github.com/amorize/checkout-backend/pkg/logger"
)

const (
	defaultQueueSize   = 256
	asyncWriteDeadline = 5 * time.Second
)

// Writer persists audit entries. Non-critical entries go through a buffered
// channel drained by a background goroutine; critical entries are written
// synchronously by the caller.
type Writer struct {
	repo Repository
	logg *logger.Logger

	queue     chan *models.AuditLogEntry
	wg        sync.WaitGroup
	closeOnce sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewWriter builds a writer and starts its drain goroutine.
func NewWriter(repo Repository, logg *logger.Logger, queueSize int) (*Writer, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	w := &Writer{
		repo:  repo,
		logg:  logg,
		queue: make(chan *models.AuditLogEntry, queueSize),
	}
	w.wg.Add(1)
	go w.drain()
	return w, nil
}

// Enqueue schedules a best-effort write. When the queue is full the entry is
// dropped with an operational warning rather than blocking the request path.
// Entries arriving after Close are dropped the same way.
func (w *Writer) Enqueue(ctx context.Context, entry *models.AuditLogEntry) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.logg.Warn(ctx, fmt.Sprintf("audit writer closed, dropping %s entry for context %s", entry.Level, entry.Context))
		return
	}
	select {
	case w.queue <- entry:
	default:
		w.logg.Warn(ctx, fmt.Sprintf("audit queue full, dropping %s entry for context %s", entry.Level, entry.Context))
	}
}

// WriteSync persists the entry before returning.
func (w *Writer) WriteSync(ctx context.Context, entry *models.AuditLogEntry) error {
	if err := w.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Close stops accepting entries and flushes everything already queued.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.queue)
	})
	w.wg.Wait()
}

func (w *Writer) drain() {
	defer w.wg.Done()
	for entry := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), asyncWriteDeadline)
		if err := w.repo.Insert(ctx, entry); err != nil {
			w.logg.Error(ctx, fmt.Sprintf("async audit write failed for context %s", entry.Context), err)
		}
		cancel()
	}
}
