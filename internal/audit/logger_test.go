package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amorize/checkout-backend/pkg/db/models"
	"github.com/amorize/checkout-backend/pkg/enums"
	"github.com/amorize/checkout-backend/pkg/logger"
)

type memRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLogEntry
	fail    error
}

func (m *memRepo) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memRepo) ListByCorrelationID(ctx context.Context, correlationID string) ([]models.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditLogEntry
	for _, e := range m.entries {
		if e.CorrelationID == correlationID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *memRepo) last() *models.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	writer, err := NewWriter(repo, logger.New(logger.Options{ServiceName: "audit-test", Output: io.Discard}), 16)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	svc, err := NewService(writer, logger.New(logger.Options{ServiceName: "audit-test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func TestInfoEntriesAreDrained(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(t, repo)

	op := svc.ForOperation("checkout", "", Forensic{IPAddress: "10.0.0.1", UserAgent: "curl"})
	op.Info(context.Background(), "checkout started", map[string]any{"total": "100"})

	svc.Close()

	if repo.count() != 1 {
		t.Fatalf("expected 1 drained entry, got %d", repo.count())
	}
	entry := repo.last()
	if entry.Level != enums.AuditLevelInfo {
		t.Errorf("level = %s", entry.Level)
	}
	if entry.CorrelationID == "" {
		t.Errorf("correlation id should be minted when absent")
	}
	if entry.LogHash == "" {
		t.Errorf("log hash missing")
	}
}

func TestEnqueueAfterCloseIsDropped(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(t, repo)
	op := svc.ForOperation("checkout", "", Forensic{})

	svc.Close()
	op.Info(context.Background(), "late entry", nil)

	if repo.count() != 0 {
		t.Errorf("late entry must be dropped, got %d persisted", repo.count())
	}
}

func TestCriticalWritesSynchronously(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(t, repo)

	op := svc.ForOperation("webhook", "corr-77", Forensic{})
	if err := op.Critical(context.Background(), "payment confirmed", nil); err != nil {
		t.Fatalf("Critical: %v", err)
	}

	// No Close needed: the entry must already be persisted.
	if repo.count() != 1 {
		t.Fatalf("critical entry not persisted synchronously")
	}
	if repo.last().CorrelationID != "corr-77" {
		t.Errorf("caller-provided correlation id not kept")
	}
}

func TestCriticalSurfacesPersistenceFailure(t *testing.T) {
	repo := &memRepo{fail: errors.New("db down")}
	svc := newTestService(t, repo)

	op := svc.ForOperation("webhook", "", Forensic{})
	if err := op.Critical(context.Background(), "payment confirmed", nil); err == nil {
		t.Fatalf("expected error from synchronous write")
	}
}

func TestMetadataCarriesLogHash(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(t, repo)

	op := svc.ForOperation("checkout", "", Forensic{Origin: "https://amorize.com"})
	if err := op.Critical(context.Background(), "access granted", map[string]any{"updated": true}); err != nil {
		t.Fatalf("Critical: %v", err)
	}

	entry := repo.last()
	var meta map[string]any
	if err := json.Unmarshal(entry.Metadata, &meta); err != nil {
		t.Fatalf("metadata not valid json: %v", err)
	}
	if meta["_log_hash"] != entry.LogHash {
		t.Errorf("metadata _log_hash mismatch: %v vs %s", meta["_log_hash"], entry.LogHash)
	}
	if meta["origin"] != "https://amorize.com" {
		t.Errorf("origin not recorded: %v", meta["origin"])
	}
	if meta["updated"] != true {
		t.Errorf("caller metadata lost: %v", meta)
	}
}

func TestStoredHashCoversMetadata(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(t, repo)

	op := svc.ForOperation("payment-confirmation", "", Forensic{})
	if err := op.PaymentConfirmed(context.Background(), uuid.New(), "pay_55", "CONFIRMED"); err != nil {
		t.Fatalf("PaymentConfirmed: %v", err)
	}

	entry := repo.last()
	var meta map[string]any
	if err := json.Unmarshal(entry.Metadata, &meta); err != nil {
		t.Fatalf("metadata not valid json: %v", err)
	}

	// Stripping the hash key and re-marshaling must reproduce the hashed blob.
	delete(meta, "_log_hash")
	stripped, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	check := *entry
	check.Metadata = stripped
	if ComputeLogHash(&check) != entry.LogHash {
		t.Fatalf("stored hash not reproducible from the stripped metadata")
	}

	// A rewritten gateway status must break the digest.
	meta["gateway_status"] = "REFUNDED"
	tampered, _ := json.Marshal(meta)
	check.Metadata = tampered
	if ComputeLogHash(&check) == entry.LogHash {
		t.Fatal("tampered metadata still matches the stored hash")
	}
}

func TestHelpersAccumulateContext(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(t, repo)

	op := svc.ForOperation("checkout", "", Forensic{})
	orderID := uuid.New()

	op.CheckoutStarted(context.Background(), "maria@example.com", []string{"ebook"}, decimal.NewFromInt(100))
	op.PaymentCreated(context.Background(), orderID, "pay_123", enums.BillingTypePix)
	if err := op.PaymentConfirmed(context.Background(), orderID, "pay_123", "RECEIVED"); err != nil {
		t.Fatalf("PaymentConfirmed: %v", err)
	}

	svc.Close()

	if repo.count() != 3 {
		t.Fatalf("expected 3 entries, got %d", repo.count())
	}

	entries, _ := repo.ListByCorrelationID(context.Background(), op.CorrelationID())
	if len(entries) != 3 {
		t.Fatalf("entries not threaded by correlation id")
	}
	// The confirmed entry carries everything accumulated so far.
	confirmed := repo.last()
	if confirmed.OrderID == nil || *confirmed.OrderID != orderID {
		t.Errorf("order id not accumulated")
	}
	if confirmed.PaymentID == nil || *confirmed.PaymentID != "pay_123" {
		t.Errorf("payment id not accumulated")
	}
	if confirmed.CustomerEmail == nil || *confirmed.CustomerEmail != "maria@example.com" {
		t.Errorf("customer email not accumulated")
	}
}

func TestForensicDefaultsToUnknown(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(t, repo)

	op := svc.ForOperation("checkout", "", Forensic{})
	if err := op.Critical(context.Background(), "x", nil); err != nil {
		t.Fatalf("Critical: %v", err)
	}
	entry := repo.last()
	if entry.IPAddress == nil || *entry.IPAddress != "unknown" {
		t.Errorf("ip address should default to unknown")
	}
	if entry.UserAgent == nil || *entry.UserAgent != "unknown" {
		t.Errorf("user agent should default to unknown")
	}
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	repo := &memRepo{}
	// Writer with a tiny queue and a repo that blocks long enough for the
	// queue to fill.
	slow := &slowRepo{inner: repo, delay: 50 * time.Millisecond}
	writer, err := NewWriter(slow, logger.New(logger.Options{ServiceName: "audit-test", Output: io.Discard}), 1)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	svc, err := NewService(writer, logger.New(logger.Options{ServiceName: "audit-test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	op := svc.ForOperation("checkout", "", Forensic{})
	for i := 0; i < 10; i++ {
		op.Info(context.Background(), "burst", nil)
	}
	svc.Close()

	if repo.count() >= 10 {
		t.Fatalf("expected drops under backpressure, kept %d", repo.count())
	}
	if repo.count() == 0 {
		t.Fatalf("expected at least one entry to survive")
	}
}

type slowRepo struct {
	inner *memRepo
	delay time.Duration
}

func (s *slowRepo) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	time.Sleep(s.delay)
	return s.inner.Insert(ctx, entry)
}

func (s *slowRepo) ListByCorrelationID(ctx context.Context, correlationID string) ([]models.AuditLogEntry, error) {
	return s.inner.ListByCorrelationID(ctx, correlationID)
}
