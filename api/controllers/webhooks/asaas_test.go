package webhooks

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/amorize/checkout-backend/internal/audit"
	checkoutsvc "github.com/amorize/checkout-backend/internal/checkout"
	asaaswebhook "github.com/amorize/checkout-backend/internal/webhooks/asaas"
	"github.com/amorize/checkout-backend/pkg/db/models"
	"github.com/amorize/checkout-backend/pkg/logger"
	"github.com/google/uuid"
)

type memIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{keys: map[string]string{}}
}

func (m *memIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = "1"
	return true, nil
}

func (m *memIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

type nullAuditRepo struct{}

func (nullAuditRepo) Insert(ctx context.Context, entry *models.AuditLogEntry) error { return nil }

func (nullAuditRepo) ListByCorrelationID(ctx context.Context, correlationID string) ([]models.AuditLogEntry, error) {
	return nil, nil
}

type fakeConfirmer struct {
	calls int
}

func (f *fakeConfirmer) ConfirmPayment(ctx context.Context, input checkoutsvc.ConfirmInput) (*checkoutsvc.ConfirmResult, error) {
	f.calls++
	return &checkoutsvc.ConfirmResult{OrderID: uuid.New(), GatewayStatus: "RECEIVED", Confirmed: true, AccessUpdated: true}, nil
}

func newWebhookService(t *testing.T, confirmer *fakeConfirmer) *asaaswebhook.Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "webhook-test", Output: io.Discard})
	writer, err := audit.NewWriter(nullAuditRepo{}, logg, 16)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	t.Cleanup(writer.Close)
	auditSvc, err := audit.NewService(writer, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	guard, err := asaaswebhook.NewIdempotencyGuard(newMemIdempotencyStore(), time.Hour, "asaas-webhook")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard: %v", err)
	}
	svc, err := asaaswebhook.NewService(asaaswebhook.ServiceParams{
		Confirmer: confirmer,
		Guard:     guard,
		Audit:     auditSvc,
		Logger:    logg,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

const eventBody = `{
	"id": "evt_1",
	"event": "PAYMENT_CONFIRMED",
	"payment": {"id": "pay_1", "status": "CONFIRMED", "externalReference": "order-1"},
	"dateCreated": "2026-03-15 10:00:00"
}`

func TestAsaasWebhookRejectsBadToken(t *testing.T) {
	handler := AsaasWebhook(newWebhookService(t, &fakeConfirmer{}), "secret-token", logger.New(logger.Options{ServiceName: "t", Output: io.Discard}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas", bytes.NewBufferString(eventBody))
	req.Header.Set("Asaas-Access-Token", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAsaasWebhookConfirmsPayment(t *testing.T) {
	confirmer := &fakeConfirmer{}
	handler := AsaasWebhook(newWebhookService(t, confirmer), "secret-token", logger.New(logger.Options{ServiceName: "t", Output: io.Discard}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas", bytes.NewBufferString(eventBody))
	req.Header.Set("Asaas-Access-Token", "secret-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if confirmer.calls != 1 {
		t.Fatalf("expected 1 confirmation, got %d", confirmer.calls)
	}
}

func TestAsaasWebhookSuppressesRedelivery(t *testing.T) {
	confirmer := &fakeConfirmer{}
	handler := AsaasWebhook(newWebhookService(t, confirmer), "", logger.New(logger.Options{ServiceName: "t", Output: io.Discard}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas", bytes.NewBufferString(eventBody))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i, rec.Code)
		}
	}
	if confirmer.calls != 1 {
		t.Fatalf("expected 1 confirmation across redeliveries, got %d", confirmer.calls)
	}
}
