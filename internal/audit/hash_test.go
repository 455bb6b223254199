package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/amorize/checkout-backend/pkg/db/models"
	"github.com/amorize/checkout-backend/pkg/enums"
)

func baseEntry() *models.AuditLogEntry {
	orderID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	paymentID := "pay_123"
	email := "maria@example.com"
	return &models.AuditLogEntry{
		Level:         enums.AuditLevelInfo,
		Context:       "checkout",
		Message:       "payment created",
		CorrelationID: "corr-1",
		OrderID:       &orderID,
		PaymentID:     &paymentID,
		CustomerEmail: &email,
		Metadata:      []byte(`{"gateway_status":"CONFIRMED"}`),
		CreatedAt:     time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestComputeLogHashIsStable(t *testing.T) {
	a := ComputeLogHash(baseEntry())
	b := ComputeLogHash(baseEntry())
	if a != b {
		t.Fatalf("identical entries must hash identically: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256 digest, got %q", a)
	}
}

func TestComputeLogHashChangesPerField(t *testing.T) {
	base := ComputeLogHash(baseEntry())

	mutations := map[string]func(*models.AuditLogEntry){
		"message":        func(e *models.AuditLogEntry) { e.Message = "payment failed" },
		"level":          func(e *models.AuditLogEntry) { e.Level = enums.AuditLevelError },
		"context":        func(e *models.AuditLogEntry) { e.Context = "webhook" },
		"correlation_id": func(e *models.AuditLogEntry) { e.CorrelationID = "corr-2" },
		"payment_id":     func(e *models.AuditLogEntry) { p := "pay_999"; e.PaymentID = &p },
		"timestamp":      func(e *models.AuditLogEntry) { e.CreatedAt = e.CreatedAt.Add(time.Nanosecond) },
		"metadata": func(e *models.AuditLogEntry) {
			e.Metadata = []byte(`{"gateway_status":"REFUNDED"}`)
		},
	}
	for name, mutate := range mutations {
		entry := baseEntry()
		mutate(entry)
		if ComputeLogHash(entry) == base {
			t.Errorf("changing %s did not change the hash", name)
		}
	}
}

func TestComputeLogHashDetectsMetadataTampering(t *testing.T) {
	confirmed := baseEntry()
	refunded := baseEntry()
	refunded.Metadata = []byte(`{"gateway_status":"REFUNDED"}`)

	if ComputeLogHash(confirmed) == ComputeLogHash(refunded) {
		t.Fatal("entries differing only in metadata must hash differently")
	}
}
