package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amorize/checkout-backend/pkg/db/models"
	"github.com/amorize/checkout-backend/pkg/enums"
	"github.com/amorize/checkout-backend/pkg/logger"
)

// Forensic carries request-level metadata attached to every entry of an
// operation. Missing values default to "unknown" at extraction time.
type Forensic struct {
	IPAddress string
	UserAgent string
	Origin    string
}

// Service builds per-operation audit loggers sharing one writer.
type Service struct {
	writer *Writer
	logg   *logger.Logger
}

// NewService builds the audit service.
func NewService(writer *Writer, logg *logger.Logger) (*Service, error) {
	if writer == nil {
		return nil, fmt.Errorf("audit writer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{writer: writer, logg: logg}, nil
}

// Close flushes queued entries.
func (s *Service) Close() {
	s.writer.Close()
}

// ForOperation creates a logger for one logical operation. All entries share
// the correlation id; a fresh one is minted when the caller has none.
func (s *Service) ForOperation(operation string, correlationID string, forensic Forensic) *OperationLogger {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return &OperationLogger{
		svc:           s,
		operation:     operation,
		correlationID: correlationID,
		forensic:      forensic,
	}
}

// OperationLogger accumulates identity context over the course of one
// operation and emits audit entries carrying it. Not safe for concurrent use;
// an instance belongs to a single request flow.
type OperationLogger struct {
	svc           *Service
	operation     string
	correlationID string
	forensic      Forensic

	userID        *uuid.UUID
	orderID       *uuid.UUID
	paymentID     *string
	customerEmail *string
}

// CorrelationID returns the id threading this operation's entries.
func (o *OperationLogger) CorrelationID() string {
	return o.correlationID
}

// SetUser attaches the user identity to every subsequent entry.
func (o *OperationLogger) SetUser(userID uuid.UUID) {
	if userID != uuid.Nil {
		o.userID = &userID
	}
}

// SetOrder attaches the order to every subsequent entry.
func (o *OperationLogger) SetOrder(orderID uuid.UUID) {
	if orderID != uuid.Nil {
		o.orderID = &orderID
	}
}

// SetPayment attaches the gateway payment id to every subsequent entry.
func (o *OperationLogger) SetPayment(paymentID string) {
	if paymentID != "" {
		o.paymentID = &paymentID
	}
}

// SetCustomerEmail attaches the buyer's email to every subsequent entry.
func (o *OperationLogger) SetCustomerEmail(email string) {
	if email != "" {
		o.customerEmail = &email
	}
}

// Info enqueues a best-effort entry.
func (o *OperationLogger) Info(ctx context.Context, message string, metadata map[string]any) {
	o.svc.writer.Enqueue(ctx, o.build(enums.AuditLevelInfo, message, metadata))
}

// Warning enqueues a best-effort entry.
func (o *OperationLogger) Warning(ctx context.Context, message string, metadata map[string]any) {
	o.svc.writer.Enqueue(ctx, o.build(enums.AuditLevelWarning, message, metadata))
}

// Error enqueues a best-effort entry.
func (o *OperationLogger) Error(ctx context.Context, message string, metadata map[string]any) {
	o.svc.writer.Enqueue(ctx, o.build(enums.AuditLevelError, message, metadata))
}

// Critical writes synchronously and reports the persistence outcome.
func (o *OperationLogger) Critical(ctx context.Context, message string, metadata map[string]any) error {
	return o.svc.writer.WriteSync(ctx, o.build(enums.AuditLevelCritical, message, metadata))
}

// CheckoutStarted records the entry point of a checkout attempt.
func (o *OperationLogger) CheckoutStarted(ctx context.Context, email string, productIDs []string, total decimal.Decimal) {
	o.SetCustomerEmail(email)
	o.Info(ctx, "checkout started", map[string]any{
		"product_ids": productIDs,
		"total":       total.String(),
	})
}

// PaymentCreated records a successfully created gateway payment.
func (o *OperationLogger) PaymentCreated(ctx context.Context, orderID uuid.UUID, paymentID string, billingType enums.BillingType) {
	o.SetOrder(orderID)
	o.SetPayment(paymentID)
	o.Info(ctx, "payment created", map[string]any{
		"billing_type": billingType.String(),
	})
}

// PaymentConfirmed records a confirmed payment. Awaited: confirmation must
// never be lost silently.
func (o *OperationLogger) PaymentConfirmed(ctx context.Context, orderID uuid.UUID, paymentID, gatewayStatus string) error {
	o.SetOrder(orderID)
	o.SetPayment(paymentID)
	return o.Critical(ctx, "payment confirmed", map[string]any{
		"gateway_status": gatewayStatus,
	})
}

// AccessGranted records the access grant outcome. Awaited for the same reason
// as PaymentConfirmed.
func (o *OperationLogger) AccessGranted(ctx context.Context, userID uuid.UUID, productIDs []string, updated bool) error {
	o.SetUser(userID)
	return o.Critical(ctx, "access granted", map[string]any{
		"product_ids": productIDs,
		"updated":     updated,
	})
}

// AccessEmailSent records the post-grant notification.
func (o *OperationLogger) AccessEmailSent(ctx context.Context, email string) {
	o.SetCustomerEmail(email)
	o.Info(ctx, "access email sent", nil)
}

// WebhookReceived records an inbound gateway event.
func (o *OperationLogger) WebhookReceived(ctx context.Context, eventID, eventType, paymentID string) {
	o.SetPayment(paymentID)
	o.Info(ctx, "webhook received", map[string]any{
		"event_id":   eventID,
		"event_type": eventType,
	})
}

func (o *OperationLogger) build(level enums.AuditLevel, message string, metadata map[string]any) *models.AuditLogEntry {
	entry := &models.AuditLogEntry{
		ID:            uuid.New(),
		Level:         level,
		Context:       o.operation,
		Message:       message,
		CorrelationID: o.correlationID,
		UserID:        o.userID,
		OrderID:       o.orderID,
		PaymentID:     o.paymentID,
		CustomerEmail: o.customerEmail,
		IPAddress:     orUnknown(o.forensic.IPAddress),
		UserAgent:     orUnknown(o.forensic.UserAgent),
		CreatedAt:     time.Now().UTC(),
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	if o.forensic.Origin != "" {
		metadata["origin"] = o.forensic.Origin
	}
	hashed, err := json.Marshal(metadata)
	if err != nil {
		hashed = []byte(fmt.Sprintf(`{"_marshal_error":%q}`, err.Error()))
	}
	entry.Metadata = hashed
	entry.LogHash = ComputeLogHash(entry)

	// The stored blob additionally carries the hash itself. Stripping the
	// _log_hash key and re-marshaling reproduces the hashed bytes.
	metadata["_log_hash"] = entry.LogHash
	if stored, serr := json.Marshal(metadata); err == nil && serr == nil {
		entry.Metadata = stored
	} else {
		entry.Metadata = []byte(fmt.Sprintf(`{"_log_hash":%q,"_marshal_error":%q}`, entry.LogHash, "metadata not serializable"))
	}

	return entry
}

func orUnknown(value string) *string {
	if value == "" {
		value = "unknown"
	}
	return &value
}
