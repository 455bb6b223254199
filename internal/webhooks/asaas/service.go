package asaaswebhook

import (
	"context"
	"strings"

	"github.com/amorize/checkout-backend/internal/audit"
	"github.com/amorize/checkout-backend/internal/checkout"
	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
	"github.com/amorize/checkout-backend/pkg/logger"
)

// Event is the gateway's webhook envelope.
type Event struct {
	ID      string       `json:"id"`
	Event   string       `json:"event"`
	Payment EventPayment `json:"payment"`
}

// EventPayment is the payment snapshot embedded in the event.
type EventPayment struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"externalReference"`
}

// Result reports how an event was handled.
type Result struct {
	Duplicate bool
	Confirmed bool
	Ignored   bool
}

type paymentConfirmer interface {
	ConfirmPayment(ctx context.Context, input checkout.ConfirmInput) (*checkout.ConfirmResult, error)
}

// ServiceParams carries the webhook handler dependencies.
type ServiceParams struct {
	Confirmer paymentConfirmer
	Guard     *IdempotencyGuard
	Audit     *audit.Service
	Logger    *logger.Logger
}

// Service processes gateway payment events exactly once.
type Service struct {
	confirmer paymentConfirmer
	guard     *IdempotencyGuard
	audit     *audit.Service
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Confirmer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment confirmer required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Audit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "audit service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		confirmer: params.Confirmer,
		guard:     params.Guard,
		audit:     params.Audit,
		logg:      params.Logger,
	}, nil
}

// confirmationEvents are the gateway events that settle a payment.
var confirmationEvents = map[string]struct{}{
	"PAYMENT_CONFIRMED": {},
	"PAYMENT_RECEIVED":  {},
}

// HandleEvent processes one gateway event. Redeliveries are suppressed by the
// idempotency guard; a failed confirmation releases the guard so the gateway
// can retry.
func (s *Service) HandleEvent(ctx context.Context, event *Event, forensic audit.Forensic) (*Result, error) {
	if event == nil || event.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	if event.Payment.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event payment id required")
	}

	duplicate, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "idempotency check")
	}
	if duplicate {
		s.logg.Info(ctx, "duplicate webhook event suppressed")
		return &Result{Duplicate: true}, nil
	}

	op := s.audit.ForOperation("webhook", "", forensic)
	ctx = s.logg.WithCorrelationID(ctx, op.CorrelationID())
	op.WebhookReceived(ctx, event.ID, event.Event, event.Payment.ID)

	if _, ok := confirmationEvents[strings.ToUpper(event.Event)]; !ok {
		return &Result{Ignored: true}, nil
	}

	confirm, err := s.confirmer.ConfirmPayment(ctx, checkout.ConfirmInput{
		PaymentID:     event.Payment.ID,
		CorrelationID: op.CorrelationID(),
		Forensic:      forensic,
	})
	if err != nil {
		if relErr := s.guard.Release(ctx, event.ID); relErr != nil {
			s.logg.Error(ctx, "failed to release idempotency key after error", relErr)
		}
		return nil, err
	}

	return &Result{Confirmed: confirm.Confirmed}, nil
}
