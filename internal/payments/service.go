package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amorize/checkout-backend/pkg/asaas"
	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
	"github.com/amorize/checkout-backend/pkg/retry"
)

// Gateway is the slice of the payment client this service needs.
type Gateway interface {
	GetPaymentStatus(ctx context.Context, paymentID string) (string, error)
	SimulateInstallments(ctx context.Context, amount decimal.Decimal, maxInstallments int) ([]asaas.InstallmentOption, error)
}

// Terminal statuses as the gateway reports them. Statuses are passed through
// verbatim; this set only documents when polling may stop.
var terminalStatuses = map[string]struct{}{
	"CONFIRMED":            {},
	"RECEIVED":             {},
	"RECEIVED_IN_CASH":     {},
	"REFUNDED":             {},
	"REFUND_REQUESTED":     {},
	"CHARGEBACK_REQUESTED": {},
	"OVERDUE":              {},
	"CANCELED":             {},
}

// IsTerminalStatus reports whether polling can stop for the given status.
func IsTerminalStatus(status string) bool {
	_, ok := terminalStatuses[strings.ToUpper(strings.TrimSpace(status))]
	return ok
}

// IsConfirmedStatus reports whether the status means the payment settled.
func IsConfirmedStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "CONFIRMED", "RECEIVED", "RECEIVED_IN_CASH":
		return true
	default:
		return false
	}
}

// Service answers payment status and installment questions.
type Service interface {
	CheckStatus(ctx context.Context, paymentID string) (string, error)
	CalculateInstallments(ctx context.Context, amount decimal.Decimal, maxInstallments int) ([]asaas.InstallmentOption, error)
}

type service struct {
	gateway Gateway
	policy  retry.Policy
}

// NewService builds a payment status service. The status check is wrapped in
// the retry policy; it is a read and therefore safe to repeat.
func NewService(gateway Gateway) (Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{
		gateway: gateway,
		policy: retry.Policy{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			ShouldRetry:  isRetryable,
		},
	}, nil
}

func (s *service) CheckStatus(ctx context.Context, paymentID string) (string, error) {
	if strings.TrimSpace(paymentID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	var status string
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		got, err := s.gateway.GetPaymentStatus(ctx, paymentID)
		if err != nil {
			return err
		}
		status = got
		return nil
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

func (s *service) CalculateInstallments(ctx context.Context, amount decimal.Decimal, maxInstallments int) ([]asaas.InstallmentOption, error) {
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if maxInstallments < 1 {
		maxInstallments = 1
	}
	if maxInstallments > 12 {
		maxInstallments = 12
	}
	return s.gateway.SimulateInstallments(ctx, amount, maxInstallments)
}

func isRetryable(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		// Untyped errors are transport-level failures, worth retrying.
		return true
	}
	return pkgerrors.MetadataFor(typed.Code()).Retryable
}
