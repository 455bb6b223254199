package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/amorize/checkout-backend/api/responses"
	"github.com/amorize/checkout-backend/api/validators"
	"github.com/amorize/checkout-backend/internal/payments"
	"github.com/amorize/checkout-backend/pkg/config"
	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
	"github.com/amorize/checkout-backend/pkg/logger"
)

type paymentStatusResponse struct {
	PaymentID           string `json:"payment_id"`
	Status              string `json:"status"`
	Confirmed           bool   `json:"confirmed"`
	Terminal            bool   `json:"terminal"`
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
	PollCeilingMinutes  int    `json:"poll_ceiling_minutes"`
}

// PaymentStatus is the client polling target. The interval and ceiling
// returned alongside the status tell the frontend how to poll.
func PaymentStatus(svc payments.Service, checkoutCfg config.CheckoutConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		paymentID := strings.TrimSpace(chi.URLParam(r, "paymentId"))
		if paymentID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment id required"))
			return
		}

		status, err := svc.CheckStatus(r.Context(), paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentStatusResponse{
			PaymentID:           paymentID,
			Status:              status,
			Confirmed:           payments.IsConfirmedStatus(status),
			Terminal:            payments.IsTerminalStatus(status),
			PollIntervalSeconds: int(checkoutCfg.StatusPollInterval.Seconds()),
			PollCeilingMinutes:  int(checkoutCfg.StatusPollCeiling.Minutes()),
		})
	}
}

type installmentsRequest struct {
	Amount          string `json:"amount" validate:"required"`
	MaxInstallments int    `json:"max_installments" validate:"omitempty,min=1,max=12"`
}

type installmentOptionResponse struct {
	Count int    `json:"count"`
	Value string `json:"value"`
	Total string `json:"total"`
}

// Installments quotes the card installment options for an amount.
func Installments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload installmentsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		options, err := svc.CalculateInstallments(r.Context(), amount, payload.MaxInstallments)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]installmentOptionResponse, 0, len(options))
		for _, option := range options {
			out = append(out, installmentOptionResponse{
				Count: option.Count,
				Value: option.Value.StringFixed(2),
				Total: option.Total.StringFixed(2),
			})
		}
		responses.WriteSuccess(w, out)
	}
}
