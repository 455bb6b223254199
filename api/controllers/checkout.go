package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/amorize/checkout-backend/api/middleware"
	"github.com/amorize/checkout-backend/api/responses"
	"github.com/amorize/checkout-backend/api/validators"
	checkoutsvc "github.com/amorize/checkout-backend/internal/checkout"
	"github.com/amorize/checkout-backend/pkg/asaas"
	"github.com/amorize/checkout-backend/pkg/enums"
	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
	"github.com/amorize/checkout-backend/pkg/logger"
)

type checkoutCustomerRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	CPF      string `json:"cpf" validate:"required,min=11"`
	Whatsapp string `json:"whatsapp" validate:"omitempty,min=10"`
}

type checkoutCardRequest struct {
	HolderName       string `json:"holder_name" validate:"required"`
	Number           string `json:"number" validate:"required,min=13"`
	ExpiryMonth      string `json:"expiry_month" validate:"required,len=2"`
	ExpiryYear       string `json:"expiry_year" validate:"required,len=4"`
	CCV              string `json:"ccv" validate:"required,min=3,max=4"`
	HolderEmail      string `json:"holder_email" validate:"required,email"`
	HolderCPF        string `json:"holder_cpf" validate:"required,min=11"`
	HolderPostalCode string `json:"holder_postal_code" validate:"required"`
	HolderAddressNum string `json:"holder_address_number" validate:"required"`
	HolderPhone      string `json:"holder_phone" validate:"omitempty"`
	InstallmentCount int    `json:"installment_count" validate:"omitempty,min=1,max=12"`
}

type checkoutRequest struct {
	Customer    checkoutCustomerRequest `json:"customer" validate:"required"`
	ProductIDs  []string                `json:"product_ids" validate:"required,min=1,dive,required"`
	CouponCode  *string                 `json:"coupon_code,omitempty"`
	BillingType string                  `json:"billing_type" validate:"required,oneof=PIX CREDIT_CARD"`
	Card        *checkoutCardRequest    `json:"card,omitempty"`
	Tracking    json.RawMessage         `json:"tracking,omitempty"`
}

type checkoutResponse struct {
	OrderID         string `json:"order_id"`
	PaymentID       string `json:"payment_id"`
	PaymentStatus   string `json:"payment_status"`
	BillingType     string `json:"billing_type"`
	FinalTotal      string `json:"final_total"`
	PixPayload      string `json:"pix_payload,omitempty"`
	PixEncodedImage string `json:"pix_encoded_image,omitempty"`
	InvoiceURL      string `json:"invoice_url,omitempty"`
	CorrelationID   string `json:"correlation_id"`
}

// Checkout handles one purchase attempt end to end.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		billingType, err := enums.ParseBillingType(payload.BillingType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing type"))
			return
		}

		input := checkoutsvc.StartInput{
			Customer: checkoutsvc.CustomerInput{
				Name:     validators.SanitizeString(payload.Customer.Name, 120),
				Email:    validators.SanitizeString(payload.Customer.Email, 254),
				CPF:      validators.SanitizeString(payload.Customer.CPF, 18),
				Whatsapp: validators.SanitizeString(payload.Customer.Whatsapp, 20),
			},
			ProductIDs:  payload.ProductIDs,
			CouponCode:  payload.CouponCode,
			BillingType: billingType,
			RemoteIP:    middleware.ClientIP(r),
			Tracking:    payload.Tracking,
			Forensic:    middleware.ForensicFrom(r),
		}
		if payload.Card != nil {
			input.Card = &checkoutsvc.CardInput{
				Card: asaas.CardData{
					HolderName:  payload.Card.HolderName,
					Number:      payload.Card.Number,
					ExpiryMonth: payload.Card.ExpiryMonth,
					ExpiryYear:  payload.Card.ExpiryYear,
					CCV:         payload.Card.CCV,
				},
				Holder: asaas.CardHolderInfo{
					Name:        payload.Card.HolderName,
					Email:       payload.Card.HolderEmail,
					CPFCnpj:     payload.Card.HolderCPF,
					PostalCode:  payload.Card.HolderPostalCode,
					AddressNum:  payload.Card.HolderAddressNum,
					MobilePhone: payload.Card.HolderPhone,
				},
				InstallmentCount: payload.Card.InstallmentCount,
			}
		}

		result, err := svc.Start(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:         result.OrderID.String(),
			PaymentID:       result.PaymentID,
			PaymentStatus:   result.PaymentStatus,
			BillingType:     result.BillingType.String(),
			FinalTotal:      result.FinalTotal.StringFixed(2),
			PixPayload:      result.PixPayload,
			PixEncodedImage: result.PixEncodedImage,
			InvoiceURL:      result.InvoiceURL,
			CorrelationID:   result.CorrelationID,
		})
	}
}
