package checkout

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amorize/checkout-backend/internal/audit"
	"github.com/amorize/checkout-backend/pkg/asaas"
	"github.com/amorize/checkout-backend/pkg/enums"
)

// CustomerInput are the buyer fields collected by the checkout form.
type CustomerInput struct {
	Name     string
	Email    string
	CPF      string
	Whatsapp string
}

// CardInput wraps the card fields plus the billing holder data the gateway
// requires. Never persisted.
type CardInput struct {
	Card             asaas.CardData
	Holder           asaas.CardHolderInfo
	InstallmentCount int
}

// StartInput is one checkout attempt.
type StartInput struct {
	Customer      CustomerInput
	ProductIDs    []string
	CouponCode    *string
	BillingType   enums.BillingType
	Card          *CardInput
	RemoteIP      string
	Tracking      json.RawMessage
	CorrelationID string
	Forensic      audit.Forensic
}

// StartResult reports the created order and gateway payment.
type StartResult struct {
	OrderID         uuid.UUID
	UserID          uuid.UUID
	PaymentID       string
	PaymentStatus   string
	BillingType     enums.BillingType
	FinalTotal      decimal.Decimal
	PixPayload      string
	PixEncodedImage string
	InvoiceURL      string
	CorrelationID   string
}

// ConfirmInput asks for a payment to be re-checked and settled.
type ConfirmInput struct {
	PaymentID     string
	CorrelationID string
	Forensic      audit.Forensic
}

// ConfirmResult reports the confirmation outcome.
type ConfirmResult struct {
	OrderID       uuid.UUID
	GatewayStatus string
	Confirmed     bool
	AccessUpdated bool
}
