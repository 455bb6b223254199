package asaas

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amorize/checkout-backend/pkg/enums"
	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
)

// CreatePixPayment resolves the gateway customer, submits a PIX payment with
// the order id as externalReference, then fetches the QR payload and encoded
// image for the same payment.
func (c *Client) CreatePixPayment(ctx context.Context, params PixParams) (*PixPayment, error) {
	if params.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !params.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	customer, err := c.GetOrCreateCustomer(ctx, params.Customer)
	if err != nil {
		return nil, err
	}

	c.log(ctx, "request", "create_pix_payment", map[string]any{
		"order_id": params.OrderID,
		"customer": customer.ID,
		"amount":   params.Amount.StringFixed(2),
	})

	req := createPaymentRequest{
		Customer:          customer.ID,
		BillingType:       enums.BillingTypePix.String(),
		Value:             params.Amount,
		DueDate:           dueDateOrDefault(params.DueDate),
		ExternalReference: params.OrderID,
		Description:       paymentDescription(params.OrderID),
	}

	var payment Payment
	if err := c.do(ctx, "POST", "/payments", req, &payment); err != nil {
		c.log(ctx, "error", "create_pix_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	var qr pixQrCodeResponse
	if err := c.do(ctx, "GET", "/payments/"+payment.ID+"/pixQrCode", nil, &qr); err != nil {
		c.log(ctx, "error", "fetch_pix_qrcode", map[string]any{"payment_id": payment.ID, "error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "create_pix_payment", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})

	return &PixPayment{
		ID:           payment.ID,
		Status:       payment.Status,
		Payload:      qr.Payload,
		EncodedImage: qr.EncodedImage,
	}, nil
}

// CreateCardPayment resolves the gateway customer and submits a credit card
// charge. When InstallmentCount > 1 the per-installment value is the amount
// divided by the count, rounded to two decimals.
func (c *Client) CreateCardPayment(ctx context.Context, params CardParams) (*Payment, error) {
	if params.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !params.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if params.Card.Number == "" || params.Card.CCV == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card details are required")
	}

	customer, err := c.GetOrCreateCustomer(ctx, params.Customer)
	if err != nil {
		return nil, err
	}

	c.log(ctx, "request", "create_card_payment", map[string]any{
		"order_id":     params.OrderID,
		"customer":     customer.ID,
		"amount":       params.Amount.StringFixed(2),
		"installments": params.InstallmentCount,
	})

	card := params.Card
	holder := params.Holder
	req := createPaymentRequest{
		Customer:          customer.ID,
		BillingType:       enums.BillingTypeCreditCard.String(),
		Value:             params.Amount,
		DueDate:           dueDateOrDefault(params.DueDate),
		ExternalReference: params.OrderID,
		Description:       paymentDescription(params.OrderID),
		RemoteIP:          params.ClientIP,
		CreditCard:        &card,
		CreditCardHolder:  &holder,
	}

	if params.InstallmentCount > 1 {
		installmentValue := params.Amount.
			Div(decimal.NewFromInt(int64(params.InstallmentCount))).
			Round(2)
		req.InstallmentCount = params.InstallmentCount
		req.InstallmentValue = &installmentValue
	}

	var payment Payment
	if err := c.do(ctx, "POST", "/payments", req, &payment); err != nil {
		c.log(ctx, "error", "create_card_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "create_card_payment", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
	return &payment, nil
}

// GetPaymentStatus returns the gateway's status string verbatim (PENDING,
// CONFIRMED, RECEIVED, ...). Callers decide which states are terminal.
func (c *Client) GetPaymentStatus(ctx context.Context, paymentID string) (string, error) {
	if paymentID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	var payment Payment
	if err := c.do(ctx, "GET", "/payments/"+paymentID, nil, &payment); err != nil {
		c.log(ctx, "error", "get_payment_status", map[string]any{"payment_id": paymentID, "error": err.Error()})
		return "", err
	}

	c.log(ctx, "response", "get_payment_status", map[string]any{
		"payment_id": paymentID,
		"status":     payment.Status,
	})
	return payment.Status, nil
}

// SimulateInstallments quotes the installment plans the gateway would accept
// for the amount, up to maxInstallments.
func (c *Client) SimulateInstallments(ctx context.Context, amount decimal.Decimal, maxInstallments int) ([]InstallmentOption, error) {
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if maxInstallments <= 0 {
		maxInstallments = 12
	}

	req := simulateRequest{
		Value:            amount,
		InstallmentCount: maxInstallments,
		BillingTypes:     []string{enums.BillingTypeCreditCard.String()},
	}

	var resp simulateResponse
	if err := c.do(ctx, "POST", "/payments/simulate", req, &resp); err != nil {
		c.log(ctx, "error", "simulate_installments", map[string]any{"error": err.Error()})
		return nil, err
	}

	options := make([]InstallmentOption, 0, len(resp.CreditCard.Installments))
	for _, item := range resp.CreditCard.Installments {
		options = append(options, InstallmentOption{
			Count: item.InstallmentCount,
			Value: item.InstallmentValue,
			Total: item.TotalValue,
		})
	}
	return options, nil
}

func dueDateOrDefault(raw string) string {
	if raw != "" {
		return raw
	}
	return time.Now().AddDate(0, 0, 1).Format("2006-01-02")
}

func paymentDescription(orderID string) string {
	return fmt.Sprintf("Pedido %s", orderID)
}
