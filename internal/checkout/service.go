package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amorize/checkout-backend/internal/access"
	"github.com/amorize/checkout-backend/internal/audit"
	"github.com/amorize/checkout-backend/internal/orders"
	"github.com/amorize/checkout-backend/internal/payments"
	"github.com/amorize/checkout-backend/internal/provisioning"
	"github.com/amorize/checkout-backend/pkg/asaas"
	"github.com/amorize/checkout-backend/pkg/db/models"
	"github.com/amorize/checkout-backend/pkg/enums"
	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
	"github.com/amorize/checkout-backend/pkg/logger"
)

// Gateway is the slice of the payment client the checkout flow needs.
type Gateway interface {
	CreatePixPayment(ctx context.Context, params asaas.PixParams) (*asaas.PixPayment, error)
	CreateCardPayment(ctx context.Context, params asaas.CardParams) (*asaas.Payment, error)
}

// EmailCache is an advisory lookaside marking buyer emails already
// provisioned. A miss and a cache error are equivalent; the flow never
// depends on it.
type EmailCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(scope, id string) string
}

const (
	emailCacheScope      = "checkout-email"
	defaultEmailCacheTTL = 5 * time.Minute
)

// Service orchestrates the checkout control flow: validate products and
// coupon, provision the buyer, create a pending order, create the gateway
// payment and record every step.
type Service interface {
	Start(ctx context.Context, input StartInput) (*StartResult, error)
	ConfirmPayment(ctx context.Context, input ConfirmInput) (*ConfirmResult, error)
}

type service struct {
	orders        orders.Service
	provisioning  provisioning.Service
	access        access.Service
	payments      payments.Service
	gateway       Gateway
	audit         *audit.Service
	logg          *logger.Logger
	emailCache    EmailCache
	emailCacheTTL time.Duration
}

// NewServiceParams carries the collaborators of the checkout flow.
// EmailCache is optional; a nil cache disables the lookaside.
type NewServiceParams struct {
	Orders        orders.Service
	Provisioning  provisioning.Service
	Access        access.Service
	Payments      payments.Service
	Gateway       Gateway
	Audit         *audit.Service
	Logger        *logger.Logger
	EmailCache    EmailCache
	EmailCacheTTL time.Duration
}

// NewService builds the checkout orchestrator with the required dependencies.
func NewService(params NewServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Provisioning == nil {
		return nil, fmt.Errorf("provisioning service required")
	}
	if params.Access == nil {
		return nil, fmt.Errorf("access service required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.EmailCacheTTL <= 0 {
		params.EmailCacheTTL = defaultEmailCacheTTL
	}
	return &service{
		orders:        params.Orders,
		provisioning:  params.Provisioning,
		access:        params.Access,
		payments:      params.Payments,
		gateway:       params.Gateway,
		audit:         params.Audit,
		logg:          params.Logger,
		emailCache:    params.EmailCache,
		emailCacheTTL: params.EmailCacheTTL,
	}, nil
}

func (s *service) Start(ctx context.Context, input StartInput) (*StartResult, error) {
	if !input.BillingType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "billing type must be PIX or CREDIT_CARD")
	}
	if input.BillingType == enums.BillingTypeCreditCard && input.Card == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card data required for credit card payments")
	}

	op := s.audit.ForOperation("checkout", input.CorrelationID, input.Forensic)
	ctx = s.logg.WithCorrelationID(ctx, op.CorrelationID())

	products, err := s.orders.ValidateProducts(ctx, input.ProductIDs)
	if err != nil {
		return nil, err
	}

	original := decimal.Zero
	ids := make([]string, 0, len(products))
	for _, p := range products {
		original = original.Add(p.Price)
		ids = append(ids, p.ID)
	}

	couponRes, err := s.orders.ValidateAndApplyCoupon(ctx, input.CouponCode, original)
	if err != nil {
		return nil, err
	}
	finalTotal := couponRes.FinalTotal

	op.CheckoutStarted(ctx, input.Customer.Email, ids, finalTotal)

	if _, known := s.cachedBuyer(ctx, input.Customer.Email); known {
		ctx = s.logg.WithField(ctx, "returning_buyer", true)
	}

	prov, err := s.provisioning.CreateOrUpdateUser(ctx, provisioning.NewUserInput{
		Name:     input.Customer.Name,
		Email:    input.Customer.Email,
		CPF:      input.Customer.CPF,
		Whatsapp: input.Customer.Whatsapp,
	})
	if err != nil {
		op.Error(ctx, "buyer provisioning failed", map[string]any{"error": err.Error()})
		return nil, err
	}
	op.SetUser(prov.UserID)
	s.rememberBuyer(ctx, input.Customer.Email, prov.UserID)

	var couponCode *string
	if couponRes.Coupon != nil {
		code := couponRes.Coupon.Code
		couponCode = &code
	}

	order, err := s.orders.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:     prov.UserID,
		ProductIDs: ids,
		TotalPrice: finalTotal,
		CouponCode: couponCode,
		Tracking:   input.Tracking,
	})
	if err != nil {
		op.Error(ctx, "order creation failed", map[string]any{"error": err.Error()})
		return nil, err
	}
	op.SetOrder(order.ID)
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	result, err := s.createGatewayPayment(ctx, input, prov.Profile, order, finalTotal)
	if err != nil {
		op.Error(ctx, "gateway payment failed", map[string]any{"error": err.Error()})
		return nil, err
	}

	paymentID := result.PaymentID
	if err := s.orders.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusPending, &paymentID); err != nil {
		return nil, err
	}

	op.PaymentCreated(ctx, order.ID, paymentID, input.BillingType)

	result.OrderID = order.ID
	result.UserID = prov.UserID
	result.BillingType = input.BillingType
	result.FinalTotal = finalTotal
	result.CorrelationID = op.CorrelationID()
	return result, nil
}

func (s *service) createGatewayPayment(ctx context.Context, input StartInput, profile *models.Profile, order *models.Order, total decimal.Decimal) (*StartResult, error) {
	customer := asaas.CustomerParams{
		Name:     profile.Name,
		Email:    profile.Email,
		CPF:      profile.CPF,
		Whatsapp: profile.Whatsapp,
	}

	switch input.BillingType {
	case enums.BillingTypePix:
		pix, err := s.gateway.CreatePixPayment(ctx, asaas.PixParams{
			OrderID:  order.ID.String(),
			Customer: customer,
			Amount:   total,
		})
		if err != nil {
			return nil, err
		}
		return &StartResult{
			PaymentID:       pix.ID,
			PaymentStatus:   pix.Status,
			PixPayload:      pix.Payload,
			PixEncodedImage: pix.EncodedImage,
		}, nil

	case enums.BillingTypeCreditCard:
		payment, err := s.gateway.CreateCardPayment(ctx, asaas.CardParams{
			OrderID:          order.ID.String(),
			Customer:         customer,
			Card:             input.Card.Card,
			Holder:           input.Card.Holder,
			Amount:           total,
			InstallmentCount: input.Card.InstallmentCount,
			ClientIP:         input.RemoteIP,
		})
		if err != nil {
			return nil, err
		}
		return &StartResult{
			PaymentID:     payment.ID,
			PaymentStatus: payment.Status,
			InvoiceURL:    payment.InvoiceURL,
		}, nil

	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported billing type")
	}
}

func (s *service) cachedBuyer(ctx context.Context, email string) (string, bool) {
	if s.emailCache == nil {
		return "", false
	}
	key := s.emailCache.CacheKey(emailCacheScope, normalizeEmail(email))
	id, err := s.emailCache.Get(ctx, key)
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (s *service) rememberBuyer(ctx context.Context, email string, userID uuid.UUID) {
	if s.emailCache == nil {
		return
	}
	key := s.emailCache.CacheKey(emailCacheScope, normalizeEmail(email))
	if err := s.emailCache.Set(ctx, key, userID.String(), s.emailCacheTTL); err != nil {
		s.logg.Warn(ctx, "email cache write failed")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ConfirmPayment re-checks the gateway status and, when the payment settled,
// marks the order paid and grants access. Safe to call repeatedly: the status
// check is a read and the grant is idempotent.
func (s *service) ConfirmPayment(ctx context.Context, input ConfirmInput) (*ConfirmResult, error) {
	order, err := s.orders.GetOrderByPaymentID(ctx, input.PaymentID)
	if err != nil {
		return nil, err
	}

	op := s.audit.ForOperation("payment-confirmation", input.CorrelationID, input.Forensic)
	op.SetOrder(order.ID)
	op.SetPayment(input.PaymentID)
	ctx = s.logg.WithCorrelationID(ctx, op.CorrelationID())
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	status, err := s.payments.CheckStatus(ctx, input.PaymentID)
	if err != nil {
		op.Error(ctx, "status re-check failed", map[string]any{"error": err.Error()})
		return nil, err
	}

	if !payments.IsConfirmedStatus(status) {
		return &ConfirmResult{OrderID: order.ID, GatewayStatus: status, Confirmed: false}, nil
	}

	paymentID := input.PaymentID
	if err := s.orders.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusPaid, &paymentID); err != nil {
		return nil, err
	}
	if err := op.PaymentConfirmed(ctx, order.ID, paymentID, status); err != nil {
		return nil, err
	}

	grant, err := s.access.GrantProductAccess(ctx, order.UserID, order.ProductIDs)
	if err != nil {
		op.Error(ctx, "access grant failed after confirmation", map[string]any{"error": err.Error()})
		return nil, err
	}
	if err := op.AccessGranted(ctx, order.UserID, order.ProductIDs, grant.Updated); err != nil {
		return nil, err
	}

	return &ConfirmResult{
		OrderID:       order.ID,
		GatewayStatus: status,
		Confirmed:     true,
		AccessUpdated: grant.Updated,
	}, nil
}
