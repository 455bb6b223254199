package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amorize/checkout-backend/pkg/db/models"
	"github.com/amorize/checkout-backend/pkg/enums"
	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
)

var oneHundred = decimal.NewFromInt(100)

// Service owns order lifecycle and checkout-side validation.
type Service interface {
	ValidateProducts(ctx context.Context, ids []string) ([]models.Product, error)
	ValidateAndApplyCoupon(ctx context.Context, code *string, originalTotal decimal.Decimal) (*CouponResult, error)
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, gatewayPaymentID *string) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)
}

type service struct {
	repo Repository
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

// ValidateProducts deduplicates ids, loads the matching products and fails
// when any id is missing or inactive, enumerating the offending ids.
func (s *service) ValidateProducts(ctx context.Context, ids []string) ([]models.Product, error) {
	deduped := dedupeIDs(ids)
	if len(deduped) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product id required")
	}

	products, err := s.repo.FindProductsByIDs(ctx, deduped)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	found := make(map[string]models.Product, len(products))
	for _, p := range products {
		found[p.ID] = p
	}

	var missing []string
	var inactive []string
	ordered := make([]models.Product, 0, len(deduped))
	for _, id := range deduped {
		p, ok := found[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if !p.Status.IsActive() {
			inactive = append(inactive, id)
			continue
		}
		ordered = append(ordered, p)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "products not found").
			WithDetails(map[string]any{"missing_ids": missing})
	}
	if len(inactive) > 0 {
		sort.Strings(inactive)
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, "products unavailable").
			WithDetails(map[string]any{"unavailable_ids": inactive})
	}

	return ordered, nil
}

// ValidateAndApplyCoupon applies at most one coupon. A nil or empty code is a
// passthrough. Percentage discounts multiply, fixed discounts subtract with a
// floor of zero.
func (s *service) ValidateAndApplyCoupon(ctx context.Context, code *string, originalTotal decimal.Decimal) (*CouponResult, error) {
	if code == nil || strings.TrimSpace(*code) == "" {
		return &CouponResult{FinalTotal: originalTotal}, nil
	}

	coupon, err := s.repo.FindActiveCouponByCode(ctx, *code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid or inactive coupon").
				WithDetails(map[string]any{"code": strings.ToUpper(strings.TrimSpace(*code))})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}

	final := applyDiscount(originalTotal, coupon)
	return &CouponResult{FinalTotal: final, Coupon: coupon}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(input.ProductIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product ids required")
	}
	if input.TotalPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total price cannot be negative")
	}

	order := &models.Order{
		ID:         uuid.New(),
		UserID:     input.UserID,
		ProductIDs: dedupeIDs(input.ProductIDs),
		TotalPrice: input.TotalPrice.Round(2),
		Status:     enums.OrderStatusPending,
		CouponCode: input.CouponCode,
		Tracking:   input.Tracking,
	}

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}
	return created, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, gatewayPaymentID *string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if err := s.repo.UpdateOrderStatus(ctx, orderID, status, gatewayPaymentID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	return nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func (s *service) GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	order, err := s.repo.FindOrderByPaymentID(ctx, paymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order by payment id")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	list, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return list, nil
}

func applyDiscount(total decimal.Decimal, coupon *models.Coupon) decimal.Decimal {
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		factor := decimal.NewFromInt(1).Sub(coupon.Value.Div(oneHundred))
		return total.Mul(factor).Round(2)
	case enums.DiscountTypeFixed:
		final := total.Sub(coupon.Value)
		if final.IsNegative() {
			return decimal.Zero
		}
		return final.Round(2)
	default:
		return total
	}
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
