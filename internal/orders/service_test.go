package orders

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amorize/checkout-backend/pkg/db/models"
	"github.com/amorize/checkout-backend/pkg/enums"
	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
)

type stubRepo struct {
	products map[string]models.Product
	coupons  map[string]models.Coupon
	orders   map[uuid.UUID]*models.Order

	statusUpdates int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		products: map[string]models.Product{},
		coupons:  map[string]models.Coupon{},
		orders:   map[uuid.UUID]*models.Order{},
	}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubRepo) FindActiveCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	// mirrors the real repository's case-insensitive lookup
	code = strings.ToUpper(strings.TrimSpace(code))
	if c, ok := s.coupons[code]; ok && c.Active {
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	copied := *order
	s.orders[order.ID] = &copied
	return order, nil
}

func (s *stubRepo) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if o, ok := s.orders[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) FindOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	for _, o := range s.orders {
		if o.AsaasPaymentID != nil && *o.AsaasPaymentID == paymentID {
			copied := *o
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, paymentID *string) error {
	s.statusUpdates++
	if o, ok := s.orders[id]; ok {
		o.Status = status
		if paymentID != nil {
			o.AsaasPaymentID = paymentID
		}
	}
	return nil
}

func (s *stubRepo) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	var out []models.Order
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, nil
}

func activeProduct(id string, price int64) models.Product {
	return models.Product{
		ID:     id,
		Name:   id,
		Price:  decimal.NewFromInt(price),
		Status: enums.ProductStatusActive,
	}
}

func TestValidateProductsDedupsAndReturnsActive(t *testing.T) {
	repo := newStubRepo()
	repo.products["ebook"] = activeProduct("ebook", 100)
	repo.products["bonus"] = activeProduct("bonus", 50)
	svc, _ := NewService(repo)

	products, err := svc.ValidateProducts(context.Background(), []string{"ebook", "bonus", "ebook"})
	if err != nil {
		t.Fatalf("ValidateProducts: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 deduped products, got %d", len(products))
	}
}

func TestValidateProductsEnumeratesMissing(t *testing.T) {
	repo := newStubRepo()
	repo.products["ebook"] = activeProduct("ebook", 100)
	svc, _ := NewService(repo)

	_, err := svc.ValidateProducts(context.Background(), []string{"ebook", "ghost", "phantom"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map")
	}
	missing, _ := details["missing_ids"].([]string)
	if len(missing) != 2 || missing[0] != "ghost" || missing[1] != "phantom" {
		t.Fatalf("missing ids not enumerated: %v", details["missing_ids"])
	}
}

func TestValidateProductsEnumeratesInactive(t *testing.T) {
	repo := newStubRepo()
	repo.products["ebook"] = activeProduct("ebook", 100)
	inactive := activeProduct("old-course", 200)
	inactive.Status = enums.ProductStatusInactive
	repo.products["old-course"] = inactive
	svc, _ := NewService(repo)

	_, err := svc.ValidateProducts(context.Background(), []string{"ebook", "old-course"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnavailable {
		t.Fatalf("expected PRODUCT_UNAVAILABLE, got %v", err)
	}
	details := typed.Details().(map[string]any)
	unavailable, _ := details["unavailable_ids"].([]string)
	if len(unavailable) != 1 || unavailable[0] != "old-course" {
		t.Fatalf("inactive ids not enumerated: %v", details["unavailable_ids"])
	}
}

func TestValidateAndApplyCouponMath(t *testing.T) {
	repo := newStubRepo()
	repo.coupons["DEZ"] = models.Coupon{Code: "DEZ", DiscountType: enums.DiscountTypePercentage, Value: decimal.NewFromInt(10), Active: true}
	repo.coupons["CINQUENTA"] = models.Coupon{Code: "CINQUENTA", DiscountType: enums.DiscountTypeFixed, Value: decimal.NewFromInt(50), Active: true}
	repo.coupons["QUINHENTOS"] = models.Coupon{Code: "QUINHENTOS", DiscountType: enums.DiscountTypeFixed, Value: decimal.NewFromInt(500), Active: true}
	svc, _ := NewService(repo)
	total := decimal.NewFromInt(200)

	cases := []struct {
		code string
		want string
	}{
		{"DEZ", "180"},
		{"dez", "180"},
		{"CINQUENTA", "150"},
		{"QUINHENTOS", "0"},
	}
	for _, tc := range cases {
		code := tc.code
		res, err := svc.ValidateAndApplyCoupon(context.Background(), &code, total)
		if err != nil {
			t.Fatalf("coupon %s: %v", tc.code, err)
		}
		if !res.FinalTotal.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("coupon %s: final total %s, want %s", tc.code, res.FinalTotal, tc.want)
		}
	}
}

func TestValidateAndApplyCouponPassthrough(t *testing.T) {
	svc, _ := NewService(newStubRepo())
	total := decimal.NewFromInt(200)

	res, err := svc.ValidateAndApplyCoupon(context.Background(), nil, total)
	if err != nil {
		t.Fatalf("nil code: %v", err)
	}
	if !res.FinalTotal.Equal(total) || res.Coupon != nil {
		t.Fatalf("nil code should pass through")
	}

	empty := "  "
	res, err = svc.ValidateAndApplyCoupon(context.Background(), &empty, total)
	if err != nil {
		t.Fatalf("blank code: %v", err)
	}
	if !res.FinalTotal.Equal(total) {
		t.Fatalf("blank code should pass through")
	}
}

func TestValidateAndApplyCouponRejectsUnknown(t *testing.T) {
	svc, _ := NewService(newStubRepo())
	code := "GHOST"

	_, err := svc.ValidateAndApplyCoupon(context.Background(), &code, decimal.NewFromInt(200))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestCreateOrderStartsPending(t *testing.T) {
	repo := newStubRepo()
	svc, _ := NewService(repo)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:     uuid.New(),
		ProductIDs: []string{"ebook", "ebook", "bonus"},
		TotalPrice: decimal.RequireFromString("149.90"),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Status != enums.OrderStatusPending {
		t.Errorf("new order status = %s, want pending", order.Status)
	}
	if len(order.ProductIDs) != 2 {
		t.Errorf("product ids not deduped: %v", order.ProductIDs)
	}
}

func TestUpdateOrderStatusAttachesPaymentID(t *testing.T) {
	repo := newStubRepo()
	svc, _ := NewService(repo)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:     uuid.New(),
		ProductIDs: []string{"ebook"},
		TotalPrice: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	paymentID := "pay_123"
	if err := svc.UpdateOrderStatus(context.Background(), order.ID, enums.OrderStatusPaid, &paymentID); err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}

	reloaded, err := svc.GetOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if reloaded.Status != enums.OrderStatusPaid {
		t.Errorf("status = %s, want paid", reloaded.Status)
	}
	if reloaded.AsaasPaymentID == nil || *reloaded.AsaasPaymentID != paymentID {
		t.Errorf("payment id not attached")
	}
}

func TestUpdateOrderStatusRejectsInvalidStatus(t *testing.T) {
	svc, _ := NewService(newStubRepo())
	err := svc.UpdateOrderStatus(context.Background(), uuid.New(), enums.OrderStatus("shipped"), nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}
