package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amorize/checkout-backend/pkg/db"
	"github.com/amorize/checkout-backend/pkg/db/models"
	"github.com/amorize/checkout-backend/pkg/enums"
	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
	"github.com/amorize/checkout-backend/pkg/logger"
)

var slugRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

var maxPercentage = decimal.NewFromInt(100)

// Service manages the product and coupon catalog for the admin panel.
type Service interface {
	UpsertProduct(ctx context.Context, input UpsertProductInput) (*models.Product, error)
	CreateCoupon(ctx context.Context, input CreateCouponInput) (*models.Coupon, error)
	ListActiveProducts(ctx context.Context) ([]models.Product, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the catalog service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) UpsertProduct(ctx context.Context, input UpsertProductInput) (*models.Product, error) {
	id := strings.TrimSpace(strings.ToLower(input.ID))
	if !slugRe.MatchString(id) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id must be a lowercase slug").
			WithDetails(map[string]any{"field": "id"})
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price cannot be negative")
	}
	status := enums.ProductStatus(strings.TrimSpace(strings.ToLower(input.Status)))
	switch status {
	case enums.ProductStatusActive, enums.ProductStatusInactive, enums.ProductStatusDraft:
	case "":
		status = enums.ProductStatusDraft
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product status").
			WithDetails(map[string]any{"field": "status", "value": input.Status})
	}

	kitIDs, err := s.validateKit(ctx, id, input.IsKit, input.KitProductIDs)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:            id,
		Name:          name,
		Price:         input.Price.Round(2),
		Status:        status,
		IsKit:         input.IsKit,
		KitProductIDs: pq.StringArray(kitIDs),
	}
	if err := s.repo.UpsertProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save product")
	}

	logCtx := s.logg.WithField(ctx, "product_id", product.ID)
	s.logg.Info(logCtx, "catalog product saved")
	return product, nil
}

// validateKit checks that every kit member exists and is not itself a kit.
// One level of nesting only.
func (s *service) validateKit(ctx context.Context, id string, isKit bool, memberIDs []string) ([]string, error) {
	if !isKit {
		if len(memberIDs) > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "kit_product_ids only apply to kits")
		}
		return nil, nil
	}
	if len(memberIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a kit needs at least one member product")
	}

	seen := map[string]bool{}
	var missing []string
	var members []string
	for _, raw := range memberIDs {
		member := strings.TrimSpace(strings.ToLower(raw))
		if member == "" || seen[member] {
			continue
		}
		seen[member] = true
		if member == id {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "a kit cannot contain itself")
		}
		found, err := s.repo.FindProductByID(ctx, member)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				missing = append(missing, member)
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up kit member")
		}
		if found.IsKit {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "kits cannot nest other kits").
				WithDetails(map[string]any{"member_id": member})
		}
		members = append(members, member)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "kit references unknown products").
			WithDetails(map[string]any{"missing_ids": missing})
	}
	return members, nil
}

func (s *service) CreateCoupon(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	discountType, err := enums.ParseDiscountType(strings.TrimSpace(strings.ToLower(input.DiscountType)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type")
	}
	if !input.Value.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
	}
	if discountType == enums.DiscountTypePercentage && input.Value.GreaterThan(maxPercentage) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}

	coupon := &models.Coupon{
		Code:         code,
		DiscountType: discountType,
		Value:        input.Value.Round(2),
		Active:       input.Active,
	}
	if err := s.repo.CreateCoupon(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "coupon code already exists").
				WithDetails(map[string]any{"code": code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save coupon")
	}

	logCtx := s.logg.WithField(ctx, "coupon_code", coupon.Code)
	s.logg.Info(logCtx, "coupon created")
	return coupon, nil
}

func (s *service) ListActiveProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListProductsByStatus(ctx, enums.ProductStatusActive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return products, nil
}
