package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amorize/checkout-backend/api/responses"
	"github.com/amorize/checkout-backend/api/validators"
	"github.com/amorize/checkout-backend/internal/catalog"
	"github.com/amorize/checkout-backend/internal/orders"
	"github.com/amorize/checkout-backend/pkg/db/models"
	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
	"github.com/amorize/checkout-backend/pkg/logger"
)

type adminProductRequest struct {
	ID            string   `json:"id" validate:"required,min=2"`
	Name          string   `json:"name" validate:"required,min=2"`
	Price         string   `json:"price" validate:"required"`
	Status        string   `json:"status" validate:"omitempty,oneof=ativo inativo rascunho"`
	IsKit         bool     `json:"is_kit"`
	KitProductIDs []string `json:"kit_product_ids,omitempty"`
}

// AdminUpsertProduct creates or replaces a catalog product.
func AdminUpsertProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload adminProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := decimal.NewFromString(strings.TrimSpace(payload.Price))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
			return
		}

		product, err := svc.UpsertProduct(r.Context(), catalog.UpsertProductInput{
			ID:            payload.ID,
			Name:          payload.Name,
			Price:         price,
			Status:        payload.Status,
			IsKit:         payload.IsKit,
			KitProductIDs: payload.KitProductIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newProductResponse(*product))
	}
}

type adminCouponRequest struct {
	Code         string `json:"code" validate:"required,min=2"`
	DiscountType string `json:"discount_type" validate:"required,oneof=percentage fixed"`
	Value        string `json:"value" validate:"required"`
	Active       bool   `json:"active"`
}

type adminCouponResponse struct {
	Code         string `json:"code"`
	DiscountType string `json:"discount_type"`
	Value        string `json:"value"`
	Active       bool   `json:"active"`
}

// AdminCreateCoupon registers a discount coupon. Duplicate codes are a 409.
func AdminCreateCoupon(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload adminCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		value, err := decimal.NewFromString(strings.TrimSpace(payload.Value))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid value"))
			return
		}

		coupon, err := svc.CreateCoupon(r.Context(), catalog.CreateCouponInput{
			Code:         payload.Code,
			DiscountType: payload.DiscountType,
			Value:        value,
			Active:       payload.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, adminCouponResponse{
			Code:         coupon.Code,
			DiscountType: coupon.DiscountType.String(),
			Value:        coupon.Value.StringFixed(2),
			Active:       coupon.Active,
		})
	}
}

type adminOrderResponse struct {
	ID             string   `json:"id"`
	UserID         string   `json:"user_id"`
	ProductIDs     []string `json:"product_ids"`
	TotalPrice     string   `json:"total_price"`
	Status         string   `json:"status"`
	CouponCode     *string  `json:"coupon_code,omitempty"`
	AsaasPaymentID *string  `json:"asaas_payment_id,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

// AdminListOrders lists orders, optionally filtered by buyer email and status.
func AdminListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := orders.OrderFilter{
			CustomerEmail: validators.QueryString(r, "email"),
			Status:        validators.QueryString(r, "status"),
			Limit:         limit,
			Offset:        offset,
		}

		list, err := svc.ListOrders(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]adminOrderResponse, 0, len(list))
		for _, order := range list {
			out = append(out, newAdminOrderResponse(order))
		}
		responses.WriteSuccess(w, out)
	}
}

func newAdminOrderResponse(order models.Order) adminOrderResponse {
	return adminOrderResponse{
		ID:             order.ID.String(),
		UserID:         order.UserID.String(),
		ProductIDs:     []string(order.ProductIDs),
		TotalPrice:     order.TotalPrice.StringFixed(2),
		Status:         order.Status.String(),
		CouponCode:     order.CouponCode,
		AsaasPaymentID: order.AsaasPaymentID,
		CreatedAt:      order.CreatedAt.UTC().Format(time.RFC3339),
	}
}
