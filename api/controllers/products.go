package controllers

import (
	"net/http"

	"github.com/amorize/checkout-backend/api/responses"
	"github.com/amorize/checkout-backend/internal/catalog"
	"github.com/amorize/checkout-backend/pkg/db/models"
	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
	"github.com/amorize/checkout-backend/pkg/logger"
)

type productResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         string   `json:"price"`
	IsKit         bool     `json:"is_kit"`
	KitProductIDs []string `json:"kit_product_ids,omitempty"`
}

// PublicProducts lists the products currently open for sale.
func PublicProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		products, err := svc.ListActiveProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]productResponse, 0, len(products))
		for _, product := range products {
			out = append(out, newProductResponse(product))
		}
		responses.WriteSuccess(w, out)
	}
}

func newProductResponse(product models.Product) productResponse {
	return productResponse{
		ID:            product.ID,
		Name:          product.Name,
		Price:         product.Price.StringFixed(2),
		IsKit:         product.IsKit,
		KitProductIDs: []string(product.KitProductIDs),
	}
}
