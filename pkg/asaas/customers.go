package asaas

import (
	"context"
	"net/url"
	"strings"

	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
)

// GetOrCreateCustomer resolves the gateway customer for the given email,
// creating one only when the lookup comes back empty. The lookup-before-create
// keeps repeated checkouts from piling up duplicate gateway customers; it is
// not race-proof for a brand-new email hit concurrently, which the gateway
// tolerates since it remains the authoritative record.
func (c *Client) GetOrCreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	params.Email = email

	c.log(ctx, "request", "find_customer", map[string]any{"email": email})

	var list customerListResponse
	query := url.Values{"email": []string{email}}
	if err := c.do(ctx, "GET", "/customers?"+query.Encode(), nil, &list); err != nil {
		c.log(ctx, "error", "find_customer", map[string]any{"error": err.Error()})
		return nil, err
	}

	if len(list.Data) > 0 {
		found := list.Data[0]
		c.log(ctx, "response", "find_customer", map[string]any{"customer_id": found.ID, "reused": true})
		return &found, nil
	}

	c.log(ctx, "request", "create_customer", map[string]any{"email": email})

	var created Customer
	if err := c.do(ctx, "POST", "/customers", params, &created); err != nil {
		c.log(ctx, "error", "create_customer", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "create_customer", map[string]any{"customer_id": created.ID})
	return &created, nil
}
