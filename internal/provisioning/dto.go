package provisioning

import (
	"github.com/google/uuid"

	"github.com/amorize/checkout-backend/pkg/db/models"
)

// NewUserInput carries the identity fields collected at checkout.
type NewUserInput struct {
	Name     string
	Email    string
	CPF      string
	Whatsapp string
}

// ProvisionResult reports the resolved identity and whether it was created by
// this call.
type ProvisionResult struct {
	UserID  uuid.UUID
	IsNew   bool
	Profile *models.Profile
}
