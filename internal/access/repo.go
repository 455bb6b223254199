package access

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/amorize/checkout-backend/pkg/db/models"
)

// Repository reads and replaces a profile's access set.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ReplaceAccess(ctx context.Context, id uuid.UUID, access []string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an access repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) ReplaceAccess(ctx context.Context, id uuid.UUID, access []string) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"access":     pq.StringArray(access),
			"updated_at": time.Now().UTC(),
		}).Error
}
