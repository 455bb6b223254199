package audit

import (
	"context"

	"gorm.io/gorm"

	"github.com/amorize/checkout-backend/pkg/db/models"
)

// Repository appends audit entries. Entries are never updated or deleted.
type Repository interface {
	Insert(ctx context.Context, entry *models.AuditLogEntry) error
	ListByCorrelationID(ctx context.Context, correlationID string) ([]models.AuditLogEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByCorrelationID(ctx context.Context, correlationID string) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("correlation_id = ?", correlationID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
