package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/amorize/checkout-backend/internal/audit"
	"github.com/amorize/checkout-backend/pkg/db/models"
	"github.com/amorize/checkout-backend/pkg/enums"
	"github.com/amorize/checkout-backend/pkg/logger"
)

// digestStore counts orders for the daily summary.
type digestStore interface {
	CountOrdersByStatus(ctx context.Context, status enums.OrderStatus, from, to time.Time) (int64, error)
}

// DigestJob records a daily summary of yesterday's orders per status.
type DigestJob struct {
	store digestStore
	audit *audit.Service
	logg  *logger.Logger
	now   func() time.Time
}

// NewDigestJob builds the daily order digest job.
func NewDigestJob(db *gorm.DB, auditSvc *audit.Service, logg *logger.Logger) (*DigestJob, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &DigestJob{
		store: &gormDigestStore{db: db},
		audit: auditSvc,
		logg:  logg,
		now:   time.Now,
	}, nil
}

// Name implements Job.
func (j *DigestJob) Name() string { return "order-digest" }

// Run counts yesterday's orders per status. Individual count failures are
// aggregated so one broken status does not hide the others.
func (j *DigestJob) Run(ctx context.Context) error {
	today := j.now().UTC().Truncate(24 * time.Hour)
	from := today.Add(-24 * time.Hour)

	counts := map[string]int64{}
	var errs error
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusPaid,
		enums.OrderStatusCancelled,
	} {
		count, err := j.store.CountOrdersByStatus(ctx, status, from, today)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("count %s orders: %w", status, err))
			continue
		}
		counts[status.String()] = count
	}

	meta := map[string]any{
		"date": from.Format("2006-01-02"),
	}
	for status, count := range counts {
		meta["orders_"+status] = count
	}

	op := j.audit.ForOperation("daily-digest", "", audit.Forensic{})
	op.Info(ctx, "daily order digest", meta)

	ctx = j.logg.WithFields(ctx, meta)
	j.logg.Info(ctx, "daily order digest computed")

	return errs
}

type gormDigestStore struct {
	db *gorm.DB
}

func (s *gormDigestStore) CountOrdersByStatus(ctx context.Context, status enums.OrderStatus, from, to time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND created_at >= ? AND created_at < ?", status, from, to).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
