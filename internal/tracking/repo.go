package tracking

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fabrichouse/inventory-backend/pkg/db/models"
	"github.com/fabrichouse/inventory-backend/pkg/enums"
)

// Repository manages persistence for stock activity entries. Entries are
// append-only: there are no update or delete operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.StockTracking) error
	ListByStock(ctx context.Context, stockID string) ([]models.StockTracking, error)
	ListByActor(ctx context.Context, actor string, limit int) ([]models.StockTracking, error)
	ListRecent(ctx context.Context, limit int) ([]models.StockTracking, error)
	ListByAction(ctx context.Context, action enums.StockAction, limit int) ([]models.StockTracking, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]models.StockTracking, error)
	ListPage(ctx context.Context, limit, offset int) ([]models.StockTracking, int64, error)
	Count(ctx context.Context) (int64, error)
	CountByAction(ctx context.Context, action enums.StockAction) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a tracking repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.StockTracking) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByStock(ctx context.Context, stockID string) ([]models.StockTracking, error) {
	var entries []models.StockTracking
	if err := r.db.WithContext(ctx).
		Where("stock_id = ?", stockID).
		Order("performed_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByActor(ctx context.Context, actor string, limit int) ([]models.StockTracking, error) {
	var entries []models.StockTracking
	q := r.db.WithContext(ctx).
		Where("performed_by = ?", actor).
		Order("performed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]models.StockTracking, error) {
	var entries []models.StockTracking
	if err := r.db.WithContext(ctx).
		Order("performed_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByAction(ctx context.Context, action enums.StockAction, limit int) ([]models.StockTracking, error) {
	var entries []models.StockTracking
	q := r.db.WithContext(ctx).
		Where("action = ?", action).
		Order("performed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.StockTracking, error) {
	var entries []models.StockTracking
	if err := r.db.WithContext(ctx).
		Where("performed_at BETWEEN ? AND ?", from, to).
		Order("performed_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListPage(ctx context.Context, limit, offset int) ([]models.StockTracking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.StockTracking{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.StockTracking
	q := r.db.WithContext(ctx).Order("performed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.StockTracking{}).Count(&total).Error
	return total, err
}

func (r *repository) CountByAction(ctx context.Context, action enums.StockAction) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.StockTracking{}).
		Where("action = ?", action).
		Count(&total).Error
	return total, err
}
