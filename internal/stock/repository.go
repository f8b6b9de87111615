package stock

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fabrichouse/inventory-backend/pkg/db/models"
)

// Repository manages persistence for stock items and their shades.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, item *models.Stock) error
	Save(ctx context.Context, item *models.Stock) error
	Delete(ctx context.Context, item *models.Stock) error
	FindByID(ctx context.Context, id uint) (*models.Stock, error)
	List(ctx context.Context) ([]models.Stock, error)
	Search(ctx context.Context, name, category string) ([]models.Stock, error)
	ListLowStock(ctx context.Context, threshold int) ([]models.Stock, error)
	ListWithImages(ctx context.Context) ([]models.Stock, error)
	ListFingerprinted(ctx context.Context) ([]models.Stock, error)
	ProductNameTaken(ctx context.Context, product string, excludeID uint) (bool, error)
	LastStockCode(ctx context.Context, prefix string) (string, error)

	SaveShade(ctx context.Context, shade *models.Shade) error
	DeleteShade(ctx context.Context, shade *models.Shade) error
	ListShades(ctx context.Context, stockID uint) ([]models.Shade, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.Stock) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// Save persists the item's own columns. Shade rows are managed explicitly,
// never through association upserts.
func (r *repository) Save(ctx context.Context, item *models.Stock) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(item).Error
}

func (r *repository) Delete(ctx context.Context, item *models.Stock) error {
	return r.db.WithContext(ctx).Select("Shades").Delete(item).Error
}

func (r *repository) FindByID(ctx context.Context, id uint) (*models.Stock, error) {
	var item models.Stock
	if err := r.db.WithContext(ctx).
		Preload("Shades").
		First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) List(ctx context.Context) ([]models.Stock, error) {
	var items []models.Stock
	if err := r.db.WithContext(ctx).
		Preload("Shades").
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Search(ctx context.Context, name, category string) ([]models.Stock, error) {
	q := r.db.WithContext(ctx).Preload("Shades")
	if name != "" {
		q = q.Where("product LIKE ?", "%"+name+"%")
	}
	if category != "" {
		q = q.Where("category LIKE ?", "%"+category+"%")
	}

	var items []models.Stock
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListLowStock(ctx context.Context, threshold int) ([]models.Stock, error) {
	var items []models.Stock
	if err := r.db.WithContext(ctx).
		Preload("Shades").
		Where("quantity <= ?", threshold).
		Order("quantity ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListWithImages(ctx context.Context) ([]models.Stock, error) {
	var items []models.Stock
	if err := r.db.WithContext(ctx).
		Preload("Shades").
		Where("image_path IS NOT NULL AND image_path != ''").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListFingerprinted(ctx context.Context) ([]models.Stock, error) {
	var items []models.Stock
	if err := r.db.WithContext(ctx).
		Preload("Shades").
		Where("image_hash IS NOT NULL AND image_hash != ''").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ProductNameTaken(ctx context.Context, product string, excludeID uint) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("LOWER(product) = LOWER(?)", product)
	if excludeID != 0 {
		q = q.Where("id != ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) LastStockCode(ctx context.Context, prefix string) (string, error) {
	var item models.Stock
	err := r.db.WithContext(ctx).
		Where("stock_id LIKE ?", prefix+"%").
		Order("id DESC").
		First(&item).Error
	if err != nil {
		return "", err
	}
	return item.StockID, nil
}

func (r *repository) SaveShade(ctx context.Context, shade *models.Shade) error {
	return r.db.WithContext(ctx).Save(shade).Error
}

func (r *repository) DeleteShade(ctx context.Context, shade *models.Shade) error {
	return r.db.WithContext(ctx).Delete(shade).Error
}

func (r *repository) ListShades(ctx context.Context, stockID uint) ([]models.Shade, error) {
	var shades []models.Shade
	if err := r.db.WithContext(ctx).
		Where("stock_id = ?", stockID).
		Order("id ASC").
		Find(&shades).Error; err != nil {
		return nil, err
	}
	return shades, nil
}
