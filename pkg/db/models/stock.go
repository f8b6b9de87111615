package models

import "time"

// Stock is a sellable fabric product together with its shade variants.
// ImagePath/ImageHash form a single mutable slot: re-uploading an image
// overwrites both (last writer wins).
type Stock struct {
	ID       uint    `gorm:"column:id;primaryKey" json:"id"`
	StockID  string  `gorm:"column:stock_id;not null;unique" json:"stockId"`
	Product  string  `gorm:"column:product;not null" json:"product"`
	Category string  `gorm:"column:category;not null" json:"category"`
	Quantity int     `gorm:"column:quantity;not null" json:"quantity"`
	Cost     float64 `gorm:"column:cost;not null" json:"cost"`
	Price    float64 `gorm:"column:price;not null" json:"price"`

	ImagePath *string `gorm:"column:image_path" json:"imagePath,omitempty"`
	ImageHash *string `gorm:"column:image_hash" json:"imageHash,omitempty"`

	Shades []Shade `gorm:"foreignKey:StockID;constraint:OnDelete:CASCADE" json:"shades"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Stock) TableName() string {
	return "stock"
}

// HasFingerprint reports whether an image hash is stored for this item.
func (s *Stock) HasFingerprint() bool {
	return s.ImageHash != nil && *s.ImageHash != ""
}

// HasImage reports whether a blob reference is stored for this item.
func (s *Stock) HasImage() bool {
	return s.ImagePath != nil && *s.ImagePath != ""
}
