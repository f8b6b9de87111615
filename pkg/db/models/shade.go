package models

import "time"

// Shade is a color/length variant owned by exactly one stock item. Rows are
// removed when the parent is deleted or when an update omits them from the
// shade list.
type Shade struct {
	ID      uint `gorm:"column:id;primaryKey" json:"id"`
	StockID uint `gorm:"column:stock_id;not null;index" json:"stockId"`

	ColorName  string  `gorm:"column:color_name;not null" json:"colorName"`
	Color      string  `gorm:"column:color;not null" json:"color"`
	Quantity   int     `gorm:"column:quantity;not null" json:"quantity"`
	Unit       string  `gorm:"column:unit;not null" json:"unit"`
	Length     float64 `gorm:"column:length;not null" json:"length"`
	LengthUnit string  `gorm:"column:length_unit;not null" json:"lengthUnit"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Shade) TableName() string {
	return "shade"
}
