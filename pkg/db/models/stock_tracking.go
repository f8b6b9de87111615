package models

import (
	"encoding/json"
	"time"

	"github.com/fabrichouse/inventory-backend/pkg/enums"
)

// StockTracking records an immutable audit entry for a stock mutation with
// sanitized before/after snapshots. Rows are never updated or deleted, and
// they reference the business stock code rather than the row id so history
// survives the deletion of the item itself.
type StockTracking struct {
	ID      uint   `gorm:"column:id;primaryKey" json:"id"`
	StockID string `gorm:"column:stock_id;not null;index" json:"stockId"`

	Action      enums.StockAction `gorm:"column:action;not null" json:"action"`
	Description string            `gorm:"column:description" json:"description"`
	OldData     json.RawMessage   `gorm:"column:old_data;type:json" json:"oldData,omitempty"`
	NewData     json.RawMessage   `gorm:"column:new_data;type:json" json:"newData,omitempty"`

	PerformedBy string    `gorm:"column:performed_by;not null" json:"performedBy"`
	PerformedAt time.Time `gorm:"column:performed_at;autoCreateTime" json:"performedAt"`

	IPAddress *string `gorm:"column:ip_address" json:"ipAddress,omitempty"`
	UserAgent *string `gorm:"column:user_agent" json:"userAgent,omitempty"`
}

func (StockTracking) TableName() string {
	return "stock_tracking"
}
