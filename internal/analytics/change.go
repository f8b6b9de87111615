package analytics

import (
	"encoding/json"
	"regexp"
	"strconv"
	"time"

	"github.com/fabrichouse/inventory-backend/pkg/db/models"
	"github.com/fabrichouse/inventory-backend/pkg/enums"
)

// ChangeKind tells which level of the aggregate a ledger entry moved.
type ChangeKind string

const (
	ChangeNone       ChangeKind = "none"
	ChangeStockLevel ChangeKind = "stock"
	ChangeShadeLevel ChangeKind = "shade"
)

// Direction of a quantity movement.
const (
	DirectionIncrease = "increase"
	DirectionDecrease = "decrease"
	DirectionNone     = "none"
)

// QuantityChange is the classified quantity movement of one ledger entry.
// Each entry yields exactly one change, so an entry is never counted at both
// the stock and the shade level.
type QuantityChange struct {
	Kind        ChangeKind        `json:"kind"`
	Direction   string            `json:"direction"`
	Amount      int               `json:"amount"`
	OldQuantity *int              `json:"oldQuantity"`
	NewQuantity *int              `json:"newQuantity"`
	ShadeID     uint              `json:"shadeId,omitempty"`
	ShadeName   string            `json:"shadeName,omitempty"`
	PerformedAt time.Time         `json:"performedAt"`
	PerformedBy string            `json:"performedBy"`
	Action      enums.StockAction `json:"action"`
	Description string            `json:"description"`
}

// Meaningful reports whether the change moves any quantity at all.
func (c QuantityChange) Meaningful() bool {
	return c.Kind != ChangeNone && c.Amount > 0
}

// snapshot is the subset of a ledger snapshot the classifier reads. Stock
// snapshots never carry a colorName, shade snapshots always do.
type snapshot struct {
	ID        *float64 `json:"id"`
	Quantity  *float64 `json:"quantity"`
	ColorName string   `json:"colorName"`
	Color     string   `json:"color"`
	Length    *float64 `json:"length"`
	Unit      string   `json:"unit"`
	LengthUnit string  `json:"lengthUnit"`
}

// Matches both the adjustment format "From: 100 → To: 70" and the bare
// "100 → 70" form older entries carry.
var arrowChangeRe = regexp.MustCompile(`(?:From:\s*)?(\d+)\s*→\s*(?:To:\s*)?(\d+)`)

// ClassifyChange derives the quantity movement of a ledger entry. Snapshots
// win over the description; the description arrow pattern is the fallback for
// entries written before snapshots were recorded.
func ClassifyChange(entry models.StockTracking) QuantityChange {
	change := QuantityChange{
		Kind:        ChangeNone,
		Direction:   DirectionNone,
		PerformedAt: entry.PerformedAt,
		PerformedBy: entry.PerformedBy,
		Action:      entry.Action,
		Description: entry.Description,
	}

	oldSnap, oldOK := parseSnapshot(entry.OldData)
	newSnap, newOK := parseSnapshot(entry.NewData)

	if oldOK && newOK && oldSnap.Quantity != nil && newSnap.Quantity != nil {
		oldQty := int(*oldSnap.Quantity)
		newQty := int(*newSnap.Quantity)
		change.fill(oldQty, newQty)

		if oldSnap.ColorName != "" {
			change.Kind = ChangeShadeLevel
			change.ShadeName = oldSnap.ColorName
			if oldSnap.ID != nil {
				change.ShadeID = uint(*oldSnap.ID)
			} else if newSnap.ID != nil {
				change.ShadeID = uint(*newSnap.ID)
			}
		} else {
			change.Kind = ChangeStockLevel
		}
		return change
	}

	if match := arrowChangeRe.FindStringSubmatch(entry.Description); match != nil {
		oldQty, errOld := strconv.Atoi(match[1])
		newQty, errNew := strconv.Atoi(match[2])
		if errOld == nil && errNew == nil {
			change.fill(oldQty, newQty)
			change.Kind = ChangeStockLevel
			return change
		}
	}

	return change
}

func (c *QuantityChange) fill(oldQty, newQty int) {
	c.OldQuantity = &oldQty
	c.NewQuantity = &newQty
	switch {
	case newQty > oldQty:
		c.Direction = DirectionIncrease
		c.Amount = newQty - oldQty
	case newQty < oldQty:
		c.Direction = DirectionDecrease
		c.Amount = oldQty - newQty
	}
}

func parseSnapshot(raw json.RawMessage) (snapshot, bool) {
	if len(raw) == 0 {
		return snapshot{}, false
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snapshot{}, false
	}
	return snap, true
}
