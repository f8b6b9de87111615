package enums

import "fmt"

// StockAction describes the allowed values for the `action` column in stock_tracking.
type StockAction string

const (
	StockActionCreate      StockAction = "CREATE"
	StockActionUpdate      StockAction = "UPDATE"
	StockActionDelete      StockAction = "DELETE"
	StockActionAdjust      StockAction = "ADJUST"
	StockActionImageUpload StockAction = "IMAGE_UPLOAD"
)

var validStockActions = []StockAction{
	StockActionCreate,
	StockActionUpdate,
	StockActionDelete,
	StockActionAdjust,
	StockActionImageUpload,
}

// StockActions returns every canonical action value.
func StockActions() []StockAction {
	out := make([]StockAction, len(validStockActions))
	copy(out, validStockActions)
	return out
}

// IsValid reports whether the value matches the canonical stock action enum.
func (a StockAction) IsValid() bool {
	for _, candidate := range validStockActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseStockAction converts the raw string to StockAction.
func ParseStockAction(value string) (StockAction, error) {
	for _, candidate := range validStockActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock action %q", value)
}

func (a StockAction) String() string {
	return string(a)
}
