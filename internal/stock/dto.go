package stock

// ShadeInput describes one shade row in a create or update payload. A nil ID
// creates a new shade; a known ID updates it; existing shades missing from an
// update payload are removed.
type ShadeInput struct {
	ID         *uint   `json:"id" validate:"omitempty,gt=0"`
	ColorName  string  `json:"colorName" validate:"required"`
	Color      string  `json:"color"`
	Quantity   int     `json:"quantity" validate:"gte=0"`
	Unit       string  `json:"unit"`
	Length     float64 `json:"length" validate:"gte=0"`
	LengthUnit string  `json:"lengthUnit"`
}

// CreateStockInput is the payload for registering a new stock item.
type CreateStockInput struct {
	Product  string       `json:"product" validate:"required"`
	Category string       `json:"category"`
	Quantity int          `json:"quantity" validate:"gte=0"`
	Cost     float64      `json:"cost" validate:"gte=0"`
	Price    float64      `json:"price" validate:"gte=0"`
	Shades   []ShadeInput `json:"shades" validate:"omitempty,dive"`
}

// UpdateStockInput is a partial update: nil fields are left untouched. A
// non-nil Shades slice replaces the full shade set.
type UpdateStockInput struct {
	Product  *string       `json:"product" validate:"omitempty,min=1"`
	Category *string       `json:"category"`
	Quantity *int          `json:"quantity" validate:"omitempty,gte=0"`
	Cost     *float64      `json:"cost" validate:"omitempty,gte=0"`
	Price    *float64      `json:"price" validate:"omitempty,gte=0"`
	Shades   *[]ShadeInput `json:"shades" validate:"omitempty,dive"`
}

// AdjustStockInput moves the aggregate quantity by a signed delta.
type AdjustStockInput struct {
	Quantity int    `json:"quantity" validate:"required,ne=0"`
	Notes    string `json:"notes"`
}
