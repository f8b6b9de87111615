package enums

// SearchTier names the strategy that produced an image-search match.
type SearchTier string

const (
	SearchTierHash   SearchTier = "hash"
	SearchTierVision SearchTier = "vision"
)

func (t SearchTier) String() string {
	return string(t)
}
