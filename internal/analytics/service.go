// Package analytics derives movement summaries, per-period activity, and
// replenishment alerts from the stock tables and the activity ledger. It
// never writes: everything here is a pure read model.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fabrichouse/inventory-backend/internal/tracking"
	"github.com/fabrichouse/inventory-backend/pkg/db"
	"github.com/fabrichouse/inventory-backend/pkg/db/models"
	"github.com/fabrichouse/inventory-backend/pkg/enums"
	apperrors "github.com/fabrichouse/inventory-backend/pkg/errors"
	"github.com/fabrichouse/inventory-backend/pkg/logger"
	"github.com/fabrichouse/inventory-backend/pkg/redis"
)

const (
	portfolioCacheScope = "portfolio"
	portfolioLedgerSize = 5000

	DefaultShadeLowThreshold  = 5
	DefaultShadeHighThreshold = 250
	DefaultStockLowThreshold  = 5
)

// stockReader is the slice of the stock repository analytics reads from.
type stockReader interface {
	FindByID(ctx context.Context, id uint) (*models.Stock, error)
	List(ctx context.Context) ([]models.Stock, error)
}

// ledgerReader is the slice of the tracking service analytics reads from.
type ledgerReader interface {
	ByStock(ctx context.Context, stockID string) ([]models.StockTracking, error)
	All(ctx context.Context, limit, offset int) (*tracking.Page, error)
}

// Service defines the derived-analytics operations.
type Service interface {
	SummaryForStock(ctx context.Context, id uint) (*StockActivitySummary, error)
	PortfolioSummary(ctx context.Context) (*PortfolioSummary, error)
	Alerts(ctx context.Context, thresholds AlertThresholds) (*AlertsReport, error)
}

type service struct {
	stocks   stockReader
	ledger   ledgerReader
	cache    *redis.Client
	cacheTTL time.Duration
	logg     *logger.Logger
}

// NewService wires an analytics service. The cache client is optional: a nil
// client disables portfolio caching.
func NewService(stocks stockReader, ledger ledgerReader, cache *redis.Client, cacheTTL time.Duration, logg *logger.Logger) (Service, error) {
	if stocks == nil {
		return nil, fmt.Errorf("stock reader required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger reader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{stocks: stocks, ledger: ledger, cache: cache, cacheTTL: cacheTTL, logg: logg}, nil
}

// ShadeQuantity is one shade's current level inside a movement item.
type ShadeQuantity struct {
	ColorName string `json:"colorName"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

// ShadeDetails summarizes the shade set of a movement item.
type ShadeDetails struct {
	TotalShades     int             `json:"totalShades"`
	ShadeQuantities []ShadeQuantity `json:"shadeQuantities"`
}

// MovementItem is the per-product row of the portfolio summary.
type MovementItem struct {
	StockID         string            `json:"stockId"`
	Product         string            `json:"product"`
	Category        string            `json:"category"`
	CurrentStock    int               `json:"currentStock"`
	TotalAdded      int               `json:"totalAdded"`
	TotalRemoved    int               `json:"totalRemoved"`
	NetChange       int               `json:"netChange"`
	LastActivity    time.Time         `json:"lastActivity"`
	LastAction      enums.StockAction `json:"lastAction"`
	Cost            float64           `json:"cost"`
	Price           float64           `json:"price"`
	HasShades       bool              `json:"hasShades"`
	ShadeDetails    ShadeDetails      `json:"shadeDetails"`
	QuantityChanges []QuantityChange  `json:"quantityChanges"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// PortfolioTotals aggregates the movement items.
type PortfolioTotals struct {
	TotalProducts int `json:"totalProducts"`
	WithShades    int `json:"withShades"`
	WithoutShades int `json:"withoutShades"`
	TotalShades   int `json:"totalShades"`
	TotalAdded    int `json:"totalAdded"`
	TotalRemoved  int `json:"totalRemoved"`
	CurrentStock  int `json:"currentStock"`
}

// PortfolioSummary is the whole-inventory movement report.
type PortfolioSummary struct {
	Totals PortfolioTotals `json:"totals"`
	Items  []MovementItem  `json:"items"`
}

// ActivityCounts breaks a stock's ledger down by action.
type ActivityCounts struct {
	TotalActivities    int     `json:"totalActivities"`
	Created            int     `json:"created"`
	Updated            int     `json:"updated"`
	Adjusted           int     `json:"adjusted"`
	Deleted            int     `json:"deleted"`
	TotalShades        int     `json:"totalShades"`
	TotalShadeQuantity int     `json:"totalShadeQuantity"`
	TotalShadeLength   float64 `json:"totalShadeLength"`
}

// ShadeAnalytics accumulates per-shade movement over the ledger.
type ShadeAnalytics struct {
	ShadeID         uint      `json:"shadeId"`
	ColorName       string    `json:"colorName"`
	Color           string    `json:"color"`
	CurrentQuantity int       `json:"currentQuantity"`
	CurrentLength   float64   `json:"currentLength"`
	Unit            string    `json:"unit"`
	LengthUnit      string    `json:"lengthUnit"`
	TotalReductions int       `json:"totalReductions"`
	TotalAdditions  int       `json:"totalAdditions"`
	ReductionCount  int       `json:"reductionCount"`
	AdditionCount   int       `json:"additionCount"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// PeriodActivity is one year-month bucket of ledger activity.
type PeriodActivity struct {
	Period        time.Time `json:"period"`
	StockAdded    int       `json:"stockAdded"`
	StockReduced  int       `json:"stockReduced"`
	ShadesAdded   int       `json:"shadesAdded"`
	ShadesRemoved int       `json:"shadesRemoved"`
	Activities    int       `json:"activities"`
}

// StockActivitySummary is the full per-item activity report.
type StockActivitySummary struct {
	Stock            *models.Stock          `json:"stock"`
	Tracking         []models.StockTracking `json:"tracking"`
	Summary          ActivityCounts         `json:"summary"`
	TotalAdded       int                    `json:"totalAdded"`
	TotalRemoved     int                    `json:"totalRemoved"`
	NetChange        int                    `json:"netChange"`
	QuantityChanges  []QuantityChange       `json:"quantityChanges"`
	ShadeAnalytics   []ShadeAnalytics       `json:"shadeAnalytics"`
	ActivityByPeriod []PeriodActivity       `json:"activityByPeriod"`
}

// AlertThresholds are inclusive bounds for the replenishment report.
type AlertThresholds struct {
	ShadeLow  int `json:"shadeLow"`
	ShadeHigh int `json:"shadeHigh"`
	StockLow  int `json:"stockLow"`
}

// ShadeAlert flags one shade outside its thresholds.
type ShadeAlert struct {
	StockID   uint   `json:"stockId"`
	StockCode string `json:"stockCode"`
	Product   string `json:"product"`
	ShadeID   uint   `json:"shadeId"`
	ShadeName string `json:"shadeName"`
	Quantity  int    `json:"quantity"`
}

// StockAlert flags a shade-less item running low.
type StockAlert struct {
	StockID   uint   `json:"stockId"`
	StockCode string `json:"stockCode"`
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
}

// AlertCounts sizes each alert bucket.
type AlertCounts struct {
	LowShades  int `json:"lowShades"`
	HighShades int `json:"highShades"`
	LowStocks  int `json:"lowStocks"`
}

// AlertsReport is the replenishment report.
type AlertsReport struct {
	Thresholds      AlertThresholds `json:"thresholds"`
	Counts          AlertCounts     `json:"counts"`
	LowShadeAlerts  []ShadeAlert    `json:"lowShadeAlerts"`
	HighShadeAlerts []ShadeAlert    `json:"highShadeAlerts"`
	LowStocks       []StockAlert    `json:"lowStocks"`
}

func (s *service) SummaryForStock(ctx context.Context, id uint) (*StockActivitySummary, error) {
	item, err := s.stocks.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("stock with ID %d not found", id))
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading stock")
	}

	entries, err := s.ledger.ByStock(ctx, item.StockID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading stock activity")
	}

	counts := ActivityCounts{TotalActivities: len(entries), TotalShades: len(item.Shades)}
	for _, entry := range entries {
		switch entry.Action {
		case enums.StockActionCreate:
			counts.Created++
		case enums.StockActionUpdate:
			counts.Updated++
		case enums.StockActionAdjust:
			counts.Adjusted++
		case enums.StockActionDelete:
			counts.Deleted++
		}
	}
	for _, shade := range item.Shades {
		counts.TotalShadeQuantity += shade.Quantity
		counts.TotalShadeLength += shade.Length
	}

	var quantityChanges []QuantityChange
	var totalAdded, totalRemoved int
	for _, entry := range entries {
		change := ClassifyChange(entry)
		if !change.Meaningful() {
			continue
		}
		quantityChanges = append(quantityChanges, change)
		switch change.Direction {
		case DirectionIncrease:
			totalAdded += change.Amount
		case DirectionDecrease:
			totalRemoved += change.Amount
		}
	}

	return &StockActivitySummary{
		Stock:            item,
		Tracking:         entries,
		Summary:          counts,
		TotalAdded:       totalAdded,
		TotalRemoved:     totalRemoved,
		NetChange:        totalAdded - totalRemoved,
		QuantityChanges:  quantityChanges,
		ShadeAnalytics:   aggregateShadeAnalytics(item.Shades, entries),
		ActivityByPeriod: buildActivityByPeriod(entries),
	}, nil
}

func (s *service) PortfolioSummary(ctx context.Context) (*PortfolioSummary, error) {
	if cached := s.cachedPortfolio(ctx); cached != nil {
		return cached, nil
	}

	items, err := s.stocks.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing stock")
	}

	page, err := s.ledger.All(ctx, portfolioLedgerSize, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading ledger")
	}
	entriesByStock := make(map[string][]models.StockTracking)
	for _, entry := range page.Data {
		entriesByStock[entry.StockID] = append(entriesByStock[entry.StockID], entry)
	}

	summary := &PortfolioSummary{Items: make([]MovementItem, 0, len(items))}
	for i := range items {
		movement := buildMovementItem(&items[i], entriesByStock[items[i].StockID])
		summary.Items = append(summary.Items, movement)

		summary.Totals.TotalProducts++
		if movement.HasShades {
			summary.Totals.WithShades++
		} else {
			summary.Totals.WithoutShades++
		}
		summary.Totals.TotalShades += movement.ShadeDetails.TotalShades
		summary.Totals.TotalAdded += movement.TotalAdded
		summary.Totals.TotalRemoved += movement.TotalRemoved
		summary.Totals.CurrentStock += movement.CurrentStock
	}

	s.storePortfolio(ctx, summary)
	return summary, nil
}

func (s *service) Alerts(ctx context.Context, thresholds AlertThresholds) (*AlertsReport, error) {
	if thresholds.ShadeLow <= 0 {
		thresholds.ShadeLow = DefaultShadeLowThreshold
	}
	if thresholds.ShadeHigh <= 0 {
		thresholds.ShadeHigh = DefaultShadeHighThreshold
	}
	if thresholds.StockLow <= 0 {
		thresholds.StockLow = DefaultStockLowThreshold
	}

	items, err := s.stocks.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing stock")
	}

	report := &AlertsReport{
		Thresholds:      thresholds,
		LowShadeAlerts:  []ShadeAlert{},
		HighShadeAlerts: []ShadeAlert{},
		LowStocks:       []StockAlert{},
	}

	for _, item := range items {
		if len(item.Shades) > 0 {
			for _, shade := range item.Shades {
				alert := ShadeAlert{
					StockID:   item.ID,
					StockCode: item.StockID,
					Product:   item.Product,
					ShadeID:   shade.ID,
					ShadeName: shade.ColorName,
					Quantity:  shade.Quantity,
				}
				if shade.Quantity <= thresholds.ShadeLow {
					report.LowShadeAlerts = append(report.LowShadeAlerts, alert)
				} else if shade.Quantity >= thresholds.ShadeHigh {
					report.HighShadeAlerts = append(report.HighShadeAlerts, alert)
				}
			}
			continue
		}
		if item.Quantity <= thresholds.StockLow {
			report.LowStocks = append(report.LowStocks, StockAlert{
				StockID:   item.ID,
				StockCode: item.StockID,
				Product:   item.Product,
				Quantity:  item.Quantity,
			})
		}
	}

	report.Counts = AlertCounts{
		LowShades:  len(report.LowShadeAlerts),
		HighShades: len(report.HighShadeAlerts),
		LowStocks:  len(report.LowStocks),
	}
	return report, nil
}

// cachedPortfolio returns the cached summary or nil. Cache failures degrade
// to a database read.
func (s *service) cachedPortfolio(ctx context.Context) *PortfolioSummary {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.cache.SummaryKey(portfolioCacheScope))
	if err != nil {
		if err != redis.Nil {
			s.logg.Warn(ctx, "portfolio cache read failed")
		}
		return nil
	}
	var summary PortfolioSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		s.logg.Warn(ctx, "portfolio cache entry is corrupt, ignoring")
		return nil
	}
	return &summary
}

func (s *service) storePortfolio(ctx context.Context, summary *PortfolioSummary) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		s.logg.Error(ctx, "failed to marshal portfolio summary for cache", err)
		return
	}
	if err := s.cache.Set(ctx, s.cache.SummaryKey(portfolioCacheScope), string(raw), s.cacheTTL); err != nil {
		s.logg.Warn(ctx, "portfolio cache write failed")
	}
}

func buildMovementItem(item *models.Stock, entries []models.StockTracking) MovementItem {
	hasShades := len(item.Shades) > 0

	currentStock := item.Quantity
	if hasShades {
		currentStock = 0
		for _, shade := range item.Shades {
			currentStock += shade.Quantity
		}
	}

	movement := MovementItem{
		StockID:      item.StockID,
		Product:      item.Product,
		Category:     item.Category,
		CurrentStock: currentStock,
		LastActivity: item.UpdatedAt,
		LastAction:   enums.StockActionCreate,
		Cost:         item.Cost,
		Price:        item.Price,
		HasShades:    hasShades,
		ShadeDetails: ShadeDetails{
			TotalShades:     len(item.Shades),
			ShadeQuantities: make([]ShadeQuantity, 0, len(item.Shades)),
		},
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	for _, shade := range item.Shades {
		movement.ShadeDetails.ShadeQuantities = append(movement.ShadeDetails.ShadeQuantities, ShadeQuantity{
			ColorName: shade.ColorName,
			Color:     shade.Color,
			Quantity:  shade.Quantity,
		})
	}

	// Entries arrive newest first.
	for i, entry := range entries {
		if i == 0 {
			movement.LastActivity = entry.PerformedAt
			movement.LastAction = entry.Action
		}
		change := ClassifyChange(entry)
		if !change.Meaningful() {
			continue
		}
		switch change.Direction {
		case DirectionIncrease:
			movement.TotalAdded += change.Amount
		case DirectionDecrease:
			movement.TotalRemoved += change.Amount
		}
		movement.QuantityChanges = append(movement.QuantityChanges, change)
	}
	movement.NetChange = movement.TotalAdded - movement.TotalRemoved
	return movement
}

func aggregateShadeAnalytics(shades []models.Shade, entries []models.StockTracking) []ShadeAnalytics {
	byID := make(map[uint]*ShadeAnalytics, len(shades))
	order := make([]uint, 0, len(shades))

	for _, shade := range shades {
		byID[shade.ID] = &ShadeAnalytics{
			ShadeID:         shade.ID,
			ColorName:       shade.ColorName,
			Color:           shade.Color,
			CurrentQuantity: shade.Quantity,
			CurrentLength:   shade.Length,
			Unit:            shade.Unit,
			LengthUnit:      shade.LengthUnit,
			LastUpdated:     shade.UpdatedAt,
		}
		order = append(order, shade.ID)
	}

	for _, entry := range entries {
		change := ClassifyChange(entry)
		if change.Kind != ChangeShadeLevel || change.ShadeID == 0 {
			continue
		}

		analytics, ok := byID[change.ShadeID]
		if !ok {
			// Shade no longer exists; reconstruct what the ledger remembers.
			analytics = &ShadeAnalytics{
				ShadeID:     change.ShadeID,
				ColorName:   change.ShadeName,
				LastUpdated: change.PerformedAt,
			}
			if change.NewQuantity != nil {
				analytics.CurrentQuantity = *change.NewQuantity
			}
			byID[change.ShadeID] = analytics
			order = append(order, change.ShadeID)
		}

		switch change.Direction {
		case DirectionIncrease:
			analytics.TotalAdditions += change.Amount
			analytics.AdditionCount++
		case DirectionDecrease:
			analytics.TotalReductions += change.Amount
			analytics.ReductionCount++
		}
	}

	result := make([]ShadeAnalytics, 0, len(order))
	for _, id := range order {
		result = append(result, *byID[id])
	}
	return result
}

// buildActivityByPeriod buckets entries by calendar month, oldest first.
func buildActivityByPeriod(entries []models.StockTracking) []PeriodActivity {
	byPeriod := make(map[time.Time]*PeriodActivity)

	for _, entry := range entries {
		period := time.Date(entry.PerformedAt.Year(), entry.PerformedAt.Month(), 1, 0, 0, 0, 0, time.UTC)
		bucket, ok := byPeriod[period]
		if !ok {
			bucket = &PeriodActivity{Period: period}
			byPeriod[period] = bucket
		}
		bucket.Activities++

		change := ClassifyChange(entry)
		if !change.Meaningful() {
			continue
		}
		if change.Kind == ChangeShadeLevel {
			if change.Direction == DirectionIncrease {
				bucket.ShadesAdded += change.Amount
			} else {
				bucket.ShadesRemoved += change.Amount
			}
			continue
		}
		if change.Direction == DirectionIncrease {
			bucket.StockAdded += change.Amount
		} else {
			bucket.StockReduced += change.Amount
		}
	}

	result := make([]PeriodActivity, 0, len(byPeriod))
	for _, bucket := range byPeriod {
		result = append(result, *bucket)
	}
	for i := 1; i < len(result); i++ {
		for j := i; j > 0 && result[j].Period.Before(result[j-1].Period); j-- {
			result[j], result[j-1] = result[j-1], result[j]
		}
	}
	return result
}
