package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	stocksvc "github.com/fabrichouse/inventory-backend/internal/stock"
	"github.com/fabrichouse/inventory-backend/internal/tracking"
	"github.com/fabrichouse/inventory-backend/pkg/db/models"
	"github.com/fabrichouse/inventory-backend/pkg/enums"
	apperrors "github.com/fabrichouse/inventory-backend/pkg/errors"
	"github.com/fabrichouse/inventory-backend/pkg/logger"
)

type fakeStocks struct {
	items []models.Stock
}

func (f *fakeStocks) FindByID(ctx context.Context, id uint) (*models.Stock, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStocks) List(ctx context.Context) ([]models.Stock, error) {
	return f.items, nil
}

type fakeLedger struct {
	byStock map[string][]models.StockTracking
}

func (f *fakeLedger) ByStock(ctx context.Context, stockID string) ([]models.StockTracking, error) {
	return f.byStock[stockID], nil
}

func (f *fakeLedger) All(ctx context.Context, limit, offset int) (*tracking.Page, error) {
	var all []models.StockTracking
	for _, entries := range f.byStock {
		all = append(all, entries...)
	}
	return &tracking.Page{Data: all, Total: int64(len(all))}, nil
}

func newTestService(t *testing.T, stocks *fakeStocks, ledger *fakeLedger) Service {
	t.Helper()
	svc, err := NewService(stocks, ledger, nil, 0,
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func mustJSON(t *testing.T, value map[string]any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	return raw
}

func TestClassifyChange(t *testing.T) {
	now := time.Now()

	t.Run("stock level snapshots", func(t *testing.T) {
		entry := models.StockTracking{
			Action:      enums.StockActionAdjust,
			PerformedAt: now,
			OldData:     mustJSON(t, map[string]any{"quantity": 100}),
			NewData:     mustJSON(t, map[string]any{"quantity": 70}),
		}
		change := ClassifyChange(entry)
		if change.Kind != ChangeStockLevel || change.Direction != DirectionDecrease || change.Amount != 30 {
			t.Fatalf("unexpected change: %+v", change)
		}
	})

	t.Run("shade level snapshots", func(t *testing.T) {
		entry := models.StockTracking{
			Action:  enums.StockActionUpdate,
			OldData: mustJSON(t, map[string]any{"id": 7, "colorName": "Red", "quantity": 10}),
			NewData: mustJSON(t, map[string]any{"id": 7, "colorName": "Red", "quantity": 14}),
		}
		change := ClassifyChange(entry)
		if change.Kind != ChangeShadeLevel || change.Direction != DirectionIncrease || change.Amount != 4 {
			t.Fatalf("unexpected change: %+v", change)
		}
		if change.ShadeID != 7 || change.ShadeName != "Red" {
			t.Fatalf("missing shade identity: %+v", change)
		}
	})

	t.Run("description fallback", func(t *testing.T) {
		entry := models.StockTracking{
			Action:      enums.StockActionAdjust,
			Description: "Stock DECREMENT: Silk A | 30 units | From: 100 → To: 70 | Notes: none",
		}
		change := ClassifyChange(entry)
		if change.Kind != ChangeStockLevel || change.Direction != DirectionDecrease || change.Amount != 30 {
			t.Fatalf("unexpected change: %+v", change)
		}
	})

	t.Run("no movement", func(t *testing.T) {
		entry := models.StockTracking{
			Action:      enums.StockActionCreate,
			Description: "Created stock: Silk A (FH001) with 0 shades",
		}
		change := ClassifyChange(entry)
		if change.Kind != ChangeNone || change.Meaningful() {
			t.Fatalf("expected no change, got %+v", change)
		}
	})

	t.Run("equal quantities are not meaningful", func(t *testing.T) {
		entry := models.StockTracking{
			OldData: mustJSON(t, map[string]any{"quantity": 5}),
			NewData: mustJSON(t, map[string]any{"quantity": 5}),
		}
		if change := ClassifyChange(entry); change.Meaningful() {
			t.Fatalf("expected zero movement, got %+v", change)
		}
	})
}

// A create followed by a decrement must count 30 removed and nothing added:
// the create entry has no before snapshot, so it contributes no movement.
func TestPortfolioSummaryCreateThenDecrement(t *testing.T) {
	now := time.Now()
	stocks := &fakeStocks{items: []models.Stock{{
		ID: 1, StockID: "FH001", Product: "Silk A", Quantity: 70, Cost: 4, Price: 9,
	}}}
	ledger := &fakeLedger{byStock: map[string][]models.StockTracking{
		"FH001": {
			{
				StockID:     "FH001",
				Action:      enums.StockActionAdjust,
				PerformedAt: now,
				OldData:     mustJSON(t, map[string]any{"quantity": 100}),
				NewData:     mustJSON(t, map[string]any{"quantity": 70}),
			},
			{
				StockID:     "FH001",
				Action:      enums.StockActionCreate,
				PerformedAt: now.Add(-time.Hour),
				NewData:     mustJSON(t, map[string]any{"quantity": 100}),
			},
		},
	}}
	svc := newTestService(t, stocks, ledger)

	summary, err := svc.PortfolioSummary(context.Background())
	if err != nil {
		t.Fatalf("portfolio summary: %v", err)
	}

	if summary.Totals.TotalProducts != 1 || summary.Totals.CurrentStock != 70 {
		t.Fatalf("unexpected totals: %+v", summary.Totals)
	}
	if summary.Totals.TotalRemoved != 30 || summary.Totals.TotalAdded != 0 {
		t.Fatalf("expected removed=30 added=0, got %+v", summary.Totals)
	}

	item := summary.Items[0]
	if item.NetChange != -30 {
		t.Fatalf("unexpected net change: %d", item.NetChange)
	}
	if item.LastAction != enums.StockActionAdjust {
		t.Fatalf("unexpected last action: %v", item.LastAction)
	}
	if len(item.QuantityChanges) != 1 {
		t.Fatalf("expected exactly one movement, got %d", len(item.QuantityChanges))
	}

	// Deriving the summary again from the same ledger gives the same result.
	again, err := svc.PortfolioSummary(context.Background())
	if err != nil {
		t.Fatalf("second portfolio summary: %v", err)
	}
	if !reflect.DeepEqual(summary.Totals, again.Totals) {
		t.Fatalf("summary not stable: %+v vs %+v", summary.Totals, again.Totals)
	}
}

func TestPortfolioSummaryShadeTotals(t *testing.T) {
	stocks := &fakeStocks{items: []models.Stock{
		{
			ID: 1, StockID: "FH001", Product: "Silk A", Quantity: 999,
			Shades: []models.Shade{
				{ID: 1, ColorName: "Red", Quantity: 10},
				{ID: 2, ColorName: "Blue", Quantity: 5},
			},
		},
		{ID: 2, StockID: "FH002", Product: "Cotton B", Quantity: 40},
	}}
	svc := newTestService(t, stocks, &fakeLedger{})

	summary, err := svc.PortfolioSummary(context.Background())
	if err != nil {
		t.Fatalf("portfolio summary: %v", err)
	}

	// Shaded items report the shade sum, not the stock-level quantity.
	if summary.Items[0].CurrentStock != 15 {
		t.Fatalf("expected shade sum 15, got %d", summary.Items[0].CurrentStock)
	}
	if summary.Totals.CurrentStock != 55 {
		t.Fatalf("unexpected total current stock: %d", summary.Totals.CurrentStock)
	}
	if summary.Totals.WithShades != 1 || summary.Totals.WithoutShades != 1 || summary.Totals.TotalShades != 2 {
		t.Fatalf("unexpected shade totals: %+v", summary.Totals)
	}
}

func TestSummaryForStock(t *testing.T) {
	now := time.Now()
	stocks := &fakeStocks{items: []models.Stock{{
		ID: 1, StockID: "FH001", Product: "Silk A",
		Shades: []models.Shade{{ID: 3, ColorName: "Red", Quantity: 8, Length: 2.5}},
	}}}
	ledger := &fakeLedger{byStock: map[string][]models.StockTracking{
		"FH001": {
			{
				StockID: "FH001", Action: enums.StockActionUpdate, PerformedAt: now,
				OldData: mustJSON(t, map[string]any{"id": 3, "colorName": "Red", "quantity": 12}),
				NewData: mustJSON(t, map[string]any{"id": 3, "colorName": "Red", "quantity": 8}),
			},
			{
				StockID: "FH001", Action: enums.StockActionCreate, PerformedAt: now.Add(-time.Hour),
				NewData: mustJSON(t, map[string]any{"quantity": 0}),
			},
		},
	}}
	svc := newTestService(t, stocks, ledger)

	summary, err := svc.SummaryForStock(context.Background(), 1)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.Summary.TotalActivities != 2 || summary.Summary.Created != 1 || summary.Summary.Updated != 1 {
		t.Fatalf("unexpected counts: %+v", summary.Summary)
	}
	if summary.Summary.TotalShadeQuantity != 8 || summary.Summary.TotalShadeLength != 2.5 {
		t.Fatalf("unexpected shade totals: %+v", summary.Summary)
	}

	if len(summary.ShadeAnalytics) != 1 {
		t.Fatalf("expected one shade analytics row, got %d", len(summary.ShadeAnalytics))
	}
	red := summary.ShadeAnalytics[0]
	if red.TotalReductions != 4 || red.ReductionCount != 1 || red.TotalAdditions != 0 {
		t.Fatalf("unexpected shade analytics: %+v", red)
	}
}

// An inventory decrement must surface in the per-stock totals, not only in
// the movement list.
func TestSummaryForStockTotalsAfterDecrement(t *testing.T) {
	now := time.Now()
	stocks := &fakeStocks{items: []models.Stock{{
		ID: 1, StockID: "FH001", Product: "Silk A", Quantity: 70,
	}}}
	ledger := &fakeLedger{byStock: map[string][]models.StockTracking{
		"FH001": {
			{
				StockID: "FH001", Action: enums.StockActionAdjust, PerformedAt: now,
				OldData: mustJSON(t, map[string]any{"quantity": 100}),
				NewData: mustJSON(t, map[string]any{"quantity": 70}),
			},
			{
				StockID: "FH001", Action: enums.StockActionCreate, PerformedAt: now.Add(-time.Hour),
				NewData: mustJSON(t, map[string]any{"quantity": 100}),
			},
		},
	}}
	svc := newTestService(t, stocks, ledger)

	summary, err := svc.SummaryForStock(context.Background(), 1)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.TotalRemoved != 30 || summary.TotalAdded != 0 {
		t.Fatalf("expected removed=30 added=0, got removed=%d added=%d", summary.TotalRemoved, summary.TotalAdded)
	}
	if summary.NetChange != -30 {
		t.Fatalf("unexpected net change: %d", summary.NetChange)
	}
}

type discardStore struct{}

func (discardStore) Put(ctx context.Context, data []byte, folder, filename string) (string, error) {
	return "/uploads/" + folder + "/" + filename, nil
}

func (discardStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	return nil, fmt.Errorf("blob %q not found", url)
}

func (discardStore) Delete(ctx context.Context, url string) error {
	return nil
}

// Wires the real stock and tracking services over one database so a shade
// quantity reduction flows from Update all the way into the activity report.
func TestSummaryForStockAfterShadeReduction(t *testing.T) {
	dsn := "file:analytics_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Stock{}, &models.Shade{}, &models.StockTracking{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	stockRepo := stocksvc.NewRepository(gdb)
	trackingService, err := tracking.NewService(tracking.NewRepository(gdb), logg)
	if err != nil {
		t.Fatalf("tracking service: %v", err)
	}
	stockService, err := stocksvc.NewService(stockRepo, trackingService, discardStore{}, logg)
	if err != nil {
		t.Fatalf("stock service: %v", err)
	}
	svc, err := NewService(stockRepo, trackingService, nil, 0, logg)
	if err != nil {
		t.Fatalf("analytics service: %v", err)
	}

	ctx := context.Background()
	item, err := stockService.Create(ctx, stocksvc.CreateStockInput{
		Product: "Silk A",
		Shades:  []stocksvc.ShadeInput{{ColorName: "Red", Quantity: 10}},
	}, "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	redID := item.Shades[0].ID

	if _, err := stockService.Update(ctx, item.ID, stocksvc.UpdateStockInput{
		Shades: &[]stocksvc.ShadeInput{{ID: &redID, ColorName: "Red", Quantity: 4}},
	}, "alice"); err != nil {
		t.Fatalf("update: %v", err)
	}

	summary, err := svc.SummaryForStock(ctx, item.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if len(summary.ShadeAnalytics) != 1 {
		t.Fatalf("expected one shade analytics row, got %+v", summary.ShadeAnalytics)
	}
	red := summary.ShadeAnalytics[0]
	if red.TotalReductions != 6 || red.ReductionCount != 1 {
		t.Fatalf("expected reductions 6/1 for Red, got %+v", red)
	}
	if summary.TotalRemoved != 6 || summary.TotalAdded != 0 || summary.NetChange != -6 {
		t.Fatalf("unexpected totals: removed=%d added=%d net=%d", summary.TotalRemoved, summary.TotalAdded, summary.NetChange)
	}

	var shadesRemoved int
	for _, bucket := range summary.ActivityByPeriod {
		shadesRemoved += bucket.ShadesRemoved
	}
	if shadesRemoved != 6 {
		t.Fatalf("expected 6 shade units removed across periods, got %d", shadesRemoved)
	}
}

func TestSummaryForStockNotFound(t *testing.T) {
	svc := newTestService(t, &fakeStocks{}, &fakeLedger{})
	_, err := svc.SummaryForStock(context.Background(), 42)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestActivityByPeriodAscending(t *testing.T) {
	march := time.Date(2026, time.March, 12, 10, 0, 0, 0, time.UTC)
	january := time.Date(2026, time.January, 3, 9, 0, 0, 0, time.UTC)

	entries := []models.StockTracking{
		{
			Action: enums.StockActionAdjust, PerformedAt: march,
			OldData: mustJSON(t, map[string]any{"quantity": 10}),
			NewData: mustJSON(t, map[string]any{"quantity": 25}),
		},
		{
			Action: enums.StockActionUpdate, PerformedAt: january,
			OldData: mustJSON(t, map[string]any{"id": 1, "colorName": "Red", "quantity": 9}),
			NewData: mustJSON(t, map[string]any{"id": 1, "colorName": "Red", "quantity": 4}),
		},
	}

	periods := buildActivityByPeriod(entries)
	if len(periods) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(periods))
	}
	if !periods[0].Period.Before(periods[1].Period) {
		t.Fatalf("buckets not ascending: %+v", periods)
	}
	if periods[0].ShadesRemoved != 5 || periods[0].StockAdded != 0 {
		t.Fatalf("unexpected january bucket: %+v", periods[0])
	}
	if periods[1].StockAdded != 15 || periods[1].ShadesAdded != 0 {
		t.Fatalf("unexpected march bucket: %+v", periods[1])
	}
}

func TestAlertsInclusiveBoundaries(t *testing.T) {
	stocks := &fakeStocks{items: []models.Stock{
		{
			ID: 1, StockID: "FH001", Product: "Silk A",
			Shades: []models.Shade{
				{ID: 1, ColorName: "AtLow", Quantity: 5},
				{ID: 2, ColorName: "JustAbove", Quantity: 6},
				{ID: 3, ColorName: "AtHigh", Quantity: 250},
				{ID: 4, ColorName: "JustBelow", Quantity: 249},
			},
		},
		{ID: 2, StockID: "FH002", Product: "Cotton B", Quantity: 5},
		{ID: 3, StockID: "FH003", Product: "Linen C", Quantity: 6},
	}}
	svc := newTestService(t, stocks, &fakeLedger{})

	report, err := svc.Alerts(context.Background(), AlertThresholds{})
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}

	if report.Thresholds.ShadeLow != 5 || report.Thresholds.ShadeHigh != 250 || report.Thresholds.StockLow != 5 {
		t.Fatalf("unexpected default thresholds: %+v", report.Thresholds)
	}
	if report.Counts.LowShades != 1 || report.LowShadeAlerts[0].ShadeName != "AtLow" {
		t.Fatalf("unexpected low shade alerts: %+v", report.LowShadeAlerts)
	}
	if report.Counts.HighShades != 1 || report.HighShadeAlerts[0].ShadeName != "AtHigh" {
		t.Fatalf("unexpected high shade alerts: %+v", report.HighShadeAlerts)
	}
	if report.Counts.LowStocks != 1 || report.LowStocks[0].Product != "Cotton B" {
		t.Fatalf("unexpected low stock alerts: %+v", report.LowStocks)
	}
}

// A shaded item never raises a stock-level alert even when its aggregate
// quantity is low.
func TestAlertsShadedItemSkipsStockLevel(t *testing.T) {
	stocks := &fakeStocks{items: []models.Stock{{
		ID: 1, StockID: "FH001", Product: "Silk A", Quantity: 0,
		Shades: []models.Shade{{ID: 1, ColorName: "Red", Quantity: 100}},
	}}}
	svc := newTestService(t, stocks, &fakeLedger{})

	report, err := svc.Alerts(context.Background(), AlertThresholds{})
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if report.Counts.LowStocks != 0 {
		t.Fatalf("shaded item must not appear in low stocks: %+v", report.LowStocks)
	}
}
