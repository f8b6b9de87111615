package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/fabrichouse/inventory-backend/pkg/db/models"
	"github.com/fabrichouse/inventory-backend/pkg/enums"
	"github.com/fabrichouse/inventory-backend/pkg/logger"
)

type fakeRepository struct {
	createFn       func(ctx context.Context, entry *models.StockTracking) error
	listByStockFn  func(ctx context.Context, stockID string) ([]models.StockTracking, error)
	listRecentFn   func(ctx context.Context, limit int) ([]models.StockTracking, error)
	listPageFn     func(ctx context.Context, limit, offset int) ([]models.StockTracking, int64, error)
	countFn        func(ctx context.Context) (int64, error)
	countByActFn   func(ctx context.Context, action enums.StockAction) (int64, error)
	listByActionFn func(ctx context.Context, action enums.StockAction, limit int) ([]models.StockTracking, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, entry *models.StockTracking) error {
	if f.createFn != nil {
		return f.createFn(ctx, entry)
	}
	return nil
}

func (f *fakeRepository) ListByStock(ctx context.Context, stockID string) ([]models.StockTracking, error) {
	if f.listByStockFn != nil {
		return f.listByStockFn(ctx, stockID)
	}
	return nil, nil
}

func (f *fakeRepository) ListByActor(ctx context.Context, actor string, limit int) ([]models.StockTracking, error) {
	return nil, nil
}

func (f *fakeRepository) ListRecent(ctx context.Context, limit int) ([]models.StockTracking, error) {
	if f.listRecentFn != nil {
		return f.listRecentFn(ctx, limit)
	}
	return nil, nil
}

func (f *fakeRepository) ListByAction(ctx context.Context, action enums.StockAction, limit int) ([]models.StockTracking, error) {
	if f.listByActionFn != nil {
		return f.listByActionFn(ctx, action, limit)
	}
	return nil, nil
}

func (f *fakeRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.StockTracking, error) {
	return nil, nil
}

func (f *fakeRepository) ListPage(ctx context.Context, limit, offset int) ([]models.StockTracking, int64, error) {
	if f.listPageFn != nil {
		return f.listPageFn(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (f *fakeRepository) Count(ctx context.Context) (int64, error) {
	if f.countFn != nil {
		return f.countFn(ctx)
	}
	return 0, nil
}

func (f *fakeRepository) CountByAction(ctx context.Context, action enums.StockAction) (int64, error) {
	if f.countByActFn != nil {
		return f.countByActFn(ctx, action)
	}
	return 0, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_Record(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)

	var created *models.StockTracking
	repo.createFn = func(ctx context.Context, entry *models.StockTracking) error {
		created = entry
		return nil
	}

	got := svc.Record(context.Background(), RecordInput{
		StockID:     "FH001",
		Action:      enums.StockActionCreate,
		Description: "New stock created: Silk A",
		NewData:     map[string]any{"product": "Silk A", "quantity": 100},
		PerformedBy: "alice",
	})
	if got == nil || created == nil {
		t.Fatal("expected entry to be created")
	}
	if created.StockID != "FH001" || created.Action != enums.StockActionCreate {
		t.Fatalf("unexpected entry data: %+v", created)
	}
	if created.PerformedBy != "alice" {
		t.Fatalf("unexpected actor: %s", created.PerformedBy)
	}

	var snapshot map[string]any
	if err := json.Unmarshal(created.NewData, &snapshot); err != nil {
		t.Fatalf("snapshot is not valid json: %v", err)
	}
	if snapshot["product"] != "Silk A" {
		t.Fatalf("unexpected snapshot: %v", snapshot)
	}
}

func TestService_RecordDefaultsActorToSystem(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)

	var created *models.StockTracking
	repo.createFn = func(ctx context.Context, entry *models.StockTracking) error {
		created = entry
		return nil
	}

	svc.Record(context.Background(), RecordInput{
		StockID: "FH001",
		Action:  enums.StockActionUpdate,
	})
	if created == nil || created.PerformedBy != "system" {
		t.Fatalf("expected system actor, got %+v", created)
	}
}

func TestService_RecordSanitizesSnapshots(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)

	var created *models.StockTracking
	repo.createFn = func(ctx context.Context, entry *models.StockTracking) error {
		created = entry
		return nil
	}

	svc.Record(context.Background(), RecordInput{
		StockID: "FH001",
		Action:  enums.StockActionUpdate,
		OldData: map[string]any{
			"product":  "Silk A",
			"password": "hunter2",
			"Token":    "abc",
			"SECRET":   "xyz",
		},
	})
	if created == nil {
		t.Fatal("expected entry to be created")
	}

	var snapshot map[string]any
	if err := json.Unmarshal(created.OldData, &snapshot); err != nil {
		t.Fatalf("snapshot is not valid json: %v", err)
	}
	for _, key := range []string{"password", "Token", "SECRET"} {
		if _, ok := snapshot[key]; ok {
			t.Fatalf("expected %q to be stripped, got %v", key, snapshot)
		}
	}
	if snapshot["product"] != "Silk A" {
		t.Fatalf("expected non-sensitive fields to survive, got %v", snapshot)
	}
}

func TestService_RecordSwallowsRepoFailure(t *testing.T) {
	repo := &fakeRepository{
		createFn: func(ctx context.Context, entry *models.StockTracking) error {
			return errors.New("connection reset")
		},
	}
	svc := newTestService(t, repo)

	if got := svc.Record(context.Background(), RecordInput{
		StockID: "FH001",
		Action:  enums.StockActionDelete,
	}); got != nil {
		t.Fatalf("expected nil entry on repo failure, got %+v", got)
	}
}

func TestService_RecordSkipsInvalidInput(t *testing.T) {
	createCalls := 0
	repo := &fakeRepository{
		createFn: func(ctx context.Context, entry *models.StockTracking) error {
			createCalls++
			return nil
		},
	}
	svc := newTestService(t, repo)

	svc.Record(context.Background(), RecordInput{Action: enums.StockActionCreate})
	svc.Record(context.Background(), RecordInput{StockID: "FH001", Action: enums.StockAction("EXPLODE")})

	if createCalls != 0 {
		t.Fatalf("expected no repo writes for invalid input, got %d", createCalls)
	}
}

func TestService_AllAppliesDefaults(t *testing.T) {
	var gotLimit, gotOffset int
	repo := &fakeRepository{
		listPageFn: func(ctx context.Context, limit, offset int) ([]models.StockTracking, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []models.StockTracking{{StockID: "FH001"}}, 7, nil
		},
	}
	svc := newTestService(t, repo)

	page, err := svc.All(context.Background(), 0, -3)
	if err != nil {
		t.Fatalf("All error: %v", err)
	}
	if gotLimit != defaultPageLimit || gotOffset != 0 {
		t.Fatalf("expected defaults, got limit=%d offset=%d", gotLimit, gotOffset)
	}
	if page.Total != 7 || len(page.Data) != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestService_ByDateRangeValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	now := time.Now()
	if _, err := svc.ByDateRange(context.Background(), now, now.Add(-time.Hour)); err == nil {
		t.Fatal("expected error for inverted range")
	}
	if _, err := svc.ByDateRange(context.Background(), time.Time{}, now); err == nil {
		t.Fatal("expected error for zero start")
	}
}

func TestService_Stats(t *testing.T) {
	repo := &fakeRepository{
		countFn: func(ctx context.Context) (int64, error) { return 12, nil },
		countByActFn: func(ctx context.Context, action enums.StockAction) (int64, error) {
			if action == enums.StockActionCreate {
				return 5, nil
			}
			return 0, nil
		},
		listRecentFn: func(ctx context.Context, limit int) ([]models.StockTracking, error) {
			if limit != statsRecentSize {
				t.Fatalf("expected recent window %d, got %d", statsRecentSize, limit)
			}
			return []models.StockTracking{{StockID: "FH002"}}, nil
		},
	}
	svc := newTestService(t, repo)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.TotalActions != 12 {
		t.Fatalf("unexpected total: %d", stats.TotalActions)
	}
	if stats.ByAction[enums.StockActionCreate] != 5 {
		t.Fatalf("unexpected create count: %v", stats.ByAction)
	}
	if len(stats.ByAction) != len(enums.StockActions()) {
		t.Fatalf("expected every action to be counted, got %v", stats.ByAction)
	}
	if len(stats.RecentActivity) != 1 || stats.RecentActivity[0].StockID != "FH002" {
		t.Fatalf("unexpected recent activity: %v", stats.RecentActivity)
	}
}
