// Package tracking keeps the append-only activity ledger for stock items.
// Recording is deliberately best-effort: a failed ledger write must never
// abort the inventory mutation that triggered it.
package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fabrichouse/inventory-backend/pkg/db/models"
	"github.com/fabrichouse/inventory-backend/pkg/enums"
	"github.com/fabrichouse/inventory-backend/pkg/logger"
)

const (
	defaultActor       = "system"
	defaultRecentLimit = 50
	defaultPageLimit   = 1000
	statsRecentSize    = 10
)

// Service defines the activity ledger operations.
type Service interface {
	// Record appends an entry. It swallows every failure after logging it,
	// so callers can fire-and-forget. The created entry is nil on failure.
	Record(ctx context.Context, input RecordInput) *models.StockTracking

	ByStock(ctx context.Context, stockID string) ([]models.StockTracking, error)
	ByActor(ctx context.Context, actor string, limit int) ([]models.StockTracking, error)
	Recent(ctx context.Context, limit int) ([]models.StockTracking, error)
	ByAction(ctx context.Context, action enums.StockAction, limit int) ([]models.StockTracking, error)
	ByDateRange(ctx context.Context, from, to time.Time) ([]models.StockTracking, error)
	All(ctx context.Context, limit, offset int) (*Page, error)
	Stats(ctx context.Context) (*Stats, error)
}

// RecordInput carries one ledger entry. Snapshots are sanitized before they
// are persisted.
type RecordInput struct {
	StockID     string
	Action      enums.StockAction
	Description string
	OldData     map[string]any
	NewData     map[string]any
	PerformedBy string
	IPAddress   *string
	UserAgent   *string
}

// Page is a windowed slice of the ledger plus the total entry count.
type Page struct {
	Data  []models.StockTracking `json:"data"`
	Total int64                  `json:"total"`
}

// Stats summarizes ledger volume by action plus the latest activity.
type Stats struct {
	TotalActions   int64                       `json:"totalActions"`
	ByAction       map[enums.StockAction]int64 `json:"byAction"`
	RecentActivity []models.StockTracking      `json:"recentActivity"`
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires a tracking service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tracking repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) *models.StockTracking {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"stock_id": input.StockID,
		"action":   string(input.Action),
	})

	if input.StockID == "" {
		s.logg.Warn(ctx, "skipping ledger entry without stock id")
		return nil
	}
	if !input.Action.IsValid() {
		s.logg.Warn(ctx, "skipping ledger entry with unknown action")
		return nil
	}

	actor := strings.TrimSpace(input.PerformedBy)
	if actor == "" {
		actor = defaultActor
	}

	entry := &models.StockTracking{
		StockID:     input.StockID,
		Action:      input.Action,
		Description: input.Description,
		OldData:     s.marshalSnapshot(ctx, input.OldData),
		NewData:     s.marshalSnapshot(ctx, input.NewData),
		PerformedBy: actor,
		IPAddress:   input.IPAddress,
		UserAgent:   input.UserAgent,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logg.Error(ctx, "failed to record stock activity", err)
		return nil
	}
	return entry
}

func (s *service) ByStock(ctx context.Context, stockID string) ([]models.StockTracking, error) {
	if stockID == "" {
		return nil, fmt.Errorf("stock id is required")
	}
	return s.repo.ListByStock(ctx, stockID)
}

func (s *service) ByActor(ctx context.Context, actor string, limit int) ([]models.StockTracking, error) {
	if actor == "" {
		return nil, fmt.Errorf("actor is required")
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.repo.ListByActor(ctx, actor, limit)
}

func (s *service) Recent(ctx context.Context, limit int) ([]models.StockTracking, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.repo.ListRecent(ctx, limit)
}

func (s *service) ByAction(ctx context.Context, action enums.StockAction, limit int) ([]models.StockTracking, error) {
	if !action.IsValid() {
		return nil, fmt.Errorf("unknown stock action %q", action)
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.repo.ListByAction(ctx, action, limit)
}

func (s *service) ByDateRange(ctx context.Context, from, to time.Time) ([]models.StockTracking, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("both range bounds are required")
	}
	if to.Before(from) {
		return nil, fmt.Errorf("range end precedes range start")
	}
	return s.repo.ListByDateRange(ctx, from, to)
}

func (s *service) All(ctx context.Context, limit, offset int) (*Page, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	entries, total, err := s.repo.ListPage(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &Page{Data: entries, Total: total}, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	byAction := make(map[enums.StockAction]int64, len(enums.StockActions()))
	for _, action := range enums.StockActions() {
		count, err := s.repo.CountByAction(ctx, action)
		if err != nil {
			return nil, err
		}
		byAction[action] = count
	}

	recent, err := s.repo.ListRecent(ctx, statsRecentSize)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalActions:   total,
		ByAction:       byAction,
		RecentActivity: recent,
	}, nil
}

// marshalSnapshot strips credential-shaped keys and renders the snapshot as
// JSON. A snapshot that cannot be marshaled is dropped, not fatal.
func (s *service) marshalSnapshot(ctx context.Context, snapshot map[string]any) json.RawMessage {
	if len(snapshot) == 0 {
		return nil
	}

	clean := make(map[string]any, len(snapshot))
	for key, value := range snapshot {
		switch strings.ToLower(key) {
		case "password", "token", "secret":
			continue
		}
		clean[key] = value
	}

	raw, err := json.Marshal(clean)
	if err != nil {
		s.logg.Error(ctx, "failed to marshal ledger snapshot", err)
		return nil
	}
	return raw
}
