// Package imagesearch finds stock items that look like an uploaded photo.
// The fast fingerprint tier always runs first; the vision tier only runs
// when fingerprints produce nothing, and its absence degrades the search to
// an empty result instead of an error.
package imagesearch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fabrichouse/inventory-backend/pkg/config"
	"github.com/fabrichouse/inventory-backend/pkg/db/models"
	"github.com/fabrichouse/inventory-backend/pkg/enums"
	apperrors "github.com/fabrichouse/inventory-backend/pkg/errors"
	"github.com/fabrichouse/inventory-backend/pkg/imagehash"
	"github.com/fabrichouse/inventory-backend/pkg/logger"
	"github.com/fabrichouse/inventory-backend/pkg/metrics"
	"github.com/fabrichouse/inventory-backend/pkg/vision"
)

// candidateSource lists the stock items each tier can match against.
type candidateSource interface {
	ListFingerprinted(ctx context.Context) ([]models.Stock, error)
	ListWithImages(ctx context.Context) ([]models.Stock, error)
}

// visionComparer is the slice of the vision client the fallback tier uses.
type visionComparer interface {
	Available() bool
	Compare(ctx context.Context, a, b []byte) (*vision.Comparison, error)
	Describe(ctx context.Context, data []byte) (string, error)
}

// blobFetcher loads stored stock images for the vision tier.
type blobFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Match is one stock item that resembles the query photo.
type Match struct {
	Stock       models.Stock     `json:"stock"`
	Similarity  int              `json:"similarity"`
	Method      enums.SearchTier `json:"searchMethod"`
	Explanation string           `json:"explanation,omitempty"`
	Description string           `json:"queryDescription,omitempty"`
}

// Result is a search outcome together with the tier that resolved it.
type Result struct {
	Matches []Match          `json:"matches"`
	Tier    enums.SearchTier `json:"tier"`
}

// Service resolves photo searches.
type Service interface {
	// SearchByImage matches the photo at imagePath against the inventory.
	// The file is removed before the call returns, on every path.
	SearchByImage(ctx context.Context, imagePath string) (*Result, error)
}

type service struct {
	candidates candidateSource
	vision     visionComparer
	blobs      blobFetcher
	search     config.SearchConfig
	metrics    *metrics.SearchMetrics
	logg       *logger.Logger
}

// NewService wires the search orchestrator. The metrics instrument may be
// nil.
func NewService(candidates candidateSource, comparer visionComparer, blobs blobFetcher, search config.SearchConfig, m *metrics.SearchMetrics, logg *logger.Logger) (Service, error) {
	if candidates == nil {
		return nil, fmt.Errorf("candidate source required")
	}
	if comparer == nil {
		return nil, fmt.Errorf("vision comparer required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob fetcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		candidates: candidates,
		vision:     comparer,
		blobs:      blobs,
		search:     search,
		metrics:    m,
		logg:       logg,
	}, nil
}

func (s *service) SearchByImage(ctx context.Context, imagePath string) (*Result, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveDuration(time.Since(start))
		if err := os.Remove(imagePath); err != nil && !os.IsNotExist(err) {
			s.logg.Error(ctx, "failed to clean up search image", err)
		}
	}()

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "reading search image")
	}

	queryHash, err := imagehash.Compute(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	hashMatches, err := s.searchByFingerprint(ctx, queryHash)
	if err != nil {
		return nil, err
	}
	if len(hashMatches) > 0 {
		s.metrics.IncOutcome(metrics.OutcomeHashHit)
		s.logg.Info(s.logg.WithField(ctx, "matches", len(hashMatches)), "photo search resolved by fingerprint")
		return &Result{Matches: hashMatches, Tier: enums.SearchTierHash}, nil
	}

	if !s.vision.Available() {
		s.metrics.IncOutcome(metrics.OutcomeVisionSkipped)
		s.logg.Info(ctx, "no fingerprint matches and vision tier unavailable")
		return &Result{Matches: []Match{}, Tier: enums.SearchTierVision}, nil
	}

	visionMatches := s.searchByVision(ctx, data)
	if len(visionMatches) > 0 {
		s.metrics.IncOutcome(metrics.OutcomeVisionHit)
	} else {
		s.metrics.IncOutcome(metrics.OutcomeMiss)
	}
	s.logg.Info(s.logg.WithField(ctx, "matches", len(visionMatches)), "photo search resolved by vision")
	return &Result{Matches: visionMatches, Tier: enums.SearchTierVision}, nil
}

func (s *service) searchByFingerprint(ctx context.Context, queryHash string) ([]Match, error) {
	items, err := s.candidates.ListFingerprinted(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing fingerprinted stock")
	}

	byID := make(map[uint]*models.Stock, len(items))
	candidates := make([]imagehash.Candidate, 0, len(items))
	for i := range items {
		if !items[i].HasFingerprint() {
			continue
		}
		byID[items[i].ID] = &items[i]
		candidates = append(candidates, imagehash.Candidate{
			ID:          items[i].ID,
			Fingerprint: *items[i].ImageHash,
		})
	}

	ranked := imagehash.Rank(queryHash, candidates, s.search.HashMinSimilarity)
	matches := make([]Match, 0, len(ranked))
	for _, r := range ranked {
		matches = append(matches, Match{
			Stock:      *byID[r.ID],
			Similarity: r.Similarity,
			Method:     enums.SearchTierHash,
		})
	}
	return matches, nil
}

// searchByVision compares the query against every stored stock image, one at
// a time. A failure on one candidate skips that candidate only.
func (s *service) searchByVision(ctx context.Context, query []byte) []Match {
	description, err := s.vision.Describe(ctx, query)
	if err != nil {
		s.logg.Error(ctx, "failed to describe search image", err)
		description = ""
	}

	items, err := s.candidates.ListWithImages(ctx)
	if err != nil {
		s.logg.Error(ctx, "failed to list stock images for vision search", err)
		return []Match{}
	}

	matches := make([]Match, 0, len(items))
	for i := range items {
		item := &items[i]
		itemCtx := s.logg.WithField(ctx, "stock_id", item.StockID)

		blob, err := s.blobs.Fetch(ctx, *item.ImagePath)
		if err != nil {
			s.logg.Error(itemCtx, "failed to load stock image, skipping candidate", err)
			continue
		}

		comparison, err := s.vision.Compare(ctx, query, blob)
		if err != nil {
			s.logg.Error(itemCtx, "vision comparison failed, skipping candidate", err)
			continue
		}

		if comparison.Similarity >= s.search.VisionMinSimilarity {
			matches = append(matches, Match{
				Stock:       *item,
				Similarity:  comparison.Similarity,
				Method:      enums.SearchTierVision,
				Explanation: comparison.Explanation,
				Description: description,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}
