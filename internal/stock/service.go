// Package stock implements the inventory aggregate: fabric items, their shade
// variants, quantity adjustments, and the image slot used by photo search.
// Every mutation records exactly one activity ledger entry.
package stock

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fabrichouse/inventory-backend/internal/tracking"
	"github.com/fabrichouse/inventory-backend/pkg/db"
	"github.com/fabrichouse/inventory-backend/pkg/db/models"
	"github.com/fabrichouse/inventory-backend/pkg/enums"
	apperrors "github.com/fabrichouse/inventory-backend/pkg/errors"
	"github.com/fabrichouse/inventory-backend/pkg/imagehash"
	"github.com/fabrichouse/inventory-backend/pkg/logger"
	"github.com/fabrichouse/inventory-backend/pkg/storage"
)

const (
	stockCodePrefix          = "FH"
	defaultLowStockThreshold = 10
	imageFolder              = "stock"

	defaultShadeColor      = "#000000"
	defaultShadeUnit       = "pcs"
	defaultShadeLengthUnit = "meters"
)

// Service defines the inventory aggregate operations.
type Service interface {
	Create(ctx context.Context, input CreateStockInput, actor string) (*models.Stock, error)
	Get(ctx context.Context, id uint) (*models.Stock, error)
	List(ctx context.Context) ([]models.Stock, error)
	Update(ctx context.Context, id uint, input UpdateStockInput, actor string) (*models.Stock, error)
	Adjust(ctx context.Context, id uint, input AdjustStockInput, actor string) (*models.Stock, error)
	Delete(ctx context.Context, id uint, actor string) error
	Search(ctx context.Context, name, category string) ([]models.Stock, error)
	LowStock(ctx context.Context, threshold int) ([]models.Stock, error)
	UploadImage(ctx context.Context, id uint, data []byte, filename, actor string) (*models.Stock, error)
}

type service struct {
	repo   Repository
	ledger tracking.Service
	blobs  storage.Store
	logg   *logger.Logger
}

// NewService wires a stock service with its dependencies.
func NewService(repo Repository, ledger tracking.Service, blobs storage.Store, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("tracking service required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob storage required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, ledger: ledger, blobs: blobs, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateStockInput, actor string) (*models.Stock, error) {
	taken, err := s.repo.ProductNameTaken(ctx, input.Product, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "checking product name")
	}
	if taken {
		return nil, apperrors.New(apperrors.CodeConflict, "a stock item with this product name already exists")
	}

	item := &models.Stock{
		StockID:  s.nextStockCode(ctx),
		Product:  input.Product,
		Category: input.Category,
		Quantity: input.Quantity,
		Cost:     input.Cost,
		Price:    input.Price,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, apperrors.New(apperrors.CodeConflict, "a stock item with this product name already exists")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating stock")
	}

	for _, shadeInput := range input.Shades {
		shade := newShadeFromInput(item.ID, shadeInput)
		if err := s.repo.SaveShade(ctx, shade); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating shade")
		}
	}

	item, err = s.findOne(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	s.ledger.Record(ctx, tracking.RecordInput{
		StockID:     item.StockID,
		Action:      enums.StockActionCreate,
		Description: fmt.Sprintf("Created stock: %s (%s) with %d shades", item.Product, item.StockID, len(item.Shades)),
		NewData:     stockSnapshot(item),
		PerformedBy: actor,
	})
	return item, nil
}

func (s *service) Get(ctx context.Context, id uint) (*models.Stock, error) {
	return s.findOne(ctx, id)
}

func (s *service) List(ctx context.Context) ([]models.Stock, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing stock")
	}
	return items, nil
}

func (s *service) Update(ctx context.Context, id uint, input UpdateStockInput, actor string) (*models.Stock, error) {
	item, err := s.findOne(ctx, id)
	if err != nil {
		return nil, err
	}
	oldData := stockSnapshot(item)

	if input.Product != nil && !strings.EqualFold(*input.Product, item.Product) {
		taken, err := s.repo.ProductNameTaken(ctx, *input.Product, id)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "checking product name")
		}
		if taken {
			return nil, apperrors.New(apperrors.CodeConflict, "another stock item already uses this product name")
		}
	}

	changes := applyStockFields(item, input)
	if len(changes) > 0 {
		if err := s.repo.Save(ctx, item); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "saving stock")
		}
	}

	if input.Shades != nil {
		shadeChanges, err := s.reconcileShades(ctx, item, *input.Shades, actor)
		if err != nil {
			return nil, err
		}
		changes = append(changes, shadeChanges...)
	}

	item, err = s.findOne(ctx, id)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Updated %s (no changes detected)", item.Product)
	if len(changes) > 0 {
		description = fmt.Sprintf("Updated %s (%s): %s", item.Product, item.StockID, strings.Join(changes, " | "))
	}

	s.ledger.Record(ctx, tracking.RecordInput{
		StockID:     item.StockID,
		Action:      enums.StockActionUpdate,
		Description: description,
		OldData:     oldData,
		NewData:     stockSnapshot(item),
		PerformedBy: actor,
	})
	return item, nil
}

func (s *service) Adjust(ctx context.Context, id uint, input AdjustStockInput, actor string) (*models.Stock, error) {
	item, err := s.findOne(ctx, id)
	if err != nil {
		return nil, err
	}
	oldData := stockSnapshot(item)
	oldQuantity := item.Quantity

	item.Quantity += input.Quantity
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "adjusting stock")
	}

	direction := "INCREMENT"
	if input.Quantity < 0 {
		direction = "DECREMENT"
	}
	units := input.Quantity
	if units < 0 {
		units = -units
	}
	notes := input.Notes
	if notes == "" {
		notes = "No notes provided"
	}

	s.ledger.Record(ctx, tracking.RecordInput{
		StockID: item.StockID,
		Action:  enums.StockActionAdjust,
		Description: fmt.Sprintf("Stock %s: %s | %d units | From: %d → To: %d | Notes: %s",
			direction, item.Product, units, oldQuantity, item.Quantity, notes),
		OldData:     oldData,
		NewData:     stockSnapshot(item),
		PerformedBy: actor,
	})
	return item, nil
}

func (s *service) Delete(ctx context.Context, id uint, actor string) error {
	item, err := s.findOne(ctx, id)
	if err != nil {
		return err
	}

	if item.HasImage() {
		if err := s.blobs.Delete(ctx, *item.ImagePath); err != nil {
			s.logg.Error(ctx, "failed to delete stock image blob", err)
		}
	}

	s.ledger.Record(ctx, tracking.RecordInput{
		StockID:     item.StockID,
		Action:      enums.StockActionDelete,
		Description: fmt.Sprintf("DELETED: %s (%s) and %d associated shades", item.Product, item.StockID, len(item.Shades)),
		OldData:     stockSnapshot(item),
		PerformedBy: actor,
	})

	if err := s.repo.Delete(ctx, item); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "deleting stock")
	}
	return nil
}

func (s *service) Search(ctx context.Context, name, category string) ([]models.Stock, error) {
	items, err := s.repo.Search(ctx, name, category)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "searching stock")
	}
	return items, nil
}

func (s *service) LowStock(ctx context.Context, threshold int) ([]models.Stock, error) {
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	items, err := s.repo.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing low stock")
	}
	return items, nil
}

func (s *service) UploadImage(ctx context.Context, id uint, data []byte, filename, actor string) (*models.Stock, error) {
	item, err := s.findOne(ctx, id)
	if err != nil {
		return nil, err
	}

	fingerprint, err := imagehash.Compute(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	blobName := fmt.Sprintf("%s-%s%s", item.StockID, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
	url, err := s.blobs.Put(ctx, data, imageFolder, blobName)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "storing stock image")
	}

	var oldPath string
	if item.HasImage() {
		oldPath = *item.ImagePath
	}

	item.ImagePath = &url
	item.ImageHash = &fingerprint
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "saving stock image")
	}

	if oldPath != "" && oldPath != url {
		if err := s.blobs.Delete(ctx, oldPath); err != nil {
			s.logg.Error(ctx, "failed to delete replaced stock image blob", err)
		}
	}

	s.ledger.Record(ctx, tracking.RecordInput{
		StockID:     item.StockID,
		Action:      enums.StockActionImageUpload,
		Description: "Image uploaded and indexed",
		OldData:     map[string]any{"imagePath": oldPath},
		NewData:     map[string]any{"imagePath": url},
		PerformedBy: actor,
	})
	return item, nil
}

func (s *service) findOne(ctx context.Context, id uint) (*models.Stock, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("stock with ID %d not found", id))
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading stock")
	}
	return item, nil
}

// nextStockCode extends the FH001, FH002, ... sequence. When the last code
// cannot be parsed a timestamp suffix keeps the new code unique.
func (s *service) nextStockCode(ctx context.Context) string {
	last, err := s.repo.LastStockCode(ctx, stockCodePrefix)
	if err != nil {
		if db.IsNotFound(err) {
			return fmt.Sprintf("%s%03d", stockCodePrefix, 1)
		}
		s.logg.Error(ctx, "failed to look up last stock code", err)
		return fallbackStockCode()
	}

	n, err := strconv.Atoi(strings.TrimPrefix(last, stockCodePrefix))
	if err != nil {
		return fallbackStockCode()
	}
	return fmt.Sprintf("%s%03d", stockCodePrefix, n+1)
}

func fallbackStockCode() string {
	ms := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return stockCodePrefix + ms[len(ms)-6:]
}

// applyStockFields copies non-nil fields onto the item and describes each
// change as "field: old → new".
func applyStockFields(item *models.Stock, input UpdateStockInput) []string {
	var changes []string

	if input.Product != nil && *input.Product != item.Product {
		changes = append(changes, fmt.Sprintf("product: %s → %s", item.Product, *input.Product))
		item.Product = *input.Product
	}
	if input.Category != nil && *input.Category != item.Category {
		changes = append(changes, fmt.Sprintf("category: %s → %s", item.Category, *input.Category))
		item.Category = *input.Category
	}
	if input.Quantity != nil && *input.Quantity != item.Quantity {
		diff := *input.Quantity - item.Quantity
		changes = append(changes, fmt.Sprintf("quantity: %d → %d (%+d)", item.Quantity, *input.Quantity, diff))
		item.Quantity = *input.Quantity
	}
	if input.Cost != nil && *input.Cost != item.Cost {
		changes = append(changes, fmt.Sprintf("cost: %v → %v", item.Cost, *input.Cost))
		item.Cost = *input.Cost
	}
	if input.Price != nil && *input.Price != item.Price {
		changes = append(changes, fmt.Sprintf("price: %v → %v", item.Price, *input.Price))
		item.Price = *input.Price
	}
	return changes
}

// reconcileShades makes the stored shade set match the payload: known IDs are
// updated, entries without an ID are created, and stored shades absent from
// the payload are removed. Every shade mutation records its own ledger entry
// with the shade as the snapshot, so shade-level movement stays traceable.
func (s *service) reconcileShades(ctx context.Context, item *models.Stock, inputs []ShadeInput, actor string) ([]string, error) {
	existing, err := s.repo.ListShades(ctx, item.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing shades")
	}

	existingByID := make(map[uint]*models.Shade, len(existing))
	for i := range existing {
		existingByID[existing[i].ID] = &existing[i]
	}
	processed := make(map[uint]bool, len(inputs))

	var created, updated, deleted int
	var details []string

	for _, input := range inputs {
		if input.ID != nil {
			shade, ok := existingByID[*input.ID]
			if !ok {
				continue
			}
			oldShade := shadeSnapshot(shade)
			if changes := applyShadeFields(shade, input); len(changes) > 0 {
				if err := s.repo.SaveShade(ctx, shade); err != nil {
					return nil, apperrors.Wrap(apperrors.CodeInternal, err, "updating shade")
				}
				updated++
				details = append(details, fmt.Sprintf("%s: %s", shade.ColorName, strings.Join(changes, ", ")))
				s.ledger.Record(ctx, tracking.RecordInput{
					StockID:     item.StockID,
					Action:      enums.StockActionUpdate,
					Description: fmt.Sprintf("Updated shade %s for stock %s", shade.ColorName, item.Product),
					OldData:     oldShade,
					NewData:     shadeSnapshot(shade),
					PerformedBy: actor,
				})
			}
			processed[*input.ID] = true
			continue
		}

		shade := newShadeFromInput(item.ID, input)
		if err := s.repo.SaveShade(ctx, shade); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating shade")
		}
		created++
		details = append(details, fmt.Sprintf("New shade: %s (%d)", shade.ColorName, shade.Quantity))
		s.ledger.Record(ctx, tracking.RecordInput{
			StockID:     item.StockID,
			Action:      enums.StockActionCreate,
			Description: fmt.Sprintf("Created shade %s for stock %s", shade.ColorName, item.Product),
			NewData:     shadeSnapshot(shade),
			PerformedBy: actor,
		})
	}

	for id, shade := range existingByID {
		if processed[id] {
			continue
		}
		if err := s.repo.DeleteShade(ctx, shade); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "deleting shade")
		}
		deleted++
		details = append(details, fmt.Sprintf("Deleted shade: %s", shade.ColorName))
		s.ledger.Record(ctx, tracking.RecordInput{
			StockID:     item.StockID,
			Action:      enums.StockActionDelete,
			Description: fmt.Sprintf("Deleted shade %s from stock %s", shade.ColorName, item.Product),
			OldData:     shadeSnapshot(shade),
			PerformedBy: actor,
		})
	}

	if created == 0 && updated == 0 && deleted == 0 {
		return nil, nil
	}
	changes := []string{fmt.Sprintf("Shades: %d created, %d updated, %d deleted", created, updated, deleted)}
	return append(changes, details...), nil
}

func applyShadeFields(shade *models.Shade, input ShadeInput) []string {
	var changes []string

	if input.Quantity != shade.Quantity {
		diff := input.Quantity - shade.Quantity
		changes = append(changes, fmt.Sprintf("quantity: %d → %d (%+d)", shade.Quantity, input.Quantity, diff))
		shade.Quantity = input.Quantity
	}
	if input.ColorName != "" && input.ColorName != shade.ColorName {
		changes = append(changes, fmt.Sprintf("colorName: %s → %s", shade.ColorName, input.ColorName))
		shade.ColorName = input.ColorName
	}
	if input.Color != "" && input.Color != shade.Color {
		changes = append(changes, fmt.Sprintf("color: %s → %s", shade.Color, input.Color))
		shade.Color = input.Color
	}
	if input.Unit != "" && input.Unit != shade.Unit {
		shade.Unit = input.Unit
		changes = append(changes, "unit updated")
	}
	if input.Length != 0 && input.Length != shade.Length {
		shade.Length = input.Length
		changes = append(changes, "length updated")
	}
	if input.LengthUnit != "" && input.LengthUnit != shade.LengthUnit {
		shade.LengthUnit = input.LengthUnit
		changes = append(changes, "length unit updated")
	}
	return changes
}

func newShadeFromInput(stockID uint, input ShadeInput) *models.Shade {
	shade := &models.Shade{
		StockID:    stockID,
		ColorName:  input.ColorName,
		Color:      input.Color,
		Quantity:   input.Quantity,
		Unit:       input.Unit,
		Length:     input.Length,
		LengthUnit: input.LengthUnit,
	}
	if shade.Color == "" {
		shade.Color = defaultShadeColor
	}
	if shade.Unit == "" {
		shade.Unit = defaultShadeUnit
	}
	if shade.LengthUnit == "" {
		shade.LengthUnit = defaultShadeLengthUnit
	}
	return shade
}

// shadeSnapshot renders one shade for ledger storage. The top-level
// colorName is what marks the entry as shade-level downstream.
func shadeSnapshot(shade *models.Shade) map[string]any {
	return map[string]any{
		"id":         shade.ID,
		"stockId":    shade.StockID,
		"colorName":  shade.ColorName,
		"color":      shade.Color,
		"quantity":   shade.Quantity,
		"unit":       shade.Unit,
		"length":     shade.Length,
		"lengthUnit": shade.LengthUnit,
		"createdAt":  shade.CreatedAt,
		"updatedAt":  shade.UpdatedAt,
	}
}

// stockSnapshot renders the full aggregate for ledger storage.
func stockSnapshot(item *models.Stock) map[string]any {
	shades := make([]map[string]any, 0, len(item.Shades))
	for _, shade := range item.Shades {
		shades = append(shades, map[string]any{
			"id":         shade.ID,
			"colorName":  shade.ColorName,
			"color":      shade.Color,
			"quantity":   shade.Quantity,
			"unit":       shade.Unit,
			"length":     shade.Length,
			"lengthUnit": shade.LengthUnit,
			"createdAt":  shade.CreatedAt,
			"updatedAt":  shade.UpdatedAt,
		})
	}

	return map[string]any{
		"id":        item.ID,
		"stockId":   item.StockID,
		"product":   item.Product,
		"category":  item.Category,
		"quantity":  item.Quantity,
		"cost":      item.Cost,
		"price":     item.Price,
		"imagePath": item.ImagePath,
		"imageHash": item.ImageHash,
		"createdAt": item.CreatedAt,
		"updatedAt": item.UpdatedAt,
		"shades":    shades,
	}
}
