package controllers

import (
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fabrichouse/inventory-backend/api/middleware"
	"github.com/fabrichouse/inventory-backend/api/responses"
	"github.com/fabrichouse/inventory-backend/api/validators"
	"github.com/fabrichouse/inventory-backend/internal/imagesearch"
	stocksvc "github.com/fabrichouse/inventory-backend/internal/stock"
	pkgerrors "github.com/fabrichouse/inventory-backend/pkg/errors"
	"github.com/fabrichouse/inventory-backend/pkg/logger"
)

const (
	maxUploadBytes    = 10 << 20
	uploadFieldName   = "image"
	maxSearchResults  = 500
	lowStockThreshold = 1000
)

func stockIDParam(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "stockId")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock id").WithDetails(map[string]any{"stockId": raw})
	}
	return uint(id), nil
}

// StockCreate registers a new stock item with its shades.
func StockCreate(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload stocksvc.CreateStockInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), payload, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func StockList(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func StockDetail(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := stockIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func StockUpdate(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := stockIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload stocksvc.UpdateStockInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), id, payload, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// StockAdjust moves the aggregate quantity by a signed delta.
func StockAdjust(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := stockIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload stocksvc.AdjustStockInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Adjust(r.Context(), id, payload, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func StockDelete(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := stockIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id, middleware.ActorFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// StockSearch filters by product name and category substrings.
func StockSearch(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.URL.Query().Get("name"))
		category := strings.TrimSpace(r.URL.Query().Get("category"))

		items, err := svc.Search(r.Context(), name, category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func StockLow(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threshold, err := validators.ParseQueryInt(r, "threshold", 0, 0, lowStockThreshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.LowStock(r.Context(), threshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// StockImageUpload stores a photo for the item and indexes its fingerprint.
func StockImageUpload(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := stockIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		data, filename, err := readUpload(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UploadImage(r.Context(), id, data, filename, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// StockSearchByPhoto matches an uploaded photo against the inventory. The
// upload is spooled to a temp file the search service cleans up.
func StockSearchByPhoto(svc imagesearch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, _, err := readUpload(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tmp, err := os.CreateTemp("", "fh-search-*")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "spooling search image"))
			return
		}
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "spooling search image"))
			return
		}
		tmp.Close()

		result, err := svc.SearchByImage(r.Context(), tmp.Name())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(result.Matches) > maxSearchResults {
			result.Matches = result.Matches[:maxSearchResults]
		}
		responses.WriteSuccess(w, result)
	}
}

func readUpload(r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart upload")
	}

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image file is required").WithDetails(map[string]any{"field": uploadFieldName})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading upload")
	}
	if len(data) == 0 {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "image file is empty")
	}
	return data, header.Filename, nil
}
