package controllers

import (
	"net/http"

	"github.com/fabrichouse/inventory-backend/api/responses"
	"github.com/fabrichouse/inventory-backend/api/validators"
	"github.com/fabrichouse/inventory-backend/internal/analytics"
	"github.com/fabrichouse/inventory-backend/pkg/logger"
)

const maxAlertThreshold = 100000

// StockSummary derives the activity summary of one item from its ledger.
func StockSummary(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := stockIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.SummaryForStock(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func PortfolioSummary(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.PortfolioSummary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// StockAlerts builds the replenishment report. Thresholds default when the
// query parameters are absent.
func StockAlerts(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shadeLow, err := validators.ParseQueryInt(r, "shadeLow", 0, 0, maxAlertThreshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shadeHigh, err := validators.ParseQueryInt(r, "shadeHigh", 0, 0, maxAlertThreshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stockLow, err := validators.ParseQueryInt(r, "stockLow", 0, 0, maxAlertThreshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Alerts(r.Context(), analytics.AlertThresholds{
			ShadeLow:  shadeLow,
			ShadeHigh: shadeHigh,
			StockLow:  stockLow,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
