package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/meridian/commerce-insights/internal/cache"
	"github.com/meridian/commerce-insights/internal/config"
	"github.com/meridian/commerce-insights/internal/dataset"
	"github.com/meridian/commerce-insights/internal/metrics"
	"github.com/meridian/commerce-insights/internal/pipeline"
	"github.com/meridian/commerce-insights/internal/pkg/logger"
	"github.com/meridian/commerce-insights/internal/sales"
)

// Handlers serves the finished report and sales summary to the external
// presentation layer. It holds one loaded ProcessedData and transparently
// reloads it when the source files change (detected by signature).
type Handlers struct {
	cfg         *config.Config
	reportCache *cache.ReportCache

	mu   sync.Mutex
	data *pipeline.ProcessedData
}

// NewHandlers creates the handler set over an initial data load.
func NewHandlers(cfg *config.Config, data *pipeline.ProcessedData, reportCache *cache.ReportCache) *Handlers {
	return &Handlers{cfg: cfg, data: data, reportCache: reportCache}
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"cache_enabled": h.reportCache.Enabled(),
	})
}

// currentData returns up-to-date processed tables, reloading when the source
// signature no longer matches the in-memory copy.
func (h *Handlers) currentData(r *http.Request) (*pipeline.ProcessedData, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	source, err := pipeline.NewSource(r.Context(), h.cfg)
	if err != nil {
		return nil, err
	}
	signature, err := source.Signature(r.Context())
	if err != nil {
		return nil, err
	}
	if h.data != nil && h.data.Signature == signature {
		return h.data, nil
	}

	logger.Info("source files changed, reloading tables", "signature", signature)
	_, data, err := pipeline.LoadAndProcessData(r.Context(), h.cfg)
	if err != nil {
		return nil, err
	}
	h.data = data
	return data, nil
}

// GetReport returns the comprehensive KPI report for the requested analysis
// window, memoized by (source signature, year, month, comparison year).
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	year := h.cfg.Analysis.AnalysisYear
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		year = parsed
	}

	comparison := h.cfg.Analysis.ComparisonYear
	if v := r.URL.Query().Get("comparison"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "comparison must be an integer")
			return
		}
		comparison = &parsed
	}

	month, ok := parseMonthParam(w, r, h.cfg)
	if !ok {
		return
	}

	data, err := h.currentData(r)
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	key := cache.Key(data.Signature, year, month, comparison)
	if report, hit := h.reportCache.GetReport(r.Context(), key); hit {
		respondJSON(w, http.StatusOK, report)
		return
	}

	// The calculator filters by year itself, so build the dataset for the
	// union of both years and let it slice.
	records, err := h.datasetForYears(data, year, comparison, month)
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	report := metrics.NewCalculator(records).GenerateComprehensiveReport(year, comparison)
	h.reportCache.SetReport(r.Context(), key, report)
	respondJSON(w, http.StatusOK, report)
}

// datasetForYears builds sales records for the analysis year and, when a
// comparison year is set, appends that year's records so YoY figures come
// from the same dataset.
func (h *Handlers) datasetForYears(data *pipeline.ProcessedData, year int, comparison *int, month *int) ([]sales.Record, error) {
	records, err := data.CreateSalesDataset(sales.Filters{Year: year, Month: month})
	if err != nil {
		return nil, err
	}
	if comparison != nil && *comparison != year {
		prev, err := data.CreateSalesDataset(sales.Filters{Year: *comparison, Month: month})
		if err != nil {
			return nil, err
		}
		records = append(records, prev...)
	}
	return records, nil
}

// GetSalesSummary returns dataset row counts and data-quality diagnostics
// for the requested window.
func (h *Handlers) GetSalesSummary(w http.ResponseWriter, r *http.Request) {
	year := h.cfg.Analysis.AnalysisYear
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		year = parsed
	}

	month, ok := parseMonthParam(w, r, h.cfg)
	if !ok {
		return
	}

	data, err := h.currentData(r)
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	_, stats, err := data.CreateSalesDatasetWithStats(sales.Filters{Year: year, Month: month})
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":  data.RunID,
		"year":    year,
		"month":   month,
		"join":    stats,
		"quality": data.Quality,
	})
}

func parseMonthParam(w http.ResponseWriter, r *http.Request, cfg *config.Config) (*int, bool) {
	month := cfg.Analysis.AnalysisMonth
	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 12 {
			respondError(w, http.StatusBadRequest, "month must be an integer 1-12")
			return nil, false
		}
		month = &parsed
	}
	return month, true
}

// respondPipelineError maps pipeline error taxonomy to HTTP statuses: fatal
// data errors surface as 502 (bad upstream extracts), everything else 500.
func respondPipelineError(w http.ResponseWriter, err error) {
	var loadErr *dataset.LoadError
	var schemaErr *dataset.SchemaError
	var joinErr *sales.JoinIntegrityError
	switch {
	case errors.As(err, &loadErr), errors.As(err, &schemaErr), errors.As(err, &joinErr):
		logger.Error("pipeline data error", "error", err)
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("pipeline failure", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
