package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gh-intel/internal/container"
	"gh-intel/internal/domain"
	"gh-intel/internal/service"
	"gh-intel/pkg/errors"
)

// TrafficHandler handles repository traffic report requests
type TrafficHandler struct {
	container *container.Container
}

// NewTrafficHandler creates a new traffic handler
func NewTrafficHandler(container *container.Container) *TrafficHandler {
	return &TrafficHandler{
		container: container,
	}
}

// TrafficReportResponseWrapper wraps the full traffic report response
type TrafficReportResponseWrapper struct {
	Data    *domain.TrafficReport `json:"data"`
	Success bool                  `json:"success"`
	Message string                `json:"message"`
}

// SeriesResponse carries one traffic dimension (views or clones) with its daily series
type SeriesResponse struct {
	Repository *domain.RepositoryInfo `json:"repository,omitempty"`
	Window     domain.ReportWindow    `json:"window"`
	Summary    domain.TrafficSummary  `json:"summary"`
	UniqueRate float64                `json:"unique_rate"`
	Days       []domain.DailyCount    `json:"days"`
}

// RankingResponse carries a ranked listing (referrers or paths)
type RankingResponse struct {
	Repository *domain.RepositoryInfo `json:"repository,omitempty"`
	Window     domain.ReportWindow    `json:"window"`
	Entries    domain.RankedList      `json:"entries"`
}

// GetReport handles GET /api/traffic/{owner}/{repo}
func (h *TrafficHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	opts, err := h.reportOptions(r, true)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")

	report, buildErr := h.container.GetReportService().BuildReport(r.Context(), owner, repo, opts)
	if buildErr != nil {
		h.writeBuildError(w, buildErr)
		return
	}

	response := TrafficReportResponseWrapper{
		Data:    report,
		Success: true,
		Message: "Traffic report generated successfully",
	}

	h.respondJSON(w, http.StatusOK, response)

	logger.WithFields(map[string]interface{}{
		"owner": owner,
		"repo":  repo,
	}).Info("Traffic report served")
}

// GetViews handles GET /api/traffic/{owner}/{repo}/views
func (h *TrafficHandler) GetViews(w http.ResponseWriter, r *http.Request) {
	report := h.buildForRequest(w, r, service.ReportOptions{
		IncludeSeries: true,
		SkipCache:     h.skipCache(r),
	})
	if report == nil {
		return
	}

	h.respondData(w, &SeriesResponse{
		Repository: report.Repository,
		Window:     report.Window,
		Summary:    report.Views,
		UniqueRate: report.ViewUniqueRate,
		Days:       report.ViewSeries,
	}, "View traffic retrieved successfully")
}

// GetClones handles GET /api/traffic/{owner}/{repo}/clones
func (h *TrafficHandler) GetClones(w http.ResponseWriter, r *http.Request) {
	report := h.buildForRequest(w, r, service.ReportOptions{
		IncludeSeries: true,
		SkipCache:     h.skipCache(r),
	})
	if report == nil {
		return
	}

	h.respondData(w, &SeriesResponse{
		Repository: report.Repository,
		Window:     report.Window,
		Summary:    report.Clones,
		UniqueRate: report.CloneUniqueRate,
		Days:       report.CloneSeries,
	}, "Clone traffic retrieved successfully")
}

// GetReferrers handles GET /api/traffic/{owner}/{repo}/referrers
func (h *TrafficHandler) GetReferrers(w http.ResponseWriter, r *http.Request) {
	opts, optErr := h.reportOptions(r, false)
	if optErr != nil {
		h.writeErrorResponse(w, optErr)
		return
	}

	report := h.buildForRequest(w, r, opts)
	if report == nil {
		return
	}

	h.respondData(w, &RankingResponse{
		Repository: report.Repository,
		Window:     report.Window,
		Entries:    report.TopReferrers,
	}, "Top referrers retrieved successfully")
}

// GetPaths handles GET /api/traffic/{owner}/{repo}/paths
func (h *TrafficHandler) GetPaths(w http.ResponseWriter, r *http.Request) {
	opts, optErr := h.reportOptions(r, false)
	if optErr != nil {
		h.writeErrorResponse(w, optErr)
		return
	}

	report := h.buildForRequest(w, r, opts)
	if report == nil {
		return
	}

	h.respondData(w, &RankingResponse{
		Repository: report.Repository,
		Window:     report.Window,
		Entries:    report.TopPaths,
	}, "Popular paths retrieved successfully")
}

// Helper methods

// buildForRequest builds a report for the request's owner/repo and writes the
// error response itself on failure, returning nil in that case.
func (h *TrafficHandler) buildForRequest(w http.ResponseWriter, r *http.Request, opts service.ReportOptions) *domain.TrafficReport {
	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")

	report, err := h.container.GetReportService().BuildReport(r.Context(), owner, repo, opts)
	if err != nil {
		h.writeBuildError(w, err)
		return nil
	}

	return report
}

// reportOptions parses shared query parameters. allowSeries controls whether
// the "series" parameter is honored (the full report endpoint only).
func (h *TrafficHandler) reportOptions(r *http.Request, allowSeries bool) (service.ReportOptions, *errors.AppError) {
	opts := service.ReportOptions{
		SkipCache: h.skipCache(r),
	}

	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return opts, errors.NewValidationError("Query parameter 'n' must be an integer", map[string]interface{}{
				"field": "n",
				"value": raw,
			})
		}
		opts.TopN = n
	}

	if allowSeries {
		series := r.URL.Query().Get("series")
		opts.IncludeSeries = series == "true" || series == "1"
	}

	return opts, nil
}

func (h *TrafficHandler) skipCache(r *http.Request) bool {
	refresh := r.URL.Query().Get("refresh")
	return refresh == "true" || refresh == "1"
}

func (h *TrafficHandler) respondData(w http.ResponseWriter, data interface{}, message string) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":    data,
		"success": true,
		"message": message,
	})
}

func (h *TrafficHandler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	logger := h.container.GetLogger()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("Failed to encode response")
	}
}

func (h *TrafficHandler) writeBuildError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		h.writeErrorResponse(w, appErr)
		return
	}
	h.writeErrorResponse(w, errors.NewInternalError("Failed to build traffic report", err))
}

// writeErrorResponse writes an error response to the client
func (h *TrafficHandler) writeErrorResponse(w http.ResponseWriter, appErr *errors.AppError) {
	logger := h.container.GetLogger()
	logger.WithError(appErr).Error("Request error")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	response := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"type":    string(appErr.Type),
			"message": appErr.Message,
		},
	}

	if appErr.Details != nil {
		response["error"].(map[string]interface{})["details"] = appErr.Details
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.WithError(err).Error("Failed to encode error response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
