// Package handlers contains the HTTP handler implementations for the
// Clearwater API: station listing, current status, and status history.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clearwater/internal/core"
	"clearwater/internal/types"
)

// StatusServiceInterface defines the status-engine contract the handler
// needs. Defined locally to avoid tight coupling to the status package.
type StatusServiceInterface interface {
	CurrentStatus(ctx context.Context, stationCode string, asOf *time.Time) (*types.StatusResult, error)
	History(ctx context.Context, stationCode string) ([]types.Segment, error)
}

// StationStore lists station metadata. Implemented by db.StationRepository.
type StationStore interface {
	ListStations(ctx context.Context) ([]types.Station, error)
}

// StationHandler maps HTTP requests to the status service.
type StationHandler struct {
	service  StatusServiceInterface
	stations StationStore
	logger   *slog.Logger
}

// NewStationHandler creates a StationHandler with the provided dependencies.
func NewStationHandler(svc StatusServiceInterface, stations StationStore, logger *slog.Logger) *StationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StationHandler{
		service:  svc,
		stations: stations,
		logger:   logger,
	}
}

// RegisterRoutes mounts the station endpoints onto the mux.
func (h *StationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/stations", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/{code}/status", h.HandleStatus)
		r.Get("/{code}/history", h.HandleHistory)
	})
}

// statusResponse is the body for GET /v1/stations/{code}/status.
type statusResponse struct {
	StationCode string       `json:"station_code"`
	AsOf        string       `json:"as_of"`
	Status      types.Status `json:"status"`
	Reasons     []string     `json:"reasons"`
}

// historyResponse is the body for GET /v1/stations/{code}/history.
type historyResponse struct {
	StationCode string          `json:"station_code"`
	Segments    []types.Segment `json:"segments"`
}

// HandleList handles GET /v1/stations.
func (h *StationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	stations, err := h.stations.ListStations(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if stations == nil {
		stations = []types.Station{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: stations})
}

// HandleStatus handles GET /v1/stations/{code}/status. An optional as_of
// query parameter (YYYY-MM-DD) evaluates the status at a past date; the
// default is today.
func (h *StationHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidStation,
			"station code is required",
			nil,
		))
		return
	}

	var asOf *time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationInvalidDate,
				"as_of must be a date in YYYY-MM-DD format",
				nil,
			))
			return
		}
		asOf = &parsed
	}

	result, err := h.service.CurrentStatus(r.Context(), code, asOf)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	asOfLabel := time.Now().UTC().Format("2006-01-02")
	if asOf != nil {
		asOfLabel = asOf.Format("2006-01-02")
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: statusResponse{
		StationCode: code,
		AsOf:        asOfLabel,
		Status:      result.Status,
		Reasons:     result.Reasons,
	}})
}

// HandleHistory handles GET /v1/stations/{code}/history, returning the
// change-point-compressed status series for the station's full record.
func (h *StationHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidStation,
			"station code is required",
			nil,
		))
		return
	}

	segments, err := h.service.History(r.Context(), code)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if segments == nil {
		segments = []types.Segment{}
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: historyResponse{
		StationCode: code,
		Segments:    segments,
	}})
}
