package roster

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vitalwatch/platform/internal/shared/errors"
	"github.com/vitalwatch/platform/internal/triage"
)

// Handler provides HTTP handlers for the triage roster
type Handler struct {
	service *Service
	engine  *triage.Engine
}

// NewHandler creates a new roster handler
func NewHandler(service *Service, engine *triage.Engine) *Handler {
	return &Handler{service: service, engine: engine}
}

// Routes registers the roster routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Snapshot)
	r.Get("/shortages", h.Shortages)
	r.Get("/export", h.Export)
	r.Get("/sync-policy/{stabilityIndex}", h.SyncPolicy)
	r.Post("/classify", h.Classify)

	return r
}

// Snapshot returns the current roster, ordered critical first.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Shortages returns the current sector shortage predictions.
func (h *Handler) Shortages(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generated_at": snap.GeneratedAt,
		"data":         snap.Shortages,
	})
}

// SyncPolicy derives the telemetry cadence for a given stability index.
func (h *Handler) SyncPolicy(w http.ResponseWriter, r *http.Request) {
	stability, err := strconv.Atoi(chi.URLParam(r, "stabilityIndex"))
	if err != nil {
		writeError(w, errors.BadRequest("stability index must be an integer"))
		return
	}

	policy, err := h.engine.SyncPolicy(stability)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

// ClassifyRequest carries one scored reading to classify.
type ClassifyRequest struct {
	StabilityIndex int `json:"stabilityIndex"`
	News2Score     int `json:"news2Score"`
}

// ClassifyResponse is the derived category and sync policy for a reading.
type ClassifyResponse struct {
	Category   triage.StatusCategory `json:"category"`
	SyncPolicy triage.SyncPolicy     `json:"syncPolicy"`
}

// Classify derives category and sync policy for an ad-hoc reading. Used by
// the portals to preview triage outcomes without touching the roster.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	category, err := h.engine.Classify(req.StabilityIndex, req.News2Score)
	if err != nil {
		writeError(w, err)
		return
	}
	policy, err := h.engine.SyncPolicy(req.StabilityIndex)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ClassifyResponse{
		Category:   category,
		SyncPolicy: policy,
	})
}

// Export streams the current roster as an xlsx workbook.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := ExportXLSX(snap)
	if err != nil {
		writeError(w, errors.Internal(err))
		return
	}

	filename := fmt.Sprintf("roster-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
