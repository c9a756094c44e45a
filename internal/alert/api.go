package alert

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vitalwatch/platform/internal/shared/auth"
	"github.com/vitalwatch/platform/internal/shared/errors"
	"github.com/vitalwatch/platform/internal/shared/types"
)

// Handler provides HTTP handlers for alerts
type Handler struct {
	repo    *Repository
	service *Service
}

// NewHandler creates a new alert handler
func NewHandler(repo *Repository, service *Service) *Handler {
	return &Handler{repo: repo, service: service}
}

// Routes registers the alert routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)

	r.Route("/{alertID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/acknowledge", h.Acknowledge)
		r.Post("/resolve", h.Resolve)
	})

	return r
}

// List lists alerts matching query filters
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListAlertsFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		status := Status(s)
		if status != StatusOpen && status != StatusAcknowledged && status != StatusResolved {
			writeError(w, errors.BadRequest("invalid status filter"))
			return
		}
		filter.Status = &status
	}
	if p := r.URL.Query().Get("patient_id"); p != "" {
		id, err := types.ParseID(p)
		if err != nil {
			writeError(w, errors.BadRequest("invalid patient ID"))
			return
		}
		filter.PatientID = &id
	}
	if s := r.URL.Query().Get("sector"); s != "" {
		filter.Sector = &s
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if limit, err := strconv.Atoi(l); err == nil {
			filter.Limit = limit
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if offset, err := strconv.Atoi(o); err == nil {
			filter.Offset = offset
		}
	}

	alerts, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  alerts,
		"total": total,
	})
}

// Get gets an alert by ID
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "alertID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid alert ID"))
		return
	}

	a, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// Acknowledge marks an alert as owned by the calling care-team member
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "alertID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid alert ID"))
		return
	}

	var req AcknowledgeRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	if req.AcknowledgedBy == "" {
		if user := auth.GetUser(r.Context()); user != nil {
			req.AcknowledgedBy = user.ID.String()
		}
	}
	if req.AcknowledgedBy == "" {
		writeError(w, errors.BadRequest("acknowledged_by is required"))
		return
	}

	a, err := h.service.Acknowledge(r.Context(), id, req.AcknowledgedBy)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// Resolve closes an alert
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "alertID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid alert ID"))
		return
	}

	a, err := h.service.Resolve(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
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
