package patient

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vitalwatch/platform/internal/shared/auth"
	"github.com/vitalwatch/platform/internal/shared/errors"
	"github.com/vitalwatch/platform/internal/shared/events"
	"github.com/vitalwatch/platform/internal/shared/types"
)

// Handler provides HTTP handlers for the patient registry
type Handler struct {
	repo *Repository
	bus  *events.Bus
}

// NewHandler creates a new patient handler
func NewHandler(repo *Repository, bus *events.Bus) *Handler {
	return &Handler{repo: repo, bus: bus}
}

// Routes registers the patient routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/sectors", h.Sectors)

	r.Route("/{patientID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})

	return r
}

// List lists patients matching query filters
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListPatientsFilter{
		Search: r.URL.Query().Get("search"),
	}

	if s := r.URL.Query().Get("sector"); s != "" {
		filter.Sector = &s
	}
	if c := r.URL.Query().Get("condition"); c != "" {
		filter.Condition = &c
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

	patients, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  patients,
		"total": total,
	})
}

// Get gets a patient by ID
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// Create registers a new patient
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	mrn, err := types.ParseMRN(req.MRN)
	if err != nil {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"mrn": err.Error(),
		}))
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"first_name": "first_name is required",
			"last_name":  "last_name is required",
		}))
		return
	}
	if req.Age < 0 || req.Age > 150 {
		writeError(w, errors.Validation("validation failed", map[string]string{
			"age": "age must be between 0 and 150",
		}))
		return
	}

	p := &Patient{
		ID:        types.NewID(),
		MRN:       mrn,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Age:       req.Age,
		Condition: req.Condition,
		Sector:    req.Sector,
	}

	if err := h.repo.Create(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}

	h.publish(r, "patient.registered", map[string]any{
		"patient_id": p.ID,
		"mrn":        p.MRN.Masked(),
		"sector":     p.Sector,
	})

	writeJSON(w, http.StatusCreated, p)
}

// Update updates a patient
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	// Apply updates
	if req.FirstName != nil {
		p.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		p.LastName = *req.LastName
	}
	if req.Age != nil {
		p.Age = *req.Age
	}
	if req.Condition != nil {
		p.Condition = *req.Condition
	}
	if req.Sector != nil {
		p.Sector = *req.Sector
	}

	if err := h.repo.Update(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}

	h.publish(r, "patient.updated", map[string]any{
		"patient_id": p.ID,
		"sector":     p.Sector,
	})

	writeJSON(w, http.StatusOK, p)
}

// Delete removes a patient
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Sectors lists distinct sectors in the registry
func (h *Handler) Sectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := h.repo.Sectors(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": sectors})
}

func (h *Handler) publish(r *http.Request, eventType string, data map[string]any) {
	if h.bus == nil {
		return
	}

	event := events.NewEvent(eventType, "patient-api", data)
	if user := auth.GetUser(r.Context()); user != nil {
		event = event.WithActor(user.ID, user.UserType)
	}

	h.bus.Publish(r.Context(), event)
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
