package layout

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hunt-tickets/venuemap/internal/auth"
	"github.com/hunt-tickets/venuemap/internal/document"
)

const maxLayoutBytes = 8 << 20

// Handler serves the layout REST endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a new layout handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get returns the event's layout, or a fresh empty one if none is stored.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]

	doc, err := h.service.Open(r.Context(), eventID, r.URL.Query().Get("name"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// Put saves the layout in the request body for the event in the path.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	eventID := mux.Vars(r)["eventId"]

	var doc document.VenueMap
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLayoutBytes)).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if doc.EventID != "" && doc.EventID != eventID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "eventId does not match path"})
		return
	}
	doc.EventID = eventID

	rec, err := h.service.Save(r.Context(), userID, &doc)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Delete removes the event's layout.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]

	if err := h.service.Delete(r.Context(), eventID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Summary returns zone, seat and capacity totals for the event's layout.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]

	sum, err := h.service.Summary(r.Context(), eventID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sum)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
