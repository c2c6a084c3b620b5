package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/hunt-tickets/venuemap/internal/document"
	"github.com/hunt-tickets/venuemap/internal/engine"
	"github.com/hunt-tickets/venuemap/internal/layout"
)

const (
	defaultPreviewWidth  = 1200
	defaultPreviewHeight = 800
	minPreviewSize       = 64
	maxPreviewSize       = 4096
)

// Loader fetches the stored layout of an event.
type Loader interface {
	Get(ctx context.Context, eventID string) (*document.VenueMap, error)
}

// Handler serves PNG previews of stored layouts.
type Handler struct {
	layouts Loader
	cache   Cache
}

// NewHandler serves previews of stored layouts. cache may be nil.
func NewHandler(layouts Loader, cache Cache) *Handler {
	return &Handler{layouts: layouts, cache: cache}
}

// PreviewCommands renders doc fitted to the size, without selection.
func PreviewCommands(doc *document.VenueMap, width, height int) []engine.DrawCommand {
	view := *doc
	view.SelectedIDs = nil
	view.Viewport = engine.FitViewport(doc.Canvas, float64(width), float64(height))
	return engine.Render(&view, engine.Overlay{}, float64(width), float64(height))
}

// RenderPNG fits the document into a width x height image and encodes it
// as PNG.
func RenderPNG(w io.Writer, doc *document.VenueMap, width, height int) error {
	img := Rasterize(PreviewCommands(doc, width, height), width, height)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Preview handles GET /api/events/{eventId}/layout/preview.png.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]

	width, err := sizeParam(r, "w", defaultPreviewWidth)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	height, err := sizeParam(r, "h", defaultPreviewHeight)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	doc, err := h.layouts.Get(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, layout.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		slog.Error("load layout for preview", "error", err, "event", eventID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	variant := fmt.Sprintf("%d:%dx%d", doc.LastModified, width, height)
	if h.cache != nil {
		data, ok, err := h.cache.Get(r.Context(), eventID, variant)
		if err != nil {
			slog.Warn("preview cache read failed", "error", err, "event", eventID)
		}
		if ok {
			writePNG(w, data, "hit")
			return
		}
	}

	var buf bytes.Buffer
	if err := RenderPNG(&buf, doc, width, height); err != nil {
		slog.Error("render preview", "error", err, "event", eventID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), eventID, variant, buf.Bytes()); err != nil {
			slog.Warn("preview cache write failed", "error", err, "event", eventID)
		}
	}
	writePNG(w, buf.Bytes(), "miss")
}

func sizeParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < minPreviewSize || v > maxPreviewSize {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, minPreviewSize, maxPreviewSize)
	}
	return v, nil
}

func writePNG(w http.ResponseWriter, data []byte, cacheStatus string) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Preview-Cache", cacheStatus)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
