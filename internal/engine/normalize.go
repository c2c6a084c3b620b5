package engine

import (
	"math"
	"sort"

	"github.com/hunt-tickets/venuemap/internal/document"
)

// MinElementSize is the smallest width or height a stored element may have.
const MinElementSize = 1.0

// MinGridSize is the smallest grid spacing, in canvas units.
const MinGridSize = 1.0

// Normalize fills defaults and repairs a loaded document so that every
// invariant holds: no orphans between elements and elementOrder, selection
// within elements, sizes at least 1, opacity in [0,1], zoom > 0 and a
// history index inside the history.
func Normalize(doc *document.VenueMap) {
	def := document.NewEmptyVenueMap(doc.ID, doc.EventID, doc.Name)
	if doc.Name == "" {
		doc.Name = def.Name
	}
	if doc.Canvas.Width <= 0 || doc.Canvas.Height <= 0 {
		doc.Canvas.Width, doc.Canvas.Height = def.Canvas.Width, def.Canvas.Height
	}
	if doc.Canvas.BackgroundColor == "" {
		doc.Canvas.BackgroundColor = def.Canvas.BackgroundColor
	}
	if doc.Canvas.GridSize <= 0 || math.IsNaN(doc.Canvas.GridSize) {
		doc.Canvas.GridSize = def.Canvas.GridSize
	}
	doc.Canvas.GridSize = math.Max(doc.Canvas.GridSize, MinGridSize)
	if doc.Viewport.Zoom <= 0 || math.IsNaN(doc.Viewport.Zoom) {
		doc.Viewport.Zoom = 1
	}
	doc.Viewport.Zoom = ClampZoom(doc.Viewport.Zoom)

	if doc.Elements == nil {
		doc.Elements = map[string]document.Element{}
	}
	for id, el := range doc.Elements {
		el.ID = id
		doc.Elements[id] = clampElement(el)
	}
	repairReferences(doc)

	if doc.History == nil {
		doc.History = []document.HistoryEntry{}
	}
	if len(doc.History) == 0 {
		doc.HistoryIndex = -1
	} else if doc.HistoryIndex < 0 || doc.HistoryIndex >= len(doc.History) {
		doc.HistoryIndex = len(doc.History) - 1
	}
}

// repairReferences drops dangling or duplicate ids from elementOrder and the
// selection, and appends elements missing from elementOrder.
func repairReferences(doc *document.VenueMap) {
	if doc.Elements == nil {
		doc.Elements = map[string]document.Element{}
	}

	seen := make(map[string]bool, len(doc.Elements))
	order := make([]string, 0, len(doc.Elements))
	for _, id := range doc.ElementOrder {
		if _, ok := doc.Elements[id]; !ok || seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)
	}

	var missing []string
	for id := range doc.Elements {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		a, b := doc.Elements[missing[i]], doc.Elements[missing[j]]
		if a.ZIndex != b.ZIndex {
			return a.ZIndex < b.ZIndex
		}
		return a.ID < b.ID
	})
	doc.ElementOrder = append(order, missing...)

	doc.SelectedIDs = filterIDs(doc, doc.SelectedIDs)
}

// filterIDs keeps ids that exist in the document, once each, in input order.
func filterIDs(doc *document.VenueMap, ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := doc.Elements[id]; !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func clampElement(el document.Element) document.Element {
	t := &el.Transform
	if t.Width < MinElementSize || math.IsNaN(t.Width) {
		t.Width = MinElementSize
	}
	if t.Height < MinElementSize || math.IsNaN(t.Height) {
		t.Height = MinElementSize
	}
	if t.ScaleX == 0 {
		t.ScaleX = 1
	}
	if t.ScaleY == 0 {
		t.ScaleY = 1
	}

	s := &el.Style
	s.Opacity = clamp01(s.Opacity)
	if s.StrokeWidth < 0 {
		s.StrokeWidth = 0
	}
	if s.BorderRadius < 0 {
		s.BorderRadius = 0
	}

	if el.Type == "" {
		el.Type = document.ElementTypeZone
	}
	if el.Type == document.ElementTypeZone {
		if el.Zone == nil {
			el.Zone = &document.ZoneData{ZoneType: document.DefaultZoneType}
		}
		if el.Zone.Capacity != nil && *el.Zone.Capacity < 0 {
			zero := 0
			el.Zone.Capacity = &zero
		}
		if el.Zone.Price != nil && *el.Zone.Price < 0 {
			zero := 0.0
			el.Zone.Price = &zero
		}
	}
	return el
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 1
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
