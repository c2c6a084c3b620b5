package engine

import (
	"math"

	"github.com/hunt-tickets/venuemap/internal/document"
)

// Handle identifies a corner resize handle.
type Handle string

const (
	HandleNone        Handle = ""
	HandleTopLeft     Handle = "tl"
	HandleTopRight    Handle = "tr"
	HandleBottomLeft  Handle = "bl"
	HandleBottomRight Handle = "br"
)

const (
	HandleSize      = 8.0
	handleTolerance = HandleSize / 2
)

// ElementBounds is the element's axis-aligned box in canvas units.
// Rotation is not applied.
func ElementBounds(el document.Element) Rect {
	x, y, w, h := el.Bounds()
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// ElementAt returns the ID of the topmost visible element whose box contains
// the screen point, or "" if nothing is there. Hit-testing uses the
// unrotated box.
func ElementAt(doc *document.VenueMap, screen Point) string {
	if doc == nil {
		return ""
	}
	p := ScreenToCanvas(doc.Viewport, screen)

	// Back of elementOrder is painted last, so test it first.
	for i := len(doc.ElementOrder) - 1; i >= 0; i-- {
		el, ok := doc.Elements[doc.ElementOrder[i]]
		if !ok || !el.IsVisible {
			continue
		}
		if ElementBounds(el).Contains(p) {
			return el.ID
		}
	}
	return ""
}

// HandleCorners returns the element's four corners in screen space.
func HandleCorners(vp document.Viewport, el document.Element) map[Handle]Point {
	r := CanvasRectToScreen(vp, ElementBounds(el))
	return map[Handle]Point{
		HandleTopLeft:     {X: r.X, Y: r.Y},
		HandleTopRight:    {X: r.X + r.Width, Y: r.Y},
		HandleBottomLeft:  {X: r.X, Y: r.Y + r.Height},
		HandleBottomRight: {X: r.X + r.Width, Y: r.Y + r.Height},
	}
}

var handleOrder = []Handle{HandleTopLeft, HandleTopRight, HandleBottomLeft, HandleBottomRight}

// ResizeHandleAt returns the corner handle of el within the handle tolerance
// of the screen point, or HandleNone.
func ResizeHandleAt(vp document.Viewport, screen Point, el document.Element) Handle {
	corners := HandleCorners(vp, el)
	for _, h := range handleOrder {
		c := corners[h]
		if math.Abs(screen.X-c.X) <= handleTolerance && math.Abs(screen.Y-c.Y) <= handleTolerance {
			return h
		}
	}
	return HandleNone
}

// ElementsIntersecting returns visible elements whose box intersects the
// canvas-space rect, in paint order.
func ElementsIntersecting(doc *document.VenueMap, r Rect) []string {
	var ids []string
	for _, id := range doc.ElementOrder {
		el, ok := doc.Elements[id]
		if !ok || !el.IsVisible {
			continue
		}
		if ElementBounds(el).Intersects(r) {
			ids = append(ids, id)
		}
	}
	return ids
}

// SelectionBounds returns the union box of the given elements in canvas units.
func SelectionBounds(doc *document.VenueMap, ids []string) Rect {
	var out Rect
	for _, id := range ids {
		el, ok := doc.Elements[id]
		if !ok {
			continue
		}
		out = out.Union(ElementBounds(el))
	}
	return out
}
