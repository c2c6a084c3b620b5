package engine

import "github.com/hunt-tickets/venuemap/internal/document"

const (
	MinZoom = 0.1
	MaxZoom = 5.0
)

// ScreenToCanvas maps a screen pixel to canvas units: (p - offset) / zoom.
func ScreenToCanvas(vp document.Viewport, p Point) Point {
	return Point{
		X: (p.X - vp.OffsetX) / vp.Zoom,
		Y: (p.Y - vp.OffsetY) / vp.Zoom,
	}
}

// CanvasToScreen maps canvas units to a screen pixel: p * zoom + offset.
func CanvasToScreen(vp document.Viewport, p Point) Point {
	return Point{
		X: p.X*vp.Zoom + vp.OffsetX,
		Y: p.Y*vp.Zoom + vp.OffsetY,
	}
}

// CanvasRectToScreen maps an axis-aligned canvas box to screen space.
func CanvasRectToScreen(vp document.Viewport, r Rect) Rect {
	tl := CanvasToScreen(vp, Point{X: r.X, Y: r.Y})
	return Rect{X: tl.X, Y: tl.Y, Width: r.Width * vp.Zoom, Height: r.Height * vp.Zoom}
}

// ViewportMatrix is the canvas-to-screen transform as an affine matrix.
func ViewportMatrix(vp document.Viewport) Matrix2D {
	return Translate(vp.OffsetX, vp.OffsetY).Multiply(Scale(vp.Zoom, vp.Zoom))
}

// ZoomAt returns vp zoomed to zoom (clamped) so the canvas point under the
// screen point anchor stays put.
func ZoomAt(vp document.Viewport, anchor Point, zoom float64) document.Viewport {
	zoom = ClampZoom(zoom)
	c := ScreenToCanvas(vp, anchor)
	return document.Viewport{
		Zoom:    zoom,
		OffsetX: anchor.X - c.X*zoom,
		OffsetY: anchor.Y - c.Y*zoom,
	}
}

// FitViewport returns a viewport that shows the whole canvas centred in a
// surface of the given size.
func FitViewport(c document.Canvas, surfaceW, surfaceH float64) document.Viewport {
	if c.Width <= 0 || c.Height <= 0 || surfaceW <= 0 || surfaceH <= 0 {
		return document.Viewport{Zoom: 1}
	}
	zoom := ClampZoom(min(surfaceW/c.Width, surfaceH/c.Height))
	return document.Viewport{
		Zoom:    zoom,
		OffsetX: (surfaceW - c.Width*zoom) / 2,
		OffsetY: (surfaceH - c.Height*zoom) / 2,
	}
}

// ClampZoom limits z to [MinZoom, MaxZoom]. NaN becomes MinZoom.
func ClampZoom(z float64) float64 {
	if z != z || z < MinZoom { // NaN or too small
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
