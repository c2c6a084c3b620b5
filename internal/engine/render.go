package engine

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/hunt-tickets/venuemap/internal/document"
)

// Draw operations understood by hosts replaying a frame.
const (
	OpClear   = "clear"
	OpLine    = "line"
	OpRect    = "rect"
	OpText    = "text"
	OpOutline = "outline"
	OpHandle  = "handle"
	OpMarquee = "marquee"
)

const (
	minGridZoom    = 0.5
	minGridSpacing = 4.0 // screen pixels between grid lines
	minLabelWidth  = 40.0
	minLabelHeight = 20.0
	labelFontSize  = 12.0

	selectionColor = "#3b82f6"
	marqueeFill    = "rgba(59, 130, 246, 0.1)"
	gridColor      = "rgba(255, 255, 255, 0.06)"
	labelColor     = "#ffffff"
)

// DrawCommand is a single drawing operation. Commands with a Transform are
// expressed in the element's local space (origin at its top-left corner);
// all others are in screen pixels.
type DrawCommand struct {
	Op          string    `json:"op"`
	ObjectID    string    `json:"objectId,omitempty"` // for hit correlation
	Transform   []float64 `json:"transform,omitempty"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width,omitempty"`
	Height      float64   `json:"height,omitempty"`
	X2          float64   `json:"x2,omitempty"`
	Y2          float64   `json:"y2,omitempty"`
	Radius      float64   `json:"radius,omitempty"`
	Fill        string    `json:"fill,omitempty"`
	Stroke      string    `json:"stroke,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
	Opacity     float64   `json:"opacity"`
	Dash        []float64 `json:"dash,omitempty"`
	Text        string    `json:"text,omitempty"`
	FontSize    float64   `json:"fontSize,omitempty"`
}

// Overlay is transient editor state drawn on top of the document.
type Overlay struct {
	Marquee *Rect // canvas units
	Draft   *Rect // canvas units, rectangle being drawn
}

// Render compiles a full frame for a surface of the given pixel size.
// Commands are in painter's order (back to front).
func Render(doc *document.VenueMap, overlay Overlay, surfaceW, surfaceH float64) []DrawCommand {
	if doc == nil {
		return nil
	}
	vp := doc.Viewport

	cmds := []DrawCommand{{
		Op:      OpClear,
		Width:   surfaceW,
		Height:  surfaceH,
		Fill:    doc.Canvas.BackgroundColor,
		Opacity: 1,
	}}

	if doc.Canvas.ShowGrid && doc.Canvas.GridSize > 0 && vp.Zoom >= minGridZoom {
		cmds = appendGrid(cmds, doc.Canvas, vp, surfaceW, surfaceH)
	}

	for _, id := range doc.ElementOrder {
		el, ok := doc.Elements[id]
		if !ok || !el.IsVisible {
			continue
		}
		cmds = appendElement(cmds, el, vp)
	}

	if len(doc.SelectedIDs) == 1 {
		if el, ok := doc.Elements[doc.SelectedIDs[0]]; ok {
			cmds = appendSelection(cmds, el, vp)
		}
	}

	if overlay.Draft != nil {
		r := CanvasRectToScreen(vp, *overlay.Draft)
		cmds = append(cmds, DrawCommand{
			Op:          OpOutline,
			X:           r.X,
			Y:           r.Y,
			Width:       r.Width,
			Height:      r.Height,
			Stroke:      selectionColor,
			StrokeWidth: 1,
			Opacity:     1,
			Dash:        []float64{4, 4},
		})
	}

	if overlay.Marquee != nil {
		r := CanvasRectToScreen(vp, *overlay.Marquee)
		cmds = append(cmds, DrawCommand{
			Op:          OpMarquee,
			X:           r.X,
			Y:           r.Y,
			Width:       r.Width,
			Height:      r.Height,
			Fill:        marqueeFill,
			Stroke:      selectionColor,
			StrokeWidth: 1,
			Opacity:     1,
			Dash:        []float64{5, 5},
		})
	}

	return cmds
}

// appendGrid draws the grid lines that fall on both the canvas and the
// surface. Grids denser than minGridSpacing on screen are skipped, so a frame
// never holds more than about one line per minGridSpacing pixels.
func appendGrid(cmds []DrawCommand, c document.Canvas, vp document.Viewport, surfaceW, surfaceH float64) []DrawCommand {
	if c.GridSize*vp.Zoom < minGridSpacing {
		return cmds
	}
	line := func(x1, y1, x2, y2 float64) DrawCommand {
		a := CanvasToScreen(vp, Point{X: x1, Y: y1})
		b := CanvasToScreen(vp, Point{X: x2, Y: y2})
		return DrawCommand{Op: OpLine, X: a.X, Y: a.Y, X2: b.X, Y2: b.Y, Stroke: gridColor, StrokeWidth: 1, Opacity: 1}
	}

	topLeft := ScreenToCanvas(vp, Point{})
	bottomRight := ScreenToCanvas(vp, Point{X: surfaceW, Y: surfaceH})

	first, last := gridSpan(topLeft.X, bottomRight.X, c.Width, c.GridSize)
	for i := first; i <= last; i++ {
		x := float64(i) * c.GridSize
		cmds = append(cmds, line(x, 0, x, c.Height))
	}
	first, last = gridSpan(topLeft.Y, bottomRight.Y, c.Height, c.GridSize)
	for i := first; i <= last; i++ {
		y := float64(i) * c.GridSize
		cmds = append(cmds, line(0, y, c.Width, y))
	}
	return cmds
}

// gridSpan returns the indices of the grid lines inside [lo, hi] clipped to
// [0, extent]. first > last when there are none.
func gridSpan(lo, hi, extent, step float64) (first, last int) {
	lo = math.Max(lo, 0)
	hi = math.Min(hi, extent)
	if hi < lo {
		return 1, 0
	}
	return int(math.Ceil(lo / step)), int(math.Floor(hi / step))
}

// ElementMatrix maps the element's local space to the screen, rotating about
// the element centre.
func ElementMatrix(el document.Element, vp document.Viewport) Matrix2D {
	t := el.Transform
	local := RotateAbout(t.X, t.Y, t.Rotation, t.Width/2, t.Height/2)
	return ViewportMatrix(vp).Multiply(local)
}

func appendElement(cmds []DrawCommand, el document.Element, vp document.Viewport) []DrawCommand {
	t := el.Transform
	m := ElementMatrix(el, vp).ToSlice()

	cmds = append(cmds, DrawCommand{
		Op:          OpRect,
		ObjectID:    el.ID,
		Transform:   m,
		Width:       t.Width,
		Height:      t.Height,
		Radius:      el.Style.BorderRadius,
		Fill:        el.Style.Fill,
		Stroke:      el.Style.Stroke,
		StrokeWidth: el.Style.StrokeWidth,
		Opacity:     el.Style.Opacity,
	})

	if t.Width*vp.Zoom < minLabelWidth || t.Height*vp.Zoom < minLabelHeight {
		return cmds
	}

	label := el.Name
	size := labelFontSize
	if el.Text != nil {
		label = el.Text.Text
		if el.Text.FontSize > 0 {
			size = el.Text.FontSize
		}
	}
	if label == "" {
		return cmds
	}

	var sub string
	if el.Zone != nil && el.Zone.Capacity != nil {
		sub = "Cap. " + strconv.Itoa(*el.Zone.Capacity)
	}

	cy := t.Height / 2
	if sub != "" {
		cy -= size / 2
	}
	cmds = append(cmds, DrawCommand{
		Op:        OpText,
		ObjectID:  el.ID,
		Transform: m,
		X:         t.Width / 2,
		Y:         cy,
		Fill:      labelColor,
		Opacity:   el.Style.Opacity,
		Text:      label,
		FontSize:  size,
	})
	if sub != "" {
		cmds = append(cmds, DrawCommand{
			Op:        OpText,
			ObjectID:  el.ID,
			Transform: m,
			X:         t.Width / 2,
			Y:         cy + size + 2,
			Fill:      labelColor,
			Opacity:   el.Style.Opacity,
			Text:      sub,
			FontSize:  size - 2,
		})
	}
	return cmds
}

// appendSelection draws the selection box and corner handles axis-aligned,
// ignoring element rotation.
func appendSelection(cmds []DrawCommand, el document.Element, vp document.Viewport) []DrawCommand {
	r := CanvasRectToScreen(vp, ElementBounds(el))
	cmds = append(cmds, DrawCommand{
		Op:          OpOutline,
		ObjectID:    el.ID,
		X:           r.X,
		Y:           r.Y,
		Width:       r.Width,
		Height:      r.Height,
		Stroke:      selectionColor,
		StrokeWidth: 2,
		Opacity:     1,
	})
	corners := HandleCorners(vp, el)
	for _, h := range handleOrder {
		c := corners[h]
		cmds = append(cmds, DrawCommand{
			Op:          OpHandle,
			ObjectID:    el.ID,
			X:           c.X - HandleSize/2,
			Y:           c.Y - HandleSize/2,
			Width:       HandleSize,
			Height:      HandleSize,
			Fill:        "#ffffff",
			Stroke:      selectionColor,
			StrokeWidth: 1,
			Opacity:     1,
		})
	}
	return cmds
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
