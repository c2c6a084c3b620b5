package engine

import (
	"fmt"
	"slices"

	"github.com/hunt-tickets/venuemap/internal/document"
)

// InteractionState is the pointer state machine's current state.
type InteractionState string

const (
	StateIdle     InteractionState = "idle"
	StateDrawing  InteractionState = "drawing"
	StateDragging InteractionState = "dragging"
	StateResizing InteractionState = "resizing"
	StateMarquee  InteractionState = "marquee-selecting"
	StatePanning  InteractionState = "panning"
)

// MinCreateSize is the smallest width and height, in canvas units, of an
// element drawn with a creation tool. Smaller gestures are discarded.
const MinCreateSize = 10.0

// Modifiers are the keyboard modifiers held during a pointer event.
type Modifiers struct {
	Shift bool `json:"shift"`
	Ctrl  bool `json:"ctrl"`
	Meta  bool `json:"meta"`
	Alt   bool `json:"alt"`
}

type interaction struct {
	state  InteractionState
	anchor Point // screen
	last   Point // screen

	// dragging: pointer minus element origin, canvas units, per element
	offsets map[string]Point

	// resizing
	handle   Handle
	targetID string
	fixed    Point // opposite corner, canvas units

	// marquee-selecting
	marqueeAnchor Point // canvas units
	marquee       *Rect

	changed bool
}

// State returns the current interaction state.
func (e *Editor) State() InteractionState {
	if e.ia.state == "" {
		return StateIdle
	}
	return e.ia.state
}

func (e *Editor) overlay() Overlay {
	o := Overlay{Marquee: e.ia.marquee}
	if e.ia.state == StateDrawing {
		r := RectFromPoints(
			ScreenToCanvas(e.doc.Viewport, e.ia.anchor),
			ScreenToCanvas(e.doc.Viewport, e.ia.last),
		)
		o.Draft = &r
	}
	return o
}

// PointerDown starts an interaction according to the active tool and what
// is under the pointer.
func (e *Editor) PointerDown(p Point, mods Modifiers) {
	e.ia = interaction{state: StateIdle, anchor: p, last: p}

	switch e.tool {
	case ToolSelect:
		e.beginSelect(p, mods)
	case ToolHand:
		e.ia.state = StatePanning
	default:
		e.ia.state = StateDrawing
	}
	e.notify(Change{Kind: ChangeInteraction, Action: string(e.ia.state)})
}

func (e *Editor) beginSelect(p Point, mods Modifiers) {
	vp := e.doc.Viewport

	if el, ok := e.SelectedElement(); ok && !el.IsLocked {
		if h := ResizeHandleAt(vp, p, el); h != HandleNone {
			e.ia.state = StateResizing
			e.ia.handle = h
			e.ia.targetID = el.ID
			e.ia.fixed = oppositeCorner(el, h)
			return
		}
	}

	pc := ScreenToCanvas(vp, p)
	if hit := ElementAt(e.doc, p); hit != "" {
		switch {
		case e.IsSelected(hit):
		case mods.Shift:
			e.SetSelection(append(append([]string{}, e.doc.SelectedIDs...), hit))
		default:
			e.SetSelection([]string{hit})
		}
		e.ia.state = StateDragging
		e.ia.offsets = make(map[string]Point, len(e.doc.SelectedIDs))
		for _, id := range e.doc.SelectedIDs {
			el := e.doc.Elements[id]
			e.ia.offsets[id] = Point{X: pc.X - el.Transform.X, Y: pc.Y - el.Transform.Y}
		}
		return
	}

	e.ClearSelection()
	e.ia.state = StateMarquee
	e.ia.marqueeAnchor = pc
	e.ia.marquee = &Rect{X: pc.X, Y: pc.Y}
}

// PointerMove advances the current interaction. It is a no-op when idle.
func (e *Editor) PointerMove(p Point) {
	vp := e.doc.Viewport
	pc := ScreenToCanvas(vp, p)

	switch e.ia.state {
	case StateDragging:
		var moved []string
		for _, id := range e.doc.SelectedIDs {
			off, ok := e.ia.offsets[id]
			el := e.doc.Elements[id]
			if !ok || el.IsLocked {
				continue
			}
			x, y := pc.X-off.X, pc.Y-off.Y
			if x == el.Transform.X && y == el.Transform.Y {
				continue
			}
			el.Transform.X, el.Transform.Y = x, y
			e.doc.Elements[id] = el
			moved = append(moved, id)
		}
		if len(moved) > 0 {
			e.ia.changed = true
			e.touch()
			e.notify(Change{Kind: ChangeElements, Action: "move", IDs: moved})
		}

	case StateResizing:
		el, ok := e.doc.Elements[e.ia.targetID]
		if !ok {
			break
		}
		r := resizeRect(e.ia.handle, e.ia.fixed, pc)
		t := el.Transform
		if r.X == t.X && r.Y == t.Y && r.Width == t.Width && r.Height == t.Height {
			break
		}
		el.Transform.X, el.Transform.Y = r.X, r.Y
		el.Transform.Width, el.Transform.Height = r.Width, r.Height
		e.doc.Elements[el.ID] = el
		e.ia.changed = true
		e.touch()
		e.notify(Change{Kind: ChangeElements, Action: "resize", IDs: []string{el.ID}})

	case StateMarquee:
		r := RectFromPoints(e.ia.marqueeAnchor, pc)
		e.ia.marquee = &r
		e.notify(Change{Kind: ChangeInteraction, Action: string(StateMarquee)})

	case StatePanning:
		dx, dy := p.X-e.ia.last.X, p.Y-e.ia.last.Y
		if dx != 0 || dy != 0 {
			e.Pan(dx, dy)
		}

	case StateDrawing:
		e.ia.last = p
		e.notify(Change{Kind: ChangeInteraction, Action: string(StateDrawing)})
	}

	e.ia.last = p
}

// PointerUp finishes the current interaction and always returns to idle,
// even if the pointer left the surface.
func (e *Editor) PointerUp(p Point) {
	state := e.State()
	if state != StateIdle {
		e.PointerMove(p)
	}

	switch state {
	case StateDrawing:
		vp := e.doc.Viewport
		r := RectFromPoints(ScreenToCanvas(vp, e.ia.anchor), ScreenToCanvas(vp, p))
		if r.Width >= MinCreateSize && r.Height >= MinCreateSize {
			e.CreateElement(e.newElementForTool(r))
		}

	case StateMarquee:
		var ids []string
		if e.ia.marquee != nil {
			ids = ElementsIntersecting(e.doc, *e.ia.marquee)
		}
		e.ia.marquee = nil
		e.SetSelection(ids)

	case StateDragging:
		if e.ia.changed {
			e.Commit("move")
		}

	case StateResizing:
		if e.ia.changed {
			e.Commit("resize")
		}
	}

	e.ia = interaction{state: StateIdle}
	if state != StateIdle {
		e.notify(Change{Kind: ChangeInteraction, Action: string(StateIdle)})
	}
}

// Escape switches to the select tool, clears the selection and abandons any
// interaction in progress. A drag or resize is rolled back to the current
// history entry, so nothing unrecorded is left in the document.
func (e *Editor) Escape() {
	e.revertGesture()
	e.ia = interaction{state: StateIdle}
	e.SetTool(ToolSelect)
	e.ClearSelection()
	e.notify(Change{Kind: ChangeInteraction, Action: string(StateIdle)})
}

// revertGesture restores the transforms touched by the current drag or
// resize from the current history entry.
func (e *Editor) revertGesture() {
	if !e.ia.changed {
		return
	}
	var ids []string
	action := "move"
	switch e.ia.state {
	case StateDragging:
		for id := range e.ia.offsets {
			ids = append(ids, id)
		}
		slices.Sort(ids)
	case StateResizing:
		ids = []string{e.ia.targetID}
		action = "resize"
	default:
		return
	}

	h := e.doc.History
	if e.doc.HistoryIndex < 0 || e.doc.HistoryIndex >= len(h) {
		e.Commit(action)
		return
	}
	snap := h[e.doc.HistoryIndex].Elements

	var restored []string
	for _, id := range ids {
		prev, ok := snap[id]
		el, live := e.doc.Elements[id]
		if !ok || !live || el.Transform == prev.Transform {
			continue
		}
		el.Transform = prev.Transform
		e.doc.Elements[id] = el
		restored = append(restored, id)
	}
	if len(restored) == 0 {
		return
	}
	e.touch()
	e.notify(Change{Kind: ChangeElements, Action: action, IDs: restored})
}

func (e *Editor) newElementForTool(r Rect) document.Element {
	id := e.opts.NewID()
	switch e.tool {
	case ToolCircle:
		el := document.NewZone(id, e.nextName("Zone", document.ElementTypeZone), document.DefaultZoneType, r.X, r.Y, r.Width, r.Height)
		el.Style.BorderRadius = min(r.Width, r.Height) / 2
		return el
	case ToolText:
		return document.NewText(id, "Text", r.X, r.Y, r.Width, r.Height)
	case ToolSeat:
		n := e.countType(document.ElementTypeSeat) + 1
		return document.NewSeat(id, "A", n, r.X, r.Y, r.Width, r.Height)
	default:
		return document.NewZone(id, e.nextName("Zone", document.ElementTypeZone), document.DefaultZoneType, r.X, r.Y, r.Width, r.Height)
	}
}

func (e *Editor) nextName(prefix string, t document.ElementType) string {
	return fmt.Sprintf("%s %d", prefix, e.countType(t)+1)
}

func (e *Editor) countType(t document.ElementType) int {
	n := 0
	for _, el := range e.doc.Elements {
		if el.Type == t {
			n++
		}
	}
	return n
}

// oppositeCorner is the corner that stays put while h is dragged.
func oppositeCorner(el document.Element, h Handle) Point {
	r := ElementBounds(el)
	switch h {
	case HandleTopLeft:
		return Point{X: r.X + r.Width, Y: r.Y + r.Height}
	case HandleTopRight:
		return Point{X: r.X, Y: r.Y + r.Height}
	case HandleBottomLeft:
		return Point{X: r.X + r.Width, Y: r.Y}
	default:
		return Point{X: r.X, Y: r.Y}
	}
}

// resizeRect spans fixed and the pointer, never flipping past the fixed
// corner and never smaller than MinElementSize.
func resizeRect(h Handle, fixed, pc Point) Rect {
	var r Rect
	switch h {
	case HandleTopLeft, HandleBottomLeft:
		r.X = min(pc.X, fixed.X-MinElementSize)
		r.Width = fixed.X - r.X
	default:
		r.X = fixed.X
		r.Width = max(MinElementSize, pc.X-fixed.X)
	}
	switch h {
	case HandleTopLeft, HandleTopRight:
		r.Y = min(pc.Y, fixed.Y-MinElementSize)
		r.Height = fixed.Y - r.Y
	default:
		r.Y = fixed.Y
		r.Height = max(MinElementSize, pc.Y-fixed.Y)
	}
	return r
}
