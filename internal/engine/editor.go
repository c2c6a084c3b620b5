package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/hunt-tickets/venuemap/internal/document"
	"github.com/hunt-tickets/venuemap/internal/typeid"
)

// Tool is the active editing tool.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolText      Tool = "text"
	ToolHand      Tool = "hand"
	ToolSeat      Tool = "seat"
)

// ChangeKind says which part of the editor state a Change touched.
type ChangeKind string

const (
	ChangeElements    ChangeKind = "elements"
	ChangeSelection   ChangeKind = "selection"
	ChangeViewport    ChangeKind = "viewport"
	ChangeCanvas      ChangeKind = "canvas"
	ChangeTool        ChangeKind = "tool"
	ChangeHistory     ChangeKind = "history"
	ChangeInteraction ChangeKind = "interaction"
	ChangeSaved       ChangeKind = "saved"
)

// Change is delivered to subscribers after every mutation.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Action string     `json:"action,omitempty"`
	IDs    []string   `json:"ids,omitempty"`
}

// SaveFunc persists a document. It must not retain or mutate doc.
type SaveFunc func(doc *document.VenueMap) error

// Options configures an Editor. Zero values get defaults.
type Options struct {
	HistoryLimit int
	Save         SaveFunc
	Now          func() time.Time
	NewID        func() string
}

// Editor owns one venue map for an editing session and is the only way to
// mutate it. It is not safe for concurrent use.
type Editor struct {
	doc  *document.VenueMap
	tool Tool
	opts Options

	ia interaction

	subs    []subscriber
	nextSub int
	dirty   bool
}

type subscriber struct {
	id int
	fn func(Change)
}

// NewEditor opens an editing session for eventID. initial may be nil, in
// which case an empty map is created; otherwise it is repaired in place and
// owned by the editor from then on.
func NewEditor(eventID string, initial *document.VenueMap, opts Options) *Editor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = typeid.NewElementID
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}

	doc := initial
	if doc == nil {
		doc = document.NewEmptyVenueMap(typeid.NewMapID(), eventID, "")
	}
	if doc.EventID == "" {
		doc.EventID = eventID
	}
	Normalize(doc)

	e := &Editor{doc: doc, tool: ToolSelect, opts: opts}
	if len(doc.History) == 0 {
		PushHistory(doc, "open", e.now(), opts.HistoryLimit)
	}
	return e
}

// Document returns the live document. Callers must treat it as read-only.
func (e *Editor) Document() *document.VenueMap { return e.doc }

// Tool returns the active tool.
func (e *Editor) Tool() Tool { return e.tool }

// Dirty reports whether there are changes since the last successful save.
func (e *Editor) Dirty() bool { return e.dirty }

// Subscribe registers fn for every change and returns a function that
// removes it.
func (e *Editor) Subscribe(fn func(Change)) func() {
	e.nextSub++
	id := e.nextSub
	e.subs = append(e.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

func (e *Editor) notify(c Change) {
	for _, s := range append([]subscriber(nil), e.subs...) {
		s.fn(c)
	}
}

func (e *Editor) now() int64 { return e.opts.Now().UnixMilli() }

// touch marks a content change: lastModified moves and the document needs
// saving.
func (e *Editor) touch() {
	e.stamp()
	e.dirty = true
}

// stamp moves lastModified without marking the document dirty. Selection and
// viewport changes use it.
func (e *Editor) stamp() {
	e.doc.LastModified = e.now()
}

func (e *Editor) record(action string) {
	PushHistory(e.doc, action, e.now(), e.opts.HistoryLimit)
}

// --- Element lifecycle ---

// CreateElement inserts el on top of the stack, selects it and records a
// history entry. A missing or taken id is replaced with a fresh one.
func (e *Editor) CreateElement(el document.Element) string {
	if _, taken := e.doc.Elements[el.ID]; el.ID == "" || taken {
		el.ID = e.opts.NewID()
	}
	el = clampElement(el)
	el.ZIndex = len(e.doc.ElementOrder)

	e.doc.Elements[el.ID] = el
	e.doc.ElementOrder = append(e.doc.ElementOrder, el.ID)
	e.doc.SelectedIDs = []string{el.ID}
	e.touch()
	e.record("create")
	e.notify(Change{Kind: ChangeElements, Action: "create", IDs: []string{el.ID}})
	return el.ID
}

// UpdateElement merges patch into the element. It does not record history;
// callers batching several updates finish with Commit.
func (e *Editor) UpdateElement(id string, patch ElementPatch) bool {
	el, ok := e.doc.Elements[id]
	if !ok {
		return false
	}
	e.doc.Elements[id] = clampElement(patch.apply(el))
	e.touch()
	e.notify(Change{Kind: ChangeElements, Action: "update", IDs: []string{id}})
	return true
}

// Commit records one history entry for updates applied since the last one.
func (e *Editor) Commit(action string) {
	e.record(action)
	e.notify(Change{Kind: ChangeHistory, Action: action})
}

// DeleteElements removes the elements from the map, the order and the
// selection, recording one history entry. Unknown ids are ignored.
func (e *Editor) DeleteElements(ids []string) int {
	ids = filterIDs(e.doc, ids)
	if len(ids) == 0 {
		return 0
	}
	gone := make(map[string]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
		delete(e.doc.Elements, id)
	}
	e.doc.ElementOrder = without(e.doc.ElementOrder, gone)
	e.doc.SelectedIDs = without(e.doc.SelectedIDs, gone)
	e.reindex()
	e.touch()
	e.record("delete")
	e.notify(Change{Kind: ChangeElements, Action: "delete", IDs: ids})
	return len(ids)
}

// DeleteSelection deletes the selected elements.
func (e *Editor) DeleteSelection() int {
	return e.DeleteElements(e.doc.SelectedIDs)
}

const duplicateOffset = 20.0

// DuplicateSelection copies the selected elements on top of the stack,
// offset down and right, and selects the copies.
func (e *Editor) DuplicateSelection() []string {
	if len(e.doc.SelectedIDs) == 0 {
		return nil
	}
	selected := make(map[string]bool, len(e.doc.SelectedIDs))
	for _, id := range e.doc.SelectedIDs {
		selected[id] = true
	}

	var copies []string
	for _, id := range e.doc.ElementOrder {
		if !selected[id] {
			continue
		}
		dup := e.doc.Elements[id].Clone()
		dup.ID = e.opts.NewID()
		dup.Name = fmt.Sprintf("%s (copy)", dup.Name)
		dup.Transform.X += duplicateOffset
		dup.Transform.Y += duplicateOffset
		dup.ZIndex = len(e.doc.ElementOrder)
		e.doc.Elements[dup.ID] = dup
		e.doc.ElementOrder = append(e.doc.ElementOrder, dup.ID)
		copies = append(copies, dup.ID)
	}
	e.doc.SelectedIDs = append([]string{}, copies...)
	e.touch()
	e.record("duplicate")
	e.notify(Change{Kind: ChangeElements, Action: "duplicate", IDs: copies})
	return copies
}

// Nudge moves every unlocked selected element by (dx, dy) canvas units.
func (e *Editor) Nudge(dx, dy float64) {
	moved := e.moveSelection(dx, dy)
	if len(moved) == 0 {
		return
	}
	e.touch()
	e.record("move")
	e.notify(Change{Kind: ChangeElements, Action: "move", IDs: moved})
}

func (e *Editor) moveSelection(dx, dy float64) []string {
	var moved []string
	for _, id := range e.doc.SelectedIDs {
		el := e.doc.Elements[id]
		if el.IsLocked {
			continue
		}
		el.Transform.X += dx
		el.Transform.Y += dy
		e.doc.Elements[id] = el
		moved = append(moved, id)
	}
	return moved
}

// --- Selection ---

// SetSelection replaces the selection; unknown ids are dropped.
func (e *Editor) SetSelection(ids []string) {
	e.doc.SelectedIDs = filterIDs(e.doc, ids)
	e.stamp()
	e.notify(Change{Kind: ChangeSelection, IDs: e.doc.SelectedIDs})
}

// SelectAll selects every element.
func (e *Editor) SelectAll() {
	e.SetSelection(e.doc.ElementOrder)
}

// ClearSelection empties the selection.
func (e *Editor) ClearSelection() {
	if len(e.doc.SelectedIDs) == 0 {
		return
	}
	e.SetSelection(nil)
}

func (e *Editor) IsSelected(id string) bool {
	for _, s := range e.doc.SelectedIDs {
		if s == id {
			return true
		}
	}
	return false
}

// --- Tools, viewport, canvas ---

// SetTool switches the active tool. Unknown tools are ignored.
func (e *Editor) SetTool(t Tool) {
	switch t {
	case ToolSelect, ToolRectangle, ToolCircle, ToolText, ToolHand, ToolSeat:
	default:
		return
	}
	if e.tool == t {
		return
	}
	e.tool = t
	e.notify(Change{Kind: ChangeTool, Action: string(t)})
}

// SetViewport replaces the viewport, clamping zoom. A non-positive zoom keeps
// the current one.
func (e *Editor) SetViewport(vp document.Viewport) {
	if vp.Zoom <= 0 {
		vp.Zoom = e.doc.Viewport.Zoom
	}
	vp.Zoom = ClampZoom(vp.Zoom)
	e.doc.Viewport = vp
	e.stamp()
	e.notify(Change{Kind: ChangeViewport})
}

// ZoomAt zooms keeping the canvas point under the screen anchor fixed.
func (e *Editor) ZoomAt(anchor Point, zoom float64) {
	e.SetViewport(ZoomAt(e.doc.Viewport, anchor, zoom))
}

// Pan moves the viewport by (dx, dy) screen pixels.
func (e *Editor) Pan(dx, dy float64) {
	vp := e.doc.Viewport
	vp.OffsetX += dx
	vp.OffsetY += dy
	e.SetViewport(vp)
}

// ResetViewport returns to zoom 1 with no offset.
func (e *Editor) ResetViewport() {
	e.SetViewport(document.Viewport{Zoom: 1})
}

// ToggleGrid shows or hides the grid.
func (e *Editor) ToggleGrid() {
	e.doc.Canvas.ShowGrid = !e.doc.Canvas.ShowGrid
	e.touch()
	e.notify(Change{Kind: ChangeCanvas, Action: "grid"})
}

// ToggleRulers shows or hides the rulers.
func (e *Editor) ToggleRulers() {
	e.doc.Canvas.ShowRulers = !e.doc.Canvas.ShowRulers
	e.touch()
	e.notify(Change{Kind: ChangeCanvas, Action: "rulers"})
}

// SetGridSize changes the grid spacing. Non-positive sizes are ignored and
// sizes below MinGridSize are raised to it.
func (e *Editor) SetGridSize(size float64) {
	if size <= 0 || math.IsNaN(size) {
		return
	}
	e.doc.Canvas.GridSize = math.Max(size, MinGridSize)
	e.touch()
	e.notify(Change{Kind: ChangeCanvas, Action: "gridSize"})
}

// --- History and persistence ---

// Undo restores the previous snapshot. It reports whether anything changed.
func (e *Editor) Undo() bool {
	if !Undo(e.doc) {
		return false
	}
	e.touch()
	e.notify(Change{Kind: ChangeHistory, Action: "undo"})
	return true
}

// Redo restores the next snapshot. It reports whether anything changed.
func (e *Editor) Redo() bool {
	if !Redo(e.doc) {
		return false
	}
	e.touch()
	e.notify(Change{Kind: ChangeHistory, Action: "redo"})
	return true
}

// Save hands the document to the save hook. Without a hook it is a no-op.
func (e *Editor) Save() error {
	if e.opts.Save == nil {
		return nil
	}
	if err := e.opts.Save(e.doc); err != nil {
		return fmt.Errorf("save venue map %s: %w", e.doc.ID, err)
	}
	e.dirty = false
	e.notify(Change{Kind: ChangeSaved})
	return nil
}

// --- Queries ---

// Element returns the element with the given id.
func (e *Editor) Element(id string) (document.Element, bool) {
	el, ok := e.doc.Elements[id]
	return el, ok
}

// SelectedElement returns the element when exactly one is selected.
func (e *Editor) SelectedElement() (document.Element, bool) {
	if len(e.doc.SelectedIDs) != 1 {
		return document.Element{}, false
	}
	return e.Element(e.doc.SelectedIDs[0])
}

// Render compiles the current frame, including any marquee or draft
// rectangle in progress.
func (e *Editor) Render(surfaceW, surfaceH float64) []DrawCommand {
	return Render(e.doc, e.overlay(), surfaceW, surfaceH)
}

func (e *Editor) reindex() {
	for i, id := range e.doc.ElementOrder {
		el := e.doc.Elements[id]
		el.ZIndex = i
		e.doc.Elements[id] = el
	}
}

func without(ids []string, drop map[string]bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}
