package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunt-tickets/venuemap/internal/document"
)

func newTestEditor(t *testing.T, opts Options) *Editor {
	t.Helper()
	n := 0
	if opts.NewID == nil {
		opts.NewID = func() string {
			n++
			return fmt.Sprintf("el_%d", n)
		}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	}
	return NewEditor("evt_test", nil, opts)
}

func addZone(e *Editor, x, y, w, h float64) string {
	return e.CreateElement(document.NewZone("", "", "general", x, y, w, h))
}

func assertConsistent(t *testing.T, doc *document.VenueMap) {
	t.Helper()
	require.Len(t, doc.ElementOrder, len(doc.Elements))
	for _, id := range doc.ElementOrder {
		_, ok := doc.Elements[id]
		require.True(t, ok, "order id %s missing from elements", id)
	}
	for _, id := range doc.SelectedIDs {
		_, ok := doc.Elements[id]
		require.True(t, ok, "selected id %s missing from elements", id)
	}
	if len(doc.History) == 0 {
		require.Equal(t, -1, doc.HistoryIndex)
	} else {
		require.GreaterOrEqual(t, doc.HistoryIndex, 0)
		require.Less(t, doc.HistoryIndex, len(doc.History))
	}
}

func TestNewEditorDefaults(t *testing.T) {
	e := newTestEditor(t, Options{})
	doc := e.Document()

	assert.Equal(t, "evt_test", doc.EventID)
	assert.Equal(t, ToolSelect, e.Tool())
	assert.Equal(t, 1.0, doc.Viewport.Zoom)
	assert.Empty(t, doc.Elements)
	require.Len(t, doc.History, 1)
	assert.Equal(t, "open", doc.History[0].Action)
	assert.Equal(t, 0, doc.HistoryIndex)
	assert.False(t, e.Dirty())
}

func TestNewEditorRepairsInitialDocument(t *testing.T) {
	doc := document.NewEmptyVenueMap("map_1", "", "")
	doc.Viewport.Zoom = 0
	doc.Canvas.GridSize = 0.002
	doc.Elements["a"] = document.NewZone("a", "A", "vip", 0, 0, 0, 50)
	doc.Elements["b"] = document.NewZone("b", "B", "vip", 0, 0, 10, 10)
	doc.ElementOrder = []string{"ghost", "b", "b"}
	doc.SelectedIDs = []string{"ghost", "a"}
	el := doc.Elements["b"]
	el.Style.Opacity = 3
	doc.Elements["b"] = el

	e := NewEditor("evt_9", doc, Options{})
	got := e.Document()

	assert.Equal(t, "evt_9", got.EventID)
	assert.Equal(t, 1.0, got.Viewport.Zoom)
	assert.Equal(t, MinGridSize, got.Canvas.GridSize)
	assert.Equal(t, []string{"b", "a"}, got.ElementOrder)
	assert.Equal(t, []string{"a"}, got.SelectedIDs)
	assert.Equal(t, 1.0, got.Elements["a"].Transform.Width)
	assert.Equal(t, 1.0, got.Elements["b"].Style.Opacity)
	assertConsistent(t, got)
}

func TestCreateElementSelectsAndRecords(t *testing.T) {
	e := newTestEditor(t, Options{})
	id := addZone(e, 10, 20, 100, 50)

	doc := e.Document()
	assert.Equal(t, "el_1", id)
	assert.Equal(t, []string{id}, doc.ElementOrder)
	assert.Equal(t, []string{id}, doc.SelectedIDs)
	assert.Equal(t, "create", doc.History[doc.HistoryIndex].Action)
	assert.Equal(t, int64(1_700_000_000_000), doc.LastModified)
	assert.True(t, e.Dirty())
}

func TestCreateElementReplacesTakenID(t *testing.T) {
	e := newTestEditor(t, Options{})
	first := e.CreateElement(document.NewZone("dup", "", "general", 0, 0, 10, 10))
	second := e.CreateElement(document.NewZone("dup", "", "general", 0, 0, 10, 10))

	assert.Equal(t, "dup", first)
	assert.NotEqual(t, first, second)
	assert.Len(t, e.Document().Elements, 2)
}

func TestUpdateElementMergesWithoutHistory(t *testing.T) {
	e := newTestEditor(t, Options{})
	id := addZone(e, 0, 0, 100, 100)
	before := len(e.Document().History)

	name := "Platea"
	width := -5.0
	opacity := 1.5
	capacity := 300
	ok := e.UpdateElement(id, ElementPatch{Name: &name, Width: &width, Opacity: &opacity, Capacity: &capacity})
	require.True(t, ok)

	el, _ := e.Element(id)
	assert.Equal(t, "Platea", el.Name)
	assert.Equal(t, 1.0, el.Transform.Width)
	assert.Equal(t, 100.0, el.Transform.Height)
	assert.Equal(t, 1.0, el.Style.Opacity)
	assert.Equal(t, 300, *el.Zone.Capacity)
	assert.Len(t, e.Document().History, before)

	assert.False(t, e.UpdateElement("missing", ElementPatch{Name: &name}))
}

func TestUpdateDoesNotLeakIntoHistory(t *testing.T) {
	e := newTestEditor(t, Options{})
	id := addZone(e, 0, 0, 100, 100)

	capacity := 5
	e.UpdateElement(id, ElementPatch{Capacity: &capacity})

	snap := e.Document().History[e.Document().HistoryIndex]
	assert.Equal(t, 100, *snap.Elements[id].Zone.Capacity)
}

func TestDeleteAndDuplicateAreNoOpsWithoutSelection(t *testing.T) {
	e := newTestEditor(t, Options{})
	addZone(e, 0, 0, 50, 50)
	e.ClearSelection()
	before := len(e.Document().History)

	assert.Equal(t, 0, e.DeleteSelection())
	assert.Nil(t, e.DuplicateSelection())
	assert.Len(t, e.Document().History, before)
	assert.Len(t, e.Document().Elements, 1)
}

func TestDuplicateSelection(t *testing.T) {
	e := newTestEditor(t, Options{})
	a := addZone(e, 0, 0, 50, 50)
	b := addZone(e, 100, 0, 50, 50)
	e.SetSelection([]string{b, a})

	copies := e.DuplicateSelection()
	require.Len(t, copies, 2)

	doc := e.Document()
	assert.Equal(t, copies, doc.SelectedIDs)
	assert.Equal(t, []string{a, b, copies[0], copies[1]}, doc.ElementOrder)

	dupA := doc.Elements[copies[0]]
	assert.Equal(t, 20.0, dupA.Transform.X)
	assert.Equal(t, 20.0, dupA.Transform.Y)
	assert.Equal(t, "General (copy)", dupA.Name)
	assert.NotSame(t, doc.Elements[a].Zone, dupA.Zone)
	assert.Equal(t, "duplicate", doc.History[doc.HistoryIndex].Action)
}

func TestSetSelectionDropsUnknownIDs(t *testing.T) {
	e := newTestEditor(t, Options{})
	a := addZone(e, 0, 0, 50, 50)

	e.SetSelection([]string{"nope", a, a})
	assert.Equal(t, []string{a}, e.Document().SelectedIDs)
}

func TestSelectionAndViewportStampLastModified(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	e := newTestEditor(t, Options{
		Now:  func() time.Time { return now },
		Save: func(*document.VenueMap) error { return nil },
	})
	a := addZone(e, 0, 0, 50, 50)
	require.NoError(t, e.Save())

	now = now.Add(time.Second)
	e.SetSelection(nil)
	assert.Equal(t, now.UnixMilli(), e.Document().LastModified)

	now = now.Add(time.Second)
	e.SetSelection([]string{a})
	assert.Equal(t, now.UnixMilli(), e.Document().LastModified)

	now = now.Add(time.Second)
	e.Pan(10, 0)
	assert.Equal(t, now.UnixMilli(), e.Document().LastModified)

	assert.False(t, e.Dirty())
}

func TestOrphanFreeAfterRandomOperations(t *testing.T) {
	e := newTestEditor(t, Options{HistoryLimit: 20})
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		doc := e.Document()
		switch rng.Intn(7) {
		case 0, 1:
			addZone(e, rng.Float64()*500, rng.Float64()*500, 10+rng.Float64()*100, 10+rng.Float64()*100)
		case 2:
			if len(doc.ElementOrder) > 0 {
				e.SetSelection([]string{doc.ElementOrder[rng.Intn(len(doc.ElementOrder))]})
			}
			e.DeleteSelection()
		case 3:
			e.DuplicateSelection()
		case 4:
			e.Undo()
		case 5:
			e.Redo()
		case 6:
			if len(doc.ElementOrder) > 0 {
				e.MoveLayer(doc.ElementOrder[rng.Intn(len(doc.ElementOrder))], rng.Intn(len(doc.ElementOrder)))
			}
		}
		assertConsistent(t, e.Document())
		require.LessOrEqual(t, len(e.Document().History), 20)
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	e := newTestEditor(t, Options{})
	var got []Change
	unsubscribe := e.Subscribe(func(c Change) { got = append(got, c) })

	id := addZone(e, 0, 0, 10, 10)
	e.SetTool(ToolHand)
	unsubscribe()
	e.DeleteSelection()

	require.Len(t, got, 2)
	assert.Equal(t, Change{Kind: ChangeElements, Action: "create", IDs: []string{id}}, got[0])
	assert.Equal(t, ChangeTool, got[1].Kind)
}

func TestSaveHook(t *testing.T) {
	var saved *document.VenueMap
	e := newTestEditor(t, Options{Save: func(doc *document.VenueMap) error {
		saved = doc
		return nil
	}})
	addZone(e, 0, 0, 10, 10)
	require.True(t, e.Dirty())

	require.NoError(t, e.Save())
	assert.Same(t, e.Document(), saved)
	assert.False(t, e.Dirty())
}

func TestSaveHookError(t *testing.T) {
	boom := errors.New("boom")
	e := newTestEditor(t, Options{Save: func(*document.VenueMap) error { return boom }})
	addZone(e, 0, 0, 10, 10)

	err := e.Save()
	require.ErrorIs(t, err, boom)
	assert.True(t, e.Dirty())
}

func TestSaveWithoutHookIsNoOp(t *testing.T) {
	e := newTestEditor(t, Options{})
	assert.NoError(t, e.Save())
}

func TestViewportAndCanvasToggles(t *testing.T) {
	e := newTestEditor(t, Options{})

	e.SetViewport(document.Viewport{Zoom: 50, OffsetX: 10})
	assert.Equal(t, MaxZoom, e.Document().Viewport.Zoom)

	e.Pan(5, -5)
	assert.Equal(t, 15.0, e.Document().Viewport.OffsetX)
	assert.Equal(t, -5.0, e.Document().Viewport.OffsetY)

	e.ResetViewport()
	assert.Equal(t, document.Viewport{Zoom: 1}, e.Document().Viewport)

	showGrid := e.Document().Canvas.ShowGrid
	e.ToggleGrid()
	assert.Equal(t, !showGrid, e.Document().Canvas.ShowGrid)
	e.ToggleRulers()
	assert.True(t, e.Document().Canvas.ShowRulers)
	e.SetGridSize(0)
	assert.Equal(t, 20.0, e.Document().Canvas.GridSize)
	e.SetGridSize(50)
	assert.Equal(t, 50.0, e.Document().Canvas.GridSize)
	e.SetGridSize(0.05)
	assert.Equal(t, MinGridSize, e.Document().Canvas.GridSize)
}

func TestSetToolIgnoresUnknown(t *testing.T) {
	e := newTestEditor(t, Options{})
	e.SetTool("lasso")
	assert.Equal(t, ToolSelect, e.Tool())
}

func TestSummary(t *testing.T) {
	doc := document.NewSampleVenueMap("evt_1")
	s := Summarize(doc)

	assert.Equal(t, 4, s.Elements)
	assert.Equal(t, 3, s.Zones)
	assert.Equal(t, 100+50+10, s.TotalCapacity)
	assert.Equal(t, 6, s.Seats)
	assert.Equal(t, 0, s.OccupiedSeats)
	assert.Equal(t, 250000.0, s.MinPrice)
	assert.Equal(t, 250000.0, s.MaxPrice)
}
