//go:build js && wasm

package main

import (
	"encoding/json"
	"errors"
	"syscall/js"

	"github.com/hunt-tickets/venuemap/internal/document"
	"github.com/hunt-tickets/venuemap/internal/engine"
)

var (
	editor      *engine.Editor
	saveHandler js.Value
	listeners   []js.Value
)

func main() {
	openEditor("", nil)

	// Create the editor API object
	venueEditor := js.Global().Get("Object").New()

	// --- Commands (frontend → editor) ---
	venueEditor.Set("loadDocument", js.FuncOf(loadDocument))
	venueEditor.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	venueEditor.Set("pointerDown", js.FuncOf(pointerDown))
	venueEditor.Set("pointerMove", js.FuncOf(pointerMove))
	venueEditor.Set("pointerUp", js.FuncOf(pointerUp))
	venueEditor.Set("handleKey", js.FuncOf(handleKey))
	venueEditor.Set("setTool", js.FuncOf(setTool))
	venueEditor.Set("setSelection", js.FuncOf(setSelection))
	venueEditor.Set("updateElement", js.FuncOf(updateElement))
	venueEditor.Set("setVisibility", js.FuncOf(setVisibility))
	venueEditor.Set("setLocked", js.FuncOf(setLocked))
	venueEditor.Set("moveLayer", js.FuncOf(moveLayer))
	venueEditor.Set("zoomAt", js.FuncOf(zoomAt))
	venueEditor.Set("pan", js.FuncOf(pan))
	venueEditor.Set("undo", js.FuncOf(undo))
	venueEditor.Set("redo", js.FuncOf(redo))
	venueEditor.Set("save", js.FuncOf(save))
	venueEditor.Set("setSaveHandler", js.FuncOf(setSaveHandler))
	venueEditor.Set("onChange", js.FuncOf(onChange))

	// --- Queries (frontend ← editor) ---
	venueEditor.Set("render", js.FuncOf(render))
	venueEditor.Set("hitTest", js.FuncOf(hitTest))
	venueEditor.Set("getDocument", js.FuncOf(getDocument))
	venueEditor.Set("getState", js.FuncOf(getState))
	venueEditor.Set("getLayers", js.FuncOf(getLayers))
	venueEditor.Set("getSummary", js.FuncOf(getSummary))
	venueEditor.Set("canUndo", js.FuncOf(canUndo))
	venueEditor.Set("canRedo", js.FuncOf(canRedo))

	js.Global().Set("venueEditor", venueEditor)

	// Signal that WASM is ready
	js.Global().Set("venueEditorReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func openEditor(eventID string, doc *document.VenueMap) {
	editor = engine.NewEditor(eventID, doc, engine.Options{Save: saveToHost})
	editor.Subscribe(func(c engine.Change) {
		if len(listeners) == 0 {
			return
		}
		data, err := json.Marshal(c)
		if err != nil {
			return
		}
		for _, fn := range listeners {
			fn.Invoke(string(data))
		}
	})
}

// saveToHost hands the document JSON to the function registered with
// setSaveHandler. The host owns persistence.
func saveToHost(doc *document.VenueMap) error {
	if saveHandler.Type() != js.TypeFunction {
		return errors.New("no save handler registered")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	saveHandler.Invoke(string(data))
	return nil
}

func errorResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func okResult() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func jsonResult(v any) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf("null")
	}
	return js.ValueOf(string(data))
}

func modifiers(args []js.Value, from int) engine.Modifiers {
	flag := func(i int) bool {
		return len(args) > from+i && args[from+i].Truthy()
	}
	return engine.Modifiers{Shift: flag(0), Ctrl: flag(1), Meta: flag(2), Alt: flag(3)}
}

func point(args []js.Value) (engine.Point, bool) {
	if len(args) < 2 {
		return engine.Point{}, false
	}
	return engine.Point{X: args[0].Float(), Y: args[1].Float()}, true
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult(errors.New("missing document JSON"))
	}

	var doc document.VenueMap
	if err := json.Unmarshal([]byte(args[0].String()), &doc); err != nil {
		return errorResult(err)
	}
	openEditor(doc.EventID, &doc)
	return okResult()
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	eventID := "evt_sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		eventID = args[0].String()
	}

	openEditor(eventID, document.NewSampleVenueMap(eventID))
	return okResult()
}

// pointerDown(x, y, shift, ctrl, meta, alt)
func pointerDown(this js.Value, args []js.Value) interface{} {
	if p, ok := point(args); ok {
		editor.PointerDown(p, modifiers(args, 2))
	}
	return nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if p, ok := point(args); ok {
		editor.PointerMove(p)
	}
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if p, ok := point(args); ok {
		editor.PointerUp(p)
	}
	return nil
}

// handleKey takes a KeyEvent as JSON and returns whether it was consumed,
// so the host can call preventDefault.
func handleKey(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	var k engine.KeyEvent
	if err := json.Unmarshal([]byte(args[0].String()), &k); err != nil {
		return js.ValueOf(false)
	}
	return js.ValueOf(editor.HandleKey(k))
}

func setTool(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	editor.SetTool(engine.Tool(args[0].String()))
	return nil
}

func setSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		editor.ClearSelection()
		return nil
	}

	arr := args[0]
	ids := make([]string, arr.Length())
	for i := range ids {
		ids[i] = arr.Index(i).String()
	}
	editor.SetSelection(ids)
	return nil
}

// updateElement(id, patchJSON, commit)
func updateElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult(errors.New("missing element id or patch"))
	}
	var patch engine.ElementPatch
	if err := json.Unmarshal([]byte(args[1].String()), &patch); err != nil {
		return errorResult(err)
	}
	if !editor.UpdateElement(args[0].String(), patch) {
		return errorResult(errors.New("element not found"))
	}
	if len(args) > 2 && args[2].Truthy() {
		editor.Commit("update")
	}
	return okResult()
}

func setVisibility(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(editor.SetVisibility(args[0].String(), args[1].Truthy()))
}

func setLocked(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(editor.SetLocked(args[0].String(), args[1].Truthy()))
}

func moveLayer(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(editor.MoveLayer(args[0].String(), args[1].Int()))
}

// zoomAt(x, y, zoom) keeps the screen point under the cursor fixed.
func zoomAt(this js.Value, args []js.Value) interface{} {
	p, ok := point(args)
	if !ok || len(args) < 3 {
		return nil
	}
	editor.ZoomAt(p, args[2].Float())
	return nil
}

func pan(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	editor.Pan(args[0].Float(), args[1].Float())
	return nil
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(editor.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(editor.Redo())
}

func save(this js.Value, args []js.Value) interface{} {
	if err := editor.Save(); err != nil {
		return errorResult(err)
	}
	return okResult()
}

func setSaveHandler(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		saveHandler = js.Undefined()
		return nil
	}
	saveHandler = args[0]
	return nil
}

func onChange(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}
	listeners = append(listeners, args[0])
	return nil
}

// --- Query Handlers ---

// render(width, height) returns the frame's draw commands as JSON.
func render(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("[]")
	}
	out, _ := engine.DrawCommandsToJSON(editor.Render(args[0].Float(), args[1].Float()))
	return js.ValueOf(out)
}

func hitTest(this js.Value, args []js.Value) interface{} {
	p, ok := point(args)
	if !ok {
		return js.ValueOf("")
	}
	return js.ValueOf(engine.ElementAt(editor.Document(), p))
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return jsonResult(editor.Document())
}

func getState(this js.Value, args []js.Value) interface{} {
	return jsonResult(map[string]any{
		"tool":        editor.Tool(),
		"state":       editor.State(),
		"selectedIds": editor.Document().SelectedIDs,
		"dirty":       editor.Dirty(),
	})
}

func getLayers(this js.Value, args []js.Value) interface{} {
	return jsonResult(editor.Layers())
}

func getSummary(this js.Value, args []js.Value) interface{} {
	return jsonResult(editor.Summary())
}

func canUndo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(engine.CanUndo(editor.Document()))
}

func canRedo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(engine.CanRedo(editor.Document()))
}
