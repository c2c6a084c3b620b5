package engine

import "github.com/hunt-tickets/venuemap/internal/document"

// Layer is one row of the layers panel.
type Layer struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Type     document.ElementType `json:"type"`
	Visible  bool                 `json:"visible"`
	Locked   bool                 `json:"locked"`
	Selected bool                 `json:"selected"`
}

// Layers lists elements top-most first, as the layers panel shows them.
func (e *Editor) Layers() []Layer {
	out := make([]Layer, 0, len(e.doc.ElementOrder))
	for i := len(e.doc.ElementOrder) - 1; i >= 0; i-- {
		el := e.doc.Elements[e.doc.ElementOrder[i]]
		out = append(out, Layer{
			ID:       el.ID,
			Name:     el.Name,
			Type:     el.Type,
			Visible:  el.IsVisible,
			Locked:   el.IsLocked,
			Selected: e.IsSelected(el.ID),
		})
	}
	return out
}

// SetVisibility shows or hides an element. It records no history.
func (e *Editor) SetVisibility(id string, visible bool) bool {
	return e.UpdateElement(id, ElementPatch{IsVisible: &visible})
}

// SetLocked locks or unlocks an element. It records no history.
func (e *Editor) SetLocked(id string, locked bool) bool {
	return e.UpdateElement(id, ElementPatch{IsLocked: &locked})
}

// MoveLayer moves id to index in the back-to-front order, clamping index
// into range, and records a history entry.
func (e *Editor) MoveLayer(id string, index int) bool {
	from := -1
	for i, oid := range e.doc.ElementOrder {
		if oid == id {
			from = i
			break
		}
	}
	if from < 0 {
		return false
	}
	index = max(0, min(index, len(e.doc.ElementOrder)-1))
	if index == from {
		return false
	}

	order := append(e.doc.ElementOrder[:from:from], e.doc.ElementOrder[from+1:]...)
	order = append(order[:index], append([]string{id}, order[index:]...)...)
	e.doc.ElementOrder = order
	e.reindex()
	e.touch()
	e.record("reorder")
	e.notify(Change{Kind: ChangeElements, Action: "reorder", IDs: []string{id}})
	return true
}

// BringToFront moves an element to the top of the stack.
func (e *Editor) BringToFront(id string) bool {
	return e.MoveLayer(id, len(e.doc.ElementOrder)-1)
}

// SendToBack moves an element to the bottom of the stack.
func (e *Editor) SendToBack(id string) bool {
	return e.MoveLayer(id, 0)
}
