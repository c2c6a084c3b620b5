package engine

import (
	"log/slog"
	"strings"
)

// KeyEvent mirrors the fields of a browser KeyboardEvent the dispatcher
// needs. Target is the tag name of the focused element.
type KeyEvent struct {
	Key            string `json:"key"`
	Ctrl           bool   `json:"ctrl"`
	Meta           bool   `json:"meta"`
	Shift          bool   `json:"shift"`
	Alt            bool   `json:"alt"`
	Target         string `json:"target,omitempty"`
	TargetEditable bool   `json:"targetEditable,omitempty"`
}

const (
	nudgeStep      = 1.0
	nudgeStepShift = 10.0
)

var toolKeys = map[string]Tool{
	"v": ToolSelect,
	"r": ToolRectangle,
	"o": ToolCircle,
	"t": ToolText,
	"h": ToolHand,
	"s": ToolSeat,
}

// IsTextInput reports whether key events aimed at the target belong to a
// text field rather than the editor.
func (k KeyEvent) IsTextInput() bool {
	if k.TargetEditable {
		return true
	}
	switch strings.ToLower(k.Target) {
	case "input", "textarea":
		return true
	}
	return false
}

// HandleKey dispatches a key press to the matching editor command and
// reports whether it was consumed. Keys typed into text fields are ignored.
func (e *Editor) HandleKey(k KeyEvent) bool {
	if k.IsTextInput() {
		return false
	}
	key := k.Key
	if len(key) == 1 {
		key = strings.ToLower(key)
	}

	if k.Ctrl || k.Meta {
		switch key {
		case "z":
			if k.Shift {
				e.Redo()
			} else {
				e.Undo()
			}
		case "y":
			e.Redo()
		case "d":
			e.DuplicateSelection()
		case "s":
			if err := e.Save(); err != nil {
				slog.Error("save from shortcut", "error", err, "map", e.doc.ID)
			}
		default:
			return false
		}
		return true
	}

	if k.Alt {
		return false
	}

	if tool, ok := toolKeys[key]; ok {
		e.SetTool(tool)
		return true
	}

	step := nudgeStep
	if k.Shift {
		step = nudgeStepShift
	}
	switch key {
	case "Delete", "Backspace":
		e.DeleteSelection()
	case "Escape":
		e.Escape()
	case "ArrowUp":
		e.Nudge(0, -step)
	case "ArrowDown":
		e.Nudge(0, step)
	case "ArrowLeft":
		e.Nudge(-step, 0)
	case "ArrowRight":
		e.Nudge(step, 0)
	default:
		return false
	}
	return true
}
