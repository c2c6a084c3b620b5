package collab

import (
	"encoding/json"

	"github.com/hunt-tickets/venuemap/internal/document"
	"github.com/hunt-tickets/venuemap/internal/engine"
)

// Message is the envelope for every websocket frame in both directions.
type Message struct {
	Type     string          `json:"type"`
	EventID  string          `json:"eventId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync = "doc.sync"

	// Editor input, client to server
	TypePointer       = "input.pointer"
	TypeKey           = "input.key"
	TypeToolSet       = "tool.set"
	TypeElementUpdate = "element.update"
	TypeViewportSet   = "viewport.set"
	TypeCommand       = "command"
	TypeFrameRequest  = "frame.request"

	// Server to requesting client only
	TypeFrame = "frame"
)

// Error codes carried in ErrorPayload.
const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeBusy       = "busy"
	ErrCodeNotFound   = "not_found"
	ErrCodeSaveFailed = "save_failed"
)

// Pointer phases.
const (
	PhaseDown = "down"
	PhaseMove = "move"
	PhaseUp   = "up"
)

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"` // canvas units
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PresenceStatePayload maps client ids to their last presence.
type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

type WelcomePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
	EventID  string `json:"eventId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PointerPayload is a pointer event in screen pixels of the shared viewport.
type PointerPayload struct {
	Phase string  `json:"phase"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	engine.Modifiers
}

type ToolPayload struct {
	Tool engine.Tool `json:"tool"`
}

// ElementUpdatePayload patches one element. With Commit set the result is
// recorded as a single undo step named Action.
type ElementUpdatePayload struct {
	ID     string              `json:"id"`
	Patch  engine.ElementPatch `json:"patch"`
	Commit bool                `json:"commit,omitempty"`
	Action string              `json:"action,omitempty"`
}

// CommandPayload names an editor command without a keyboard binding, or
// one a client prefers to send explicitly.
type CommandPayload struct {
	Command string   `json:"command"`
	IDs     []string `json:"ids,omitempty"`
}

// Commands accepted in CommandPayload.
const (
	CmdUndo           = "undo"
	CmdRedo           = "redo"
	CmdSave           = "save"
	CmdDelete         = "delete"
	CmdDuplicate      = "duplicate"
	CmdSelect         = "select"
	CmdSelectAll      = "selectAll"
	CmdClearSelection = "clearSelection"
	CmdToggleGrid     = "toggleGrid"
	CmdToggleRulers   = "toggleRulers"
	CmdResetViewport  = "resetViewport"
	CmdBringToFront   = "bringToFront"
	CmdSendToBack     = "sendToBack"
)

// FrameRequestPayload asks for the current frame at a surface size.
type FrameRequestPayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type FramePayload struct {
	Commands []engine.DrawCommand `json:"commands"`
}

// DocSyncPayload carries the full editable state after a batch of changes.
// The document is sent without its history stack.
type DocSyncPayload struct {
	Document *document.VenueMap      `json:"document"`
	Tool     engine.Tool             `json:"tool"`
	State    engine.InteractionState `json:"state"`
	Changes  []engine.Change         `json:"changes,omitempty"`
	CanUndo  bool                    `json:"canUndo"`
	CanRedo  bool                    `json:"canRedo"`
	Dirty    bool                    `json:"dirty"`
}
