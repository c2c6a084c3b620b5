package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hunt-tickets/venuemap/internal/document"
	"github.com/hunt-tickets/venuemap/internal/engine"
)

const (
	saveTimeout  = 10 * time.Second
	maxFrameSize = 8192
)

// Loader returns the stored venue map for an event, or a fresh one.
type Loader func(ctx context.Context, eventID string) (*document.VenueMap, error)

// Saver persists a venue map on behalf of userID. It must not retain doc.
type Saver func(ctx context.Context, userID string, doc *document.VenueMap) error

// Room is the shared editing session for one event. Every client in it
// drives the same editor, so the interaction state and viewport are shared
// too; while one client is mid-gesture the others are refused input.
type Room struct {
	eventID string

	mu       sync.Mutex
	clients  map[string]*Client // clientID -> client
	presence *presenceSet
	editor   *engine.Editor
	changes  []engine.Change
	seq      int64
	joining  int // guarded by Hub.mu

	gestureOwner string // clientID
	lastPointer  engine.Point
	lastEditor   string // userID
	saveAs       string // userID passed to the saver
}

func newRoom(eventID string) *Room {
	return &Room{
		eventID:  eventID,
		clients:  make(map[string]*Client),
		presence: newPresenceSet(),
	}
}

// Hub owns the live editing rooms, one per event.
type Hub struct {
	mu         sync.Mutex
	rooms      map[string]*Room // eventID -> room
	unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once

	load         Loader
	save         Saver
	historyLimit int
}

// NewHub creates a hub. save may be nil, in which case rooms are never
// persisted.
func NewHub(load Loader, save Saver, historyLimit int) *Hub {
	return &Hub{
		rooms:        make(map[string]*Room),
		unregister:   make(chan *Client),
		quit:         make(chan struct{}),
		load:         load,
		save:         save,
		historyLimit: historyLimit,
	}
}

// Run processes unregistrations until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.quit:
			return
		}
	}
}

// Unregister removes client from its room, saving the room if it was the
// last one there.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
		h.removeClient(client)
	}
}

// Stop ends Run and saves every room with unsaved changes.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })

	h.mu.Lock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.Unlock()

	for _, r := range rooms {
		r.mu.Lock()
		h.flushLocked(r)
		r.mu.Unlock()
	}
}

// Join adds client to its event's room, opening the room if needed, and
// sends it the welcome, the current document and everyone's presence.
func (h *Hub) Join(ctx context.Context, client *Client) error {
	h.mu.Lock()
	room, ok := h.rooms[client.EventID]
	if !ok {
		room = newRoom(client.EventID)
		h.rooms[client.EventID] = room
	}
	room.joining++
	h.mu.Unlock()

	room.mu.Lock()
	err := h.openLocked(ctx, room)
	var others []*Client
	if err == nil {
		room.clients[client.ClientID] = client
		client.Send(newMessage(TypeWelcome, WelcomePayload{
			ClientID: client.ClientID,
			UserID:   client.UserID,
			EventID:  client.EventID,
		}))
		client.Send(room.syncMessageLocked(nil))
		client.Send(room.presence.stateMessage())
		others = room.clientsLocked(client.ClientID)
	}
	room.mu.Unlock()

	h.mu.Lock()
	room.joining--
	if err != nil {
		room.mu.Lock()
		if len(room.clients) == 0 && room.joining == 0 && h.rooms[room.eventID] == room {
			delete(h.rooms, room.eventID)
		}
		room.mu.Unlock()
	}
	h.mu.Unlock()

	if err != nil {
		return fmt.Errorf("open room for event %s: %w", client.EventID, err)
	}

	join := newMessage(TypePresenceJoin, PresenceJoinPayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	join.UserID = client.UserID
	for _, c := range others {
		c.Send(join)
	}

	slog.Info("client joined", "user", client.UserID, "client", client.ClientID, "event", client.EventID)
	return nil
}

func (h *Hub) openLocked(ctx context.Context, r *Room) error {
	if r.editor != nil {
		return nil
	}
	doc, err := h.load(ctx, r.eventID)
	if err != nil {
		return err
	}

	opts := engine.Options{HistoryLimit: h.historyLimit}
	if h.save != nil {
		opts.Save = func(doc *document.VenueMap) error {
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			return h.save(ctx, r.saveAs, doc)
		}
	}
	r.editor = engine.NewEditor(r.eventID, doc, opts)
	r.editor.Subscribe(func(c engine.Change) {
		r.changes = append(r.changes, c)
	})
	return nil
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.EventID]
	if !ok {
		h.mu.Unlock()
		return
	}
	room.mu.Lock()
	h.mu.Unlock()

	if _, member := room.clients[client.ClientID]; !member {
		room.mu.Unlock()
		return
	}
	delete(room.clients, client.ClientID)
	client.close()
	room.presence.remove(client.ClientID)

	var syncMsg *Message
	if room.gestureOwner == client.ClientID {
		room.editor.PointerUp(room.lastPointer)
		room.gestureOwner = ""
		syncMsg = room.takeSyncLocked()
	}

	others := room.clientsLocked("")
	empty := len(others) == 0
	if empty {
		h.flushLocked(room)
	}
	room.mu.Unlock()

	if empty {
		h.mu.Lock()
		room.mu.Lock()
		if len(room.clients) == 0 && room.joining == 0 && h.rooms[room.eventID] == room {
			delete(h.rooms, room.eventID)
		}
		room.mu.Unlock()
		h.mu.Unlock()
	}

	leave := newMessage(TypePresenceLeave, PresenceLeavePayload{ClientID: client.ClientID, UserID: client.UserID})
	leave.UserID = client.UserID
	for _, c := range others {
		if syncMsg != nil {
			c.Send(syncMsg)
		}
		c.Send(leave)
	}

	slog.Info("client left", "user", client.UserID, "client", client.ClientID, "event", client.EventID)
}

// flushLocked saves the room's editor if it has unsaved changes, crediting
// the last client that changed the document.
func (h *Hub) flushLocked(r *Room) {
	if r.editor == nil || !r.editor.Dirty() || h.save == nil {
		return
	}
	r.saveAs = r.lastEditor
	if err := r.editor.Save(); err != nil {
		slog.Error("save room", "error", err, "event", r.eventID, "user", r.lastEditor)
		return
	}
	r.changes = nil
	slog.Info("room saved", "event", r.eventID, "user", r.lastEditor)
}

func (h *Hub) room(eventID string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms[eventID]
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypePointer, TypeKey, TypeToolSet, TypeElementUpdate, TypeViewportSet, TypeCommand:
		h.handleInput(sender, msg)
	case TypeFrameRequest:
		h.handleFrameRequest(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(errorMessage(ErrCodeBadRequest, "unknown message type "+msg.Type))
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		sender.Send(errorMessage(ErrCodeBadRequest, "invalid presence payload"))
		return
	}
	presence.DisplayName = sender.DisplayName

	room := h.room(sender.EventID)
	if room == nil {
		return
	}
	room.mu.Lock()
	room.presence.update(sender.ClientID, &presence)
	others := room.clientsLocked(sender.ClientID)
	room.mu.Unlock()

	out := newMessage(TypePresenceUpdate, presence)
	out.UserID = sender.UserID
	out.ClientID = sender.ClientID
	for _, c := range others {
		c.Send(out)
	}
}

// handleInput applies one editor input and sends the resulting state. Pure
// interaction feedback goes only to the sender; document changes go to
// the whole room.
func (h *Hub) handleInput(sender *Client, msg *Message) {
	room := h.room(sender.EventID)
	if room == nil {
		return
	}

	room.mu.Lock()
	if room.editor == nil {
		room.mu.Unlock()
		return
	}
	if room.gestureOwner != "" && room.gestureOwner != sender.ClientID {
		room.mu.Unlock()
		sender.Send(errorMessage(ErrCodeBusy, "another editor is in the middle of a gesture"))
		return
	}

	room.saveAs = sender.UserID
	reply := room.applyLocked(sender, msg)
	if changesDocument(room.changes) {
		room.lastEditor = sender.UserID
	}

	interactionOnly := onlyInteraction(room.changes)
	syncMsg := room.takeSyncLocked()
	targets := []*Client{sender}
	if !interactionOnly {
		targets = room.clientsLocked("")
	}
	room.mu.Unlock()

	if reply != nil {
		sender.Send(reply)
	}
	if syncMsg != nil {
		for _, c := range targets {
			c.Send(syncMsg)
		}
	}
}

func (r *Room) applyLocked(sender *Client, msg *Message) *Message {
	ed := r.editor
	switch msg.Type {
	case TypePointer:
		var p PointerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return badPayload(msg.Type, err)
		}
		pt := engine.Point{X: p.X, Y: p.Y}
		switch p.Phase {
		case PhaseDown:
			r.gestureOwner = sender.ClientID
			ed.PointerDown(pt, p.Modifiers)
		case PhaseMove:
			ed.PointerMove(pt)
		case PhaseUp:
			ed.PointerUp(pt)
			r.gestureOwner = ""
		default:
			return errorMessage(ErrCodeBadRequest, "unknown pointer phase "+p.Phase)
		}
		r.lastPointer = pt

	case TypeKey:
		var k engine.KeyEvent
		if err := json.Unmarshal(msg.Payload, &k); err != nil {
			return badPayload(msg.Type, err)
		}
		ed.HandleKey(k)
		if ed.State() == engine.StateIdle {
			r.gestureOwner = ""
		}

	case TypeToolSet:
		var p ToolPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return badPayload(msg.Type, err)
		}
		ed.SetTool(p.Tool)
		if ed.Tool() != p.Tool {
			return errorMessage(ErrCodeBadRequest, "unknown tool "+string(p.Tool))
		}

	case TypeElementUpdate:
		var p ElementUpdatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return badPayload(msg.Type, err)
		}
		if !ed.UpdateElement(p.ID, p.Patch) {
			return errorMessage(ErrCodeNotFound, "element "+p.ID+" not found")
		}
		if p.Commit {
			action := p.Action
			if action == "" {
				action = "update"
			}
			ed.Commit(action)
		}

	case TypeViewportSet:
		var vp document.Viewport
		if err := json.Unmarshal(msg.Payload, &vp); err != nil {
			return badPayload(msg.Type, err)
		}
		ed.SetViewport(vp)

	case TypeCommand:
		var p CommandPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return badPayload(msg.Type, err)
		}
		return r.commandLocked(p)
	}
	return nil
}

func (r *Room) commandLocked(p CommandPayload) *Message {
	ed := r.editor
	switch p.Command {
	case CmdUndo:
		ed.Undo()
	case CmdRedo:
		ed.Redo()
	case CmdSave:
		if err := ed.Save(); err != nil {
			slog.Error("save from command", "error", err, "event", r.eventID)
			return errorMessage(ErrCodeSaveFailed, "could not save the layout")
		}
	case CmdDelete:
		if len(p.IDs) > 0 {
			ed.DeleteElements(p.IDs)
		} else {
			ed.DeleteSelection()
		}
	case CmdDuplicate:
		ed.DuplicateSelection()
	case CmdSelect:
		ed.SetSelection(p.IDs)
	case CmdSelectAll:
		ed.SelectAll()
	case CmdClearSelection:
		ed.ClearSelection()
	case CmdToggleGrid:
		ed.ToggleGrid()
	case CmdToggleRulers:
		ed.ToggleRulers()
	case CmdResetViewport:
		ed.ResetViewport()
	case CmdBringToFront:
		for _, id := range p.IDs {
			ed.BringToFront(id)
		}
	case CmdSendToBack:
		for _, id := range p.IDs {
			ed.SendToBack(id)
		}
	default:
		return errorMessage(ErrCodeBadRequest, "unknown command "+p.Command)
	}
	return nil
}

func (h *Hub) handleFrameRequest(sender *Client, msg *Message) {
	var p FrameRequestPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		sender.Send(badPayload(msg.Type, err))
		return
	}
	if p.Width <= 0 || p.Height <= 0 || p.Width > maxFrameSize || p.Height > maxFrameSize {
		sender.Send(errorMessage(ErrCodeBadRequest, fmt.Sprintf("frame size must be between 1 and %d", maxFrameSize)))
		return
	}

	room := h.room(sender.EventID)
	if room == nil {
		return
	}
	room.mu.Lock()
	var out *Message
	if room.editor != nil {
		out = newMessage(TypeFrame, FramePayload{Commands: room.editor.Render(p.Width, p.Height)})
	}
	room.mu.Unlock()
	sender.Send(out)
}

// takeSyncLocked builds a doc.sync for the pending changes and clears
// them. It returns nil when nothing changed.
func (r *Room) takeSyncLocked() *Message {
	if len(r.changes) == 0 {
		return nil
	}
	msg := r.syncMessageLocked(r.changes)
	r.changes = nil
	return msg
}

func (r *Room) syncMessageLocked(changes []engine.Change) *Message {
	doc := r.editor.Document()
	view := *doc
	view.History = nil
	view.HistoryIndex = -1

	r.seq++
	msg := newMessage(TypeDocSync, DocSyncPayload{
		Document: &view,
		Tool:     r.editor.Tool(),
		State:    r.editor.State(),
		Changes:  changes,
		CanUndo:  engine.CanUndo(doc),
		CanRedo:  engine.CanRedo(doc),
		Dirty:    r.editor.Dirty(),
	})
	msg.EventID = r.eventID
	msg.Seq = r.seq
	return msg
}

func (r *Room) clientsLocked(excludeClientID string) []*Client {
	clients := make([]*Client, 0, len(r.clients))
	for id, c := range r.clients {
		if id != excludeClientID {
			clients = append(clients, c)
		}
	}
	return clients
}

func changesDocument(changes []engine.Change) bool {
	for _, c := range changes {
		switch c.Kind {
		case engine.ChangeElements, engine.ChangeHistory, engine.ChangeCanvas:
			return true
		}
	}
	return false
}

func onlyInteraction(changes []engine.Change) bool {
	for _, c := range changes {
		if c.Kind != engine.ChangeInteraction {
			return false
		}
	}
	return true
}

// newMessage marshals payload eagerly so the message can be shared
// between clients after the room lock is released.
func newMessage(msgType string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal payload", "error", err, "type", msgType)
		return nil
	}
	return &Message{Type: msgType, Payload: data}
}

func errorMessage(code, message string) *Message {
	return newMessage(TypeError, ErrorPayload{Code: code, Message: message})
}

func badPayload(msgType string, err error) *Message {
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		return errorMessage(ErrCodeBadRequest, "invalid "+msgType+" payload")
	}
	return errorMessage(ErrCodeBadRequest, fmt.Sprintf("invalid %s payload: %v", msgType, err))
}
