package collab

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunt-tickets/venuemap/internal/document"
	"github.com/hunt-tickets/venuemap/internal/engine"
)

type savedCall struct {
	userID string
	doc    *document.VenueMap
}

type memLayouts struct {
	mu      sync.Mutex
	docs    map[string]*document.VenueMap
	saves   []savedCall
	loadErr error
	saveErr error
}

func (m *memLayouts) load(_ context.Context, eventID string) (*document.VenueMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if doc, ok := m.docs[eventID]; ok {
		return doc.Clone(), nil
	}
	return document.NewEmptyVenueMap("map_test", eventID, ""), nil
}

func (m *memLayouts) save(_ context.Context, userID string, doc *document.VenueMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves = append(m.saves, savedCall{userID: userID, doc: doc.Clone()})
	return nil
}

func newTestHub(t *testing.T) (*Hub, *memLayouts) {
	t.Helper()
	layouts := &memLayouts{docs: map[string]*document.VenueMap{
		"evt_sample": document.NewSampleVenueMap("evt_sample"),
	}}
	return NewHub(layouts.load, layouts.save, 50), layouts
}

func join(t *testing.T, h *Hub, userID, eventID string) *Client {
	t.Helper()
	c := NewClient(h, nil, userID, userID+" display", eventID, "")
	require.NoError(t, h.Join(context.Background(), c))
	return c
}

// drain returns every message queued for c so far.
func drain(t *testing.T, c *Client) []*Message {
	t.Helper()
	var msgs []*Message
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return msgs
			}
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			msgs = append(msgs, &msg)
		default:
			return msgs
		}
	}
}

func send(h *Hub, c *Client, msgType string, payload any) {
	msg := newMessage(msgType, payload)
	msg.UserID = c.UserID
	msg.ClientID = c.ClientID
	msg.EventID = c.EventID
	h.handleMessage(c, msg)
}

func types(msgs []*Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func lastSync(t *testing.T, msgs []*Message) DocSyncPayload {
	t.Helper()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == TypeDocSync {
			var p DocSyncPayload
			require.NoError(t, json.Unmarshal(msgs[i].Payload, &p))
			return p
		}
	}
	require.Fail(t, "no doc.sync message", "got %v", types(msgs))
	return DocSyncPayload{}
}

func firstError(t *testing.T, msgs []*Message) ErrorPayload {
	t.Helper()
	for _, m := range msgs {
		if m.Type == TypeError {
			var p ErrorPayload
			require.NoError(t, json.Unmarshal(m.Payload, &p))
			return p
		}
	}
	require.Fail(t, "no error message", "got %v", types(msgs))
	return ErrorPayload{}
}

func pointer(h *Hub, c *Client, phase string, x, y float64) {
	send(h, c, TypePointer, PointerPayload{Phase: phase, X: x, Y: y})
}

func TestJoinSendsWelcomeSyncAndPresence(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(t, h, "user_a", "evt_1")

	msgs := drain(t, a)
	require.Equal(t, []string{TypeWelcome, TypeDocSync, TypePresenceState}, types(msgs))

	var welcome WelcomePayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &welcome))
	assert.Equal(t, a.ClientID, welcome.ClientID)
	assert.Equal(t, "evt_1", welcome.EventID)

	ds := lastSync(t, msgs)
	assert.Equal(t, "evt_1", ds.Document.EventID)
	assert.Empty(t, ds.Document.History)
	assert.Equal(t, engine.ToolSelect, ds.Tool)
	assert.False(t, ds.CanUndo)

	b := join(t, h, "user_b", "evt_1")
	drain(t, b)
	msgs = drain(t, a)
	require.Equal(t, []string{TypePresenceJoin}, types(msgs))
	var joined PresenceJoinPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &joined))
	assert.Equal(t, b.ClientID, joined.ClientID)
	assert.Equal(t, "user_b display", joined.DisplayName)
}

func TestJoinLoadError(t *testing.T) {
	h, layouts := newTestHub(t)
	layouts.loadErr = errors.New("db down")

	c := NewClient(h, nil, "user_a", "A", "evt_1", "")
	err := h.Join(context.Background(), c)
	require.ErrorIs(t, err, layouts.loadErr)
	assert.Nil(t, h.room("evt_1"))

	layouts.loadErr = nil
	join(t, h, "user_a", "evt_1")
	assert.NotNil(t, h.room("evt_1"))
}

func TestDrawingBroadcastsOnlyTheResult(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(t, h, "user_a", "evt_1")
	b := join(t, h, "user_b", "evt_1")
	drain(t, a)
	drain(t, b)

	send(h, a, TypeToolSet, ToolPayload{Tool: engine.ToolRectangle})
	assert.Equal(t, engine.ToolRectangle, lastSync(t, drain(t, b)).Tool)
	drain(t, a)

	pointer(h, a, PhaseDown, 100, 100)
	pointer(h, a, PhaseMove, 200, 180)
	assert.Empty(t, drain(t, b))
	assert.Equal(t, engine.StateDrawing, lastSync(t, drain(t, a)).State)

	pointer(h, a, PhaseUp, 250, 220)
	for _, c := range []*Client{a, b} {
		ds := lastSync(t, drain(t, c))
		require.Len(t, ds.Document.Elements, 1)
		el := ds.Document.Elements[ds.Document.ElementOrder[0]]
		assert.Equal(t, 150.0, el.Transform.Width)
		assert.Equal(t, 120.0, el.Transform.Height)
		assert.True(t, ds.CanUndo)
		assert.True(t, ds.Dirty)
		assert.Equal(t, engine.StateIdle, ds.State)
	}
}

func TestSecondClientIsBusyDuringGesture(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(t, h, "user_a", "evt_1")
	b := join(t, h, "user_b", "evt_1")
	drain(t, a)
	drain(t, b)

	pointer(h, a, PhaseDown, 10, 10)
	pointer(h, b, PhaseDown, 50, 50)
	assert.Equal(t, ErrCodeBusy, firstError(t, drain(t, b)).Code)

	send(h, b, TypeCommand, CommandPayload{Command: CmdSelectAll})
	assert.Equal(t, ErrCodeBusy, firstError(t, drain(t, b)).Code)

	pointer(h, a, PhaseUp, 20, 20)
	drain(t, b)
	pointer(h, b, PhaseDown, 50, 50)
	for _, m := range drain(t, b) {
		assert.NotEqual(t, TypeError, m.Type)
	}
}

func TestEscapeReleasesGesture(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(t, h, "user_a", "evt_1")
	b := join(t, h, "user_b", "evt_1")

	pointer(h, a, PhaseDown, 10, 10)
	send(h, a, TypeKey, engine.KeyEvent{Key: "Escape"})
	drain(t, b)

	pointer(h, b, PhaseDown, 50, 50)
	for _, m := range drain(t, b) {
		assert.NotEqual(t, TypeError, m.Type)
	}
}

func TestElementUpdate(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(t, h, "user_a", "evt_sample")
	ds := lastSync(t, drain(t, a))
	id := ds.Document.ElementOrder[1]

	name := "Platea"
	send(h, a, TypeElementUpdate, ElementUpdatePayload{ID: id, Patch: engine.ElementPatch{Name: &name}, Commit: true, Action: "rename"})
	ds = lastSync(t, drain(t, a))
	assert.Equal(t, "Platea", ds.Document.Elements[id].Name)
	assert.True(t, ds.CanUndo)

	send(h, a, TypeKey, engine.KeyEvent{Key: "z", Ctrl: true})
	ds = lastSync(t, drain(t, a))
	assert.Equal(t, "General", ds.Document.Elements[id].Name)
	assert.True(t, ds.CanRedo)

	send(h, a, TypeElementUpdate, ElementUpdatePayload{ID: "el_missing", Patch: engine.ElementPatch{Name: &name}})
	assert.Equal(t, ErrCodeNotFound, firstError(t, drain(t, a)).Code)
}

func TestBadInput(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(t, h, "user_a", "evt_1")
	drain(t, a)

	tests := []struct {
		name    string
		msgType string
		payload any
	}{
		{"unknown type", "op.submit", map[string]string{}},
		{"unknown tool", TypeToolSet, ToolPayload{Tool: "lasso"}},
		{"unknown phase", TypePointer, PointerPayload{Phase: "hover"}},
		{"unknown command", TypeCommand, CommandPayload{Command: "explode"}},
		{"wrong payload shape", TypeCommand, []int{1, 2}},
		{"zero frame", TypeFrameRequest, FrameRequestPayload{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(h, a, tt.msgType, tt.payload)
			assert.Equal(t, ErrCodeBadRequest, firstError(t, drain(t, a)).Code)
		})
	}
}

func TestFrameRequest(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(t, h, "user_a", "evt_sample")
	drain(t, a)

	send(h, a, TypeFrameRequest, FrameRequestPayload{Width: 800, Height: 600})
	msgs := drain(t, a)
	require.Equal(t, []string{TypeFrame}, types(msgs))

	var frame FramePayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &frame))
	require.NotEmpty(t, frame.Commands)
	assert.Equal(t, engine.OpClear, frame.Commands[0].Op)
	assert.Equal(t, 800.0, frame.Commands[0].Width)
}

func TestPresenceIsForwardedToOthers(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(t, h, "user_a", "evt_1")
	b := join(t, h, "user_b", "evt_1")
	drain(t, a)
	drain(t, b)

	send(h, a, TypePresenceUpdate, PresencePayload{Cursor: &CursorPos{X: 5, Y: 6}, DisplayName: "spoofed"})
	assert.Empty(t, drain(t, a))

	msgs := drain(t, b)
	require.Equal(t, []string{TypePresenceUpdate}, types(msgs))
	assert.Equal(t, a.ClientID, msgs[0].ClientID)
	var p PresencePayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &p))
	assert.Equal(t, "user_a display", p.DisplayName)
	assert.Equal(t, 5.0, p.Cursor.X)

	c := join(t, h, "user_c", "evt_1")
	var state PresenceStatePayload
	for _, m := range drain(t, c) {
		if m.Type == TypePresenceState {
			require.NoError(t, json.Unmarshal(m.Payload, &state))
		}
	}
	assert.Contains(t, state.Presences, a.ClientID)
}

func TestCommandSaveCreditsSender(t *testing.T) {
	h, layouts := newTestHub(t)
	a := join(t, h, "user_a", "evt_sample")
	b := join(t, h, "user_b", "evt_sample")
	drain(t, a)

	send(h, a, TypeCommand, CommandPayload{Command: CmdToggleGrid})
	send(h, b, TypeCommand, CommandPayload{Command: CmdSave})
	require.Len(t, layouts.saves, 1)
	assert.Equal(t, "user_b", layouts.saves[0].userID)
	assert.False(t, lastSync(t, drain(t, a)).Dirty)

	layouts.saveErr = errors.New("db down")
	send(h, b, TypeCommand, CommandPayload{Command: CmdSave})
	assert.Equal(t, ErrCodeSaveFailed, firstError(t, drain(t, b)).Code)
}

func TestLastClientLeavingSavesDirtyRoom(t *testing.T) {
	h, layouts := newTestHub(t)
	a := join(t, h, "user_a", "evt_sample")
	b := join(t, h, "user_b", "evt_sample")
	id := lastSync(t, drain(t, a)).Document.ElementOrder[0]

	send(h, a, TypeCommand, CommandPayload{Command: CmdDelete, IDs: []string{id}})
	h.removeClient(a)
	assert.Empty(t, layouts.saves)
	assert.Contains(t, types(drain(t, b)), TypePresenceLeave)

	h.removeClient(b)
	require.Len(t, layouts.saves, 1)
	assert.Equal(t, "user_a", layouts.saves[0].userID)
	assert.NotContains(t, layouts.saves[0].doc.Elements, id)
	assert.Nil(t, h.room("evt_sample"))

	h.removeClient(b)
	assert.Len(t, layouts.saves, 1)
}

func TestLeavingCleanRoomDoesNotSave(t *testing.T) {
	h, layouts := newTestHub(t)
	a := join(t, h, "user_a", "evt_sample")

	send(h, a, TypeCommand, CommandPayload{Command: CmdSelectAll})
	h.removeClient(a)
	assert.Empty(t, layouts.saves)
	assert.Nil(t, h.room("evt_sample"))
}

func TestOwnerLeavingMidDragCommitsMove(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(t, h, "user_a", "evt_sample")
	b := join(t, h, "user_b", "evt_sample")
	doc := lastSync(t, drain(t, a)).Document
	id := doc.ElementOrder[len(doc.ElementOrder)-1]
	el := doc.Elements[id]
	cx, cy := el.Transform.X+el.Transform.Width/2, el.Transform.Y+el.Transform.Height/2

	pointer(h, a, PhaseDown, cx, cy)
	pointer(h, a, PhaseMove, cx+30, cy)
	drain(t, b)

	h.removeClient(a)
	ds := lastSync(t, drain(t, b))
	assert.Equal(t, el.Transform.X+30, ds.Document.Elements[id].Transform.X)
	assert.True(t, ds.CanUndo)
	assert.Equal(t, engine.StateIdle, ds.State)

	pointer(h, b, PhaseDown, 5, 5)
	for _, m := range drain(t, b) {
		assert.NotEqual(t, TypeError, m.Type)
	}
}

func TestStopSavesDirtyRooms(t *testing.T) {
	h, layouts := newTestHub(t)
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	a := join(t, h, "user_a", "evt_sample")
	join(t, h, "user_b", "evt_1")
	send(h, a, TypeCommand, CommandPayload{Command: CmdToggleRulers})

	h.Stop()
	<-done
	require.Len(t, layouts.saves, 1)
	assert.Equal(t, "evt_sample", layouts.saves[0].doc.EventID)

	h.Unregister(a)
	assert.Len(t, layouts.saves, 1)
}
