package collab

import (
	"encoding/json"
	"log/slog"
	"maps"
)

// presenceSet tracks cursors and selections per connected client. The
// owning room's lock guards it.
type presenceSet struct {
	byClient map[string]*PresencePayload
}

func newPresenceSet() *presenceSet {
	return &presenceSet{byClient: make(map[string]*PresencePayload)}
}

func (ps *presenceSet) update(clientID string, p *PresencePayload) {
	ps.byClient[clientID] = p
}

func (ps *presenceSet) remove(clientID string) {
	delete(ps.byClient, clientID)
}

func (ps *presenceSet) stateMessage() *Message {
	payload, err := json.Marshal(PresenceStatePayload{Presences: maps.Clone(ps.byClient)})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{Type: TypePresenceState, Payload: payload}
}
