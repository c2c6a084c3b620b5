package layout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunt-tickets/venuemap/internal/document"
	"github.com/hunt-tickets/venuemap/internal/engine"
	"github.com/hunt-tickets/venuemap/internal/queue"
	"github.com/hunt-tickets/venuemap/internal/typeid"
)

type memStore struct {
	mu   sync.Mutex
	recs map[string]Record
	err  error
}

func newMemStore() *memStore {
	return &memStore{recs: map[string]Record{}}
}

func (m *memStore) Get(_ context.Context, eventID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	rec, ok := m.recs[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Document = rec.Document.Clone()
	return &rec, nil
}

func (m *memStore) Put(_ context.Context, rec Record) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if old, ok := m.recs[rec.EventID]; ok {
		rec.ID = old.ID
		rec.Version = old.Version + 1
	} else {
		rec.Version = 1
	}
	rec.Document = rec.Document.Clone()
	m.recs[rec.EventID] = rec
	return &rec, nil
}

func (m *memStore) Delete(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[eventID]; !ok {
		return ErrNotFound
	}
	delete(m.recs, eventID)
	return nil
}

type fakePublisher struct {
	events []queue.LayoutSavedEvent
	err    error
}

func (p *fakePublisher) PublishLayoutSaved(_ context.Context, ev queue.LayoutSavedEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

type fakeCache struct {
	invalidated []string
}

func (c *fakeCache) Invalidate(_ context.Context, eventID string) error {
	c.invalidated = append(c.invalidated, eventID)
	return nil
}

func newTestService() (*Service, *memStore, *fakePublisher, *fakeCache) {
	store := newMemStore()
	pub := &fakePublisher{}
	cache := &fakeCache{}
	svc := NewService(store, pub, cache)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC) }
	return svc, store, pub, cache
}

func editedDoc(t *testing.T, eventID string) *document.VenueMap {
	t.Helper()
	e := engine.NewEditor(eventID, nil, engine.Options{})
	e.CreateElement(document.NewZone("", "General", "general", 0, 0, 200, 100))
	e.CreateElement(document.NewZone("", "VIP", "vip", 300, 0, 100, 100))
	return e.Document()
}

func TestOpenReturnsEmptyWhenMissing(t *testing.T) {
	svc, _, _, _ := newTestService()

	doc, err := svc.Open(context.Background(), "evt_1", "Teatro")
	require.NoError(t, err)
	assert.Equal(t, "evt_1", doc.EventID)
	assert.Equal(t, "Teatro", doc.Name)
	assert.Empty(t, doc.Elements)

	_, err = svc.Get(context.Background(), "evt_1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveStripsHistoryAndLeavesInputAlone(t *testing.T) {
	svc, store, pub, cache := newTestService()
	doc := editedDoc(t, "evt_1")
	historyLen := len(doc.History)
	require.NotZero(t, historyLen)

	rec, err := svc.Save(context.Background(), "user_1", doc)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Version)
	assert.Equal(t, "user_1", rec.UpdatedBy)

	assert.Len(t, doc.History, historyLen)
	assert.NotEmpty(t, doc.SelectedIDs)

	stored := store.recs["evt_1"].Document
	assert.Empty(t, stored.History)
	assert.Equal(t, -1, stored.HistoryIndex)
	assert.Empty(t, stored.SelectedIDs)
	assert.Len(t, stored.Elements, 2)
	assert.Equal(t, doc.ElementOrder, stored.ElementOrder)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, "evt_1", ev.EventID)
	assert.Equal(t, 2, ev.Zones)
	assert.Equal(t, 150, ev.TotalCapacity)
	assert.Equal(t, "2026-05-01T20:00:00Z", ev.SavedAt)
	assert.Equal(t, []string{"evt_1"}, cache.invalidated)
}

func TestSaveBumpsVersion(t *testing.T) {
	svc, _, _, _ := newTestService()
	doc := editedDoc(t, "evt_1")

	_, err := svc.Save(context.Background(), "user_1", doc)
	require.NoError(t, err)
	rec, err := svc.Save(context.Background(), "user_2", doc)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Version)

	loaded, err := svc.Get(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.Len(t, loaded.Elements, 2)
}

func TestSaveReplacesMalformedMapID(t *testing.T) {
	svc, store, _, _ := newTestService()
	doc := document.NewEmptyVenueMap("map_1", "evt_1", "")

	rec, err := svc.Save(context.Background(), "user_1", doc)
	require.NoError(t, err)
	assert.NotEqual(t, "map_1", rec.ID)
	assert.NoError(t, typeid.Validate(rec.ID, typeid.PrefixMap))
	assert.Equal(t, rec.ID, store.recs["evt_1"].Document.ID)
	assert.Equal(t, "map_1", doc.ID)

	kept := editedDoc(t, "evt_2")
	rec, err = svc.Save(context.Background(), "user_1", kept)
	require.NoError(t, err)
	assert.Equal(t, kept.ID, rec.ID)
}

func TestSaveRejectsMissingEvent(t *testing.T) {
	svc, _, _, _ := newTestService()
	doc := document.NewEmptyVenueMap("map_1", "", "")

	_, err := svc.Save(context.Background(), "user_1", doc)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Save(context.Background(), "user_1", nil)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSaveSurvivesPublisherFailure(t *testing.T) {
	svc, _, pub, _ := newTestService()
	pub.err = errors.New("broker down")

	_, err := svc.Save(context.Background(), "user_1", editedDoc(t, "evt_1"))
	assert.NoError(t, err)
}

func TestSaveStoreError(t *testing.T) {
	svc, store, pub, _ := newTestService()
	store.err = errors.New("connection refused")

	_, err := svc.Save(context.Background(), "user_1", editedDoc(t, "evt_1"))
	assert.Error(t, err)
	assert.Empty(t, pub.events)
}

func TestGetRepairsStoredDocument(t *testing.T) {
	svc, store, _, _ := newTestService()
	doc := document.NewEmptyVenueMap("map_1", "evt_1", "")
	doc.Elements["a"] = document.NewZone("a", "A", "general", 0, 0, 10, 10)
	doc.ElementOrder = []string{"a", "ghost"}
	store.recs["evt_1"] = Record{ID: "map_1", EventID: "evt_1", Version: 4, Document: doc}

	loaded, err := svc.Get(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, loaded.ElementOrder)
}

func TestDeleteAndSummary(t *testing.T) {
	svc, _, _, cache := newTestService()
	ctx := context.Background()
	_, err := svc.Save(ctx, "user_1", editedDoc(t, "evt_1"))
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Zones)
	assert.Equal(t, 150, sum.TotalCapacity)

	require.NoError(t, svc.Delete(ctx, "evt_1"))
	assert.ErrorIs(t, svc.Delete(ctx, "evt_1"), ErrNotFound)
	assert.Equal(t, []string{"evt_1", "evt_1"}, cache.invalidated)

	_, err = svc.Summary(ctx, "evt_1")
	assert.ErrorIs(t, err, ErrNotFound)
}
