package layout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hunt-tickets/venuemap/internal/document"
	"github.com/hunt-tickets/venuemap/internal/engine"
	"github.com/hunt-tickets/venuemap/internal/queue"
	"github.com/hunt-tickets/venuemap/internal/typeid"
)

var (
	ErrNotFound = errors.New("layout not found")
	ErrInvalid  = errors.New("invalid layout")
)

// Publisher announces saved layouts to other services.
type Publisher interface {
	PublishLayoutSaved(ctx context.Context, event queue.LayoutSavedEvent) error
}

// PreviewCache drops rendered previews of an event.
type PreviewCache interface {
	Invalidate(ctx context.Context, eventID string) error
}

// Service loads and saves event layouts.
type Service struct {
	store     Store
	publisher Publisher
	cache     PreviewCache
	now       func() time.Time
}

// NewService wires the store with optional event publishing and preview
// cache invalidation; publisher and cache may be nil.
func NewService(store Store, publisher Publisher, cache PreviewCache) *Service {
	return &Service{store: store, publisher: publisher, cache: cache, now: time.Now}
}

// Get returns the stored layout for an event.
func (s *Service) Get(ctx context.Context, eventID string) (*document.VenueMap, error) {
	rec, err := s.store.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	doc := rec.Document
	if doc == nil {
		return nil, fmt.Errorf("layout %s has no document: %w", eventID, ErrInvalid)
	}
	engine.Normalize(doc)
	return doc, nil
}

// Open returns the stored layout, or a new empty one when the event has
// none yet. New layouts are not stored until saved.
func (s *Service) Open(ctx context.Context, eventID, name string) (*document.VenueMap, error) {
	doc, err := s.Get(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		return document.NewEmptyVenueMap(typeid.NewMapID(), eventID, name), nil
	}
	return doc, err
}

// Save persists doc without its undo history and bumps the stored version.
// doc itself is not modified.
func (s *Service) Save(ctx context.Context, userID string, doc *document.VenueMap) (*Record, error) {
	if doc == nil || doc.EventID == "" {
		return nil, fmt.Errorf("missing event id: %w", ErrInvalid)
	}

	view := *doc
	view.History = nil
	stored := view.Clone()
	stored.History = nil
	stored.HistoryIndex = -1
	stored.SelectedIDs = nil
	engine.Normalize(stored)
	if err := typeid.Validate(stored.ID, typeid.PrefixMap); err != nil {
		stored.ID = typeid.NewMapID()
	}

	now := s.now()
	if stored.LastModified == 0 {
		stored.LastModified = now.UnixMilli()
	}

	rec, err := s.store.Put(ctx, Record{
		ID:        stored.ID,
		EventID:   stored.EventID,
		Name:      stored.Name,
		UpdatedBy: userID,
		UpdatedAt: now,
		Document:  stored,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("layout saved", "event", rec.EventID, "version", rec.Version, "user", userID)

	s.invalidate(ctx, rec.EventID)
	if s.publisher != nil {
		sum := engine.Summarize(stored)
		err := s.publisher.PublishLayoutSaved(ctx, queue.LayoutSavedEvent{
			LayoutID:      rec.ID,
			EventID:       rec.EventID,
			Name:          rec.Name,
			Version:       rec.Version,
			Zones:         sum.Zones,
			TotalCapacity: sum.TotalCapacity,
			Seats:         sum.Seats,
			MinPrice:      sum.MinPrice,
			MaxPrice:      sum.MaxPrice,
			SavedBy:       userID,
			SavedAt:       rec.UpdatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			slog.Warn("publish layout.saved failed", "error", err, "event", rec.EventID)
		}
	}
	return rec, nil
}

// Delete removes the layout for an event and drops its cached previews.
func (s *Service) Delete(ctx context.Context, eventID string) error {
	if err := s.store.Delete(ctx, eventID); err != nil {
		return err
	}
	s.invalidate(ctx, eventID)
	slog.Info("layout deleted", "event", eventID)
	return nil
}

// Summary summarizes the stored layout for an event.
func (s *Service) Summary(ctx context.Context, eventID string) (engine.Summary, error) {
	doc, err := s.Get(ctx, eventID)
	if err != nil {
		return engine.Summary{}, err
	}
	return engine.Summarize(doc), nil
}

func (s *Service) invalidate(ctx context.Context, eventID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		slog.Warn("invalidate preview cache failed", "error", err, "event", eventID)
	}
}
