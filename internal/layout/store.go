package layout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hunt-tickets/venuemap/internal/document"
)

// Record is a stored layout with its row metadata.
type Record struct {
	ID        string             `json:"id"`
	EventID   string             `json:"eventId"`
	Name      string             `json:"name"`
	Version   int                `json:"version"`
	UpdatedBy string             `json:"updatedBy"`
	UpdatedAt time.Time          `json:"updatedAt"`
	Document  *document.VenueMap `json:"-"`
}

// Store persists one layout per event.
type Store interface {
	Get(ctx context.Context, eventID string) (*Record, error)
	// Put inserts or replaces the event's layout and returns the stored
	// record with its new version.
	Put(ctx context.Context, rec Record) (*Record, error)
	Delete(ctx context.Context, eventID string) error
}

// PgStore keeps layouts in the venue_layouts table, one row per event.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a store backed by pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Get loads the layout for an event. It returns ErrNotFound when there is none.
func (s *PgStore) Get(ctx context.Context, eventID string) (*Record, error) {
	var (
		rec Record
		raw []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, event_id, name, document, version, updated_by, updated_at
		FROM venue_layouts
		WHERE event_id = $1`, eventID,
	).Scan(&rec.ID, &rec.EventID, &rec.Name, &raw, &rec.Version, &rec.UpdatedBy, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get layout %s: %w", eventID, err)
	}

	var doc document.VenueMap
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode layout %s: %w", eventID, err)
	}
	rec.Document = &doc
	return &rec, nil
}

// Put inserts or replaces the event's layout and bumps its version.
func (s *PgStore) Put(ctx context.Context, rec Record) (*Record, error) {
	raw, err := json.Marshal(rec.Document)
	if err != nil {
		return nil, fmt.Errorf("encode layout %s: %w", rec.EventID, err)
	}

	out := rec
	err = s.pool.QueryRow(ctx, `
		INSERT INTO venue_layouts (id, event_id, name, document, version, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $6)
		ON CONFLICT (event_id) DO UPDATE SET
			name       = EXCLUDED.name,
			document   = EXCLUDED.document,
			version    = venue_layouts.version + 1,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING id, version, updated_at`,
		rec.ID, rec.EventID, rec.Name, raw, rec.UpdatedBy, rec.UpdatedAt,
	).Scan(&out.ID, &out.Version, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("put layout %s: %w", rec.EventID, err)
	}
	return &out, nil
}

// Delete removes the event's layout. It returns ErrNotFound when there is none.
func (s *PgStore) Delete(ctx context.Context, eventID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM venue_layouts WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("delete layout %s: %w", eventID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
