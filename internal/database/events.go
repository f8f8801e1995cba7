package database

import (
	"context"
	"fmt"
	"portfolio/internal/types"

	"github.com/goccy/go-json"
)

const (
	EventTileClick     = "tile_click"
	EventOutboundClick = "outbound_click"
)

// RecordEvent stores a custom event. Empty metadata is stored as NULL.
func (d *Database) RecordEvent(ctx context.Context, name, visitorID string, path *string, metadata map[string]any) (int64, error) {
	var raw *string
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return 0, fmt.Errorf("encode event metadata: %w", err)
		}
		s := string(b)
		raw = &s
	}

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO events (timestamp, event_name, visitor_id, path, metadata)
		VALUES (?, ?, ?, ?, ?)`,
		formatTime(d.clock()), name, visitorID, nullable(path), nullable(raw))
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return res.LastInsertId()
}

// GetEventDetails lists the most recent occurrences of one event name.
func (d *Database) GetEventDetails(ctx context.Context, name string, days, limit int) ([]types.Event, error) {
	events := []types.Event{}
	err := d.db.SelectContext(ctx, &events, `
		SELECT id, timestamp, event_name, visitor_id, path, metadata
		FROM events
		WHERE event_name = ? AND timestamp > ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		name, d.cutoffDays(days), limit)
	if err != nil {
		return nil, fmt.Errorf("select event details: %w", err)
	}
	decodeMetadata(events)
	return events, nil
}

func (d *Database) GetTileClicks(ctx context.Context, days int) ([]types.TileClick, error) {
	clicks := []types.TileClick{}
	err := d.db.SelectContext(ctx, &clicks, `
		SELECT CAST(COALESCE(json_extract(metadata, '$.project'), 'unknown') AS TEXT) AS project,
		       COUNT(*) AS count
		FROM events
		WHERE event_name = ? AND timestamp > ? AND metadata IS NOT NULL AND json_valid(metadata)
		GROUP BY project
		ORDER BY count DESC, project`,
		EventTileClick, d.cutoffDays(days))
	if err != nil {
		return nil, fmt.Errorf("select tile clicks: %w", err)
	}
	return clicks, nil
}

func (d *Database) GetOutboundClicks(ctx context.Context, days int) ([]types.OutboundClick, error) {
	clicks := []types.OutboundClick{}
	err := d.db.SelectContext(ctx, &clicks, `
		SELECT CAST(COALESCE(json_extract(metadata, '$.url'), 'unknown') AS TEXT) AS url,
		       CAST(COALESCE(json_extract(metadata, '$.text'), '') AS TEXT) AS text,
		       COUNT(*) AS count
		FROM events
		WHERE event_name = ? AND timestamp > ? AND metadata IS NOT NULL AND json_valid(metadata)
		GROUP BY url, text
		ORDER BY count DESC, url`,
		EventOutboundClick, d.cutoffDays(days))
	if err != nil {
		return nil, fmt.Errorf("select outbound clicks: %w", err)
	}
	return clicks, nil
}

// decodeMetadata fills Metadata from RawMetadata. Rows whose stored text does
// not parse keep a nil payload.
func decodeMetadata(events []types.Event) {
	for i := range events {
		raw := events[i].RawMetadata
		if raw == nil || *raw == "" {
			continue
		}
		var meta map[string]any
		if err := json.Unmarshal([]byte(*raw), &meta); err != nil {
			continue
		}
		events[i].Metadata = meta
	}
}
