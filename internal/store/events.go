package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sideline/internal/events"
)

const eventColumns = "id, event_id, event_type, stage, artifact_id, organization_id, coach_id, duration_ms, error_message, metadata_json, created_at"

func scanEvent(scanner interface{ Scan(dest ...any) error }) (*events.Event, error) {
	var (
		id          int64
		eventID     string
		eventType   string
		stage       string
		artifactID  int64
		orgID       string
		coachID     string
		durationMS  int64
		errMessage  sql.NullString
		metadataRaw sql.NullString
		createdRaw  sql.NullString
	)
	if err := scanner.Scan(
		&id, &eventID, &eventType, &stage, &artifactID, &orgID, &coachID,
		&durationMS, &errMessage, &metadataRaw, &createdRaw,
	); err != nil {
		return nil, err
	}

	event := &events.Event{
		ID:             id,
		EventID:        eventID,
		Type:           events.Type(eventType),
		Stage:          events.Stage(stage),
		ArtifactID:     artifactID,
		OrganizationID: orgID,
		CoachID:        coachID,
		DurationMS:     durationMS,
		ErrorMessage:   errMessage.String,
	}
	if metadataRaw.Valid && metadataRaw.String != "" {
		metadata := map[string]any{}
		if err := json.Unmarshal([]byte(metadataRaw.String), &metadata); err == nil {
			event.Metadata = metadata
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		event.CreatedAt = created
	}
	return event, nil
}

// AppendEvent validates an event against the registry and writes it to the
// audit trail. Events are append-only; nothing updates or deletes them.
func (s *Store) AppendEvent(ctx context.Context, event events.Event) (*events.Event, error) {
	if err := events.Normalize(&event); err != nil {
		return nil, err
	}
	event.EventID = uuid.NewString()
	event.CreatedAt = time.Now().UTC()

	var metadata any
	if len(event.Metadata) > 0 {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal event metadata: %w", err)
		}
		metadata = string(data)
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO pipeline_events (
            event_id, event_type, stage, artifact_id, organization_id, coach_id,
            duration_ms, error_message, metadata_json, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EventID,
		string(event.Type),
		string(event.Stage),
		event.ArtifactID,
		event.OrganizationID,
		event.CoachID,
		event.DurationMS,
		nullableString(event.ErrorMessage),
		metadata,
		event.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	event.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("event insert id: %w", err)
	}
	return &event, nil
}

// EventFilter narrows ListEvents. Zero values match everything.
type EventFilter struct {
	ArtifactID int64
	Type       events.Type
	Stage      events.Stage
	Limit      int
	Offset     int
}

// ListEvents returns audit events newest first.
func (s *Store) ListEvents(ctx context.Context, filter EventFilter) ([]*events.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM pipeline_events WHERE 1=1`
	var args []any
	if filter.ArtifactID != 0 {
		query += ` AND artifact_id = ?`
		args = append(args, filter.ArtifactID)
	}
	if filter.Type != "" {
		query += ` AND event_type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, string(filter.Stage))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []*events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// CountEvents returns the number of audit rows for one artifact and type.
// Retry budgeting counts retry_initiated rows through this.
func (s *Store) CountEvents(ctx context.Context, artifactID int64, eventType events.Type) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM pipeline_events WHERE artifact_id = ? AND event_type = ?`,
		artifactID, string(eventType),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}
