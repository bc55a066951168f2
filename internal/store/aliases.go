package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

func normalizeAlias(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// RememberAlias records how a coach referred to a player so the same
// shorthand resolves instantly next time. Repeats bump the use count.
func (s *Store) RememberAlias(ctx context.Context, coachID, orgID, rawText, playerIdentityID, playerName string) error {
	normalized := normalizeAlias(rawText)
	if normalized == "" {
		return errors.New("alias raw text is empty")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO coach_aliases (coach_id, organization_id, raw_text, player_identity_id, player_name, use_count, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, 1, ?, ?)
         ON CONFLICT(coach_id, organization_id, raw_text) DO UPDATE SET
             player_identity_id = excluded.player_identity_id,
             player_name = excluded.player_name,
             use_count = use_count + 1,
             updated_at = excluded.updated_at`,
		coachID, orgID, normalized, playerIdentityID, playerName, now, now,
	); err != nil {
		return fmt.Errorf("remember alias: %w", err)
	}
	return nil
}

// LookupAlias returns the remembered player for a coach's shorthand, or nil
// when the coach has never resolved this text.
func (s *Store) LookupAlias(ctx context.Context, coachID, orgID, rawText string) (*CoachAlias, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, coach_id, organization_id, raw_text, player_identity_id, player_name, use_count, created_at, updated_at
         FROM coach_aliases WHERE coach_id = ? AND organization_id = ? AND raw_text = ?`,
		coachID, orgID, normalizeAlias(rawText))

	var (
		alias      CoachAlias
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	err := row.Scan(&alias.ID, &alias.CoachID, &alias.OrganizationID, &alias.RawText,
		&alias.PlayerIdentityID, &alias.PlayerName, &alias.UseCount, &createdRaw, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup alias: %w", err)
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		alias.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		alias.UpdatedAt = updated
	}
	return &alias, nil
}

// AliasesForCoach returns a coach's remembered shorthand, most used first.
func (s *Store) AliasesForCoach(ctx context.Context, coachID, orgID string) ([]CoachAlias, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, coach_id, organization_id, raw_text, player_identity_id, player_name, use_count, created_at, updated_at
         FROM coach_aliases WHERE coach_id = ? AND organization_id = ?
         ORDER BY use_count DESC, raw_text`,
		coachID, orgID)
	if err != nil {
		return nil, fmt.Errorf("aliases for coach: %w", err)
	}
	defer rows.Close()

	var out []CoachAlias
	for rows.Next() {
		var (
			alias      CoachAlias
			createdRaw sql.NullString
			updatedRaw sql.NullString
		)
		if err := rows.Scan(&alias.ID, &alias.CoachID, &alias.OrganizationID, &alias.RawText,
			&alias.PlayerIdentityID, &alias.PlayerName, &alias.UseCount, &createdRaw, &updatedRaw); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		if created, err := parseTimeString(createdRaw.String); err == nil {
			alias.CreatedAt = created
		}
		if updated, err := parseTimeString(updatedRaw.String); err == nil {
			alias.UpdatedAt = updated
		}
		out = append(out, alias)
	}
	return out, rows.Err()
}
