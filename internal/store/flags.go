package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const flagColumns = "id, flag_key, scope, scope_id, enabled, updated_by, notes, updated_at"

func scanFlag(scanner interface{ Scan(dest ...any) error }) (*FeatureFlag, error) {
	var (
		id         int64
		key        string
		scope      string
		scopeID    string
		enabled    int
		updatedBy  sql.NullString
		notes      sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &key, &scope, &scopeID, &enabled, &updatedBy, &notes, &updatedRaw); err != nil {
		return nil, err
	}
	flag := &FeatureFlag{
		ID:        id,
		Key:       key,
		Scope:     FlagScope(scope),
		ScopeID:   scopeID,
		Enabled:   enabled != 0,
		UpdatedBy: updatedBy.String,
		Notes:     notes.String,
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		flag.UpdatedAt = updated
	}
	return flag, nil
}

// SetFlag upserts one flag value for a scope. Repeated sets update in place
// rather than accumulating rows.
func (s *Store) SetFlag(ctx context.Context, key string, scope FlagScope, scopeID string, enabled bool, updatedBy, notes string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO feature_flags (flag_key, scope, scope_id, enabled, updated_by, notes, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(flag_key, scope, scope_id) DO UPDATE SET
             enabled = excluded.enabled,
             updated_by = excluded.updated_by,
             notes = excluded.notes,
             updated_at = excluded.updated_at`,
		key, string(scope), scopeID, boolToInt(enabled),
		nullableString(updatedBy), nullableString(notes), now,
	); err != nil {
		return fmt.Errorf("set flag: %w", err)
	}
	return nil
}

// GetFlag returns the stored value for one key and scope, or nil when unset.
func (s *Store) GetFlag(ctx context.Context, key string, scope FlagScope, scopeID string) (*FeatureFlag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+flagColumns+` FROM feature_flags WHERE flag_key = ? AND scope = ? AND scope_id = ?`,
		key, string(scope), scopeID)
	flag, err := scanFlag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get flag: %w", err)
	}
	return flag, nil
}

// ListFlags returns every stored flag value.
func (s *Store) ListFlags(ctx context.Context) ([]*FeatureFlag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+flagColumns+` FROM feature_flags ORDER BY flag_key, scope, scope_id`)
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}
	defer rows.Close()

	var out []*FeatureFlag
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flag: %w", err)
		}
		out = append(out, flag)
	}
	return out, rows.Err()
}
