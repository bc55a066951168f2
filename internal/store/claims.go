package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sideline/internal/claims"
)

const claimColumns = "id, claim_id, artifact_id, organization_id, coach_id, topic, status, source_text, title, description, recommended_action, time_reference, occurred_at, mentions_json, severity, sentiment, skill_name, skill_rating, extraction_confidence, resolution_confidence, created_at, updated_at"

func scanClaim(scanner interface{ Scan(dest ...any) error }) (*claims.Claim, error) {
	var (
		id          int64
		claimID     string
		artifactID  int64
		orgID       string
		coachID     string
		topic       string
		status      string
		sourceText  string
		title       sql.NullString
		description sql.NullString
		action      sql.NullString
		timeRef     sql.NullString
		occurredRaw sql.NullString
		mentionsRaw sql.NullString
		severity    sql.NullString
		sentiment   sql.NullString
		skillName   sql.NullString
		skillRating int
		extraction  float64
		resolution  float64
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&claimID,
		&artifactID,
		&orgID,
		&coachID,
		&topic,
		&status,
		&sourceText,
		&title,
		&description,
		&action,
		&timeRef,
		&occurredRaw,
		&mentionsRaw,
		&severity,
		&sentiment,
		&skillName,
		&skillRating,
		&extraction,
		&resolution,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	claim := &claims.Claim{
		ID:                   id,
		ClaimID:              claimID,
		ArtifactID:           artifactID,
		OrganizationID:       orgID,
		CoachID:              coachID,
		Topic:                claims.Topic(topic),
		Status:               claims.Status(status),
		SourceText:           sourceText,
		Title:                title.String,
		Description:          description.String,
		RecommendedAction:    action.String,
		TimeReference:        timeRef.String,
		Severity:             claims.Severity(severity.String),
		Sentiment:            claims.Sentiment(sentiment.String),
		SkillName:            skillName.String,
		SkillRating:          skillRating,
		ExtractionConfidence: extraction,
		ResolutionConfidence: resolution,
	}
	if occurredRaw.Valid {
		claim.OccurredAt = parseTimePtr(occurredRaw.String)
	}
	if mentionsRaw.Valid && mentionsRaw.String != "" {
		var mentions []claims.Mention
		if err := json.Unmarshal([]byte(mentionsRaw.String), &mentions); err == nil {
			claim.Mentions = mentions
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		claim.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		claim.UpdatedAt = updated
	}
	return claim, nil
}

func mentionsJSON(mentions []claims.Mention) (any, error) {
	if len(mentions) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(mentions)
	if err != nil {
		return nil, fmt.Errorf("marshal mentions: %w", err)
	}
	return string(data), nil
}

// StoreClaims persists an extraction batch in a single transaction. Either
// every claim lands or none do; a half-written batch would let a retried
// extraction duplicate claims.
func (s *Store) StoreClaims(ctx context.Context, artifact *Artifact, batch []claims.Claim) ([]claims.Claim, error) {
	if artifact == nil {
		return nil, errors.New("artifact is nil")
	}
	if err := claims.ValidateBatch(batch); err != nil {
		return nil, err
	}

	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claims tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	stored := make([]claims.Claim, 0, len(batch))

	for _, claim := range batch {
		claim.ClaimID = uuid.NewString()
		claim.ArtifactID = artifact.ID
		claim.OrganizationID = artifact.OrganizationID
		claim.CoachID = artifact.CoachID
		claim.Status = claims.StatusExtracted
		claim.CreatedAt = now
		claim.UpdatedAt = now

		mentions, err := mentionsJSON(claim.Mentions)
		if err != nil {
			return nil, err
		}

		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO claims (
                claim_id, artifact_id, organization_id, coach_id, topic, status,
                source_text, title, description, recommended_action, time_reference,
                occurred_at, mentions_json, severity, sentiment, skill_name,
                skill_rating, extraction_confidence, resolution_confidence,
                created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			claim.ClaimID,
			claim.ArtifactID,
			claim.OrganizationID,
			claim.CoachID,
			string(claim.Topic),
			string(claim.Status),
			claim.SourceText,
			nullableString(claim.Title),
			nullableString(claim.Description),
			nullableString(claim.RecommendedAction),
			nullableString(claim.TimeReference),
			nullableTime(claim.OccurredAt),
			mentions,
			nullableString(string(claim.Severity)),
			nullableString(string(claim.Sentiment)),
			nullableString(claim.SkillName),
			claim.SkillRating,
			claim.ExtractionConfidence,
			claim.ResolutionConfidence,
			timestamp,
			timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("insert claim: %w", err)
		}
		claim.ID, err = res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("claim insert id: %w", err)
		}
		stored = append(stored, claim)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claims: %w", err)
	}
	return stored, nil
}

// GetClaim fetches a claim by row identifier.
func (s *Store) GetClaim(ctx context.Context, id int64) (*claims.Claim, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = ?`, id)
	claim, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return claim, nil
}

// GetClaimByUUID fetches a claim by its public identifier.
func (s *Store) GetClaimByUUID(ctx context.Context, claimID string) (*claims.Claim, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE claim_id = ?`, claimID)
	claim, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claim by uuid: %w", err)
	}
	return claim, nil
}

// ClaimsByArtifact returns every claim extracted from one artifact.
func (s *Store) ClaimsByArtifact(ctx context.Context, artifactID int64) ([]*claims.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE artifact_id = ? ORDER BY id`, artifactID)
	if err != nil {
		return nil, fmt.Errorf("claims by artifact: %w", err)
	}
	defer rows.Close()
	return collectClaims(rows)
}

// ClaimsByStatus returns claims in one status, oldest first.
func (s *Store) ClaimsByStatus(ctx context.Context, status claims.Status, limit int) ([]*claims.Claim, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE status = ? ORDER BY id LIMIT ?`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("claims by status: %w", err)
	}
	defer rows.Close()
	return collectClaims(rows)
}

func collectClaims(rows *sql.Rows) ([]*claims.Claim, error) {
	var out []*claims.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, claim)
	}
	return out, rows.Err()
}

// UpdateClaim persists resolution results and other mutable fields. The
// status may only move along an allowed state machine edge.
func (s *Store) UpdateClaim(ctx context.Context, claim *claims.Claim) error {
	if claim == nil {
		return errors.New("claim is nil")
	}
	current, err := s.GetClaim(ctx, claim.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("claim %d not found", claim.ID)
	}
	if current.Status != claim.Status && !claims.CanTransition(current.Status, claim.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, claim.Status)
	}

	mentions, err := mentionsJSON(claim.Mentions)
	if err != nil {
		return err
	}
	claim.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE claims
         SET status = ?, mentions_json = ?, occurred_at = ?, resolution_confidence = ?,
             title = ?, description = ?, recommended_action = ?, updated_at = ?
         WHERE id = ?`,
		string(claim.Status),
		mentions,
		nullableTime(claim.OccurredAt),
		claim.ResolutionConfidence,
		nullableString(claim.Title),
		nullableString(claim.Description),
		nullableString(claim.RecommendedAction),
		claim.UpdatedAt.Format(time.RFC3339Nano),
		claim.ID,
	); err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	return nil
}

// RecentPlayerResolutions returns player identity IDs this coach resolved
// mentions to since the cutoff, mapped to the latest resolution time. Used
// by the resolver to break score ties toward recently confirmed players.
func (s *Store) RecentPlayerResolutions(ctx context.Context, coachID string, since time.Time) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mentions_json, updated_at FROM claims
         WHERE coach_id = ? AND status = ? AND updated_at >= ? AND mentions_json IS NOT NULL
         ORDER BY id DESC LIMIT 200`,
		coachID, claims.StatusResolved, since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("recent resolutions: %w", err)
	}
	defer rows.Close()

	resolutions := make(map[string]time.Time)
	for rows.Next() {
		var mentionsRaw string
		var updatedRaw string
		if err := rows.Scan(&mentionsRaw, &updatedRaw); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		updated, err := parseTimeString(updatedRaw)
		if err != nil {
			continue
		}
		var mentions []claims.Mention
		if err := json.Unmarshal([]byte(mentionsRaw), &mentions); err != nil {
			continue
		}
		for _, mention := range mentions {
			if mention.Type != claims.MentionPlayerName || !mention.Resolved() || mention.ResolvedID == "" {
				continue
			}
			if existing, ok := resolutions[mention.ResolvedID]; !ok || updated.After(existing) {
				resolutions[mention.ResolvedID] = updated
			}
		}
	}
	return resolutions, rows.Err()
}
