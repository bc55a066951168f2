package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const summaryColumns = "id, summary_id, claim_id, artifact_id, organization_id, coach_id, player_identity_id, player_name, topic, content, confidence, status, decision_tier, decision_reason, decided_at, revoke_deadline, viewed_at, revoked_at, revoke_reason, created_at, updated_at"

func scanSummary(scanner interface{ Scan(dest ...any) error }) (*Summary, error) {
	var (
		id          int64
		summaryID   string
		claimID     int64
		artifactID  int64
		orgID       string
		coachID     string
		playerID    sql.NullString
		playerName  sql.NullString
		topic       string
		content     string
		confidence  float64
		status      string
		tier        sql.NullString
		reason      sql.NullString
		decidedRaw  sql.NullString
		deadlineRaw sql.NullString
		viewedRaw   sql.NullString
		revokedRaw  sql.NullString
		revokeWhy   sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&id, &summaryID, &claimID, &artifactID, &orgID, &coachID,
		&playerID, &playerName, &topic, &content, &confidence, &status,
		&tier, &reason, &decidedRaw, &deadlineRaw, &viewedRaw, &revokedRaw,
		&revokeWhy, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	summary := &Summary{
		ID:               id,
		SummaryID:        summaryID,
		ClaimID:          claimID,
		ArtifactID:       artifactID,
		OrganizationID:   orgID,
		CoachID:          coachID,
		PlayerIdentityID: playerID.String,
		PlayerName:       playerName.String,
		Topic:            topic,
		Content:          content,
		Confidence:       confidence,
		Status:           SummaryStatus(status),
		DecisionTier:     tier.String,
		DecisionReason:   reason.String,
		RevokeReason:     revokeWhy.String,
	}
	if decidedRaw.Valid {
		summary.DecidedAt = parseTimePtr(decidedRaw.String)
	}
	if deadlineRaw.Valid {
		summary.RevokeDeadline = parseTimePtr(deadlineRaw.String)
	}
	if viewedRaw.Valid {
		summary.ViewedAt = parseTimePtr(viewedRaw.String)
	}
	if revokedRaw.Valid {
		summary.RevokedAt = parseTimePtr(revokedRaw.String)
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		summary.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		summary.UpdatedAt = updated
	}
	return summary, nil
}

// InsertSummaries persists freshly generated drafts in one transaction.
func (s *Store) InsertSummaries(ctx context.Context, drafts []Summary) ([]Summary, error) {
	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin summaries tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	stored := make([]Summary, 0, len(drafts))

	for _, draft := range drafts {
		draft.SummaryID = uuid.NewString()
		draft.Status = SummaryPending
		draft.CreatedAt = now
		draft.UpdatedAt = now

		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO summaries (
                summary_id, claim_id, artifact_id, organization_id, coach_id,
                player_identity_id, player_name, topic, content, confidence,
                status, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			draft.SummaryID,
			draft.ClaimID,
			draft.ArtifactID,
			draft.OrganizationID,
			draft.CoachID,
			nullableString(draft.PlayerIdentityID),
			nullableString(draft.PlayerName),
			draft.Topic,
			draft.Content,
			draft.Confidence,
			string(draft.Status),
			timestamp,
			timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("insert summary: %w", err)
		}
		draft.ID, err = res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("summary insert id: %w", err)
		}
		stored = append(stored, draft)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit summaries: %w", err)
	}
	return stored, nil
}

// GetSummaryByUUID fetches a summary by its public identifier.
func (s *Store) GetSummaryByUUID(ctx context.Context, summaryID string) (*Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM summaries WHERE summary_id = ?`, summaryID)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return summary, nil
}

// SummariesByArtifact returns every summary generated from one artifact.
func (s *Store) SummariesByArtifact(ctx context.Context, artifactID int64) ([]*Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM summaries WHERE artifact_id = ? ORDER BY id`, artifactID)
	if err != nil {
		return nil, fmt.Errorf("summaries by artifact: %w", err)
	}
	defer rows.Close()

	var out []*Summary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// ApplyDecision stamps the trust engine's release decision on a summary.
func (s *Store) ApplyDecision(ctx context.Context, summaryID string, status SummaryStatus, tier, reason string, revokeDeadline *time.Time) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE summaries
         SET status = ?, decision_tier = ?, decision_reason = ?, decided_at = ?,
             revoke_deadline = ?, updated_at = ?
         WHERE summary_id = ? AND status = ?`,
		string(status),
		nullableString(tier),
		nullableString(reason),
		now,
		nullableTime(revokeDeadline),
		now,
		summaryID,
		SummaryPending,
	)
	if err != nil {
		return fmt.Errorf("apply decision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply decision rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: summary %s is not pending", ErrStageConflict, summaryID)
	}
	return nil
}

// ApplyReview stamps a coach's manual decision on a summary awaiting
// review. Unlike ApplyDecision it also accepts held summaries, which is
// how low-trust drafts get released.
func (s *Store) ApplyReview(ctx context.Context, summaryID string, status SummaryStatus, tier, reason string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE summaries
         SET status = ?, decision_tier = ?, decision_reason = ?, decided_at = ?, updated_at = ?
         WHERE summary_id = ? AND status IN (?, ?)`,
		string(status),
		nullableString(tier),
		nullableString(reason),
		now,
		now,
		summaryID,
		SummaryPending,
		SummaryHeld,
	)
	if err != nil {
		return fmt.Errorf("apply review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply review rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: summary %s is not awaiting review", ErrStageConflict, summaryID)
	}
	return nil
}

// MarkViewed records that the recipient opened a released summary. Once
// viewed, the summary can no longer be revoked.
func (s *Store) MarkViewed(ctx context.Context, summaryID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE summaries SET status = ?, viewed_at = ?, updated_at = ?
         WHERE summary_id = ? AND viewed_at IS NULL
           AND status IN (?, ?)`,
		string(SummaryViewed), now, now,
		summaryID,
		string(SummaryAutoApproved), string(SummaryManuallyApproved),
	); err != nil {
		return fmt.Errorf("mark viewed: %w", err)
	}
	return nil
}

// RevokeSummary pulls back an auto-approved summary before delivery. The
// view check and the revocation happen in one transaction: if the recipient
// viewed the summary first, the view wins and the revocation fails.
func (s *Store) RevokeSummary(ctx context.Context, summaryID, reason string, now time.Time) error {
	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin revoke tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT status, viewed_at, revoke_deadline FROM summaries WHERE summary_id = ?`, summaryID)
	var (
		status      string
		viewedRaw   sql.NullString
		deadlineRaw sql.NullString
	)
	if err := row.Scan(&status, &viewedRaw, &deadlineRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("summary %s not found", summaryID)
		}
		return fmt.Errorf("read summary for revoke: %w", err)
	}

	if viewedRaw.Valid || SummaryStatus(status) == SummaryViewed {
		return fmt.Errorf("%w: summary %s", ErrSummaryViewed, summaryID)
	}
	if SummaryStatus(status) != SummaryAutoApproved && SummaryStatus(status) != SummaryManuallyApproved {
		return fmt.Errorf("summary %s is %s, not revocable", summaryID, status)
	}
	if deadlineRaw.Valid {
		if deadline := parseTimePtr(deadlineRaw.String); deadline != nil && now.UTC().After(*deadline) {
			return fmt.Errorf("%w: summary %s deadline %s", ErrRevocationExpired, summaryID, deadline.Format(time.RFC3339))
		}
	}

	timestamp := now.UTC().Format(time.RFC3339Nano)
	res, err := tx.ExecContext(ctx,
		`UPDATE summaries
         SET status = ?, revoked_at = ?, revoke_reason = ?, updated_at = ?
         WHERE summary_id = ? AND viewed_at IS NULL`,
		string(SummaryRevoked), timestamp, nullableString(reason), timestamp, summaryID,
	)
	if err != nil {
		return fmt.Errorf("revoke summary: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke summary rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: summary %s", ErrSummaryViewed, summaryID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revoke: %w", err)
	}
	return nil
}

// SummariesByStatus returns summaries in one status, oldest first.
func (s *Store) SummariesByStatus(ctx context.Context, status SummaryStatus, limit int) ([]*Summary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM summaries WHERE status = ? ORDER BY id LIMIT ?`,
		string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("summaries by status: %w", err)
	}
	defer rows.Close()

	var out []*Summary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}
