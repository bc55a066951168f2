package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendTrustFeedback records one coach action on a released summary. The
// ledger is append-only; trust levels are always recomputed from history.
func (s *Store) AppendTrustFeedback(ctx context.Context, coachID string, action TrustAction, summaryID string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO trust_feedback (coach_id, action, summary_id, created_at) VALUES (?, ?, ?, ?)`,
		coachID, string(action), nullableString(summaryID),
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("append trust feedback: %w", err)
	}
	return nil
}

// TrustFeedbackForCoach returns a coach's full feedback history, oldest
// first.
func (s *Store) TrustFeedbackForCoach(ctx context.Context, coachID string) ([]TrustFeedback, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, coach_id, action, summary_id, created_at FROM trust_feedback
         WHERE coach_id = ? ORDER BY id`,
		coachID)
	if err != nil {
		return nil, fmt.Errorf("trust feedback: %w", err)
	}
	defer rows.Close()

	var out []TrustFeedback
	for rows.Next() {
		var (
			feedback   TrustFeedback
			action     string
			summaryID  sql.NullString
			createdRaw sql.NullString
		)
		if err := rows.Scan(&feedback.ID, &feedback.CoachID, &action, &summaryID, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan trust feedback: %w", err)
		}
		feedback.Action = TrustAction(action)
		feedback.SummaryID = summaryID.String
		if created, err := parseTimeString(createdRaw.String); err == nil {
			feedback.CreatedAt = created
		}
		out = append(out, feedback)
	}
	return out, rows.Err()
}
