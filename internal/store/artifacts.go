package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const artifactColumns = "id, artifact_id, organization_id, coach_id, note_type, audio_path, raw_text, stage, transcript_text, transcript_confidence, error_message, retry_counts_json, last_heartbeat, created_at, updated_at"

func scanArtifact(scanner interface{ Scan(dest ...any) error }) (*Artifact, error) {
	var (
		id           int64
		artifactID   string
		orgID        string
		coachID      string
		noteType     string
		audioPath    sql.NullString
		rawText      sql.NullString
		stageStr     string
		transcript   sql.NullString
		confidence   sql.NullFloat64
		errorMessage sql.NullString
		retryCounts  sql.NullString
		heartbeatRaw sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&artifactID,
		&orgID,
		&coachID,
		&noteType,
		&audioPath,
		&rawText,
		&stageStr,
		&transcript,
		&confidence,
		&errorMessage,
		&retryCounts,
		&heartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	artifact := &Artifact{
		ID:                   id,
		ArtifactID:           artifactID,
		OrganizationID:       orgID,
		CoachID:              coachID,
		NoteType:             NoteType(noteType),
		AudioPath:            audioPath.String,
		RawText:              rawText.String,
		Stage:                Stage(stageStr),
		TranscriptText:       transcript.String,
		TranscriptConfidence: confidence.Float64,
		ErrorMessage:         errorMessage.String,
	}
	if retryCounts.Valid && retryCounts.String != "" {
		counts := map[Stage]int{}
		if err := json.Unmarshal([]byte(retryCounts.String), &counts); err == nil {
			artifact.RetryCounts = counts
		}
	}
	if heartbeatRaw.Valid {
		artifact.LastHeartbeat = parseTimePtr(heartbeatRaw.String)
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		artifact.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		artifact.UpdatedAt = updated
	}
	return artifact, nil
}

func retryCountsJSON(counts map[Stage]int) any {
	if len(counts) == 0 {
		return nil
	}
	data, err := json.Marshal(counts)
	if err != nil {
		return nil
	}
	return string(data)
}

// NewVoiceArtifact inserts a voice note awaiting transcription.
func (s *Store) NewVoiceArtifact(ctx context.Context, orgID, coachID, audioPath string) (*Artifact, error) {
	return s.insertArtifact(ctx, orgID, coachID, NoteVoice, audioPath, "")
}

// NewTextArtifact inserts a typed note. It still enters at received so the
// transcription stage can promote the raw text into a transcript.
func (s *Store) NewTextArtifact(ctx context.Context, orgID, coachID, rawText string) (*Artifact, error) {
	return s.insertArtifact(ctx, orgID, coachID, NoteText, "", rawText)
}

func (s *Store) insertArtifact(ctx context.Context, orgID, coachID string, noteType NoteType, audioPath, rawText string) (*Artifact, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO artifacts (
            artifact_id, organization_id, coach_id, note_type, audio_path,
            raw_text, stage, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		orgID,
		coachID,
		string(noteType),
		nullableString(audioPath),
		nullableString(rawText),
		StageReceived,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetArtifact(ctx, id)
}

// GetArtifact fetches an artifact by row identifier.
func (s *Store) GetArtifact(ctx context.Context, id int64) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return artifact, nil
}

// GetArtifactByUUID fetches an artifact by its public identifier.
func (s *Store) GetArtifactByUUID(ctx context.Context, artifactID string) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE artifact_id = ?`, artifactID)
	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact by uuid: %w", err)
	}
	return artifact, nil
}

// UpdateArtifact persists mutable fields without a stage guard. Use
// AdvanceArtifact for stage transitions.
func (s *Store) UpdateArtifact(ctx context.Context, artifact *Artifact) error {
	if artifact == nil {
		return errors.New("artifact is nil")
	}
	artifact.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE artifacts
         SET transcript_text = ?, transcript_confidence = ?, error_message = ?,
             retry_counts_json = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(artifact.TranscriptText),
		artifact.TranscriptConfidence,
		nullableString(artifact.ErrorMessage),
		retryCountsJSON(artifact.RetryCounts),
		nullableTime(artifact.LastHeartbeat),
		artifact.UpdatedAt.Format(time.RFC3339Nano),
		artifact.ID,
	); err != nil {
		return fmt.Errorf("update artifact: %w", err)
	}
	return nil
}

// AdvanceArtifact moves an artifact from one stage to another with a
// compare-and-swap guard. Concurrent workers that read the same ready
// artifact race here; the loser gets ErrStageConflict and must move on.
func (s *Store) AdvanceArtifact(ctx context.Context, artifact *Artifact, from, to Stage) error {
	if artifact == nil {
		return errors.New("artifact is nil")
	}
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("invalid stage transition %q -> %q", from, to)
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE artifacts
         SET stage = ?, transcript_text = ?, transcript_confidence = ?,
             error_message = ?, retry_counts_json = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ? AND stage = ?`,
		to,
		nullableString(artifact.TranscriptText),
		artifact.TranscriptConfidence,
		nullableString(artifact.ErrorMessage),
		retryCountsJSON(artifact.RetryCounts),
		nullableTime(artifact.LastHeartbeat),
		now.Format(time.RFC3339Nano),
		artifact.ID,
		from,
	)
	if err != nil {
		return fmt.Errorf("advance artifact: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance artifact rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: artifact %d is no longer %s", ErrStageConflict, artifact.ID, from)
	}
	artifact.Stage = to
	artifact.UpdatedAt = now
	return nil
}

// NextForStages returns the oldest artifact sitting in any of the given
// stages, or nil when the queue is idle.
func (s *Store) NextForStages(ctx context.Context, stages ...Stage) (*Artifact, error) {
	if len(stages) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(stages))
	for _, stage := range stages {
		args = append(args, stage)
	}
	query := `SELECT ` + artifactColumns + ` FROM artifacts
        WHERE stage IN (` + makePlaceholders(len(stages)) + `)
        ORDER BY id LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next for stages: %w", err)
	}
	return artifact, nil
}

// ListArtifacts returns artifacts filtered by stage, newest first. An empty
// stage returns everything up to limit.
func (s *Store) ListArtifacts(ctx context.Context, stage Stage, limit int) ([]*Artifact, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if stage == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+artifactColumns+` FROM artifacts ORDER BY id DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+artifactColumns+` FROM artifacts WHERE stage = ? ORDER BY id DESC LIMIT ?`, stage, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}

// UpdateHeartbeat stamps an in-flight artifact so stale detection can see it
// is still being worked.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE artifacts SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now, now, id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

func stageResetCase() (string, []any) {
	clause := "CASE stage"
	args := make([]any, 0, len(processingStages)*2)
	for _, stage := range processingStages {
		clause += " WHEN ? THEN ?"
		args = append(args, stage, stage.EntryStage())
	}
	clause += " ELSE stage END"
	return clause, args
}

// ResetStuckProcessing returns every in-flight artifact to the start of its
// current stage. Called once at daemon startup to recover from a crash.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	caseClause, args := stageResetCase()
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	for _, stage := range processingStages {
		args = append(args, stage)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE artifacts SET stage = `+caseClause+`, last_heartbeat = NULL, updated_at = ?
         WHERE stage IN (`+makePlaceholders(len(processingStages))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck artifacts: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimStaleProcessing returns in-flight artifacts whose heartbeat expired
// to the start of their current stage.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	caseClause, args := stageResetCase()
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	for _, stage := range processingStages {
		args = append(args, stage)
	}
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))
	res, err := s.execWithRetry(
		ctx,
		`UPDATE artifacts SET stage = `+caseClause+`, last_heartbeat = NULL, updated_at = ?
         WHERE stage IN (`+makePlaceholders(len(processingStages))+`)
           AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale artifacts: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailedArtifacts moves failed artifacts back to received for a fresh
// run. With no ids, every failed artifact is retried.
func (s *Store) RetryFailedArtifacts(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE artifacts
             SET stage = ?, error_message = NULL, retry_counts_json = NULL, updated_at = ?
             WHERE stage = ?`,
			StageReceived, now, StageFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed artifacts: %w", err)
		}
		return res.RowsAffected()
	}

	args := make([]any, 0, len(ids)+3)
	args = append(args, StageReceived, now, StageFailed)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE artifacts
         SET stage = ?, error_message = NULL, retry_counts_json = NULL, updated_at = ?
         WHERE stage = ? AND id IN (`+makePlaceholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected artifacts: %w", err)
	}
	return res.RowsAffected()
}

// StageCounts returns how many artifacts sit in each stage.
func (s *Store) StageCounts(ctx context.Context) (map[Stage]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stage, COUNT(1) FROM artifacts GROUP BY stage`)
	if err != nil {
		return nil, fmt.Errorf("stage counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[Stage]int)
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("scan stage count: %w", err)
		}
		counts[Stage(stage)] = count
	}
	return counts, rows.Err()
}
