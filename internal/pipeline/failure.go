package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"sideline/internal/events"
	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/store"
)

// handleStageFailure classifies a stage error and either reschedules the
// artifact for another attempt or fails it permanently. The audit event
// is appended before the artifact moves so a crash between the two
// leaves evidence of the attempt rather than a silent reset.
func (m *Manager) handleStageFailure(ctx context.Context, stage pipelineStage, stageLogger *slog.Logger, artifact *store.Artifact, stageErr error) {
	message := strings.TrimSpace(stageErr.Error())
	artifact.ErrorMessage = message

	if !services.IsRetryable(stageErr) {
		stageLogger.Error("stage failed permanently",
			logging.Error(stageErr),
			logging.String(logging.FieldEventType, "stage_failure"),
		)
		m.failArtifact(ctx, stage, stageLogger, artifact, stageErr)
		return
	}

	attempt := artifact.BumpRetry(stage.processing)
	if attempt > m.retryLimit {
		stageLogger.Error("stage failed after exhausting retries",
			logging.Error(stageErr),
			logging.Int("attempts", attempt),
			logging.String(logging.FieldEventType, "stage_failure"),
		)
		m.failArtifact(ctx, stage, stageLogger, artifact, stageErr)
		return
	}

	stageLogger.Warn("stage failed, scheduling retry",
		logging.Error(stageErr),
		logging.Int("attempt", attempt),
		logging.Int("limit", m.retryLimit),
		logging.String(logging.FieldEventType, "stage_retry"),
	)
	if stage.events.failed != "" {
		m.appendEvent(ctx, events.Event{
			Type:         stage.events.failed,
			Stage:        stage.events.stage,
			ArtifactID:   artifact.ID,
			ErrorMessage: message,
			Metadata:     map[string]any{"attempt": attempt},
		}, artifact)
	}
	m.appendEvent(ctx, events.Event{
		Type:       events.TypeRetryInitiated,
		Stage:      stage.events.stage,
		ArtifactID: artifact.ID,
		Metadata: map[string]any{
			"stage":   string(stage.processing),
			"attempt": attempt,
			"limit":   m.retryLimit,
		},
	}, artifact)

	if err := m.store.AdvanceArtifact(ctx, artifact, stage.processing, stage.readyStage); err != nil {
		stageLogger.Error("failed to reschedule artifact", logging.Error(err))
		m.setLastError(err)
	}
}

// failArtifact moves the artifact to the failed stage and appends the
// terminal audit events.
func (m *Manager) failArtifact(ctx context.Context, stage pipelineStage, stageLogger *slog.Logger, artifact *store.Artifact, stageErr error) {
	message := strings.TrimSpace(stageErr.Error())
	artifact.ErrorMessage = message

	if stage.events.failed != "" {
		m.appendEvent(ctx, events.Event{
			Type:         stage.events.failed,
			Stage:        stage.events.stage,
			ArtifactID:   artifact.ID,
			ErrorMessage: message,
			Metadata:     map[string]any{"attempt": artifact.RetryCount(stage.processing)},
		}, artifact)
	}
	m.appendEvent(ctx, events.Event{
		Type:         events.TypePipelineFailed,
		Stage:        stage.events.stage,
		ArtifactID:   artifact.ID,
		ErrorMessage: message,
		Metadata: map[string]any{
			"stage":    string(stage.processing),
			"attempts": artifact.RetryCount(stage.processing),
		},
	}, artifact)

	if err := m.store.AdvanceArtifact(ctx, artifact, stage.processing, store.StageFailed); err != nil {
		stageLogger.Error("failed to persist artifact failure", logging.Error(err))
		m.setLastError(err)
	}
}
