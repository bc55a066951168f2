package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sideline/internal/events"
	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/store"
)

func (m *Manager) processArtifact(ctx context.Context, lane *laneState, laneLogger *slog.Logger, artifact *store.Artifact) error {
	stage, ok := lane.stageForReady(artifact.Stage)
	if !ok {
		laneLogger.Warn("no stage configured for artifact", logging.String(logging.FieldStage, string(artifact.Stage)))
		m.waitForWorkOrShutdown(ctx)
		return nil
	}

	stageCtx := services.WithRequestID(ctx, uuid.NewString())
	stageCtx = services.WithArtifactID(stageCtx, artifact.ID)
	stageCtx = services.WithStage(stageCtx, stage.name)
	stageCtx = services.WithLane(stageCtx, lane.name)
	stageLogger := logging.WithContext(stageCtx, laneLogger)
	if aware, ok := stage.handler.(loggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if err := m.transitionToProcessing(stageCtx, stage, artifact); err != nil {
		if errors.Is(err, store.ErrStageConflict) {
			// Another worker claimed it first.
			stageLogger.Debug("artifact claimed elsewhere", logging.Error(err))
			return nil
		}
		stageLogger.Error("failed to move artifact to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stage, stageLogger, artifact)
}

func (m *Manager) transitionToProcessing(ctx context.Context, stage pipelineStage, artifact *store.Artifact) error {
	artifact.ErrorMessage = ""
	if err := m.store.AdvanceArtifact(ctx, artifact, stage.readyStage, stage.processing); err != nil {
		return err
	}
	if stage.events.started != "" {
		m.appendEvent(ctx, events.Event{
			Type:       stage.events.started,
			Stage:      stage.events.stage,
			ArtifactID: artifact.ID,
		}, artifact)
	}
	return nil
}

func (m *Manager) executeStage(ctx context.Context, stage pipelineStage, stageLogger *slog.Logger, artifact *store.Artifact) error {
	start := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_stage", string(stage.processing)),
	)

	handler := stage.handler
	if handler == nil {
		err := fmt.Errorf("stage %s has no handler", stage.name)
		m.failArtifact(ctx, stage, stageLogger, artifact, err)
		m.setLastError(err)
		return err
	}

	if err := handler.Prepare(ctx, artifact); err != nil {
		m.handleStageFailure(ctx, stage, stageLogger, artifact, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.UpdateArtifact(ctx, artifact); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	metadata, execErr := m.executeWithHeartbeat(ctx, handler, artifact)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stage, stageLogger, artifact, execErr)
		m.setLastError(execErr)
		return execErr
	}

	retried := artifact.RetryCount(stage.processing) > 0
	artifact.LastHeartbeat = nil
	if err := m.store.AdvanceArtifact(ctx, artifact, stage.processing, stage.doneStage); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	if stage.events.completed != "" {
		m.appendEvent(ctx, events.Event{
			Type:       stage.events.completed,
			Stage:      stage.events.stage,
			ArtifactID: artifact.ID,
			DurationMS: time.Since(start).Milliseconds(),
			Metadata:   map[string]any(metadata),
		}, artifact)
	}
	if retried {
		m.appendEvent(ctx, events.Event{
			Type:       events.TypeRetrySucceeded,
			Stage:      stage.events.stage,
			ArtifactID: artifact.ID,
			Metadata: map[string]any{
				"stage":   string(stage.processing),
				"attempt": artifact.RetryCount(stage.processing),
			},
		}, artifact)
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_stage", string(artifact.Stage)),
		logging.Duration("stage_duration", time.Since(start)),
	)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler Handler, artifact *store.Artifact) (Metadata, error) {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, artifact.ID)

	metadata, execErr := handler.Execute(ctx, artifact)
	hbCancel()
	hbWG.Wait()
	return metadata, execErr
}

// appendEvent records an audit event, stamping ownership from the
// artifact. Append failures are logged, never fatal to the stage.
func (m *Manager) appendEvent(ctx context.Context, event events.Event, artifact *store.Artifact) {
	event.OrganizationID = artifact.OrganizationID
	event.CoachID = artifact.CoachID
	if _, err := m.store.AppendEvent(ctx, event); err != nil {
		logging.WithContext(ctx, m.logger).Error("failed to append pipeline event",
			logging.Error(err),
			logging.String(logging.FieldEventType, string(event.Type)),
		)
	}
}
