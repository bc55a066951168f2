package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sideline/internal/logging"
	"sideline/internal/store"
)

// Start begins background processing. The context bounds the lanes'
// lifetime; Stop cancels and waits.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("pipeline already running")
	}
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil || len(lane.stageOrder) == 0 {
			continue
		}
		lanes = append(lanes, lane)
	}
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("pipeline stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	for _, lane := range lanes {
		lane.logger = logging.NewComponentLogger(m.logger, "pipeline-"+lane.name)
	}
	m.wg.Add(len(lanes))
	m.mu.Unlock()

	for _, lane := range lanes {
		go m.runLane(runCtx, lane)
	}
	return nil
}

// Stop terminates background processing and waits for the lanes to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	logger := lane.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if lane.runReclaimer {
			if err := m.heartbeat.ReclaimStale(ctx, logger); err != nil {
				logger.Warn("reclaim stale processing failed, stuck artifacts may remain",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				)
			}
		}

		artifact, err := m.store.NextForStages(ctx, lane.stageOrder...)
		if err != nil {
			m.handleNextError(ctx, logger, err)
			continue
		}
		if artifact == nil {
			m.waitForWorkOrShutdown(ctx)
			continue
		}

		if err := m.processArtifact(ctx, lane, logger, artifact); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) handleNextError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to fetch next artifact",
		logging.Error(err),
		logging.String(logging.FieldEventType, "artifact_fetch_failed"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

func (m *Manager) waitForWorkOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

// ProcessOnce runs lanes over the backlog until no artifact is ready,
// used by tests and the CLI's foreground drain mode.
func (m *Manager) ProcessOnce(ctx context.Context) error {
	for {
		progressed := false
		for _, kind := range m.laneOrder {
			lane := m.lanes[kind]
			logger := lane.logger
			if logger == nil {
				logger = logging.NewComponentLogger(m.logger, "pipeline-"+lane.name)
			}
			artifact, err := m.store.NextForStages(ctx, lane.stageOrder...)
			if err != nil {
				return err
			}
			if artifact == nil {
				continue
			}
			progressed = true
			if err := m.processArtifact(ctx, lane, logger, artifact); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
			}
		}
		if !progressed {
			return nil
		}
	}
}

// ResetStuck returns in-flight artifacts to their entry stages. Called
// once at daemon startup before the lanes begin polling.
func (m *Manager) ResetStuck(ctx context.Context) (int64, error) {
	return m.store.ResetStuckProcessing(ctx)
}

// StageCounts reports how many artifacts sit in each stage.
func (m *Manager) StageCounts(ctx context.Context) (map[store.Stage]int, error) {
	return m.store.StageCounts(ctx)
}
