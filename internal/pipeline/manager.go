// Package pipeline drives note artifacts through transcription, claim
// extraction, entity resolution, draft generation, and confirmation.
//
// Stages are grouped into two lanes that run concurrently: an external
// lane for the stages bound to outside services (transcription, claim
// extraction) and a processing lane for the local stages. Each lane
// polls the store for the oldest artifact in one of its ready stages,
// moves it to the matching processing stage with a compare-and-set, and
// runs the handler under a heartbeat.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sideline/internal/config"
	"sideline/internal/events"
	"sideline/internal/store"
)

// Manager coordinates artifact processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *store.Store
	logger       *slog.Logger
	pollInterval time.Duration
	retryLimit   int

	heartbeat *HeartbeatMonitor

	lanes     map[laneKind]*laneState
	laneOrder []laneKind

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a pipeline manager with the supplied stage set.
func NewManager(cfg *config.Config, st *store.Store, logger *slog.Logger, set StageSet) *Manager {
	m := &Manager{
		cfg:          cfg,
		store:        st,
		logger:       logger,
		pollInterval: time.Duration(cfg.Pipeline.PollInterval) * time.Second,
		retryLimit:   cfg.Pipeline.RetryLimit,
		heartbeat: NewHeartbeatMonitor(
			st,
			logger,
			time.Duration(cfg.Pipeline.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Pipeline.HeartbeatTimeout)*time.Second,
		),
		lanes: make(map[laneKind]*laneState),
	}
	m.configureLanes(set)
	return m
}

func (m *Manager) configureLanes(set StageSet) {
	external := &laneState{
		kind:         laneExternal,
		name:         "external",
		runReclaimer: true,
		stages: []pipelineStage{
			{
				name:       "transcription",
				handler:    set.Transcription,
				readyStage: store.StageReceived,
				processing: store.StageTranscribing,
				doneStage:  store.StageTranscribed,
				events: stageEvents{
					stage:     events.StageTranscription,
					started:   events.TypeTranscriptionStarted,
					completed: events.TypeTranscriptionCompleted,
					failed:    events.TypeTranscriptionFailed,
				},
			},
			{
				name:       "extraction",
				handler:    set.Extraction,
				readyStage: store.StageTranscribed,
				processing: store.StageExtractingClaims,
				doneStage:  store.StageClaimsExtracted,
				events: stageEvents{
					stage:     events.StageClaimsExtraction,
					started:   events.TypeClaimsExtractionStarted,
					completed: events.TypeClaimsExtractionCompleted,
					failed:    events.TypeClaimsExtractionFailed,
				},
			},
		},
	}
	processing := &laneState{
		kind: laneProcessing,
		name: "processing",
		stages: []pipelineStage{
			{
				name:       "resolution",
				handler:    set.Resolution,
				readyStage: store.StageClaimsExtracted,
				processing: store.StageResolvingEntities,
				doneStage:  store.StageEntityResolved,
				events: stageEvents{
					stage:     events.StageEntityResolution,
					started:   events.TypeEntityResolutionStarted,
					completed: events.TypeEntityResolutionCompleted,
					failed:    events.TypeEntityResolutionFailed,
				},
			},
			{
				name:       "drafts",
				handler:    set.Drafts,
				readyStage: store.StageEntityResolved,
				processing: store.StageGeneratingDrafts,
				doneStage:  store.StageDraftsGenerated,
				events: stageEvents{
					stage:     events.StageDraftGeneration,
					started:   events.TypeDraftGenerationStarted,
					completed: events.TypeDraftGenerationCompleted,
					failed:    events.TypeDraftGenerationFailed,
				},
			},
			{
				name:       "confirmation",
				handler:    set.Confirmation,
				readyStage: store.StageDraftsGenerated,
				processing: store.StageConfirming,
				doneStage:  store.StageConfirmed,
				// Confirmation emits per-summary decision events from
				// the handler instead of stage start/complete events.
				events: stageEvents{stage: events.StageConfirmation},
			},
		},
	}
	external.finalize()
	processing.finalize()
	m.lanes[laneExternal] = external
	m.lanes[laneProcessing] = processing
	m.laneOrder = []laneKind{laneExternal, laneProcessing}
}

// LastError reports the most recent stage or store error, for health
// reporting.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// Running reports whether the lanes are active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
