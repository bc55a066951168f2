package pipeline

import (
	"log/slog"

	"sideline/internal/events"
	"sideline/internal/store"
)

// StageSet bundles the concrete stage handlers the manager orchestrates.
type StageSet struct {
	Transcription Handler
	Extraction    Handler
	Resolution    Handler
	Drafts        Handler
	Confirmation  Handler
}

// stageEvents names the audit events one stage transition family emits.
type stageEvents struct {
	stage     events.Stage
	started   events.Type
	completed events.Type
	failed    events.Type
}

type pipelineStage struct {
	name       string
	handler    Handler
	readyStage store.Stage
	processing store.Stage
	doneStage  store.Stage
	events     stageEvents
}

type laneKind string

const (
	laneExternal   laneKind = "external"
	laneProcessing laneKind = "processing"
)

type laneState struct {
	kind         laneKind
	name         string
	stages       []pipelineStage
	stageOrder   []store.Stage
	stageByReady map[store.Stage]pipelineStage
	logger       *slog.Logger
	runReclaimer bool
}

func (l *laneState) finalize() {
	if l == nil {
		return
	}
	l.stageByReady = make(map[store.Stage]pipelineStage, len(l.stages))
	l.stageOrder = make([]store.Stage, 0, len(l.stages))
	for _, stg := range l.stages {
		l.stageByReady[stg.readyStage] = stg
		l.stageOrder = append(l.stageOrder, stg.readyStage)
	}
}

func (l *laneState) stageForReady(ready store.Stage) (pipelineStage, bool) {
	if l == nil {
		return pipelineStage{}, false
	}
	stg, ok := l.stageByReady[ready]
	return stg, ok
}
