package main

import (
	"log/slog"

	"sideline/internal/approval"
	"sideline/internal/config"
	"sideline/internal/flags"
	"sideline/internal/pipeline"
	"sideline/internal/resolver"
	"sideline/internal/services/extract"
	"sideline/internal/services/transcribe"
	"sideline/internal/store"
)

func buildManager(cfg *config.Config, st *store.Store, logger *slog.Logger) *pipeline.Manager {
	evaluator := flags.NewEvaluatorFromEnviron(st, cfg.Flags.EnvPrefix, nil)
	set := pipeline.StageSet{
		Transcription: pipeline.NewTranscriptionHandler(transcribe.NewClient(cfg.Transcription), cfg.Transcription.Model),
		Extraction:    pipeline.NewExtractionHandler(st, extract.NewClient(cfg.LLM), cfg.LLM.Model),
		Resolution:    pipeline.NewResolutionHandler(st, resolver.New(st, cfg.Resolver), evaluator),
		Drafts:        pipeline.NewDraftsHandler(st),
		Confirmation:  pipeline.NewConfirmationHandler(st, approval.NewPolicy(cfg.Approval)),
	}
	return pipeline.NewManager(cfg, st, logger, set)
}
