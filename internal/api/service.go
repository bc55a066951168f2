package api

import (
	"context"
	"strings"

	"sideline/internal/claims"
	"sideline/internal/events"
	"sideline/internal/store"
)

// Reader abstracts the store queries the audit surface needs.
type Reader interface {
	ListArtifacts(ctx context.Context, stage store.Stage, limit int) ([]*store.Artifact, error)
	GetArtifactByUUID(ctx context.Context, artifactID string) (*store.Artifact, error)
	ClaimsByArtifact(ctx context.Context, artifactID int64) ([]*claims.Claim, error)
	SummariesByArtifact(ctx context.Context, artifactID int64) ([]*store.Summary, error)
	ListEvents(ctx context.Context, filter store.EventFilter) ([]*events.Event, error)
	StageCounts(ctx context.Context) (map[store.Stage]int, error)
	ListFlags(ctx context.Context) ([]*store.FeatureFlag, error)
}

// Service exposes read-only pipeline state as API DTOs.
type Service struct {
	store Reader
}

// NewService constructs a Service around the provided reader.
func NewService(store Reader) *Service {
	if store == nil {
		return nil
	}
	return &Service{store: store}
}

// Artifacts lists artifacts, optionally filtered to one stage.
func (s *Service) Artifacts(ctx context.Context, stage string, limit int) ([]ArtifactView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	list, err := s.store.ListArtifacts(ctx, store.Stage(strings.TrimSpace(stage)), limit)
	if err != nil {
		return nil, err
	}
	return FromArtifacts(list), nil
}

// Describe fetches one artifact with its claims, summaries, and audit trail.
func (s *Service) Describe(ctx context.Context, artifactID string) (*ArtifactDetail, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	artifact, err := s.store.GetArtifactByUUID(ctx, artifactID)
	if err != nil || artifact == nil {
		return nil, err
	}

	claimList, err := s.store.ClaimsByArtifact(ctx, artifact.ID)
	if err != nil {
		return nil, err
	}
	summaryList, err := s.store.SummariesByArtifact(ctx, artifact.ID)
	if err != nil {
		return nil, err
	}
	eventList, err := s.store.ListEvents(ctx, store.EventFilter{ArtifactID: artifact.ID})
	if err != nil {
		return nil, err
	}

	detail := &ArtifactDetail{
		Artifact:  FromArtifact(artifact),
		Claims:    make([]ClaimView, 0, len(claimList)),
		Summaries: make([]SummaryView, 0, len(summaryList)),
		Events:    FromEvents(eventList),
	}
	for _, claim := range claimList {
		detail.Claims = append(detail.Claims, FromClaim(claim))
	}
	for _, summary := range summaryList {
		detail.Summaries = append(detail.Summaries, FromSummary(summary))
	}
	return detail, nil
}

// EventQuery filters the audit event stream.
type EventQuery struct {
	ArtifactID int64
	Type       string
	Stage      string
	Limit      int
	Offset     int
}

// Events returns a page of audit events, newest first.
func (s *Service) Events(ctx context.Context, query EventQuery) (*EventListResponse, error) {
	if s == nil || s.store == nil {
		return &EventListResponse{}, nil
	}
	filter := store.EventFilter{
		ArtifactID: query.ArtifactID,
		Limit:      query.Limit,
		Offset:     query.Offset,
	}
	if raw := strings.TrimSpace(query.Type); raw != "" {
		parsed, err := events.ParseType(raw)
		if err != nil {
			return nil, err
		}
		filter.Type = parsed
	}
	if raw := strings.TrimSpace(query.Stage); raw != "" {
		filter.Stage = events.Stage(raw)
	}
	list, err := s.store.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &EventListResponse{
		Events: FromEvents(list),
		Offset: query.Offset + len(list),
	}, nil
}

// Health reports the pipeline backlog by stage.
func (s *Service) Health(ctx context.Context) (*QueueHealth, error) {
	if s == nil || s.store == nil {
		return &QueueHealth{Stages: map[string]int{}}, nil
	}
	counts, err := s.store.StageCounts(ctx)
	if err != nil {
		return nil, err
	}
	health := &QueueHealth{Stages: make(map[string]int, len(counts))}
	for stage, count := range counts {
		health.Stages[string(stage)] = count
		health.Total += count
		switch stage {
		case store.StageFailed:
			health.Failed += count
		case store.StageConfirmed:
		default:
			health.InFlight += count
		}
	}
	return health, nil
}

// Flags lists every stored flag override.
func (s *Service) Flags(ctx context.Context) ([]FlagView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	list, err := s.store.ListFlags(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]FlagView, 0, len(list))
	for _, flag := range list {
		out = append(out, FromFlag(flag))
	}
	return out, nil
}
