package pipeline_test

import (
	"context"
	"strings"
	"testing"

	"sideline/internal/approval"
	"sideline/internal/claims"
	"sideline/internal/config"
	"sideline/internal/events"
	"sideline/internal/flags"
	"sideline/internal/logging"
	"sideline/internal/pipeline"
	"sideline/internal/resolver"
	"sideline/internal/services"
	"sideline/internal/services/extract"
	"sideline/internal/services/transcribe"
	"sideline/internal/store"
	"sideline/internal/testsupport"
)

type stubTranscriber struct {
	fn func(ctx context.Context, audioPath string) (transcribe.Transcript, error)
}

func (s stubTranscriber) TranscribeFile(ctx context.Context, audioPath string) (transcribe.Transcript, error) {
	return s.fn(ctx, audioPath)
}

type stubExtractor struct {
	fn func(ctx context.Context, req extract.Request) ([]claims.Claim, error)
}

func (s stubExtractor) ExtractClaims(ctx context.Context, req extract.Request) ([]claims.Claim, error) {
	return s.fn(ctx, req)
}

type fixture struct {
	cfg     *config.Config
	store   *store.Store
	manager *pipeline.Manager
}

func newFixture(t *testing.T, transcriber pipeline.Transcriber, extractor pipeline.ClaimExtractor, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedRoster(t, st, "org-1", "coach-1")

	evaluator := flags.NewEvaluatorFromEnviron(st, cfg.Flags.EnvPrefix, nil)
	set := pipeline.StageSet{
		Transcription: pipeline.NewTranscriptionHandler(transcriber, cfg.Transcription.Model),
		Extraction:    pipeline.NewExtractionHandler(st, extractor, cfg.LLM.Model),
		Resolution:    pipeline.NewResolutionHandler(st, resolver.New(st, cfg.Resolver), evaluator),
		Drafts:        pipeline.NewDraftsHandler(st),
		Confirmation:  pipeline.NewConfirmationHandler(st, approval.NewPolicy(cfg.Approval)),
	}
	return &fixture{
		cfg:     cfg,
		store:   st,
		manager: pipeline.NewManager(cfg, st, logging.NewNop(), set),
	}
}

func passthroughTranscriber() pipeline.Transcriber {
	return stubTranscriber{fn: func(ctx context.Context, audioPath string) (transcribe.Transcript, error) {
		return transcribe.Transcript{Text: "stub transcript", Confidence: 0.95}, nil
	}}
}

func seedTrust(t *testing.T, st *store.Store, coachID string, approvals int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < approvals; i++ {
		if err := st.AppendTrustFeedback(ctx, coachID, store.TrustApproved, ""); err != nil {
			t.Fatalf("seed trust: %v", err)
		}
	}
}

func countEvents(t *testing.T, st *store.Store, artifactID int64, eventType events.Type) int {
	t.Helper()
	count, err := st.CountEvents(context.Background(), artifactID, eventType)
	if err != nil {
		t.Fatalf("count %s events: %v", eventType, err)
	}
	return count
}

func TestPipelineEndToEnd(t *testing.T) {
	extractor := stubExtractor{fn: func(ctx context.Context, req extract.Request) ([]claims.Claim, error) {
		return []claims.Claim{
			{
				Topic:                claims.TopicPerformance,
				SourceText:           "Liam O'Brien finished every sprint first",
				Title:                "Strong sprint session",
				Description:          "Led the group through every sprint drill.",
				Sentiment:            claims.SentimentPositive,
				ExtractionConfidence: 0.9,
				Mentions: []claims.Mention{{
					Type:    claims.MentionPlayerName,
					RawText: "Liam O'Brien",
					Status:  claims.MentionPending,
				}},
			},
			{
				Topic:                claims.TopicInjury,
				SourceText:           "Liam pulled his hamstring at the end",
				Title:                "Hamstring strain",
				Severity:             claims.SeverityModerate,
				Sentiment:            claims.SentimentConcerned,
				RecommendedAction:    "Rest until Thursday",
				ExtractionConfidence: 0.95,
				Mentions: []claims.Mention{{
					Type:    claims.MentionPlayerName,
					RawText: "Liam",
					Status:  claims.MentionPending,
				}},
			},
		}, nil
	}}

	f := newFixture(t, passthroughTranscriber(), extractor)
	ctx := context.Background()
	seedTrust(t, f.store, "coach-1", 60)

	artifact := testsupport.NewTextArtifact(t, f.store, "org-1", "coach-1", "training notes")
	if err := f.manager.ProcessOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	final, err := f.store.GetArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("reload artifact: %v", err)
	}
	if final.Stage != store.StageConfirmed {
		t.Fatalf("stage = %s (error %q)", final.Stage, final.ErrorMessage)
	}
	if final.TranscriptText != "training notes" {
		t.Fatalf("transcript = %q", final.TranscriptText)
	}

	summaries, err := f.store.SummariesByArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d", len(summaries))
	}
	byTopic := make(map[string]*store.Summary, len(summaries))
	for _, summary := range summaries {
		byTopic[summary.Topic] = summary
	}
	performance := byTopic[string(claims.TopicPerformance)]
	if performance == nil || performance.Status != store.SummaryAutoApproved {
		t.Fatalf("performance summary = %+v", performance)
	}
	if performance.RevokeDeadline == nil {
		t.Fatal("auto-approved summary has no revoke deadline")
	}
	if !strings.Contains(performance.Content, "Liam O'Brien") {
		t.Fatalf("content = %q", performance.Content)
	}
	injury := byTopic[string(claims.TopicInjury)]
	if injury == nil || injury.Status != store.SummaryHeld {
		t.Fatalf("injury summary = %+v", injury)
	}

	stored, err := f.store.ClaimsByArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("claims: %v", err)
	}
	for _, claim := range stored {
		if claim.Status != claims.StatusMerged {
			t.Fatalf("claim %s status = %s", claim.ClaimID, claim.Status)
		}
	}

	for _, eventType := range []events.Type{
		events.TypeTranscriptionStarted,
		events.TypeTranscriptionCompleted,
		events.TypeClaimsExtractionCompleted,
		events.TypeEntityResolutionCompleted,
		events.TypeDraftGenerationCompleted,
		events.TypeDraftAutoApproved,
		events.TypeDraftHeld,
	} {
		if got := countEvents(t, f.store, artifact.ID, eventType); got != 1 {
			t.Fatalf("%s events = %d, want 1", eventType, got)
		}
	}
}

func TestPipelineRetriesUntilCeiling(t *testing.T) {
	transcriber := stubTranscriber{fn: func(ctx context.Context, audioPath string) (transcribe.Transcript, error) {
		return transcribe.Transcript{}, services.Wrap(services.ErrExternalService, "transcribe", "request", "status 503", nil)
	}}
	extractor := stubExtractor{fn: func(ctx context.Context, req extract.Request) ([]claims.Claim, error) {
		t.Fatal("extraction should never run")
		return nil, nil
	}}

	f := newFixture(t, transcriber, extractor, testsupport.WithRetryLimit(3))
	ctx := context.Background()
	artifact := testsupport.NewVoiceArtifact(t, f.store, "org-1", "coach-1")

	if err := f.manager.ProcessOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	final, err := f.store.GetArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("reload artifact: %v", err)
	}
	if final.Stage != store.StageFailed {
		t.Fatalf("stage = %s", final.Stage)
	}
	if final.ErrorMessage == "" {
		t.Fatal("failed artifact has no error message")
	}
	if got := countEvents(t, f.store, artifact.ID, events.TypeRetryInitiated); got != 3 {
		t.Fatalf("retry_initiated events = %d, want 3", got)
	}
	if got := countEvents(t, f.store, artifact.ID, events.TypePipelineFailed); got != 1 {
		t.Fatalf("pipeline_failed events = %d, want 1", got)
	}
	// Three retried attempts plus the terminal one.
	if got := countEvents(t, f.store, artifact.ID, events.TypeTranscriptionFailed); got != 4 {
		t.Fatalf("transcription_failed events = %d, want 4", got)
	}
}

func TestPipelineValidationFailsWithoutRetry(t *testing.T) {
	transcriber := stubTranscriber{fn: func(ctx context.Context, audioPath string) (transcribe.Transcript, error) {
		return transcribe.Transcript{}, services.Wrap(services.ErrValidation, "transcribe", "read audio", "corrupt file", nil)
	}}
	extractor := stubExtractor{fn: func(ctx context.Context, req extract.Request) ([]claims.Claim, error) {
		return nil, nil
	}}

	f := newFixture(t, transcriber, extractor, testsupport.WithRetryLimit(3))
	ctx := context.Background()
	artifact := testsupport.NewVoiceArtifact(t, f.store, "org-1", "coach-1")

	if err := f.manager.ProcessOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	final, err := f.store.GetArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("reload artifact: %v", err)
	}
	if final.Stage != store.StageFailed {
		t.Fatalf("stage = %s", final.Stage)
	}
	if got := countEvents(t, f.store, artifact.ID, events.TypeRetryInitiated); got != 0 {
		t.Fatalf("retry_initiated events = %d, want 0", got)
	}
}

func TestPipelineDisambiguationRoundTrip(t *testing.T) {
	extractor := stubExtractor{fn: func(ctx context.Context, req extract.Request) ([]claims.Claim, error) {
		return []claims.Claim{{
			Topic:                claims.TopicPerformance,
			SourceText:           "Jake was outstanding in goal",
			Title:                "Outstanding in goal",
			Sentiment:            claims.SentimentPositive,
			ExtractionConfidence: 0.9,
			Mentions: []claims.Mention{{
				Type:    claims.MentionPlayerName,
				RawText: "Jake",
				Status:  claims.MentionPending,
			}},
		}}, nil
	}}

	f := newFixture(t, passthroughTranscriber(), extractor)
	ctx := context.Background()
	seedTrust(t, f.store, "coach-1", 60)

	artifact := testsupport.NewTextArtifact(t, f.store, "org-1", "coach-1", "match notes")
	if err := f.manager.ProcessOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	// Two Jakes on the roster: the claim parks for a human.
	stored, err := f.store.ClaimsByArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("claims: %v", err)
	}
	if len(stored) != 1 || stored[0].Status != claims.StatusNeedsDisambiguation {
		t.Fatalf("claims = %+v", stored)
	}
	if got := countEvents(t, f.store, artifact.ID, events.TypeEntityNeedsDisambiguation); got != 1 {
		t.Fatalf("disambiguation events = %d", got)
	}
	summaries, err := f.store.SummariesByArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("summaries before disambiguation = %d", len(summaries))
	}

	claim, err := pipeline.ResolveAmbiguity(ctx, f.store, stored[0].ClaimID, 0, "p-murphy")
	if err != nil {
		t.Fatalf("resolve ambiguity: %v", err)
	}
	if claim.Status != claims.StatusResolved {
		t.Fatalf("claim status = %s", claim.Status)
	}

	// The choice is remembered as coach shorthand.
	alias, err := f.store.LookupAlias(ctx, "coach-1", "org-1", "Jake")
	if err != nil {
		t.Fatalf("lookup alias: %v", err)
	}
	if alias == nil || alias.PlayerIdentityID != "p-murphy" {
		t.Fatalf("alias = %+v", alias)
	}

	if err := f.manager.ProcessOnce(ctx); err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	summaries, err = f.store.SummariesByArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("summaries after disambiguation = %d", len(summaries))
	}
	if summaries[0].PlayerName != "Jake Murphy" {
		t.Fatalf("summary player = %q", summaries[0].PlayerName)
	}
	if summaries[0].Status != store.SummaryAutoApproved {
		t.Fatalf("summary status = %s (%s)", summaries[0].Status, summaries[0].DecisionReason)
	}
}

func TestPipelineResolutionKillSwitch(t *testing.T) {
	extractor := stubExtractor{fn: func(ctx context.Context, req extract.Request) ([]claims.Claim, error) {
		return []claims.Claim{{
			Topic:                claims.TopicPerformance,
			SourceText:           "Emma ran well",
			Sentiment:            claims.SentimentPositive,
			ExtractionConfidence: 0.9,
			Mentions: []claims.Mention{{
				Type:    claims.MentionPlayerName,
				RawText: "Emma",
				Status:  claims.MentionPending,
			}},
		}}, nil
	}}

	f := newFixture(t, passthroughTranscriber(), extractor)
	ctx := context.Background()
	if err := f.store.SetFlag(ctx, flags.KeyEntityResolution, store.ScopePlatform, "", false, "admin", "incident"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	artifact := testsupport.NewTextArtifact(t, f.store, "org-1", "coach-1", "session notes")
	if err := f.manager.ProcessOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	final, err := f.store.GetArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("reload artifact: %v", err)
	}
	if final.Stage != store.StageConfirmed {
		t.Fatalf("stage = %s", final.Stage)
	}
	if got := countEvents(t, f.store, artifact.ID, events.TypeEntityResolutionSkipped); got != 1 {
		t.Fatalf("skip events = %d", got)
	}
	stored, err := f.store.ClaimsByArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("claims: %v", err)
	}
	if len(stored) != 1 || stored[0].Status != claims.StatusExtracted {
		t.Fatalf("claims = %+v", stored[0])
	}
	summaries, err := f.store.SummariesByArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("summaries = %d, want none while resolution is disabled", len(summaries))
	}
}

func TestPipelineLegacyRoutingSkipsResolution(t *testing.T) {
	extractor := stubExtractor{fn: func(ctx context.Context, req extract.Request) ([]claims.Claim, error) {
		return []claims.Claim{{
			Topic:                claims.TopicPerformance,
			SourceText:           "Emma ran well",
			Sentiment:            claims.SentimentPositive,
			ExtractionConfidence: 0.9,
			Mentions: []claims.Mention{{
				Type:    claims.MentionPlayerName,
				RawText: "Emma",
				Status:  claims.MentionPending,
			}},
		}}, nil
	}}

	f := newFixture(t, passthroughTranscriber(), extractor)
	ctx := context.Background()
	if err := f.store.SetFlag(ctx, flags.KeyPipelineV2, store.ScopeOrganization, "org-1", false, "admin", "staged rollout"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	artifact := testsupport.NewTextArtifact(t, f.store, "org-1", "coach-1", "session notes")
	if err := f.manager.ProcessOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	if got := countEvents(t, f.store, artifact.ID, events.TypeEntityResolutionSkipped); got != 1 {
		t.Fatalf("skip events = %d", got)
	}
	stored, err := f.store.ClaimsByArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("claims: %v", err)
	}
	if len(stored) != 1 || stored[0].Status != claims.StatusExtracted {
		t.Fatalf("claims = %+v", stored[0])
	}

	// Orgs outside the legacy hold still resolve normally.
	other := testsupport.NewTextArtifact(t, f.store, "org-2", "coach-1", "session notes")
	if err := f.manager.ProcessOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	if got := countEvents(t, f.store, other.ID, events.TypeEntityResolutionSkipped); got != 0 {
		t.Fatalf("skip events for current org = %d", got)
	}
}
