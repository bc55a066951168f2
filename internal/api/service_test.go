package api_test

import (
	"context"
	"errors"
	"testing"

	"sideline/internal/api"
	"sideline/internal/claims"
	"sideline/internal/events"
	"sideline/internal/services"
	"sideline/internal/store"
	"sideline/internal/testsupport"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
}

func TestIntakeRecordsReceipt(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	view, err := api.NewIntake(st).SubmitText(ctx, "org-1", "coach-1", "great session today", "http")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if view.NoteType != string(store.NoteText) || view.Stage != string(store.StageReceived) {
		t.Fatalf("view = %+v", view)
	}

	list, err := st.ListEvents(ctx, store.EventFilter{ArtifactID: view.ID, Type: events.TypeArtifactReceived})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("receipt events = %d", len(list))
	}
	if list[0].Metadata["source"] != "http" || list[0].Metadata["note_type"] != "text" {
		t.Fatalf("metadata = %+v", list[0].Metadata)
	}
}

func TestIntakeRejectsEmptyInput(t *testing.T) {
	st := newStore(t)
	intake := api.NewIntake(st)
	ctx := context.Background()

	if _, err := intake.SubmitText(ctx, "", "coach-1", "note", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing org error = %v", err)
	}
	if _, err := intake.SubmitText(ctx, "org-1", "coach-1", "   ", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty text error = %v", err)
	}
	if _, err := intake.SubmitVoice(ctx, "org-1", "coach-1", "", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing audio error = %v", err)
	}
}

func TestDescribeBundlesArtifactState(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	artifact := testsupport.NewTextArtifact(t, st, "org-1", "coach-1", "drill notes")
	stored, err := st.StoreClaims(ctx, artifact, []claims.Claim{{
		Topic:                claims.TopicPerformance,
		SourceText:           "worked hard all session",
		Sentiment:            claims.SentimentPositive,
		ExtractionConfidence: 0.8,
	}})
	if err != nil {
		t.Fatalf("store claims: %v", err)
	}
	if _, err := st.AppendEvent(ctx, events.Event{
		Type:       events.TypeClaimsExtractionCompleted,
		ArtifactID: artifact.ID,
		Metadata:   map[string]any{"model": "test", "claim_count": 1, "topics": []string{"effort"}},
	}); err != nil {
		t.Fatalf("append event: %v", err)
	}

	detail, err := api.NewService(st).Describe(ctx, artifact.ArtifactID)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if detail == nil {
		t.Fatal("describe returned nil")
	}
	if detail.Artifact.ArtifactID != artifact.ArtifactID {
		t.Fatalf("artifact = %+v", detail.Artifact)
	}
	if len(detail.Claims) != 1 || detail.Claims[0].ClaimID != stored[0].ClaimID {
		t.Fatalf("claims = %+v", detail.Claims)
	}
	if detail.Claims[0].OverallConfidence != 0 {
		t.Fatalf("unresolved claim overall confidence = %v", detail.Claims[0].OverallConfidence)
	}
	if len(detail.Events) != 1 {
		t.Fatalf("events = %+v", detail.Events)
	}

	missing, err := api.NewService(st).Describe(ctx, "no-such-artifact")
	if err != nil || missing != nil {
		t.Fatalf("missing artifact = %v, %v", missing, err)
	}
}

func TestEventsRejectsUnknownType(t *testing.T) {
	st := newStore(t)
	if _, err := api.NewService(st).Events(context.Background(), api.EventQuery{Type: "bogus"}); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestHealthAggregatesStages(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	testsupport.NewTextArtifact(t, st, "org-1", "coach-1", "one")
	failed := testsupport.NewTextArtifact(t, st, "org-1", "coach-1", "two")
	failed.Stage = store.StageFailed
	if err := st.UpdateArtifact(ctx, failed); err != nil {
		t.Fatalf("update: %v", err)
	}

	health, err := api.NewService(st).Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.Total != 2 || health.Failed != 1 || health.InFlight != 1 {
		t.Fatalf("health = %+v", health)
	}
	if health.Stages[string(store.StageReceived)] != 1 {
		t.Fatalf("stages = %+v", health.Stages)
	}
}
