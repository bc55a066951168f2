package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"sideline/internal/store"
	"sideline/internal/testsupport"
)

func insertPendingSummary(t *testing.T, st *store.Store) store.Summary {
	t.Helper()
	ctx := context.Background()
	artifact := testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")
	stored, err := st.StoreClaims(ctx, artifact, extractionBatch()[:1])
	if err != nil {
		t.Fatalf("store claims: %v", err)
	}

	drafts, err := st.InsertSummaries(ctx, []store.Summary{{
		ClaimID:          stored[0].ID,
		ArtifactID:       artifact.ID,
		OrganizationID:   "org-1",
		CoachID:          "coach-1",
		PlayerIdentityID: "p-liam",
		PlayerName:       "Liam O'Brien",
		Topic:            "injury",
		Content:          "Liam picked up a knock at training; we are monitoring it.",
		Confidence:       0.88,
	}})
	if err != nil {
		t.Fatalf("insert summaries: %v", err)
	}
	return drafts[0]
}

func TestInsertSummariesDefaultsPending(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	summary := insertPendingSummary(t, st)
	if summary.Status != store.SummaryPending {
		t.Fatalf("status = %s", summary.Status)
	}
	if summary.SummaryID == "" {
		t.Fatal("missing public identifier")
	}
}

func TestApplyDecisionOnlyOnce(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	summary := insertPendingSummary(t, st)
	ctx := context.Background()

	deadline := time.Now().Add(30 * time.Minute).UTC()
	if err := st.ApplyDecision(ctx, summary.SummaryID, store.SummaryAutoApproved, "auto_send", "trust level met", &deadline); err != nil {
		t.Fatalf("apply decision: %v", err)
	}

	// Decisions are final: a second apply hits a non-pending row.
	err := st.ApplyDecision(ctx, summary.SummaryID, store.SummaryHeld, "manual_review", "", nil)
	if !errors.Is(err, store.ErrStageConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	fetched, err := st.GetSummaryByUUID(ctx, summary.SummaryID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if fetched.Status != store.SummaryAutoApproved {
		t.Fatalf("status = %s", fetched.Status)
	}
	if fetched.RevokeDeadline == nil {
		t.Fatal("missing revoke deadline")
	}
}

func TestRevokeWithinWindow(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	summary := insertPendingSummary(t, st)
	ctx := context.Background()

	deadline := time.Now().Add(30 * time.Minute).UTC()
	if err := st.ApplyDecision(ctx, summary.SummaryID, store.SummaryAutoApproved, "auto_send", "", &deadline); err != nil {
		t.Fatalf("apply decision: %v", err)
	}
	if err := st.RevokeSummary(ctx, summary.SummaryID, "coach pulled it back", time.Now()); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	fetched, err := st.GetSummaryByUUID(ctx, summary.SummaryID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if fetched.Status != store.SummaryRevoked || fetched.RevokedAt == nil {
		t.Fatalf("summary = %+v", fetched)
	}
	if fetched.RevokeReason != "coach pulled it back" {
		t.Fatalf("reason = %q", fetched.RevokeReason)
	}
}

func TestRevokeAfterViewFails(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	summary := insertPendingSummary(t, st)
	ctx := context.Background()

	deadline := time.Now().Add(30 * time.Minute).UTC()
	if err := st.ApplyDecision(ctx, summary.SummaryID, store.SummaryAutoApproved, "auto_send", "", &deadline); err != nil {
		t.Fatalf("apply decision: %v", err)
	}
	if err := st.MarkViewed(ctx, summary.SummaryID); err != nil {
		t.Fatalf("mark viewed: %v", err)
	}

	err := st.RevokeSummary(ctx, summary.SummaryID, "too late", time.Now())
	if !errors.Is(err, store.ErrSummaryViewed) {
		t.Fatalf("expected viewed error, got %v", err)
	}

	fetched, err := st.GetSummaryByUUID(ctx, summary.SummaryID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if fetched.Status != store.SummaryViewed {
		t.Fatalf("status = %s", fetched.Status)
	}
}

func TestRevokeAfterDeadlineFails(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	summary := insertPendingSummary(t, st)
	ctx := context.Background()

	deadline := time.Now().Add(-time.Minute).UTC()
	if err := st.ApplyDecision(ctx, summary.SummaryID, store.SummaryAutoApproved, "auto_send", "", &deadline); err != nil {
		t.Fatalf("apply decision: %v", err)
	}

	err := st.RevokeSummary(ctx, summary.SummaryID, "", time.Now())
	if !errors.Is(err, store.ErrRevocationExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestRevokePendingSummaryFails(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	summary := insertPendingSummary(t, st)

	err := st.RevokeSummary(context.Background(), summary.SummaryID, "", time.Now())
	if err == nil {
		t.Fatal("expected error revoking a pending summary")
	}
}
