package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"sideline/internal/claims"
	"sideline/internal/store"
	"sideline/internal/testsupport"
)

func extractionBatch() []claims.Claim {
	return []claims.Claim{
		{
			Topic:                claims.TopicInjury,
			SourceText:           "Liam tweaked his hamstring in the second half",
			Severity:             claims.SeverityModerate,
			ExtractionConfidence: 0.91,
			Mentions: []claims.Mention{
				{Type: claims.MentionPlayerName, RawText: "Liam", Position: 0, Status: claims.MentionPending},
			},
		},
		{
			Topic:                claims.TopicPerformance,
			SourceText:           "the whole team pressed well",
			Sentiment:            claims.SentimentPositive,
			ExtractionConfidence: 0.84,
			Mentions: []claims.Mention{
				{Type: claims.MentionGroupReference, RawText: "the whole team", Position: 0, Status: claims.MentionPending},
			},
		},
	}
}

func TestStoreClaimsRoundTrip(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	artifact := testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")

	stored, err := st.StoreClaims(ctx, artifact, extractionBatch())
	if err != nil {
		t.Fatalf("store claims: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d claims", len(stored))
	}

	fetched, err := st.ClaimsByArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("claims by artifact: %v", err)
	}
	if len(fetched) != 2 {
		t.Fatalf("fetched %d claims", len(fetched))
	}
	first := fetched[0]
	if first.Status != claims.StatusExtracted {
		t.Fatalf("status = %s", first.Status)
	}
	if first.Topic != claims.TopicInjury || first.Severity != claims.SeverityModerate {
		t.Fatalf("claim = %+v", first)
	}
	if len(first.Mentions) != 1 || first.Mentions[0].RawText != "Liam" {
		t.Fatalf("mentions = %+v", first.Mentions)
	}
	if first.OrganizationID != "org-1" || first.CoachID != "coach-1" {
		t.Fatalf("ownership = %s/%s", first.OrganizationID, first.CoachID)
	}
}

func TestStoreClaimsRejectsBadBatchEntirely(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	artifact := testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")

	batch := extractionBatch()
	batch[1].SourceText = ""
	if _, err := st.StoreClaims(ctx, artifact, batch); err == nil {
		t.Fatal("expected batch rejection")
	}

	fetched, err := st.ClaimsByArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("claims by artifact: %v", err)
	}
	if len(fetched) != 0 {
		t.Fatalf("expected no claims persisted, got %d", len(fetched))
	}
}

func TestUpdateClaimEnforcesTransitions(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	artifact := testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")

	stored, err := st.StoreClaims(ctx, artifact, extractionBatch()[:1])
	if err != nil {
		t.Fatalf("store claims: %v", err)
	}
	claim := stored[0]

	// extracted -> resolved skips resolving and must fail.
	claim.Status = claims.StatusResolved
	err = st.UpdateClaim(ctx, &claim)
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	claim.Status = claims.StatusResolving
	if err := st.UpdateClaim(ctx, &claim); err != nil {
		t.Fatalf("to resolving: %v", err)
	}
	claim.Status = claims.StatusResolved
	claim.ResolutionConfidence = 0.95
	claim.Mentions[0].Status = claims.MentionAutoResolved
	claim.Mentions[0].ResolvedID = "p-liam"
	claim.Mentions[0].ResolvedName = "Liam O'Brien"
	if err := st.UpdateClaim(ctx, &claim); err != nil {
		t.Fatalf("to resolved: %v", err)
	}

	fetched, err := st.GetClaim(ctx, claim.ID)
	if err != nil {
		t.Fatalf("get claim: %v", err)
	}
	if fetched.Status != claims.StatusResolved {
		t.Fatalf("status = %s", fetched.Status)
	}
	if fetched.Mentions[0].ResolvedID != "p-liam" {
		t.Fatalf("mention = %+v", fetched.Mentions[0])
	}
}

func TestDisambiguationBackwardEdge(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	artifact := testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")

	stored, err := st.StoreClaims(ctx, artifact, extractionBatch()[:1])
	if err != nil {
		t.Fatalf("store claims: %v", err)
	}
	claim := stored[0]
	claim.Status = claims.StatusResolving
	if err := st.UpdateClaim(ctx, &claim); err != nil {
		t.Fatalf("to resolving: %v", err)
	}
	claim.Status = claims.StatusNeedsDisambiguation
	if err := st.UpdateClaim(ctx, &claim); err != nil {
		t.Fatalf("to needs_disambiguation: %v", err)
	}
	// Manual disambiguation re-enters resolving.
	claim.Status = claims.StatusResolving
	if err := st.UpdateClaim(ctx, &claim); err != nil {
		t.Fatalf("back to resolving: %v", err)
	}
}

func TestRecentPlayerResolutions(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	artifact := testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")

	stored, err := st.StoreClaims(ctx, artifact, extractionBatch()[:1])
	if err != nil {
		t.Fatalf("store claims: %v", err)
	}
	claim := stored[0]
	claim.Status = claims.StatusResolving
	if err := st.UpdateClaim(ctx, &claim); err != nil {
		t.Fatalf("to resolving: %v", err)
	}
	claim.Status = claims.StatusResolved
	claim.Mentions[0].Status = claims.MentionAutoResolved
	claim.Mentions[0].ResolvedID = "p-liam"
	if err := st.UpdateClaim(ctx, &claim); err != nil {
		t.Fatalf("to resolved: %v", err)
	}

	recent, err := st.RecentPlayerResolutions(ctx, "coach-1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("recent resolutions: %v", err)
	}
	if _, ok := recent["p-liam"]; !ok {
		t.Fatalf("expected p-liam in %v", recent)
	}

	// Outside the window nothing matches.
	recent, err = st.RecentPlayerResolutions(ctx, "coach-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("recent resolutions future: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("expected empty map, got %v", recent)
	}
}
