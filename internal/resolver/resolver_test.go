package resolver_test

import (
	"context"
	"testing"

	"sideline/internal/claims"
	"sideline/internal/resolver"
	"sideline/internal/store"
	"sideline/internal/testsupport"
)

func newResolver(t *testing.T) (*resolver.Resolver, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedRoster(t, st, "org-1", "coach-1")
	return resolver.New(st, cfg.Resolver), st
}

func playerClaim(rawTexts ...string) *claims.Claim {
	claim := &claims.Claim{
		Topic:                claims.TopicPerformance,
		Status:               claims.StatusResolving,
		SourceText:           "training note",
		Sentiment:            claims.SentimentPositive,
		ExtractionConfidence: 0.9,
	}
	for i, raw := range rawTexts {
		claim.Mentions = append(claim.Mentions, claims.Mention{
			Type:     claims.MentionPlayerName,
			RawText:  raw,
			Position: i,
			Status:   claims.MentionPending,
		})
	}
	return claim
}

func TestResolveExactName(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()
	roster, err := r.LoadRoster(ctx, "org-1", "coach-1")
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}

	claim := playerClaim("Liam O'Brien")
	status, err := r.ResolveClaim(ctx, roster, claim)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if status != claims.StatusResolved {
		t.Fatalf("status = %s", status)
	}
	mention := claim.Mentions[0]
	if mention.Status != claims.MentionAutoResolved || mention.ResolvedID != "p-liam" {
		t.Fatalf("mention = %+v", mention)
	}
	if claim.ResolutionConfidence != 1 {
		t.Fatalf("resolution confidence = %v", claim.ResolutionConfidence)
	}
}

func TestResolveIgnoresDiacritics(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()
	roster, err := r.LoadRoster(ctx, "org-1", "coach-1")
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}

	claim := playerClaim("padraig o se")
	status, err := r.ResolveClaim(ctx, roster, claim)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if status != claims.StatusResolved {
		t.Fatalf("status = %s", status)
	}
	if claim.Mentions[0].ResolvedID != "p-padraig" {
		t.Fatalf("resolved id = %s", claim.Mentions[0].ResolvedID)
	}
}

func TestResolveNearTieAsksCoach(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()
	roster, err := r.LoadRoster(ctx, "org-1", "coach-1")
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}

	// "Jake" matches Jake Murphy and Jake Murray equally.
	claim := playerClaim("Jake")
	status, err := r.ResolveClaim(ctx, roster, claim)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if status != claims.StatusNeedsDisambiguation {
		t.Fatalf("status = %s", status)
	}
	mention := claim.Mentions[0]
	if mention.Status != claims.MentionNeedsDisambiguation {
		t.Fatalf("mention status = %s", mention.Status)
	}
	if len(mention.Candidates) < 2 {
		t.Fatalf("candidates = %+v", mention.Candidates)
	}
}

func TestResolveFullNameBeatsNearMiss(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()
	roster, err := r.LoadRoster(ctx, "org-1", "coach-1")
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}

	// The full surname separates Murphy from Murray cleanly.
	claim := playerClaim("Jake Murphy")
	status, err := r.ResolveClaim(ctx, roster, claim)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if status != claims.StatusResolved {
		t.Fatalf("status = %s", status)
	}
	if claim.Mentions[0].ResolvedID != "p-murphy" {
		t.Fatalf("resolved id = %s", claim.Mentions[0].ResolvedID)
	}
}

func TestResolveAliasFirst(t *testing.T) {
	r, st := newResolver(t)
	ctx := context.Background()

	if err := st.RememberAlias(ctx, "coach-1", "org-1", "Jakey", "p-murray", "Jake Murray"); err != nil {
		t.Fatalf("remember alias: %v", err)
	}
	roster, err := r.LoadRoster(ctx, "org-1", "coach-1")
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}

	claim := playerClaim("Jakey")
	status, err := r.ResolveClaim(ctx, roster, claim)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if status != claims.StatusResolved {
		t.Fatalf("status = %s", status)
	}
	mention := claim.Mentions[0]
	if mention.ResolvedID != "p-murray" || mention.Score != 1 {
		t.Fatalf("mention = %+v", mention)
	}
}

func TestResolveUnknownNameStaysUnresolved(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()
	roster, err := r.LoadRoster(ctx, "org-1", "coach-1")
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}

	claim := playerClaim("Zlatan")
	status, err := r.ResolveClaim(ctx, roster, claim)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if status != claims.StatusResolved {
		t.Fatalf("status = %s", status)
	}
	if claim.Mentions[0].Status != claims.MentionUnresolved {
		t.Fatalf("mention status = %s", claim.Mentions[0].Status)
	}
	if claim.ResolutionConfidence != 0 {
		t.Fatalf("resolution confidence = %v", claim.ResolutionConfidence)
	}
}

func TestResolveGroupReference(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()
	roster, err := r.LoadRoster(ctx, "org-1", "coach-1")
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}

	claim := &claims.Claim{
		Topic:      claims.TopicTeamCulture,
		Status:     claims.StatusResolving,
		SourceText: "great energy from the boys today",
		Mentions: []claims.Mention{{
			Type:    claims.MentionGroupReference,
			RawText: "the boys",
			Status:  claims.MentionPending,
		}},
	}
	status, err := r.ResolveClaim(ctx, roster, claim)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if status != claims.StatusResolved {
		t.Fatalf("status = %s", status)
	}
	mention := claim.Mentions[0]
	if mention.ResolvedID != "t-u12" || mention.ResolvedName != "U12 Tigers" {
		t.Fatalf("mention = %+v", mention)
	}
}

func TestResolveGroupReferenceWithoutTeam(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()
	roster, err := r.LoadRoster(ctx, "org-1", "coach-without-team")
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}

	claim := &claims.Claim{
		Topic:      claims.TopicTeamCulture,
		Status:     claims.StatusResolving,
		SourceText: "note",
		Mentions: []claims.Mention{{
			Type:    claims.MentionGroupReference,
			RawText: "the squad",
			Status:  claims.MentionPending,
		}},
	}
	if _, err := r.ResolveClaim(ctx, roster, claim); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if claim.Mentions[0].Status != claims.MentionUnresolved {
		t.Fatalf("mention status = %s", claim.Mentions[0].Status)
	}
}

func TestResolveTeamName(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()
	roster, err := r.LoadRoster(ctx, "org-1", "coach-1")
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}

	claim := &claims.Claim{
		Topic:      claims.TopicTactical,
		Status:     claims.StatusResolving,
		SourceText: "U14 Hawks pressed well",
		Mentions: []claims.Mention{{
			Type:    claims.MentionTeamName,
			RawText: "U14 Hawks",
			Status:  claims.MentionPending,
		}},
	}
	status, err := r.ResolveClaim(ctx, roster, claim)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if status != claims.StatusResolved {
		t.Fatalf("status = %s", status)
	}
	if claim.Mentions[0].ResolvedID != "t-u14" {
		t.Fatalf("resolved id = %s", claim.Mentions[0].ResolvedID)
	}
}

func TestRecentResolutionBreaksTie(t *testing.T) {
	r, st := newResolver(t)
	ctx := context.Background()

	// A resolved claim for Jake Murray inside the recency window makes
	// a later bare "Jake" resolve to him without asking.
	artifact := testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")
	stored, err := st.StoreClaims(ctx, artifact, []claims.Claim{{
		Topic:                claims.TopicPerformance,
		SourceText:           "Jake Murray took a knock",
		Sentiment:            claims.SentimentNeutral,
		ExtractionConfidence: 0.9,
		Mentions: []claims.Mention{{
			Type:    claims.MentionPlayerName,
			RawText: "Jake Murray",
			Status:  claims.MentionPending,
		}},
	}})
	if err != nil {
		t.Fatalf("store claims: %v", err)
	}
	prior := stored[0]
	prior.Status = claims.StatusResolving
	if err := st.UpdateClaim(ctx, &prior); err != nil {
		t.Fatalf("move to resolving: %v", err)
	}
	prior.Status = claims.StatusResolved
	prior.Mentions[0].Status = claims.MentionAutoResolved
	prior.Mentions[0].ResolvedID = "p-murray"
	prior.Mentions[0].ResolvedName = "Jake Murray"
	prior.Mentions[0].Score = 1
	prior.ResolutionConfidence = 1
	if err := st.UpdateClaim(ctx, &prior); err != nil {
		t.Fatalf("move to resolved: %v", err)
	}

	roster, err := r.LoadRoster(ctx, "org-1", "coach-1")
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	claim := playerClaim("Jake")
	status, err := r.ResolveClaim(ctx, roster, claim)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if status != claims.StatusResolved {
		t.Fatalf("status = %s", status)
	}
	if claim.Mentions[0].ResolvedID != "p-murray" {
		t.Fatalf("resolved id = %s", claim.Mentions[0].ResolvedID)
	}
}

func TestApplyChoice(t *testing.T) {
	claim := playerClaim("Jake")
	claim.Mentions[0].Status = claims.MentionNeedsDisambiguation
	claim.Mentions[0].Candidates = []claims.Candidate{
		{ID: "p-murphy", Name: "Jake Murphy", Score: 1},
		{ID: "p-murray", Name: "Jake Murray", Score: 1},
	}

	status, err := resolver.ApplyChoice(claim, 0, claims.Candidate{ID: "p-murphy", Name: "Jake Murphy"})
	if err != nil {
		t.Fatalf("apply choice: %v", err)
	}
	if status != claims.StatusResolved {
		t.Fatalf("status = %s", status)
	}
	mention := claim.Mentions[0]
	if mention.Status != claims.MentionManuallyResolved || mention.ResolvedID != "p-murphy" {
		t.Fatalf("mention = %+v", mention)
	}
	if len(mention.Candidates) != 0 {
		t.Fatalf("candidates should be cleared, got %+v", mention.Candidates)
	}
}

func TestApplyChoiceRejectsWrongState(t *testing.T) {
	claim := playerClaim("Liam")
	if _, err := resolver.ApplyChoice(claim, 0, claims.Candidate{ID: "p-liam"}); err == nil {
		t.Fatal("expected error for mention not awaiting disambiguation")
	}
	if _, err := resolver.ApplyChoice(claim, 5, claims.Candidate{ID: "p-liam"}); err == nil {
		t.Fatal("expected error for out of range index")
	}
}
