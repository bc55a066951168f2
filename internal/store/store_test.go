package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"sideline/internal/store"
	"sideline/internal/testsupport"
)

func TestArtifactRoundTrip(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	artifact, err := st.NewVoiceArtifact(ctx, "org-1", "coach-1", "/tmp/monday.ogg")
	if err != nil {
		t.Fatalf("new voice artifact: %v", err)
	}
	if artifact.Stage != store.StageReceived {
		t.Fatalf("stage = %s", artifact.Stage)
	}
	if artifact.ArtifactID == "" {
		t.Fatal("missing public identifier")
	}
	if artifact.NoteType != store.NoteVoice {
		t.Fatalf("note type = %s", artifact.NoteType)
	}

	fetched, err := st.GetArtifactByUUID(ctx, artifact.ArtifactID)
	if err != nil {
		t.Fatalf("get by uuid: %v", err)
	}
	if fetched == nil || fetched.ID != artifact.ID {
		t.Fatalf("fetched = %+v", fetched)
	}
}

func TestAdvanceArtifactCAS(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	artifact := testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")

	if err := st.AdvanceArtifact(ctx, artifact, store.StageReceived, store.StageTranscribing); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if artifact.Stage != store.StageTranscribing {
		t.Fatalf("stage = %s", artifact.Stage)
	}

	// A second worker holding the stale read loses the race.
	stale := *artifact
	stale.Stage = store.StageReceived
	err := st.AdvanceArtifact(ctx, &stale, store.StageReceived, store.StageTranscribing)
	if !errors.Is(err, store.ErrStageConflict) {
		t.Fatalf("expected stage conflict, got %v", err)
	}
}

func TestAdvancePersistsTranscript(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	artifact := testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")

	if err := st.AdvanceArtifact(ctx, artifact, store.StageReceived, store.StageTranscribing); err != nil {
		t.Fatalf("advance: %v", err)
	}
	artifact.TranscriptText = "Liam tweaked his hamstring"
	artifact.TranscriptConfidence = 0.94
	if err := st.AdvanceArtifact(ctx, artifact, store.StageTranscribing, store.StageTranscribed); err != nil {
		t.Fatalf("advance with transcript: %v", err)
	}

	fetched, err := st.GetArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.TranscriptText != "Liam tweaked his hamstring" {
		t.Fatalf("transcript = %q", fetched.TranscriptText)
	}
	if fetched.TranscriptConfidence != 0.94 {
		t.Fatalf("confidence = %v", fetched.TranscriptConfidence)
	}
}

func TestNextForStagesReturnsOldest(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")
	testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")

	next, err := st.NextForStages(ctx, store.StageReceived, store.StageTranscribed)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("next = %+v", next)
	}

	idle, err := st.NextForStages(ctx, store.StageDraftsGenerated)
	if err != nil {
		t.Fatalf("next idle: %v", err)
	}
	if idle != nil {
		t.Fatalf("expected nil, got %+v", idle)
	}
}

func TestRetryCountsSurviveUpdates(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	artifact := testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")

	if n := artifact.BumpRetry(store.StageTranscribing); n != 1 {
		t.Fatalf("bump = %d", n)
	}
	artifact.BumpRetry(store.StageTranscribing)
	if err := st.UpdateArtifact(ctx, artifact); err != nil {
		t.Fatalf("update: %v", err)
	}

	fetched, err := st.GetArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.RetryCount(store.StageTranscribing) != 2 {
		t.Fatalf("retry count = %d", fetched.RetryCount(store.StageTranscribing))
	}
	if fetched.RetryCount(store.StageGeneratingDrafts) != 0 {
		t.Fatal("unexpected retry count for untouched stage")
	}
}

func TestResetStuckProcessing(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	artifact := testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")

	if err := st.AdvanceArtifact(ctx, artifact, store.StageReceived, store.StageTranscribing); err != nil {
		t.Fatalf("advance: %v", err)
	}

	reset, err := st.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d", reset)
	}

	fetched, err := st.GetArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Stage != store.StageReceived {
		t.Fatalf("stage after reset = %s", fetched.Stage)
	}
}

func TestReclaimStaleProcessingHonorsHeartbeat(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	artifact := testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")

	if err := st.AdvanceArtifact(ctx, artifact, store.StageReceived, store.StageTranscribing); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := st.UpdateHeartbeat(ctx, artifact.ID); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	// Fresh heartbeat: nothing to reclaim.
	reclaimed, err := st.ReclaimStaleProcessing(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if reclaimed != 0 {
		t.Fatalf("reclaimed = %d", reclaimed)
	}

	// Cutoff in the future treats the heartbeat as expired.
	reclaimed, err = st.ReclaimStaleProcessing(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("reclaim stale: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("reclaimed = %d", reclaimed)
	}
}

func TestRetryFailedArtifacts(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	artifact := testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")

	if err := st.AdvanceArtifact(ctx, artifact, store.StageReceived, store.StageFailed); err != nil {
		t.Fatalf("fail artifact: %v", err)
	}

	retried, err := st.RetryFailedArtifacts(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried != 1 {
		t.Fatalf("retried = %d", retried)
	}

	fetched, err := st.GetArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Stage != store.StageReceived {
		t.Fatalf("stage = %s", fetched.Stage)
	}
	if fetched.ErrorMessage != "" || fetched.RetryCount(store.StageTranscribing) != 0 {
		t.Fatal("expected error and retry counters cleared")
	}
}

func TestStageCounts(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.NewVoiceArtifact(t, st, "org-1", "coach-1")
	testsupport.NewTextArtifact(t, st, "org-1", "coach-1", "great session")

	counts, err := st.StageCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[store.StageReceived] != 2 {
		t.Fatalf("received count = %d", counts[store.StageReceived])
	}
}

func TestStageEntryMapping(t *testing.T) {
	cases := map[store.Stage]store.Stage{
		store.StageTranscribing:      store.StageReceived,
		store.StageExtractingClaims:  store.StageTranscribed,
		store.StageResolvingEntities: store.StageClaimsExtracted,
		store.StageGeneratingDrafts:  store.StageEntityResolved,
		store.StageConfirming:        store.StageDraftsGenerated,
		store.StageReceived:          store.StageReceived,
	}
	for stage, want := range cases {
		if got := stage.EntryStage(); got != want {
			t.Errorf("EntryStage(%s) = %s, want %s", stage, got, want)
		}
	}
}
