package events_test

import (
	"testing"

	"sideline/internal/events"
)

func TestParseType(t *testing.T) {
	parsed, err := events.ParseType(" Transcription_Completed ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != events.TypeTranscriptionCompleted {
		t.Fatalf("parsed = %q", parsed)
	}
	if _, err := events.ParseType("disc_inserted"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestStageFor(t *testing.T) {
	stage, err := events.StageFor(events.TypeEntityNeedsDisambiguation)
	if err != nil {
		t.Fatalf("stage for: %v", err)
	}
	if stage != events.StageEntityResolution {
		t.Fatalf("stage = %q", stage)
	}
}

func TestValidateRejectsUnknownMetadataKey(t *testing.T) {
	event := events.Event{
		Type:     events.TypeTranscriptionCompleted,
		Metadata: map[string]any{"confidence": 0.95, "weather": "sunny"},
	}
	if err := events.Validate(event); err == nil {
		t.Fatal("expected rejection of off-schema metadata")
	}
	event.Metadata = map[string]any{"confidence": 0.95, "model": "whisper-1"}
	if err := events.Validate(event); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestNormalizeFillsStage(t *testing.T) {
	event := events.Event{Type: events.TypeDraftAutoApproved}
	if err := events.Normalize(&event); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Stage != events.StageConfirmation {
		t.Fatalf("stage = %q", event.Stage)
	}
}

func TestNormalizeKeepsExplicitStage(t *testing.T) {
	// Retry events carry the stage that was retried.
	event := events.Event{
		Type:     events.TypeRetryInitiated,
		Stage:    events.StageTranscription,
		Metadata: map[string]any{"stage": "transcribing", "attempt": 1, "limit": 3},
	}
	if err := events.Normalize(&event); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if event.Stage != events.StageTranscription {
		t.Fatalf("stage = %q", event.Stage)
	}
}
