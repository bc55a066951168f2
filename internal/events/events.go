package events

import (
	"fmt"
	"strings"
	"time"
)

// Stage names the pipeline phase an event belongs to.
type Stage string

const (
	StageIngestion        Stage = "ingestion"
	StageTranscription    Stage = "transcription"
	StageClaimsExtraction Stage = "claims_extraction"
	StageEntityResolution Stage = "entity_resolution"
	StageDraftGeneration  Stage = "draft_generation"
	StageConfirmation     Stage = "confirmation"
)

// Type identifies what happened.
type Type string

const (
	TypeArtifactReceived Type = "artifact_received"

	TypeTranscriptionStarted   Type = "transcription_started"
	TypeTranscriptionCompleted Type = "transcription_completed"
	TypeTranscriptionFailed    Type = "transcription_failed"

	TypeClaimsExtractionStarted   Type = "claims_extraction_started"
	TypeClaimsExtractionCompleted Type = "claims_extraction_completed"
	TypeClaimsExtractionFailed    Type = "claims_extraction_failed"

	TypeEntityResolutionStarted   Type = "entity_resolution_started"
	TypeEntityResolutionCompleted Type = "entity_resolution_completed"
	TypeEntityResolutionFailed    Type = "entity_resolution_failed"
	TypeEntityNeedsDisambiguation Type = "entity_needs_disambiguation"
	TypeEntityResolutionSkipped   Type = "entity_resolution_skipped"

	TypeDraftGenerationStarted   Type = "draft_generation_started"
	TypeDraftGenerationCompleted Type = "draft_generation_completed"
	TypeDraftGenerationFailed    Type = "draft_generation_failed"

	TypeDraftAutoApproved Type = "draft_auto_approved"
	TypeDraftHeld         Type = "draft_held"
	TypeDraftSuppressed   Type = "draft_suppressed"
	TypeDraftConfirmed    Type = "draft_confirmed"
	TypeDraftRejected     Type = "draft_rejected"
	TypeDraftRevoked      Type = "draft_revoked"

	TypeRetryInitiated Type = "retry_initiated"
	TypeRetrySucceeded Type = "retry_succeeded"
	TypeRetryFailed    Type = "retry_failed"

	TypePipelineFailed Type = "pipeline_failed"
)

// Event is one append-only audit record for an artifact.
type Event struct {
	ID             int64
	EventID        string
	Type           Type
	Stage          Stage
	ArtifactID     int64
	OrganizationID string
	CoachID        string
	DurationMS     int64
	ErrorMessage   string
	Metadata       map[string]any
	CreatedAt      time.Time
}

// ParseType validates a raw event type string.
func ParseType(value string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := registry[t]; !ok {
		return "", fmt.Errorf("unknown event type %q", value)
	}
	return t, nil
}

// StageFor returns the pipeline stage an event type is recorded under.
func StageFor(t Type) (Stage, error) {
	entry, ok := registry[t]
	if !ok {
		return "", fmt.Errorf("unknown event type %q", t)
	}
	return entry.stage, nil
}

func (t Type) Valid() bool {
	_, ok := registry[t]
	return ok
}

func (s Stage) Valid() bool {
	switch s {
	case StageIngestion, StageTranscription, StageClaimsExtraction,
		StageEntityResolution, StageDraftGeneration, StageConfirmation:
		return true
	default:
		return false
	}
}
