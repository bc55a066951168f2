package events

import "fmt"

// registryEntry binds an event type to its stage and the metadata keys it is
// allowed to carry. Metadata outside the schema is rejected at append time
// so the audit trail stays queryable.
type registryEntry struct {
	stage Stage
	keys  map[string]struct{}
}

func keys(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

var registry = map[Type]registryEntry{
	TypeArtifactReceived: {StageIngestion, keys("note_type", "source")},

	TypeTranscriptionStarted:   {StageTranscription, keys("model")},
	TypeTranscriptionCompleted: {StageTranscription, keys("model", "confidence", "transcript_chars", "audio_seconds")},
	TypeTranscriptionFailed:    {StageTranscription, keys("model", "attempt")},

	TypeClaimsExtractionStarted:   {StageClaimsExtraction, keys("model")},
	TypeClaimsExtractionCompleted: {StageClaimsExtraction, keys("model", "claim_count", "topics")},
	TypeClaimsExtractionFailed:    {StageClaimsExtraction, keys("model", "attempt")},

	TypeEntityResolutionStarted:   {StageEntityResolution, keys("claim_count")},
	TypeEntityResolutionCompleted: {StageEntityResolution, keys("resolved", "ambiguous", "unresolved")},
	TypeEntityResolutionFailed:    {StageEntityResolution, keys("attempt")},
	TypeEntityNeedsDisambiguation: {StageEntityResolution, keys("claim_id", "mention", "candidate_count")},
	TypeEntityResolutionSkipped:   {StageEntityResolution, keys("reason")},

	TypeDraftGenerationStarted:   {StageDraftGeneration, keys("claim_count")},
	TypeDraftGenerationCompleted: {StageDraftGeneration, keys("draft_count")},
	TypeDraftGenerationFailed:    {StageDraftGeneration, keys("attempt")},

	TypeDraftAutoApproved: {StageConfirmation, keys("summary_id", "confidence", "trust_level", "revoke_deadline")},
	TypeDraftHeld:         {StageConfirmation, keys("summary_id", "confidence", "trust_level", "reason")},
	TypeDraftSuppressed:   {StageConfirmation, keys("summary_id", "confidence", "reason")},
	TypeDraftConfirmed:    {StageConfirmation, keys("summary_id", "actor")},
	TypeDraftRejected:     {StageConfirmation, keys("summary_id", "actor", "reason")},
	TypeDraftRevoked:      {StageConfirmation, keys("summary_id", "actor", "reason")},

	TypeRetryInitiated: {StageIngestion, keys("stage", "attempt", "limit")},
	TypeRetrySucceeded: {StageIngestion, keys("stage", "attempt")},
	TypeRetryFailed:    {StageIngestion, keys("stage", "attempt")},

	TypePipelineFailed: {StageIngestion, keys("stage", "attempts")},
}

// Validate checks that an event carries a known type and only schema-listed
// metadata keys. Retry events are stamped with the stage they retried, so
// their stage field may differ from the registry default.
func Validate(event Event) error {
	entry, ok := registry[event.Type]
	if !ok {
		return fmt.Errorf("unknown event type %q", event.Type)
	}
	if event.Stage != "" && !event.Stage.Valid() {
		return fmt.Errorf("unknown event stage %q", event.Stage)
	}
	for key := range event.Metadata {
		if _, ok := entry.keys[key]; !ok {
			return fmt.Errorf("event %s: metadata key %q not in schema", event.Type, key)
		}
	}
	return nil
}

// Normalize fills the stage from the registry when the caller left it empty.
func Normalize(event *Event) error {
	if err := Validate(*event); err != nil {
		return err
	}
	if event.Stage == "" {
		event.Stage = registry[event.Type].stage
	}
	return nil
}
