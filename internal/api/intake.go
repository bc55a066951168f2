package api

import (
	"context"
	"strings"

	"sideline/internal/events"
	"sideline/internal/services"
	"sideline/internal/store"
)

// Intake accepts new notes and records the receipt in the audit trail. Both
// the CLI submit path and the HTTP surface go through here so every artifact
// starts with an artifact_received event.
type Intake struct {
	store *store.Store
}

// NewIntake constructs an Intake over the store.
func NewIntake(st *store.Store) *Intake {
	if st == nil {
		return nil
	}
	return &Intake{store: st}
}

// SubmitText registers a typed note for processing.
func (i *Intake) SubmitText(ctx context.Context, orgID, coachID, text, source string) (ArtifactView, error) {
	if err := validateIntake(orgID, coachID); err != nil {
		return ArtifactView{}, err
	}
	if strings.TrimSpace(text) == "" {
		return ArtifactView{}, services.Wrap(services.ErrValidation, "intake", "submit text", "note text is empty", nil)
	}
	artifact, err := i.store.NewTextArtifact(ctx, orgID, coachID, text)
	if err != nil {
		return ArtifactView{}, err
	}
	i.recordReceipt(ctx, artifact, source)
	return FromArtifact(artifact), nil
}

// SubmitVoice registers a voice note for transcription.
func (i *Intake) SubmitVoice(ctx context.Context, orgID, coachID, audioPath, source string) (ArtifactView, error) {
	if err := validateIntake(orgID, coachID); err != nil {
		return ArtifactView{}, err
	}
	if strings.TrimSpace(audioPath) == "" {
		return ArtifactView{}, services.Wrap(services.ErrValidation, "intake", "submit voice", "audio path is required", nil)
	}
	artifact, err := i.store.NewVoiceArtifact(ctx, orgID, coachID, audioPath)
	if err != nil {
		return ArtifactView{}, err
	}
	i.recordReceipt(ctx, artifact, source)
	return FromArtifact(artifact), nil
}

func validateIntake(orgID, coachID string) error {
	if strings.TrimSpace(orgID) == "" {
		return services.Wrap(services.ErrValidation, "intake", "submit", "organization id is required", nil)
	}
	if strings.TrimSpace(coachID) == "" {
		return services.Wrap(services.ErrValidation, "intake", "submit", "coach id is required", nil)
	}
	return nil
}

func (i *Intake) recordReceipt(ctx context.Context, artifact *store.Artifact, source string) {
	if source == "" {
		source = "cli"
	}
	_, _ = i.store.AppendEvent(ctx, events.Event{
		Type:           events.TypeArtifactReceived,
		ArtifactID:     artifact.ID,
		OrganizationID: artifact.OrganizationID,
		CoachID:        artifact.CoachID,
		Metadata: map[string]any{
			"note_type": string(artifact.NoteType),
			"source":    source,
		},
	})
}
