package api

import (
	"time"

	"sideline/internal/claims"
	"sideline/internal/events"
	"sideline/internal/store"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// FromArtifact converts a store artifact into its transport form.
func FromArtifact(artifact *store.Artifact) ArtifactView {
	if artifact == nil {
		return ArtifactView{}
	}
	return ArtifactView{
		ID:                   artifact.ID,
		ArtifactID:           artifact.ArtifactID,
		OrganizationID:       artifact.OrganizationID,
		CoachID:              artifact.CoachID,
		NoteType:             string(artifact.NoteType),
		Stage:                string(artifact.Stage),
		AudioPath:            artifact.AudioPath,
		TranscriptText:       artifact.TranscriptText,
		TranscriptConfidence: artifact.TranscriptConfidence,
		ErrorMessage:         artifact.ErrorMessage,
		RetryCount:           artifact.TotalRetries(),
		CreatedAt:            formatTime(artifact.CreatedAt),
		UpdatedAt:            formatTime(artifact.UpdatedAt),
	}
}

// FromArtifacts converts a slice, preserving order.
func FromArtifacts(artifacts []*store.Artifact) []ArtifactView {
	if len(artifacts) == 0 {
		return nil
	}
	out := make([]ArtifactView, 0, len(artifacts))
	for _, artifact := range artifacts {
		out = append(out, FromArtifact(artifact))
	}
	return out
}

// FromClaim converts a claim, flattening mention candidates to a count.
func FromClaim(claim *claims.Claim) ClaimView {
	if claim == nil {
		return ClaimView{}
	}
	mentions := make([]MentionView, 0, len(claim.Mentions))
	for _, mention := range claim.Mentions {
		mentions = append(mentions, MentionView{
			Type:         string(mention.Type),
			RawText:      mention.RawText,
			Status:       string(mention.Status),
			ResolvedID:   mention.ResolvedID,
			ResolvedName: mention.ResolvedName,
			Score:        mention.Score,
			Candidates:   len(mention.Candidates),
		})
	}
	return ClaimView{
		ClaimID:              claim.ClaimID,
		Topic:                string(claim.Topic),
		Status:               string(claim.Status),
		Title:                claim.Title,
		SourceText:           claim.SourceText,
		Severity:             string(claim.Severity),
		Sentiment:            string(claim.Sentiment),
		ExtractionConfidence: claim.ExtractionConfidence,
		ResolutionConfidence: claim.ResolutionConfidence,
		OverallConfidence:    claim.OverallConfidence(),
		Mentions:             mentions,
		OccurredAt:           formatTimePtr(claim.OccurredAt),
	}
}

// FromSummary converts a draft summary.
func FromSummary(summary *store.Summary) SummaryView {
	if summary == nil {
		return SummaryView{}
	}
	return SummaryView{
		SummaryID:      summary.SummaryID,
		ClaimID:        summary.ClaimID,
		PlayerName:     summary.PlayerName,
		Topic:          summary.Topic,
		Content:        summary.Content,
		Confidence:     summary.Confidence,
		Status:         string(summary.Status),
		DecisionTier:   summary.DecisionTier,
		DecisionReason: summary.DecisionReason,
		RevokeDeadline: formatTimePtr(summary.RevokeDeadline),
		ViewedAt:       formatTimePtr(summary.ViewedAt),
		RevokedAt:      formatTimePtr(summary.RevokedAt),
		CreatedAt:      formatTime(summary.CreatedAt),
	}
}

// FromEvent converts an audit event.
func FromEvent(event *events.Event) EventView {
	if event == nil {
		return EventView{}
	}
	return EventView{
		EventID:      event.EventID,
		Type:         string(event.Type),
		Stage:        string(event.Stage),
		ArtifactID:   event.ArtifactID,
		CoachID:      event.CoachID,
		DurationMS:   event.DurationMS,
		ErrorMessage: event.ErrorMessage,
		Metadata:     event.Metadata,
		CreatedAt:    formatTime(event.CreatedAt),
	}
}

// FromEvents converts a slice, preserving order.
func FromEvents(list []*events.Event) []EventView {
	if len(list) == 0 {
		return nil
	}
	out := make([]EventView, 0, len(list))
	for _, event := range list {
		out = append(out, FromEvent(event))
	}
	return out
}

// FromFlag converts a feature flag row.
func FromFlag(flag *store.FeatureFlag) FlagView {
	if flag == nil {
		return FlagView{}
	}
	return FlagView{
		Key:       flag.Key,
		Scope:     string(flag.Scope),
		ScopeID:   flag.ScopeID,
		Enabled:   flag.Enabled,
		UpdatedBy: flag.UpdatedBy,
		Notes:     flag.Notes,
		UpdatedAt: formatTime(flag.UpdatedAt),
	}
}
