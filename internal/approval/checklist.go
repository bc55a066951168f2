package approval

import (
	"fmt"
	"strings"

	"sideline/internal/claims"
	"sideline/internal/services"
)

// Injury confirmation checklist keys. The client renders these; the
// server re-validates them on confirm so a stale client cannot skip one.
const (
	ChecklistSeverity = "severity_recorded"
	ChecklistPlayer   = "player_identified"
	ChecklistFollowUp = "follow_up_noted"
)

// ChecklistItem is one confirmation step for an injury summary.
type ChecklistItem struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Satisfied bool   `json:"satisfied"`
}

// InjuryChecklist builds the confirmation checklist for an injury
// claim. Every item must be satisfied and acknowledged before the
// summary can be confirmed.
func InjuryChecklist(claim *claims.Claim) []ChecklistItem {
	player := claim.PrimaryPlayerMention()
	return []ChecklistItem{
		{
			Key:       ChecklistSeverity,
			Label:     "Severity is recorded",
			Satisfied: claim.Severity.Valid(),
		},
		{
			Key:       ChecklistPlayer,
			Label:     "The affected player is identified",
			Satisfied: player != nil && player.Resolved(),
		},
		{
			Key:       ChecklistFollowUp,
			Label:     "A follow-up action is noted",
			Satisfied: strings.TrimSpace(claim.RecommendedAction) != "",
		},
	}
}

// ValidateInjuryConfirmation checks that the claim satisfies every
// checklist item and that the caller acknowledged each one.
func ValidateInjuryConfirmation(claim *claims.Claim, acknowledged []string) error {
	if claim.Topic != claims.TopicInjury {
		return nil
	}
	acked := make(map[string]bool, len(acknowledged))
	for _, key := range acknowledged {
		acked[key] = true
	}
	for _, item := range InjuryChecklist(claim) {
		if !item.Satisfied {
			return services.Wrap(services.ErrValidation, "approval", "confirm injury",
				fmt.Sprintf("checklist item %s not satisfied", item.Key), nil)
		}
		if !acked[item.Key] {
			return services.Wrap(services.ErrValidation, "approval", "confirm injury",
				fmt.Sprintf("checklist item %s not acknowledged", item.Key), nil)
		}
	}
	return nil
}
