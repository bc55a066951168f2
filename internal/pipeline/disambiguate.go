package pipeline

import (
	"context"
	"fmt"

	"sideline/internal/claims"
	"sideline/internal/resolver"
	"sideline/internal/services"
	"sideline/internal/store"
)

// ResolveAmbiguity applies a coach's manual pick for one ambiguous
// mention. The choice is remembered as an alias so the shorthand
// resolves automatically next time, and the artifact is rewound to
// draft generation when the claim became fully resolved after its
// artifact had already moved on.
func ResolveAmbiguity(ctx context.Context, st *store.Store, claimID string, mentionIndex int, candidateID string) (*claims.Claim, error) {
	claim, err := st.GetClaimByUUID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, services.Wrap(services.ErrNotFound, "disambiguate", "load claim", claimID, nil)
	}
	if claim.Status != claims.StatusNeedsDisambiguation {
		return nil, services.Wrap(services.ErrValidation, "disambiguate", "load claim",
			fmt.Sprintf("claim is %s, not awaiting disambiguation", claim.Status), nil)
	}
	if mentionIndex < 0 || mentionIndex >= len(claim.Mentions) {
		return nil, services.Wrap(services.ErrValidation, "disambiguate", "pick candidate",
			fmt.Sprintf("mention index %d out of range", mentionIndex), nil)
	}

	mention := claim.Mentions[mentionIndex]
	var choice *claims.Candidate
	for i := range mention.Candidates {
		if mention.Candidates[i].ID == candidateID {
			choice = &mention.Candidates[i]
			break
		}
	}
	if choice == nil {
		return nil, services.Wrap(services.ErrValidation, "disambiguate", "pick candidate",
			fmt.Sprintf("candidate %s is not offered for mention %q", candidateID, mention.RawText), nil)
	}

	// The manual pick carries the claim back through resolution.
	claim.Status = claims.StatusResolving
	if err := st.UpdateClaim(ctx, claim); err != nil {
		return nil, err
	}

	next, err := resolver.ApplyChoice(claim, mentionIndex, *choice)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "disambiguate", "apply choice", "", err)
	}
	claim.Status = next
	if err := st.UpdateClaim(ctx, claim); err != nil {
		return nil, err
	}

	if mention.Type == claims.MentionPlayerName {
		if err := st.RememberAlias(ctx, claim.CoachID, claim.OrganizationID, mention.RawText, choice.ID, choice.Name); err != nil {
			return nil, err
		}
	}

	if next == claims.StatusResolved {
		if err := rewindForDrafts(ctx, st, claim.ArtifactID); err != nil {
			return nil, err
		}
	}
	return claim, nil
}

// rewindForDrafts sends an artifact back to draft generation when a
// late disambiguation completed one of its claims.
func rewindForDrafts(ctx context.Context, st *store.Store, artifactID int64) error {
	artifact, err := st.GetArtifact(ctx, artifactID)
	if err != nil {
		return err
	}
	if artifact == nil {
		return services.Wrap(services.ErrNotFound, "disambiguate", "load artifact", "", nil)
	}
	switch artifact.Stage {
	case store.StageDraftsGenerated, store.StageConfirming, store.StageConfirmed:
		artifact.Stage = store.StageEntityResolved
		return st.UpdateArtifact(ctx, artifact)
	default:
		return nil
	}
}
