package approval

import (
	"context"
	"fmt"
	"time"

	"sideline/internal/claims"
	"sideline/internal/events"
	"sideline/internal/services"
	"sideline/internal/store"
)

// Confirm releases a held or pending summary after coach review. Injury
// summaries additionally require every checklist item to be acknowledged.
// edited marks that the coach changed the draft text before releasing it,
// which feeds the trust ledger differently from a plain approval.
func Confirm(ctx context.Context, st *store.Store, summaryID, actor string, acknowledged []string, edited bool) (*store.Summary, error) {
	summary, err := loadReviewable(ctx, st, summaryID)
	if err != nil {
		return nil, err
	}

	if summary.Topic == string(claims.TopicInjury) {
		claim, err := st.GetClaimByUUID(ctx, summary.ClaimID)
		if err != nil {
			return nil, err
		}
		if claim == nil {
			return nil, services.Wrap(services.ErrNotFound, "approval", "confirm", summary.ClaimID, nil)
		}
		if err := ValidateInjuryConfirmation(claim, acknowledged); err != nil {
			return nil, err
		}
	}

	if err := st.ApplyReview(ctx, summary.SummaryID, store.SummaryManuallyApproved, string(TierManualReview), "confirmed by coach"); err != nil {
		return nil, err
	}

	action := store.TrustApproved
	if edited {
		action = store.TrustEdited
	}
	if err := st.AppendTrustFeedback(ctx, summary.CoachID, action, summary.SummaryID); err != nil {
		return nil, err
	}
	appendDecisionEvent(ctx, st, summary, events.TypeDraftConfirmed, actor, "")
	return st.GetSummaryByUUID(ctx, summary.SummaryID)
}

// Reject discards a pending or held summary. Rejections count as
// suppressions in the trust ledger.
func Reject(ctx context.Context, st *store.Store, summaryID, actor, reason string) (*store.Summary, error) {
	summary, err := loadReviewable(ctx, st, summaryID)
	if err != nil {
		return nil, err
	}
	if err := st.ApplyReview(ctx, summary.SummaryID, store.SummaryRejected, string(TierManualReview), reason); err != nil {
		return nil, err
	}
	if err := st.AppendTrustFeedback(ctx, summary.CoachID, store.TrustSuppressed, summary.SummaryID); err != nil {
		return nil, err
	}
	appendDecisionEvent(ctx, st, summary, events.TypeDraftRejected, actor, reason)
	return st.GetSummaryByUUID(ctx, summary.SummaryID)
}

// Revoke pulls back an auto-approved summary inside its revocation window.
// The store rejects the attempt once a parent has viewed the summary or the
// deadline has passed.
func Revoke(ctx context.Context, st *store.Store, summaryID, actor, reason string) (*store.Summary, error) {
	summary, err := st.GetSummaryByUUID(ctx, summaryID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, services.Wrap(services.ErrNotFound, "approval", "revoke", summaryID, nil)
	}
	if err := st.RevokeSummary(ctx, summary.SummaryID, reason, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := st.AppendTrustFeedback(ctx, summary.CoachID, store.TrustSuppressed, summary.SummaryID); err != nil {
		return nil, err
	}
	appendDecisionEvent(ctx, st, summary, events.TypeDraftRevoked, actor, reason)
	return st.GetSummaryByUUID(ctx, summary.SummaryID)
}

func loadReviewable(ctx context.Context, st *store.Store, summaryID string) (*store.Summary, error) {
	summary, err := st.GetSummaryByUUID(ctx, summaryID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, services.Wrap(services.ErrNotFound, "approval", "review", summaryID, nil)
	}
	switch summary.Status {
	case store.SummaryPending, store.SummaryHeld:
		return summary, nil
	default:
		return nil, services.Wrap(services.ErrPolicy, "approval", "review",
			fmt.Sprintf("summary %s is %s, not awaiting review", summaryID, summary.Status), nil)
	}
}

func appendDecisionEvent(ctx context.Context, st *store.Store, summary *store.Summary, eventType events.Type, actor, reason string) {
	metadata := map[string]any{
		"summary_id": summary.SummaryID,
		"actor":      actor,
	}
	if reason != "" {
		metadata["reason"] = reason
	}
	_, _ = st.AppendEvent(ctx, events.Event{
		Type:           eventType,
		ArtifactID:     summary.ArtifactID,
		OrganizationID: summary.OrganizationID,
		CoachID:        summary.CoachID,
		Metadata:       metadata,
	})
}
