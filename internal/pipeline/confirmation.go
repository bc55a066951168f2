package pipeline

import (
	"context"
	"log/slog"
	"time"

	"sideline/internal/approval"
	"sideline/internal/claims"
	"sideline/internal/events"
	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/store"
)

// ConfirmationHandler gates pending draft summaries through the
// approval policy: auto-approve, hold for the coach, or suppress.
type ConfirmationHandler struct {
	store  *store.Store
	policy *approval.Policy
	logger *slog.Logger
}

func NewConfirmationHandler(st *store.Store, policy *approval.Policy) *ConfirmationHandler {
	return &ConfirmationHandler{store: st, policy: policy, logger: logging.NewNop()}
}

func (h *ConfirmationHandler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger
	}
}

func (h *ConfirmationHandler) Prepare(ctx context.Context, artifact *store.Artifact) error {
	return nil
}

func (h *ConfirmationHandler) Execute(ctx context.Context, artifact *store.Artifact) (Metadata, error) {
	summaries, err := h.store.SummariesByArtifact(ctx, artifact.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "confirmation", "load summaries", "", err)
	}

	history, err := h.store.TrustFeedbackForCoach(ctx, artifact.CoachID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "confirmation", "load trust history", "", err)
	}
	trust := approval.ReduceFeedback(history)

	autoSent, held, suppressed := 0, 0, 0
	for _, summary := range summaries {
		if summary.Status != store.SummaryPending {
			continue
		}
		decision := h.policy.Decide(claims.Topic(summary.Topic), summary.Confidence, trust)
		if err := h.store.ApplyDecision(ctx, summary.SummaryID, decision.Status(), string(decision.Tier), decision.Reason, decision.RevokeDeadline); err != nil {
			return nil, services.Wrap(services.ErrTransient, "confirmation", "apply decision", summary.SummaryID, err)
		}
		h.auditDecision(ctx, artifact, summary, decision)
		switch decision.Tier {
		case approval.TierAutoSend:
			autoSent++
		case approval.TierBlocked:
			suppressed++
		default:
			held++
		}
	}

	h.logger.Info("confirmation decisions applied",
		logging.Int("auto_sent", autoSent),
		logging.Int("held", held),
		logging.Int("suppressed", suppressed),
		logging.Int("trust_level", int(trust)),
	)
	return nil, nil
}

func (h *ConfirmationHandler) auditDecision(ctx context.Context, artifact *store.Artifact, summary *store.Summary, decision approval.Decision) {
	event := events.Event{
		ArtifactID:     artifact.ID,
		OrganizationID: artifact.OrganizationID,
		CoachID:        artifact.CoachID,
	}
	switch decision.Tier {
	case approval.TierAutoSend:
		event.Type = events.TypeDraftAutoApproved
		event.Metadata = map[string]any{
			"summary_id":  summary.SummaryID,
			"confidence":  summary.Confidence,
			"trust_level": int(decision.TrustLevel),
		}
		if decision.RevokeDeadline != nil {
			event.Metadata["revoke_deadline"] = decision.RevokeDeadline.Format(time.RFC3339)
		}
	case approval.TierBlocked:
		event.Type = events.TypeDraftSuppressed
		event.Metadata = map[string]any{
			"summary_id": summary.SummaryID,
			"confidence": summary.Confidence,
			"reason":     decision.Reason,
		}
	default:
		event.Type = events.TypeDraftHeld
		event.Metadata = map[string]any{
			"summary_id":  summary.SummaryID,
			"confidence":  summary.Confidence,
			"trust_level": int(decision.TrustLevel),
			"reason":      decision.Reason,
		}
	}
	if _, err := h.store.AppendEvent(ctx, event); err != nil {
		h.logger.Error("failed to append decision event", logging.Error(err))
	}
}
