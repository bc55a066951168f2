package pipeline

import (
	"context"
	"log/slog"

	"sideline/internal/claims"
	"sideline/internal/events"
	"sideline/internal/flags"
	"sideline/internal/logging"
	"sideline/internal/resolver"
	"sideline/internal/services"
	"sideline/internal/store"
)

// ResolutionHandler matches claim mentions against the roster. Two flags
// gate it: pipeline_v2 routes legacy scopes past resolution entirely, and
// entity_resolution acts as a kill switch. Either way claims pass through
// unresolved and the skip is audited.
type ResolutionHandler struct {
	store    *store.Store
	resolver *resolver.Resolver
	flags    *flags.Evaluator
	logger   *slog.Logger
}

func NewResolutionHandler(st *store.Store, r *resolver.Resolver, evaluator *flags.Evaluator) *ResolutionHandler {
	return &ResolutionHandler{store: st, resolver: r, flags: evaluator, logger: logging.NewNop()}
}

func (h *ResolutionHandler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger
	}
}

func (h *ResolutionHandler) Prepare(ctx context.Context, artifact *store.Artifact) error {
	return nil
}

func (h *ResolutionHandler) Execute(ctx context.Context, artifact *store.Artifact) (Metadata, error) {
	current, err := h.flags.IsEnabledWithDefault(ctx, flags.KeyPipelineV2, artifact.OrganizationID, artifact.CoachID, true)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "resolution", "flag lookup", "", err)
	}
	if !current {
		return h.skipResolution(ctx, artifact, "pipeline_v2 flag routed claims to manual handling")
	}
	enabled, err := h.flags.IsEnabledWithDefault(ctx, flags.KeyEntityResolution, artifact.OrganizationID, artifact.CoachID, true)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "resolution", "flag lookup", "", err)
	}
	if !enabled {
		return h.skipResolution(ctx, artifact, "entity_resolution flag disabled")
	}

	batch, err := h.store.ClaimsByArtifact(ctx, artifact.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "resolution", "load claims", "", err)
	}

	roster, err := h.resolver.LoadRoster(ctx, artifact.OrganizationID, artifact.CoachID)
	if err != nil {
		return nil, err
	}

	resolved, ambiguous, unresolved := 0, 0, 0
	for _, claim := range batch {
		if claim.Status != claims.StatusExtracted {
			continue
		}
		claim.Status = claims.StatusResolving
		if err := h.store.UpdateClaim(ctx, claim); err != nil {
			return nil, services.Wrap(services.ErrTransient, "resolution", "update claim", claim.ClaimID, err)
		}

		next, err := h.resolver.ResolveClaim(ctx, roster, claim)
		if err != nil {
			return nil, err
		}
		claim.Status = next
		if err := h.store.UpdateClaim(ctx, claim); err != nil {
			return nil, services.Wrap(services.ErrTransient, "resolution", "update claim", claim.ClaimID, err)
		}

		switch next {
		case claims.StatusNeedsDisambiguation:
			ambiguous++
			h.auditAmbiguity(ctx, artifact, claim)
		default:
			if claim.FullyResolved() {
				resolved++
			} else {
				unresolved++
			}
		}
	}

	h.logger.Info("entity resolution finished",
		logging.Int("resolved", resolved),
		logging.Int("ambiguous", ambiguous),
		logging.Int("unresolved", unresolved),
	)
	return Metadata{"resolved": resolved, "ambiguous": ambiguous, "unresolved": unresolved}, nil
}

func (h *ResolutionHandler) skipResolution(ctx context.Context, artifact *store.Artifact, reason string) (Metadata, error) {
	h.logger.Info("entity resolution skipped, passing claims through", logging.String("reason", reason))
	if _, err := h.store.AppendEvent(ctx, events.Event{
		Type:           events.TypeEntityResolutionSkipped,
		ArtifactID:     artifact.ID,
		OrganizationID: artifact.OrganizationID,
		CoachID:        artifact.CoachID,
		Metadata:       map[string]any{"reason": reason},
	}); err != nil {
		h.logger.Error("failed to append skip event", logging.Error(err))
	}
	return Metadata{"resolved": 0, "ambiguous": 0, "unresolved": 0}, nil
}

func (h *ResolutionHandler) auditAmbiguity(ctx context.Context, artifact *store.Artifact, claim *claims.Claim) {
	for _, mention := range claim.Mentions {
		if mention.Status != claims.MentionNeedsDisambiguation {
			continue
		}
		if _, err := h.store.AppendEvent(ctx, events.Event{
			Type:           events.TypeEntityNeedsDisambiguation,
			ArtifactID:     artifact.ID,
			OrganizationID: artifact.OrganizationID,
			CoachID:        artifact.CoachID,
			Metadata: map[string]any{
				"claim_id":        claim.ClaimID,
				"mention":         mention.RawText,
				"candidate_count": len(mention.Candidates),
			},
		}); err != nil {
			h.logger.Error("failed to append disambiguation event", logging.Error(err))
		}
	}
}
