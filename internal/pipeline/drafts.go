package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sideline/internal/claims"
	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/store"
)

// DraftsHandler turns fully resolved claims into parent-facing draft
// summaries. Claims still waiting on a disambiguation are left alone;
// they re-enter draft generation after the coach picks a candidate.
type DraftsHandler struct {
	store  *store.Store
	logger *slog.Logger
}

func NewDraftsHandler(st *store.Store) *DraftsHandler {
	return &DraftsHandler{store: st, logger: logging.NewNop()}
}

func (h *DraftsHandler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger
	}
}

func (h *DraftsHandler) Prepare(ctx context.Context, artifact *store.Artifact) error {
	return nil
}

func (h *DraftsHandler) Execute(ctx context.Context, artifact *store.Artifact) (Metadata, error) {
	batch, err := h.store.ClaimsByArtifact(ctx, artifact.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "drafts", "load claims", "", err)
	}

	drafts := make([]store.Summary, 0, len(batch))
	sources := make([]*claims.Claim, 0, len(batch))
	for _, claim := range batch {
		if claim.Status != claims.StatusResolved {
			continue
		}
		player := claim.PrimaryPlayerMention()
		if player == nil || !player.Resolved() {
			// Team-level claims produce no parent draft. They are still
			// folded into the record below.
			sources = append(sources, claim)
			continue
		}
		drafts = append(drafts, store.Summary{
			ClaimID:          claim.ID,
			ArtifactID:       artifact.ID,
			OrganizationID:   artifact.OrganizationID,
			CoachID:          artifact.CoachID,
			PlayerIdentityID: player.ResolvedID,
			PlayerName:       player.ResolvedName,
			Topic:            string(claim.Topic),
			Content:          renderDraft(claim, player),
			Confidence:       claim.OverallConfidence(),
		})
		sources = append(sources, claim)
	}

	if len(drafts) > 0 {
		if _, err := h.store.InsertSummaries(ctx, drafts); err != nil {
			return nil, services.Wrap(services.ErrTransient, "drafts", "insert summaries", "", err)
		}
	}
	for _, claim := range sources {
		claim.Status = claims.StatusMerged
		if err := h.store.UpdateClaim(ctx, claim); err != nil {
			return nil, services.Wrap(services.ErrTransient, "drafts", "merge claim", claim.ClaimID, err)
		}
	}

	h.logger.Info("drafts generated", logging.Int("draft_count", len(drafts)))
	return Metadata{"draft_count": len(drafts)}, nil
}

// renderDraft produces the parent-facing text for one claim. The tone
// stays factual; auto-send decisions happen later, so the draft must
// read correctly whether a human edits it or not.
func renderDraft(claim *claims.Claim, player *claims.Mention) string {
	var b strings.Builder
	b.WriteString("Update on ")
	b.WriteString(player.ResolvedName)

	if title := strings.TrimSpace(claim.Title); title != "" {
		b.WriteString(": ")
		b.WriteString(title)
	}
	b.WriteString(".")

	if desc := strings.TrimSpace(claim.Description); desc != "" {
		b.WriteString(" ")
		b.WriteString(desc)
		if !strings.HasSuffix(desc, ".") {
			b.WriteString(".")
		}
	}
	if claim.Topic == claims.TopicSkillRating && claim.SkillName != "" && claim.SkillRating > 0 {
		b.WriteString(" ")
		b.WriteString(player.ResolvedName)
		b.WriteString(" is now rated ")
		b.WriteString(fmt.Sprintf("%d out of 5", claim.SkillRating))
		b.WriteString(" at ")
		b.WriteString(claim.SkillName)
		b.WriteString(".")
	}
	if action := strings.TrimSpace(claim.RecommendedAction); action != "" {
		b.WriteString(" Next step: ")
		b.WriteString(action)
		if !strings.HasSuffix(action, ".") {
			b.WriteString(".")
		}
	}
	if claim.OccurredAt != nil {
		b.WriteString(" (")
		b.WriteString(claim.OccurredAt.Format("Monday, Jan 2"))
		b.WriteString(")")
	}
	return b.String()
}
