package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"sideline/internal/claims"
	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/services/extract"
	"sideline/internal/store"
)

// ClaimExtractor breaks a transcript into claims. *extract.Client
// satisfies it.
type ClaimExtractor interface {
	ExtractClaims(ctx context.Context, req extract.Request) ([]claims.Claim, error)
}

// ExtractionHandler asks the model for claims and stores the batch.
type ExtractionHandler struct {
	store  *store.Store
	client ClaimExtractor
	model  string
	logger *slog.Logger
}

func NewExtractionHandler(st *store.Store, client ClaimExtractor, model string) *ExtractionHandler {
	return &ExtractionHandler{store: st, client: client, model: model, logger: logging.NewNop()}
}

func (h *ExtractionHandler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger
	}
}

func (h *ExtractionHandler) Prepare(ctx context.Context, artifact *store.Artifact) error {
	if strings.TrimSpace(artifact.TranscriptText) == "" {
		return services.Wrap(services.ErrValidation, "extraction", "prepare", "artifact has no transcript", nil)
	}
	return nil
}

func (h *ExtractionHandler) Execute(ctx context.Context, artifact *store.Artifact) (Metadata, error) {
	players, err := h.store.PlayersByOrganization(ctx, artifact.OrganizationID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "extraction", "load roster", "list players", err)
	}
	teams, err := h.store.TeamsByOrganization(ctx, artifact.OrganizationID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "extraction", "load roster", "list teams", err)
	}

	req := extract.Request{
		Transcript: artifact.TranscriptText,
		NoteTime:   artifact.CreatedAt,
	}
	for _, player := range players {
		req.PlayerNames = append(req.PlayerNames, player.FullName)
	}
	for _, team := range teams {
		req.TeamNames = append(req.TeamNames, team.Name)
	}

	extracted, err := h.client.ExtractClaims(ctx, req)
	if err != nil {
		return nil, err
	}

	stored, err := h.store.StoreClaims(ctx, artifact, extracted)
	if err != nil {
		return nil, err
	}

	topics := make([]string, 0, len(stored))
	seen := make(map[claims.Topic]struct{}, len(stored))
	for _, claim := range stored {
		if _, ok := seen[claim.Topic]; ok {
			continue
		}
		seen[claim.Topic] = struct{}{}
		topics = append(topics, string(claim.Topic))
	}
	h.logger.Info("claims extracted", logging.Int("claim_count", len(stored)))
	return Metadata{
		"model":       h.model,
		"claim_count": len(stored),
		"topics":      topics,
	}, nil
}
