package logging

import (
	"context"
	"log/slog"

	"sideline/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldArtifactID is the standardized structured logging key for note artifact identifiers.
	FieldArtifactID = "artifact_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldLane is the standardized structured logging key for pipeline lane names.
	FieldLane = "lane"
	// FieldClaimID is the standardized structured logging key for claim identifiers.
	FieldClaimID = "claim_id"
	// FieldCoachID is the standardized structured logging key for coach identifiers.
	FieldCoachID = "coach_id"
	// FieldOrganizationID is the standardized structured logging key for organization identifiers.
	FieldOrganizationID = "organization_id"
	// FieldEventType is the standardized structured logging key for pipeline event types.
	FieldEventType = "event_type"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.ArtifactIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldArtifactID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if lane, ok := services.LaneFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLane, lane))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
