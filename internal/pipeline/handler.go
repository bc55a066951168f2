package pipeline

import (
	"context"
	"log/slog"

	"sideline/internal/store"
)

// Metadata is stage-result metadata recorded on the completion event.
type Metadata map[string]any

// Handler is one pipeline stage. Prepare validates the artifact and is
// persisted before Execute runs; Execute does the work and returns the
// metadata for the stage's completion event.
type Handler interface {
	Prepare(ctx context.Context, artifact *store.Artifact) error
	Execute(ctx context.Context, artifact *store.Artifact) (Metadata, error)
}

// loggerAware lets the manager hand stage handlers a context-scoped
// logger before each execution.
type loggerAware interface {
	SetLogger(logger *slog.Logger)
}
