package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/services/transcribe"
	"sideline/internal/store"
)

// Transcriber turns an audio file into text. *transcribe.Client
// satisfies it.
type Transcriber interface {
	TranscribeFile(ctx context.Context, audioPath string) (transcribe.Transcript, error)
}

// TranscriptionHandler fills in the artifact transcript. Voice notes go
// through the speech-to-text service; typed notes already carry their
// text and skip the network entirely.
type TranscriptionHandler struct {
	client Transcriber
	model  string
	logger *slog.Logger
}

func NewTranscriptionHandler(client Transcriber, model string) *TranscriptionHandler {
	return &TranscriptionHandler{client: client, model: model, logger: logging.NewNop()}
}

func (h *TranscriptionHandler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger
	}
}

func (h *TranscriptionHandler) Prepare(ctx context.Context, artifact *store.Artifact) error {
	switch artifact.NoteType {
	case store.NoteVoice:
		if strings.TrimSpace(artifact.AudioPath) == "" {
			return services.Wrap(services.ErrValidation, "transcription", "prepare", "voice note has no audio path", nil)
		}
	case store.NoteText:
		if strings.TrimSpace(artifact.RawText) == "" {
			return services.Wrap(services.ErrValidation, "transcription", "prepare", "text note has no content", nil)
		}
	default:
		return services.Wrap(services.ErrValidation, "transcription", "prepare", "unknown note type", nil)
	}
	return nil
}

func (h *TranscriptionHandler) Execute(ctx context.Context, artifact *store.Artifact) (Metadata, error) {
	if artifact.NoteType == store.NoteText {
		artifact.TranscriptText = strings.TrimSpace(artifact.RawText)
		artifact.TranscriptConfidence = 1
		return Metadata{
			"confidence":       1.0,
			"transcript_chars": len(artifact.TranscriptText),
		}, nil
	}

	transcript, err := h.client.TranscribeFile(ctx, artifact.AudioPath)
	if err != nil {
		return nil, err
	}
	artifact.TranscriptText = transcript.Text
	artifact.TranscriptConfidence = transcript.Confidence
	h.logger.Debug("transcript received",
		logging.Int("transcript_chars", len(transcript.Text)),
		logging.Float64("confidence", transcript.Confidence),
	)
	return Metadata{
		"model":            h.model,
		"confidence":       transcript.Confidence,
		"transcript_chars": len(transcript.Text),
	}, nil
}
