// Package extract turns a transcript into structured claims by asking a
// chat-completion model for a JSON breakdown of the note.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"sideline/internal/claims"
	"sideline/internal/config"
	"sideline/internal/services"
)

const defaultMaxRetries = 3

// Request carries one transcript plus the roster context that helps the
// model spot names.
type Request struct {
	Transcript string
	// NoteTime anchors relative time references like "yesterday".
	NoteTime time.Time

	PlayerNames []string
	TeamNames   []string
}

// Client extracts claims through an OpenAI-compatible chat API.
type Client struct {
	cfg config.LLM
	api *openai.Client
}

// NewClient constructs an extraction client from configuration.
func NewClient(cfg config.LLM) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.TimeoutSeconds > 0 {
		clientConfig.HTTPClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{cfg: cfg, api: openai.NewClientWithConfig(clientConfig)}
}

// payload mirrors the JSON shape the prompt asks the model for.
type payload struct {
	Claims []claimPayload `json:"claims"`
}

type claimPayload struct {
	Topic             string  `json:"topic"`
	SourceText        string  `json:"source_text"`
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	RecommendedAction string  `json:"recommended_action"`
	TimeReference     string  `json:"time_reference"`
	Severity          string  `json:"severity"`
	Sentiment         string  `json:"sentiment"`
	SkillName         string  `json:"skill_name"`
	SkillRating       int     `json:"skill_rating"`
	Confidence        float64 `json:"confidence"`

	Mentions []mentionPayload `json:"mentions"`
}

type mentionPayload struct {
	Type     string `json:"type"`
	RawText  string `json:"raw_text"`
	Position int    `json:"position"`
}

// ExtractClaims asks the model to break the transcript into claims.
// Entries the model invents outside the known topic and mention
// vocabulary are dropped rather than failing the whole note.
func (c *Client) ExtractClaims(ctx context.Context, req Request) ([]claims.Claim, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "extract", "request", "llm.api_key is not set", nil)
	}
	if strings.TrimSpace(req.Transcript) == "" {
		return nil, services.Wrap(services.ErrValidation, "extract", "request", "empty transcript", nil)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
	}

	var content string
	operation := func() error {
		resp, err := c.api.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return services.Wrap(services.ErrExternalService, "extract", "chat completion", "", err)
		}
		if len(resp.Choices) == 0 {
			return services.Wrap(services.ErrExternalService, "extract", "chat completion", "no choices returned", nil)
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	retries := defaultMaxRetries
	if c.cfg.MaxRetries > 0 {
		retries = c.cfg.MaxRetries
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries))
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}

	var parsed payload
	if err := DecodeModelJSON(content, &parsed); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "extract", "parse payload", "", err)
	}
	return convertClaims(parsed, req.NoteTime), nil
}

func convertClaims(parsed payload, noteTime time.Time) []claims.Claim {
	converted := make([]claims.Claim, 0, len(parsed.Claims))
	for _, raw := range parsed.Claims {
		topic, err := claims.ParseTopic(raw.Topic)
		if err != nil {
			continue
		}
		claim := claims.Claim{
			Topic:                topic,
			SourceText:           strings.TrimSpace(raw.SourceText),
			Title:                strings.TrimSpace(raw.Title),
			Description:          strings.TrimSpace(raw.Description),
			RecommendedAction:    strings.TrimSpace(raw.RecommendedAction),
			TimeReference:        strings.TrimSpace(raw.TimeReference),
			Severity:             claims.Severity(strings.ToLower(strings.TrimSpace(raw.Severity))),
			Sentiment:            claims.Sentiment(strings.ToLower(strings.TrimSpace(raw.Sentiment))),
			SkillName:            strings.TrimSpace(raw.SkillName),
			SkillRating:          raw.SkillRating,
			ExtractionConfidence: clamp01(raw.Confidence),
		}
		if claim.SourceText == "" {
			continue
		}
		if claim.Sentiment == "" {
			claim.Sentiment = claims.SentimentNeutral
		}
		if claim.TimeReference != "" && !noteTime.IsZero() {
			claim.OccurredAt = claims.ResolveTimeReference(claim.TimeReference, noteTime)
		}
		for _, m := range raw.Mentions {
			mentionType, err := claims.ParseMentionType(m.Type)
			if err != nil || strings.TrimSpace(m.RawText) == "" {
				continue
			}
			claim.Mentions = append(claim.Mentions, claims.Mention{
				Type:     mentionType,
				RawText:  strings.TrimSpace(m.RawText),
				Position: m.Position,
				Status:   claims.MentionPending,
			})
		}
		converted = append(converted, claim)
	}
	return converted
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func systemPrompt() string {
	topics := make([]string, 0, len(claims.Topics()))
	for _, topic := range claims.Topics() {
		topics = append(topics, string(topic))
	}
	return fmt.Sprintf(`You analyze a youth sports coach's note and break it into discrete claims.
Respond with JSON only, shaped as {"claims":[...]}.

Each claim has: topic, source_text (the exact supporting snippet), title,
description, recommended_action, time_reference (the coach's own words like
"yesterday" or "last Tuesday", empty if none), severity (minor|moderate|severe,
required for injury claims), sentiment (positive|neutral|negative|concerned),
skill_name and skill_rating 1-5 (skill_rating topic only), confidence 0-1, and
mentions.

Topics: %s.

Each mention has: type (player_name|team_name|group_reference|coach_name),
raw_text (the name exactly as said), position (rough character offset in
source_text). Phrases like "the boys" or "the whole squad" are group_reference
mentions. Never guess full names the coach did not say.`, strings.Join(topics, ", "))
}

func userPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Transcript:\n")
	b.WriteString(req.Transcript)
	if len(req.PlayerNames) > 0 {
		b.WriteString("\n\nRoster players (context only, do not invent mentions): ")
		b.WriteString(strings.Join(req.PlayerNames, ", "))
	}
	if len(req.TeamNames) > 0 {
		b.WriteString("\nTeams: ")
		b.WriteString(strings.Join(req.TeamNames, ", "))
	}
	if !req.NoteTime.IsZero() {
		b.WriteString("\nNote recorded at: ")
		b.WriteString(req.NoteTime.Format(time.RFC3339))
	}
	return b.String()
}
