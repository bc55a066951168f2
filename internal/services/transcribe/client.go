// Package transcribe wraps the speech-to-text HTTP API that turns voice
// notes into transcripts.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"sideline/internal/config"
	"sideline/internal/services"
)

const (
	defaultRequestTimeout = 60 * time.Second
	defaultMaxElapsed     = 5 * time.Minute
)

// Transcript is the text a voice note produced.
type Transcript struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language,omitempty"`
}

// Client talks to an OpenAI-compatible transcription endpoint.
type Client struct {
	cfg        config.Transcription
	httpClient *http.Client
	maxElapsed time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMaxElapsed overrides how long transient failures are retried,
// useful to keep tests fast.
func WithMaxElapsed(d time.Duration) Option {
	return func(c *Client) {
		c.maxElapsed = d
	}
}

// NewClient constructs a transcription client from configuration.
func NewClient(cfg config.Transcription, opts ...Option) *Client {
	timeout := defaultRequestTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	maxElapsed := defaultMaxElapsed
	if cfg.MaxElapsedSeconds > 0 {
		maxElapsed = time.Duration(cfg.MaxElapsedSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		maxElapsed: maxElapsed,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// TranscribeFile uploads the audio file and returns its transcript.
// Server errors and timeouts are retried with exponential backoff until
// the elapsed budget runs out; client errors fail immediately.
func (c *Client) TranscribeFile(ctx context.Context, audioPath string) (Transcript, error) {
	if strings.TrimSpace(c.cfg.BaseURL) == "" {
		return Transcript{}, services.Wrap(services.ErrConfiguration, "transcribe", "request", "transcription.base_url is not set", nil)
	}
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrValidation, "transcribe", "read audio", audioPath, err)
	}

	var transcript Transcript
	operation := func() error {
		result, err := c.request(ctx, filepath.Base(audioPath), audio)
		if err != nil {
			return err
		}
		transcript = result
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return Transcript{}, err
	}
	return transcript, nil
}

func (c *Client) request(ctx context.Context, filename string, audio []byte) (Transcript, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return Transcript{}, backoff.Permanent(services.Wrap(services.ErrExternalService, "transcribe", "build request", "", err))
	}
	if _, err := part.Write(audio); err != nil {
		return Transcript{}, backoff.Permanent(services.Wrap(services.ErrExternalService, "transcribe", "build request", "", err))
	}
	if err := writer.WriteField("model", c.cfg.Model); err != nil {
		return Transcript{}, backoff.Permanent(services.Wrap(services.ErrExternalService, "transcribe", "build request", "", err))
	}
	if err := writer.Close(); err != nil {
		return Transcript{}, backoff.Permanent(services.Wrap(services.ErrExternalService, "transcribe", "build request", "", err))
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return Transcript{}, backoff.Permanent(services.Wrap(services.ErrExternalService, "transcribe", "build request", "", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrExternalService, "transcribe", "request", "", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrExternalService, "transcribe", "read response", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		failure := services.Wrap(services.ErrExternalService, "transcribe", "request",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
		if retryableStatus(resp.StatusCode) {
			return Transcript{}, failure
		}
		return Transcript{}, backoff.Permanent(failure)
	}

	var transcript Transcript
	if err := json.Unmarshal(payload, &transcript); err != nil {
		return Transcript{}, backoff.Permanent(services.Wrap(services.ErrExternalService, "transcribe", "decode response", "", err))
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return Transcript{}, backoff.Permanent(services.Wrap(services.ErrExternalService, "transcribe", "decode response", "empty transcript", nil))
	}
	// Servers that do not report confidence are taken at face value.
	if transcript.Confidence == 0 {
		transcript.Confidence = 1
	}
	return transcript, nil
}

// retryableStatus reports whether an HTTP status is worth another
// attempt. Rate limiting and request timeouts are transient; other 4xx
// responses are not.
func retryableStatus(code int) bool {
	if code >= 500 {
		return true
	}
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}
