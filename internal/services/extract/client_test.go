package extract_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sideline/internal/claims"
	"sideline/internal/config"
	"sideline/internal/services/extract"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T, serverURL string) *extract.Client {
	t.Helper()
	return extract.NewClient(config.LLM{
		APIKey:     "test-key",
		BaseURL:    serverURL + "/v1",
		Model:      "gpt-4o-mini",
		MaxRetries: 1,
	})
}

const injuryContent = `{"claims":[{
	"topic": "injury",
	"source_text": "Liam pulled his hamstring in the last drill",
	"title": "Hamstring strain",
	"description": "Pulled up during sprint drills.",
	"recommended_action": "Rest and re-check Thursday",
	"time_reference": "yesterday",
	"severity": "moderate",
	"sentiment": "concerned",
	"confidence": 0.92,
	"mentions": [{"type": "player_name", "raw_text": "Liam", "position": 0}]
}]}`

func TestExtractClaims(t *testing.T) {
	server := completionServer(t, injuryContent)
	client := newClient(t, server.URL)

	noteTime := time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC)
	extracted, err := client.ExtractClaims(context.Background(), extract.Request{
		Transcript:  "Liam pulled his hamstring in the last drill",
		NoteTime:    noteTime,
		PlayerNames: []string{"Liam O'Brien"},
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(extracted) != 1 {
		t.Fatalf("claims = %d", len(extracted))
	}
	claim := extracted[0]
	if claim.Topic != claims.TopicInjury {
		t.Fatalf("topic = %s", claim.Topic)
	}
	if claim.Severity != claims.SeverityModerate {
		t.Fatalf("severity = %s", claim.Severity)
	}
	if claim.ExtractionConfidence != 0.92 {
		t.Fatalf("confidence = %v", claim.ExtractionConfidence)
	}
	if len(claim.Mentions) != 1 || claim.Mentions[0].Status != claims.MentionPending {
		t.Fatalf("mentions = %+v", claim.Mentions)
	}
	if claim.OccurredAt == nil {
		t.Fatal("time reference was not resolved")
	}
	if got := claim.OccurredAt.Day(); got != 9 {
		t.Fatalf("occurred day = %d, want 9", got)
	}
}

func TestExtractDropsInventedVocabulary(t *testing.T) {
	content := `{"claims":[
		{"topic": "vibes", "source_text": "good vibes", "confidence": 0.9},
		{"topic": "performance", "source_text": "Emma finished every run", "sentiment": "positive", "confidence": 0.8,
		 "mentions": [{"type": "player_name", "raw_text": "Emma", "position": 0}, {"type": "weather", "raw_text": "rain"}]}
	]}`
	server := completionServer(t, content)
	client := newClient(t, server.URL)

	extracted, err := client.ExtractClaims(context.Background(), extract.Request{Transcript: "note"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(extracted) != 1 {
		t.Fatalf("claims = %d", len(extracted))
	}
	if extracted[0].Topic != claims.TopicPerformance {
		t.Fatalf("topic = %s", extracted[0].Topic)
	}
	if len(extracted[0].Mentions) != 1 {
		t.Fatalf("mentions = %+v", extracted[0].Mentions)
	}
}

func TestExtractHandlesFencedPayload(t *testing.T) {
	fenced := "```json\n" + injuryContent + "\n```"
	server := completionServer(t, fenced)
	client := newClient(t, server.URL)

	extracted, err := client.ExtractClaims(context.Background(), extract.Request{Transcript: "note"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(extracted) != 1 {
		t.Fatalf("claims = %d", len(extracted))
	}
}

func TestExtractRejectsEmptyTranscript(t *testing.T) {
	server := completionServer(t, injuryContent)
	client := newClient(t, server.URL)
	if _, err := client.ExtractClaims(context.Background(), extract.Request{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDecodeModelJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"plain object", `{"claims":[]}`, false},
		{"fenced", "```json\n{\"claims\":[]}\n```", false},
		{"prose wrapped", `Here is the breakdown: {"claims":[]} Hope that helps!`, false},
		{"empty", "   ", true},
		{"no json", "I could not process that.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var parsed struct {
				Claims []any `json:"claims"`
			}
			err := extract.DecodeModelJSON(tt.content, &parsed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}
