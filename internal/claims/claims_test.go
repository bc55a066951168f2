package claims_test

import (
	"testing"
	"time"

	"sideline/internal/claims"
)

func TestParseTopic(t *testing.T) {
	topic, err := claims.ParseTopic(" Injury ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if topic != claims.TopicInjury {
		t.Fatalf("topic = %q", topic)
	}
	if _, err := claims.ParseTopic("gossip"); err == nil {
		t.Fatal("expected error for unknown topic")
	}
}

func TestTopicsCoverEveryConstant(t *testing.T) {
	all := claims.Topics()
	if len(all) != 15 {
		t.Fatalf("expected 15 topics, got %d", len(all))
	}
	seen := map[claims.Topic]bool{}
	for _, topic := range all {
		if !topic.Valid() {
			t.Fatalf("topic %q not valid", topic)
		}
		if seen[topic] {
			t.Fatalf("duplicate topic %q", topic)
		}
		seen[topic] = true
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to claims.Status
		want     bool
	}{
		{claims.StatusExtracted, claims.StatusResolving, true},
		{claims.StatusResolving, claims.StatusResolved, true},
		{claims.StatusResolving, claims.StatusNeedsDisambiguation, true},
		{claims.StatusNeedsDisambiguation, claims.StatusResolving, true},
		{claims.StatusResolved, claims.StatusMerged, true},
		{claims.StatusResolved, claims.StatusDiscarded, true},
		{claims.StatusExtracted, claims.StatusResolved, false},
		{claims.StatusResolved, claims.StatusResolving, false},
		{claims.StatusMerged, claims.StatusResolving, false},
		{claims.StatusFailed, claims.StatusResolving, false},
		{claims.StatusDiscarded, claims.StatusExtracted, false},
	}
	for _, tc := range cases {
		if got := claims.CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range []claims.Status{claims.StatusMerged, claims.StatusDiscarded, claims.StatusFailed} {
		if !status.Terminal() {
			t.Errorf("%s should be terminal", status)
		}
	}
	for _, status := range []claims.Status{claims.StatusExtracted, claims.StatusResolving, claims.StatusResolved, claims.StatusNeedsDisambiguation} {
		if status.Terminal() {
			t.Errorf("%s should not be terminal", status)
		}
	}
}

func TestOverallConfidence(t *testing.T) {
	claim := claims.Claim{ExtractionConfidence: 0.9, ResolutionConfidence: 0.8}
	if got := claim.OverallConfidence(); got < 0.719 || got > 0.721 {
		t.Fatalf("overall confidence = %v", got)
	}
	unresolved := claims.Claim{ExtractionConfidence: 0.9}
	if got := unresolved.OverallConfidence(); got != 0 {
		t.Fatalf("unresolved overall confidence = %v", got)
	}
}

func TestFullyResolved(t *testing.T) {
	claim := claims.Claim{Mentions: []claims.Mention{
		{Type: claims.MentionPlayerName, RawText: "Liam", Status: claims.MentionAutoResolved},
		{Type: claims.MentionTeamName, RawText: "U12 Tigers", Status: claims.MentionManuallyResolved},
	}}
	if !claim.FullyResolved() {
		t.Fatal("expected fully resolved")
	}
	claim.Mentions[1].Status = claims.MentionNeedsDisambiguation
	if claim.FullyResolved() {
		t.Fatal("expected not fully resolved")
	}
	empty := claims.Claim{}
	if !empty.FullyResolved() {
		t.Fatal("claim without mentions counts as resolved")
	}
}

func TestResolveTimeReference(t *testing.T) {
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC) // a Tuesday

	got := claims.ResolveTimeReference("yesterday", base)
	if got == nil {
		t.Fatal("expected yesterday to resolve")
	}
	if got.Day() != 9 {
		t.Fatalf("yesterday resolved to %v", got)
	}

	if got := claims.ResolveTimeReference("", base); got != nil {
		t.Fatalf("empty reference resolved to %v", got)
	}
	if got := claims.ResolveTimeReference("xyzzy", base); got != nil {
		t.Fatalf("nonsense reference resolved to %v", got)
	}
}
