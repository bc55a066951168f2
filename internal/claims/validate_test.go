package claims_test

import (
	"strings"
	"testing"

	"sideline/internal/claims"
)

func validClaim() claims.Claim {
	return claims.Claim{
		Topic:                claims.TopicPerformance,
		SourceText:           "Liam had a great first half",
		ExtractionConfidence: 0.92,
		Mentions: []claims.Mention{
			{Type: claims.MentionPlayerName, RawText: "Liam", Position: 0, Status: claims.MentionPending},
		},
	}
}

func TestValidateAcceptsWellFormedClaim(t *testing.T) {
	claim := validClaim()
	if err := claim.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*claims.Claim)
		wantMsg string
	}{
		{"unknown topic", func(c *claims.Claim) { c.Topic = "gossip" }, "not recognized"},
		{"empty source", func(c *claims.Claim) { c.SourceText = "  " }, "source text"},
		{"confidence too high", func(c *claims.Claim) { c.ExtractionConfidence = 1.2 }, "out of range"},
		{"confidence negative", func(c *claims.Claim) { c.ExtractionConfidence = -0.1 }, "out of range"},
		{"injury without severity", func(c *claims.Claim) { c.Topic = claims.TopicInjury }, "severity"},
		{"bad severity", func(c *claims.Claim) { c.Severity = "catastrophic" }, "severity"},
		{"bad sentiment", func(c *claims.Claim) { c.Sentiment = "ecstatic" }, "sentiment"},
		{"rating on wrong topic", func(c *claims.Claim) { c.SkillRating = 4 }, "skill rating"},
		{"rating out of range", func(c *claims.Claim) {
			c.Topic = claims.TopicSkillRating
			c.SkillName = "passing"
			c.SkillRating = 6
		}, "out of range"},
		{"rating without skill name", func(c *claims.Claim) {
			c.Topic = claims.TopicSkillRating
			c.SkillRating = 3
		}, "skill name"},
		{"bad mention type", func(c *claims.Claim) { c.Mentions[0].Type = "nickname" }, "mention 0"},
		{"empty mention text", func(c *claims.Claim) { c.Mentions[0].RawText = "" }, "mention 0"},
		{"negative position", func(c *claims.Claim) { c.Mentions[0].Position = -1 }, "mention 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claim := validClaim()
			tc.mutate(&claim)
			err := claim.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestValidateBatchRejectsWholeBatch(t *testing.T) {
	good := validClaim()
	bad := validClaim()
	bad.SourceText = ""
	err := claims.ValidateBatch([]claims.Claim{good, bad})
	if err == nil {
		t.Fatal("expected batch rejection")
	}
	if !strings.Contains(err.Error(), "claim 1") {
		t.Fatalf("error %q should name the offending claim", err.Error())
	}
	if err := claims.ValidateBatch([]claims.Claim{good}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
