package claims

import (
	"fmt"
	"strings"
)

// Validate checks extractor output before it is persisted. The extractor is
// an LLM; nothing it produces is trusted until it passes here.
func (c *Claim) Validate() error {
	if !c.Topic.Valid() {
		return fmt.Errorf("claim topic %q is not recognized", c.Topic)
	}
	if strings.TrimSpace(c.SourceText) == "" {
		return fmt.Errorf("claim source text is empty")
	}
	if c.ExtractionConfidence < 0 || c.ExtractionConfidence > 1 {
		return fmt.Errorf("extraction confidence %v out of range [0, 1]", c.ExtractionConfidence)
	}
	if c.Severity != "" && !c.Severity.Valid() {
		return fmt.Errorf("severity %q is not recognized", c.Severity)
	}
	if c.Sentiment != "" && !c.Sentiment.Valid() {
		return fmt.Errorf("sentiment %q is not recognized", c.Sentiment)
	}
	if c.Topic == TopicInjury && c.Severity == "" {
		return fmt.Errorf("injury claim is missing a severity")
	}
	if c.SkillRating != 0 {
		if c.Topic != TopicSkillRating {
			return fmt.Errorf("skill rating supplied for topic %q", c.Topic)
		}
		if c.SkillRating < 1 || c.SkillRating > 5 {
			return fmt.Errorf("skill rating %d out of range [1, 5]", c.SkillRating)
		}
		if strings.TrimSpace(c.SkillName) == "" {
			return fmt.Errorf("skill rating is missing a skill name")
		}
	}
	for i, mention := range c.Mentions {
		if err := validateMention(mention); err != nil {
			return fmt.Errorf("mention %d: %w", i, err)
		}
	}
	return nil
}

func validateMention(m Mention) error {
	if !m.Type.Valid() {
		return fmt.Errorf("type %q is not recognized", m.Type)
	}
	if strings.TrimSpace(m.RawText) == "" {
		return fmt.Errorf("raw text is empty")
	}
	if m.Position < 0 {
		return fmt.Errorf("position %d is negative", m.Position)
	}
	return nil
}

// ValidateBatch checks a whole extraction result. One bad claim rejects the
// batch so the artifact can be retried or failed as a unit.
func ValidateBatch(batch []Claim) error {
	for i := range batch {
		if err := batch[i].Validate(); err != nil {
			return fmt.Errorf("claim %d: %w", i, err)
		}
	}
	return nil
}
