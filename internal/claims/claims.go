package claims

import (
	"fmt"
	"strings"
	"time"
)

// Topic categorizes what a claim is about.
type Topic string

const (
	TopicInjury               Topic = "injury"
	TopicSkillRating          Topic = "skill_rating"
	TopicSkillProgress        Topic = "skill_progress"
	TopicBehavior             Topic = "behavior"
	TopicPerformance          Topic = "performance"
	TopicAttendance           Topic = "attendance"
	TopicWellbeing            Topic = "wellbeing"
	TopicRecovery             Topic = "recovery"
	TopicDevelopmentMilestone Topic = "development_milestone"
	TopicPhysicalDevelopment  Topic = "physical_development"
	TopicParentCommunication  Topic = "parent_communication"
	TopicTactical             Topic = "tactical"
	TopicTeamCulture          Topic = "team_culture"
	TopicTodo                 Topic = "todo"
	TopicSessionPlan          Topic = "session_plan"
)

var topicSet = map[Topic]struct{}{
	TopicInjury:               {},
	TopicSkillRating:          {},
	TopicSkillProgress:        {},
	TopicBehavior:             {},
	TopicPerformance:          {},
	TopicAttendance:           {},
	TopicWellbeing:            {},
	TopicRecovery:             {},
	TopicDevelopmentMilestone: {},
	TopicPhysicalDevelopment:  {},
	TopicParentCommunication:  {},
	TopicTactical:             {},
	TopicTeamCulture:          {},
	TopicTodo:                 {},
	TopicSessionPlan:          {},
}

// Topics returns every known topic in a stable order.
func Topics() []Topic {
	return []Topic{
		TopicInjury,
		TopicSkillRating,
		TopicSkillProgress,
		TopicBehavior,
		TopicPerformance,
		TopicAttendance,
		TopicWellbeing,
		TopicRecovery,
		TopicDevelopmentMilestone,
		TopicPhysicalDevelopment,
		TopicParentCommunication,
		TopicTactical,
		TopicTeamCulture,
		TopicTodo,
		TopicSessionPlan,
	}
}

// ParseTopic validates and normalizes a raw topic string.
func ParseTopic(value string) (Topic, error) {
	topic := Topic(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := topicSet[topic]; !ok {
		return "", fmt.Errorf("unknown claim topic %q", value)
	}
	return topic, nil
}

func (t Topic) Valid() bool {
	_, ok := topicSet[t]
	return ok
}

// Status tracks a claim through entity resolution.
type Status string

const (
	StatusExtracted           Status = "extracted"
	StatusResolving           Status = "resolving"
	StatusResolved            Status = "resolved"
	StatusNeedsDisambiguation Status = "needs_disambiguation"
	StatusMerged              Status = "merged"
	StatusDiscarded           Status = "discarded"
	StatusFailed              Status = "failed"
)

var statusSet = map[Status]struct{}{
	StatusExtracted:           {},
	StatusResolving:           {},
	StatusResolved:            {},
	StatusNeedsDisambiguation: {},
	StatusMerged:              {},
	StatusDiscarded:           {},
	StatusFailed:              {},
}

// ParseStatus validates a raw claim status string.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[status]; !ok {
		return "", fmt.Errorf("unknown claim status %q", value)
	}
	return status, nil
}

func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether no further status change is expected.
func (s Status) Terminal() bool {
	switch s {
	case StatusMerged, StatusDiscarded, StatusFailed:
		return true
	default:
		return false
	}
}

// claimTransitions lists the allowed status edges. needs_disambiguation ->
// resolving is the only backward edge; it carries a manual disambiguation
// back through resolution.
var claimTransitions = map[Status][]Status{
	StatusExtracted:           {StatusResolving, StatusDiscarded, StatusFailed},
	StatusResolving:           {StatusResolved, StatusNeedsDisambiguation, StatusFailed},
	StatusResolved:            {StatusMerged, StatusDiscarded},
	StatusNeedsDisambiguation: {StatusResolving, StatusDiscarded},
}

// CanTransition reports whether a claim may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range claimTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Severity grades injury and wellbeing claims.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeveritySevere:
		return true
	default:
		return false
	}
}

// Sentiment captures the tone the extractor detected.
type Sentiment string

const (
	SentimentPositive  Sentiment = "positive"
	SentimentNeutral   Sentiment = "neutral"
	SentimentNegative  Sentiment = "negative"
	SentimentConcerned Sentiment = "concerned"
)

func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentConcerned:
		return true
	default:
		return false
	}
}

// Claim is one discrete assertion extracted from a coach's note.
type Claim struct {
	ID             int64
	ClaimID        string
	ArtifactID     int64
	OrganizationID string
	CoachID        string

	Topic  Topic
	Status Status

	SourceText        string
	Title             string
	Description       string
	RecommendedAction string

	TimeReference string
	OccurredAt    *time.Time

	Mentions []Mention

	Severity  Severity
	Sentiment Sentiment
	SkillName string
	// SkillRating is 1-5; zero means absent.
	SkillRating int

	ExtractionConfidence float64
	ResolutionConfidence float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OverallConfidence combines extraction and resolution confidence. A claim
// that has not completed resolution has no overall confidence yet.
func (c *Claim) OverallConfidence() float64 {
	return c.ExtractionConfidence * c.ResolutionConfidence
}

// PrimaryPlayerMention returns the first player mention, if any. Draft
// generation addresses the summary to this player.
func (c *Claim) PrimaryPlayerMention() *Mention {
	for i := range c.Mentions {
		if c.Mentions[i].Type == MentionPlayerName {
			return &c.Mentions[i]
		}
	}
	return nil
}

// FullyResolved reports whether every mention reached a resolved state.
func (c *Claim) FullyResolved() bool {
	if len(c.Mentions) == 0 {
		return true
	}
	for _, m := range c.Mentions {
		if !m.Resolved() {
			return false
		}
	}
	return true
}
