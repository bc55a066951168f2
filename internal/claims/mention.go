package claims

import (
	"fmt"
	"strings"
)

// MentionType distinguishes what kind of entity a name refers to.
type MentionType string

const (
	MentionPlayerName     MentionType = "player_name"
	MentionTeamName       MentionType = "team_name"
	MentionGroupReference MentionType = "group_reference"
	MentionCoachName      MentionType = "coach_name"
)

var mentionTypeSet = map[MentionType]struct{}{
	MentionPlayerName:     {},
	MentionTeamName:       {},
	MentionGroupReference: {},
	MentionCoachName:      {},
}

// ParseMentionType validates a raw mention type string.
func ParseMentionType(value string) (MentionType, error) {
	mt := MentionType(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := mentionTypeSet[mt]; !ok {
		return "", fmt.Errorf("unknown mention type %q", value)
	}
	return mt, nil
}

func (t MentionType) Valid() bool {
	_, ok := mentionTypeSet[t]
	return ok
}

// MentionStatus tracks a single mention through resolution.
type MentionStatus string

const (
	MentionPending             MentionStatus = "pending"
	MentionAutoResolved        MentionStatus = "auto_resolved"
	MentionManuallyResolved    MentionStatus = "manually_resolved"
	MentionNeedsDisambiguation MentionStatus = "needs_disambiguation"
	MentionUnresolved          MentionStatus = "unresolved"
)

// Candidate is one roster entity a mention could refer to.
type Candidate struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Mention is a name or group reference the extractor found in source text.
type Mention struct {
	Type     MentionType   `json:"type"`
	RawText  string        `json:"raw_text"`
	Position int           `json:"position"`
	Status   MentionStatus `json:"status"`

	ResolvedID   string  `json:"resolved_id,omitempty"`
	ResolvedName string  `json:"resolved_name,omitempty"`
	Score        float64 `json:"score,omitempty"`

	Candidates []Candidate `json:"candidates,omitempty"`
}

// Resolved reports whether the mention landed on a concrete entity.
func (m Mention) Resolved() bool {
	return m.Status == MentionAutoResolved || m.Status == MentionManuallyResolved
}
