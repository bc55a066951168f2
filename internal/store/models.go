package store

import (
	"fmt"
	"strings"
	"time"
)

// Stage identifies where an artifact sits in the pipeline.
type Stage string

const (
	StageReceived          Stage = "received"
	StageTranscribing      Stage = "transcribing"
	StageTranscribed       Stage = "transcribed"
	StageExtractingClaims  Stage = "extracting_claims"
	StageClaimsExtracted   Stage = "claims_extracted"
	StageResolvingEntities Stage = "resolving_entities"
	StageEntityResolved    Stage = "entity_resolved"
	StageGeneratingDrafts  Stage = "generating_drafts"
	StageDraftsGenerated   Stage = "drafts_generated"
	StageConfirming        Stage = "confirming"
	StageConfirmed         Stage = "confirmed"
	StageFailed            Stage = "failed"
)

var stageSet = map[Stage]struct{}{
	StageReceived:          {},
	StageTranscribing:      {},
	StageTranscribed:       {},
	StageExtractingClaims:  {},
	StageClaimsExtracted:   {},
	StageResolvingEntities: {},
	StageEntityResolved:    {},
	StageGeneratingDrafts:  {},
	StageDraftsGenerated:   {},
	StageConfirming:        {},
	StageConfirmed:         {},
	StageFailed:            {},
}

// processingStages are the in-flight states an artifact occupies while a
// stage handler is working on it.
var processingStages = []Stage{
	StageTranscribing,
	StageExtractingClaims,
	StageResolvingEntities,
	StageGeneratingDrafts,
	StageConfirming,
}

// stageEntry maps each processing stage back to the ready state it started
// from. Stuck or retried artifacts return here.
var stageEntry = map[Stage]Stage{
	StageTranscribing:      StageReceived,
	StageExtractingClaims:  StageTranscribed,
	StageResolvingEntities: StageClaimsExtracted,
	StageGeneratingDrafts:  StageEntityResolved,
	StageConfirming:        StageDraftsGenerated,
}

// ParseStage validates a raw stage string.
func ParseStage(value string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := stageSet[stage]; !ok {
		return "", fmt.Errorf("unknown pipeline stage %q", value)
	}
	return stage, nil
}

func (s Stage) Valid() bool {
	_, ok := stageSet[s]
	return ok
}

// Processing reports whether the stage is an in-flight state.
func (s Stage) Processing() bool {
	_, ok := stageEntry[s]
	return ok
}

// EntryStage returns the ready state an in-flight artifact re-enters on
// retry or reclaim. Non-processing stages return themselves.
func (s Stage) EntryStage() Stage {
	if entry, ok := stageEntry[s]; ok {
		return entry
	}
	return s
}

// Terminal reports whether no further stage change is expected.
func (s Stage) Terminal() bool {
	return s == StageConfirmed || s == StageFailed
}

// NoteType distinguishes voice recordings from typed notes.
type NoteType string

const (
	NoteVoice NoteType = "voice"
	NoteText  NoteType = "text"
)

func (n NoteType) Valid() bool {
	return n == NoteVoice || n == NoteText
}

// Artifact is one submitted coach note moving through the pipeline.
type Artifact struct {
	ID             int64
	ArtifactID     string
	OrganizationID string
	CoachID        string

	NoteType  NoteType
	AudioPath string
	RawText   string

	Stage Stage

	TranscriptText       string
	TranscriptConfidence float64

	ErrorMessage string
	// RetryCounts tracks retry_initiated totals per processing stage.
	RetryCounts map[Stage]int

	LastHeartbeat *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RetryCount returns the retries consumed by one stage.
func (a *Artifact) RetryCount(stage Stage) int {
	if a.RetryCounts == nil {
		return 0
	}
	return a.RetryCounts[stage]
}

// BumpRetry increments the retry counter for one stage and returns the new
// value.
func (a *Artifact) BumpRetry(stage Stage) int {
	if a.RetryCounts == nil {
		a.RetryCounts = make(map[Stage]int, 1)
	}
	a.RetryCounts[stage]++
	return a.RetryCounts[stage]
}

// TotalRetries sums retry counters across all stages.
func (a *Artifact) TotalRetries() int {
	total := 0
	for _, count := range a.RetryCounts {
		total += count
	}
	return total
}

// SummaryStatus tracks a draft summary through release decisioning.
type SummaryStatus string

const (
	SummaryPending          SummaryStatus = "pending"
	SummaryAutoApproved     SummaryStatus = "auto_approved"
	SummaryManuallyApproved SummaryStatus = "manually_approved"
	SummaryHeld             SummaryStatus = "held"
	SummarySuppressed       SummaryStatus = "suppressed"
	SummaryRejected         SummaryStatus = "rejected"
	SummaryViewed           SummaryStatus = "viewed"
	SummaryRevoked          SummaryStatus = "revoked"
)

// Summary is a parent-facing draft generated from one resolved claim.
type Summary struct {
	ID             int64
	SummaryID      string
	ClaimID        int64
	ArtifactID     int64
	OrganizationID string
	CoachID        string

	PlayerIdentityID string
	PlayerName       string

	Topic      string
	Content    string
	Confidence float64

	Status         SummaryStatus
	DecisionTier   string
	DecisionReason string
	DecidedAt      *time.Time

	RevokeDeadline *time.Time
	ViewedAt       *time.Time
	RevokedAt      *time.Time
	RevokeReason   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TrustAction is one piece of coach feedback on a released summary.
type TrustAction string

const (
	TrustApproved   TrustAction = "approved"
	TrustSuppressed TrustAction = "suppressed"
	TrustEdited     TrustAction = "edited"
)

// TrustFeedback is an append-only trust ledger row.
type TrustFeedback struct {
	ID        int64
	CoachID   string
	Action    TrustAction
	SummaryID string
	CreatedAt time.Time
}

// FlagScope orders feature flag precedence below environment overrides.
type FlagScope string

const (
	ScopePlatform     FlagScope = "platform"
	ScopeOrganization FlagScope = "organization"
	ScopeUser         FlagScope = "user"
)

// FeatureFlag is one stored flag value for a scope.
type FeatureFlag struct {
	ID        int64
	Key       string
	Scope     FlagScope
	ScopeID   string
	Enabled   bool
	UpdatedBy string
	Notes     string
	UpdatedAt time.Time
}

// RosterPlayer is one player an organization can resolve mentions against.
type RosterPlayer struct {
	ID               int64
	OrganizationID   string
	PlayerIdentityID string
	FirstName        string
	LastName         string
	FullName         string
	TeamID           string
	Active           bool
}

// RosterTeam is one team in an organization.
type RosterTeam struct {
	ID             int64
	OrganizationID string
	TeamID         string
	Name           string
	CoachID        string
}

// RosterCoach is one coach in an organization.
type RosterCoach struct {
	ID             int64
	OrganizationID string
	CoachID        string
	Name           string
}

// CoachAlias remembers how a coach refers to a player, so repeated
// shorthand resolves without fuzzy matching.
type CoachAlias struct {
	ID               int64
	CoachID          string
	OrganizationID   string
	RawText          string
	PlayerIdentityID string
	PlayerName       string
	UseCount         int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
