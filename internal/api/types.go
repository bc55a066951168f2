package api

// ArtifactView describes a note artifact in a transport-friendly format.
type ArtifactView struct {
	ID                   int64   `json:"id"`
	ArtifactID           string  `json:"artifactId"`
	OrganizationID       string  `json:"organizationId"`
	CoachID              string  `json:"coachId"`
	NoteType             string  `json:"noteType"`
	Stage                string  `json:"stage"`
	AudioPath            string  `json:"audioPath,omitempty"`
	TranscriptText       string  `json:"transcriptText,omitempty"`
	TranscriptConfidence float64 `json:"transcriptConfidence,omitempty"`
	ErrorMessage         string  `json:"errorMessage,omitempty"`
	RetryCount           int     `json:"retryCount"`
	CreatedAt            string  `json:"createdAt,omitempty"`
	UpdatedAt            string  `json:"updatedAt,omitempty"`
}

// MentionView is a resolved or pending entity mention inside a claim.
type MentionView struct {
	Type         string  `json:"type"`
	RawText      string  `json:"rawText"`
	Status       string  `json:"status"`
	ResolvedID   string  `json:"resolvedId,omitempty"`
	ResolvedName string  `json:"resolvedName,omitempty"`
	Score        float64 `json:"score,omitempty"`
	Candidates   int     `json:"candidates,omitempty"`
}

// ClaimView describes one extracted claim.
type ClaimView struct {
	ClaimID              string        `json:"claimId"`
	Topic                string        `json:"topic"`
	Status               string        `json:"status"`
	Title                string        `json:"title,omitempty"`
	SourceText           string        `json:"sourceText"`
	Severity             string        `json:"severity,omitempty"`
	Sentiment            string        `json:"sentiment,omitempty"`
	ExtractionConfidence float64       `json:"extractionConfidence"`
	ResolutionConfidence float64       `json:"resolutionConfidence"`
	OverallConfidence    float64       `json:"overallConfidence"`
	Mentions             []MentionView `json:"mentions,omitempty"`
	OccurredAt           string        `json:"occurredAt,omitempty"`
}

// SummaryView describes a parent-facing draft and its release decision.
type SummaryView struct {
	SummaryID      string  `json:"summaryId"`
	ClaimID        string  `json:"claimId"`
	PlayerName     string  `json:"playerName"`
	Topic          string  `json:"topic"`
	Content        string  `json:"content"`
	Confidence     float64 `json:"confidence"`
	Status         string  `json:"status"`
	DecisionTier   string  `json:"decisionTier,omitempty"`
	DecisionReason string  `json:"decisionReason,omitempty"`
	RevokeDeadline string  `json:"revokeDeadline,omitempty"`
	ViewedAt       string  `json:"viewedAt,omitempty"`
	RevokedAt      string  `json:"revokedAt,omitempty"`
	CreatedAt      string  `json:"createdAt,omitempty"`
}

// EventView is one audit trail entry.
type EventView struct {
	EventID      string         `json:"eventId"`
	Type         string         `json:"type"`
	Stage        string         `json:"stage"`
	ArtifactID   int64          `json:"artifactId"`
	CoachID      string         `json:"coachId,omitempty"`
	DurationMS   int64          `json:"durationMs,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    string         `json:"createdAt,omitempty"`
}

// FlagView describes one feature flag row.
type FlagView struct {
	Key       string `json:"key"`
	Scope     string `json:"scope"`
	ScopeID   string `json:"scopeId,omitempty"`
	Enabled   bool   `json:"enabled"`
	UpdatedBy string `json:"updatedBy,omitempty"`
	Notes     string `json:"notes,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// ArtifactDetail bundles everything the audit views need for one note.
type ArtifactDetail struct {
	Artifact  ArtifactView  `json:"artifact"`
	Claims    []ClaimView   `json:"claims"`
	Summaries []SummaryView `json:"summaries"`
	Events    []EventView   `json:"events"`
}

// QueueHealth summarizes pipeline backlog by stage.
type QueueHealth struct {
	Stages   map[string]int `json:"stages"`
	Total    int            `json:"total"`
	Failed   int            `json:"failed"`
	InFlight int            `json:"inFlight"`
}

// ArtifactListResponse wraps a collection of artifacts.
type ArtifactListResponse struct {
	Artifacts []ArtifactView `json:"artifacts"`
}

// EventListResponse wraps a page of audit events.
type EventListResponse struct {
	Events []EventView `json:"events"`
	Offset int         `json:"offset"`
}

// FlagListResponse wraps the flag table.
type FlagListResponse struct {
	Flags []FlagView `json:"flags"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool        `json:"running"`
	PID          int         `json:"pid"`
	DatabasePath string      `json:"databasePath"`
	LockFilePath string      `json:"lockFilePath"`
	LastError    string      `json:"lastError,omitempty"`
	Queue        QueueHealth `json:"queue"`
}
