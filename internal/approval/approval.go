// Package approval decides what happens to a generated draft: send it
// automatically, hold it for the coach, or suppress it outright.
package approval

import (
	"fmt"
	"time"

	"sideline/internal/claims"
	"sideline/internal/config"
	"sideline/internal/store"
)

// TrustLevel grades how much autonomy a coach has earned. Level 0 is a
// new coach; level 3 unlocks the widest auto-send surface.
type TrustLevel int

const (
	TrustNew         TrustLevel = 0
	TrustEstablished TrustLevel = 1
	TrustTrusted     TrustLevel = 2
	TrustVeteran     TrustLevel = 3
)

// Feedback volume thresholds for each trust level.
const (
	establishedApprovals = 10
	trustedApprovals     = 50
	veteranApprovals     = 200
	maxSuppressionRate   = 0.10
)

// ReduceFeedback folds a coach's trust ledger into a level. Suppressing
// drafts often enough holds a coach at level 1 no matter the volume.
func ReduceFeedback(history []store.TrustFeedback) TrustLevel {
	approvals := 0
	suppressions := 0
	for _, entry := range history {
		switch entry.Action {
		case store.TrustApproved, store.TrustEdited:
			approvals++
		case store.TrustSuppressed:
			suppressions++
		}
	}
	if approvals < establishedApprovals {
		return TrustNew
	}
	total := approvals + suppressions
	rate := float64(suppressions) / float64(total)
	switch {
	case approvals >= veteranApprovals && rate < maxSuppressionRate:
		return TrustVeteran
	case approvals >= trustedApprovals && rate < maxSuppressionRate:
		return TrustTrusted
	default:
		return TrustEstablished
	}
}

// Tier is the gate a draft lands in.
type Tier string

const (
	TierAutoSend     Tier = "auto_send"
	TierManualReview Tier = "manual_review"
	TierBlocked      Tier = "blocked"
)

// Decision is the outcome for one draft summary.
type Decision struct {
	Tier       Tier
	Reason     string
	TrustLevel TrustLevel
	Confidence float64

	// RevokeDeadline is set only for auto-send decisions; the coach can
	// pull the summary back until then, provided nobody has viewed it.
	RevokeDeadline *time.Time
}

// Status maps the decision tier onto the summary status it produces.
func (d Decision) Status() store.SummaryStatus {
	switch d.Tier {
	case TierAutoSend:
		return store.SummaryAutoApproved
	case TierBlocked:
		return store.SummarySuppressed
	default:
		return store.SummaryHeld
	}
}

// Policy applies the configured approval gates.
type Policy struct {
	cfg config.Approval
	now func() time.Time
}

func NewPolicy(cfg config.Approval) *Policy {
	return &Policy{cfg: cfg, now: time.Now}
}

// Decide gates one draft. Order matters: the confidence floor blocks
// before anything else, topic sensitivity overrides trust, and only
// then do trust level and the confidence bar apply.
func (p *Policy) Decide(topic claims.Topic, confidence float64, trust TrustLevel) Decision {
	decision := Decision{TrustLevel: trust, Confidence: confidence}

	if confidence < p.cfg.BlockConfidenceFloor {
		decision.Tier = TierBlocked
		decision.Reason = fmt.Sprintf("confidence %.2f below floor %.2f", confidence, p.cfg.BlockConfidenceFloor)
		return decision
	}
	if never, reason := neverAutoSend(topic); never {
		decision.Tier = TierManualReview
		decision.Reason = reason
		return decision
	}
	if int(trust) < p.cfg.MinTrustLevel {
		decision.Tier = TierManualReview
		decision.Reason = fmt.Sprintf("trust level %d below required %d", trust, p.cfg.MinTrustLevel)
		return decision
	}
	if confidence < p.cfg.MinConfidence {
		decision.Tier = TierManualReview
		decision.Reason = fmt.Sprintf("confidence %.2f below auto-send bar %.2f", confidence, p.cfg.MinConfidence)
		return decision
	}

	deadline := p.now().Add(time.Duration(p.cfg.RevocationWindowMinutes) * time.Minute)
	decision.Tier = TierAutoSend
	decision.Reason = "confidence and trust cleared auto-send"
	decision.RevokeDeadline = &deadline
	return decision
}

// neverAutoSend names the topics that always require a human, however
// confident the pipeline is.
func neverAutoSend(topic claims.Topic) (bool, string) {
	switch topic {
	case claims.TopicInjury:
		return true, "injury summaries always require coach review"
	case claims.TopicBehavior:
		return true, "behavior summaries always require coach review"
	case claims.TopicWellbeing:
		return true, "wellbeing summaries always require coach review"
	case claims.TopicParentCommunication:
		return true, "parent communication drafts always require coach review"
	case claims.TopicSkillRating, claims.TopicSkillProgress, claims.TopicPerformance,
		claims.TopicAttendance, claims.TopicRecovery, claims.TopicDevelopmentMilestone,
		claims.TopicPhysicalDevelopment, claims.TopicTactical, claims.TopicTeamCulture,
		claims.TopicTodo, claims.TopicSessionPlan:
		return false, ""
	default:
		// Unknown topics fail safe.
		return true, fmt.Sprintf("unrecognized topic %q requires coach review", topic)
	}
}
