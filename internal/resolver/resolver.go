// Package resolver matches extracted mentions against an
// organization's roster. Resolution is alias-first: shorthand a coach
// has confirmed before wins outright, then folded exact and fuzzy name
// matching decide between auto-resolution, disambiguation, and giving
// up.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sideline/internal/claims"
	"sideline/internal/config"
	"sideline/internal/services"
	"sideline/internal/store"
)

// candidateFloor is the lowest similarity worth surfacing to a coach as
// a disambiguation choice.
const candidateFloor = 0.6

// maxCandidates bounds the choices attached to a disambiguation.
const maxCandidates = 5

// Roster supplies the entities mentions resolve against. *store.Store
// satisfies it.
type Roster interface {
	PlayersByOrganization(ctx context.Context, orgID string) ([]store.RosterPlayer, error)
	TeamsByOrganization(ctx context.Context, orgID string) ([]store.RosterTeam, error)
	TeamsByCoach(ctx context.Context, orgID, coachID string) ([]store.RosterTeam, error)
	CoachesByOrganization(ctx context.Context, orgID string) ([]store.RosterCoach, error)
	LookupAlias(ctx context.Context, coachID, orgID, rawText string) (*store.CoachAlias, error)
	RecentPlayerResolutions(ctx context.Context, coachID string, since time.Time) (map[string]time.Time, error)
}

// Resolver resolves claim mentions for one organization at a time.
type Resolver struct {
	roster Roster
	cfg    config.Resolver
	now    func() time.Time
}

func New(roster Roster, cfg config.Resolver) *Resolver {
	return &Resolver{roster: roster, cfg: cfg, now: time.Now}
}

// rosterContext is the per-artifact view of the roster, loaded once and
// reused across every claim in the batch.
type rosterContext struct {
	players    []store.RosterPlayer
	teams      []store.RosterTeam
	coachTeams []store.RosterTeam
	coaches    []store.RosterCoach
	recent     map[string]time.Time

	orgID   string
	coachID string
}

// LoadRoster fetches everything claim resolution needs for one coach's
// artifact.
func (r *Resolver) LoadRoster(ctx context.Context, orgID, coachID string) (*rosterContext, error) {
	players, err := r.roster.PlayersByOrganization(ctx, orgID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "resolver", "load roster", "list players", err)
	}
	teams, err := r.roster.TeamsByOrganization(ctx, orgID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "resolver", "load roster", "list teams", err)
	}
	coachTeams, err := r.roster.TeamsByCoach(ctx, orgID, coachID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "resolver", "load roster", "list coach teams", err)
	}
	coaches, err := r.roster.CoachesByOrganization(ctx, orgID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "resolver", "load roster", "list coaches", err)
	}
	since := r.now().AddDate(0, 0, -r.cfg.RecencyWindowDays)
	recent, err := r.roster.RecentPlayerResolutions(ctx, coachID, since)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "resolver", "load roster", "recent resolutions", err)
	}
	return &rosterContext{
		players:    players,
		teams:      teams,
		coachTeams: coachTeams,
		coaches:    coaches,
		recent:     recent,
		orgID:      orgID,
		coachID:    coachID,
	}, nil
}

// ResolveClaim resolves every mention on the claim in place and returns
// the status the claim should move to: resolved when all mentions
// landed, needs_disambiguation when any mention needs a coach's choice.
// Mentions with no plausible candidate are marked unresolved and score
// zero, which drags the claim's resolution confidence down instead of
// blocking it.
func (r *Resolver) ResolveClaim(ctx context.Context, roster *rosterContext, claim *claims.Claim) (claims.Status, error) {
	if roster == nil {
		return "", fmt.Errorf("resolver: nil roster context")
	}

	needsChoice := false
	confidence := 1.0
	for i := range claim.Mentions {
		mention := &claim.Mentions[i]
		if mention.Resolved() {
			confidence = min(confidence, mention.Score)
			continue
		}
		if err := r.resolveMention(ctx, roster, mention); err != nil {
			return "", err
		}
		switch mention.Status {
		case claims.MentionNeedsDisambiguation:
			needsChoice = true
		case claims.MentionUnresolved:
			confidence = 0
		default:
			confidence = min(confidence, mention.Score)
		}
	}

	if needsChoice {
		return claims.StatusNeedsDisambiguation, nil
	}
	claim.ResolutionConfidence = confidence
	return claims.StatusResolved, nil
}

func (r *Resolver) resolveMention(ctx context.Context, roster *rosterContext, mention *claims.Mention) error {
	switch mention.Type {
	case claims.MentionPlayerName:
		return r.resolvePlayer(ctx, roster, mention)
	case claims.MentionTeamName:
		r.resolveTeam(roster, mention)
		return nil
	case claims.MentionGroupReference:
		r.resolveGroup(roster, mention)
		return nil
	case claims.MentionCoachName:
		r.resolveCoach(roster, mention)
		return nil
	default:
		return fmt.Errorf("resolver: unknown mention type %q", mention.Type)
	}
}

func (r *Resolver) resolvePlayer(ctx context.Context, roster *rosterContext, mention *claims.Mention) error {
	alias, err := r.roster.LookupAlias(ctx, roster.coachID, roster.orgID, mention.RawText)
	if err != nil {
		return services.Wrap(services.ErrTransient, "resolver", "resolve player", "alias lookup", err)
	}
	if alias != nil {
		mention.Status = claims.MentionAutoResolved
		mention.ResolvedID = alias.PlayerIdentityID
		mention.ResolvedName = alias.PlayerName
		mention.Score = 1
		return nil
	}

	foldedRaw := foldName(mention.RawText)
	candidates := make([]claims.Candidate, 0, len(roster.players))
	for _, player := range roster.players {
		score := nameScore(foldedRaw, []string{
			foldName(player.FullName),
			foldName(player.FirstName),
			foldName(player.LastName),
		})
		if score >= candidateFloor {
			candidates = append(candidates, claims.Candidate{
				ID:    player.PlayerIdentityID,
				Name:  player.FullName,
				Score: score,
			})
		}
	}
	r.decide(mention, candidates, r.cfg.MinScore, roster.recent)
	return nil
}

func (r *Resolver) resolveTeam(roster *rosterContext, mention *claims.Mention) {
	foldedRaw := foldName(mention.RawText)
	candidates := make([]claims.Candidate, 0, len(roster.teams))
	for _, team := range roster.teams {
		score := similarity(foldedRaw, foldName(team.Name))
		if score >= candidateFloor {
			candidates = append(candidates, claims.Candidate{ID: team.TeamID, Name: team.Name, Score: score})
		}
	}
	r.decide(mention, candidates, r.cfg.TeamMinScore, nil)
}

// resolveGroup handles references like "the boys" or "the whole squad".
// They mean the coach's own team, so a coach with exactly one team
// resolves immediately and a multi-team coach is asked which one.
func (r *Resolver) resolveGroup(roster *rosterContext, mention *claims.Mention) {
	switch len(roster.coachTeams) {
	case 0:
		mention.Status = claims.MentionUnresolved
	case 1:
		team := roster.coachTeams[0]
		mention.Status = claims.MentionAutoResolved
		mention.ResolvedID = team.TeamID
		mention.ResolvedName = team.Name
		mention.Score = 1
	default:
		mention.Status = claims.MentionNeedsDisambiguation
		for _, team := range roster.coachTeams {
			mention.Candidates = append(mention.Candidates, claims.Candidate{ID: team.TeamID, Name: team.Name, Score: 1})
		}
	}
}

func (r *Resolver) resolveCoach(roster *rosterContext, mention *claims.Mention) {
	foldedRaw := foldName(mention.RawText)
	candidates := make([]claims.Candidate, 0, len(roster.coaches))
	for _, coach := range roster.coaches {
		score := similarity(foldedRaw, foldName(coach.Name))
		if score >= candidateFloor {
			candidates = append(candidates, claims.Candidate{ID: coach.CoachID, Name: coach.Name, Score: score})
		}
	}
	r.decide(mention, candidates, r.cfg.MinScore, nil)
}

// decide turns a scored candidate list into a mention outcome. A single
// strong candidate with a clear lead auto-resolves. A near-tie first
// consults the coach's recent resolutions; if recency cannot break it,
// the coach is asked. Anything below the floor stays unresolved.
func (r *Resolver) decide(mention *claims.Mention, candidates []claims.Candidate, minScore float64, recent map[string]time.Time) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	if len(candidates) == 0 {
		mention.Status = claims.MentionUnresolved
		return
	}
	if candidates[0].Score < minScore {
		mention.Status = claims.MentionNeedsDisambiguation
		mention.Candidates = candidates
		return
	}

	top := candidates[0]
	contested := len(candidates) > 1 && top.Score-candidates[1].Score < r.cfg.Margin
	if contested {
		if winner, ok := recencyWinner(candidates, r.cfg.Margin, recent); ok {
			top = winner
			contested = false
		}
	}
	if contested {
		mention.Status = claims.MentionNeedsDisambiguation
		mention.Candidates = candidates
		return
	}

	mention.Status = claims.MentionAutoResolved
	mention.ResolvedID = top.ID
	mention.ResolvedName = top.Name
	mention.Score = top.Score
	mention.Candidates = nil
}

// recencyWinner breaks a near-tie when exactly one of the contending
// candidates was resolved for this coach inside the recency window.
func recencyWinner(candidates []claims.Candidate, margin float64, recent map[string]time.Time) (claims.Candidate, bool) {
	if len(recent) == 0 {
		return claims.Candidate{}, false
	}
	top := candidates[0].Score
	var winner claims.Candidate
	var winnerAt time.Time
	seen := 0
	for _, candidate := range candidates {
		if top-candidate.Score >= margin {
			break
		}
		at, ok := recent[candidate.ID]
		if !ok {
			continue
		}
		seen++
		if seen == 1 || at.After(winnerAt) {
			winner = candidate
			winnerAt = at
		}
	}
	if seen == 1 {
		return winner, true
	}
	return claims.Candidate{}, false
}

// ApplyChoice records a coach's manual disambiguation on one mention
// and returns the status the claim should carry next: resolved when the
// choice completed the claim, needs_disambiguation when other mentions
// still wait on a choice.
func ApplyChoice(claim *claims.Claim, mentionIndex int, candidate claims.Candidate) (claims.Status, error) {
	if mentionIndex < 0 || mentionIndex >= len(claim.Mentions) {
		return "", fmt.Errorf("resolver: mention index %d out of range", mentionIndex)
	}
	mention := &claim.Mentions[mentionIndex]
	if mention.Status != claims.MentionNeedsDisambiguation {
		return "", fmt.Errorf("resolver: mention %q is %s, not awaiting disambiguation", mention.RawText, mention.Status)
	}
	mention.Status = claims.MentionManuallyResolved
	mention.ResolvedID = candidate.ID
	mention.ResolvedName = candidate.Name
	mention.Score = 1
	mention.Candidates = nil

	confidence := 1.0
	for _, m := range claim.Mentions {
		if m.Status == claims.MentionNeedsDisambiguation {
			return claims.StatusNeedsDisambiguation, nil
		}
		if m.Status == claims.MentionUnresolved {
			confidence = 0
			continue
		}
		confidence = min(confidence, m.Score)
	}
	claim.ResolutionConfidence = confidence
	return claims.StatusResolved, nil
}
