package store

import (
	"context"
	"database/sql"
	"fmt"
)

// UpsertRosterPlayer adds or refreshes one player in an organization's
// roster.
func (s *Store) UpsertRosterPlayer(ctx context.Context, player RosterPlayer) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO roster_players (organization_id, player_identity_id, first_name, last_name, full_name, team_id, active)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(organization_id, player_identity_id) DO UPDATE SET
             first_name = excluded.first_name,
             last_name = excluded.last_name,
             full_name = excluded.full_name,
             team_id = excluded.team_id,
             active = excluded.active`,
		player.OrganizationID, player.PlayerIdentityID, player.FirstName,
		player.LastName, player.FullName, nullableString(player.TeamID),
		boolToInt(player.Active),
	); err != nil {
		return fmt.Errorf("upsert player: %w", err)
	}
	return nil
}

// UpsertRosterTeam adds or refreshes one team.
func (s *Store) UpsertRosterTeam(ctx context.Context, team RosterTeam) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO roster_teams (organization_id, team_id, name, coach_id)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(organization_id, team_id) DO UPDATE SET
             name = excluded.name,
             coach_id = excluded.coach_id`,
		team.OrganizationID, team.TeamID, team.Name, nullableString(team.CoachID),
	); err != nil {
		return fmt.Errorf("upsert team: %w", err)
	}
	return nil
}

// UpsertRosterCoach adds or refreshes one coach.
func (s *Store) UpsertRosterCoach(ctx context.Context, coach RosterCoach) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO roster_coaches (organization_id, coach_id, name)
         VALUES (?, ?, ?)
         ON CONFLICT(organization_id, coach_id) DO UPDATE SET
             name = excluded.name`,
		coach.OrganizationID, coach.CoachID, coach.Name,
	); err != nil {
		return fmt.Errorf("upsert coach: %w", err)
	}
	return nil
}

// PlayersByOrganization returns an organization's active roster.
func (s *Store) PlayersByOrganization(ctx context.Context, orgID string) ([]RosterPlayer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organization_id, player_identity_id, first_name, last_name, full_name, team_id, active
         FROM roster_players WHERE organization_id = ? AND active = 1 ORDER BY full_name`,
		orgID)
	if err != nil {
		return nil, fmt.Errorf("players by organization: %w", err)
	}
	defer rows.Close()

	var out []RosterPlayer
	for rows.Next() {
		var (
			player RosterPlayer
			teamID sql.NullString
			active int
		)
		if err := rows.Scan(&player.ID, &player.OrganizationID, &player.PlayerIdentityID,
			&player.FirstName, &player.LastName, &player.FullName, &teamID, &active); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		player.TeamID = teamID.String
		player.Active = active != 0
		out = append(out, player)
	}
	return out, rows.Err()
}

// TeamsByOrganization returns every team in an organization.
func (s *Store) TeamsByOrganization(ctx context.Context, orgID string) ([]RosterTeam, error) {
	return s.queryTeams(ctx,
		`SELECT id, organization_id, team_id, name, coach_id FROM roster_teams
         WHERE organization_id = ? ORDER BY name`, orgID)
}

// TeamsByCoach returns the teams a coach runs. Group references like "the
// team" resolve against this set.
func (s *Store) TeamsByCoach(ctx context.Context, orgID, coachID string) ([]RosterTeam, error) {
	return s.queryTeams(ctx,
		`SELECT id, organization_id, team_id, name, coach_id FROM roster_teams
         WHERE organization_id = ? AND coach_id = ? ORDER BY name`, orgID, coachID)
}

func (s *Store) queryTeams(ctx context.Context, query string, args ...any) ([]RosterTeam, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	var out []RosterTeam
	for rows.Next() {
		var (
			team    RosterTeam
			coachID sql.NullString
		)
		if err := rows.Scan(&team.ID, &team.OrganizationID, &team.TeamID, &team.Name, &coachID); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		team.CoachID = coachID.String
		out = append(out, team)
	}
	return out, rows.Err()
}

// CoachesByOrganization returns every coach in an organization.
func (s *Store) CoachesByOrganization(ctx context.Context, orgID string) ([]RosterCoach, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organization_id, coach_id, name FROM roster_coaches
         WHERE organization_id = ? ORDER BY name`,
		orgID)
	if err != nil {
		return nil, fmt.Errorf("coaches by organization: %w", err)
	}
	defer rows.Close()

	var out []RosterCoach
	for rows.Next() {
		var coach RosterCoach
		if err := rows.Scan(&coach.ID, &coach.OrganizationID, &coach.CoachID, &coach.Name); err != nil {
			return nil, fmt.Errorf("scan coach: %w", err)
		}
		out = append(out, coach)
	}
	return out, rows.Err()
}
