package testsupport

import (
	"context"
	"testing"

	"sideline/internal/config"
	"sideline/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewVoiceArtifact inserts a voice note artifact for tests.
func NewVoiceArtifact(t testing.TB, st *store.Store, orgID, coachID string) *store.Artifact {
	t.Helper()

	artifact, err := st.NewVoiceArtifact(context.Background(), orgID, coachID, "/tmp/note.ogg")
	if err != nil {
		t.Fatalf("store.NewVoiceArtifact: %v", err)
	}
	return artifact
}

// NewTextArtifact inserts a typed note artifact for tests.
func NewTextArtifact(t testing.TB, st *store.Store, orgID, coachID, text string) *store.Artifact {
	t.Helper()

	artifact, err := st.NewTextArtifact(context.Background(), orgID, coachID, text)
	if err != nil {
		t.Fatalf("store.NewTextArtifact: %v", err)
	}
	return artifact
}

// SeedRoster loads a small organization roster used across resolver and
// pipeline tests.
func SeedRoster(t testing.TB, st *store.Store, orgID, coachID string) {
	t.Helper()

	ctx := context.Background()
	players := []store.RosterPlayer{
		{OrganizationID: orgID, PlayerIdentityID: "p-liam", FirstName: "Liam", LastName: "O'Brien", FullName: "Liam O'Brien", TeamID: "t-u12", Active: true},
		{OrganizationID: orgID, PlayerIdentityID: "p-murphy", FirstName: "Jake", LastName: "Murphy", FullName: "Jake Murphy", TeamID: "t-u12", Active: true},
		{OrganizationID: orgID, PlayerIdentityID: "p-murray", FirstName: "Jake", LastName: "Murray", FullName: "Jake Murray", TeamID: "t-u12", Active: true},
		{OrganizationID: orgID, PlayerIdentityID: "p-padraig", FirstName: "Pádraig", LastName: "Ó Sé", FullName: "Pádraig Ó Sé", TeamID: "t-u12", Active: true},
		{OrganizationID: orgID, PlayerIdentityID: "p-emma", FirstName: "Emma", LastName: "Walsh", FullName: "Emma Walsh", TeamID: "t-u14", Active: true},
	}
	for _, player := range players {
		if err := st.UpsertRosterPlayer(ctx, player); err != nil {
			t.Fatalf("seed player %s: %v", player.FullName, err)
		}
	}
	teams := []store.RosterTeam{
		{OrganizationID: orgID, TeamID: "t-u12", Name: "U12 Tigers", CoachID: coachID},
		{OrganizationID: orgID, TeamID: "t-u14", Name: "U14 Hawks", CoachID: "c-other"},
	}
	for _, team := range teams {
		if err := st.UpsertRosterTeam(ctx, team); err != nil {
			t.Fatalf("seed team %s: %v", team.Name, err)
		}
	}
	if err := st.UpsertRosterCoach(ctx, store.RosterCoach{OrganizationID: orgID, CoachID: coachID, Name: "Sam Carter"}); err != nil {
		t.Fatalf("seed coach: %v", err)
	}
}
