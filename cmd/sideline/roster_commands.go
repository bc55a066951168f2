package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sideline/internal/config"
	"sideline/internal/store"
)

func newRosterCommand(ctx *commandContext) *cobra.Command {
	rosterCmd := &cobra.Command{
		Use:   "roster",
		Short: "Maintain the roster the entity resolver matches against",
	}
	rosterCmd.AddCommand(newRosterAddPlayerCommand(ctx))
	rosterCmd.AddCommand(newRosterAddTeamCommand(ctx))
	rosterCmd.AddCommand(newRosterListCommand(ctx))
	return rosterCmd
}

func newRosterAddPlayerCommand(ctx *commandContext) *cobra.Command {
	var orgID string
	var identityID string
	var firstName string
	var lastName string
	var teamID string
	var inactive bool

	cmd := &cobra.Command{
		Use:   "add-player",
		Short: "Add or update a roster player",
		RunE: func(cmd *cobra.Command, args []string) error {
			first := strings.TrimSpace(firstName)
			last := strings.TrimSpace(lastName)
			if first == "" || last == "" {
				return fmt.Errorf("--first and --last are required")
			}
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				player := store.RosterPlayer{
					OrganizationID:   orgID,
					PlayerIdentityID: identityID,
					FirstName:        first,
					LastName:         last,
					FullName:         first + " " + last,
					TeamID:           teamID,
					Active:           !inactive,
				}
				if err := st.UpsertRosterPlayer(runCtx, player); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added player %s (%s)\n", player.FullName, player.PlayerIdentityID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "Organization identifier")
	cmd.Flags().StringVar(&identityID, "player", "", "Stable player identity id")
	cmd.Flags().StringVar(&firstName, "first", "", "Player first name")
	cmd.Flags().StringVar(&lastName, "last", "", "Player last name")
	cmd.Flags().StringVar(&teamID, "team", "", "Team the player belongs to")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Mark the player inactive")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}

func newRosterAddTeamCommand(ctx *commandContext) *cobra.Command {
	var orgID string
	var teamID string
	var name string
	var coachID string

	cmd := &cobra.Command{
		Use:   "add-team",
		Short: "Add or update a roster team",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				team := store.RosterTeam{
					OrganizationID: orgID,
					TeamID:         teamID,
					Name:           strings.TrimSpace(name),
					CoachID:        coachID,
				}
				if err := st.UpsertRosterTeam(runCtx, team); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added team %s (%s)\n", team.Name, team.TeamID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "Organization identifier")
	cmd.Flags().StringVar(&teamID, "team", "", "Stable team id")
	cmd.Flags().StringVar(&name, "name", "", "Team display name")
	cmd.Flags().StringVar(&coachID, "coach", "", "Coach responsible for the team")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("team")
	return cmd
}

func newRosterListCommand(ctx *commandContext) *cobra.Command {
	var orgID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List roster players for an organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				players, err := st.PlayersByOrganization(runCtx, orgID)
				if err != nil {
					return err
				}
				if len(players) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No roster players")
					return nil
				}
				rows := make([][]string, 0, len(players))
				for _, player := range players {
					rows = append(rows, []string{
						player.PlayerIdentityID,
						player.FullName,
						player.TeamID,
						yesNo(player.Active),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Player", "Name", "Team", "Active"},
					rows,
					nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "Organization identifier")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
