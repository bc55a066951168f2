package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sideline/internal/claims"
	"sideline/internal/config"
	"sideline/internal/pipeline"
	"sideline/internal/store"
)

func newClaimsCommand(ctx *commandContext) *cobra.Command {
	claimsCmd := &cobra.Command{
		Use:   "claims",
		Short: "Inspect extracted claims and resolve ambiguous mentions",
	}
	claimsCmd.AddCommand(newClaimsListCommand(ctx))
	claimsCmd.AddCommand(newClaimsDisambiguateCommand(ctx))
	return claimsCmd
}

func newClaimsListCommand(ctx *commandContext) *cobra.Command {
	var artifactID string
	var ambiguousOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List claims for one artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				artifact, err := st.GetArtifactByUUID(runCtx, strings.TrimSpace(artifactID))
				if err != nil {
					return err
				}
				if artifact == nil {
					return fmt.Errorf("artifact %s not found", artifactID)
				}
				list, err := st.ClaimsByArtifact(runCtx, artifact.ID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printed := 0
				for _, claim := range list {
					if ambiguousOnly && claim.Status != claims.StatusNeedsDisambiguation {
						continue
					}
					printed++
					fmt.Fprintf(out, "%s  %-22s %-22s %.2f\n", claim.ClaimID, claim.Topic, claim.Status, claim.OverallConfidence())
					fmt.Fprintf(out, "    %s\n", claim.SourceText)
					for i, mention := range claim.Mentions {
						line := fmt.Sprintf("    mention %d: %q (%s)", i, mention.RawText, mention.Status)
						if mention.Resolved() {
							line += fmt.Sprintf(" -> %s (%.2f)", mention.ResolvedName, mention.Score)
						}
						fmt.Fprintln(out, line)
						for _, candidate := range mention.Candidates {
							fmt.Fprintf(out, "      candidate %s: %s (%.2f)\n", candidate.ID, candidate.Name, candidate.Score)
						}
					}
				}
				if printed == 0 {
					fmt.Fprintln(out, "No matching claims")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&artifactID, "artifact", "", "Artifact identifier")
	cmd.Flags().BoolVar(&ambiguousOnly, "ambiguous", false, "Only show claims waiting on disambiguation")
	_ = cmd.MarkFlagRequired("artifact")
	return cmd
}

func newClaimsDisambiguateCommand(ctx *commandContext) *cobra.Command {
	var mentionIndex int
	var playerID string

	cmd := &cobra.Command{
		Use:   "disambiguate <claim-id>",
		Short: "Pick the player for an ambiguous mention",
		Long: "Resolves an ambiguous mention to the chosen roster player, remembers the " +
			"coach's shorthand for next time, and requeues the artifact so drafts " +
			"reflect the choice.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				claim, err := pipeline.ResolveAmbiguity(runCtx, st, strings.TrimSpace(args[0]), mentionIndex, strings.TrimSpace(playerID))
				if err != nil {
					return err
				}
				mention := claim.Mentions[mentionIndex]
				fmt.Fprintf(cmd.OutOrStdout(), "Resolved %q to %s; claim %s is now %s\n",
					mention.RawText, mention.ResolvedName, claim.ClaimID, claim.Status)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&mentionIndex, "mention", 0, "Index of the mention to resolve")
	cmd.Flags().StringVar(&playerID, "player", "", "Roster player identity id to resolve to")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}
