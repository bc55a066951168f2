package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sideline/internal/api"
	"sideline/internal/config"
	"sideline/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the artifact queue",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var stage string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List artifacts in the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				artifacts, err := api.NewService(st).Artifacts(runCtx, stage, limit)
				if err != nil {
					return err
				}
				if len(artifacts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(artifacts))
				for _, artifact := range artifacts {
					rows = append(rows, []string{
						strconv.FormatInt(artifact.ID, 10),
						artifact.ArtifactID,
						artifact.CoachID,
						artifact.NoteType,
						artifact.Stage,
						strconv.Itoa(artifact.RetryCount),
						artifact.ErrorMessage,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Artifact", "Coach", "Type", "Stage", "Retries", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&stage, "stage", "", "Filter by pipeline stage")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum artifacts to list")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <artifact-id>",
		Short: "Show one artifact with claims, summaries, and events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				detail, err := api.NewService(st).Describe(runCtx, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if detail == nil {
					return fmt.Errorf("artifact %s not found", args[0])
				}
				out := cmd.OutOrStdout()
				artifact := detail.Artifact
				fmt.Fprintf(out, "Artifact %s (%s note from %s)\n", artifact.ArtifactID, artifact.NoteType, artifact.CoachID)
				fmt.Fprintf(out, "  Stage:      %s\n", artifact.Stage)
				if artifact.TranscriptText != "" {
					fmt.Fprintf(out, "  Transcript: %s\n", artifact.TranscriptText)
				}
				if artifact.ErrorMessage != "" {
					fmt.Fprintf(out, "  Error:      %s\n", artifact.ErrorMessage)
				}

				if len(detail.Claims) > 0 {
					rows := make([][]string, 0, len(detail.Claims))
					for _, claim := range detail.Claims {
						rows = append(rows, []string{
							claim.ClaimID,
							claim.Topic,
							claim.Status,
							fmt.Sprintf("%.2f", claim.OverallConfidence),
							claimSubject(claim),
						})
					}
					fmt.Fprintln(out, "\nClaims:")
					fmt.Fprintln(out, renderTable(
						[]string{"Claim", "Topic", "Status", "Confidence", "Subject"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
					))
				}
				if len(detail.Summaries) > 0 {
					rows := make([][]string, 0, len(detail.Summaries))
					for _, summary := range detail.Summaries {
						rows = append(rows, []string{
							summary.SummaryID,
							summary.PlayerName,
							summary.Topic,
							summary.Status,
							summary.DecisionReason,
						})
					}
					fmt.Fprintln(out, "\nSummaries:")
					fmt.Fprintln(out, renderTable(
						[]string{"Summary", "Player", "Topic", "Status", "Reason"},
						rows,
						nil,
					))
				}
				if len(detail.Events) > 0 {
					rows := make([][]string, 0, len(detail.Events))
					for _, event := range detail.Events {
						rows = append(rows, []string{event.CreatedAt, event.Type, event.Stage, event.ErrorMessage})
					}
					fmt.Fprintln(out, "\nEvents:")
					fmt.Fprintln(out, renderTable(
						[]string{"Time", "Type", "Stage", "Error"},
						rows,
						nil,
					))
				}
				return nil
			})
		},
	}
}

func claimSubject(claim api.ClaimView) string {
	for _, mention := range claim.Mentions {
		if mention.ResolvedName != "" {
			return mention.ResolvedName
		}
	}
	for _, mention := range claim.Mentions {
		if mention.RawText != "" {
			return mention.RawText + " (?)"
		}
	}
	return ""
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Requeue failed artifacts from the beginning of the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid artifact id %q", arg)
				}
				ids = append(ids, id)
			}
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				count, err := st.RetryFailedArtifacts(runCtx, ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d artifact(s)\n", count)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show pipeline backlog by stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				health, err := api.NewService(st).Health(runCtx)
				if err != nil {
					return err
				}
				stages := make([]string, 0, len(health.Stages))
				for stage := range health.Stages {
					stages = append(stages, stage)
				}
				sort.Strings(stages)
				rows := make([][]string, 0, len(stages)+1)
				for _, stage := range stages {
					rows = append(rows, []string{stage, strconv.Itoa(health.Stages[stage])})
				}
				rows = append(rows, []string{"total", strconv.Itoa(health.Total)})
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Stage", "Artifacts"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
