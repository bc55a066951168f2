package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sideline/internal/approval"
	"sideline/internal/config"
	"sideline/internal/store"
)

func newSummariesCommand(ctx *commandContext) *cobra.Command {
	summariesCmd := &cobra.Command{
		Use:   "summaries",
		Short: "Review, release, and revoke parent-facing summaries",
	}
	summariesCmd.AddCommand(newSummariesListCommand(ctx))
	summariesCmd.AddCommand(newSummariesConfirmCommand(ctx))
	summariesCmd.AddCommand(newSummariesRejectCommand(ctx))
	summariesCmd.AddCommand(newSummariesRevokeCommand(ctx))
	return summariesCmd
}

func newSummariesListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List summaries by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				list, err := st.SummariesByStatus(runCtx, store.SummaryStatus(strings.TrimSpace(status)), limit)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No %s summaries\n", status)
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, summary := range list {
					deadline := ""
					if summary.RevokeDeadline != nil {
						deadline = summary.RevokeDeadline.Format("15:04:05")
					}
					rows = append(rows, []string{
						summary.SummaryID,
						summary.CoachID,
						summary.PlayerName,
						summary.Topic,
						fmt.Sprintf("%.2f", summary.Confidence),
						summary.DecisionReason,
						deadline,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Summary", "Coach", "Player", "Topic", "Confidence", "Reason", "Revoke By"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", string(store.SummaryHeld), "Summary status to list")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum summaries to list")
	return cmd
}

func newSummariesConfirmCommand(ctx *commandContext) *cobra.Command {
	var actor string
	var edited bool
	var acknowledge []string

	cmd := &cobra.Command{
		Use:   "confirm <summary-id>",
		Short: "Release a held or pending summary",
		Long: "Releases a summary after coach review. Injury summaries require every " +
			"checklist item to be acknowledged with --ack (severity_recorded, " +
			"player_identified, follow_up_noted).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				summary, err := approval.Confirm(runCtx, st, strings.TrimSpace(args[0]), actor, acknowledge, edited)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Summary %s released to %s's family\n", summary.SummaryID, summary.PlayerName)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Reviewer identifier")
	cmd.Flags().BoolVar(&edited, "edited", false, "Record that the draft text was edited before release")
	cmd.Flags().StringSliceVar(&acknowledge, "ack", nil, "Acknowledged checklist items for injury summaries")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func newSummariesRejectCommand(ctx *commandContext) *cobra.Command {
	var actor string
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <summary-id>",
		Short: "Discard a summary awaiting review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				summary, err := approval.Reject(runCtx, st, strings.TrimSpace(args[0]), actor, reason)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Summary %s rejected\n", summary.SummaryID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Reviewer identifier")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the summary should not be sent")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func newSummariesRevokeCommand(ctx *commandContext) *cobra.Command {
	var actor string
	var reason string

	cmd := &cobra.Command{
		Use:   "revoke <summary-id>",
		Short: "Pull back an auto-released summary inside its revocation window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				summary, err := approval.Revoke(runCtx, st, strings.TrimSpace(args[0]), actor, reason)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Summary %s revoked\n", summary.SummaryID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Reviewer identifier")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the summary is being revoked")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}
