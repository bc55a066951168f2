package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"sideline/internal/api"
	"sideline/internal/config"
	"sideline/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline health and configuration paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				health, err := api.NewService(st).Health(runCtx)
				if err != nil {
					return err
				}

				fmt.Fprintln(out, renderStatusLine("Database", statusInfo, cfg.DatabasePath(), colorize))
				if cfg.Paths.APIBind != "" {
					fmt.Fprintln(out, renderStatusLine("API", statusInfo, cfg.Paths.APIBind, colorize))
				}

				backlogKind := statusOK
				if health.Failed > 0 {
					backlogKind = statusError
				} else if health.InFlight > 0 {
					backlogKind = statusInfo
				}
				fmt.Fprintln(out, renderStatusLine("Queue", backlogKind,
					fmt.Sprintf("%d total, %d in flight, %d failed", health.Total, health.InFlight, health.Failed), colorize))

				stages := make([]string, 0, len(health.Stages))
				for stage := range health.Stages {
					stages = append(stages, stage)
				}
				sort.Strings(stages)
				for _, stage := range stages {
					kind := statusInfo
					if stage == string(store.StageFailed) {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(stage, kind, fmt.Sprintf("%d", health.Stages[stage]), colorize))
				}

				held, err := st.SummariesByStatus(runCtx, store.SummaryHeld, 1000)
				if err != nil {
					return err
				}
				heldKind := statusOK
				if len(held) > 0 {
					heldKind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Held summaries", heldKind, fmt.Sprintf("%d awaiting review", len(held)), colorize))
				return nil
			})
		},
	}
}
