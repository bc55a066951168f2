package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sideline/internal/api"
	"sideline/internal/config"
	"sideline/internal/store"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var artifactID int64
	var eventType string
	var stage string
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the audit event stream, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				page, err := api.NewService(st).Events(runCtx, api.EventQuery{
					ArtifactID: artifactID,
					Type:       eventType,
					Stage:      stage,
					Limit:      limit,
					Offset:     offset,
				})
				if err != nil {
					return err
				}
				if len(page.Events) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No events")
					return nil
				}
				rows := make([][]string, 0, len(page.Events))
				for _, event := range page.Events {
					detail := event.ErrorMessage
					if detail == "" && len(event.Metadata) > 0 {
						detail = fmt.Sprintf("%v", event.Metadata)
					}
					rows = append(rows, []string{
						event.CreatedAt,
						strconv.FormatInt(event.ArtifactID, 10),
						event.Type,
						event.Stage,
						detail,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Time", "Artifact", "Type", "Stage", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				))
				fmt.Fprintf(cmd.OutOrStdout(), "Next offset: %d\n", page.Offset)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&artifactID, "artifact", 0, "Filter by artifact queue id")
	cmd.Flags().StringVar(&eventType, "type", "", "Filter by event type")
	cmd.Flags().StringVar(&stage, "stage", "", "Filter by pipeline stage")
	cmd.Flags().IntVar(&limit, "limit", 50, "Events per page")
	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")
	return cmd
}
