package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sideline/internal/api"
	"sideline/internal/config"
	"sideline/internal/store"
)

func newFlagsCommand(ctx *commandContext) *cobra.Command {
	flagsCmd := &cobra.Command{
		Use:   "flags",
		Short: "Inspect and set feature flags",
	}
	flagsCmd.AddCommand(newFlagsListCommand(ctx))
	flagsCmd.AddCommand(newFlagsSetCommand(ctx))
	return flagsCmd
}

func newFlagsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored flag overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				flags, err := api.NewService(st).Flags(runCtx)
				if err != nil {
					return err
				}
				if len(flags) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No flag overrides stored")
					return nil
				}
				rows := make([][]string, 0, len(flags))
				for _, flag := range flags {
					rows = append(rows, []string{
						flag.Key,
						flag.Scope,
						flag.ScopeID,
						yesNo(flag.Enabled),
						flag.UpdatedBy,
						flag.Notes,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Key", "Scope", "Scope ID", "Enabled", "Updated By", "Notes"},
					rows,
					nil,
				))
				return nil
			})
		},
	}
}

func newFlagsSetCommand(ctx *commandContext) *cobra.Command {
	var scope string
	var scopeID string
	var enabled bool
	var updatedBy string
	var notes string

	cmd := &cobra.Command{
		Use:   "set <key>",
		Short: "Set a flag override at platform, organization, or user scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flagScope := store.FlagScope(strings.TrimSpace(scope))
			switch flagScope {
			case store.ScopePlatform, store.ScopeOrganization, store.ScopeUser:
			default:
				return fmt.Errorf("invalid scope %q (platform, organization, or user)", scope)
			}
			if flagScope != store.ScopePlatform && strings.TrimSpace(scopeID) == "" {
				return fmt.Errorf("scope %s requires --scope-id", flagScope)
			}
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				key := strings.ToLower(strings.TrimSpace(args[0]))
				if err := st.SetFlag(runCtx, key, flagScope, strings.TrimSpace(scopeID), enabled, updatedBy, notes); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s=%s at %s scope\n", key, yesNo(enabled), flagScope)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&scope, "scope", string(store.ScopePlatform), "Flag scope: platform, organization, or user")
	cmd.Flags().StringVar(&scopeID, "scope-id", "", "Organization or user id for scoped overrides")
	cmd.Flags().BoolVar(&enabled, "enabled", false, "Whether the flag is enabled")
	cmd.Flags().StringVar(&updatedBy, "by", "", "Who is changing the flag")
	cmd.Flags().StringVar(&notes, "notes", "", "Why the flag is being changed")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}
