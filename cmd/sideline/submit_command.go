package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sideline/internal/api"
	"sideline/internal/config"
	"sideline/internal/store"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var orgID string
	var coachID string
	var text string
	var audioPath string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a coach note for processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(text) != "" && strings.TrimSpace(audioPath) != "" {
				return errors.New("provide --text or --audio, not both")
			}
			if strings.TrimSpace(text) == "" && strings.TrimSpace(audioPath) == "" {
				return errors.New("provide --text or --audio")
			}
			return ctx.withStore(func(runCtx context.Context, cfg *config.Config, st *store.Store) error {
				intake := api.NewIntake(st)
				var (
					view api.ArtifactView
					err  error
				)
				if strings.TrimSpace(audioPath) != "" {
					expanded, pathErr := config.ExpandPath(audioPath)
					if pathErr != nil {
						return fmt.Errorf("resolve audio path: %w", pathErr)
					}
					if _, statErr := os.Stat(expanded); statErr != nil {
						return fmt.Errorf("audio file: %w", statErr)
					}
					staged, stageErr := stageAudio(cfg, expanded)
					if stageErr != nil {
						return stageErr
					}
					view, err = intake.SubmitVoice(runCtx, orgID, coachID, staged, "cli")
				} else {
					view, err = intake.SubmitText(runCtx, orgID, coachID, text, "cli")
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s note %s (queue id %d)\n", view.NoteType, view.ArtifactID, view.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "Organization identifier")
	cmd.Flags().StringVar(&coachID, "coach", "", "Coach identifier")
	cmd.Flags().StringVar(&text, "text", "", "Typed note text")
	cmd.Flags().StringVar(&audioPath, "audio", "", "Path to a voice note recording")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("coach")
	return cmd
}

// stageAudio copies the recording into the media directory so the daemon can
// still read it after the original file moves. When media_dir is unset the
// source path is submitted as-is.
func stageAudio(cfg *config.Config, src string) (string, error) {
	dir := strings.TrimSpace(cfg.Paths.MediaDir)
	if dir == "" {
		return src, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	dst := filepath.Join(dir, uuid.NewString()+filepath.Ext(src))
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("stage audio file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("stage audio file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("stage audio file: %w", err)
	}
	return dst, nil
}
