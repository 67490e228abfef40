package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"manimgen/internal/api"
	"manimgen/internal/fileutil"
	"manimgen/internal/pipeline"
	"manimgen/internal/textutil"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var width int
	var height int
	var quality string
	var outPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "generate <description>",
		Short: "Generate Manim scene code from a description",
		Long: "Generate Manim scene code from a description.\n\n" +
			"The code is printed to stdout. With --out the scene is also rendered\n" +
			"and the MP4 written to the given path.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req := api.VideoRequest{
				Description: strings.Join(args, " "),
				Quality:     quality,
			}
			if cmd.Flags().Changed("width") {
				req.Width = &width
			}
			if cmd.Flags().Changed("height") {
				req.Height = &height
			}
			in, err := req.Input()
			if err != nil {
				return err
			}

			logger, err := ctx.cliLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			svc, err := pipeline.Build(cmd.Context(), cfg, pipeline.Dependencies{Logger: logger})
			if err != nil {
				return err
			}

			if strings.TrimSpace(outPath) == "" {
				resp := svc.GenerateCode(cmd.Context(), in)
				if jsonOutput {
					return writeJSON(cmd, api.FromCodeResponse(resp))
				}
				if !resp.Valid {
					return errors.New(api.CodeFailureMessage(resp))
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(resp.Code, "\n"))
				return nil
			}

			outcome := svc.GenerateVideo(cmd.Context(), in)
			if jsonOutput {
				return writeJSON(cmd, api.FromVideoOutcome(outcome))
			}
			if !outcome.Code.Valid {
				return errors.New(api.CodeFailureMessage(outcome.Code))
			}
			if !outcome.Success() {
				if logs := strings.TrimSpace(outcome.Render.Stderr); logs != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), logs)
				}
				return fmt.Errorf("render failed: %s", outcome.Render.Error)
			}
			target := resolveOutPath(outPath, outcome.Code.SceneName)
			if err := fileutil.WriteFileAtomic(target, outcome.Render.Video, 0o644); err != nil {
				return fmt.Errorf("write video: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s to %s (%d bytes)\n", outcome.Code.SceneName, target, len(outcome.Render.Video))
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Video width in pixels (even, 16-7680)")
	cmd.Flags().IntVar(&height, "height", 0, "Video height in pixels (even, 16-7680)")
	cmd.Flags().StringVarP(&quality, "quality", "q", "", "Render quality tier (l, m, h, k)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Render the scene and write the MP4 here (a directory keeps the scene name)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the API response body as JSON")
	return cmd
}

// resolveOutPath places the artifact inside outPath when it names an
// existing directory.
func resolveOutPath(outPath, scene string) string {
	outPath = strings.TrimSpace(outPath)
	if info, err := os.Stat(outPath); err == nil && info.IsDir() {
		return filepath.Join(outPath, textutil.AttachmentName(scene, ".mp4"))
	}
	return outPath
}
