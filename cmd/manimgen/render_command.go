package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"manimgen/internal/api"
	"manimgen/internal/fileutil"
	"manimgen/internal/pipeline"
	"manimgen/internal/render"
	"manimgen/internal/sanitize"
	"manimgen/internal/textutil"
	"manimgen/internal/validation"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var filePath string
	var outPath string
	var sceneName string
	var width int
	var height int
	var quality string
	var skipSanitize bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Validate and render a local scene file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(filePath) == "" {
				return errors.New("--file is required")
			}
			data, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("read scene file: %w", err)
			}
			code := string(data)
			if !skipSanitize {
				code, _ = sanitize.Sanitize(code)
			}
			if ok, msg := validation.Validate(code); !ok {
				return fmt.Errorf("validation failed: %s", msg)
			}
			if strings.TrimSpace(sceneName) == "" {
				sceneName, err = validation.SceneClassName(code)
				if err != nil {
					return err
				}
			}

			quality = strings.ToLower(strings.TrimSpace(quality))
			if quality != "" && !api.ValidQuality(quality) {
				return fmt.Errorf("invalid quality %q (want l, m, h or k)", quality)
			}
			if width <= 0 {
				width = cfg.Render.DefaultWidth
			}
			if height <= 0 {
				height = cfg.Render.DefaultHeight
			}

			logger, err := ctx.cliLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			renderer, err := render.New(pipeline.RenderConfig(cfg), render.WithLogger(logger))
			if err != nil {
				return err
			}

			result := renderer.Render(cmd.Context(), render.Request{
				Code:      code,
				SceneName: sceneName,
				Width:     width,
				Height:    height,
				Quality:   quality,
			})
			if !result.Success {
				if logs := strings.TrimSpace(result.Stderr); logs != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), logs)
				}
				return fmt.Errorf("render failed: %s", result.Error)
			}

			target := strings.TrimSpace(outPath)
			if target == "" {
				target = textutil.AttachmentName(sceneName, ".mp4")
			} else {
				target = resolveOutPath(target, sceneName)
			}
			if err := fileutil.WriteFileAtomic(target, result.Video, 0o644); err != nil {
				return fmt.Errorf("write video: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s to %s in %s\n", sceneName, target, result.Duration.Round(10*time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Python scene file to render")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination MP4 path or directory (default <Scene>.mp4)")
	cmd.Flags().StringVar(&sceneName, "scene", "", "Scene class to render (default: first Scene class in the file)")
	cmd.Flags().IntVar(&width, "width", 0, "Video width in pixels (default render.default_width)")
	cmd.Flags().IntVar(&height, "height", 0, "Video height in pixels (default render.default_height)")
	cmd.Flags().StringVarP(&quality, "quality", "q", "", "Render quality tier (l, m, h, k)")
	cmd.Flags().BoolVar(&skipSanitize, "no-sanitize", false, "Render the file exactly as written")
	return cmd
}
