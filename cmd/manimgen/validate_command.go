package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"manimgen/internal/fileutil"
	"manimgen/internal/sanitize"
	"manimgen/internal/validation"
)

type validateReport struct {
	File      string `json:"file"`
	Valid     bool   `json:"is_valid"`
	Message   string `json:"validation_message"`
	SceneName string `json:"scene_name,omitempty"`
	Sanitized bool   `json:"sanitized"`
}

func newValidateCommand() *cobra.Command {
	var applySanitize bool
	var write bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "validate <file>",
		Short:       "Statically validate a Manim scene file",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if write && !applySanitize {
				return errors.New("--write requires --sanitize")
			}
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read scene file: %w", err)
			}

			code := string(data)
			report := validateReport{File: path}
			if applySanitize {
				code, report.Sanitized = sanitize.Sanitize(code)
			}
			report.Valid, report.Message = validation.Validate(code)
			if scene, err := validation.SceneClassName(code); err == nil {
				report.SceneName = scene
			}

			if write && report.Sanitized {
				if err := fileutil.WriteFileAtomic(path, []byte(code), 0o644); err != nil {
					return fmt.Errorf("write sanitized file: %w", err)
				}
			}

			if jsonOutput {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			if applySanitize {
				fmt.Fprintf(out, "Sanitized: %s\n", yesNo(report.Sanitized))
			}
			if report.SceneName != "" {
				fmt.Fprintf(out, "Scene: %s\n", report.SceneName)
			}
			if !report.Valid {
				return fmt.Errorf("validation failed: %s", report.Message)
			}
			fmt.Fprintln(out, report.Message)
			return nil
		},
	}

	cmd.Flags().BoolVar(&applySanitize, "sanitize", false, "Apply the API and color rewrites before validating")
	cmd.Flags().BoolVar(&write, "write", false, "Write sanitized code back to the file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the verdict as JSON")
	return cmd
}
