package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"manimgen/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:      ctx.logLevel(cfg),
				Bind:          bind,
				SkipPreflight: skipPreflight,
				Ready: func(addr string) {
					fmt.Fprintf(out, "Listening on http://%s\n", addr)
				},
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip startup directory and provider checks")
	return cmd
}
