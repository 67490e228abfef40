package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"manimgen/internal/api"
	"manimgen/internal/config"
	"manimgen/internal/deps"
	"manimgen/internal/preflight"
)

const daemonProbeTimeout = 2 * time.Second

type statusSnapshot struct {
	daemon   *api.HealthResponse
	renderer preflight.Result
	deps     []deps.Status
	checks   []preflight.Result
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, renderer, and provider status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap, err := collectStatus(cmd.Context(), cfg, offline)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, snap.toAPI(cfg))
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, daemonStatusLine(cfg.Server.Bind, snap.daemon, colorize))
			fmt.Fprintln(stdout, resultLine(snap.renderer, statusError, colorize))
			for _, check := range snap.checks {
				fmt.Fprintln(stdout, resultLine(check, statusError, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderDependencyTable(snap.deps))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print status as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the completion provider reachability check")
	return cmd
}

// collectStatus runs the independent probes concurrently. Individual probe
// failures are reported in the snapshot rather than as errors.
func collectStatus(ctx context.Context, cfg *config.Config, offline bool) (statusSnapshot, error) {
	var snap statusSnapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		snap.daemon = probeDaemon(gctx, cfg.Server.Bind)
		return nil
	})
	g.Go(func() error {
		snap.renderer = preflight.CheckRenderer(gctx, cfg, nil)
		return nil
	})
	g.Go(func() error {
		snap.deps = preflight.CheckSystemDeps(gctx, cfg)
		return nil
	})
	g.Go(func() error {
		if offline {
			snap.checks = directoryChecks(cfg)
			return nil
		}
		snap.checks = preflight.RunAll(gctx, cfg)
		return nil
	})

	if err := g.Wait(); err != nil {
		return statusSnapshot{}, err
	}
	return snap, nil
}

func directoryChecks(cfg *config.Config) []preflight.Result {
	results := []preflight.Result{preflight.CheckDirectoryAccess("State directory", cfg.Server.StateDir)}
	if strings.TrimSpace(cfg.Render.TempDir) != "" {
		results = append(results, preflight.CheckDirectoryAccess("Render temp directory", cfg.Render.TempDir))
	}
	if strings.TrimSpace(cfg.Logging.Dir) != "" {
		results = append(results, preflight.CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}
	return results
}

// probeDaemon asks a running daemon for its health payload. A nil result
// means nothing answered on the bind address.
func probeDaemon(ctx context.Context, bind string) *api.HealthResponse {
	bind = strings.TrimSpace(bind)
	if bind == "" || strings.HasSuffix(bind, ":0") {
		return nil
	}
	host := bind
	if strings.HasPrefix(host, "0.0.0.0:") {
		host = "127.0.0.1:" + strings.TrimPrefix(host, "0.0.0.0:")
	}

	probeCtx, cancel := context.WithTimeout(ctx, daemonProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, "http://"+host+"/", nil)
	if err != nil {
		return nil
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	var health api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil
	}
	return &health
}

func (s statusSnapshot) toAPI(cfg *config.Config) api.DaemonStatus {
	out := api.DaemonStatus{
		Bind:          cfg.Server.Bind,
		DaemonRunning: s.daemon != nil,
		LockFilePath:  cfg.LockPath(),
		Model:         cfg.LLM.Model,
		ManimVersion:  "error",
		Dependencies:  make([]api.DependencyStatus, 0, len(s.deps)),
		Checks:        make([]api.CheckStatus, 0, len(s.checks)+1),
	}
	if s.renderer.Passed {
		out.ManimVersion = s.renderer.Detail
	}
	for _, d := range s.deps {
		out.Dependencies = append(out.Dependencies, api.DependencyStatus{
			Name:        d.Name,
			Command:     d.Command,
			Description: d.Description,
			Optional:    d.Optional,
			Available:   d.Available,
			Detail:      d.Detail,
		})
	}
	out.Checks = append(out.Checks, api.CheckStatus{Name: s.renderer.Name, Passed: s.renderer.Passed, Detail: s.renderer.Detail})
	for _, c := range s.checks {
		out.Checks = append(out.Checks, api.CheckStatus{Name: c.Name, Passed: c.Passed, Detail: c.Detail})
	}
	return out
}
