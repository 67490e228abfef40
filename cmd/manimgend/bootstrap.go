package main

import (
	"os"
	"strconv"
	"strings"

	"manimgen/internal/daemonrun"
)

// configPathFromEnv returns MANIMGEN_CONFIG, or "" to use the default search.
func configPathFromEnv() string {
	return strings.TrimSpace(os.Getenv("MANIMGEN_CONFIG"))
}

func runOptionsFromEnv() daemonrun.Options {
	opts := daemonrun.Options{
		LogLevel: strings.TrimSpace(os.Getenv("MANIMGEN_LOG_LEVEL")),
		Bind:     strings.TrimSpace(os.Getenv("MANIMGEN_BIND")),
	}
	if skip, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("MANIMGEN_SKIP_PREFLIGHT"))); err == nil {
		opts.SkipPreflight = skip
	}
	return opts
}
