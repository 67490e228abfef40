package main

import "testing"

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv("MANIMGEN_CONFIG", "  /etc/manimgen.toml ")
	if got := configPathFromEnv(); got != "/etc/manimgen.toml" {
		t.Fatalf("unexpected config path %q", got)
	}

	t.Setenv("MANIMGEN_CONFIG", "")
	if got := configPathFromEnv(); got != "" {
		t.Fatalf("expected empty path, got %q", got)
	}
}

func TestRunOptionsFromEnv(t *testing.T) {
	t.Setenv("MANIMGEN_LOG_LEVEL", "debug")
	t.Setenv("MANIMGEN_BIND", "0.0.0.0:9000")
	t.Setenv("MANIMGEN_SKIP_PREFLIGHT", "true")

	opts := runOptionsFromEnv()
	if opts.LogLevel != "debug" || opts.Bind != "0.0.0.0:9000" || !opts.SkipPreflight {
		t.Fatalf("unexpected options: %+v", opts)
	}

	t.Setenv("MANIMGEN_SKIP_PREFLIGHT", "nope")
	if runOptionsFromEnv().SkipPreflight {
		t.Fatal("expected unparsable value to leave preflight enabled")
	}
}
