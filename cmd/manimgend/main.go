package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"manimgen/internal/config"
	"manimgen/internal/daemonrun"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(configPathFromEnv())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(ctx, cfg, runOptionsFromEnv()); err != nil {
		log.Fatalf("run daemon: %v", err)
	}
}
