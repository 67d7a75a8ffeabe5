package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"renttalk-tenant-portal/api/internal/app"
	"renttalk-tenant-portal/shared/config"
	"renttalk-tenant-portal/shared/logx"
)

func main() {
	loadDotenv(".env", ".env.local")
	if err := newRootCmd(buildFromEnv).Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDotenv loads the files that exist; a missing file is not an error.
func loadDotenv(files ...string) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return
	}
	if err := godotenv.Load(existing...); err != nil {
		fmt.Fprintln(os.Stderr, "dotenv:", err)
	}
}

// buildFromEnv wires the portal the same way the api does, minus the log
// sinks, so the CLI writes to the store the service reads.
func buildFromEnv(ctx context.Context) (*app.App, error) {
	cfg, problems := config.Load("renttalkctl", 8080)
	logger := logx.New(cfg.ServiceName, cfg.Env, strings.TrimSpace(os.Getenv("VERSION")), "warn")
	for _, p := range problems {
		if p.Field == "ENV" {
			continue
		}
		return nil, fmt.Errorf("config: %s: %s", p.Field, p.Message)
	}
	return app.Build(ctx, cfg, logger, app.Options{Quiet: true})
}
