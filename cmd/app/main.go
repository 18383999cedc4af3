package main

import (
	"flag"
	"log"
	"os"

	"HyperTrack/internal/di"
	"HyperTrack/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	path := *configPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// Load config; a malformed file halts startup rather than tracking the
	// wrong wallets against the wrong endpoints.
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("%s: env=%s wallets=%d refresh=%ds history=%s",
		cfg.App.Title, cfg.App.Environment, len(cfg.Wallets), cfg.App.RefreshInterval, cfg.History.Backend)

	// Wire DI: initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
