// Package main provides a CLI tool for reading and setting the stored
// opponent difficulty preference.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cory-johannsen/slapfight/internal/config"
	"github.com/cory-johannsen/slapfight/internal/observability"
	"github.com/cory-johannsen/slapfight/internal/settings"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: $SLAPFIGHT_CONFIG, else built-in defaults)")
	level := flag.String("level", "", "difficulty to store: easy, normal, hard, or 0-2; empty prints the current value")
	flag.Parse()

	path, err := config.Resolve(*configPath, os.Getenv)
	if err != nil && !errors.Is(err, config.ErrNoConfig) {
		log.Fatalf("resolving config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	store, err := settings.Open(cfg.Settings.AppName, logger)
	if err != nil {
		log.Fatalf("opening settings: %v", err)
	}

	before := store.Difficulty()
	if *level == "" {
		fmt.Fprintf(os.Stdout, "difficulty: %s (%.1f)\n", before, before.Value())
		return
	}

	d, err := settings.ParseDifficulty(*level)
	if err != nil {
		log.Fatalf("invalid difficulty: %v", err)
	}
	if err := store.SetDifficulty(d); err != nil {
		log.Fatalf("saving difficulty: %v", err)
	}
	fmt.Fprintf(os.Stdout, "difficulty: %s -> %s\n", before, d.Normalize())
}
