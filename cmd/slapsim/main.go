// Package main provides the headless slap fight simulator. It runs one or
// more matches, either AI against AI or a scripted player against the AI,
// and reports the results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/slapfight/internal/config"
	"github.com/cory-johannsen/slapfight/internal/gameserver"
	"github.com/cory-johannsen/slapfight/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file (default: $SLAPFIGHT_CONFIG, else built-in defaults)")
	mode := flag.String("mode", "", "simulation mode: ai_vs_ai or scripted")
	input := flag.String("input", "", "scripted input YAML file (scripted mode)")
	matches := flag.Int("matches", 0, "number of matches to run")
	seed := flag.Uint64("seed", 0, "random seed; 0 uses crypto randomness")
	difficulty := flag.String("difficulty", "", "difficulty override: easy, normal, or hard")
	style := flag.String("style", "", "opponent style ID")
	traceDir := flag.String("trace", "", "write JSONL fight traces to this directory")
	realtime := flag.Bool("realtime", false, "pace ticks with the wall clock")
	flag.Parse()

	path, err := config.Resolve(*configPath, os.Getenv)
	if err != nil && !errors.Is(err, config.ErrNoConfig) {
		log.Fatalf("resolving config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if *mode != "" {
		cfg.Simulation.Mode = *mode
	}
	if *input != "" {
		cfg.Simulation.InputFile = *input
	}
	if *matches > 0 {
		cfg.Simulation.Matches = *matches
	}
	if *seed != 0 {
		cfg.Match.Seed = *seed
	}
	if *difficulty != "" {
		cfg.Settings.Difficulty = *difficulty
	}
	if *style != "" {
		cfg.AI.Style = *style
	}
	if *traceDir != "" {
		cfg.Trace.Enabled = true
		cfg.Trace.Dir = *traceDir
	}
	if *realtime {
		cfg.Simulation.Realtime = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid flags: %v", err)
	}

	app, cleanup, err := gameserver.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("initializing simulator: %v", err)
	}
	defer cleanup()
	logger := app.Logger

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("simulator", app.Simulator)

	logger.Info("simulator initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("config", path),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("simulation error", zap.Error(err))
	}

	for i, res := range app.Simulator.Results() {
		winner := res.WinnerName
		if winner == "" {
			winner = "-"
		}
		fmt.Fprintf(os.Stdout, "match %d %s: %s winner=%s hits=%d duration=%.1fs player=%.2f opponent=%.2f\n",
			i+1, res.MatchID, res.Reason, winner, res.Hits, res.Duration, res.PlayerHealth, res.OpponentHealth)
	}
	rep := app.Simulator.Report()
	fmt.Fprintf(os.Stdout, "%d matches: player %d, opponent %d, double KO %d, undecided %d [%s]\n",
		rep.Matches, rep.PlayerWins, rep.OpponentWins, rep.DoubleKOs, rep.Undecided, time.Since(start))
}
