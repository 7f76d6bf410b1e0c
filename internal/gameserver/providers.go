package gameserver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/slapfight/internal/config"
	"github.com/cory-johannsen/slapfight/internal/game/ai"
	"github.com/cory-johannsen/slapfight/internal/game/dice"
	"github.com/cory-johannsen/slapfight/internal/observability"
	"github.com/cory-johannsen/slapfight/internal/scripting"
	"github.com/cory-johannsen/slapfight/internal/settings"
)

// globalScriptDir is the scripts subdirectory loaded into the global VM.
const globalScriptDir = "global"

// App is the assembled simulator process.
type App struct {
	Simulator *Simulator
	Logger    *zap.Logger
}

// ProviderSet builds a Simulator from a config.Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideRoller,
	ProvideStyles,
	ProvideScripts,
	ProvidePreferences,
	ProvideInput,
	NewSimulator,
	wire.Bind(new(Preferences), new(*settings.Store)),
)

// ProvideLogger builds the process logger from cfg.Logging.
func ProvideLogger(cfg config.Config) (*zap.Logger, func(), error) {
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideRoller returns a logged roller; a non-zero cfg.Match.Seed makes it
// deterministic.
func ProvideRoller(cfg config.Config, logger *zap.Logger) *dice.Roller {
	src := dice.NewCryptoSource()
	if cfg.Match.Seed != 0 {
		src = dice.NewSeededSource(cfg.Match.Seed)
	}
	return dice.NewLoggedRoller(src, logger)
}

// ProvideStyles loads cfg.AI.StylesDir, or the built-in styles when unset.
func ProvideStyles(cfg config.Config, logger *zap.Logger) (*ai.StyleRegistry, error) {
	reg, err := ai.NewStyleRegistryFromDir(cfg.AI.StylesDir)
	if err != nil {
		return nil, fmt.Errorf("loading styles: %w", err)
	}
	logger.Info("loaded styles", zap.Strings("ids", reg.IDs()))
	return reg, nil
}

// ProvideScripts loads one scope per subdirectory of cfg.Scripting.ScriptsDir.
// The "global" subdirectory becomes the fallback VM. Returns nil when
// scripting is disabled.
//
// Postcondition: the cleanup closes every VM.
func ProvideScripts(cfg config.Config, roller *dice.Roller, logger *zap.Logger) (*scripting.Manager, func(), error) {
	if !cfg.Scripting.Enabled {
		return nil, func() {}, nil
	}
	root := cfg.Scripting.ScriptsDir
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("reading scripts dir %q: %w", root, err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)

	mgr := scripting.NewManager(roller, logger)
	limit := cfg.Scripting.InstructionLimit
	for _, name := range dirs {
		dir := filepath.Join(root, name)
		if name == globalScriptDir {
			err = mgr.LoadGlobal(dir, limit)
		} else {
			err = mgr.LoadScope(name, dir, limit)
		}
		if err != nil {
			mgr.Close()
			return nil, nil, err
		}
	}
	logger.Info("loaded scripts", zap.Strings("scopes", mgr.Scopes()))
	return mgr, mgr.Close, nil
}

// ProvidePreferences opens the per-user preference store.
func ProvidePreferences(cfg config.Config, logger *zap.Logger) (*settings.Store, error) {
	return settings.Open(cfg.Settings.AppName, logger)
}

// ProvideInput loads the scripted gesture file in scripted mode and returns
// nil otherwise.
func ProvideInput(cfg config.Config) ([]PointerEvent, error) {
	if cfg.Simulation.Mode != config.ModeScripted {
		return nil, nil
	}
	return LoadInput(cfg.Simulation.InputFile)
}
