package main

import (
	"fmt"

	"github.com/avnav/fleetsim/internal/config"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"log-level":   "logLevel",
	"logs-dir":    "logsDir",
	"map":         "sim.map",
	"seed":        "sim.seed",
	"ticks":       "sim.maxTicks",
	"speed":       "sim.speedMultiplier",
	"vehicles":    "sim.vehicles",
	"traffic":     "sim.traffic",
	"parallelism": "sim.parallelism",
	"auto-roam":   "sim.autoRoam",
	"storage":     "storage.type",
	"output-dir":  "storage.memory.outputDir",
	"upload":      "api.upload",
}

type options struct {
	ConfigDir string
	RunName   string
	Console   bool
	StatusDir string
}

func newFlagSet(opts *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.StringVar(&opts.ConfigDir, "config-dir", ".", "directory holding "+config.FileName)
	fs.StringVar(&opts.RunName, "name", AppName, "name of the recorded run")
	fs.BoolVar(&opts.Console, "console", false, "read commands from stdin")
	fs.StringVar(&opts.StatusDir, "status-dir", "", "write status.txt here every second")

	fs.String("log-level", "info", "debug, info, warn or error")
	fs.String("logs-dir", "./fleetlogs", "directory for log files")
	fs.String("map", "warehouse", "warehouse or city")
	fs.Int64("seed", 0, "random seed, 0 picks one")
	fs.Int("ticks", 0, "stop after this many ticks, 0 runs until interrupted")
	fs.Float64("speed", 1, "simulation speed multiplier")
	fs.Int("vehicles", 0, "fleet size, 0 uses the map default")
	fs.Int("traffic", 5, "traffic zones generated on reset")
	fs.Int("parallelism", 4, "concurrent vehicle updates per tick")
	fs.Bool("auto-roam", true, "give idle city vehicles new destinations")
	fs.String("storage", "memory", "memory, sqlite, postgres or websocket")
	fs.String("output-dir", "./recordings", "memory backend export directory")
	fs.Bool("upload", false, "upload the exported recording when the run ends")
	return fs
}

// bindFlags makes every mapped flag override its config key when set.
func bindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			return fmt.Errorf("flag %q is not defined", name)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}
	return nil
}
