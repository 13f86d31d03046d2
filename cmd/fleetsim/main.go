// Command fleetsim runs the vehicle simulation headless and records it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/avnav/fleetsim/internal/api"
	"github.com/avnav/fleetsim/internal/config"
	"github.com/avnav/fleetsim/internal/dispatcher"
	"github.com/avnav/fleetsim/internal/engine"
	"github.com/avnav/fleetsim/internal/influx"
	"github.com/avnav/fleetsim/internal/logging"
	"github.com/avnav/fleetsim/internal/monitor"
	intOtel "github.com/avnav/fleetsim/internal/otel"
	"github.com/avnav/fleetsim/internal/planner"
	"github.com/avnav/fleetsim/internal/sim"
	"github.com/avnav/fleetsim/internal/storage"
	"github.com/avnav/fleetsim/internal/worker"
	"github.com/avnav/fleetsim/pkg/core"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - Version can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "fleetsim"
)

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()

	// runner is read by the log context provider
	runner *sim.Runner
)

func main() {
	var opts options
	fs := newFlagSet(&opts)
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, fs *pflag.FlagSet) error {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	// load config
	if err := config.Load(opts.ConfigDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", opts.ConfigDir)
	}
	if err := bindFlags(fs); err != nil {
		return err
	}

	sessionLog, err := logging.OpenSessionLog(viper.GetString("logsDir"), AppName, SessionStartTime)
	if err != nil {
		return err
	}
	defer sessionLog.File.Close()

	setupLogging(sessionLog.File, sessionLog.Path)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := SlogManager.Flush(flushCtx); err != nil {
			Logger.Warn("Failed to flush logs", "error", err)
		}
		if OTelProvider != nil {
			if err := OTelProvider.Shutdown(flushCtx); err != nil {
				Logger.Warn("Failed to shut down OTel", "error", err)
			}
		}
	}()

	level := viper.GetString("logLevel")
	infraLog := logging.NewZerolog(sessionLog.File, level)

	// telemetry
	var telemetry worker.TelemetryWriter
	influxManager := influx.NewManager(infraLog.With().Str("component", "influx").Logger(), config.GetInfluxConfig(),
		filepath.Join(viper.GetString("logsDir"), fmt.Sprintf("%s_influx_backup_%s.lp.gz", AppName, SessionStartTime.Format("20060102_150405"))))
	switch err := influxManager.Connect(ctx); {
	case errors.Is(err, influx.ErrDisabled):
		Logger.Debug("InfluxDB disabled")
	case err != nil:
		Logger.Error("Failed to set up InfluxDB", "error", err)
	default:
		telemetry = influxManager
		defer influxManager.Close()
	}

	// storage
	storageCfg := config.GetStorageConfig()
	backend, err := initStorage(storageCfg, storageDeps{
		LogManager: SlogManager,
		DBLogger:   infraLog.With().Str("component", "database").Logger(),
		DBConfig:   config.GetDBConfig(),
		OutputDir:  storageCfg.Memory.OutputDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	recorder := worker.NewManager(worker.Dependencies{
		LogManager: SlogManager,
		Telemetry:  telemetry,
	}, backend)

	// simulation
	simCfg := config.GetSimConfig()
	mapVariant, err := core.ParseMapVariant(simCfg.Map)
	if err != nil {
		return err
	}
	seed := simCfg.Seed
	if seed == 0 {
		seed = SessionStartTime.UnixNano()
	}

	plannerCfg := config.GetPlannerConfig()
	eng := engine.New(
		engine.WithSeed(seed),
		engine.WithMapVariant(mapVariant),
		engine.WithLogger(Logger.With("component", "engine")),
		engine.WithPlanner(planner.New(
			planner.WithStepSize(plannerCfg.StepSize),
			planner.WithMaxIterations(plannerCfg.MaxIterations),
			planner.WithLogger(Logger.With("component", "planner")),
		)),
	)

	runner, err = sim.New(eng,
		sim.WithRecorder(recorder),
		sim.WithLogger(Logger.With("component", "sim")),
		sim.WithMeter(OTelProvider.Meter("github.com/avnav/fleetsim/internal/sim")),
		sim.WithParallelism(simCfg.Parallelism),
		sim.WithAutoRoam(simCfg.AutoRoam),
		sim.WithTickInterval(simCfg.TickInterval),
		sim.WithSpeedMultiplier(simCfg.SpeedMultiplier),
		sim.WithFleetSize(simCfg.Vehicles),
		sim.WithTrafficCount(simCfg.Traffic),
		sim.WithSelected(simCfg.Selected),
		sim.WithArrivalHandler(func(v core.Vehicle) {
			Logger.Info("Vehicle reached destination", "vehicle", v.ID, "position", v.Position.String())
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	eventDispatcher, err := dispatcher.New(logging.NewDispatcherLogger(infraLog.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	defer eventDispatcher.Close()
	runner.RegisterHandlers(eventDispatcher)
	Logger.Info("Command handlers registered", "commands", len(eventDispatcher.Commands()))

	monitorService := monitor.NewService(monitor.Dependencies{
		DB:         dbOf(backend),
		LogManager: SlogManager,
		Runner:     runner,
		Recorder:   recorder,
		OutputDir:  opts.StatusDir,
	})
	if opts.StatusDir != "" {
		if err := monitorService.Start(); err != nil {
			Logger.Error("Failed to start status monitor", "error", err)
		}
		defer monitorService.Stop()
	}

	// recording
	simRun := core.NewRun(opts.RunName, mapVariant, seed, SessionStartTime)
	if err := recorder.StartRun(simRun); err != nil {
		return err
	}
	Logger.Info("Simulation started", "run", simRun.ID, "map", string(mapVariant), "seed", seed, "version", Version)

	if opts.Console {
		go func() {
			if err := runConsole(ctx, eventDispatcher, os.Stdin, os.Stdout); err != nil {
				Logger.Error("Console stopped", "error", err)
			}
		}()
	}

	runErr := runner.Run(ctx, simCfg.MaxTicks)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	if err := recorder.EndRun(); err != nil {
		Logger.Error("Failed to end run", "error", err)
	}
	ticks := runner.World().Tick
	Logger.Info("Simulation stopped", "ticks", ticks)

	if apiCfg := config.GetAPIConfig(); apiCfg.Upload {
		if path, ok := storage.ExportedPath(backend); ok {
			uploadRecording(api.New(apiCfg.ServerURL, apiCfg.APIKey), path, api.MetadataFor(simRun, ticks, time.Now()))
		}
	}
	return runErr
}

// uploadRecording sends the exported run file to the dashboard.
func uploadRecording(client *api.Client, path string, meta api.UploadMetadata) {
	if err := client.Healthcheck(); err != nil {
		Logger.Warn("Dashboard not reachable, skipping upload", "error", err)
		return
	}
	if err := client.Upload(path, meta); err != nil {
		Logger.Error("Failed to upload recording", "path", path, "error", err)
		return
	}
	Logger.Info("Recording uploaded", "path", path, "run", meta.RunID)
}

func setupLogging(logFile *os.File, logFilePath string) {
	var err error

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: Version,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      logFile,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			Logger.Info("OTel provider initialized", "file", logFilePath, "endpoint", otelCfg.Endpoint)
		}
	}

	if config.GetBool("graylog.enabled") {
		gw, err := logging.NewGraylogWriter(config.GetString("graylog.address"), AppName)
		if err != nil {
			Logger.Error("Failed to set up Graylog", "error", err)
		} else {
			SlogManager.Graylog = gw
		}
	}

	SlogManager.Context = func() []slog.Attr {
		if runner == nil {
			return nil
		}
		return runner.LogAttrs()
	}

	// Re-setup logging with file output and optional OTel
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(logFile, viper.GetString("logLevel"), otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", logFilePath, "build", BuildDate)
}
