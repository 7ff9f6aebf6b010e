// Command coordinatord runs the ceremony coordinator: the authoritative
// round state, its durable store, and the HTTP API contributors and
// verifiers drive through signed requests.
//
// Usage:
//
//	coordinatord [flags]
//
// Flags:
//
//	--config       Path to a ceremony config file (default: built-in defaults)
//	--datadir      Override the config's data directory
//	--address      Override the config's HTTP bind address
//	--port         Override the config's HTTP bind port
//	--environment  Override the config's environment
//	--version      Print version and exit
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/powersoftau/ceremony/config"
	"github.com/powersoftau/ceremony/coordinator"
	"github.com/powersoftau/ceremony/log"
	"github.com/powersoftau/ceremony/store"
)

// metricsReportInterval is how often ReporterService exports a metrics
// snapshot through the log backend.
const metricsReportInterval = 30 * time.Second

var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. It accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		return code
	}

	log.SetDefault(log.NewForEnvironment(cfg.Environment))
	logger := log.Default().Module("coordinatord")

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	st, err := store.Load(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return 1
	}

	c, err := coordinator.New(cfg, st)
	if err != nil {
		logger.Error("failed to start coordinator", "error", err)
		return 1
	}

	srv := coordinator.NewServer(c)
	sweeper := coordinator.NewSweeper(c)
	srv.RegisterHealthCheck(sweeper.Name(), sweeper)
	reporter := coordinator.NewReporterService(logger.Module("metrics-reporter"), metricsReportInterval)

	lm := coordinator.NewLifecycleManager()
	if err := lm.Register(srv, 0); err != nil {
		logger.Error("failed to register http server", "error", err)
		return 1
	}
	if err := lm.Register(sweeper, 1); err != nil {
		logger.Error("failed to register lock sweeper", "error", err)
		return 1
	}
	if err := lm.Register(reporter, 2); err != nil {
		logger.Error("failed to register metrics reporter", "error", err)
		return 1
	}

	logger.Info("starting coordinatord", "address", cfg.BindAddr(), "data_dir", cfg.DataDir, "environment", cfg.Environment)
	if err := lm.StartAll(); err != nil {
		logger.Error("failed to start services", "error", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig.String())

	if err := lm.StopAll(); err != nil {
		logger.Error("error during shutdown", "error", err)
		return 1
	}
	logger.Info("shutdown complete")
	return 0
}

// parseFlags parses CLI arguments into a config.Config, applying any
// --config file first and flag overrides on top of it.
func parseFlags(args []string) (config.Config, bool, int) {
	var o overrides
	fs := newFlagSet(&o)
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return config.Config{}, true, 2
	}
	if *showVersion {
		fmt.Printf("coordinatord %s (commit %s)\n", version, commit)
		return config.Config{}, true, 0
	}

	cfg := config.DefaultConfig()
	if o.configPath != "" {
		data, err := os.ReadFile(o.configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: reading config file: %v\n", err)
			return config.Config{}, true, 2
		}
		loaded, err := config.LoadConfig(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: parsing config file: %v\n", err)
			return config.Config{}, true, 2
		}
		cfg = *loaded
	}

	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.address != "" {
		cfg.Address = o.address
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.environment != "" {
		cfg.Environment = o.environment
	}

	return cfg, false, 0
}
