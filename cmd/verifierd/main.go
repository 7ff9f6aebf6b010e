// Command verifierd runs one verifier's participation in a ceremony: it
// joins the coordinator's verifier queue, downloads and checks whatever
// chunk it's assigned, and uploads the result, repeating for as long as
// the ceremony has work. Unlike coordinatord, it holds a private key and
// must run on the participant's own machine.
//
// Usage:
//
//	verifierd --keyfile=path/to/key [flags]
//
// Flags:
//
//	--config       Path to a ceremony config file (default: built-in defaults)
//	--keyfile      Path to this verifier's hex-encoded ECDSA private key
//	--coordinator  Override the config's coordinator URL
//	--version      Print version and exit
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/powersoftau/ceremony/auth"
	"github.com/powersoftau/ceremony/config"
	"github.com/powersoftau/ceremony/log"
	"github.com/powersoftau/ceremony/verifierclient"
)

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
	cfg, keyPath, exit, code := parseFlags(args)
	if exit {
		return code
	}

	log.SetDefault(log.NewForEnvironment(cfg.Environment))
	logger := log.Default().Module("verifierd")

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}
	if keyPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --keyfile is required")
		return 2
	}

	priv, err := crypto.LoadECDSA(keyPath)
	if err != nil {
		logger.Error("failed to load private key", "path", keyPath, "error", err)
		return 1
	}
	identity := auth.NewIdentity(priv)

	client, err := verifierclient.NewClient(identity, cfg, logger)
	if err != nil {
		logger.Error("failed to build verifier client", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	logger.Info("starting verifierd", "address", identity.Address.Hex(), "coordinator", cfg.CoordinatorURL)
	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("verifier client exited with error", "error", err)
		return 1
	}
	logger.Info("shutdown complete")
	return 0
}

// parseFlags parses CLI arguments into a config.Config plus the path to
// the verifier's private key file.
func parseFlags(args []string) (config.Config, string, bool, int) {
	var o overrides
	fs := newFlagSet(&o)
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return config.Config{}, "", true, 2
	}
	if *showVersion {
		fmt.Printf("verifierd %s (commit %s)\n", version, commit)
		return config.Config{}, "", true, 0
	}

	cfg := config.DefaultConfig()
	if o.configPath != "" {
		data, err := os.ReadFile(o.configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: reading config file: %v\n", err)
			return config.Config{}, "", true, 2
		}
		loaded, err := config.LoadConfig(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: parsing config file: %v\n", err)
			return config.Config{}, "", true, 2
		}
		cfg = *loaded
	}
	if o.coordinatorURL != "" {
		cfg.CoordinatorURL = o.coordinatorURL
	}

	return cfg, o.keyPath, false, 0
}
