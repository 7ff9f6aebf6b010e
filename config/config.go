// Package config holds the shared configuration surface for both
// coordinatord and verifierd, and the TOML-like file format they load it
// from.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/powersoftau/ceremony/accumulator"
	"github.com/powersoftau/ceremony/buffercodec"
	"github.com/powersoftau/ceremony/groupmath"
)

// Config holds every tunable named in spec.md §6 "Configuration options",
// plus the lock-sweep interval this repo's SPEC_FULL.md adds.
type Config struct {
	// Environment is "test", "development" or "production". It selects the
	// log formatter, and "production" forbids round directory resets.
	Environment string

	// DataDir is the ceremony store's root directory.
	DataDir string

	// Curve names the pairing-friendly curve ("Bls12_377" or "BW6_761").
	Curve string

	// ProvingSystem names the target proof system ("Groth16" or "Marlin").
	ProvingSystem string

	// Power sets the ceremony size: the τ vector covers 2^Power elements.
	Power uint

	// BatchSize bounds the element count processed per goroutine inside
	// the accumulator engine.
	BatchSize uint64

	// ChunkSize is the number of elements assigned to one chunk.
	ChunkSize uint64

	// NumberOfChunks is the fixed chunk count for every round.
	NumberOfChunks uint64

	// ContributionMode is "Chunked" or "Full".
	ContributionMode string

	// CompressedInputs/CompressedOutputs select the serialization format
	// for stored accumulator files.
	CompressedInputs  bool
	CompressedOutputs bool

	// ExpectedContributionsPerChunk is carried into each fresh RoundState.
	ExpectedContributionsPerChunk uint64

	// Contributors and Verifiers are the authorized participant address
	// lists for the first round; later rounds' lists come from the
	// next_round call instead.
	Contributors []string
	Verifiers    []string

	// CoordinatorContributor and CoordinatorVerifier are well-known
	// placeholder participants that own round 1's carried-over
	// contribution 0, since it was produced by Initialize rather than by
	// a real contributor or verifier.
	CoordinatorContributor string
	CoordinatorVerifier    string

	// Address and Port are the coordinator's HTTP bind address.
	Address string
	Port    int

	// CORSAllowedOrigins configures the coordinator's CORS middleware.
	CORSAllowedOrigins []string

	// LockTTL bounds how long a chunk lock may be held before the
	// coordinator's sweeper reclaims it; SweepInterval is how often the
	// sweeper runs.
	LockTTL       time.Duration
	SweepInterval time.Duration

	// CoordinatorURL is the base URL verifierd polls against. Unused by
	// coordinatord.
	CoordinatorURL string
}

// DefaultConfig returns a Config with sensible defaults for a small
// development ceremony.
func DefaultConfig() Config {
	return Config{
		Environment:                   "development",
		DataDir:                       "./ceremony-data",
		Curve:                         "Bls12_377",
		ProvingSystem:                 "Groth16",
		Power:                         10,
		BatchSize:                     64,
		ChunkSize:                     1024,
		NumberOfChunks:                1,
		ContributionMode:              "Chunked",
		CompressedInputs:              false,
		CompressedOutputs:             true,
		ExpectedContributionsPerChunk: 1,
		CoordinatorContributor:        "0x0000000000000000000000000000000000000000",
		CoordinatorVerifier:           "0x0000000000000000000000000000000000000001",
		Address:                       "127.0.0.1",
		Port:                          8080,
		CORSAllowedOrigins:            []string{"*"},
		LockTTL:                       10 * time.Minute,
		SweepInterval:                 30 * time.Second,
		CoordinatorURL:                "http://127.0.0.1:8080",
	}
}

// Validate checks configuration values for correctness and internal
// consistency, rejecting the Marlin/Chunked combination the same way
// accumulator.New does so misconfiguration surfaces at startup.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("config: data_dir must not be empty")
	}
	if _, err := groupmath.ParseCurveKind(c.Curve); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ps, err := c.provingSystem()
	if err != nil {
		return err
	}
	mode, err := c.contributionMode()
	if err != nil {
		return err
	}
	if ps == buffercodec.Marlin && mode == accumulator.Chunked {
		return accumulator.ErrMarlinRequiresFullMode
	}
	if c.BatchSize == 0 {
		return errors.New("config: batch_size must be positive")
	}
	if c.ChunkSize == 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.NumberOfChunks == 0 {
		return errors.New("config: number_of_chunks must be positive")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port: %d", c.Port)
	}
	if c.LockTTL <= 0 {
		return errors.New("config: lock_ttl must be positive")
	}
	if c.SweepInterval <= 0 {
		return errors.New("config: sweep_interval must be positive")
	}
	switch c.Environment {
	case "test", "development", "production":
	default:
		return fmt.Errorf("config: unknown environment %q", c.Environment)
	}
	return nil
}

// AllowsRoundDirectoryReset reports whether Config.Environment permits the
// destructive round_directory_reset operation (spec.md §6: gated to
// Test/Development, never Production).
func (c *Config) AllowsRoundDirectoryReset() bool {
	return c.Environment != "production"
}

func (c *Config) provingSystem() (buffercodec.ProvingSystem, error) {
	switch c.ProvingSystem {
	case "Groth16":
		return buffercodec.Groth16, nil
	case "Marlin":
		return buffercodec.Marlin, nil
	default:
		return 0, fmt.Errorf("config: unknown proving_system %q", c.ProvingSystem)
	}
}

func (c *Config) contributionMode() (accumulator.Mode, error) {
	switch c.ContributionMode {
	case "Chunked":
		return accumulator.Chunked, nil
	case "Full":
		return accumulator.Full, nil
	default:
		return 0, fmt.Errorf("config: unknown contribution_mode %q", c.ContributionMode)
	}
}

// CurveKind resolves the configured curve name.
func (c *Config) CurveKind() (groupmath.CurveKind, error) {
	return groupmath.ParseCurveKind(c.Curve)
}

// AccumulatorParams builds the Params accumulator.New expects for chunk
// chunkIndex, assuming Validate has already succeeded.
func (c *Config) AccumulatorParams(chunkIndex uint64) accumulator.Params {
	curve, _ := c.CurveKind()
	ps, _ := c.provingSystem()
	mode, _ := c.contributionMode()
	return accumulator.Params{
		Curve:         curve,
		Power:         c.Power,
		BatchSize:     c.BatchSize,
		ChunkSize:     c.ChunkSize,
		ChunkIndex:    chunkIndex,
		ProvingSystem: ps,
		Mode:          mode,
	}
}

// BindAddr returns the coordinator's HTTP listen address.
func (c *Config) BindAddr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}
