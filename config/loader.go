package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LoadConfig parses a TOML-like configuration from raw bytes, starting
// from DefaultConfig and applying whatever keys are present. It supports
// [ceremony], [server], [participants], and [lock] sections, plain
// key = value pairs, and string arrays ("[a, b, c]").
func LoadConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	section := ""

	for lineNum, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || line[0] == '#' {
			continue
		}
		if line[0] == '[' {
			end := strings.Index(line, "]")
			if end < 0 {
				return nil, fmt.Errorf("line %d: unclosed section header", lineNum+1)
			}
			section = strings.TrimSpace(line[1:end])
			continue
		}
		eqIdx := strings.Index(line, "=")
		if eqIdx < 0 {
			return nil, fmt.Errorf("line %d: expected key = value", lineNum+1)
		}
		key := strings.TrimSpace(line[:eqIdx])
		val := strings.TrimSpace(line[eqIdx+1:])
		if err := applyConfigValue(&cfg, section, key, val, lineNum+1); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func applyConfigValue(cfg *Config, section, key, val string, lineNum int) error {
	switch section {
	case "", "ceremony":
		return applyCeremony(cfg, key, val, lineNum)
	case "server":
		return applyServer(cfg, key, val, lineNum)
	case "participants":
		return applyParticipants(cfg, key, val, lineNum)
	case "lock":
		return applyLock(cfg, key, val, lineNum)
	default:
		return fmt.Errorf("line %d: unknown section [%s]", lineNum, section)
	}
}

func applyCeremony(cfg *Config, key, val string, lineNum int) error {
	switch key {
	case "environment":
		cfg.Environment = unquote(val)
	case "data_dir":
		cfg.DataDir = unquote(val)
	case "curve":
		cfg.Curve = unquote(val)
	case "proving_system":
		cfg.ProvingSystem = unquote(val)
	case "power":
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid power: %w", lineNum, err)
		}
		cfg.Power = uint(n)
	case "batch_size":
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid batch_size: %w", lineNum, err)
		}
		cfg.BatchSize = n
	case "chunk_size":
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid chunk_size: %w", lineNum, err)
		}
		cfg.ChunkSize = n
	case "number_of_chunks":
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid number_of_chunks: %w", lineNum, err)
		}
		cfg.NumberOfChunks = n
	case "contribution_mode":
		cfg.ContributionMode = unquote(val)
	case "compressed_inputs":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("line %d: invalid compressed_inputs: %w", lineNum, err)
		}
		cfg.CompressedInputs = b
	case "compressed_outputs":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("line %d: invalid compressed_outputs: %w", lineNum, err)
		}
		cfg.CompressedOutputs = b
	case "expected_contributions_per_chunk":
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid expected_contributions_per_chunk: %w", lineNum, err)
		}
		cfg.ExpectedContributionsPerChunk = n
	case "coordinator_url":
		cfg.CoordinatorURL = unquote(val)
	default:
		return fmt.Errorf("line %d: unknown key %q in [ceremony]", lineNum, key)
	}
	return nil
}

func applyServer(cfg *Config, key, val string, lineNum int) error {
	switch key {
	case "address":
		cfg.Address = unquote(val)
	case "port":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("line %d: invalid port: %w", lineNum, err)
		}
		cfg.Port = n
	case "cors_allowed_origins":
		cfg.CORSAllowedOrigins = parseStringArray(val)
	default:
		return fmt.Errorf("line %d: unknown key %q in [server]", lineNum, key)
	}
	return nil
}

func applyParticipants(cfg *Config, key, val string, lineNum int) error {
	switch key {
	case "contributors":
		cfg.Contributors = parseStringArray(val)
	case "verifiers":
		cfg.Verifiers = parseStringArray(val)
	case "coordinator_contributor":
		cfg.CoordinatorContributor = unquote(val)
	case "coordinator_verifier":
		cfg.CoordinatorVerifier = unquote(val)
	default:
		return fmt.Errorf("line %d: unknown key %q in [participants]", lineNum, key)
	}
	return nil
}

func applyLock(cfg *Config, key, val string, lineNum int) error {
	switch key {
	case "ttl":
		d, err := time.ParseDuration(unquote(val))
		if err != nil {
			return fmt.Errorf("line %d: invalid ttl: %w", lineNum, err)
		}
		cfg.LockTTL = d
	case "sweep_interval":
		d, err := time.ParseDuration(unquote(val))
		if err != nil {
			return fmt.Errorf("line %d: invalid sweep_interval: %w", lineNum, err)
		}
		cfg.SweepInterval = d
	default:
		return fmt.Errorf("line %d: unknown key %q in [lock]", lineNum, key)
	}
	return nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func parseStringArray(s string) []string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		v := unquote(s)
		if v == "" {
			return nil
		}
		return []string{v}
	}
	inner := s[1 : len(s)-1]
	if strings.TrimSpace(inner) == "" {
		return nil
	}
	parts := strings.Split(inner, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		v := unquote(strings.TrimSpace(p))
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}
