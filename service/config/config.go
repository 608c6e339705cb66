package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment
// variables. All required fields are validated at startup to ensure
// fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Solana configuration
	SolanaRPCURL string // initial cluster endpoint

	// NATS configuration. Empty disables status event publishing and the
	// SSE streaming endpoints.
	NATSURL string

	// Fixture configuration
	FixturesEnabled bool

	// Seed configuration. When enabled, connecting to a cluster plants a
	// known success/failure transaction pair for demos.
	SeedEnabled         bool
	SeedPrivateKey      string // base58; empty generates a fresh key
	SeedAirdropLamports uint64
}

// Load reads configuration from environment variables and validates all
// required fields. Returns an error if any required configuration is
// missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Solana configuration
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	// NATS configuration (optional)
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Fixture configuration
	fixturesEnabled, err := parseBool("FIXTURES_ENABLED", true)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.FixturesEnabled = fixturesEnabled
	}

	// Seed configuration
	seedEnabled, err := parseBool("SEED_ENABLED", false)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.SeedEnabled = seedEnabled
	}
	cfg.SeedPrivateKey = os.Getenv("SEED_PRIVATE_KEY")

	airdropLamports, err := parseUint("SEED_AIRDROP_LAMPORTS", 1_000_000_000)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.SeedAirdropLamports = airdropLamports
	}

	if err := cfg.validateWith(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt
// startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid. This is useful for
// testing configuration without loading from env.
func (c *Config) Validate() error {
	return c.validateWith(nil)
}

func (c *Config) validateWith(errs []error) error {
	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}
	if c.SeedEnabled && c.SeedAirdropLamports == 0 {
		errs = append(errs, fmt.Errorf("SeedAirdropLamports must be positive when seeding is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default if
// not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseBool parses a boolean from an environment variable or uses a
// default.
func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return result, nil
}

// parseUint parses an unsigned integer from an environment variable or
// uses a default.
func parseUint(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
