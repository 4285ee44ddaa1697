package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

const testOracle = "0x7e0F1c2b4a5D6E7f8091a2B3c4D5e6F708192A3b"

var envKeys = []string{
	"RPC", "ORACLE_ADDRESS", "PAIR", "POLL_INTERVAL", "LOOKBACK_BLOCKS",
	"RETENTION_BLOCKS", "WINDOW", "CHUNK_SIZE", "QUEUE_SIZE", "RPC_TIMEOUT",
	"MAX_RETRIES", "RETRY_BACKOFF", "STALE_AFTER", "HOST", "PORT",
	"SECRET_KEY", "PUBLIC_KEY", "RATE_LIMIT", "RATE_BURST", "CORS_ORIGINS", "LOG_LEVEL",
}

// clearEnv blanks every key Load reads. Empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Pair != "BTC/USD" {
		t.Fatalf("pair default mismatch: %s", cfg.Pair)
	}
	if cfg.PollInterval != 15*time.Second || cfg.Window != time.Hour || cfg.StaleAfter != 2*time.Minute {
		t.Fatalf("duration defaults mismatch: %+v", cfg)
	}
	if cfg.LookbackBlocks != 120 || cfg.RetentionBlocks != 120 || cfg.ChunkSize != 1000 {
		t.Fatalf("block defaults mismatch: %+v", cfg)
	}
	if cfg.QueueSize != 1 || cfg.MaxRetries != 1 || cfg.RetryBackoff != 250*time.Millisecond {
		t.Fatalf("worker defaults mismatch: %+v", cfg)
	}
	if cfg.ListenAddr() != "0.0.0.0:3000" {
		t.Fatalf("listen addr mismatch: %s", cfg.ListenAddr())
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("cors default mismatch: %v", cfg.CORSOrigins)
	}
	if cfg.SecretKey != "" || cfg.PublicKey != "" {
		t.Fatalf("keys must default to empty")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPC", "http://localhost:8545")
	t.Setenv("ORACLE_ADDRESS", testOracle)
	t.Setenv("PORT", "8080")
	t.Setenv("POLL_INTERVAL", "30s")
	t.Setenv("SECRET_KEY", " abcd ")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.RPCURL != "http://localhost:8545" || cfg.OracleAddress != testOracle {
		t.Fatalf("chain settings mismatch: %+v", cfg)
	}
	if cfg.Port != 8080 || cfg.PollInterval != 30*time.Second {
		t.Fatalf("overrides not applied: port=%d poll=%s", cfg.Port, cfg.PollInterval)
	}
	if cfg.SecretKey != "abcd" {
		t.Fatalf("secret key not trimmed: %q", cfg.SecretKey)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins mismatch: %v", cfg.CORSOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadFlagsBeatEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 3000, "")
	if err := flags.Parse([]string{"--port", "9090"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Fatalf("flag should win over env, got %d", cfg.Port)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "oracle.yaml")
	body := "rpc: http://node:8545\noracle-address: " + testOracle + "\nwindow: 30m\nretention-blocks: 60\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://node:8545" || cfg.Window != 30*time.Minute || cfg.RetentionBlocks != 60 {
		t.Fatalf("config file not applied: %+v", cfg)
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("STALE_AFTER", "")
	os.Unsetenv("STALE_AFTER")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("STALE_AFTER=5m\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("STALE_AFTER"); got != "5m" {
		t.Fatalf("dotenv value not loaded: %q", got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	base.RPCURL = "http://localhost:8545"
	base.OracleAddress = testOracle
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	cases := map[string]func(c *Config){
		"missing rpc":       func(c *Config) { c.RPCURL = "" },
		"bad address":       func(c *Config) { c.OracleAddress = "0x1234" },
		"long pair":         func(c *Config) { c.Pair = "THIS/PAIR/NAME/IS/LONGER/THAN/32B" },
		"zero poll":         func(c *Config) { c.PollInterval = 0 },
		"zero retention":    func(c *Config) { c.RetentionBlocks = 0 },
		"stale before poll": func(c *Config) { c.PollInterval, c.StaleAfter = 3*time.Minute, 2*time.Minute },
		"stale equals poll": func(c *Config) { c.StaleAfter = c.PollInterval },
		"zero queue":        func(c *Config) { c.QueueSize = 0 },
		"negative retries":  func(c *Config) { c.MaxRetries = -1 },
		"bad port":          func(c *Config) { c.Port = 70000 },
		"burst without cap": func(c *Config) { c.RateBurst = 0 },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
