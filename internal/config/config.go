package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL        string
	OracleAddress string
	Pair          string

	PollInterval    time.Duration
	LookbackBlocks  uint64
	RetentionBlocks uint64
	Window          time.Duration
	ChunkSize       uint64
	QueueSize       int
	RPCTimeout      time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	StaleAfter      time.Duration

	Host        string
	Port        int
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string

	SecretKey string
	PublicKey string

	LogLevel string
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load merges config file, environment variables, and flags into Config.
// Environment keys are unprefixed: poll-interval is read from POLL_INTERVAL.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("pair", "BTC/USD")
	v.SetDefault("poll-interval", 15*time.Second)
	v.SetDefault("lookback-blocks", uint64(120))
	v.SetDefault("retention-blocks", uint64(120))
	v.SetDefault("window", time.Hour)
	v.SetDefault("chunk-size", uint64(1000))
	v.SetDefault("queue-size", 1)
	v.SetDefault("rpc-timeout", 10*time.Second)
	v.SetDefault("max-retries", 1)
	v.SetDefault("retry-backoff", 250*time.Millisecond)
	v.SetDefault("stale-after", 2*time.Minute)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 3000)
	v.SetDefault("rate-limit", 50.0)
	v.SetDefault("rate-burst", 100)
	v.SetDefault("cors-origins", "*")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:          strings.TrimSpace(v.GetString("rpc")),
		OracleAddress:   strings.TrimSpace(v.GetString("oracle-address")),
		Pair:            strings.TrimSpace(v.GetString("pair")),
		PollInterval:    v.GetDuration("poll-interval"),
		LookbackBlocks:  v.GetUint64("lookback-blocks"),
		RetentionBlocks: v.GetUint64("retention-blocks"),
		Window:          v.GetDuration("window"),
		ChunkSize:       v.GetUint64("chunk-size"),
		QueueSize:       v.GetInt("queue-size"),
		RPCTimeout:      v.GetDuration("rpc-timeout"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		StaleAfter:      v.GetDuration("stale-after"),
		Host:            v.GetString("host"),
		Port:            v.GetInt("port"),
		RateLimit:       v.GetFloat64("rate-limit"),
		RateBurst:       v.GetInt("rate-burst"),
		CORSOrigins:     getStringSlice(v, "cors-origins"),
		SecretKey:       strings.TrimSpace(v.GetString("secret-key")),
		PublicKey:       strings.TrimSpace(v.GetString("public-key")),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate reports the first setting that cannot start the service.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.OracleAddress == "" {
		return fmt.Errorf("oracle address is required")
	}
	if !common.IsHexAddress(c.OracleAddress) {
		return fmt.Errorf("invalid oracle address: %s", c.OracleAddress)
	}
	if c.Pair == "" {
		return fmt.Errorf("pair is required")
	}
	if len(c.Pair) > common.HashLength {
		return fmt.Errorf("pair %q longer than %d bytes", c.Pair, common.HashLength)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"poll-interval", c.PollInterval},
		{"window", c.Window},
		{"rpc-timeout", c.RPCTimeout},
		{"stale-after", c.StaleAfter},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	// Aggregation only beats when a batch arrives, once per poll.
	if c.StaleAfter <= c.PollInterval {
		return fmt.Errorf("stale-after (%s) must exceed poll-interval (%s)", c.StaleAfter, c.PollInterval)
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry-backoff must not be negative")
	}

	if c.LookbackBlocks == 0 {
		return fmt.Errorf("lookback-blocks must be positive")
	}
	if c.RetentionBlocks == 0 {
		return fmt.Errorf("retention-blocks must be positive")
	}
	if c.ChunkSize == 0 {
		return fmt.Errorf("chunk-size must be positive")
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue-size must be at least 1")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max-retries must not be negative")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate-limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate-burst must be positive when rate limiting is enabled")
	}

	return nil
}

// ListenAddr is the host:port the HTTP server binds to.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
