// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	JupiterAPIBase          string `mapstructure:"jupiter_api_base"`
	RPCURL                  string `mapstructure:"rpc_url"`
	PrivateKey              string `mapstructure:"private_key"`
	RequestTimeoutMs        int    `mapstructure:"request_timeout_ms"`
	PriceQuietMs            int    `mapstructure:"price_quiet_ms"`
	RouteQuietMs            int    `mapstructure:"route_quiet_ms"`
	PriceSlippageBps        int    `mapstructure:"price_slippage_bps"`
	SlippageBps             int    `mapstructure:"slippage_bps"`
	ConfirmPollMs           int    `mapstructure:"confirm_poll_ms"`
	ConfirmTimeoutMs        int    `mapstructure:"confirm_timeout_ms"`
	PriorityLevel           string `mapstructure:"priority_level"`
	MaxPriorityFeeLamports  uint64 `mapstructure:"max_priority_fee_lamports"`
	DynamicComputeUnitLimit bool   `mapstructure:"dynamic_compute_unit_limit"`
	DynamicSlippage         bool   `mapstructure:"dynamic_slippage"`
	DebugLogging            bool   `mapstructure:"debug_logging"`
	LogFile                 string `mapstructure:"log_file"`
	JournalPath             string `mapstructure:"journal_path"`
}

const (
	DefaultJupiterAPIBase         = "https://lite-api.jup.ag"
	DefaultRPCURL                 = "https://api.mainnet-beta.solana.com"
	DefaultRequestTimeoutMs       = 10000
	DefaultPriceQuietMs           = 500
	DefaultRouteQuietMs           = 1000
	DefaultPriceSlippageBps       = 50
	DefaultSlippageBps            = 50
	DefaultConfirmPollMs          = 500
	DefaultConfirmTimeoutMs       = 30000
	DefaultPriorityLevel          = "veryHigh"
	DefaultMaxPriorityFeeLamports = 1_000_000
	DefaultLogFile                = "jupiter-swap.log"
	DefaultJournalPath            = "swaps.jsonl"

	// MaxSlippageBps is 100%.
	MaxSlippageBps = 10000

	envPrefix = "JUPITER_SWAP"
)

var keys = []string{
	"jupiter_api_base", "rpc_url", "private_key", "request_timeout_ms",
	"price_quiet_ms", "route_quiet_ms", "price_slippage_bps", "slippage_bps",
	"confirm_poll_ms", "confirm_timeout_ms", "priority_level",
	"max_priority_fee_lamports", "dynamic_compute_unit_limit",
	"dynamic_slippage", "debug_logging", "log_file", "journal_path",
}

// LoadConfig reads path (JSON or YAML) when it is non-empty, then applies
// JUPITER_SWAP_* environment overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"jupiter_api_base":           DefaultJupiterAPIBase,
		"rpc_url":                    DefaultRPCURL,
		"request_timeout_ms":         DefaultRequestTimeoutMs,
		"price_quiet_ms":             DefaultPriceQuietMs,
		"route_quiet_ms":             DefaultRouteQuietMs,
		"price_slippage_bps":         DefaultPriceSlippageBps,
		"slippage_bps":               DefaultSlippageBps,
		"confirm_poll_ms":            DefaultConfirmPollMs,
		"confirm_timeout_ms":         DefaultConfirmTimeoutMs,
		"priority_level":             DefaultPriorityLevel,
		"max_priority_fee_lamports":  DefaultMaxPriorityFeeLamports,
		"dynamic_compute_unit_limit": true,
		"dynamic_slippage":           true,
		"log_file":                   DefaultLogFile,
		"journal_path":               DefaultJournalPath,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees env values for keys viper already knows about.
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.JupiterAPIBase = strings.TrimRight(cfg.JupiterAPIBase, "/")

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if err := validateURLWithCache(cfg.JupiterAPIBase, "http"); err != nil {
		return fmt.Errorf("invalid jupiter_api_base: %w", err)
	}
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	switch cfg.PriorityLevel {
	case "medium", "high", "veryHigh":
	default:
		return fmt.Errorf("invalid priority_level %q", cfg.PriorityLevel)
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.RequestTimeoutMs <= 0 {
		return errors.New("invalid request_timeout_ms")
	}
	if cfg.PriceQuietMs <= 0 {
		return errors.New("invalid price_quiet_ms")
	}
	if cfg.RouteQuietMs <= 0 {
		return errors.New("invalid route_quiet_ms")
	}
	if cfg.PriceSlippageBps < 0 || cfg.PriceSlippageBps > MaxSlippageBps {
		return errors.New("invalid price_slippage_bps")
	}
	if cfg.SlippageBps < 0 || cfg.SlippageBps > MaxSlippageBps {
		return errors.New("invalid slippage_bps")
	}
	if cfg.ConfirmPollMs <= 0 {
		return errors.New("invalid confirm_poll_ms")
	}
	if cfg.ConfirmTimeoutMs < cfg.ConfirmPollMs {
		return errors.New("confirm_timeout_ms must not be shorter than confirm_poll_ms")
	}
	if cfg.MaxPriorityFeeLamports == 0 {
		return errors.New("invalid max_priority_fee_lamports")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c *Config) RequestTimeout() time.Duration { return ms(c.RequestTimeoutMs) }
func (c *Config) PriceQuietPeriod() time.Duration { return ms(c.PriceQuietMs) }
func (c *Config) RouteQuietPeriod() time.Duration { return ms(c.RouteQuietMs) }
func (c *Config) ConfirmPollInterval() time.Duration { return ms(c.ConfirmPollMs) }
func (c *Config) ConfirmTimeout() time.Duration { return ms(c.ConfirmTimeoutMs) }
