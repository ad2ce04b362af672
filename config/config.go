package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	RPC        RPCConfig
	Aggregator AggregatorConfig
	Sponsor    SponsorConfig
	Octane     OctaneConfig
	Tokens     TokensConfig
	Redis      RedisConfig
	Quote      QuoteConfig
	Fee        FeeConfig
	JIT        JITConfig
	Confirm    ConfirmConfig
	Ramp       RampConfig
	Display    DisplayConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Wallet     WalletConfig
}

// RPCConfig configures the Solana RPC endpoint
type RPCConfig struct {
	URL        string
	Commitment string
	MaxRetries uint
}

// AggregatorConfig configures the quote/swap aggregator API
type AggregatorConfig struct {
	BaseURL     string
	SlippageBps int
	FeeAccount  string
}

// SponsorConfig configures the fee sponsorship backend
type SponsorConfig struct {
	URL string
}

// OctaneConfig configures the fee-coverage route builder
type OctaneConfig struct {
	URL string
}

// TokensConfig configures the token directory
type TokensConfig struct {
	URL             string
	CacheTTL        time.Duration
	PageSize        int
	InitialPageSize int
	Cache           string
	CachePath       string
}

// RedisConfig is used when the token cache backend is redis
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type QuoteConfig struct {
	Debounce time.Duration
}

// FeeConfig holds the network fee estimation constants
type FeeConfig struct {
	BufferMultiplier  float64
	MinNative         float64
	SignatureLamports uint64
	BaseLamports      uint64
}

type JITConfig struct {
	PacingDelay    time.Duration
	SlippageBuffer float64
}

type ConfirmConfig struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// RampConfig configures the fiat on/off-ramp backend
type RampConfig struct {
	BaseURL         string
	MinUSD          float64
	FallbackNGNRate float64
}

type DisplayConfig struct {
	NativeUSDPrice float64
}

type LogConfig struct {
	Level string
	File  string
}

type MetricsConfig struct {
	Addr string
}

type WalletConfig struct {
	PrivateKey string
}

var globalConfig *Config

// ConfigFile overrides the config file lookup when set (--config flag)
var ConfigFile string

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc.url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc.commitment", "confirmed")
	v.SetDefault("rpc.max_retries", 2)

	v.SetDefault("aggregator.base_url", "https://quote-api.jup.ag/v6")
	v.SetDefault("aggregator.slippage_bps", 50)
	v.SetDefault("aggregator.fee_account", "")

	v.SetDefault("sponsor.url", "")
	v.SetDefault("octane.url", "")

	v.SetDefault("tokens.url", "https://tokens.jup.ag/tokens?tags=verified")
	v.SetDefault("tokens.cache_ttl", 5*time.Minute)
	v.SetDefault("tokens.page_size", 10)
	v.SetDefault("tokens.initial_page_size", 30)
	v.SetDefault("tokens.cache", "memory")
	v.SetDefault("tokens.cache_path", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("quote.debounce", 500*time.Millisecond)

	v.SetDefault("fee.buffer_multiplier", 1.2)
	v.SetDefault("fee.min_native", 0.001)
	v.SetDefault("fee.signature_lamports", 5000)
	v.SetDefault("fee.base_lamports", 5000)

	v.SetDefault("jit.pacing_delay", time.Second)
	v.SetDefault("jit.slippage_buffer", 1.02)

	v.SetDefault("confirm.timeout", 60*time.Second)
	v.SetDefault("confirm.poll_interval", 2*time.Second)

	v.SetDefault("ramp.base_url", "")
	v.SetDefault("ramp.min_usd", 5.0)
	v.SetDefault("ramp.fallback_ngn_rate", 1450.0)

	v.SetDefault("display.native_usd_price", 20.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("wallet.private_key", "")
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	v := viper.New()
	if ConfigFile != "" {
		v.SetConfigFile(ConfigFile)
	} else {
		v.SetConfigName(".solramp")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	// SOLRAMP_RPC_URL, SOLRAMP_WALLET_PRIVATE_KEY, ...
	v.SetEnvPrefix("SOLRAMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		RPC: RPCConfig{
			URL:        v.GetString("rpc.url"),
			Commitment: v.GetString("rpc.commitment"),
			MaxRetries: v.GetUint("rpc.max_retries"),
		},
		Aggregator: AggregatorConfig{
			BaseURL:     v.GetString("aggregator.base_url"),
			SlippageBps: v.GetInt("aggregator.slippage_bps"),
			FeeAccount:  v.GetString("aggregator.fee_account"),
		},
		Sponsor: SponsorConfig{URL: v.GetString("sponsor.url")},
		Octane:  OctaneConfig{URL: v.GetString("octane.url")},
		Tokens: TokensConfig{
			URL:             v.GetString("tokens.url"),
			CacheTTL:        v.GetDuration("tokens.cache_ttl"),
			PageSize:        v.GetInt("tokens.page_size"),
			InitialPageSize: v.GetInt("tokens.initial_page_size"),
			Cache:           v.GetString("tokens.cache"),
			CachePath:       v.GetString("tokens.cache_path"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Quote: QuoteConfig{Debounce: v.GetDuration("quote.debounce")},
		Fee: FeeConfig{
			BufferMultiplier:  v.GetFloat64("fee.buffer_multiplier"),
			MinNative:         v.GetFloat64("fee.min_native"),
			SignatureLamports: v.GetUint64("fee.signature_lamports"),
			BaseLamports:      v.GetUint64("fee.base_lamports"),
		},
		JIT: JITConfig{
			PacingDelay:    v.GetDuration("jit.pacing_delay"),
			SlippageBuffer: v.GetFloat64("jit.slippage_buffer"),
		},
		Confirm: ConfirmConfig{
			Timeout:      v.GetDuration("confirm.timeout"),
			PollInterval: v.GetDuration("confirm.poll_interval"),
		},
		Ramp: RampConfig{
			BaseURL:         v.GetString("ramp.base_url"),
			MinUSD:          v.GetFloat64("ramp.min_usd"),
			FallbackNGNRate: v.GetFloat64("ramp.fallback_ngn_rate"),
		},
		Display: DisplayConfig{NativeUSDPrice: v.GetFloat64("display.native_usd_price")},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
		Metrics: MetricsConfig{Addr: v.GetString("metrics.addr")},
		Wallet:  WalletConfig{PrivateKey: v.GetString("wallet.private_key")},
	}
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	if c.RPC.URL == "" {
		return fmt.Errorf("rpc.url must not be empty")
	}
	if c.Aggregator.BaseURL == "" {
		return fmt.Errorf("aggregator.base_url must not be empty")
	}
	if c.Aggregator.SlippageBps < 0 || c.Aggregator.SlippageBps > 10000 {
		return fmt.Errorf("aggregator.slippage_bps must be between 0 and 10000, got %d", c.Aggregator.SlippageBps)
	}
	if c.Tokens.PageSize <= 0 || c.Tokens.InitialPageSize <= 0 {
		return fmt.Errorf("tokens page sizes must be positive")
	}
	switch c.Tokens.Cache {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("tokens.cache must be one of memory/file/redis, got %q", c.Tokens.Cache)
	}
	if c.Fee.BufferMultiplier < 1 {
		return fmt.Errorf("fee.buffer_multiplier must be >= 1, got %v", c.Fee.BufferMultiplier)
	}
	if c.Fee.MinNative < 0 {
		return fmt.Errorf("fee.min_native must not be negative")
	}
	if c.JIT.SlippageBuffer < 1 {
		return fmt.Errorf("jit.slippage_buffer must be >= 1, got %v", c.JIT.SlippageBuffer)
	}
	if c.Confirm.PollInterval <= 0 || c.Confirm.Timeout <= 0 {
		return fmt.Errorf("confirm.timeout and confirm.poll_interval must be positive")
	}
	if c.Ramp.MinUSD < 0 || c.Ramp.FallbackNGNRate <= 0 {
		return fmt.Errorf("ramp.min_usd must not be negative and ramp.fallback_ngn_rate must be positive")
	}
	return nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
