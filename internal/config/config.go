// Package config defines the top-level configuration for the spot arbitrage
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SPOTARB_* environment variables.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Market   MarketConfig   `toml:"market"`
	Strategy StrategyConfig `toml:"strategy"`
	Venues   []VenueConfig  `toml:"venues"`
	Sim      SimConfig      `toml:"sim"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// EngineConfig holds the tick loop and portfolio parameters.
type EngineConfig struct {
	Assets         []string `toml:"assets"`
	QuoteCurrency  string   `toml:"quote_currency"`
	TickInterval   duration `toml:"tick_interval"`
	StatusEvery    int      `toml:"status_every"` // log a summary every N ticks
	InitialBalance float64  `toml:"initial_balance"`
	SeedPositions  bool     `toml:"seed_positions"`
	DataDir        string   `toml:"data_dir"`
}

// MarketConfig holds market-data cache and fetch parameters.
type MarketConfig struct {
	CacheTTL duration `toml:"cache_ttl"` // <= 0 means snapshots are always stale
	// PricePolicy selects the consensus price: "first_valid" or "median".
	PricePolicy  string   `toml:"price_policy"`
	FetchRetries int      `toml:"fetch_retries"`
	RetryDelay   duration `toml:"retry_delay"`
}

// StrategyConfig holds detector thresholds shared by all detectors plus the
// per-detector sections.
type StrategyConfig struct {
	MinBasis           float64 `toml:"min_basis"`            // minimum fee-adjusted profit rate
	MaxPriceDrift      float64 `toml:"max_price_drift"`      // execution-time price recheck tolerance
	MinProfit          float64 `toml:"min_profit"`           // minimum absolute quote profit per trade
	MinAmount          float64 `toml:"min_amount"`           // hard floor on trade quantity
	SafeAmount         float64 `toml:"safe_amount"`          // target quote notional per trade
	MarketImpactFactor float64 `toml:"market_impact_factor"` // fraction of top-3 depth a trade may take
	BalanceCapFactor   float64 `toml:"balance_cap_factor"`   // fraction of funding balance a trade may use

	Balance BalanceConfig `toml:"balance"`
	Resting RestingConfig `toml:"resting"`
	Hedge   HedgeConfig   `toml:"hedge"`
}

// BalanceConfig holds the inventory-balance detector parameters.
type BalanceConfig struct {
	MinDeviation    float64 `toml:"min_deviation"`    // ignore deviations below this share
	MaxDeviation    float64 `toml:"max_deviation"`    // mandatory rebalance beyond this share
	ProfitThreshold float64 `toml:"profit_threshold"` // required spread after fees for optional moves
	// MaxTransfer caps one rebalance quantity; 0 means 10x the dynamic minimum.
	MaxTransfer float64 `toml:"max_transfer"`
}

// RestingConfig holds the resting-order detector and lifecycle parameters.
type RestingConfig struct {
	ThresholdFraction float64  `toml:"threshold_fraction"` // fraction of min_basis a maker quote must clear
	PriceAdjust       float64  `toml:"price_adjust"`       // quote improvement applied at creation
	TriggerDrift      float64  `toml:"trigger_drift"`      // drift tolerance when a resting order fires
	MinProfit         float64  `toml:"min_profit"`         // minimum quote profit for a triggered order
	OrderTimeout      duration `toml:"order_timeout"`
	MaxOrders         int      `toml:"max_orders"`
	MaxTotalValue     float64  `toml:"max_total_value"` // cap on summed resting notional
}

// HedgeConfig holds the cancelled-order hedge parameters.
type HedgeConfig struct {
	MinCancelledVolume    float64 `toml:"min_cancelled_volume"`
	PositionDiffThreshold float64 `toml:"position_diff_threshold"`
	FundingMargin         float64 `toml:"funding_margin"` // quote buffer when sizing a hedge buy
}

// VenueConfig describes one simulated venue.
type VenueConfig struct {
	Name           string  `toml:"name"`
	Label          string  `toml:"label"`
	MakerFee       float64 `toml:"maker_fee"`
	TakerFee       float64 `toml:"taker_fee"`
	PriceOffsetBps float64 `toml:"price_offset_bps"` // persistent skew from the reference price
	SpreadBps      float64 `toml:"spread_bps"`
	DepthLevels    int     `toml:"depth_levels"`
	FailRate       float64 `toml:"fail_rate"` // probability a depth request errors
}

// SimConfig holds the shared price-model parameters for simulated venues.
type SimConfig struct {
	StartPrices   map[string]float64 `toml:"start_prices"`
	VolatilityBps float64            `toml:"volatility_bps"` // per-step random walk amplitude
	BaseDepth     float64            `toml:"base_depth"`     // size at the top level
	Seed          int64              `toml:"seed"`           // 0 seeds from the clock
}

// PostgresConfig holds PostgreSQL connection parameters for the outcome store.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the signal bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig holds parameters for draining old outcomes to object storage.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// LoggingConfig holds optional on-disk log output with rotation. When File is
// empty, logs go to stdout only.
type LoggingConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "100s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			Assets:         []string{"BTC"},
			QuoteCurrency:  "USDT",
			TickInterval:   duration{1 * time.Second},
			StatusEvery:    10,
			InitialBalance: 10000,
			SeedPositions:  true,
			DataDir:        "data",
		},
		Market: MarketConfig{
			CacheTTL:     duration{100 * time.Second},
			PricePolicy:  "first_valid",
			FetchRetries: 3,
			RetryDelay:   duration{1 * time.Second},
		},
		Strategy: StrategyConfig{
			MinBasis:           0.001,
			MaxPriceDrift:      0.008,
			MinProfit:          0.001,
			MinAmount:          0.001,
			SafeAmount:         50,
			MarketImpactFactor: 0.2,
			BalanceCapFactor:   0.8,
			Balance: BalanceConfig{
				MinDeviation:    0.05,
				MaxDeviation:    0.2,
				ProfitThreshold: 0.0001,
				MaxTransfer:     0,
			},
			Resting: RestingConfig{
				ThresholdFraction: 0.2,
				PriceAdjust:       0.003,
				TriggerDrift:      0.005,
				MinProfit:         0.05,
				OrderTimeout:      duration{300 * time.Second},
				MaxOrders:         3,
				MaxTotalValue:     10000,
			},
			Hedge: HedgeConfig{
				MinCancelledVolume:    0.001,
				PositionDiffThreshold: 0.1,
				FundingMargin:         0.05,
			},
		},
		Venues: []VenueConfig{
			{Name: "alpha", Label: "Alpha Exchange", MakerFee: 0.001, TakerFee: 0.002, PriceOffsetBps: 0, SpreadBps: 10, DepthLevels: 5, FailRate: 0.02},
			{Name: "beta", Label: "Beta Exchange", MakerFee: 0.001, TakerFee: 0.002, PriceOffsetBps: 8, SpreadBps: 12, DepthLevels: 5, FailRate: 0.02},
		},
		Sim: SimConfig{
			StartPrices:   map[string]float64{"BTC": 65000},
			VolatilityBps: 10,
			BaseDepth:     2,
			Seed:          0,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "spotarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "spotarb-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Logging: LoggingConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validPricePolicies enumerates the accepted values for Market.PricePolicy.
var validPricePolicies = map[string]bool{
	"first_valid": true,
	"median":      true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Engine
	if len(c.Engine.Assets) == 0 {
		errs = append(errs, "engine: assets must not be empty")
	}
	if c.Engine.QuoteCurrency == "" {
		errs = append(errs, "engine: quote_currency must not be empty")
	}
	if c.Engine.TickInterval.Duration <= 0 {
		errs = append(errs, "engine: tick_interval must be positive")
	}
	if c.Engine.InitialBalance <= 0 {
		errs = append(errs, "engine: initial_balance must be > 0")
	}

	// Market. A non-positive cache_ttl is legal (it marks every snapshot
	// stale) so only the policy and retry knobs are checked.
	if !validPricePolicies[c.Market.PricePolicy] {
		errs = append(errs, fmt.Sprintf("market: unknown price_policy %q (valid: first_valid, median)", c.Market.PricePolicy))
	}
	if c.Market.FetchRetries < 1 {
		errs = append(errs, "market: fetch_retries must be >= 1")
	}
	if c.Market.RetryDelay.Duration < 0 {
		errs = append(errs, "market: retry_delay must not be negative")
	}

	// Strategy
	if c.Strategy.MinBasis <= 0 {
		errs = append(errs, "strategy: min_basis must be > 0")
	}
	if c.Strategy.MaxPriceDrift <= 0 {
		errs = append(errs, "strategy: max_price_drift must be > 0")
	}
	if c.Strategy.MinAmount <= 0 {
		errs = append(errs, "strategy: min_amount must be > 0")
	}
	if c.Strategy.SafeAmount <= 0 {
		errs = append(errs, "strategy: safe_amount must be > 0")
	}
	if f := c.Strategy.MarketImpactFactor; f <= 0 || f > 1 {
		errs = append(errs, fmt.Sprintf("strategy: market_impact_factor must be in (0, 1], got %v", f))
	}
	if f := c.Strategy.BalanceCapFactor; f <= 0 || f > 1 {
		errs = append(errs, fmt.Sprintf("strategy: balance_cap_factor must be in (0, 1], got %v", f))
	}
	if c.Strategy.Balance.MinDeviation < 0 {
		errs = append(errs, "strategy.balance: min_deviation must not be negative")
	}
	if c.Strategy.Balance.MaxDeviation <= c.Strategy.Balance.MinDeviation {
		errs = append(errs, "strategy.balance: max_deviation must exceed min_deviation")
	}
	if c.Strategy.Resting.ThresholdFraction <= 0 {
		errs = append(errs, "strategy.resting: threshold_fraction must be > 0")
	}
	if c.Strategy.Resting.OrderTimeout.Duration <= 0 {
		errs = append(errs, "strategy.resting: order_timeout must be positive")
	}
	if c.Strategy.Resting.MaxOrders < 1 {
		errs = append(errs, "strategy.resting: max_orders must be >= 1")
	}
	if c.Strategy.Resting.MaxTotalValue <= 0 {
		errs = append(errs, "strategy.resting: max_total_value must be > 0")
	}
	if c.Strategy.Hedge.PositionDiffThreshold <= 0 {
		errs = append(errs, "strategy.hedge: position_diff_threshold must be > 0")
	}

	// Venues
	if len(c.Venues) < 2 {
		errs = append(errs, fmt.Sprintf("venues: at least 2 venues are required, got %d", len(c.Venues)))
	}
	seen := make(map[string]bool, len(c.Venues))
	for i, v := range c.Venues {
		if v.Name == "" {
			errs = append(errs, fmt.Sprintf("venues[%d]: name must not be empty", i))
			continue
		}
		if seen[v.Name] {
			errs = append(errs, fmt.Sprintf("venues: duplicate name %q", v.Name))
		}
		seen[v.Name] = true
		if v.MakerFee < 0 || v.MakerFee >= 1 {
			errs = append(errs, fmt.Sprintf("venues[%s]: maker_fee must be in [0, 1), got %v", v.Name, v.MakerFee))
		}
		if v.TakerFee < 0 || v.TakerFee >= 1 {
			errs = append(errs, fmt.Sprintf("venues[%s]: taker_fee must be in [0, 1), got %v", v.Name, v.TakerFee))
		}
		if v.FailRate < 0 || v.FailRate > 1 {
			errs = append(errs, fmt.Sprintf("venues[%s]: fail_rate must be in [0, 1], got %v", v.Name, v.FailRate))
		}
		if v.DepthLevels < 1 {
			errs = append(errs, fmt.Sprintf("venues[%s]: depth_levels must be >= 1", v.Name))
		}
	}

	// Sim
	for _, asset := range c.Engine.Assets {
		if c.Sim.StartPrices[asset] <= 0 {
			errs = append(errs, fmt.Sprintf("sim: start_prices[%s] must be > 0", asset))
		}
	}
	if c.Sim.BaseDepth <= 0 {
		errs = append(errs, "sim: base_depth must be > 0")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3 / archive
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}
	if c.Archive.Enabled {
		if !c.S3.Enabled || !c.Postgres.Enabled {
			errs = append(errs, "archive: requires both postgres and s3 to be enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be positive")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// VenueNames returns the configured venue names in declaration order. The
// order matters: the first_valid price policy and detector venue-pair scans
// follow it.
func (c *Config) VenueNames() []string {
	names := make([]string, len(c.Venues))
	for i, v := range c.Venues {
		names[i] = v.Name
	}
	return names
}
