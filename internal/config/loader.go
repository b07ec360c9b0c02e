package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SPOTARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SPOTARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setStringSlice(&cfg.Engine.Assets, "SPOTARB_ENGINE_ASSETS")
	setStr(&cfg.Engine.QuoteCurrency, "SPOTARB_ENGINE_QUOTE_CURRENCY")
	setDuration(&cfg.Engine.TickInterval, "SPOTARB_ENGINE_TICK_INTERVAL")
	setInt(&cfg.Engine.StatusEvery, "SPOTARB_ENGINE_STATUS_EVERY")
	setFloat64(&cfg.Engine.InitialBalance, "SPOTARB_ENGINE_INITIAL_BALANCE")
	setBool(&cfg.Engine.SeedPositions, "SPOTARB_ENGINE_SEED_POSITIONS")
	setStr(&cfg.Engine.DataDir, "SPOTARB_ENGINE_DATA_DIR")

	// ── Market ──
	setDuration(&cfg.Market.CacheTTL, "SPOTARB_MARKET_CACHE_TTL")
	setStr(&cfg.Market.PricePolicy, "SPOTARB_MARKET_PRICE_POLICY")
	setInt(&cfg.Market.FetchRetries, "SPOTARB_MARKET_FETCH_RETRIES")
	setDuration(&cfg.Market.RetryDelay, "SPOTARB_MARKET_RETRY_DELAY")

	// ── Strategy ──
	setFloat64(&cfg.Strategy.MinBasis, "SPOTARB_STRATEGY_MIN_BASIS")
	setFloat64(&cfg.Strategy.MaxPriceDrift, "SPOTARB_STRATEGY_MAX_PRICE_DRIFT")
	setFloat64(&cfg.Strategy.MinProfit, "SPOTARB_STRATEGY_MIN_PROFIT")
	setFloat64(&cfg.Strategy.MinAmount, "SPOTARB_STRATEGY_MIN_AMOUNT")
	setFloat64(&cfg.Strategy.SafeAmount, "SPOTARB_STRATEGY_SAFE_AMOUNT")
	setFloat64(&cfg.Strategy.Balance.MinDeviation, "SPOTARB_STRATEGY_BALANCE_MIN_DEVIATION")
	setFloat64(&cfg.Strategy.Balance.MaxDeviation, "SPOTARB_STRATEGY_BALANCE_MAX_DEVIATION")
	setFloat64(&cfg.Strategy.Balance.MaxTransfer, "SPOTARB_STRATEGY_BALANCE_MAX_TRANSFER")
	setDuration(&cfg.Strategy.Resting.OrderTimeout, "SPOTARB_STRATEGY_RESTING_ORDER_TIMEOUT")
	setInt(&cfg.Strategy.Resting.MaxOrders, "SPOTARB_STRATEGY_RESTING_MAX_ORDERS")
	setFloat64(&cfg.Strategy.Resting.MaxTotalValue, "SPOTARB_STRATEGY_RESTING_MAX_TOTAL_VALUE")

	// ── Sim ──
	setInt64(&cfg.Sim.Seed, "SPOTARB_SIM_SEED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "SPOTARB_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SPOTARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SPOTARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SPOTARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SPOTARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SPOTARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SPOTARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SPOTARB_POSTGRES_SSLMODE")
	setStr(&cfg.Postgres.SSLMode, "SPOTARB_POSTGRES_SSL_MODE") // compatibility alias
	setInt(&cfg.Postgres.PoolMaxConns, "SPOTARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SPOTARB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SPOTARB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SPOTARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SPOTARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SPOTARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SPOTARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SPOTARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SPOTARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SPOTARB_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SPOTARB_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SPOTARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SPOTARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "SPOTARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SPOTARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SPOTARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SPOTARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SPOTARB_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SPOTARB_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "SPOTARB_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "SPOTARB_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SPOTARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SPOTARB_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SPOTARB_SERVER_CORS_ORIGINS")

	// ── Logging ──
	setStr(&cfg.Logging.File, "SPOTARB_LOGGING_FILE")
	setInt(&cfg.Logging.MaxSizeMB, "SPOTARB_LOGGING_MAX_SIZE_MB")
	setInt(&cfg.Logging.MaxBackups, "SPOTARB_LOGGING_MAX_BACKUPS")
	setInt(&cfg.Logging.MaxAgeDays, "SPOTARB_LOGGING_MAX_AGE_DAYS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SPOTARB_MODE")
	setStr(&cfg.LogLevel, "SPOTARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
