package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Postgres
	out.Postgres = cfg.Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// S3
	out.S3 = cfg.S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Engine.Assets != nil {
		out.Engine.Assets = make([]string, len(cfg.Engine.Assets))
		copy(out.Engine.Assets, cfg.Engine.Assets)
	}
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}
	if cfg.Venues != nil {
		out.Venues = make([]VenueConfig, len(cfg.Venues))
		copy(out.Venues, cfg.Venues)
	}

	// Copy maps so mutations to the redacted copy do not affect the original.
	if cfg.Sim.StartPrices != nil {
		out.Sim.StartPrices = make(map[string]float64, len(cfg.Sim.StartPrices))
		for k, v := range cfg.Sim.StartPrices {
			out.Sim.StartPrices[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
