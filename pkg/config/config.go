package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App       AppConfig
	DVLA      DVLAConfig
	DVSA      DVSAConfig
	Lookup    LookupConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"APP_ENV" required:"true"`
	Port         string `envconfig:"PORT" default:"5174"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"LOG_FORMAT" default:"json"`
}

// DVLAConfig covers the Vehicle Enquiry Service. The API key is checked when a
// lookup runs, not at startup.
type DVLAConfig struct {
	APIKey  string `envconfig:"DVLA_API_KEY"`
	URL     string `envconfig:"DVLA_VES_URL" default:"https://driver-vehicle-licensing.api.gov.uk/vehicle-enquiry/v1/vehicles"`
	Enabled bool   `envconfig:"DVLA_VES_ENABLED" default:"true"`
}

// DVSAConfig covers the MOT history API and its OAuth client credentials.
type DVSAConfig struct {
	APIKey       string        `envconfig:"DVSA_API_KEY"`
	BaseURL      string        `envconfig:"DVSA_BASE_URL" default:"https://history.mot.api.gov.uk"`
	TokenURL     string        `envconfig:"DVSA_TOKEN_URL"`
	ClientID     string        `envconfig:"DVSA_CLIENT_ID"`
	ClientSecret string        `envconfig:"DVSA_CLIENT_SECRET"`
	Scope        string        `envconfig:"DVSA_SCOPE_URL"`
	TokenMargin  time.Duration `envconfig:"DVSA_TOKEN_SAFETY_MARGIN" default:"30s"`
}

type LookupConfig struct {
	UpstreamTimeout  time.Duration `envconfig:"LOOKUP_UPSTREAM_TIMEOUT" default:"5s"`
	FixturesEnabled  bool          `envconfig:"LOOKUP_FIXTURES_ENABLED" default:"false"`
	ExpiryEstimation int           `envconfig:"LOOKUP_FIRST_MOT_MONTHS" default:"36"`
}

// RedisConfig is optional; without a URL or address the service runs with
// rate limiting disabled.
type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL"`
	Address      string        `envconfig:"REDIS_ADDR"`
	Password     string        `envconfig:"REDIS_PASSWORD"`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type RateLimitConfig struct {
	LookupWindow   time.Duration `envconfig:"RATE_LIMIT_LOOKUP_WINDOW" default:"1m"`
	LookupIPLimit  int           `envconfig:"RATE_LIMIT_LOOKUP_IP_LIMIT" default:"30"`
	LookupVRMLimit int           `envconfig:"RATE_LIMIT_LOOKUP_VRM_LIMIT" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
}

func (c *Config) validate() error {
	var errs error
	if c.Lookup.UpstreamTimeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvLookupUpstreamTimeout))
	}
	if c.Lookup.ExpiryEstimation <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvLookupFirstMOTMonths))
	}
	if c.DVLA.Enabled && strings.TrimSpace(c.DVLA.URL) == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be empty while the enquiry is enabled", EnvDVLAURL))
	}
	if strings.TrimSpace(c.DVSA.BaseURL) == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be empty", EnvDVSABaseURL))
	}
	if c.DVSA.TokenMargin < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be negative", EnvDVSATokenMargin))
	}
	if c.RateLimit.LookupWindow < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be negative", EnvRateLimitLookupWindow))
	}
	if c.RateLimit.LookupIPLimit < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be negative", EnvRateLimitLookupIPLimit))
	}
	if c.RateLimit.LookupVRMLimit < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be negative", EnvRateLimitLookupVRMLimit))
	}
	return errs
}
