package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the runtime configuration. Every field can come from the YAML
// file and is overridden by its environment variable.
type Config struct {
	// Environment selects the log encoder (development or production)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info" yaml:"logLevel"`

	// RequestTimeout is the per-call deadline for provider requests, clamped to 10s-30s
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" env-default:"15s" yaml:"requestTimeout"`
	// MaxConnections caps pooled connections per provider host
	MaxConnections int `env:"MAX_CONNECTIONS" env-default:"30" yaml:"maxConnections"`

	// PrimaryProvider is godaddy, rdap or auto (godaddy when credentials are set)
	PrimaryProvider string `env:"PRIMARY_PROVIDER" env-default:"auto" yaml:"primaryProvider"`
	// DirectLookups is missing, never or always
	DirectLookups string `env:"DIRECT_LOOKUPS" env-default:"missing" yaml:"directLookups"`

	GoDaddy struct {
		APIKey    string `env:"GODADDY_API_KEY" yaml:"apiKey"`
		APISecret string `env:"GODADDY_API_SECRET" yaml:"apiSecret"`
		BaseURL   string `env:"GODADDY_BASE_URL" env-default:"https://api.ote-godaddy.com" yaml:"baseURL"`
	} `yaml:"godaddy"`

	Porkbun struct {
		APIKey       string `env:"PORKBUN_API_KEY" yaml:"apiKey"`
		SecretAPIKey string `env:"PORKBUN_SECRET_API_KEY,PORKBUN_API_SECRET" yaml:"secretApiKey"`
		BaseURL      string `env:"PORKBUN_BASE_URL" env-default:"https://api.porkbun.com/api/json/v3" yaml:"baseURL"`
	} `yaml:"porkbun"`

	Dynadot struct {
		APIKey  string `env:"DYNADOT_API_KEY" yaml:"apiKey"`
		BaseURL string `env:"DYNADOT_BASE_URL" env-default:"https://api.dynadot.com" yaml:"baseURL"`
	} `yaml:"dynadot"`

	RDAP struct {
		BootstrapURL string `env:"RDAP_BOOTSTRAP_URL" env-default:"https://data.iana.org/rdap/dns.json" yaml:"bootstrapURL"`
	} `yaml:"rdap"`

	HTTP struct {
		Addr              string        `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// MaxBatch caps the number of domains one POST /v1/check may carry
		MaxBatch    int    `env:"HTTP_MAX_BATCH" env-default:"5000" yaml:"maxBatch"`
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// Preload warms the cache with popular domains when serving
	Preload bool `env:"PRELOAD" env-default:"true" yaml:"preload"`

	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load reads the YAML file at configPath, if any, and overlays the
// environment. An empty path or a missing file means environment only.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		_, err := os.Stat(configPath)
		switch {
		case err == nil:
			if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
				return nil, fmt.Errorf("could not read config: %w", err)
			}
			return &cfg, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("could not read config from environment: %w", err)
	}
	return &cfg, nil
}
