package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"momo-gateway/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"` // bearer token for mutating routes
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

// ProviderSettings is one provider's static table: credentials, endpoints
// and the eligibility/fee/limit data the gateway reads on every call.
// Loaded once at start, never mutated at runtime.
type ProviderSettings struct {
	DisplayName   string        `yaml:"display_name"`
	Enabled       bool          `yaml:"enabled"`
	Available     bool          `yaml:"available"`
	Countries     []string      `yaml:"countries"`
	Currencies    []string      `yaml:"currencies"`
	FeePercent    float64       `yaml:"fee_percent"`
	MinAmount     float64       `yaml:"min_amount"`
	MaxAmount     float64       `yaml:"max_amount"`
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	APIKey        string        `yaml:"api_key"`
	MerchantCode  string        `yaml:"merchant_code"`
	SecretKey     string        `yaml:"secret_key"`
	WebhookSecret string        `yaml:"webhook_secret"`
}

// ToProviderConfig projects the settings onto the runtime read model.
func (s ProviderSettings) ToProviderConfig() model.ProviderConfig {
	return model.ProviderConfig{
		DisplayName: s.DisplayName,
		Enabled:     s.Enabled,
		Available:   s.Available,
		Countries:   s.Countries,
		Currencies:  s.Currencies,
		FeePercent:  s.FeePercent,
		MinAmount:   s.MinAmount,
		MaxAmount:   s.MaxAmount,
	}
}

type ProvidersConfig struct {
	MTN    ProviderSettings `yaml:"mtn_money"`
	Orange ProviderSettings `yaml:"orange_money"`
	Wave   ProviderSettings `yaml:"wave"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Retry     RetryConfig     `yaml:"retry"`
	Providers ProvidersConfig `yaml:"providers"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = 200 * time.Millisecond
	}
	for _, p := range []*ProviderSettings{&c.Providers.MTN, &c.Providers.Orange, &c.Providers.Wave} {
		if p.Timeout <= 0 {
			p.Timeout = 15 * time.Second
		}
		if p.MinAmount <= 0 {
			p.MinAmount = 100
		}
		if len(p.Currencies) == 0 {
			p.Currencies = []string{"XOF"}
		}
	}
	if c.Providers.MTN.DisplayName == "" {
		c.Providers.MTN.DisplayName = "MTN Mobile Money"
	}
	if c.Providers.Orange.DisplayName == "" {
		c.Providers.Orange.DisplayName = "Orange Money"
	}
	if c.Providers.Wave.DisplayName == "" {
		c.Providers.Wave.DisplayName = "Wave"
	}
}
