package config

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gyeh/remitcheck/internal/payer"
)

// EnvPrefix namespaces environment overrides, e.g. REMITCHECK_WORKERS.
const EnvPrefix = "REMITCHECK"

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all runtime configuration for a remitcheck run.
type Config struct {
	DSN          string        `mapstructure:"dsn"`
	FilePath     string        `mapstructure:"file"`
	ConfigPath   string        `mapstructure:"config"`
	RatesPath    string        `mapstructure:"rates"`
	Region       string        `mapstructure:"region"`
	Payer        string        `mapstructure:"payer"` // pins every line to one adapter
	OutputPath   string        `mapstructure:"out"`
	LogFormat    string        `mapstructure:"log-format"` // "text" or "json"
	LogLevel     string        `mapstructure:"log-level"`
	Workers      int           `mapstructure:"workers"`
	CacheBackend string        `mapstructure:"cache"`
	CacheTTL     time.Duration `mapstructure:"cache-ttl"`
	RedisURL     string        `mapstructure:"redis-url"`

	// Loaded from the YAML file at ConfigPath.
	ServiceDateQualifiers []string
	PayerAliases          map[string]string
	Profiles              map[string]payer.Profile
}

// SetDefaults registers default values and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-format", "text")
	v.SetDefault("log-level", "info")
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("cache", CacheMemory)
	v.SetDefault("cache-ttl", 24*time.Hour)
	// Registered so AutomaticEnv reaches them during Unmarshal.
	for _, k := range []string{"file", "config", "rates", "region", "payer", "out", "redis-url"} {
		v.SetDefault(k, "")
	}

	// DATABASE_URL is honored for compatibility with hosted Postgres.
	_ = v.BindEnv("dsn", EnvPrefix+"_DSN", "DATABASE_URL")
}

// Load unmarshals v into a Config and merges the YAML file it names.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.ConfigPath != "" {
		if err := c.LoadFromFile(c.ConfigPath); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// DefaultEnvFile is read when present and no other env file is named.
const DefaultEnvFile = ".env"

// LoadEnvFile exports KEY=VALUE pairs from path into the process
// environment. Variables already set win. A missing default file is not
// an error.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// yamlConfig is the on-disk YAML structure.
type yamlConfig struct {
	ServiceDateQualifiers []string                     `yaml:"service_date_qualifiers"`
	PayerAliases          map[string]string            `yaml:"payer_aliases"`
	ContractRates         map[string]map[string]string `yaml:"contract_rates"`
	Profiles              map[string]yamlProfile       `yaml:"profiles"`
}

type yamlProfile struct {
	State         string            `yaml:"state"`
	PlanType      string            `yaml:"plan_type"`
	COLA          map[int]string    `yaml:"cola"`
	Geo           map[string]string `yaml:"geo"`
	Modifiers     map[string]string `yaml:"modifiers"`
	ContractRates map[string]string `yaml:"contract_rates"`
}

var qualifierPattern = regexp.MustCompile(`^[0-9]{3}$`)

// LoadFromFile reads a YAML config file and merges its values into Config.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	for _, q := range yc.ServiceDateQualifiers {
		if !qualifierPattern.MatchString(q) {
			return fmt.Errorf("invalid date qualifier %q in config: want three digits", q)
		}
	}
	c.ServiceDateQualifiers = yc.ServiceDateQualifiers
	c.PayerAliases = yc.PayerAliases

	c.Profiles = make(map[string]payer.Profile, len(yc.Profiles))
	for key, yp := range yc.Profiles {
		p, err := yp.toProfile()
		if err != nil {
			return fmt.Errorf("profile %s: %w", key, err)
		}
		c.Profiles[strings.ToLower(key)] = p
	}

	// Top-level contract rates are shorthand for profiles.<payer>.contract_rates.
	for key, codes := range yc.ContractRates {
		rates, err := decimalMap("contract rate", codes)
		if err != nil {
			return fmt.Errorf("contract_rates %s: %w", key, err)
		}
		k := strings.ToLower(key)
		p := c.Profiles[k]
		if p.ContractRates == nil {
			p.ContractRates = make(map[string]decimal.Decimal, len(rates))
		}
		for code, r := range rates {
			p.ContractRates[code] = r
		}
		c.Profiles[k] = p
	}

	// Profiles may name a payer by any alias; adapters look them up by key.
	profiles, err := payer.CanonicalProfiles(c.Profiles, c.PayerAliases)
	if err != nil {
		return err
	}
	c.Profiles = profiles
	return nil
}

func (yp yamlProfile) toProfile() (payer.Profile, error) {
	p := payer.Profile{State: yp.State, PlanType: yp.PlanType}

	if len(yp.COLA) > 0 {
		p.COLA = make(map[int]decimal.Decimal, len(yp.COLA))
		for year, s := range yp.COLA {
			f, err := parseDecimal("cola "+strconv.Itoa(year), s)
			if err != nil {
				return p, err
			}
			p.COLA[year] = f
		}
	}
	var err error
	if p.Geo, err = decimalMap("geo", yp.Geo); err != nil {
		return p, err
	}
	if p.Modifiers, err = decimalMap("modifier", yp.Modifiers); err != nil {
		return p, err
	}
	if p.ContractRates, err = decimalMap("contract rate", yp.ContractRates); err != nil {
		return p, err
	}
	return p, nil
}

func decimalMap(what string, in map[string]string) (map[string]decimal.Decimal, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]decimal.Decimal, len(in))
	for k, s := range in {
		f, err := parseDecimal(what+" "+k, s)
		if err != nil {
			return nil, err
		}
		out[k] = f
	}
	return out, nil
}

func parseDecimal(what, s string) (decimal.Decimal, error) {
	f, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}
	if f.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s %q: must not be negative", what, s)
	}
	return f, nil
}

// Validate checks required fields and returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.FilePath == "" {
		return fmt.Errorf("--file is required")
	}
	if _, err := os.Stat(c.FilePath); err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("--log-format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// ValidateRun checks everything a rating run needs beyond Validate.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("--workers must be at least 1, got %d", c.Workers)
	}
	switch c.CacheBackend {
	case CacheMemory:
	case CacheRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("--redis-url is required with --cache=redis")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	if c.RatesPath != "" && c.DSN != "" {
		return fmt.Errorf("--rates and --dsn are mutually exclusive")
	}
	if c.RatesPath != "" {
		if _, err := os.Stat(c.RatesPath); err != nil {
			return fmt.Errorf("rates file not accessible: %w", err)
		}
	}
	return nil
}

// ValidateDSN checks that a database connection string is present.
func (c *Config) ValidateDSN() error {
	if c.DSN == "" {
		return fmt.Errorf("--dsn or DATABASE_URL is required")
	}
	return nil
}
