package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/newthinker/swingsim/internal/alert"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/indicator"
	"github.com/spf13/viper"
)

type Config struct {
	Run        RunConfig        `mapstructure:"run"`
	Indicator  IndicatorConfig  `mapstructure:"indicator"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Server     ServerConfig     `mapstructure:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Notifier   NotifierConfig   `mapstructure:"notifier"`
	Commentary CommentaryConfig `mapstructure:"commentary"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
}

// RunConfig describes one backtest run.
type RunConfig struct {
	Pair           string  `mapstructure:"pair"`
	Interval       int     `mapstructure:"interval"` // minutes
	Oversold       float64 `mapstructure:"oversold"`
	Overbought     float64 `mapstructure:"overbought"`
	InitialCapital float64 `mapstructure:"initial_capital"`
	Since          int64   `mapstructure:"since"` // unix seconds, 0 for provider default
}

// IndicatorConfig holds the indicator windows.
type IndicatorConfig struct {
	BandWindow int     `mapstructure:"band_window"`
	BandWidth  float64 `mapstructure:"band_width"`
	RSIPeriod  int     `mapstructure:"rsi_period"`
}

type ProviderConfig struct {
	Name       string        `mapstructure:"name"`     // kraken, okx, binance, csv
	Fallback   []string      `mapstructure:"fallback"` // tried in order after Name
	Timeout    time.Duration `mapstructure:"timeout"`
	KrakenURL  string        `mapstructure:"kraken_url"`
	OKXURL     string        `mapstructure:"okx_url"`
	BinanceURL string        `mapstructure:"binance_url"`
	CSVPath    string        `mapstructure:"csv_path"`
}

type StorageConfig struct {
	History HistoryConfig `mapstructure:"history"`
	Archive ArchiveConfig `mapstructure:"archive"`
}

type HistoryConfig struct {
	Type       string `mapstructure:"type"` // "memory" or "sqlite"
	DSN        string `mapstructure:"dsn"`
	MaxRecords int    `mapstructure:"max_records"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "none", "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ScheduleConfig drives periodic re-runs of a watchlist.
type ScheduleConfig struct {
	Cron  string   `mapstructure:"cron"` // six fields, seconds first
	Pairs []string `mapstructure:"pairs"`
}

// AlertsConfig holds rules checked against the report of every run.
type AlertsConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
	Rules    []alert.Rule  `mapstructure:"rules"`
}

type NotifierConfig struct {
	WebhookURL string            `mapstructure:"webhook_url"`
	Headers    map[string]string `mapstructure:"headers"`
}

type CommentaryConfig struct {
	Provider string       `mapstructure:"provider"` // "", "claude" or "openai"
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Load reads configuration from file on top of Defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix("SWINGSIM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	p := indicator.DefaultParams()
	return &Config{
		Run: RunConfig{
			Pair:           "ETHUSD",
			Interval:       int(core.Interval1d),
			Oversold:       p.Oversold,
			Overbought:     p.Overbought,
			InitialCapital: 10000,
		},
		Indicator: IndicatorConfig{
			BandWindow: p.BandWindow,
			BandWidth:  p.BandWidth,
			RSIPeriod:  p.RSIPeriod,
		},
		Provider: ProviderConfig{
			Name:    "kraken",
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			History: HistoryConfig{
				Type:       "memory",
				MaxRecords: 500,
			},
			Archive: ArchiveConfig{
				Type: "none",
			},
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Schedule: ScheduleConfig{
			Cron: "0 5 0 * * *",
		},
	}
}

// Params merges the run thresholds with the indicator windows.
func (c *Config) Params() indicator.Params {
	return c.Run.Params(c.Indicator)
}

// Params merges the run thresholds with the given indicator windows.
func (r RunConfig) Params(ind IndicatorConfig) indicator.Params {
	return indicator.Params{
		BandWindow: ind.BandWindow,
		BandWidth:  ind.BandWidth,
		RSIPeriod:  ind.RSIPeriod,
		Oversold:   r.Oversold,
		Overbought: r.Overbought,
	}
}

// IntervalValue returns the run interval as a core.Interval.
func (r RunConfig) IntervalValue() core.Interval {
	return core.Interval(r.Interval)
}

// SinceTime returns the history start, or the zero time when unset.
func (r RunConfig) SinceTime() time.Time {
	if r.Since <= 0 {
		return time.Time{}
	}
	return time.Unix(r.Since, 0).UTC()
}

// Validate checks every field of a run. Nothing downstream of configuration
// is built for a run that fails here.
func (r RunConfig) Validate() error {
	if err := core.ValidatePair(r.Pair); err != nil {
		return err
	}
	if _, err := core.ParseInterval(r.Interval); err != nil {
		return err
	}
	if !inPercentRange(r.Oversold) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("oversold must be between 0 and 100, got %g", r.Oversold))
	}
	if !inPercentRange(r.Overbought) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("overbought must be between 0 and 100, got %g", r.Overbought))
	}
	if r.Overbought <= r.Oversold {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("overbought (%g) must exceed oversold (%g)", r.Overbought, r.Oversold))
	}
	if !isFinite(r.InitialCapital) || r.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %g", r.InitialCapital))
	}
	if r.Since < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("since cannot be negative, got %d", r.Since))
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// inPercentRange reports whether f is in [0, 100]; NaN is not.
func inPercentRange(f float64) bool {
	return f >= 0 && f <= 100
}

// Validate checks the indicator windows.
func (i IndicatorConfig) Validate() error {
	if i.BandWindow < 2 {
		return core.Errorf(core.ErrConfigInvalid, "band_window must be at least 2, got %d", i.BandWindow)
	}
	if !isFinite(i.BandWidth) || i.BandWidth <= 0 {
		return core.Errorf(core.ErrConfigInvalid, "band_width must be positive, got %g", i.BandWidth)
	}
	if i.RSIPeriod < 1 {
		return core.Errorf(core.ErrConfigInvalid, "rsi_period must be at least 1, got %d", i.RSIPeriod)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Run.Validate(); err != nil {
		return err
	}
	if err := c.Indicator.Validate(); err != nil {
		return err
	}

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	switch c.Provider.Name {
	case "kraken", "okx", "binance":
	case "csv":
		if c.Provider.CSVPath == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("csv_path required when provider is csv"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown provider: %q", c.Provider.Name))
	}

	switch c.Storage.History.Type {
	case "", "memory":
	case "sqlite":
		if c.Storage.History.DSN == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("history dsn required when type is sqlite"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown history store: %q", c.Storage.History.Type))
	}

	switch c.Storage.Archive.Type {
	case "", "none":
	case "localfs":
		if c.Storage.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive path required when type is localfs"))
		}
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type: %q", c.Storage.Archive.Type))
	}

	for _, p := range c.Schedule.Pairs {
		if err := core.ValidatePair(p); err != nil {
			return err
		}
	}

	for _, r := range c.Alerts.Rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	// Commentary validation - if provider set, check config exists
	switch c.Commentary.Provider {
	case "":
	case "claude":
		if c.Commentary.Claude.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("claude api_key required when provider is claude"))
		}
	case "openai":
		if c.Commentary.OpenAI.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("openai api_key required when provider is openai"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown commentary provider: %q", c.Commentary.Provider))
	}

	return nil
}
