// Package config provides configuration management for the newsthreader
// application. Values load from a YAML file with environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultLogLevel    = "info"
	defaultLogEncoding = "json"

	defaultDBHost    = "localhost"
	defaultDBPort    = 5432
	defaultDBUser    = "postgres"
	defaultDBName    = "newsthreader"
	defaultDBSSLMode = "disable"

	defaultServerAddress      = ":8085"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 60 * time.Second

	defaultConcurrency       = 8
	defaultFetchTimeout      = 20 * time.Second
	defaultMaxBodyBytes      = 10 * 1024 * 1024
	defaultUserAgent         = "newsthreader/1.0"
	defaultDomainMinInterval = 2 * time.Second

	defaultRelevanceThreshold = 0.25
	defaultRelevanceMaxChars  = 4000
	defaultMinUniqueWordRatio = 0.25
	defaultMinTextLength      = 200
	defaultMaxMarkupRatio     = 0.30

	defaultJudgeAcceptScore = 6.0

	defaultBlockThreshold = 0.15
	defaultMinSampleSize  = 5
	defaultNeutralPrior   = 0.5
	defaultWilsonZ        = 1.96

	defaultBaseThreshold     = 0.70
	defaultTimePenaltyPerDay = 0.01
	defaultSizePenalty       = 0.02
	defaultEMABaseAlpha      = 0.1
	defaultMergeThreshold    = 0.92
	// Heat influence halves roughly every 2.5 days: ln(2)/2.5.
	defaultHeatDecayRate      = 0.277
	defaultInactiveAfterDays  = 14
	defaultEmbeddingTimeout   = 15 * time.Second
	defaultJudgeTimeout       = 30 * time.Second
	defaultSchedulerCrontab   = "0 6 * * *"
)

// Config represents the application configuration.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"     mapstructure:"logging"`
	Database    DatabaseConfig    `yaml:"database"    mapstructure:"database"`
	Server      ServerConfig      `yaml:"server"      mapstructure:"server"`
	Crawl       CrawlConfig       `yaml:"crawl"       mapstructure:"crawl"`
	Reliability ReliabilityConfig `yaml:"reliability" mapstructure:"reliability"`
	Threading   ThreadingConfig   `yaml:"threading"   mapstructure:"threading"`
	Services    ServicesConfig    `yaml:"services"    mapstructure:"services"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"   mapstructure:"scheduler"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"       mapstructure:"level"`
	Encoding    string `yaml:"encoding"    mapstructure:"encoding"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `yaml:"host"     mapstructure:"host"`
	Port     int    `yaml:"port"     mapstructure:"port"`
	User     string `yaml:"user"     mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"sslmode"  mapstructure:"sslmode"`
}

// ServerConfig holds the operator API server configuration.
type ServerConfig struct {
	Address      string        `yaml:"address"       mapstructure:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"  mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	Debug        bool          `yaml:"debug"         mapstructure:"debug"`
}

// CrawlConfig holds the crawl quality gate and fetch settings.
type CrawlConfig struct {
	Concurrency       int           `yaml:"concurrency"         mapstructure:"concurrency"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"       mapstructure:"fetch_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"      mapstructure:"max_body_bytes"`
	UserAgent         string        `yaml:"user_agent"          mapstructure:"user_agent"`
	DomainMinInterval time.Duration `yaml:"domain_min_interval" mapstructure:"domain_min_interval"`

	RelevanceThreshold float64 `yaml:"relevance_threshold"   mapstructure:"relevance_threshold"`
	RelevanceMaxChars  int     `yaml:"relevance_max_chars"   mapstructure:"relevance_max_chars"`
	MinUniqueWordRatio float64 `yaml:"min_unique_word_ratio" mapstructure:"min_unique_word_ratio"`
	MinTextLength      int     `yaml:"min_text_length"       mapstructure:"min_text_length"`
	MaxMarkupRatio     float64 `yaml:"max_markup_ratio"      mapstructure:"max_markup_ratio"`
	JudgeAcceptScore   float64 `yaml:"judge_accept_score"    mapstructure:"judge_accept_score"`
}

// ReliabilityConfig holds domain reliability tracker settings.
type ReliabilityConfig struct {
	BlockThreshold float64 `yaml:"block_threshold" mapstructure:"block_threshold"`
	MinSampleSize  int     `yaml:"min_sample_size" mapstructure:"min_sample_size"`
	NeutralPrior   float64 `yaml:"neutral_prior"   mapstructure:"neutral_prior"`
	WilsonZ        float64 `yaml:"wilson_z"        mapstructure:"wilson_z"`
}

// ThreadingConfig holds story threading engine settings. These constants
// were tuned empirically; treat them as corpus-specific.
type ThreadingConfig struct {
	BaseThreshold     float64 `yaml:"base_threshold"       mapstructure:"base_threshold"`
	TimePenaltyPerDay float64 `yaml:"time_penalty_per_day" mapstructure:"time_penalty_per_day"`
	SizePenalty       float64 `yaml:"size_penalty"         mapstructure:"size_penalty"`
	EMABaseAlpha      float64 `yaml:"ema_base_alpha"       mapstructure:"ema_base_alpha"`
	MergeThreshold    float64 `yaml:"merge_threshold"      mapstructure:"merge_threshold"`
	HeatDecayRate     float64 `yaml:"heat_decay_rate"      mapstructure:"heat_decay_rate"`
	InactiveAfterDays int     `yaml:"inactive_after_days"  mapstructure:"inactive_after_days"`
}

// ServicesConfig holds external service endpoints.
type ServicesConfig struct {
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Judge     JudgeConfig     `yaml:"judge"     mapstructure:"judge"`
}

// EmbeddingConfig configures the embedding service client.
type EmbeddingConfig struct {
	URL     string        `yaml:"url"     mapstructure:"url"`
	Model   string        `yaml:"model"   mapstructure:"model"`
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// JudgeConfig configures the semantic judge client. The judge is optional:
// an empty URL disables it and the gate degrades to relevance-only.
type JudgeConfig struct {
	URL     string        `yaml:"url"     mapstructure:"url"`
	Model   string        `yaml:"model"   mapstructure:"model"`
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SchedulerConfig holds the recurring run schedule.
type SchedulerConfig struct {
	Crontab string `yaml:"crontab" mapstructure:"crontab"`
}

// Load reads configuration from the given path (or the default search
// locations when empty), applies env overrides and defaults, and validates.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("NEWSTHREADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Missing file is fine; env and defaults still apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLogLevel
	}
	if cfg.Logging.Encoding == "" {
		cfg.Logging.Encoding = defaultLogEncoding
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = defaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultDBPort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = defaultDBUser
	}
	if cfg.Database.Database == "" {
		cfg.Database.Database = defaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = defaultDBSSLMode
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultServerAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerWriteTimeout
	}

	setCrawlDefaults(&cfg.Crawl)
	setReliabilityDefaults(&cfg.Reliability)
	setThreadingDefaults(&cfg.Threading)

	if cfg.Services.Embedding.Timeout == 0 {
		cfg.Services.Embedding.Timeout = defaultEmbeddingTimeout
	}
	if cfg.Services.Judge.Timeout == 0 {
		cfg.Services.Judge.Timeout = defaultJudgeTimeout
	}
	if cfg.Scheduler.Crontab == "" {
		cfg.Scheduler.Crontab = defaultSchedulerCrontab
	}
}

func setCrawlDefaults(c *CrawlConfig) {
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.DomainMinInterval == 0 {
		c.DomainMinInterval = defaultDomainMinInterval
	}
	if c.RelevanceThreshold == 0 {
		c.RelevanceThreshold = defaultRelevanceThreshold
	}
	if c.RelevanceMaxChars == 0 {
		c.RelevanceMaxChars = defaultRelevanceMaxChars
	}
	if c.MinUniqueWordRatio == 0 {
		c.MinUniqueWordRatio = defaultMinUniqueWordRatio
	}
	if c.MinTextLength == 0 {
		c.MinTextLength = defaultMinTextLength
	}
	if c.MaxMarkupRatio == 0 {
		c.MaxMarkupRatio = defaultMaxMarkupRatio
	}
	if c.JudgeAcceptScore == 0 {
		c.JudgeAcceptScore = defaultJudgeAcceptScore
	}
}

func setReliabilityDefaults(c *ReliabilityConfig) {
	if c.BlockThreshold == 0 {
		c.BlockThreshold = defaultBlockThreshold
	}
	if c.MinSampleSize == 0 {
		c.MinSampleSize = defaultMinSampleSize
	}
	if c.NeutralPrior == 0 {
		c.NeutralPrior = defaultNeutralPrior
	}
	if c.WilsonZ == 0 {
		c.WilsonZ = defaultWilsonZ
	}
}

func setThreadingDefaults(c *ThreadingConfig) {
	if c.BaseThreshold == 0 {
		c.BaseThreshold = defaultBaseThreshold
	}
	if c.TimePenaltyPerDay == 0 {
		c.TimePenaltyPerDay = defaultTimePenaltyPerDay
	}
	if c.SizePenalty == 0 {
		c.SizePenalty = defaultSizePenalty
	}
	if c.EMABaseAlpha == 0 {
		c.EMABaseAlpha = defaultEMABaseAlpha
	}
	if c.MergeThreshold == 0 {
		c.MergeThreshold = defaultMergeThreshold
	}
	if c.HeatDecayRate == 0 {
		c.HeatDecayRate = defaultHeatDecayRate
	}
	if c.InactiveAfterDays == 0 {
		c.InactiveAfterDays = defaultInactiveAfterDays
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Reliability.BlockThreshold < 0 || c.Reliability.BlockThreshold > 1 {
		return fmt.Errorf("reliability.block_threshold must be in [0,1], got %f", c.Reliability.BlockThreshold)
	}
	if c.Threading.MergeThreshold <= c.Threading.BaseThreshold {
		return fmt.Errorf("threading.merge_threshold (%f) must exceed base_threshold (%f)",
			c.Threading.MergeThreshold, c.Threading.BaseThreshold)
	}
	if c.Crawl.RelevanceThreshold < 0 || c.Crawl.RelevanceThreshold > 1 {
		return fmt.Errorf("crawl.relevance_threshold must be in [0,1], got %f", c.Crawl.RelevanceThreshold)
	}
	if c.Crawl.Concurrency < 1 {
		return errors.New("crawl.concurrency must be at least 1")
	}
	return nil
}
