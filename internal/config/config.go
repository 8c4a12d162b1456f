package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Crawl  CrawlConfig  `yaml:"crawl" mapstructure:"crawl"`
	Sync   SyncConfig   `yaml:"sync" mapstructure:"sync"`
	Sweep  SweepConfig  `yaml:"sweep" mapstructure:"sweep"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CrawlConfig configures the site crawler.
type CrawlConfig struct {
	MaxListings  int    `yaml:"max_listings" mapstructure:"max_listings"`
	DelayMS      int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// Delay returns the inter-request delay as a duration.
func (c CrawlConfig) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// Timeout returns the per-request timeout as a duration.
func (c CrawlConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SyncConfig configures the sync orchestrator.
type SyncConfig struct {
	DeadlineSecs         int    `yaml:"deadline_secs" mapstructure:"deadline_secs"`
	MaxConcurrentDealers int    `yaml:"max_concurrent_dealers" mapstructure:"max_concurrent_dealers"`
	DealersFile          string `yaml:"dealers_file" mapstructure:"dealers_file"`
	Schedule             string `yaml:"schedule" mapstructure:"schedule"`
}

// Deadline returns the overall per-dealer sync deadline.
func (c SyncConfig) Deadline() time.Duration {
	return time.Duration(c.DeadlineSecs) * time.Second
}

// SweepConfig configures the listing lifecycle sweeper.
type SweepConfig struct {
	SoldAfterDays   int    `yaml:"sold_after_days" mapstructure:"sold_after_days"`
	ExpireAfterDays int    `yaml:"expire_after_days" mapstructure:"expire_after_days"`
	Schedule        string `yaml:"schedule" mapstructure:"schedule"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALERSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("crawl.max_listings", 60)
	v.SetDefault("crawl.delay_ms", 150)
	v.SetDefault("crawl.timeout_secs", 10)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (compatible; DealersyncBot/1.0)")
	v.SetDefault("crawl.max_body_bytes", 2*1024*1024)
	v.SetDefault("sync.deadline_secs", 600)
	v.SetDefault("sync.max_concurrent_dealers", 4)
	v.SetDefault("sync.dealers_file", "dealers.yaml")
	v.SetDefault("sync.schedule", "0 */6 * * *")
	v.SetDefault("sweep.sold_after_days", 45)
	v.SetDefault("sweep.expire_after_days", 90)
	v.SetDefault("sweep.schedule", "0 3 * * *")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
