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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Captcha   CaptchaConfig   `yaml:"captcha" mapstructure:"captcha"`
	Portal    PortalConfig    `yaml:"portal" mapstructure:"portal"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Equity    EquityConfig    `yaml:"equity" mapstructure:"equity"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
}

// CaptchaConfig configures the challenge-solver service.
type CaptchaConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	SiteKey      string `yaml:"site_key" mapstructure:"site_key"`
	PollSecs     int    `yaml:"poll_secs" mapstructure:"poll_secs"`
	MaxPolls     int    `yaml:"max_polls" mapstructure:"max_polls"`
	SolveRetries int    `yaml:"solve_retries" mapstructure:"solve_retries"`
}

// PollInterval returns the configured poll interval as a duration.
func (c CaptchaConfig) PollInterval() time.Duration {
	return time.Duration(c.PollSecs) * time.Second
}

// PortalConfig configures the court portal session and catalog API.
type PortalConfig struct {
	SearchURL      string `yaml:"search_url" mapstructure:"search_url"`
	CatalogBaseURL string `yaml:"catalog_base_url" mapstructure:"catalog_base_url"`
	DownloadURL    string `yaml:"download_url" mapstructure:"download_url"`
	Headless       bool   `yaml:"headless" mapstructure:"headless"`
	LinkWaitSecs   int    `yaml:"link_wait_secs" mapstructure:"link_wait_secs"`
	SettleSecs     int    `yaml:"settle_secs" mapstructure:"settle_secs"`
}

// OCRConfig configures PDF text extraction and the async OCR fallback.
type OCRConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Key         string `yaml:"key" mapstructure:"key"`
	PollSecs    int    `yaml:"poll_secs" mapstructure:"poll_secs"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// StorageConfig configures the document archive bucket.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PipelineConfig configures per-run behavior.
type PipelineConfig struct {
	TempDir         string `yaml:"temp_dir" mapstructure:"temp_dir"`
	MaxConcurrency  int    `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	DownloadRetries int    `yaml:"download_retries" mapstructure:"download_retries"`
	CatalogPageSize int    `yaml:"catalog_page_size" mapstructure:"catalog_page_size"`
}

// EquityConfig configures the parcel-matching pass.
type EquityConfig struct {
	DatasetBucket string `yaml:"dataset_bucket" mapstructure:"dataset_bucket"`
	CacheDir      string `yaml:"cache_dir" mapstructure:"cache_dir"`
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
	v.SetEnvPrefix("CASEENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.schema", "public")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("captcha.base_url", "https://2captcha.com")
	v.SetDefault("captcha.poll_secs", 3)
	v.SetDefault("captcha.max_polls", 50)
	v.SetDefault("captcha.solve_retries", 1)
	v.SetDefault("portal.headless", true)
	v.SetDefault("portal.link_wait_secs", 30)
	v.SetDefault("portal.settle_secs", 3)
	v.SetDefault("ocr.poll_secs", 5)
	v.SetDefault("ocr.timeout_secs", 300)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("pipeline.temp_dir", "/tmp/caseenrich")
	v.SetDefault("pipeline.max_concurrency", 1)
	v.SetDefault("pipeline.download_retries", 3)
	v.SetDefault("pipeline.catalog_page_size", 50)
	v.SetDefault("equity.cache_dir", "/tmp/caseenrich/parcels")

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
