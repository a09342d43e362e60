// Package config loads biztap configuration from defaults, an optional
// config.yaml, and BIZTAP_* environment variables. Numeric extraction
// settings are clamped into their documented ranges after load.
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
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Phone      PhoneConfig      `yaml:"phone" mapstructure:"phone"`
	Browser    BrowserConfig    `yaml:"browser" mapstructure:"browser"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ExtractionConfig bounds the feed walk. Ranges: max_entries [1,500],
// scroll_delay_ms [300,2000], max_scroll_attempts [5,50].
type ExtractionConfig struct {
	MaxEntries        int  `yaml:"max_entries" mapstructure:"max_entries"`
	ScrollDelayMs     int  `yaml:"scroll_delay_ms" mapstructure:"scroll_delay_ms"`
	MaxScrollAttempts int  `yaml:"max_scroll_attempts" mapstructure:"max_scroll_attempts"`
	ExtractDetails    bool `yaml:"extract_details" mapstructure:"extract_details"`
	RequirePhone      bool `yaml:"require_phone" mapstructure:"require_phone"`
	VerifyWebsites    bool `yaml:"verify_websites" mapstructure:"verify_websites"`
}

// PhoneConfig toggles the numbering-plan normalizer.
type PhoneConfig struct {
	Validate             bool `yaml:"validate" mapstructure:"validate"`
	ConvertInternational bool `yaml:"convert_international" mapstructure:"convert_international"`
	IncludeLocalFormat   bool `yaml:"include_local_format" mapstructure:"include_local_format"`
	IdentifyNumberType   bool `yaml:"identify_number_type" mapstructure:"identify_number_type"`
}

// BrowserConfig configures the playwright adapter.
type BrowserConfig struct {
	Headless bool `yaml:"headless" mapstructure:"headless"`
}

// OutputConfig configures where session databases and exports land.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ScrollDelay returns the inter-scroll delay as a duration.
func (e ExtractionConfig) ScrollDelay() time.Duration {
	return time.Duration(e.ScrollDelayMs) * time.Millisecond
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BIZTAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("extraction.max_entries", 100)
	v.SetDefault("extraction.scroll_delay_ms", 1000)
	v.SetDefault("extraction.max_scroll_attempts", 10)
	v.SetDefault("extraction.extract_details", true)
	v.SetDefault("extraction.require_phone", false)
	v.SetDefault("extraction.verify_websites", false)
	v.SetDefault("phone.validate", true)
	v.SetDefault("phone.convert_international", true)
	v.SetDefault("phone.include_local_format", true)
	v.SetDefault("phone.identify_number_type", true)
	v.SetDefault("browser.headless", true)
	v.SetDefault("output.dir", "./output")
	v.SetDefault("output.format", "csv")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	cfg.Extraction.clamp()

	return &cfg, nil
}

func (e *ExtractionConfig) clamp() {
	e.MaxEntries = clampInt(e.MaxEntries, 1, 500)
	e.ScrollDelayMs = clampInt(e.ScrollDelayMs, 300, 2000)
	e.MaxScrollAttempts = clampInt(e.MaxScrollAttempts, 5, 50)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
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
