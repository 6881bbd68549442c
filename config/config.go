package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration. Values come from config.yml when
// present, then environment variables override.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	PDF      PDFConfig      `mapstructure:"pdf"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" envconfig:"PORT"`
	APIKey          string        `mapstructure:"api_key" envconfig:"API_KEY"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" envconfig:"DATABASE_PATH"`
}

type PDFConfig struct {
	BinaryPath string `mapstructure:"binary_path" envconfig:"PDF_BINARY"`
	OutputDir  string `mapstructure:"output_dir" envconfig:"PDF_OUTPUT_DIR"`
}

type WhatsAppConfig struct {
	BaseURL   string `mapstructure:"base_url" envconfig:"WHATSAPP_API_URL"`
	SessionID string `mapstructure:"session_id" envconfig:"WHATSAPP_API_SESSION_ID"`
}

type LogConfig struct {
	Level string `mapstructure:"level" envconfig:"LOG_LEVEL"`
}

// Load reads config.yml (optional) and applies environment overrides.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, the defaults plus environment carry it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, section := range []any{
		&cfg.Server, &cfg.Database, &cfg.PDF, &cfg.WhatsApp, &cfg.Log,
	} {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("failed to process environment: %w", err)
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 50)
	v.SetDefault("server.rate_limit_burst", 100)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("database.path", "./data/operations.db")
	v.SetDefault("pdf.binary_path", "wkhtmltopdf")
	v.SetDefault("pdf.output_dir", "files/pdfs")
	v.SetDefault("log.level", "info")
}
