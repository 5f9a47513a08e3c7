// Package config loads application configuration from config.yaml and
// GEOAUDIT_-prefixed environment variables, and initializes the global logger.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Detect   DetectConfig   `yaml:"detect" mapstructure:"detect"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Dispatch DispatchConfig `yaml:"dispatch" mapstructure:"dispatch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Admin    AdminConfig    `yaml:"admin" mapstructure:"admin"`
	Rules    RulesConfig    `yaml:"rules" mapstructure:"rules"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// DetectConfig holds the endpoints of the three detection subsystems and the
// shared call bounds. Endpoints are explicit here so no client probes the
// environment on its own.
type DetectConfig struct {
	VectorizationURL string        `yaml:"vectorization_url" mapstructure:"vectorization_url"`
	EncroachmentURL  string        `yaml:"encroachment_url" mapstructure:"encroachment_url"`
	UsageURL         string        `yaml:"usage_url" mapstructure:"usage_url"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSec   float64       `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// StorageConfig holds the object-store collaborator settings.
type StorageConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	Folder  string `yaml:"folder" mapstructure:"folder"`
}

// DispatchConfig holds the report-dispatch collaborator settings.
type DispatchConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AdminConfig identifies the acting administrator when a request carries no
// identity of its own (CLI runs, missing header).
type AdminConfig struct {
	Email string `yaml:"email" mapstructure:"email"`
}

// RulesConfig points at the classifier ruleset file.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (cwd) and the environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("detect.timeout", 60*time.Second)
	v.SetDefault("detect.requests_per_sec", 2.0)
	v.SetDefault("storage.folder", "geo-audit")

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; env vars may carry everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration carries everything the named mode
// needs. Modes: "store" (database only), "delete" (store + object store),
// "action" (store + dispatch sink), "scan" (store + detection cluster +
// object store), "serve" (scan + dispatch plus a usable port).
func (c *Config) Validate(mode string) error {
	var missing []string

	needStore := func() {
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url (GEOAUDIT_STORE_DATABASE_URL)")
		}
	}
	needStorage := func() {
		if c.Storage.BaseURL == "" {
			missing = append(missing, "storage.base_url")
		}
	}
	needDetect := func() {
		if c.Detect.VectorizationURL == "" {
			missing = append(missing, "detect.vectorization_url")
		}
		if c.Detect.EncroachmentURL == "" {
			missing = append(missing, "detect.encroachment_url")
		}
		if c.Detect.UsageURL == "" {
			missing = append(missing, "detect.usage_url")
		}
		needStorage()
	}
	needDispatch := func() {
		if c.Dispatch.BaseURL == "" {
			missing = append(missing, "dispatch.base_url")
		}
	}

	switch mode {
	case "store":
		needStore()
	case "delete":
		needStore()
		needStorage()
	case "action":
		needStore()
		needDispatch()
	case "scan":
		needStore()
		needDetect()
	case "serve":
		needStore()
		needDetect()
		needDispatch()
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			return eris.Errorf("config: invalid server port %d", c.Server.Port)
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
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
