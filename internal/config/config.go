package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Dialog   DialogConfig   `mapstructure:"dialog"`
	NLU      NLUConfig      `mapstructure:"nlu"`
	STT      STTConfig      `mapstructure:"stt"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// Supported database drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"`
	URI         string `mapstructure:"uri"`
	Name        string `mapstructure:"name"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// S3Config points at the bucket approved workouts are published to. Publishing is disabled
// when BucketName is empty.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// DialogConfig bounds the disambiguation dialog.
type DialogConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`        // idle session lifetime
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // how often expired sessions are purged
	LockTTL       time.Duration `mapstructure:"lock_ttl"`       // per-user processing lease
}

// NLUConfig points at an OpenAI-compatible chat-completions API. Text input is rejected when
// Endpoint is empty; pre-parsed input still works.
type NLUConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// STTConfig points at an OpenAI-compatible /audio/transcriptions API. Voice messages are
// rejected when Endpoint is empty.
type STTConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Handling ---
	// server.address -> SERVER_ADDRESS, dialog.timeout -> DIALOG_TIMEOUT
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		err = nil // env vars and defaults are enough
	} else if err != nil {
		return config, fmt.Errorf("read config: %w", err)
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("unmarshal config: %w", err)
	}
	if err = config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Every key gets a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")

	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "workout_journal")
	v.SetDefault("database.postgres_dsn", "")

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.use_ssl", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "1h")

	v.SetDefault("dialog.timeout", "5m")
	v.SetDefault("dialog.sweep_interval", "1m")
	v.SetDefault("dialog.lock_ttl", "60s")

	v.SetDefault("nlu.endpoint", "")
	v.SetDefault("nlu.api_key", "")
	v.SetDefault("nlu.model", "deepseek-chat")
	v.SetDefault("nlu.timeout", "60s")

	v.SetDefault("stt.endpoint", "")
	v.SetDefault("stt.api_key", "")
	v.SetDefault("stt.model", "whisper-1")
	v.SetDefault("stt.language", "ru")
	v.SetDefault("stt.timeout", "60s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverMongo:
		if c.Database.URI == "" || c.Database.Name == "" {
			return errors.New("config: database.uri and database.name are required for the mongo driver")
		}
	case DriverPostgres:
		if c.Database.PostgresDSN == "" {
			return errors.New("config: database.postgres_dsn is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown database.driver %q", c.Database.Driver)
	}
	if c.Dialog.Timeout <= 0 || c.Dialog.SweepInterval <= 0 || c.Dialog.LockTTL <= 0 {
		return errors.New("config: dialog durations must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}
