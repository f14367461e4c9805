package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// WorkerWarnThreshold is the worker-pool size above which binaries warn the
// operator before proceeding.
const WorkerWarnThreshold = 20

// AppConfig represents the main application configuration
type AppConfig struct {
	Remote   RemoteConfig   `mapstructure:"remote"`
	Database DatabaseConfig `mapstructure:"database"`
	Source   SourceConfig   `mapstructure:"source"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
}

// RemoteConfig represents the asset server connection settings
type RemoteConfig struct {
	URL            string `mapstructure:"url"`
	APIKey         string `mapstructure:"api_key"`
	DeviceID       string `mapstructure:"device_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the upload request timeout as a duration
func (r RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// SourceConfig represents the scanned source tree settings
type SourceConfig struct {
	Dir             string `mapstructure:"dir"`
	ImageExtensions string `mapstructure:"image_extensions"`
	VideoExtensions string `mapstructure:"video_extensions"`
}

// ImageExtensionList returns the normalized image extension list
func (s SourceConfig) ImageExtensionList() []string {
	return splitExtensions(s.ImageExtensions)
}

// VideoExtensionList returns the normalized video extension list
func (s SourceConfig) VideoExtensionList() []string {
	return splitExtensions(s.VideoExtensions)
}

// splitExtensions normalizes a comma-separated extension list: lowercase,
// trimmed, leading dots removed, empty entries dropped.
func splitExtensions(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		part = strings.TrimPrefix(part, ".")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// UploadConfig represents orchestration tuning
type UploadConfig struct {
	MaxConsecutiveErrors int `mapstructure:"max_consecutive_errors"`
	DelayMs              int `mapstructure:"delay_ms"`
	HashChunkSize        int `mapstructure:"hash_chunk_size"`
	Workers              int `mapstructure:"workers"`
}

// Delay returns the inter-upload delay as a duration
func (u UploadConfig) Delay() time.Duration {
	return time.Duration(u.DelayMs) * time.Millisecond
}

// LoggingConfig represents logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// MonitorConfig represents the optional monitoring endpoint settings
type MonitorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// ConfigLoader loads application configuration from various sources
type ConfigLoader struct {
	viper *viper.Viper
}

// NewConfigLoader creates a new configuration loader
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{viper: viper.New()}
}

// SetConfigFile pins the loader to an explicit configuration file
func (l *ConfigLoader) SetConfigFile(path string) {
	l.viper.SetConfigFile(path)
}

// Load reads configuration with increasing precedence: built-in defaults,
// the optional config.yaml, then environment variables. A .env file in the
// working directory is loaded into the environment first; variables already
// set in the environment win over .env entries.
func (l *ConfigLoader) Load() (*AppConfig, error) {
	_ = godotenv.Load()

	v := l.viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)
	bindEnvironment(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, using defaults
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	applyPoolDefaults(&config.Database)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// setDefaults registers the default value for every recognized key
func setDefaults(v *viper.Viper) {
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.api_key", "")
	v.SetDefault("remote.device_id", "medialift")
	v.SetDefault("remote.timeout_seconds", 300)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "medialift")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.path", "medialift.db")

	v.SetDefault("source.dir", "")
	v.SetDefault("source.image_extensions", "jpg,jpeg,png,webp,tiff,tif,bmp,heic,heif")
	v.SetDefault("source.video_extensions", "mp4,mov,avi,mkv,wmv,flv,webm,m4v")

	v.SetDefault("upload.max_consecutive_errors", 5)
	v.SetDefault("upload.delay_ms", 100)
	v.SetDefault("upload.hash_chunk_size", 4096)
	v.SetDefault("upload.workers", 1)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")

	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.listen", ":9090")
}

// bindEnvironment maps configuration keys to their environment variable names
func bindEnvironment(v *viper.Viper) {
	bindings := map[string]string{
		"remote.url":                    "IMMICH_URL",
		"remote.api_key":                "IMMICH_API_KEY",
		"remote.device_id":              "DEVICE_ID",
		"remote.timeout_seconds":        "REMOTE_TIMEOUT_SECONDS",
		"database.driver":               "DB_DRIVER",
		"database.host":                 "DB_HOST",
		"database.port":                 "DB_PORT",
		"database.user":                 "DB_USER",
		"database.password":             "DB_PASSWORD",
		"database.name":                 "DB_NAME",
		"database.ssl_mode":             "DB_SSL_MODE",
		"database.path":                 "DB_PATH",
		"source.dir":                    "SOURCE_DIR",
		"source.image_extensions":       "IMAGE_EXTENSIONS",
		"source.video_extensions":       "VIDEO_EXTENSIONS",
		"upload.max_consecutive_errors": "MAX_CONSECUTIVE_ERRORS",
		"upload.delay_ms":               "UPLOAD_DELAY_MS",
		"upload.hash_chunk_size":        "HASH_CHUNK_SIZE",
		"upload.workers":                "UPLOAD_WORKERS",
		"logging.level":                 "LOG_LEVEL",
		"logging.file":                  "LOG_FILE",
		"monitor.enabled":               "MONITOR_ENABLED",
		"monitor.listen":                "MONITOR_LISTEN",
	}

	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}

// validateConfig validates the configuration values
func validateConfig(config *AppConfig) error {
	switch config.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be one of mysql, postgres, sqlite (got %q)", config.Database.Driver)
	}

	if config.Database.Driver != "sqlite" {
		if config.Database.Port < 1 || config.Database.Port > 65535 {
			return fmt.Errorf("database.port must be between 1 and 65535")
		}
		if config.Database.Host == "" {
			return fmt.Errorf("database.host cannot be empty")
		}
	}

	if config.Upload.MaxConsecutiveErrors < 1 {
		return fmt.Errorf("upload.max_consecutive_errors must be at least 1")
	}
	if config.Upload.HashChunkSize < 1 {
		return fmt.Errorf("upload.hash_chunk_size must be at least 1")
	}
	if config.Upload.Workers < 1 {
		return fmt.Errorf("upload.workers must be at least 1")
	}
	if config.Upload.DelayMs < 0 {
		return fmt.Errorf("upload.delay_ms cannot be negative")
	}
	if config.Remote.TimeoutSeconds < 1 {
		return fmt.Errorf("remote.timeout_seconds must be at least 1")
	}

	return nil
}

// ValidateRemote checks the settings the upload path cannot run without
func (c *AppConfig) ValidateRemote() error {
	if c.Remote.URL == "" {
		return fmt.Errorf("remote.url (IMMICH_URL) is not configured")
	}
	if c.Remote.APIKey == "" {
		return fmt.Errorf("remote.api_key (IMMICH_API_KEY) is not configured")
	}
	return nil
}

// ValidateSource checks the settings the scan path cannot run without
func (c *AppConfig) ValidateSource() error {
	if c.Source.Dir == "" {
		return fmt.Errorf("source.dir (SOURCE_DIR) is not configured")
	}
	return nil
}
