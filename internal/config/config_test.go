package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigLoader_Defaults(t *testing.T) {
	loader := NewConfigLoader()
	config, err := loader.Load()
	assert.NoError(t, err)
	assert.NotNil(t, config)

	assert.Equal(t, "mysql", config.Database.Driver)
	assert.Equal(t, "localhost", config.Database.Host)
	assert.Equal(t, 3306, config.Database.Port)
	assert.Equal(t, "medialift", config.Database.Name)
	assert.Equal(t, DefaultMaxOpenConns, config.Database.MaxOpenConns)
	assert.Equal(t, DefaultMaxIdleConns, config.Database.MaxIdleConns)

	assert.Equal(t, 5, config.Upload.MaxConsecutiveErrors)
	assert.Equal(t, 100, config.Upload.DelayMs)
	assert.Equal(t, 4096, config.Upload.HashChunkSize)
	assert.Equal(t, 1, config.Upload.Workers)

	assert.Equal(t, "medialift", config.Remote.DeviceID)
	assert.Equal(t, "info", config.Logging.Level)
	assert.False(t, config.Monitor.Enabled)
}

func TestConfigLoader_Load(t *testing.T) {
	// Create a temporary config file
	tmpfile := "test_config.yaml"
	configContent := `
remote:
  url: "http://immich.local:2283"
  api_key: "test-key"
database:
  driver: "sqlite"
  path: "/tmp/catalog.db"
source:
  dir: "/photos"
  image_extensions: "jpg,png"
upload:
  workers: 4
  delay_ms: 0
`

	err := os.WriteFile(tmpfile, []byte(configContent), 0644)
	assert.NoError(t, err)
	defer os.Remove(tmpfile)

	loader := NewConfigLoader()
	loader.SetConfigFile(tmpfile)

	config, err := loader.Load()
	assert.NoError(t, err)
	assert.NotNil(t, config)

	assert.Equal(t, "http://immich.local:2283", config.Remote.URL)
	assert.Equal(t, "test-key", config.Remote.APIKey)
	assert.Equal(t, "sqlite", config.Database.Driver)
	assert.Equal(t, "/tmp/catalog.db", config.Database.Path)
	assert.Equal(t, "/photos", config.Source.Dir)
	assert.Equal(t, []string{"jpg", "png"}, config.Source.ImageExtensionList())
	assert.Equal(t, 4, config.Upload.Workers)
	assert.Equal(t, 0, config.Upload.DelayMs)

	// Values absent from the file keep their defaults
	assert.Equal(t, 5, config.Upload.MaxConsecutiveErrors)
	assert.Equal(t, 4096, config.Upload.HashChunkSize)
}

func TestConfigLoader_EnvironmentOverride(t *testing.T) {
	tmpfile := "test_config_with_env_override.yaml"
	configContent := `
remote:
  url: "http://from-file:2283"
database:
  driver: "mysql"
  host: "file-db"
`

	err := os.WriteFile(tmpfile, []byte(configContent), 0644)
	assert.NoError(t, err)
	defer os.Remove(tmpfile)

	os.Setenv("IMMICH_URL", "http://from-env:2283")
	os.Setenv("DB_HOST", "env-db")
	os.Setenv("MAX_CONSECUTIVE_ERRORS", "9")
	defer os.Unsetenv("IMMICH_URL")
	defer os.Unsetenv("DB_HOST")
	defer os.Unsetenv("MAX_CONSECUTIVE_ERRORS")

	loader := NewConfigLoader()
	loader.SetConfigFile(tmpfile)

	config, err := loader.Load()
	assert.NoError(t, err)
	assert.NotNil(t, config)

	// Environment variables override the config file
	assert.Equal(t, "http://from-env:2283", config.Remote.URL)
	assert.Equal(t, "env-db", config.Database.Host)
	assert.Equal(t, 9, config.Upload.MaxConsecutiveErrors)
	assert.Equal(t, "mysql", config.Database.Driver) // From file
}

func TestConfigValidation(t *testing.T) {
	validConfig := &AppConfig{
		Remote: RemoteConfig{TimeoutSeconds: 300},
		Database: DatabaseConfig{
			Driver: "mysql",
			Host:   "localhost",
			Port:   3306,
		},
		Upload: UploadConfig{
			MaxConsecutiveErrors: 5,
			HashChunkSize:        4096,
			Workers:              1,
		},
	}

	err := validateConfig(validConfig)
	assert.NoError(t, err)

	// Unknown driver
	badDriver := *validConfig
	badDriver.Database.Driver = "oracle"
	err = validateConfig(&badDriver)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")

	// Invalid port
	badPort := *validConfig
	badPort.Database.Port = 70000
	err = validateConfig(&badPort)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database.port must be between 1 and 65535")

	// sqlite does not need host/port
	sqliteConfig := *validConfig
	sqliteConfig.Database.Driver = "sqlite"
	sqliteConfig.Database.Host = ""
	sqliteConfig.Database.Port = 0
	err = validateConfig(&sqliteConfig)
	assert.NoError(t, err)

	// Zero workers
	badWorkers := *validConfig
	badWorkers.Upload.Workers = 0
	err = validateConfig(&badWorkers)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "upload.workers must be at least 1")

	// Breaker threshold below one
	badThreshold := *validConfig
	badThreshold.Upload.MaxConsecutiveErrors = 0
	err = validateConfig(&badThreshold)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "upload.max_consecutive_errors")
}

func TestSplitExtensions(t *testing.T) {
	assert.Equal(t, []string{"jpg", "jpeg", "png"}, splitExtensions("jpg,jpeg,png"))
	assert.Equal(t, []string{"jpg", "png"}, splitExtensions(" JPG , .PNG "))
	assert.Equal(t, []string{"mp4"}, splitExtensions("mp4,,"))
	assert.Empty(t, splitExtensions(""))
}

func TestRequiredSettingChecks(t *testing.T) {
	config := &AppConfig{}

	assert.Error(t, config.ValidateRemote())
	assert.Error(t, config.ValidateSource())

	config.Remote.URL = "http://immich.local:2283"
	assert.Error(t, config.ValidateRemote())

	config.Remote.APIKey = "key"
	assert.NoError(t, config.ValidateRemote())

	config.Source.Dir = "/photos"
	assert.NoError(t, config.ValidateSource())
}
