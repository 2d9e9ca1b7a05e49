// Config loading for the contactsync CLI: config.yaml under the config
// directory, a .env overlay for secrets, and CONTACTSYNC_* environment
// overrides.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/meshline/contactsync/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	databaseFile   = "links.db"

	envPrefix = "CONTACTSYNC"
)

// defaultConfigYAML is written to config.yaml on first run. Tokens belong
// in the .env file next to it, not here.
const defaultConfigYAML = `# contactsync configuration
#
# Credentials go into a .env file in this directory (or the environment):
#   CONTACTSYNC_DIRECTORY_TOKEN=...
#   CONTACTSYNC_CRM_TOKEN=...

directory:
  base_url: ""
  page_size: 200

crm:
  base_url: ""
  # Requests per second against the CRM API.
  rate_limit: 1.0

# Path of the link database (default: <data dir>/links.db)
# database_file:

# Add birthday and deceased-date reminders on the CRM.
create_reminders: true

# Delete the CRM contact when its directory contact disappears.
delete_on_sync: false

# Reorder "13 Main St" into "Main St 13" on upload.
street_reversal: false

# Field categories to sync. Names and birthdays are always synced.
fields:
  career: true
  address: true
  phone: true
  email: true
  labels: true
  notes: true

# Label filters. source_labels applies to the forward sync,
# target_labels to the back-sync. Exclude wins over include.
source_labels:
  include: []
  exclude: []
target_labels:
  include: []
  exclude: []

max_retries: 3
retry_delay: 2s

log_level: info
`

// loadConfig reads config.yaml from the config directory, creating the
// directory and a default file on first run, then overlays .env and
// environment variables and validates the result.
func loadConfig(configDir string) (types.Config, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return types.Config{}, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return types.Config{}, fmt.Errorf("ensure default config: %w", err)
	}

	// Secrets overlay; a missing .env is fine.
	_ = godotenv.Load(filepath.Join(configDir, ".env"))

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.DatabaseFile == "" {
		dataDir, err := resolveDataDir("")
		if err != nil {
			return types.Config{}, err
		}
		cfg.DatabaseFile = filepath.Join(dataDir, databaseFile)
	} else if abs, err := filepath.Abs(cfg.DatabaseFile); err == nil {
		cfg.DatabaseFile = abs
	}

	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("%w (edit %s)", err, filepath.Join(configDir, configFileExt))
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides bind even when
// config.yaml omits them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("directory.base_url", "")
	v.SetDefault("directory.token", "")
	v.SetDefault("directory.page_size", 200)
	v.SetDefault("crm.base_url", "")
	v.SetDefault("crm.token", "")
	v.SetDefault("crm.rate_limit", 1.0)
	v.SetDefault("database_file", "")
	v.SetDefault("create_reminders", true)
	v.SetDefault("delete_on_sync", false)
	v.SetDefault("street_reversal", false)
	v.SetDefault("fields.career", true)
	v.SetDefault("fields.address", true)
	v.SetDefault("fields.phone", true)
	v.SetDefault("fields.email", true)
	v.SetDefault("fields.labels", true)
	v.SetDefault("fields.notes", true)
	v.SetDefault("source_labels.include", []string{})
	v.SetDefault("source_labels.exclude", []string{})
	v.SetDefault("target_labels.include", []string{})
	v.SetDefault("target_labels.exclude", []string{})
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_delay", 2*time.Second)
	v.SetDefault("log_level", "info")
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o600)
}
