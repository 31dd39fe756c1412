// Config loading for the artvault CLI.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/dreamlayer/artvault/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Config keys. Names match the types.Config yaml tags.
	cfgKeyDataDir          = "data_dir"
	cfgKeyOwnerTag         = "owner_tag"
	cfgKeyItemCap          = "item_cap"
	cfgKeyFlatQuotaBytes   = "flat_quota_bytes"
	cfgKeySnapshotInterval = "snapshot_interval"
	cfgKeyAdapterTimeout   = "adapter_timeout"
)

// defaultDataDir is used when no data directory comes from flag or config.
const defaultDataDir = ".artvault-db"

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# Artvault CLI configuration

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Owner tag attached to records created without one
# owner_tag: anonymous

# Per-collection record cap; oldest records are evicted first
# item_cap: 100

# Flat store quota in bytes
# flat_quota_bytes: 5242880

# Periodic snapshot interval (unused by one-shot commands)
# snapshot_interval: 5m

# Per-adapter call timeout
# adapter_timeout: 5s
`

// loadVaultConfig reads config.yaml from the resolved config directory and
// merges it with the global flags into a types.Config. Flag beats config
// beats default; the config directory and a default config.yaml are
// created on first run.
func loadVaultConfig() (types.Config, error) {
	v, err := loadViper(resolveConfigDir())
	if err != nil {
		return types.Config{}, err
	}

	dataDir := flags.dataDir
	if dataDir == "" {
		dataDir = v.GetString(cfgKeyDataDir)
	}
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return types.Config{}, fmt.Errorf("create data directory: %w", err)
	}

	cfg := types.Config{
		DataDir:          dataDir,
		OwnerTag:         v.GetString(cfgKeyOwnerTag),
		ItemCap:          v.GetInt(cfgKeyItemCap),
		FlatQuotaBytes:   v.GetInt64(cfgKeyFlatQuotaBytes),
		SnapshotInterval: v.GetDuration(cfgKeySnapshotInterval),
		AdapterTimeout:   v.GetDuration(cfgKeyAdapterTimeout),
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// loadViper reads config.yaml using Viper. A missing config.yaml is not an
// error; the directory and a commented default file are created first.
func loadViper(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
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

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
