package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/powdertrack/internal/paths"
	"github.com/mesh-intelligence/powdertrack/pkg/types"
)

// Config keys.
const (
	cfgKeyBackend            = "backend"
	cfgKeyDataDir            = "data_dir"
	cfgKeyEnforceForeignKeys = "enforce_foreign_keys"
	cfgKeyDeletePolicy       = "delete_policy"
	cfgKeyCompactionScope    = "compaction_scope"
)

// envPrefix prefixes the environment overrides of the policy keys, e.g.
// POWDERTRACK_DELETE_POLICY.
const envPrefix = "POWDERTRACK"

// configFile is the structure written to config.yaml by init.
type configFile struct {
	Backend            string `yaml:"backend"`
	DataDir            string `yaml:"data_dir,omitempty"`
	EnforceForeignKeys bool   `yaml:"enforce_foreign_keys"`
	DeletePolicy       string `yaml:"delete_policy"`
	CompactionScope    string `yaml:"compaction_scope"`
}

func defaultConfigFile(dataDir string) configFile {
	return configFile{
		Backend:         types.BackendSQLite,
		DataDir:         dataDir,
		DeletePolicy:    string(types.PolicyWarn),
		CompactionScope: string(types.ScopeMandatoryPrefix),
	}
}

// loadConfig reads config.yaml from the resolved config directory with
// Viper and resolves the data directory. A missing config.yaml is not an
// error; defaults apply.
func loadConfig(f *rootFlags) (types.Config, error) {
	configDir, err := paths.ResolveConfigDir(f.configDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve config dir: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyEnforceForeignKeys, false)
	v.SetDefault(cfgKeyDeletePolicy, string(types.PolicyWarn))
	v.SetDefault(cfgKeyCompactionScope, string(types.ScopeMandatoryPrefix))
	v.SetConfigFile(filepath.Join(configDir, paths.ConfigFile))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{cfgKeyEnforceForeignKeys, cfgKeyDeletePolicy, cfgKeyCompactionScope} {
		if err := v.BindEnv(key); err != nil {
			return types.Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	dataDir, err := paths.ResolveDataDir(f.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.Config{
		Backend:            v.GetString(cfgKeyBackend),
		DataDir:            dataDir,
		EnforceForeignKeys: v.GetBool(cfgKeyEnforceForeignKeys),
		DeletePolicy:       types.DeletePolicy(v.GetString(cfgKeyDeletePolicy)),
		CompactionScope:    types.CompactionScope(v.GetString(cfgKeyCompactionScope)),
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("config %s: %w", v.ConfigFileUsed(), err)
	}
	return cfg, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. An existing file is left untouched.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config: %w", err)
	}

	cfg := defaultConfigFile(dataDir)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
