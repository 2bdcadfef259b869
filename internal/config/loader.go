package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/matzehuels/tracemap/pkg/errors"
)

// Search locations for config files.
const (
	GlobalConfigDir   = "tracemap"
	GlobalConfigFile  = "config.yaml"
	ProjectConfigDir  = ".tracemap"
	ProjectConfigFile = "config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. TRACEMAP_LAYOUT_RANK_GAP.
	EnvPrefix = "TRACEMAP"
)

// Load reads configuration into a fresh Config. Later sources override
// earlier ones:
//  1. Default() values
//  2. ~/.config/tracemap/config.yaml
//  3. .tracemap/config.yaml
//  4. the file named by the "config" key (--config or TRACEMAP_CONFIG)
//  5. TRACEMAP_* environment variables
//  6. flags already bound to v
//
// Missing global and project files are ignored; an explicit file must exist.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults, err := structToMap(cfg)
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(defaults); err != nil {
		return nil, err
	}

	for _, path := range []string{globalConfigPath(), projectConfigPath()} {
		if path == "" {
			continue
		}
		if err := loadConfigFile(v, path); err != nil {
			return nil, err
		}
	}

	if explicit := v.GetString("config"); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", explicit)
		}
		if err := loadConfigFile(v, explicit); err != nil {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg, decodeHook()); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config")
	}
	return cfg, nil
}

// GlobalPath returns where the global config file lives, whether or not it
// exists.
func GlobalPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, GlobalConfigDir, GlobalConfigFile)
}

func globalConfigPath() string {
	path := GlobalPath()
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func projectConfigPath() string {
	path := filepath.Join(ProjectConfigDir, ProjectConfigFile)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// loadConfigFile merges a YAML file into v through a scratch viper so that
// keys from earlier files survive.
func loadConfigFile(v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	fv := viper.New()
	fv.SetConfigType("yaml")
	if err := fv.ReadConfig(f); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	return v.MergeConfigMap(fv.AllSettings())
}

func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

func structToMap(cfg *Config) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "mapstructure",
		Result:     &result,
		DecodeHook: durationToString(),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	return result, nil
}

// durationToString keeps durations readable ("300ms") in the merged map.
func durationToString() mapstructure.DecodeHookFunc {
	return func(from, _ reflect.Type, data interface{}) (interface{}, error) {
		if from != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return data.(time.Duration).String(), nil
	}
}
