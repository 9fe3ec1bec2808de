package viewkit

import (
	"strings"

	"github.com/autom8ter/viewkit/collate"
	"github.com/autom8ter/viewkit/errors"
	"github.com/autom8ter/viewkit/util"
	"github.com/spf13/viper"
)

// Config configures a database instance
type Config struct {
	// Provider is the registered kv provider backing the database (badger)
	Provider string `json:"provider" validate:"required"`
	// Params are passed to the kv provider, e.g. storage_path. An empty storage_path runs badger in memory.
	Params map[string]any `json:"params"`
	// LogLevel is one of error, warn, info, debug
	LogLevel string `json:"logLevel"`
	// Collation is raw (code point order) or unicode
	Collation string `json:"collation" validate:"omitempty,oneof=raw unicode"`
	// Language tailors the unicode collation, e.g. en or de
	Language string `json:"language"`
	// ReduceChunkSize, if > 0, reduces large groups in chunks that are combined with rereduce
	ReduceChunkSize int `json:"reduceChunkSize" validate:"gte=0"`
	// FetchConcurrency bounds concurrent document fetches while materializing rows
	FetchConcurrency int `json:"fetchConcurrency" validate:"gte=0"`
	// DocumentCacheSize is the number of document revisions kept in memory
	DocumentCacheSize int64 `json:"documentCacheSize" validate:"gte=0"`
	// Views are defined when the database is opened
	Views []View `json:"views" validate:"dive"`
}

// DefaultConfig returns a config for an in-memory database
func DefaultConfig() Config {
	return Config{
		Provider:          "badger",
		Params:            map[string]any{"storage_path": ""},
		LogLevel:          "info",
		Collation:         "raw",
		FetchConcurrency:  8,
		DocumentCacheSize: 10000,
	}
}

// Validate validates the config
func (c Config) Validate() error {
	if err := util.ValidateStruct(c); err != nil {
		return errors.Wrap(err, errors.Validation, "invalid config")
	}
	return nil
}

// Collator returns the collator selected by the config
func (c Config) Collator() (collate.Collator, error) {
	return collate.ByName(c.Collation, c.Language)
}

// ConfigFromMap decodes and validates a config. Unset fields keep their default value.
func ConfigFromMap(values map[string]any) (Config, error) {
	cfg := DefaultConfig()
	if err := util.Decode(values, &cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.Validation, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var configKeys = []string{
	"provider",
	"params.storage_path",
	"logLevel",
	"collation",
	"language",
	"reduceChunkSize",
	"fetchConcurrency",
	"documentCacheSize",
}

// LoadConfig loads a config from a yaml, json or toml file (optional) and VIEWKIT_ prefixed
// environment variables, e.g. VIEWKIT_LOGLEVEL or VIEWKIT_PARAMS_STORAGE_PATH.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VIEWKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, errors.Wrap(err, errors.Validation, "failed to bind %s", key)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrap(err, errors.Validation, "failed to read config %s", path)
		}
	}
	settings := v.AllSettings()
	// viper lower cases keys, decoding matches json tags case insensitively
	return ConfigFromMap(settings)
}
