// Package config loads pacer settings from an optional YAML file,
// PACER_* environment variables and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no settings file is given and it exists.
const DefaultFile = "pacer.yaml"

// Settings is the full runtime configuration.
type Settings struct {
	Patterns PatternsSettings `mapstructure:"patterns" yaml:"patterns"`
	Storage  StorageSettings  `mapstructure:"storage" yaml:"storage"`
	Actuator ActuatorSettings `mapstructure:"actuator" yaml:"actuator"`
	Server   ServerSettings   `mapstructure:"server" yaml:"server"`
	Metrics  MetricsSettings  `mapstructure:"metrics" yaml:"metrics"`
	Log      LogSettings      `mapstructure:"log" yaml:"log"`
	// Watch enables hot reload when the storage driver can signal changes.
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

type PatternsSettings struct {
	// Path is the document file used by the file driver.
	Path string `mapstructure:"path" yaml:"path"`
	// Format is the serialization written on save: json or yaml.
	// Empty picks it from the file extension.
	Format string `mapstructure:"format" yaml:"format"`
}

type StorageSettings struct {
	// Driver is one of file, memory, redis, sqlite, loam.
	Driver string         `mapstructure:"driver" yaml:"driver"`
	Redis  RedisSettings  `mapstructure:"redis" yaml:"redis"`
	SQLite SQLiteSettings `mapstructure:"sqlite" yaml:"sqlite"`
	Loam   LoamSettings   `mapstructure:"loam" yaml:"loam"`
	// EncryptionKey enables AES-256-GCM at rest. Hex or base64, 32 bytes decoded.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"`
	// FallbackKeys decrypt documents written with rotated-out keys.
	FallbackKeys []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
}

type RedisSettings struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
	Name     string `mapstructure:"name" yaml:"name"`
	// Lock holds a redis lock around every save.
	Lock    bool          `mapstructure:"lock" yaml:"lock"`
	LockTTL time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
}

type SQLiteSettings struct {
	Path string `mapstructure:"path" yaml:"path"`
	Name string `mapstructure:"name" yaml:"name"`
}

type LoamSettings struct {
	Dir       string `mapstructure:"dir" yaml:"dir"`
	ID        string `mapstructure:"id" yaml:"id"`
	Versioned bool   `mapstructure:"versioned" yaml:"versioned"`
}

type ActuatorSettings struct {
	// Driver is one of log, http, exec.
	Driver  string        `mapstructure:"driver" yaml:"driver"`
	URL     string        `mapstructure:"url" yaml:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// CommandFile describes the program run by the exec driver.
	CommandFile string `mapstructure:"command_file" yaml:"command_file"`
}

type ServerSettings struct {
	Port int `mapstructure:"port" yaml:"port"`
}

type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type LogSettings struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Patterns: PatternsSettings{Path: ".pacer/patterns.json"},
		Storage: StorageSettings{
			Driver: "file",
			Redis:  RedisSettings{Addr: "localhost:6379", Prefix: "pacer:", Name: "patterns", LockTTL: 10 * time.Second},
			SQLite: SQLiteSettings{Path: ".pacer/pacer.db", Name: "patterns"},
			Loam:   LoamSettings{Dir: ".pacer/loam", ID: "patterns"},
		},
		Actuator: ActuatorSettings{Driver: "log", Timeout: 5 * time.Second},
		Server:   ServerSettings{Port: 8080},
		Log:      LogSettings{Level: "info"},
	}
}

// envKeys maps environment variables to settings keys.
var envKeys = map[string]string{
	"PACER_PATTERNS_PATH":         "patterns.path",
	"PACER_PATTERNS_FORMAT":       "patterns.format",
	"PACER_STORAGE_DRIVER":        "storage.driver",
	"PACER_ENCRYPTION_KEY":        "storage.encryption_key",
	"PACER_ENCRYPTION_FALLBACK":   "storage.fallback_keys",
	"PACER_REDIS_ADDR":            "storage.redis.addr",
	"PACER_REDIS_PASSWORD":        "storage.redis.password",
	"PACER_REDIS_DB":              "storage.redis.db",
	"PACER_REDIS_PREFIX":          "storage.redis.prefix",
	"PACER_REDIS_LOCK":            "storage.redis.lock",
	"PACER_SQLITE_PATH":           "storage.sqlite.path",
	"PACER_LOAM_DIR":              "storage.loam.dir",
	"PACER_LOAM_VERSIONED":        "storage.loam.versioned",
	"PACER_ACTUATOR_DRIVER":       "actuator.driver",
	"PACER_ACTUATOR_URL":          "actuator.url",
	"PACER_ACTUATOR_TIMEOUT":      "actuator.timeout",
	"PACER_ACTUATOR_COMMAND_FILE": "actuator.command_file",
	"PACER_SERVER_PORT":           "server.port",
	"PACER_METRICS_ENABLED":       "metrics.enabled",
	"PACER_LOG_LEVEL":             "log.level",
	"PACER_WATCH":                 "watch",
}

// Load builds settings from defaults, the YAML file at path and the environment.
// An empty path reads DefaultFile when it exists.
func Load(path string, lookupEnv func(string) (string, bool)) (Settings, error) {
	s := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := s.merge(data); err != nil {
			return Settings{}, fmt.Errorf("%s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if err := s.applyEnv(lookupEnv); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) merge(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse settings: %w", err)
	}
	if raw == nil {
		return nil
	}
	return decode(raw, s, true)
}

func (s *Settings) applyEnv(lookupEnv func(string) (string, bool)) error {
	raw := map[string]any{}
	for env, key := range envKeys {
		val, ok := lookupEnv(env)
		if !ok {
			continue
		}
		setPath(raw, strings.Split(key, "."), val)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := decode(raw, s, false); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	return nil
}

func setPath(m map[string]any, keys []string, val string) {
	for _, k := range keys[:len(keys)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[k] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = val
}

func decode(raw map[string]any, out *Settings, strict bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// Validate reports settings that cannot produce a working engine.
func (s Settings) Validate() error {
	var errs []error
	switch s.Storage.Driver {
	case "file", "memory", "redis", "sqlite", "loam":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", s.Storage.Driver))
	}
	switch s.Actuator.Driver {
	case "log", "http", "exec":
	default:
		errs = append(errs, fmt.Errorf("actuator.driver: unknown driver %q", s.Actuator.Driver))
	}
	if s.Actuator.Driver == "http" && s.Actuator.URL == "" {
		errs = append(errs, errors.New("actuator.url: required by the http driver"))
	}
	if s.Actuator.Driver == "exec" && s.Actuator.CommandFile == "" {
		errs = append(errs, errors.New("actuator.command_file: required by the exec driver"))
	}
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", s.Server.Port))
	}
	return errors.Join(errs...)
}
