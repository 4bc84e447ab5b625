package cli

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/pacer"
	"github.com/aretw0/pacer/internal/config"
	"github.com/aretw0/pacer/pkg/adapters/device"
	"github.com/aretw0/pacer/pkg/adapters/file"
	loamstore "github.com/aretw0/pacer/pkg/adapters/loam"
	"github.com/aretw0/pacer/pkg/adapters/memory"
	"github.com/aretw0/pacer/pkg/adapters/process"
	redisstore "github.com/aretw0/pacer/pkg/adapters/redis"
	"github.com/aretw0/pacer/pkg/adapters/sqlite"
	"github.com/aretw0/pacer/pkg/domain"
	"github.com/aretw0/pacer/pkg/observability"
	"github.com/aretw0/pacer/pkg/persistence/middleware"
	"github.com/aretw0/pacer/pkg/ports"
	"github.com/aretw0/pacer/pkg/registry"
	"github.com/aretw0/pacer/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
)

// lockKey names the distributed lock held around saves.
const lockKey = "config"

// EngineOptions carries what the commands add on top of Settings.
type EngineOptions struct {
	Logger *slog.Logger
	// Registerer receives the engine metrics when Settings.Metrics is enabled.
	Registerer prometheus.Registerer
	// Actuator overrides the configured driver.
	Actuator ports.Actuator
	Hooks    domain.LifecycleHooks
}

// Actuators returns the registry of built-in actuator drivers.
func Actuators() *registry.Registry {
	r := registry.NewRegistry()
	r.Register("log", func(opts registry.Options) (ports.Actuator, error) {
		return device.NewLogActuator(opts.Logger, slog.LevelInfo), nil
	})
	r.Register("http", func(opts registry.Options) (ports.Actuator, error) {
		if opts.URL == "" {
			return nil, errors.New("http actuator requires a url")
		}
		var httpOpts []device.HTTPOption
		if opts.Timeout > 0 {
			httpOpts = append(httpOpts, device.WithTimeout(opts.Timeout))
		}
		return device.NewHTTPActuator(opts.URL, httpOpts...), nil
	})
	r.Register("exec", func(opts registry.Options) (ports.Actuator, error) {
		cfg, err := process.LoadCommand(opts.CommandFile)
		if err != nil {
			return nil, err
		}
		return process.NewActuator(cfg), nil
	})
	return r
}

// CreateEngine builds an engine from settings.
// The returned cleanup releases storage handles and must be called after Close.
func CreateEngine(s config.Settings, eo EngineOptions) (*pacer.Engine, func(), error) {
	logger := eo.Logger
	if logger == nil {
		logger = slog.Default()
	}

	persister, cleanup, err := createPersister(s)
	if err != nil {
		return nil, nil, err
	}
	fail := func(err error) (*pacer.Engine, func(), error) {
		cleanup()
		return nil, nil, err
	}

	mws := []middleware.Middleware{middleware.NewLoggingMiddleware(logger)}
	if s.Storage.EncryptionKey != "" {
		enc, err := createEncryption(s.Storage)
		if err != nil {
			return fail(err)
		}
		mws = append(mws, enc)
	}

	opts := []pacer.Option{
		pacer.WithPersister(middleware.Chain(persister, mws...)),
		pacer.WithLogger(logger),
		pacer.WithLifecycleHooks(eo.Hooks),
		pacer.WithFormat(saveFormat(s)),
	}

	actuator := eo.Actuator
	if actuator == nil {
		actuator, err = Actuators().Build(s.Actuator.Driver, registry.Options{
			URL:         s.Actuator.URL,
			Timeout:     s.Actuator.Timeout,
			CommandFile: s.Actuator.CommandFile,
			Logger:      logger,
		})
		if err != nil {
			return fail(err)
		}
	}
	opts = append(opts, pacer.WithActuator(actuator))

	if s.Metrics.Enabled && eo.Registerer != nil {
		m, err := observability.NewMetrics(eo.Registerer)
		if err != nil {
			return fail(fmt.Errorf("failed to register metrics: %w", err))
		}
		opts = append(opts, pacer.WithLifecycleHooks(m.Hooks()))
	}

	if rp, ok := persister.(*redisstore.Persister); ok && s.Storage.Redis.Lock {
		locker := redisstore.NewLocker(rp.Client(), s.Storage.Redis.Prefix)
		opts = append(opts, pacer.WithLocker(locker, lockKey, s.Storage.Redis.LockTTL))
	}

	engine, err := pacer.New(s.Patterns.Path, opts...)
	if err != nil {
		return fail(fmt.Errorf("error initializing engine: %w", err))
	}
	return engine, cleanup, nil
}

func createPersister(s config.Settings) (ports.ConfigPersister, func(), error) {
	noop := func() {}
	switch s.Storage.Driver {
	case "file", "":
		return file.New(s.Patterns.Path), noop, nil
	case "memory":
		return memory.NewPersister(), noop, nil
	case "redis":
		r := s.Storage.Redis
		p := redisstore.New(r.Addr, r.Password, r.DB, redisstore.WithPrefix(r.Prefix), redisstore.WithName(r.Name))
		return p, func() { _ = p.Client().Close() }, nil
	case "sqlite":
		p, err := sqlite.Open(s.Storage.SQLite.Path, sqlite.WithName(s.Storage.SQLite.Name))
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	case "loam":
		l := s.Storage.Loam
		p, err := loamstore.Open(l.Dir, l.Versioned, loamstore.WithID(l.ID), loamstore.WithFormat(string(saveFormat(s))))
		if err != nil {
			return nil, nil, err
		}
		return p, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", s.Storage.Driver)
	}
}

func saveFormat(s config.Settings) schema.Format {
	if s.Patterns.Format != "" {
		return schema.ParseFormat(s.Patterns.Format)
	}
	return schema.FormatFromPath(s.Patterns.Path)
}

func createEncryption(s config.StorageSettings) (middleware.Middleware, error) {
	active, err := decodeKey(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("storage.encryption_key: %w", err)
	}
	var fallbacks [][]byte
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, fmt.Errorf("storage.fallback_keys[%d]: %w", i, err)
		}
		fallbacks = append(fallbacks, key)
	}
	return middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: fallbacks,
	})
}

// decodeKey accepts a 32-byte key as hex or standard base64.
func decodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := hex.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	return nil, errors.New("key must be 32 bytes encoded as hex or base64")
}
