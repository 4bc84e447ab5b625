package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/pacer/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.ConfigPersister
	logger *slog.Logger
}

// NewLoggingMiddleware logs every load and save with its size and latency.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.ConfigPersister) ports.ConfigPersister {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) Unwrap() ports.ConfigPersister { return m.next }

func (m *loggingMiddleware) Load(ctx context.Context) ([]byte, error) {
	start := time.Now()
	data, err := m.next.Load(ctx)
	if err != nil {
		m.logger.DebugContext(ctx, "Config load failed", "duration", time.Since(start), "err", err)
		return nil, err
	}
	m.logger.DebugContext(ctx, "Config loaded", "bytes", len(data), "duration", time.Since(start))
	return data, nil
}

func (m *loggingMiddleware) Save(ctx context.Context, data []byte) error {
	start := time.Now()
	if err := m.next.Save(ctx, data); err != nil {
		m.logger.WarnContext(ctx, "Config save failed", "bytes", len(data), "duration", time.Since(start), "err", err)
		return err
	}
	m.logger.InfoContext(ctx, "Config saved", "bytes", len(data), "duration", time.Since(start))
	return nil
}
