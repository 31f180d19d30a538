package badgerfx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const gcInterval = 10 * time.Minute

func Module() fx.Option {
	return fx.Module(
		"badgerfx",
		logger.WithNamedLogger("badgerfx"),
		fx.Provide(newLogger, fx.Private),
		fx.Provide(New),
		fx.Invoke(func(db *badger.DB, config Config, logger *zap.Logger, lifecycle fx.Lifecycle) {
			done := make(chan struct{})

			lifecycle.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					logger.Info("store opened", zap.String("dir", config.Dir), zap.Bool("in_memory", config.InMemory))
					if !config.InMemory {
						go runValueLogGC(db, logger, done)
					}
					return nil
				},
				OnStop: func(_ context.Context) error {
					close(done)
					logger.Info("closing store")
					if err := db.Close(); err != nil {
						return fmt.Errorf("failed to close badger store: %w", err)
					}
					return nil
				},
			})
		}),
	)
}

// runValueLogGC reclaims value-log space periodically. History entries
// expire via TTL, so without GC the value log only ever grows.
func runValueLogGC(db *badger.DB, logger *zap.Logger, done <-chan struct{}) {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logger.Warn("value log GC failed", zap.Error(err))
			}
		}
	}
}
