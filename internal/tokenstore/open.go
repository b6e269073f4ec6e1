package tokenstore

import (
	"context"
	"fmt"

	"github.com/pribylovaa/guanavive/internal/config"
)

// Open создаёт хранилище по storage.driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	const op = "tokenstore.Open"

	var (
		st  Store
		err error
	)

	switch cfg.Driver {
	case "", config.DriverMemory:
		st = NewMemory()
	case config.DriverFile:
		st, err = NewFile(cfg.Path)
	case config.DriverBolt:
		st, err = NewBolt(cfg.Path)
	case config.DriverRedis:
		st, err = NewRedis(ctx, cfg.RedisURL, cfg.Namespace)
	case config.DriverPostgres:
		st, err = NewPostgres(ctx, cfg.PostgresDSN, cfg.Namespace)
	default:
		return nil, fmt.Errorf("%s: unknown driver %q", op, cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return st, nil
}
