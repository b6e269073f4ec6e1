package tokenstore

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// Memory — хранилище в памяти процесса поверх go-cache без истечения.
type Memory struct {
	c *cache.Cache
}

func NewMemory() *Memory {
	return &Memory{c: cache.New(cache.NoExpiration, 0)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	v, ok := m.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}

	return v.(string), nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.c.Set(key, value, cache.NoExpiration)
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, k := range keys {
		m.c.Delete(k)
	}

	return nil
}

func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}

var _ Store = (*Memory)(nil)
