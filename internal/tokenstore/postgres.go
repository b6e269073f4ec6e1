package tokenstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Postgres — хранилище в таблице session_kv; несколько реплик шлюза
// с одним namespace делят одну сессию.
type Postgres struct {
	db        *pgxpool.Pool
	namespace string
}

// NewPostgres подключается к PostgreSQL и создаёт таблицу, если её нет.
func NewPostgres(ctx context.Context, dsn, namespace string) (*Postgres, error) {
	const op = "tokenstore.NewPostgres"

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if namespace == "" {
		namespace = "default"
	}

	return &Postgres{db: db, namespace: namespace}, nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	const op = "tokenstore.Postgres.Get"

	query := `
		SELECT value
		FROM session_kv
		WHERE namespace = $1 AND key = $2
	`

	var v string
	err := p.db.QueryRow(ctx, query, p.namespace, key).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	const op = "tokenstore.Postgres.Set"

	query := `
		INSERT INTO session_kv(namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`

	if _, err := p.db.Exec(ctx, query, p.namespace, key, value); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *Postgres) Delete(ctx context.Context, keys ...string) error {
	const op = "tokenstore.Postgres.Delete"

	if len(keys) == 0 {
		return nil
	}

	query := `
		DELETE FROM session_kv
		WHERE namespace = $1 AND key = ANY($2)
	`

	if _, err := p.db.Exec(ctx, query, p.namespace, keys); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает пул соединений.
func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}

var _ Store = (*Postgres)(nil)
