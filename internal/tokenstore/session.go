package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pribylovaa/guanavive/internal/models"
)

// Session — типизированная обёртка над Store для ключей сессии.
type Session struct {
	store Store
}

func NewSession(store Store) *Session {
	return &Session{store: store}
}

// Store возвращает нижележащее хранилище.
func (s *Session) Store() Store { return s.store }

// AccessToken возвращает access-токен или "" если его нет.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	return s.optional(ctx, KeyAccessToken)
}

// RefreshToken возвращает refresh-токен или "" если его нет.
func (s *Session) RefreshToken(ctx context.Context) (string, error) {
	return s.optional(ctx, KeyRefreshToken)
}

func (s *Session) Credentials(ctx context.Context) (models.Credentials, error) {
	const op = "tokenstore.Session.Credentials"

	access, err := s.AccessToken(ctx)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.RefreshToken(ctx)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

// SaveCredentials записывает оба токена. Пустой токен удаляет ключ.
func (s *Session) SaveCredentials(ctx context.Context, c models.Credentials) error {
	const op = "tokenstore.Session.SaveCredentials"

	if err := s.put(ctx, KeyAccessToken, c.AccessToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.put(ctx, KeyRefreshToken, c.RefreshToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Session) SaveUser(ctx context.Context, u *models.User) error {
	const op = "tokenstore.Session.SaveUser"

	if u == nil {
		return s.store.Delete(ctx, KeyUser)
	}

	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.Set(ctx, KeyUser, string(b)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// User возвращает сохранённый профиль или nil, если его нет.
func (s *Session) User(ctx context.Context) (*models.User, error) {
	const op = "tokenstore.Session.User"

	raw, err := s.optional(ctx, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if raw == "" {
		return nil, nil
	}

	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &u, nil
}

// Clear удаляет все ключи сессии.
func (s *Session) Clear(ctx context.Context) error {
	const op = "tokenstore.Session.Clear"

	if err := s.store.Delete(ctx, Keys...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Session) optional(ctx context.Context, key string) (string, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}

	return v, err
}

func (s *Session) put(ctx context.Context, key, value string) error {
	if value == "" {
		return s.store.Delete(ctx, key)
	}

	return s.store.Set(ctx, key, value)
}
