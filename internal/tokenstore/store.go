// Package tokenstore хранит учётные данные сессии GuanaVive:
// пару токенов и профиль пользователя под тремя фиксированными ключами.
package tokenstore

import (
	"context"
	"errors"
)

// Фиксированные ключи хранилища.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// Keys — все ключи сессии в порядке очистки.
var Keys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

var (
	// ErrNotFound — ключ отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrClosed — хранилище уже закрыто.
	ErrClosed = errors.New("store closed")
)

// Store — минимальный контракт key/value-хранилища сессии.
//
//go:generate mockgen -source=store.go -destination=../../mocks/mock_store.go -package=mocks
type Store interface {
	// Get возвращает значение или ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set сохраняет значение, перезаписывая прежнее.
	Set(ctx context.Context, key, value string) error
	// Delete удаляет ключи; отсутствующие ключи не считаются ошибкой.
	Delete(ctx context.Context, keys ...string) error
	// Close освобождает ресурсы хранилища.
	Close() error
}
