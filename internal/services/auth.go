package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/guanavive/internal/apiclient"
	apierrors "github.com/pribylovaa/guanavive/internal/errors"
	"github.com/pribylovaa/guanavive/internal/models"
	"github.com/pribylovaa/guanavive/pkg/log"
	"github.com/pribylovaa/guanavive/pkg/redact"

	"github.com/golang-jwt/jwt/v5"
)

// Auth — вход, регистрация, выход и профиль текущего пользователя.
// Единственное место, кроме цикла обновления, где пишутся учётные данные.
type Auth struct {
	c *apiclient.Client
}

func NewAuth(c *apiclient.Client) *Auth {
	return &Auth{c: c}
}

// Login сохраняет оба токена и профиль пользователя.
func (a *Auth) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	const op = "services.Auth.Login"
	return a.authenticate(ctx, op, "/auth/login", req, req.Email)
}

func (a *Auth) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	const op = "services.Auth.Register"
	return a.authenticate(ctx, op, "/auth/register", req, req.Email)
}

func (a *Auth) authenticate(ctx context.Context, op, path string, body any, email string) (*models.AuthResponse, error) {
	ctx, l := log.With(ctx, slog.String("email", redact.Email(email)))

	if err := Validate(body); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := apiclient.Call[models.AuthResponse](ctx, a.c, http.MethodPost, path, body, apiclient.WithoutAuthRefresh())
	if err != nil {
		l.Info("auth_failed", slog.String("path", path), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, &apierrors.Error{
			Message:    "auth response has no access token",
			StatusCode: http.StatusBadGateway,
			Code:       apierrors.CodeBadResponse,
		})
	}

	s := a.c.Session()
	if err := s.SaveCredentials(ctx, resp.Credentials()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.SaveUser(ctx, resp.User); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	l.Info("auth_succeeded", slog.String("path", path))

	return resp, nil
}

// Logout уведомляет бэкенд и всегда очищает локальные учётные данные.
// 401 от бэкенда не запускает цикл обновления.
// Ошибка бэкенда только логируется: локально сессия завершена в любом случае.
func (a *Auth) Logout(ctx context.Context) error {
	const op = "services.Auth.Logout"

	l := log.From(ctx)
	s := a.c.Session()

	rt, err := s.RefreshToken(ctx)
	if err != nil {
		l.Warn("logout_read_refresh_failed", slog.String("err", err.Error()))
	}

	if rt != "" {
		// Выход не должен запускать обновление и уведомление об истечении.
		_, err := apiclient.Post[any](ctx, a.c, "/auth/logout", models.RefreshRequest{RefreshToken: rt},
			apiclient.WithoutAuthRefresh())
		if err != nil {
			l.Warn("logout_backend_failed", slog.String("err", err.Error()))
		}
	}

	if err := s.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	l.Info("logout_succeeded")

	return nil
}

// Me запрашивает профиль и обновляет сохранённую копию.
func (a *Auth) Me(ctx context.Context) (*models.User, error) {
	const op = "services.Auth.Me"

	resp, err := apiclient.Call[models.MeResponse](ctx, a.c, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.User == nil {
		return nil, fmt.Errorf("%s: %w", op, &apierrors.Error{
			Message:    "profile response has no user",
			StatusCode: http.StatusBadGateway,
			Code:       apierrors.CodeBadResponse,
		})
	}

	if err := a.c.Session().SaveUser(ctx, resp.User); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return resp.User, nil
}

// SessionStatus — локальное состояние сессии без обращения к бэкенду.
type SessionStatus struct {
	LoggedIn        bool         `json:"loggedIn"`
	User            *models.User `json:"user,omitempty"`
	AccessExpiresAt *time.Time   `json:"accessExpiresAt,omitempty"`
	AccessExpired   bool         `json:"accessExpired"`
	Refreshing      bool         `json:"refreshing"`
}

// Status читает хранилище. Срок access-токена берётся из claim exp без
// проверки подписи: ключа у клиента нет, значение только справочное.
func (a *Auth) Status(ctx context.Context, now time.Time) (SessionStatus, error) {
	const op = "services.Auth.Status"

	s := a.c.Session()

	creds, err := s.Credentials(ctx)
	if err != nil {
		return SessionStatus{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.User(ctx)
	if err != nil {
		return SessionStatus{}, fmt.Errorf("%s: %w", op, err)
	}

	st := SessionStatus{
		LoggedIn:   creds.RefreshToken != "" || creds.AccessToken != "",
		User:       user,
		Refreshing: a.c.Refreshing(),
	}

	if exp, ok := tokenExpiry(creds.AccessToken); ok {
		st.AccessExpiresAt = &exp
		st.AccessExpired = !now.Before(exp)
	}

	return st, nil
}

func tokenExpiry(tok string) (time.Time, bool) {
	if tok == "" {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return time.Time{}, false
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}

	return claims.ExpiresAt.Time, true
}
