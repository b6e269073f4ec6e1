package services

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pribylovaa/guanavive/internal/apiclient"
	"github.com/pribylovaa/guanavive/internal/apitest"
	apierrors "github.com/pribylovaa/guanavive/internal/errors"
	"github.com/pribylovaa/guanavive/internal/models"
	"github.com/pribylovaa/guanavive/internal/tokenstore"
	"github.com/pribylovaa/guanavive/pkg/log"

	"github.com/stretchr/testify/require"
)

func newSvc(t *testing.T) (*Services, *apitest.Backend, tokenstore.Store) {
	t.Helper()

	b := apitest.New()
	t.Cleanup(b.Close)

	st := tokenstore.NewMemory()
	c, err := apiclient.New(apiclient.Config{BaseURL: b.APIURL(), Store: st, Timeout: 5 * time.Second})
	require.NoError(t, err)

	return New(c), b, st
}

func login(t *testing.T, s *Services) {
	t.Helper()
	_, err := s.Auth.Login(context.Background(), models.LoginRequest{Email: apitest.Email, Password: apitest.Password})
	require.NoError(t, err)
}

func requireEmpty(t *testing.T, st tokenstore.Store) {
	t.Helper()
	for _, k := range tokenstore.Keys {
		_, err := st.Get(context.Background(), k)
		require.ErrorIs(t, err, tokenstore.ErrNotFound, k)
	}
}

// Вход сохраняет оба токена и профиль.
func TestAuth_Login_PersistsSession(t *testing.T) {
	t.Parallel()
	s, b, st := newSvc(t)
	ctx := context.Background()

	resp, err := s.Auth.Login(ctx, models.LoginRequest{Email: apitest.Email, Password: apitest.Password})
	require.NoError(t, err)
	require.Equal(t, b.AccessToken(), resp.AccessToken)

	access, err := st.Get(ctx, tokenstore.KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, resp.AccessToken, access)

	refresh, err := st.Get(ctx, tokenstore.KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, resp.RefreshToken, refresh)

	raw, err := st.Get(ctx, tokenstore.KeyUser)
	require.NoError(t, err)
	require.Contains(t, raw, apitest.Email)
}

func TestAuth_Login_WrongPassword(t *testing.T) {
	t.Parallel()
	s, b, st := newSvc(t)

	_, err := s.Auth.Login(context.Background(), models.LoginRequest{Email: apitest.Email, Password: "wrong-pass"})
	e, ok := apierrors.As(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, e.StatusCode)
	require.Equal(t, "Invalid credentials", e.Message)

	require.Equal(t, 0, b.Hits(http.MethodPost, "/auth/refresh"))
	requireEmpty(t, st)
}

func TestAuth_Login_InvalidInput_NoRequest(t *testing.T) {
	t.Parallel()
	s, b, _ := newSvc(t)

	_, err := s.Auth.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "1"})
	require.ErrorIs(t, err, apierrors.ErrInvalidArgument)

	var ve *apierrors.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Violations, 2)
	require.Equal(t, "email", ve.Violations[0].Field)
	require.Equal(t, "password must be at least 6 characters", ve.Violations[1].Message)

	require.Empty(t, b.Calls())
}

func TestAuth_Register(t *testing.T) {
	t.Parallel()
	s, _, st := newSvc(t)
	ctx := context.Background()

	resp, err := s.Auth.Register(ctx, models.RegisterRequest{Name: "Nuevo", Email: "new@example.com", Password: "long-enough"})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", resp.User.Email)

	u, err := s.Auth.Status(ctx, time.Now())
	require.NoError(t, err)
	require.True(t, u.LoggedIn)
	require.Equal(t, "Nuevo", u.User.Name)
	_, err = st.Get(ctx, tokenstore.KeyRefreshToken)
	require.NoError(t, err)

	_, err = s.Auth.Register(ctx, models.RegisterRequest{Name: "Dup", Email: apitest.Email, Password: "long-enough"})
	e, ok := apierrors.As(err)
	require.True(t, ok)
	require.Equal(t, http.StatusConflict, e.StatusCode)
}

func TestAuth_Logout_ClearsSession(t *testing.T) {
	t.Parallel()
	s, b, st := newSvc(t)
	login(t, s)

	require.NoError(t, s.Auth.Logout(context.Background()))
	require.Equal(t, 1, b.Hits(http.MethodPost, "/auth/logout"))
	requireEmpty(t, st)
}

// Выход очищает хранилище, даже если бэкенд ответил ошибкой.
func TestAuth_Logout_BackendFailure_StillClears(t *testing.T) {
	t.Parallel()
	s, b, st := newSvc(t)
	login(t, s)
	b.Route(http.MethodPost, "/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		apitest.WriteError(w, http.StatusInternalServerError, "db down")
	})

	require.NoError(t, s.Auth.Logout(context.Background()))
	requireEmpty(t, st)
}

// Выход с истёкшим access-токеном не обновляет сессию и не вызывает
// OnSessionExpired.
func TestAuth_Logout_ExpiredAccess_NoRefreshNoHook(t *testing.T) {
	t.Parallel()

	b := apitest.New()
	t.Cleanup(b.Close)

	var expired atomic.Int32
	st := tokenstore.NewMemory()
	c, err := apiclient.New(apiclient.Config{
		BaseURL: b.APIURL(),
		Store:   st,
		Timeout: 5 * time.Second,
		OnSessionExpired: func(context.Context, error) {
			expired.Add(1)
		},
	})
	require.NoError(t, err)
	s := New(c)

	login(t, s)
	b.ExpireAccess()
	b.RevokeRefresh()

	require.NoError(t, s.Auth.Logout(context.Background()))
	require.Equal(t, 1, b.Hits(http.MethodPost, "/auth/logout"))
	require.Equal(t, 0, b.Hits(http.MethodPost, "/auth/refresh"))
	require.Zero(t, expired.Load())
	requireEmpty(t, st)
}

// Записи входа несут замаскированный email и пишутся в логгер из контекста.
func TestAuth_Login_LogsRedactedEmail(t *testing.T) {
	t.Parallel()
	s, _, _ := newSvc(t)

	var buf bytes.Buffer
	ctx := log.Into(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	_, err := s.Auth.Login(ctx, models.LoginRequest{Email: apitest.Email, Password: apitest.Password})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, `"msg":"auth_succeeded"`)
	require.Contains(t, out, `"email":"us***@example.com"`)
	require.NotContains(t, out, apitest.Email)
}

func TestAuth_Logout_WithoutSession(t *testing.T) {
	t.Parallel()
	s, b, _ := newSvc(t)

	require.NoError(t, s.Auth.Logout(context.Background()))
	require.Empty(t, b.Calls())
}

func TestAuth_Me_UpdatesCachedUser(t *testing.T) {
	t.Parallel()
	s, b, _ := newSvc(t)
	ctx := context.Background()
	login(t, s)
	b.ExpireAccess()

	u, err := s.Auth.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, b.User().ID, u.ID)
	require.Equal(t, 1, b.Hits(http.MethodPost, "/auth/refresh"))

	st, err := s.Auth.Status(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, u.ID, st.User.ID)
}

func TestAuth_Status(t *testing.T) {
	t.Parallel()
	s, _, _ := newSvc(t)
	ctx := context.Background()

	st, err := s.Auth.Status(ctx, time.Now())
	require.NoError(t, err)
	require.False(t, st.LoggedIn)
	require.Nil(t, st.AccessExpiresAt)

	login(t, s)

	st, err = s.Auth.Status(ctx, time.Now())
	require.NoError(t, err)
	require.True(t, st.LoggedIn)
	require.NotNil(t, st.AccessExpiresAt)
	require.False(t, st.AccessExpired)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), *st.AccessExpiresAt, 5*time.Second)

	st, err = s.Auth.Status(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.True(t, st.AccessExpired)
}

func TestTokenExpiry_NotJWT(t *testing.T) {
	t.Parallel()
	_, ok := tokenExpiry("opaque-token")
	require.False(t, ok)
	_, ok = tokenExpiry("")
	require.False(t, ok)
}

func TestResource_CRUD(t *testing.T) {
	t.Parallel()
	s, _, _ := newSvc(t)
	ctx := context.Background()
	login(t, s)

	created, err := s.Publications.Create(ctx, models.CreatePublicationRequest{
		Title:      "Inti Raymi",
		Content:    "Festival of the sun",
		CategoryID: "c-1",
	})
	require.NoError(t, err)
	id := created.Data.ID
	require.Equal(t, "Inti Raymi", created.Data.Title)

	updated, err := s.Publications.Update(ctx, id, models.UpdatePublicationRequest{Status: models.PublicationApproved})
	require.NoError(t, err)
	require.Equal(t, models.PublicationApproved, updated.Data.Status)
	require.Equal(t, "Inti Raymi", updated.Data.Title)

	got, err := s.Publications.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, models.PublicationApproved, got.Data.Status)

	require.NoError(t, s.Publications.Delete(ctx, id))

	_, err = s.Publications.Get(ctx, id)
	e, ok := apierrors.As(err)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, e.StatusCode)
	require.Equal(t, "Publication not found", e.Message)
}

func TestResource_List_Pagination(t *testing.T) {
	t.Parallel()
	s, b, _ := newSvc(t)
	login(t, s)

	for i := 0; i < 25; i++ {
		b.Seed("categories", map[string]any{"name": "cat"})
	}

	resp, err := s.Categories.List(context.Background(), models.ListParams{Page: 3, Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Data, 5)
	require.Equal(t, 25, resp.Meta.Total)
	require.Equal(t, 3, resp.Meta.TotalPages)
	require.False(t, resp.Meta.HasNext())
	require.True(t, resp.Meta.HasPrevious())
}

func TestResource_Validation(t *testing.T) {
	t.Parallel()
	s, b, _ := newSvc(t)
	ctx := context.Background()

	_, err := s.Users.List(ctx, models.ListParams{Limit: 500})
	require.ErrorIs(t, err, apierrors.ErrInvalidArgument)

	_, err = s.Users.List(ctx, models.ListParams{Order: "sideways"})
	require.ErrorIs(t, err, apierrors.ErrInvalidArgument)

	_, err = s.Subscriptions.Create(ctx, models.CreateSubscriptionRequest{Plan: "gold"})
	require.ErrorIs(t, err, apierrors.ErrInvalidArgument)

	_, err = s.Categories.Get(ctx, "")
	require.ErrorIs(t, err, apierrors.ErrInvalidArgument)

	require.ErrorIs(t, s.Categories.Delete(ctx, "a/b"), apierrors.ErrInvalidArgument)

	_, err = s.Users.Update(ctx, "1", models.UpdateUserRequest{AvatarURL: "not a url"})
	require.ErrorIs(t, err, apierrors.ErrInvalidArgument)

	require.Empty(t, b.Calls())
}

func TestResource_Paths(t *testing.T) {
	t.Parallel()
	s, _, _ := newSvc(t)

	require.Equal(t, "/publications", s.Publications.Path())
	require.Equal(t, "/categories", s.Categories.Path())
	require.Equal(t, "/users", s.Users.Path())
	require.Equal(t, "/subscriptions", s.Subscriptions.Path())
}
