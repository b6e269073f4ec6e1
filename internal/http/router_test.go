package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/guanavive/internal/apiclient"
	"github.com/pribylovaa/guanavive/internal/apitest"
	"github.com/pribylovaa/guanavive/internal/http/handlers"
	"github.com/pribylovaa/guanavive/internal/models"
	"github.com/pribylovaa/guanavive/internal/services"
)

func newGateway(t *testing.T, basePath string) (http.Handler, *apitest.Backend) {
	t.Helper()

	b := apitest.New()
	t.Cleanup(b.Close)

	tracker := handlers.NewExpiryTracker()
	c, err := apiclient.New(apiclient.Config{
		BaseURL:          b.APIURL(),
		Timeout:          5 * time.Second,
		OnSessionExpired: tracker.Record,
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handlers.New(services.New(c), tracker)

	return NewRouter(h, Options{Logger: logger, Timeout: 5 * time.Second, BasePath: basePath}), b
}

func serve(h http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func loginBody() string {
	return `{"email":"` + apitest.Email + `","password":"` + apitest.Password + `"}`
}

func TestRouter_BasePath(t *testing.T) {
	t.Parallel()
	h, _ := newGateway(t, "/api")

	rr := serve(h, http.MethodGet, "/api/session/status", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	rr = serve(h, http.MethodGet, "/session/status", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_AllResourcesMounted(t *testing.T) {
	t.Parallel()
	h, b := newGateway(t, "")

	require.Equal(t, http.StatusOK, serve(h, http.MethodPost, "/session/login", loginBody()).Code)

	for _, res := range apitest.Resources {
		rr := serve(h, http.MethodGet, "/"+res+"?page=1&limit=5", "")
		require.Equal(t, http.StatusOK, rr.Code, res)

		var list models.Response[[]map[string]any]
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list), res)
		require.True(t, list.Success)
		require.NotNil(t, list.Meta, res)
		require.Equal(t, 1, b.Hits(http.MethodGet, "/"+res), res)
	}
}

func TestRouter_RequestIDForwardedToBackend(t *testing.T) {
	t.Parallel()
	h, b := newGateway(t, "")

	seen := make(chan string, 1)
	b.Route(http.MethodGet, "/auth/me", func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get("X-Request-Id")
		u := b.User()
		apitest.WriteJSON(w, http.StatusOK, models.MeResponse{Success: true, User: &u})
	})

	require.Equal(t, http.StatusOK, serve(h, http.MethodPost, "/session/login", loginBody()).Code)

	rr := serve(h, http.MethodGet, "/session/me", "", "X-Request-Id", "rid-gw-1")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "rid-gw-1", rr.Header().Get("X-Request-Id"))
	require.Equal(t, "rid-gw-1", <-seen)
}

func TestRouter_ErrorCarriesRequestID(t *testing.T) {
	t.Parallel()
	h, _ := newGateway(t, "")

	require.Equal(t, http.StatusOK, serve(h, http.MethodPost, "/session/login", loginBody()).Code)

	rr := serve(h, http.MethodGet, "/subscriptions/42", "", "X-Request-Id", "rid-404")
	require.Equal(t, http.StatusNotFound, rr.Code)

	var body struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "not_found", body.Error.Code)
	require.Equal(t, "rid-404", body.Error.RequestID)
}

func TestRouter_NotLoggedIn(t *testing.T) {
	t.Parallel()
	h, b := newGateway(t, "")

	rr := serve(h, http.MethodGet, "/publications", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "session_expired")
	require.Equal(t, 0, b.Hits(http.MethodPost, "/auth/refresh"))
}
