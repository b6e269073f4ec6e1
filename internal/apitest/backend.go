// Package apitest — поддельный REST-бэкенд GuanaVive для тестов клиента,
// сервисов и шлюза. Выпускает настоящие JWT (HS256), проверяет bearer,
// обслуживает auth-эндпойнты и in-memory коллекции ресурсов.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pribylovaa/guanavive/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Учётные данные, которые принимает /auth/login.
const (
	Email    = "user@example.com"
	Password = "secret-pass"
)

// Resources — коллекции, которые обслуживает бэкенд.
var Resources = []string{"publications", "categories", "users", "subscriptions"}

// Hit — один обработанный запрос.
type Hit struct {
	Method        string
	Path          string
	Authorization string
}

// Backend — httptest-сервер с API под префиксом /api.
type Backend struct {
	*httptest.Server

	// TokenTTL — срок жизни выдаваемых access-токенов.
	TokenTTL time.Duration

	mu            sync.Mutex
	beforeRefresh func()
	key           []byte
	access        string
	refresh       string
	user          models.User
	hits          []Hit
	routes        map[string]http.HandlerFunc
	data          map[string]map[string]map[string]any
	nextID        int
}

func New() *Backend {
	b := &Backend{
		TokenTTL: 15 * time.Minute,
		key:      []byte("apitest-signing-key"),
		user: models.User{
			ID:     "u-1",
			Name:   "Ana Guana",
			Email:  Email,
			Role:   models.RoleUser,
			Status: models.UserActive,
		},
		routes: make(map[string]http.HandlerFunc),
		data:   make(map[string]map[string]map[string]any),
	}
	for _, r := range Resources {
		b.data[r] = make(map[string]map[string]any)
	}

	b.Server = httptest.NewServer(b.router())
	return b
}

// URL базового API, например http://127.0.0.1:1234/api.
func (b *Backend) APIURL() string { return b.Server.URL + "/api" }

// Issue выпускает новую пару и делает её единственной действующей.
func (b *Backend) Issue() models.Credentials {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked()
}

func (b *Backend) issueLocked() models.Credentials {
	b.access = b.sign(b.TokenTTL)
	b.refresh = "rt-" + uuid.NewString()
	return models.Credentials{AccessToken: b.access, RefreshToken: b.refresh}
}

// ExpireAccess делает текущий access-токен недействительным; refresh-токен
// остаётся действующим.
func (b *Backend) ExpireAccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = b.sign(b.TokenTTL)
}

// RevokeRefresh делает текущий refresh-токен недействительным.
func (b *Backend) RevokeRefresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh = "revoked-" + uuid.NewString()
}

// AccessToken — текущий действующий access-токен.
func (b *Backend) AccessToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.access
}

// User — профиль, который возвращают login и /auth/me.
func (b *Backend) User() models.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.user
}

// SetBeforeRefresh — fn вызывается в обработчике /auth/refresh до выдачи
// новой пары. Позволяет тесту придержать цикл обновления.
func (b *Backend) SetBeforeRefresh(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.beforeRefresh = fn
}

// Route подменяет обработчик для METHOD /path (путь без префикса /api).
func (b *Backend) Route(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = h
}

// Seed добавляет элементы в коллекцию; id назначается, если его нет.
func (b *Backend) Seed(resource string, items ...map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, it := range items {
		b.insertLocked(resource, it)
	}
}

// Hits — число запросов METHOD /path (путь без префикса /api).
func (b *Backend) Hits(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, h := range b.hits {
		if h.Method == method && h.Path == path {
			n++
		}
	}
	return n
}

// Calls — журнал всех запросов в порядке обработки.
func (b *Backend) Calls() []Hit {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Hit(nil), b.hits...)
}

func (b *Backend) sign(ttl time.Duration) string {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   b.user.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.key)
	if err != nil {
		panic(err)
	}
	return s
}

func (b *Backend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record, b.overrides)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", b.login)
		r.Post("/auth/register", b.register)
		r.Post("/auth/refresh", b.refreshTokens)

		r.Group(func(r chi.Router) {
			r.Use(b.authorized)
			r.Post("/auth/logout", b.logout)
			r.Get("/auth/me", b.me)

			r.Get("/{res}", b.list)
			r.Post("/{res}", b.create)
			r.Get("/{res}/{id}", b.get)
			r.Patch("/{res}/{id}", b.update)
			r.Put("/{res}/{id}", b.update)
			r.Delete("/{res}/{id}", b.remove)
		})
	})

	return r
}

func apiPath(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, "/api")
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits = append(b.hits, Hit{
			Method:        r.Method,
			Path:          apiPath(r),
			Authorization: r.Header.Get("Authorization"),
		})
		b.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (b *Backend) overrides(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		h, ok := b.routes[r.Method+" "+apiPath(r)]
		b.mu.Unlock()

		if ok {
			h(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authorized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		want := "Bearer " + b.access
		ok := b.access != ""
		b.mu.Unlock()

		if !ok || r.Header.Get("Authorization") != want {
			WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WriteError пишет структурированную ошибку в формате бэкенда.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{
		"message":    message,
		"statusCode": status,
		"error":      http.StatusText(status),
	})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if in.Email != Email || in.Password != Password {
		WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	b.mu.Lock()
	creds := b.issueLocked()
	u := b.user
	b.mu.Unlock()

	WriteJSON(w, http.StatusOK, models.AuthResponse{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		User:         &u,
	})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if in.Email == Email {
		WriteError(w, http.StatusConflict, "Email already registered")
		return
	}

	b.mu.Lock()
	b.user = models.User{ID: "u-" + uuid.NewString(), Name: in.Name, Email: in.Email, Role: models.RoleUser, Status: models.UserActive}
	creds := b.issueLocked()
	u := b.user
	b.mu.Unlock()

	WriteJSON(w, http.StatusCreated, models.AuthResponse{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		User:         &u,
	})
}

func (b *Backend) refreshTokens(w http.ResponseWriter, r *http.Request) {
	var in models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}

	b.mu.Lock()
	hook := b.beforeRefresh
	b.mu.Unlock()

	if hook != nil {
		hook()
	}

	b.mu.Lock()
	if in.RefreshToken == "" || in.RefreshToken != b.refresh {
		b.mu.Unlock()
		WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	creds := b.issueLocked()
	b.mu.Unlock()

	WriteJSON(w, http.StatusOK, models.RefreshResponse{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	})
}

func (b *Backend) logout(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	b.access, b.refresh = "", ""
	b.mu.Unlock()

	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
}

func (b *Backend) me(w http.ResponseWriter, _ *http.Request) {
	u := b.User()
	WriteJSON(w, http.StatusOK, models.MeResponse{Success: true, User: &u})
}

func (b *Backend) collection(w http.ResponseWriter, r *http.Request) (string, bool) {
	res := chi.URLParam(r, "res")
	if _, ok := b.data[res]; !ok {
		WriteError(w, http.StatusNotFound, "Cannot "+r.Method+" "+r.URL.Path)
		return "", false
	}
	return res, true
}

func (b *Backend) list(w http.ResponseWriter, r *http.Request) {
	res, ok := b.collection(w, r)
	if !ok {
		return
	}

	page, limit := atoiOr(r.URL.Query().Get("page"), 1), atoiOr(r.URL.Query().Get("limit"), 10)
	search := strings.ToLower(r.URL.Query().Get("search"))

	b.mu.Lock()
	items := make([]map[string]any, 0, len(b.data[res]))
	for _, it := range b.data[res] {
		if search != "" && !strings.Contains(strings.ToLower(fmt.Sprint(it)), search) {
			continue
		}
		items = append(items, clone(it))
	}
	b.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		return atoiOr(fmt.Sprint(items[i]["id"]), 0) < atoiOr(fmt.Sprint(items[j]["id"]), 0)
	})
	if r.URL.Query().Get("order") == models.OrderDesc {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}

	total := len(items)
	from := min((page-1)*limit, total)
	to := min(from+limit, total)
	meta := models.NewPaginationMeta(total, page, limit)

	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    items[from:to],
		"meta":    meta,
	})
}

func (b *Backend) get(w http.ResponseWriter, r *http.Request) {
	res, ok := b.collection(w, r)
	if !ok {
		return
	}

	b.mu.Lock()
	it, found := b.data[res][chi.URLParam(r, "id")]
	it = clone(it)
	b.mu.Unlock()

	if !found {
		WriteError(w, http.StatusNotFound, notFound(res))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "data": it})
}

func (b *Backend) create(w http.ResponseWriter, r *http.Request) {
	res, ok := b.collection(w, r)
	if !ok {
		return
	}

	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}
	delete(in, "id")

	b.mu.Lock()
	it := b.insertLocked(res, in)
	b.mu.Unlock()

	WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Created", "data": it})
}

func (b *Backend) update(w http.ResponseWriter, r *http.Request) {
	res, ok := b.collection(w, r)
	if !ok {
		return
	}

	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}

	id := chi.URLParam(r, "id")

	b.mu.Lock()
	it, found := b.data[res][id]
	if found {
		for k, v := range in {
			if k != "id" {
				it[k] = v
			}
		}
		it = clone(it)
	}
	b.mu.Unlock()

	if !found {
		WriteError(w, http.StatusNotFound, notFound(res))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Updated", "data": it})
}

func (b *Backend) remove(w http.ResponseWriter, r *http.Request) {
	res, ok := b.collection(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")

	b.mu.Lock()
	_, found := b.data[res][id]
	delete(b.data[res], id)
	b.mu.Unlock()

	if !found {
		WriteError(w, http.StatusNotFound, notFound(res))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) insertLocked(res string, it map[string]any) map[string]any {
	cp := clone(it)
	if _, ok := cp["id"]; !ok {
		b.nextID++
		cp["id"] = strconv.Itoa(b.nextID)
	}
	b.data[res][fmt.Sprint(cp["id"])] = cp
	return clone(cp)
}

func clone(it map[string]any) map[string]any {
	if it == nil {
		return nil
	}
	cp := make(map[string]any, len(it)+1)
	for k, v := range it {
		cp[k] = v
	}
	return cp
}

func notFound(res string) string {
	name := strings.TrimSuffix(res, "s")
	if name == "categorie" {
		name = "category"
	}
	return strings.ToUpper(name[:1]) + name[1:] + " not found"
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
