package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pribylovaa/guanavive/internal/models"
	"github.com/pribylovaa/guanavive/internal/services"
	logctx "github.com/pribylovaa/guanavive/pkg/log"
)

// ExpiryTracker запоминает последнее истечение сессии. Record подходит
// как apiclient.Config.OnSessionExpired.
type ExpiryTracker struct {
	mu    sync.Mutex
	at    time.Time
	cause string
	count int
}

func NewExpiryTracker() *ExpiryTracker {
	return &ExpiryTracker{}
}

func (t *ExpiryTracker) Record(ctx context.Context, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	t.mu.Lock()
	t.at = time.Now()
	t.cause = msg
	t.count++
	n := t.count
	t.mu.Unlock()

	logctx.From(ctx).Warn("session_expired",
		slog.String("cause", msg),
		slog.Int("count", n),
	)
}

// Last — время и причина последнего истечения; ok == false, если его не было.
func (t *ExpiryTracker) Last() (at time.Time, cause string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.at, t.cause, t.count > 0
}

type userResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user,omitempty"`
}

type statusResponse struct {
	services.SessionStatus
	LastExpiredAt   *time.Time `json:"lastExpiredAt,omitempty"`
	LastExpiryCause string     `json:"lastExpiryCause,omitempty"`
}

// Login — токены остаются в хранилище шлюза и наружу не отдаются.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.Services.Auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Success: true, User: resp.User})
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.Services.Auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{Success: true, User: resp.User})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Services.Auth.Logout(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.Response[any]{Success: true, Message: "Logged out"})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Services.Auth.Me(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Success: true, User: u})
}

// Status отвечает из локального хранилища, бэкенд не вызывается.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.Services.Auth.Status(r.Context(), time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := statusResponse{SessionStatus: st}
	if at, cause, ok := h.Expiry.Last(); ok {
		resp.LastExpiredAt = &at
		resp.LastExpiryCause = cause
	}

	writeJSON(w, http.StatusOK, resp)
}
