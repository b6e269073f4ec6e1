// Package apiclient — аутентифицированный HTTP-клиент REST API GuanaVive.
//
// Клиент подставляет bearer-токен из хранилища в каждый запрос, переживает
// истечение access-токена одним циклом обновления на все параллельные 401,
// повторяет исходный запрос не более одного раза и приводит любые ошибки
// к *apierrors.Error.
package apiclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pribylovaa/guanavive/internal/clients/interceptors"
	"github.com/pribylovaa/guanavive/internal/metrics"
	"github.com/pribylovaa/guanavive/internal/tokenstore"
)

const (
	DefaultBaseURL = "http://localhost:3000/api"
	DefaultTimeout = 30 * time.Second

	refreshPath = "/auth/refresh"
)

// SessionExpiredFunc вызывается один раз на неудачный цикл обновления,
// после очистки учётных данных. cause — ошибка обновления.
type SessionExpiredFunc func(ctx context.Context, cause error)

// Config — параметры клиента. Нулевые значения заменяются умолчаниями.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	// Store — хранилище учётных данных; nil — в памяти процесса.
	Store tokenstore.Store
	// Transport — нижний транспорт; nil — http.DefaultTransport.
	Transport http.RoundTripper

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	OnSessionExpired SessionExpiredFunc
}

// Client — единая точка всех вызовов бэкенда. Безопасен для
// конкурентного использования.
type Client struct {
	baseURL   string
	http      *http.Client
	session   *tokenstore.Session
	log       *slog.Logger
	metrics   *metrics.Metrics
	onExpired SessionExpiredFunc

	mu         sync.Mutex
	refreshing bool
	waiters    []*waiter
}

func New(cfg Config) (*Client, error) {
	const op = "apiclient.New"

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", op, base)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store := cfg.Store
	if store == nil {
		store = tokenstore.NewMemory()
	}

	// Цепочка: metadata -> timeout -> logging -> metrics -> транспорт.
	rt := interceptors.Chain(cfg.Transport,
		interceptors.WithMetadata(cfg.UserAgent),
		interceptors.WithTimeout(timeout),
		interceptors.WithLogging(logger),
		interceptors.WithMetrics(cfg.Metrics),
	)

	return &Client{
		baseURL:   strings.TrimRight(u.String(), "/"),
		http:      &http.Client{Transport: rt},
		session:   tokenstore.NewSession(store),
		log:       logger,
		metrics:   cfg.Metrics,
		onExpired: cfg.OnSessionExpired,
	}, nil
}

// Session — учётные данные, с которыми работает клиент.
func (c *Client) Session() *tokenstore.Session { return c.session }

// BaseURL — адрес API без завершающего "/".
func (c *Client) BaseURL() string { return c.baseURL }

// Refreshing сообщает, идёт ли сейчас цикл обновления токена.
func (c *Client) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

func (c *Client) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *Client) logger(ctx context.Context) *slog.Logger {
	if rid := interceptors.RequestIDFrom(ctx); rid != "" {
		return c.log.With(slog.String("request_id", rid))
	}

	return c.log
}
