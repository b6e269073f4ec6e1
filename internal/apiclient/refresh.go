package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/guanavive/internal/errors"
	"github.com/pribylovaa/guanavive/internal/metrics"
	"github.com/pribylovaa/guanavive/internal/models"
	"github.com/pribylovaa/guanavive/pkg/redact"
)

type result struct {
	resp *RawResponse
	err  error
}

// waiter — запрос, ожидающий завершения чужого цикла обновления.
type waiter struct {
	ctx  context.Context
	at   attempt
	done chan result
}

// settle вызывается ровно один раз: waiter извлекается из очереди однократно.
func (w *waiter) settle(resp *RawResponse, err error) {
	w.done <- result{resp: resp, err: err}
}

// Do выполняет запрос. Успех — любой 2xx; иначе *apierrors.Error.
func (c *Client) Do(ctx context.Context, r Request) (*RawResponse, error) {
	p, err := prepare(r)
	if err != nil {
		return nil, err
	}

	return c.do(ctx, attempt{req: p})
}

func (c *Client) do(ctx context.Context, at attempt) (*RawResponse, error) {
	const op = "apiclient.do"

	if !at.req.anonymous {
		tok, err := c.session.AccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		at.token = tok
	}

	resp, err := c.send(ctx, at.req, at.token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !at.retried && !at.req.skipRefresh {
		return c.recoverAuth(ctx, at)
	}

	if !success(resp.StatusCode) {
		return nil, apierrors.FromResponse(resp.StatusCode, resp.Body)
	}

	return resp, nil
}

// recoverAuth — первый 401 для запроса: встать в очередь, если обновление
// уже идёт, иначе провести его самому.
func (c *Client) recoverAuth(ctx context.Context, at attempt) (*RawResponse, error) {
	at.retried = true

	c.mu.Lock()
	if c.refreshing {
		w := &waiter{ctx: ctx, at: at, done: make(chan result, 1)}
		c.waiters = append(c.waiters, w)
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.QueuedRequests.Inc()
		}
		c.logger(ctx).Debug("request_queued",
			slog.String("method", at.req.method),
			slog.String("path", at.req.path),
		)

		select {
		case res := <-w.done:
			return res.resp, res.err
		case <-ctx.Done():
			return nil, apierrors.FromTransport(ctx.Err())
		}
	}

	// Пока флаг снят, хранилище меняют только вход и выход: сравнение
	// с токеном отправки показывает, завершился ли уже чужой цикл.
	outcome, err := c.settledSince(ctx, at.token)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	switch outcome {
	case rotated:
		c.mu.Unlock()
		c.logger(ctx).Debug("request_replayed",
			slog.String("method", at.req.method),
			slog.String("path", at.req.path),
		)
		return c.do(ctx, at)
	case tornDown:
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", apierrors.ErrSessionExpired, apierrors.ErrNoRefreshToken)
	}

	// Флаг выставляется под мьютексом до любого сетевого обмена.
	c.refreshing = true
	c.mu.Unlock()

	return c.refreshAndRetry(ctx, at)
}

type staleness int

const (
	current  staleness = iota // токен отправки всё ещё в хранилище
	rotated                   // с тех пор выдан другой токен
	tornDown                  // сессии нет: учётные данные очищены
)

// settledSince сравнивает токен, с которым ушёл запрос, с сохранённым.
// Вызывается под c.mu при снятом флаге обновления.
func (c *Client) settledSince(ctx context.Context, sent string) (staleness, error) {
	const op = "apiclient.settledSince"

	cur, err := c.session.AccessToken(ctx)
	if err != nil {
		return current, fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case cur != "" && cur != sent:
		return rotated, nil
	case cur == "" && sent != "":
		return tornDown, nil
	case cur == "" && sent == "":
		rt, err := c.session.RefreshToken(ctx)
		if err != nil {
			return current, fmt.Errorf("%s: %w", op, err)
		}
		if rt == "" {
			return tornDown, nil
		}
	}

	return current, nil
}

func (c *Client) refreshAndRetry(ctx context.Context, at attempt) (*RawResponse, error) {
	settled := false
	defer func() {
		if !settled {
			c.finish(func(w *waiter) { w.settle(nil, apierrors.ErrSessionExpired) })
		}
	}()

	// Отмена запроса-инициатора не должна обрывать общий цикл обновления.
	rctx := context.WithoutCancel(ctx)

	if err := c.refreshTokens(rctx); err != nil {
		err = c.expire(rctx, err)
		c.finish(func(w *waiter) { w.settle(nil, err) })
		settled = true
		return nil, err
	}

	c.finish(c.replay)
	settled = true

	return c.do(ctx, at)
}

// finish разбирает очередь в порядке FIFO и снимает флаг обновления.
// Запросы, вставшие в очередь во время разбора, тоже обрабатываются:
// флаг снимается под мьютексом только при пустой очереди.
func (c *Client) finish(handle func(*waiter)) {
	for {
		c.mu.Lock()
		ws := c.waiters
		c.waiters = nil
		if len(ws) == 0 {
			c.refreshing = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		for _, w := range ws {
			handle(w)
		}
	}
}

func (c *Client) replay(w *waiter) {
	if err := w.ctx.Err(); err != nil {
		w.settle(nil, apierrors.FromTransport(err))
		return
	}

	c.logger(w.ctx).Debug("request_replayed",
		slog.String("method", w.at.req.method),
		slog.String("path", w.at.req.path),
	)

	w.settle(c.do(w.ctx, w.at))
}

// refreshTokens обменивает refresh-токен на новую пару и сохраняет её.
func (c *Client) refreshTokens(ctx context.Context) error {
	const op = "apiclient.refreshTokens"

	l := c.logger(ctx)

	rt, err := c.session.RefreshToken(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rt == "" {
		c.observeRefresh(metrics.RefreshNoRT)
		return fmt.Errorf("%s: %w", op, apierrors.ErrNoRefreshToken)
	}

	l.Info("token_refresh_started", slog.String("refresh_token", redact.TokenTail(rt)))

	body, err := json.Marshal(models.RefreshRequest{RefreshToken: rt})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.send(ctx, prepared{
		method:      http.MethodPost,
		path:        refreshPath,
		body:        body,
		skipRefresh: true,
		anonymous:   true,
	}, "")
	if err != nil {
		c.observeRefresh(metrics.RefreshFailed)
		return fmt.Errorf("%s: %w", op, err)
	}
	if !success(resp.StatusCode) {
		c.observeRefresh(metrics.RefreshFailed)
		return fmt.Errorf("%s: %w", op, apierrors.FromResponse(resp.StatusCode, resp.Body))
	}

	creds, err := decodeCredentials(resp.Body)
	if err != nil {
		c.observeRefresh(metrics.RefreshFailed)
		return fmt.Errorf("%s: %w", op, err)
	}
	if creds.RefreshToken == "" {
		creds.RefreshToken = rt
	}

	if err := c.session.SaveCredentials(ctx, creds); err != nil {
		c.observeRefresh(metrics.RefreshFailed)
		return fmt.Errorf("%s: %w", op, err)
	}

	c.observeRefresh(metrics.RefreshOK)
	l.Info("token_refreshed", slog.String("access_token", redact.TokenTail(creds.AccessToken)))

	return nil
}

// decodeCredentials принимает и плоский ответ, и ответ в конверте {data:{...}}.
func decodeCredentials(body []byte) (models.Credentials, error) {
	var flat models.RefreshResponse
	if err := json.Unmarshal(body, &flat); err == nil && flat.AccessToken != "" {
		return models.Credentials{AccessToken: flat.AccessToken, RefreshToken: flat.RefreshToken}, nil
	}

	var env models.Response[models.RefreshResponse]
	if err := json.Unmarshal(body, &env); err == nil && env.Data.AccessToken != "" {
		return models.Credentials{AccessToken: env.Data.AccessToken, RefreshToken: env.Data.RefreshToken}, nil
	}

	return models.Credentials{}, &apierrors.Error{
		Message:    "refresh response has no access token",
		StatusCode: http.StatusBadGateway,
		Code:       apierrors.CodeBadResponse,
	}
}

// expire — сессию не восстановить: очистить учётные данные и один раз
// уведомить подписчика.
func (c *Client) expire(ctx context.Context, cause error) error {
	l := c.logger(ctx)

	if err := c.session.Clear(ctx); err != nil {
		l.Error("session_clear_failed", slog.String("err", err.Error()))
	}

	if c.metrics != nil {
		c.metrics.SessionExpired.Inc()
	}
	l.Warn("session_torn_down", slog.String("cause", cause.Error()))

	if c.onExpired != nil {
		c.onExpired(ctx, cause)
	}

	return fmt.Errorf("%w: %w", apierrors.ErrSessionExpired, cause)
}

func (c *Client) observeRefresh(result string) {
	if c.metrics != nil {
		c.metrics.Refreshes.WithLabelValues(result).Inc()
	}
}
