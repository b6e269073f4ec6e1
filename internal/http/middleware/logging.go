package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/guanavive/internal/clients/interceptors"
	logctx "github.com/pribylovaa/guanavive/pkg/log"
)

// Logging кладёт в контекст логгер с request_id, чтобы его подхватили
// сервисы и клиент API, и по завершении пишет запись "http".
// 5xx — уровнем Error, 4xx — Warn.
func Logging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base
			if rid := interceptors.RequestIDFrom(r.Context()); rid != "" {
				l = l.With(slog.String("request_id", rid))
			}

			ww := wrap(w, r)
			started := time.Now()
			next.ServeHTTP(ww, r.WithContext(logctx.Into(r.Context(), l)))

			status := statusOf(ww)
			l.LogAttrs(r.Context(), levelFor(status), "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("dur", time.Since(started)),
			)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
