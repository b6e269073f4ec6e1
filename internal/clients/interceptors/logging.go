package interceptors

import (
	"log/slog"
	"net/http"
	"time"
)

// WithLogging — логирование исходящих запросов.
// Поведение:
//   - обогащает логгер полями request_id/method/path;
//   - пишет одну финальную запись: msg="http_client", status, dur;
//     ошибка транспорта пишется уровнем Warn с полем err.
//
// Безопасность: не логирует тело, query и заголовок Authorization.
func WithLogging(base *slog.Logger) Interceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := r.Header.Get(HeaderRequestID)
			if rid == "" {
				rid = RequestIDFrom(r.Context())
			}

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			resp, err := next.RoundTrip(r)
			if err != nil {
				l.Warn("http_client",
					slog.String("err", err.Error()),
					slog.Duration("dur", time.Since(start)),
				)
				return nil, err
			}

			l.Info("http_client",
				slog.Int("status", resp.StatusCode),
				slog.Duration("dur", time.Since(start)),
			)

			return resp, nil
		})
	}
}
