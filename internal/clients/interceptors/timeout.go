package interceptors

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

// WithTimeout навешивает таймаут d на исходящий запрос.
//
// Контракт:
//  1. d <= 0 — запрос уходит без изменений;
//  2. более ранний дедлайн родителя сохраняется (context.WithTimeout);
//  3. дедлайн живёт до закрытия тела ответа: cancel вызывается в Close,
//     либо сразу, если транспорт вернул ошибку.
func WithTimeout(d time.Duration) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if d <= 0 {
				return next.RoundTrip(r)
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)

			resp, err := next.RoundTrip(r.WithContext(ctx))
			if err != nil {
				cancel()
				return nil, err
			}

			resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		})
	}
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
	once   sync.Once
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.cancel)
	return err
}
