package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/guanavive/internal/clients/interceptors"
)

// RequestID принимает X-Request-Id клиента или выдаёт новый UUID.
// Id возвращается в ответе, остаётся в заголовке запроса (для тела
// ошибки) и кладётся в контекст: metadata-интерсептор передаст его бэкенду.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(interceptors.HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
				r.Header.Set(interceptors.HeaderRequestID, id)
			}

			w.Header().Set(interceptors.HeaderRequestID, id)
			next.ServeHTTP(w, r.WithContext(interceptors.ContextWithRequestID(r.Context(), id)))
		})
	}
}
