// handlers — REST-поверхность шлюза поверх services.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/guanavive/internal/errors"
	"github.com/pribylovaa/guanavive/internal/services"
	logctx "github.com/pribylovaa/guanavive/pkg/log"
)

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	Services *services.Services
	Expiry   *ExpiryTracker
}

func New(s *services.Services, t *ExpiryTracker) *Handlers {
	if t == nil {
		t = NewExpiryTracker()
	}

	return &Handlers{Services: s, Expiry: t}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
// Любая ошибка разбора — ErrInvalidArgument.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: malformed body: %v", apierrors.ErrInvalidArgument, err)
	}

	return nil
}

// writeError логирует 5xx и пишет ответ через apierrors.WriteError.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if status, _ := apierrors.ToHTTP(err); status >= http.StatusInternalServerError {
		logctx.From(r.Context()).Error("request_failed", slog.String("err", err.Error()))
	}

	apierrors.WriteError(w, r, err)
}
