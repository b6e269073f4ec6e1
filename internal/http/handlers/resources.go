package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/guanavive/internal/errors"
	"github.com/pribylovaa/guanavive/internal/models"
	"github.com/pribylovaa/guanavive/internal/services"
)

// Resource — CRUD-роуты одной коллекции бэкенда:
// GET /, GET /{id}, POST /, PATCH /{id}, DELETE /{id}.
func Resource[T, C, U any](res *services.Resource[T, C, U]) http.Handler {
	h := resourceHandlers[T, C, U]{res: res}

	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.remove)

	return r
}

type resourceHandlers[T, C, U any] struct {
	res *services.Resource[T, C, U]
}

func (h resourceHandlers[T, C, U]) list(w http.ResponseWriter, r *http.Request) {
	p, err := models.ListParamsFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, queryError(err))
		return
	}

	resp, err := h.res.List(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h resourceHandlers[T, C, U]) get(w http.ResponseWriter, r *http.Request) {
	resp, err := h.res.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h resourceHandlers[T, C, U]) create(w http.ResponseWriter, r *http.Request) {
	var body C
	if err := decodeStrict(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.res.Create(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h resourceHandlers[T, C, U]) update(w http.ResponseWriter, r *http.Request) {
	var body U
	if err := decodeStrict(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.res.Update(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h resourceHandlers[T, C, U]) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.res.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// queryError переводит ошибку разбора query в нарушение валидации поля.
func queryError(err error) error {
	var qe *models.QueryParamError
	if errors.As(err, &qe) {
		return &apierrors.ValidationError{Violations: []apierrors.FieldViolation{
			{Field: qe.Param, Message: qe.Error()},
		}}
	}

	return fmt.Errorf("%w: %v", apierrors.ErrInvalidArgument, err)
}
