package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apierrors "github.com/pribylovaa/guanavive/internal/errors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// В сообщениях — имена полей как в JSON.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Validate проверяет структуру по тегам validate. Ошибка —
// *apierrors.ValidationError (errors.Is ErrInvalidArgument).
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("%w: %w", apierrors.ErrInvalidArgument, err)
	}

	out := &apierrors.ValidationError{Violations: make([]apierrors.FieldViolation, 0, len(ves))}
	for _, fe := range ves {
		out.Violations = append(out.Violations, apierrors.FieldViolation{
			Field:   fe.Field(),
			Message: violation(fe),
		})
	}

	return out
}

func violation(fe validator.FieldError) string {
	f := fe.Field()

	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "email":
		return f + " must be a valid email"
	case "url":
		return f + " must be a valid URL"
	case "oneof":
		return f + " must be one of: " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return f + " must be at least " + fe.Param() + " characters"
		}
		return f + " must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return f + " must be at most " + fe.Param() + " characters"
		}
		return f + " must be at most " + fe.Param()
	default:
		return f + " is invalid"
	}
}

// validateID — id сегмента пути: непустой, без "/", "?" и "#".
func validateID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "/?#") {
		return &apierrors.ValidationError{Violations: []apierrors.FieldViolation{
			{Field: "id", Message: "id is invalid"},
		}}
	}

	return nil
}
