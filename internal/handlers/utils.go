package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vente/apiserver/internal/auth"
	"github.com/vente/apiserver/internal/logging"
	"github.com/vente/apiserver/internal/services"
	"github.com/vente/apiserver/internal/store"
)

const maxJSONBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// writeServiceError maps domain errors to their HTTP status. Unknown errors
// are logged and reported as 500 without the cause.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		forbidden *auth.ForbiddenError
		invalid   *services.ValidationError
	)
	switch {
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, services.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &forbidden):
		writeError(w, http.StatusBadRequest, forbidden.Reason)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "resource conflicts with an existing record")
	case errors.As(err, &invalid):
		writeError(w, http.StatusUnprocessableEntity, invalid.Error())
	default:
		logging.FromContext(r.Context()).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes the body into dst and runs struct validation on it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return &services.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &services.ValidationError{Field: fieldPath(fe), Message: ruleMessage(fe)}
	}
	return &services.ValidationError{Message: err.Error()}
}

// fieldPath drops the top-level struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the %q rule", fe.Tag())
	}
}

func parseIDParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, &services.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return id, nil
}

// parsePagination reads skip and limit. Limits above the page cap are
// clamped by the services; negative values are rejected here.
func parsePagination(r *http.Request) (skip, limit int, err error) {
	query := r.URL.Query()
	if skip, err = parseQueryInt(query.Get("skip"), "skip", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = parseQueryInt(query.Get("limit"), "limit", services.DefaultPageLimit); err != nil {
		return 0, 0, err
	}
	if skip < 0 {
		return 0, 0, &services.ValidationError{Field: "skip", Message: "must be greater than or equal to 0"}
	}
	if limit < 1 {
		return 0, 0, &services.ValidationError{Field: "limit", Message: "must be greater than 0"}
	}
	return skip, limit, nil
}

func parseQueryInt(raw, name string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &services.ValidationError{Field: name, Message: "must be an integer"}
	}
	return value, nil
}
