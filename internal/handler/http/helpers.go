package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/cart"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/catalog"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/order"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/settings"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/user"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/wishlist"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details []string    `json:"details,omitempty"`
}

// ValidationErrorResponse is kept separate from Envelope so handlers can
// report field-level failures with a fixed message.
type ValidationErrorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Details []string `json:"details"`
}

func respondWithData(w http.ResponseWriter, code int, data interface{}) {
	respondWithJSON(w, code, Envelope{Success: true, Data: data})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, Envelope{Success: false, Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("handler: failed to write JSON response")
	}
}

func formatValidationErrors(errs validator.ValidationErrors) []string {
	details := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			details = append(details, fmt.Sprintf("%s is required", field))
		case "email":
			details = append(details, fmt.Sprintf("%s must be a valid email", field))
		case "min", "gte":
			details = append(details, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max", "lte":
			details = append(details, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "oneof":
			details = append(details, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		default:
			details = append(details, fmt.Sprintf("%s failed on %s", field, fe.Tag()))
		}
	}
	return details
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether the handler
// should continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("handler: failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if ok {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Type("validation_error_type", err).Msg("handler: unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return false
	}
	return true
}

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, cart.ErrNotFound),
		errors.Is(err, cart.ErrProductNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, wishlist.ErrNotFound),
		errors.Is(err, wishlist.ErrUnknownProduct),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, cart.ErrProductUnavailable),
		errors.Is(err, cart.ErrInvalidVariant),
		errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrMissingContact),
		errors.Is(err, order.ErrInvalidItem),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, settings.ErrUnknownKey),
		errors.Is(err, settings.ErrInvalidValue),
		errors.Is(err, user.ErrInvalidRole):
		return http.StatusBadRequest

	case errors.Is(err, catalog.ErrSlugExists),
		errors.Is(err, catalog.ErrSKUExists),
		errors.Is(err, catalog.ErrCategoryInUse),
		errors.Is(err, wishlist.ErrAlreadyExists),
		errors.Is(err, user.ErrEmailExists),
		errors.Is(err, order.ErrInvalidStatusTransition):
		return http.StatusConflict

	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, user.ErrForbidden),
		errors.Is(err, user.ErrInactive):
		return http.StatusForbidden

	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError maps err to a status. Client errors echo their
// message; server errors are logged and replaced by fallback.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	code := mapErrorToStatusCode(err)
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("handler: request failed")
		if errors.Is(err, settings.ErrConfiguration) {
			respondWithError(w, code, settings.ErrConfiguration.Error())
			return
		}
		respondWithError(w, code, fallback)
		return
	}
	log.Warn().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("handler: request rejected")
	respondWithError(w, code, err.Error())
}

// pagination reads page/limit (1-based page) or offset/limit query values.
func pagination(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit = atoiDefault(q.Get("limit"), defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if raw := q.Get("offset"); raw != "" {
		offset = atoiDefault(raw, 0)
	} else if page := atoiDefault(q.Get("page"), 1); page > 1 {
		offset = (page - 1) * limit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func atoiDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

type pageResponse struct {
	Items  interface{} `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}
