package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"commerce-sync-core/internal/domain"

	"github.com/rs/zerolog"
)

// errorResponse is the body of every non-2xx response
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{"data": data})
}

// writeError maps err to its HTTP status. Internal failures are logged and
// reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		body.Field = validationErr.Field
	}

	if status >= http.StatusInternalServerError {
		logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Msg("Request failed")
		if status == http.StatusInternalServerError {
			body.Error = "internal server error"
		}
	}

	writeJSON(w, status, body)
}

func statusFor(err error) int {
	switch {
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	case domain.IsAuthError(err):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrStoreNotFound),
		errors.Is(err, domain.ErrSyncRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSyncInProgress),
		errors.Is(err, domain.ErrStoreAlreadyConnected),
		errors.Is(err, domain.ErrStoreNotConnected),
		errors.Is(err, domain.ErrNoActiveSync):
		return http.StatusConflict
	case domain.IsRemoteError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.NewValidationError("", "invalid request body: "+err.Error())
	}
	return nil
}

func tenantID(r *http.Request) string {
	return domain.GetTenantIDFromContext(r.Context())
}
