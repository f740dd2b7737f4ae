package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/repository"
	"github.com/nebulacloud/console/internal/service/auth"
	"github.com/nebulacloud/console/internal/service/profile"
)

// ErrorResponse is the body of every failed API call. Clients surface Error
// verbatim, so it never carries internal detail for 5xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// errorStatus maps a service error onto the status and message returned to
// the owner. Rows owned by someone else surface as not found. ok is false for
// errors with no client-facing meaning.
func errorStatus(err error) (status int, msg string, ok bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidArgument),
		errors.Is(err, profile.ErrInvalidCode):
		return http.StatusBadRequest, err.Error(), true
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error(), true
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not found", true
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "already exists", true
	default:
		return http.StatusInternalServerError, "internal error", false
	}
}

func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	status, msg, known := errorStatus(err)
	if !known {
		fields := []any{"path", req.URL.Path, "error", err}
		if c, ok := callerFromContext(req.Context()); ok {
			fields = append(fields, "user_id", c.UserID)
		}
		r.logger.Error("request failed", fields...)
	}
	writeError(w, status, msg)
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
