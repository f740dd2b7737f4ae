package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// caller is the authenticated owner of a request. Every row the API reads or
// writes on behalf of a request is scoped to caller.UserID.
type caller struct {
	UserID string
	Email  string
}

type callerKey struct{}

type contextSetter interface {
	SetContext(context.Context)
}

var (
	errMissingToken = errors.New("missing authorization header")
	errMalformed    = errors.New("invalid authorization header format")
)

// requireCaller rejects requests without a valid access token and stores the
// owner on the request context for the handler, the limiter and the audit log.
func (r *Router) requireCaller(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		token, err := tokenFromRequest(req)
		if err != nil {
			r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		user, _, err := r.auth.Authorize(req.Context(), token)
		if err != nil {
			r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusUnauthorized, "authentication failed")
			return
		}
		ctx := context.WithValue(req.Context(), callerKey{}, caller{UserID: user.ID, Email: user.Email})
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

func callerFromContext(ctx context.Context) (caller, bool) {
	c, ok := ctx.Value(callerKey{}).(caller)
	return c, ok && c.UserID != ""
}

// tokenFromRequest reads the bearer token. Notification streams also accept
// an access_token query parameter because browsers cannot set headers on
// WebSocket or EventSource connections.
func tokenFromRequest(req *http.Request) (string, error) {
	header := strings.TrimSpace(req.Header.Get("Authorization"))
	if header == "" && isNotificationStream(req) {
		if token := strings.TrimSpace(req.URL.Query().Get("access_token")); token != "" {
			return token, nil
		}
	}
	if header == "" {
		return "", errMissingToken
	}
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.ContainsAny(token, " \t") {
		return "", errMalformed
	}
	return token, nil
}

func isNotificationStream(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	switch strings.TrimSuffix(req.URL.Path, "/") {
	case "/ws/notifications", "/notifications/stream":
		return true
	}
	return false
}
