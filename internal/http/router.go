package httpx

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nebulacloud/console/internal/service/auth"
	"github.com/nebulacloud/console/internal/service/credit"
	"github.com/nebulacloud/console/internal/service/database"
	"github.com/nebulacloud/console/internal/service/iam"
	"github.com/nebulacloud/console/internal/service/notification"
	"github.com/nebulacloud/console/internal/service/pipeline"
	"github.com/nebulacloud/console/internal/service/profile"
	"github.com/nebulacloud/console/internal/service/security"
	"github.com/nebulacloud/console/internal/service/storage"
	"github.com/nebulacloud/console/internal/service/vps"
)

// Services groups the domain services served by the router.
type Services struct {
	Auth          auth.Service
	VPS           vps.Service
	Databases     database.Service
	Storage       storage.Service
	Security      security.Service
	Credits       credit.Service
	Notifications notification.Service
	Pipelines     pipeline.Service
	Profile       profile.Service
	IAM           iam.Service
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux           *http.ServeMux
	logger        *slog.Logger
	auth          auth.Service
	vps           vps.Service
	databases     database.Service
	storage       storage.Service
	security      security.Service
	credits       credit.Service
	notifications notification.Service
	pipelines     pipeline.Service
	profile       profile.Service
	iam           iam.Service
	upgrader      websocket.Upgrader
	limiter       RateLimiter
	serviceToken  string
	dbHealth      func(context.Context) error
	metrics       *apiMetrics
}

const (
	healthCheckTimeout   = 2 * time.Second
	sseHeartbeatInterval = 25 * time.Second
	maxBodyBytes         = 1 << 20
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, svc Services, limiter RateLimiter, serviceToken string, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:           http.NewServeMux(),
		logger:        logger,
		auth:          svc.Auth,
		vps:           svc.VPS,
		databases:     svc.Databases,
		storage:       svc.Storage,
		security:      svc.Security,
		credits:       svc.Credits,
		notifications: svc.Notifications,
		pipelines:     svc.Pipelines,
		profile:       svc.Profile,
		iam:           svc.IAM,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:      limiter,
		serviceToken: strings.TrimSpace(serviceToken),
		dbHealth:     dbHealth,
		metrics:      newAPIMetrics(prometheus.DefaultRegisterer),
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.HandleFunc("/catalog", r.audit("/catalog", r.limit("/catalog", policyCatalog, r.handleCatalog)))

	r.mux.HandleFunc("/auth/signup", r.audit("/auth/signup", r.limit("/auth/signup", policySignup, r.handleSignup)))
	r.mux.HandleFunc("/auth/login", r.audit("/auth/login", r.limit("/auth/login", policyLogin, r.handleLogin)))
	r.mux.HandleFunc("/auth/session", r.audit("/auth/session", r.owned("/auth/session", policyOwner, r.handleSession)))

	r.mux.HandleFunc("/vps", r.audit("/vps", r.owned("/vps", policyOwner, r.handleVPS)))
	r.mux.HandleFunc("/vps/", r.audit("/vps/:id", r.owned("/vps/:id", policyOwner, r.handleVPSItem)))
	r.mux.HandleFunc("/databases", r.audit("/databases", r.owned("/databases", policyOwner, r.handleDatabases)))
	r.mux.HandleFunc("/databases/", r.audit("/databases/:id", r.owned("/databases/:id", policyOwner, r.handleDatabaseItem)))
	r.mux.HandleFunc("/buckets", r.audit("/buckets", r.owned("/buckets", policyOwner, r.handleBuckets)))
	r.mux.HandleFunc("/buckets/", r.audit("/buckets/:id", r.owned("/buckets/:id", policyOwner, r.handleBucketItem)))

	r.mux.HandleFunc("/security-groups", r.audit("/security-groups", r.owned("/security-groups", policyOwner, r.handleSecurityGroups)))
	r.mux.HandleFunc("/security-groups/", r.audit("/security-groups/:id", r.owned("/security-groups/:id", policyOwner, r.handleSecurityGroupItem)))
	r.mux.HandleFunc("/security-rules", r.audit("/security-rules", r.owned("/security-rules", policyOwner, r.handleSecurityRules)))
	r.mux.HandleFunc("/security-rules/", r.audit("/security-rules/:id", r.owned("/security-rules/:id", policyOwner, r.handleSecurityRuleItem)))

	r.mux.HandleFunc("/credits", r.audit("/credits", r.owned("/credits", policyOwner, r.handleCredits)))
	r.mux.HandleFunc("/notifications", r.audit("/notifications", r.owned("/notifications", policyOwner, r.handleNotifications)))
	r.mux.HandleFunc("/notifications/", r.audit("/notifications/:id", r.owned("/notifications/:id", policyOwner, r.handleNotificationItem)))
	r.mux.HandleFunc("/notifications/stream", r.audit("/notifications/stream", r.owned("/notifications/stream", policyStream, r.handleNotificationItem)))
	r.mux.HandleFunc("/ws/notifications", r.audit("/ws/notifications", r.owned("/ws/notifications", policyStream, r.handleNotificationsWS)))

	r.mux.HandleFunc("/pipelines", r.audit("/pipelines", r.owned("/pipelines", policyOwner, r.handlePipelines)))
	r.mux.HandleFunc("/pipelines/", r.audit("/pipelines/:id", r.owned("/pipelines/:id", policyOwner, r.handlePipelineItem)))

	r.mux.HandleFunc("/profile", r.audit("/profile", r.owned("/profile", policyOwner, r.handleProfile)))
	r.mux.HandleFunc("/profile/2fa/", r.audit("/profile/2fa/:step", r.owned("/profile/2fa/:step", policyTwoFactor, r.handleTwoFactor)))
	r.mux.HandleFunc("/iam/", r.audit("/iam/:listing", r.owned("/iam/:listing", policyOwner, r.handleIAM)))

	r.mux.HandleFunc("/internal/notifications", r.audit("/internal/notifications", r.limit("/internal/notifications", policyService, r.handleInternalNotification)))
	r.mux.HandleFunc("/internal/usage", r.audit("/internal/usage", r.limit("/internal/usage", policyService, r.handleInternalUsage)))
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// currentUser returns the authenticated caller or writes a 500 when the middleware did not run.
func (r *Router) currentUser(w http.ResponseWriter, req *http.Request) (caller, bool) {
	info, ok := callerFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
	}
	return info, ok
}

func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// pathSegments splits the remainder of path after prefix.
func pathSegments(path, prefix string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.metrics.observe(req.Method, route, status, duration)
		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := callerFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
		} else if strings.HasPrefix(req.URL.Path, "/internal/") {
			actor = "service"
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

// verifyServiceToken ensures internal event sources present the shared secret.
func (r *Router) verifyServiceToken(w http.ResponseWriter, req *http.Request) bool {
	expected := r.serviceToken
	if expected == "" {
		r.logger.Error("service token not configured", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "service authentication misconfigured")
		return false
	}
	token := strings.TrimSpace(req.Header.Get("X-Service-Token"))
	if len(token) != len(expected) || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		r.logger.Warn("service token mismatch", "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "invalid service token")
		return false
	}
	return true
}
