package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nebulacloud/console/internal/aggregate"
	"github.com/nebulacloud/console/internal/dashboard/query"
	"github.com/nebulacloud/console/internal/dashboard/session"
	apiclient "github.com/nebulacloud/console/pkg/api/client"
	"github.com/nebulacloud/console/pkg/config"
	"github.com/nebulacloud/console/pkg/money"
)

//go:embed templates/*.html
var templateFS embed.FS

// Gateway is the subset of the API client the dashboard uses.
type Gateway interface {
	Signup(ctx context.Context, email, password string) (apiclient.LoginResponse, error)
	Login(ctx context.Context, email, password string) (apiclient.LoginResponse, error)
	Session(ctx context.Context, token string) (apiclient.User, error)
	Catalog(ctx context.Context) (apiclient.Catalog, error)

	ListVPS(ctx context.Context, token string) ([]apiclient.VPS, error)
	CreateVPS(ctx context.Context, token string, input apiclient.CreateVPSInput) (apiclient.VPS, error)
	SetVPSStatus(ctx context.Context, token, id, status string) (apiclient.VPS, error)
	DeleteVPS(ctx context.Context, token, id string) error

	ListDatabases(ctx context.Context, token string) ([]apiclient.Database, error)
	CreateDatabase(ctx context.Context, token string, input apiclient.CreateDatabaseInput) (apiclient.Database, error)
	SetDatabaseStatus(ctx context.Context, token, id, status string) (apiclient.Database, error)
	DeleteDatabase(ctx context.Context, token, id string) error

	ListBuckets(ctx context.Context, token string) ([]apiclient.Bucket, error)
	CreateBucket(ctx context.Context, token string, input apiclient.CreateBucketInput) (apiclient.Bucket, error)
	DeleteBucket(ctx context.Context, token, id string) error
	BucketFiles(ctx context.Context, token, id string) ([]apiclient.StoredFile, error)

	ListSecurityGroups(ctx context.Context, token string) ([]apiclient.SecurityGroup, error)
	CreateSecurityGroup(ctx context.Context, token string, input apiclient.CreateSecurityGroupInput) (apiclient.SecurityGroup, error)
	DeleteSecurityGroup(ctx context.Context, token, id string) error
	ListSecurityRules(ctx context.Context, token string) ([]apiclient.SecurityRule, error)
	CreateSecurityRule(ctx context.Context, token, groupID string, input apiclient.CreateSecurityRuleInput) (apiclient.SecurityRule, error)
	DeleteSecurityRule(ctx context.Context, token, id string) error

	ListCredits(ctx context.Context, token string) ([]apiclient.CreditEntry, error)
	PurchaseCredits(ctx context.Context, token, amount string) (apiclient.CreditEntry, error)

	ListNotifications(ctx context.Context, token string) ([]apiclient.Notification, error)
	MarkNotificationRead(ctx context.Context, token, id string) error
	MarkAllNotificationsRead(ctx context.Context, token string) (int64, error)
	DeleteNotification(ctx context.Context, token, id string) error

	ListPipelines(ctx context.Context, token string) ([]apiclient.Pipeline, error)
	CreatePipeline(ctx context.Context, token string, input apiclient.CreatePipelineInput) (apiclient.Pipeline, error)
	RunPipeline(ctx context.Context, token, id string) (apiclient.Pipeline, error)
	StopPipeline(ctx context.Context, token, id string) (apiclient.Pipeline, error)
	DeletePipeline(ctx context.Context, token, id string) error
	PipelineBuilds(ctx context.Context, token, id string) ([]apiclient.Build, error)

	Profile(ctx context.Context, token string) (apiclient.Profile, error)
	UpdateProfile(ctx context.Context, token string, update apiclient.ProfileUpdate) (apiclient.Profile, error)
	SetupTwoFactor(ctx context.Context, token string) (apiclient.TwoFactorEnrollment, error)
	VerifyTwoFactor(ctx context.Context, token, code string) (apiclient.Profile, error)

	TeamMembers(ctx context.Context, token string) ([]apiclient.TeamMember, error)
	APIKeys(ctx context.Context, token string) ([]apiclient.APIKey, error)
}

var _ Gateway = (*apiclient.Client)(nil)

// Server hosts the dashboard web UI.
type Server struct {
	cfg       config.DashboardConfig
	api       Gateway
	sessions  session.Manager
	resolver  session.Resolver
	cache     *query.Client
	templates *template.Template
	mux       *http.ServeMux
	logger    *slog.Logger
}

// New constructs a configured server ready to serve HTTP traffic.
func New(cfg config.DashboardConfig, api Gateway, cache *query.Client, logger *slog.Logger) (*Server, error) {
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return nil, errors.New("SESSION_SECRET must be configured for the dashboard")
	}
	if api == nil || cache == nil {
		return nil, errors.New("dashboard requires an api gateway and a query cache")
	}
	sessionMgr, err := session.New(cfg.SessionSecret, cfg.CookieName, cfg.CookieSecure)
	if err != nil {
		return nil, err
	}
	templates, err := template.New("base").Funcs(funcMap()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	srv := &Server{
		cfg:       cfg,
		api:       api,
		sessions:  sessionMgr,
		resolver:  session.NewResolver(sessionMgr, api, cfg.RequestTimeout),
		cache:     cache,
		templates: templates,
		mux:       http.NewServeMux(),
		logger:    logger,
	}
	srv.registerRoutes()
	return srv, nil
}

// ServeHTTP conforms to http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("/", s.handleLanding)
	s.mux.HandleFunc("/auth", s.handleAuth)
	s.mux.HandleFunc("/auth/signout", s.handleSignout)
	s.mux.HandleFunc("/dashboard", s.protected(s.handleOverview))
	s.mux.HandleFunc("/dashboard/", s.protected(s.handleSection))
}

// page carries everything a protected handler needs for one render.
type page struct {
	sess session.Context
	view *query.View
}

func (p page) owner() string { return p.sess.User.ID }

type pageHandler func(http.ResponseWriter, *http.Request, page)

// protected resolves the session before running next. Anonymous visitors go to /auth;
// an unresolved session renders the loading page instead of redirecting.
func (s *Server) protected(next pageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.resolver.Resolve(r)
		switch sess.State {
		case session.Anonymous:
			http.Redirect(w, r, "/auth", http.StatusSeeOther)
			return
		case session.Unknown:
			s.logger.Warn("session unresolved, rendering loading page", "path", r.URL.Path)
			w.Header().Set("Cache-Control", "no-store")
			s.render(w, r, "loading", map[string]any{
				"Title":      "Loading",
				"HideChrome": true,
				"Target":     r.URL.RequestURI(),
			})
			return
		}
		view := s.cache.Mount(r.Context())
		defer view.Unmount()
		next(w, r, page{sess: sess, view: view})
	}
}

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request, p page) {
	parts := pathSegments(r.URL.Path, "/dashboard/")
	if len(parts) == 0 {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	rest := parts[1:]
	switch parts[0] {
	case "vps":
		s.handleVPS(w, r, p, rest)
	case "databases":
		s.handleDatabases(w, r, p, rest)
	case "storage":
		s.handleStorage(w, r, p, rest)
	case "security":
		s.handleSecurity(w, r, p, rest)
	case "credits":
		s.handleCredits(w, r, p, rest)
	case "notifications":
		s.handleNotifications(w, r, p, rest)
	case "pipelines":
		s.handlePipelines(w, r, p, rest)
	case "iam":
		s.handleIAM(w, r, p, rest)
	case "settings":
		s.handleSettings(w, r, p, rest)
	default:
		s.notFound(w, r)
	}
}

// baseData seeds template data shared by every protected page.
func (s *Server) baseData(r *http.Request, p page, title, section string) map[string]any {
	return map[string]any{
		"Title":   title,
		"Section": section,
		"Flash":   flashFromRequest(r),
		"User":    p.sess.User,
	}
}

// callCtx bounds a single remote call.
func (s *Server) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}

// mutate runs write through the mutation guard and redirects back to target with a flash.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, guard query.Guard, target, success string, write func(context.Context) error, keys ...query.Key) {
	ctx, cancel := s.callCtx(r.Context())
	defer cancel()
	_, err := query.Mutate(ctx, s.cache, guard, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, write(ctx)
	}, keys...)
	if err != nil {
		s.logger.Warn("mutation failed", "entity", guard.Entity, "id", guard.ID, "op", guard.Op, "error", err)
		redirectWithFlash(w, r, target, "Error: "+errorMessage(err))
		return
	}
	redirectWithFlash(w, r, target, success)
}

func errorMessage(err error) string {
	var apiErr apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "the request could not be completed"
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "invalid form payload")
		return false
	}
	return true
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, tpl string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, tpl, data); err != nil {
		s.logger.Error("template render failed", "template", tpl, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.logger.Warn("dashboard error", "status", status, "message", message, "path", r.URL.Path)
	http.Error(w, message, status)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if err := s.templates.ExecuteTemplate(w, "notfound", map[string]any{"Title": "Not found", "HideChrome": true, "Path": r.URL.Path}); err != nil {
		s.logger.Error("template render failed", "template", "notfound", "error", err)
	}
}

func pathSegments(path, prefix string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func flashFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("flash"))
}

func redirectWithFlash(w http.ResponseWriter, r *http.Request, target, message string) {
	if strings.TrimSpace(target) == "" {
		target = "/"
	}
	if strings.TrimSpace(message) == "" {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	u, err := url.Parse(target)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	q := u.Query()
	q.Set("flash", message)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"money":  func(c money.Cents) string { return c.String() },
		"bytes":  aggregate.FormatBytes,
		"unsafe": aggregate.RuleUnsafe,
		"rulesFor": func(rules []apiclient.SecurityRule, groupID string) []apiclient.SecurityRule {
			return aggregate.RulesForGroup(rules, groupID)
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return t.Format("Jan 2, 2006 15:04")
		},
		"since": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return "never"
			}
			return t.Format("Jan 2, 2006 15:04")
		},
		"duration": func(d time.Duration) string { return d.Round(time.Second).String() },
	}
}
