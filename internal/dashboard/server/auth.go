package server

import (
	"net/http"
	"net/mail"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nebulacloud/console/internal/aggregate"
	"github.com/nebulacloud/console/internal/dashboard/session"
	apiclient "github.com/nebulacloud/console/pkg/api/client"
)

const minPasswordLength = 6

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.notFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess := s.resolver.Resolve(r)
	s.render(w, r, "landing", map[string]any{
		"Title":         "Nebula Cloud",
		"HideChrome":    true,
		"Authenticated": sess.State == session.Authenticated,
	})
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if s.resolver.Resolve(r).State == session.Authenticated {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		mode := "signin"
		if r.URL.Query().Get("mode") == "signup" {
			mode = "signup"
		}
		s.renderAuth(w, r, mode, "", flashFromRequest(r))
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			s.renderError(w, r, http.StatusBadRequest, "invalid form payload")
			return
		}
		mode := r.PostFormValue("mode")
		if mode != "signup" {
			mode = "signin"
		}
		email := strings.TrimSpace(r.PostFormValue("email"))
		password := r.PostFormValue("password")
		if msg := validateCredentials(email, password); msg != "" {
			s.renderAuth(w, r, mode, email, msg)
			return
		}
		ctx, cancel := s.callCtx(r.Context())
		defer cancel()
		var (
			resp apiclient.LoginResponse
			err  error
		)
		if mode == "signup" {
			resp, err = s.api.Signup(ctx, email, password)
		} else {
			resp, err = s.api.Login(ctx, email, password)
		}
		if err != nil {
			s.logger.Warn("authentication failed", "mode", mode, "error", err)
			s.renderAuth(w, r, mode, email, errorMessage(err))
			return
		}
		ttl := resp.Tokens.ExpiresIn
		if s.cfg.SessionTTL > 0 && (ttl <= 0 || s.cfg.SessionTTL < ttl) {
			ttl = s.cfg.SessionTTL
		}
		cookie, err := s.sessions.MakeCookie(resp.Tokens.AccessToken, ttl)
		if err != nil {
			s.renderError(w, r, http.StatusInternalServerError, "session issuance failed")
			return
		}
		http.SetCookie(w, cookie)
		s.logger.Info("session started", "mode", mode, "user_id", resp.User.ID)
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func validateCredentials(email, password string) string {
	if email == "" || password == "" {
		return "Email and password are required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "Enter a valid email address"
	}
	if len(password) < minPasswordLength {
		return "Password must be at least 6 characters"
	}
	return ""
}

func (s *Server) renderAuth(w http.ResponseWriter, r *http.Request, mode, email, flash string) {
	s.render(w, r, "auth", map[string]any{
		"Title":      "Sign in",
		"HideChrome": true,
		"Mode":       mode,
		"Email":      email,
		"Flash":      flash,
	})
}

func (s *Server) handleSignout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	http.SetCookie(w, s.sessions.ExpireCookie())
	http.Redirect(w, r, "/auth?flash=Signed+out", http.StatusSeeOther)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request, p page) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var (
		vps           []apiclient.VPS
		dbs           []apiclient.Database
		buckets       []apiclient.Bucket
		credits       []apiclient.CreditEntry
		notifications []apiclient.Notification
		pipelines     []apiclient.Pipeline
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error { vps = s.vpsList(ctx, p); return nil })
	g.Go(func() error { dbs = s.databaseList(ctx, p); return nil })
	g.Go(func() error { buckets = s.bucketList(ctx, p); return nil })
	g.Go(func() error { credits = s.creditList(ctx, p); return nil })
	g.Go(func() error { notifications = s.notificationList(ctx, p); return nil })
	g.Go(func() error { pipelines = s.pipelineList(ctx, p); return nil })
	_ = g.Wait()

	recent := notifications
	if len(recent) > 5 {
		recent = recent[:5]
	}
	data := s.baseData(r, p, "Overview", "overview")
	data["VPSCount"] = len(vps)
	data["RunningVPS"] = aggregate.RunningCount(vps, aggregate.VPSStatus)
	data["DatabaseCount"] = len(dbs)
	data["RunningDatabases"] = aggregate.RunningCount(dbs, aggregate.DatabaseStatus)
	data["BucketCount"] = len(buckets)
	data["PipelineCount"] = len(pipelines)
	data["Balance"] = aggregate.CreditBalance(credits)
	data["MonthlySpend"] = aggregate.MonthlySpend(vps, dbs, buckets)
	data["Unread"] = aggregate.UnreadCount(notifications)
	data["Recent"] = recent
	s.render(w, r, "overview", data)
}
