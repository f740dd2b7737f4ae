package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nebulacloud/console/internal/dashboard/query"
	apiclient "github.com/nebulacloud/console/pkg/api/client"
)

const settingsPath = "/dashboard/settings"

func (s *Server) handleIAM(w http.ResponseWriter, r *http.Request, p page, rest []string) {
	if len(rest) != 0 {
		s.notFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	data := s.baseData(r, p, "Identity & Access", "iam")
	data["Members"] = s.teamMembers(r.Context(), p)
	data["Keys"] = s.apiKeys(r.Context(), p)
	s.render(w, r, "iam", data)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request, p page, rest []string) {
	key := s.key(p, query.CollectionProfile)
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		profile, ok := s.profile(r.Context(), p)
		data := s.baseData(r, p, "Settings", "settings")
		data["Profile"] = profile
		data["ProfileLoaded"] = ok
		s.render(w, r, "settings", data)
	case len(rest) == 1 && rest[0] == "profile":
		if !s.parseForm(w, r) {
			return
		}
		update := apiclient.ProfileUpdate{
			DisplayName: strings.TrimSpace(r.PostFormValue("display_name")),
			Bio:         strings.TrimSpace(r.PostFormValue("bio")),
			Company:     strings.TrimSpace(r.PostFormValue("company")),
			AvatarURL:   strings.TrimSpace(r.PostFormValue("avatar_url")),
		}
		s.mutate(w, r, query.Guard{Entity: "profile", ID: p.owner(), Op: "update", Payload: fmt.Sprintf("%+v", update)}, settingsPath, "Profile updated",
			func(ctx context.Context) error {
				_, err := s.api.UpdateProfile(ctx, p.sess.Token, update)
				return err
			}, key)
	case len(rest) == 2 && rest[0] == "2fa" && rest[1] == "setup":
		if !s.parseForm(w, r) {
			return
		}
		ctx, cancel := s.callCtx(r.Context())
		defer cancel()
		enrollment, err := query.Mutate(ctx, s.cache, query.Guard{Entity: "two_factor", ID: p.owner(), Op: "setup"},
			func(ctx context.Context) (apiclient.TwoFactorEnrollment, error) {
				return s.api.SetupTwoFactor(ctx, p.sess.Token)
			}, key)
		if err != nil {
			s.logger.Warn("two-factor setup failed", "error", err)
			redirectWithFlash(w, r, settingsPath, "Error: "+errorMessage(err))
			return
		}
		profile, _ := s.profile(r.Context(), p)
		data := s.baseData(r, p, "Settings", "settings")
		data["Profile"] = profile
		data["ProfileLoaded"] = true
		data["Enrollment"] = enrollment
		s.render(w, r, "settings", data)
	case len(rest) == 2 && rest[0] == "2fa" && rest[1] == "verify":
		if !s.parseForm(w, r) {
			return
		}
		code := strings.TrimSpace(r.PostFormValue("code"))
		if code == "" {
			redirectWithFlash(w, r, settingsPath, "Error: Enter the code from your authenticator app")
			return
		}
		s.mutate(w, r, query.Guard{Entity: "two_factor", ID: p.owner(), Op: "verify", Payload: code}, settingsPath, "Two-factor authentication enabled",
			func(ctx context.Context) error {
				_, err := s.api.VerifyTwoFactor(ctx, p.sess.Token, code)
				return err
			}, key)
	default:
		s.notFound(w, r)
	}
}
