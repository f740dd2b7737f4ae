package httpx

import (
	"net/http"

	"github.com/nebulacloud/console/internal/catalog"
	"github.com/nebulacloud/console/internal/domain"
)

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func userPayload(user *domain.User) map[string]any {
	return map[string]any{
		"id":    user.ID,
		"email": user.Email,
	}
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload credentialsPayload
	if !decodeJSON(w, req, &payload) {
		return
	}
	user, tokens, err := r.auth.Signup(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":   userPayload(user),
		"tokens": tokens,
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload credentialsPayload
	if !decodeJSON(w, req, &payload) {
		return
	}
	user, tokens, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":   userPayload(user),
		"tokens": tokens,
	})
}

func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{"id": info.UserID, "email": info.Email},
	})
}

func (r *Router) handleProfile(w http.ResponseWriter, req *http.Request) {
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		p, err := r.profile.Get(req.Context(), info.UserID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPut:
		var payload domain.ProfileUpdate
		if !decodeJSON(w, req, &payload) {
			return
		}
		p, err := r.profile.Update(req.Context(), info.UserID, payload)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTwoFactor(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	parts := pathSegments(req.URL.Path, "/profile/2fa/")
	if len(parts) != 1 {
		r.notFound(w)
		return
	}
	switch parts[0] {
	case "setup":
		enrollment, err := r.profile.SetupTwoFactor(req.Context(), info.UserID, info.Email)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, enrollment)
	case "verify":
		var payload struct {
			Code string `json:"code"`
		}
		if !decodeJSON(w, req, &payload) {
			return
		}
		p, err := r.profile.VerifyTwoFactor(req.Context(), info.UserID, payload.Code)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleIAM(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	parts := pathSegments(req.URL.Path, "/iam/")
	if len(parts) != 1 {
		r.notFound(w)
		return
	}
	switch parts[0] {
	case "members":
		members, err := r.iam.Members(req.Context(), info.UserID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, members)
	case "api-keys":
		keys, err := r.iam.APIKeys(req.Context(), info.UserID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, keys)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleCatalog(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, catalog.All())
}
