package httpx

import (
	"net/http"

	"github.com/nebulacloud/console/internal/service/security"
)

func (r *Router) handleSecurityGroups(w http.ResponseWriter, req *http.Request) {
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		groups, err := r.security.ListGroups(req.Context(), info.UserID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, groups)
	case http.MethodPost:
		var payload security.GroupInput
		if !decodeJSON(w, req, &payload) {
			return
		}
		group, err := r.security.CreateGroup(req.Context(), info.UserID, payload)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, group)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleSecurityGroupItem(w http.ResponseWriter, req *http.Request) {
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	parts := pathSegments(req.URL.Path, "/security-groups/")
	switch {
	case len(parts) == 1 && req.Method == http.MethodDelete:
		if err := r.security.DeleteGroup(req.Context(), info.UserID, parts[0]); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 2 && parts[1] == "rules" && req.Method == http.MethodPost:
		var payload security.RuleInput
		if !decodeJSON(w, req, &payload) {
			return
		}
		rule, err := r.security.CreateRule(req.Context(), info.UserID, parts[0], payload)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, rule)
	case len(parts) == 1, len(parts) == 2 && parts[1] == "rules":
		r.methodNotAllowed(w)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleSecurityRules(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	rules, err := r.security.ListRules(req.Context(), info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (r *Router) handleSecurityRuleItem(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodDelete {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	parts := pathSegments(req.URL.Path, "/security-rules/")
	if len(parts) != 1 {
		r.notFound(w)
		return
	}
	if err := r.security.DeleteRule(req.Context(), info.UserID, parts[0]); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
