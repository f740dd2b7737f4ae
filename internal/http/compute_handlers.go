package httpx

import (
	"net/http"

	"github.com/nebulacloud/console/internal/service/database"
	"github.com/nebulacloud/console/internal/service/storage"
	"github.com/nebulacloud/console/internal/service/vps"
)

type statusPayload struct {
	Status string `json:"status"`
}

func (r *Router) handleVPS(w http.ResponseWriter, req *http.Request) {
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		items, err := r.vps.List(req.Context(), info.UserID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var payload vps.CreateInput
		if !decodeJSON(w, req, &payload) {
			return
		}
		created, err := r.vps.Create(req.Context(), info.UserID, payload)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleVPSItem(w http.ResponseWriter, req *http.Request) {
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	parts := pathSegments(req.URL.Path, "/vps/")
	if len(parts) != 1 {
		r.notFound(w)
		return
	}
	id := parts[0]
	switch req.Method {
	case http.MethodPatch:
		var payload statusPayload
		if !decodeJSON(w, req, &payload) {
			return
		}
		updated, err := r.vps.SetStatus(req.Context(), info.UserID, id, payload.Status)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := r.vps.Delete(req.Context(), info.UserID, id); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleDatabases(w http.ResponseWriter, req *http.Request) {
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		items, err := r.databases.List(req.Context(), info.UserID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var payload database.CreateInput
		if !decodeJSON(w, req, &payload) {
			return
		}
		created, err := r.databases.Create(req.Context(), info.UserID, payload)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleDatabaseItem(w http.ResponseWriter, req *http.Request) {
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	parts := pathSegments(req.URL.Path, "/databases/")
	if len(parts) != 1 {
		r.notFound(w)
		return
	}
	id := parts[0]
	switch req.Method {
	case http.MethodPatch:
		var payload statusPayload
		if !decodeJSON(w, req, &payload) {
			return
		}
		updated, err := r.databases.SetStatus(req.Context(), info.UserID, id, payload.Status)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := r.databases.Delete(req.Context(), info.UserID, id); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleBuckets(w http.ResponseWriter, req *http.Request) {
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		items, err := r.storage.List(req.Context(), info.UserID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var payload storage.CreateInput
		if !decodeJSON(w, req, &payload) {
			return
		}
		created, err := r.storage.Create(req.Context(), info.UserID, payload)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleBucketItem(w http.ResponseWriter, req *http.Request) {
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	parts := pathSegments(req.URL.Path, "/buckets/")
	switch {
	case len(parts) == 1 && req.Method == http.MethodDelete:
		if err := r.storage.Delete(req.Context(), info.UserID, parts[0]); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 2 && parts[1] == "files" && req.Method == http.MethodGet:
		files, err := r.storage.Files(req.Context(), info.UserID, parts[0])
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, files)
	case len(parts) == 1, len(parts) == 2 && parts[1] == "files":
		r.methodNotAllowed(w)
	default:
		r.notFound(w)
	}
}
