package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/nebulacloud/console/internal/service/credit"
	"github.com/nebulacloud/console/internal/service/notification"
	"github.com/nebulacloud/console/internal/service/pipeline"
	"github.com/nebulacloud/console/internal/ws"
	"github.com/nebulacloud/console/pkg/money"
)

func (r *Router) handleCredits(w http.ResponseWriter, req *http.Request) {
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		entries, err := r.credits.List(req.Context(), info.UserID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	case http.MethodPost:
		var payload struct {
			AmountCents money.Cents `json:"amount_cents"`
			Amount      string      `json:"amount"`
		}
		if !decodeJSON(w, req, &payload) {
			return
		}
		amount := payload.AmountCents
		if raw := strings.TrimSpace(payload.Amount); raw != "" {
			parsed, err := money.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "amount must be a dollar value such as 25.00")
				return
			}
			amount = parsed
		}
		entry, err := r.credits.Purchase(req.Context(), info.UserID, amount)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleNotifications(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	items, err := r.notifications.List(req.Context(), info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (r *Router) handleNotificationItem(w http.ResponseWriter, req *http.Request) {
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	parts := pathSegments(req.URL.Path, "/notifications/")
	switch {
	case len(parts) == 1 && parts[0] == "read-all":
		if req.Method != http.MethodPost {
			r.methodNotAllowed(w)
			return
		}
		count, err := r.notifications.MarkAllRead(req.Context(), info.UserID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"updated": count})
	case len(parts) == 1 && parts[0] == "stream":
		if req.Method != http.MethodGet {
			r.methodNotAllowed(w)
			return
		}
		r.streamNotifications(w, req, info.UserID)
	case len(parts) == 1:
		if req.Method != http.MethodDelete {
			r.methodNotAllowed(w)
			return
		}
		if err := r.notifications.Delete(req.Context(), info.UserID, parts[0]); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 2 && parts[1] == "read":
		if req.Method != http.MethodPost {
			r.methodNotAllowed(w)
			return
		}
		if err := r.notifications.MarkRead(req.Context(), info.UserID, parts[0]); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
	default:
		r.notFound(w)
	}
}

func (r *Router) handleNotificationsWS(w http.ResponseWriter, req *http.Request) {
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	hub := r.notifications.Hub()
	if hub == nil {
		writeError(w, http.StatusServiceUnavailable, "notification stream unavailable")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	hub.Register(info.UserID, client)
	go func() {
		defer func() {
			hub.Unregister(info.UserID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// streamNotifications serves the same feed as Server-Sent Events for clients without websockets.
func (r *Router) streamNotifications(w http.ResponseWriter, req *http.Request, userID string) {
	hub := r.notifications.Hub()
	flusher, ok := w.(http.Flusher)
	if hub == nil || !ok {
		writeError(w, http.StatusServiceUnavailable, "notification stream unavailable")
		return
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, "notification", r.logger)
	hub.Register(userID, client)
	defer hub.Unregister(userID, client)

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			client.Close()
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

func (r *Router) handlePipelines(w http.ResponseWriter, req *http.Request) {
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		items, err := r.pipelines.List(req.Context(), info.UserID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var payload pipeline.CreateInput
		if !decodeJSON(w, req, &payload) {
			return
		}
		created, err := r.pipelines.Create(req.Context(), info.UserID, payload)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handlePipelineItem(w http.ResponseWriter, req *http.Request) {
	info, ok := r.currentUser(w, req)
	if !ok {
		return
	}
	parts := pathSegments(req.URL.Path, "/pipelines/")
	if len(parts) == 0 || len(parts) > 2 {
		r.notFound(w)
		return
	}
	id := parts[0]
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}
	switch {
	case action == "" && req.Method == http.MethodDelete:
		if err := r.pipelines.Delete(req.Context(), info.UserID, id); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case (action == "run" || action == "stop") && req.Method == http.MethodPost:
		transition := r.pipelines.Run
		if action == "stop" {
			transition = r.pipelines.Stop
		}
		updated, err := transition(req.Context(), info.UserID, id)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case action == "builds" && req.Method == http.MethodGet:
		builds, err := r.pipelines.Builds(req.Context(), info.UserID, id)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, builds)
	case action == "", action == "run", action == "stop", action == "builds":
		r.methodNotAllowed(w)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleInternalNotification(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	if !r.verifyServiceToken(w, req) {
		return
	}
	var payload notification.PublishInput
	if !decodeJSON(w, req, &payload) {
		return
	}
	n, err := r.notifications.Publish(req.Context(), payload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusAccepted, n)
}

func (r *Router) handleInternalUsage(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	if !r.verifyServiceToken(w, req) {
		return
	}
	var payload credit.UsageInput
	if !decodeJSON(w, req, &payload) {
		return
	}
	entry, err := r.credits.RecordUsage(req.Context(), payload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusAccepted, entry)
}
