package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nebulacloud/console/internal/aggregate"
	"github.com/nebulacloud/console/internal/dashboard/query"
	apiclient "github.com/nebulacloud/console/pkg/api/client"
)

const (
	notificationsPath = "/dashboard/notifications"
	pipelinesPath     = "/dashboard/pipelines"
)

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request, p page, rest []string) {
	key := s.key(p, query.CollectionNotifications)
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		all := s.notificationList(r.Context(), p)
		filter := strings.TrimSpace(r.URL.Query().Get("filter"))
		if filter == "" {
			filter = "all"
		}
		search := r.URL.Query().Get("q")
		data := s.baseData(r, p, "Notifications", "notifications")
		data["Notifications"] = aggregate.FilterNotifications(all, filter, search)
		data["Total"] = len(all)
		data["Unread"] = aggregate.UnreadCount(all)
		data["Errors"] = aggregate.CountByType(all, "error")
		data["ThisWeek"] = aggregate.CountSince(all, time.Now().AddDate(0, 0, -7))
		data["Filter"] = filter
		data["Search"] = search
		data["Filters"] = []string{"all", "unread", "read", "success", "warning", "error", "info"}
		s.render(w, r, "notifications", data)
	case len(rest) == 1 && rest[0] == "read-all":
		if !s.parseForm(w, r) {
			return
		}
		s.mutate(w, r, query.Guard{Entity: "notification", ID: p.owner(), Op: "read-all"}, notificationsPath, "All notifications marked as read",
			func(ctx context.Context) error {
				_, err := s.api.MarkAllNotificationsRead(ctx, p.sess.Token)
				return err
			}, key)
	case len(rest) == 2 && rest[1] == "read":
		if !s.parseForm(w, r) {
			return
		}
		id := rest[0]
		s.mutate(w, r, query.Guard{Entity: "notification", ID: id, Op: "read"}, notificationsPath, "Notification marked as read",
			func(ctx context.Context) error {
				return s.api.MarkNotificationRead(ctx, p.sess.Token, id)
			}, key)
	case len(rest) == 2 && rest[1] == "delete":
		if !s.parseForm(w, r) {
			return
		}
		id := rest[0]
		s.mutate(w, r, query.Guard{Entity: "notification", ID: id, Op: "delete"}, notificationsPath, "Notification deleted",
			func(ctx context.Context) error {
				return s.api.DeleteNotification(ctx, p.sess.Token, id)
			}, key)
	default:
		s.notFound(w, r)
	}
}

func (s *Server) handlePipelines(w http.ResponseWriter, r *http.Request, p page, rest []string) {
	key := s.key(p, query.CollectionPipelines)
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		pipelines := s.pipelineList(r.Context(), p)
		data := s.baseData(r, p, "CI/CD Pipelines", "pipelines")
		data["Pipelines"] = pipelines
		data["Running"] = aggregate.RunningCount(pipelines, aggregate.PipelineStatus)
		s.render(w, r, "pipelines", data)
	case len(rest) == 1 && rest[0] == "create":
		if !s.parseForm(w, r) {
			return
		}
		input := apiclient.CreatePipelineInput{
			Name:          strings.TrimSpace(r.PostFormValue("name")),
			RepositoryURL: strings.TrimSpace(r.PostFormValue("repository_url")),
			Branch:        strings.TrimSpace(r.PostFormValue("branch")),
		}
		if input.Name == "" || input.RepositoryURL == "" {
			redirectWithFlash(w, r, pipelinesPath, "Error: Name and repository URL are required")
			return
		}
		s.mutate(w, r, query.Guard{Entity: "pipeline", ID: p.owner(), Op: "create", Payload: fmt.Sprintf("%+v", input)}, pipelinesPath, "Pipeline created",
			func(ctx context.Context) error {
				_, err := s.api.CreatePipeline(ctx, p.sess.Token, input)
				return err
			}, key)
	case len(rest) == 1:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := rest[0]
		var pipeline *apiclient.Pipeline
		for _, pl := range s.pipelineList(r.Context(), p) {
			if pl.ID == id {
				pipeline = &pl
				break
			}
		}
		if pipeline == nil {
			s.notFound(w, r)
			return
		}
		data := s.baseData(r, p, pipeline.Name, "pipelines")
		data["Pipeline"] = pipeline
		data["Builds"] = s.pipelineBuilds(r.Context(), p, id)
		s.render(w, r, "pipeline", data)
	case len(rest) == 2:
		if !s.parseForm(w, r) {
			return
		}
		id, action := rest[0], rest[1]
		var (
			write   func(context.Context) error
			success string
		)
		switch action {
		case "run":
			success = "Pipeline started"
			write = func(ctx context.Context) error {
				_, err := s.api.RunPipeline(ctx, p.sess.Token, id)
				return err
			}
		case "stop":
			success = "Pipeline stopped"
			write = func(ctx context.Context) error {
				_, err := s.api.StopPipeline(ctx, p.sess.Token, id)
				return err
			}
		case "delete":
			success = "Pipeline deleted"
			write = func(ctx context.Context) error {
				return s.api.DeletePipeline(ctx, p.sess.Token, id)
			}
		default:
			s.notFound(w, r)
			return
		}
		target := pipelinesPath
		if ref := r.PostFormValue("return"); ref == "detail" && action != "delete" {
			target = pipelinesPath + "/" + url.PathEscape(id)
		}
		s.mutate(w, r, query.Guard{Entity: "pipeline", ID: id, Op: action}, target, success, write, key)
	default:
		s.notFound(w, r)
	}
}
