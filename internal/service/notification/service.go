package notification

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/repository"
	"github.com/nebulacloud/console/internal/ws"
)

// PublishInput is an event raised by a resource or billing source.
type PublishInput struct {
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Type        string `json:"type"`
	ServiceType string `json:"service_type"`
	ResourceID  string `json:"resource_id"`
}

var (
	errUserID    = domain.Invalid("user id required")
	errTitle     = domain.Invalid("title required")
	errMessage   = domain.Invalid("message required")
	errType      = domain.Invalid("type must be success, warning, error or info")
	errMissingID = domain.Invalid("notification id required")
)

// Service manages notifications and streams new ones to connected clients.
type Service struct {
	repo   repository.NotificationRepository
	hub    *ws.Hub
	logger *slog.Logger
	now    func() time.Time
}

// New returns a notification service. hub may be nil.
func New(repo repository.NotificationRepository, hub *ws.Hub, logger *slog.Logger) Service {
	return Service{repo: repo, hub: hub, logger: logger, now: time.Now}
}

// Hub exposes the stream hub for websocket registration.
func (s Service) Hub() *ws.Hub {
	return s.hub
}

// List returns the caller's notifications, newest first.
func (s Service) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListNotifications(ctx, userID)
}

// MarkRead sets read=true. Repeating it leaves the row unchanged.
func (s Service) MarkRead(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	return s.repo.MarkNotificationRead(ctx, userID, id)
}

// MarkAllRead flips every unread notification of the caller.
func (s Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("notifications marked read", "user_id", userID, "count", n)
	return n, nil
}

// Delete removes a notification.
func (s Service) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	return s.repo.DeleteNotification(ctx, userID, id)
}

// Publish stores an unread notification and pushes it to live subscribers.
func (s Service) Publish(ctx context.Context, input PublishInput) (*domain.Notification, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, errUserID
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errTitle
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, errMessage
	}
	kind := strings.ToLower(strings.TrimSpace(input.Type))
	if kind == "" {
		kind = domain.NotificationInfo
	}
	if !domain.ValidNotificationType(kind) {
		return nil, errType
	}
	n := &domain.Notification{
		ID:          uuid.NewString(),
		UserID:      input.UserID,
		Title:       title,
		Message:     message,
		Type:        kind,
		ServiceType: strings.TrimSpace(input.ServiceType),
		ResourceID:  strings.TrimSpace(input.ResourceID),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.InsertNotification(ctx, n); err != nil {
		return nil, err
	}
	s.stream(ctx, n)
	return n, nil
}

func (s Service) stream(ctx context.Context, n *domain.Notification) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Error("encode notification", "error", err)
		return
	}
	if err := s.hub.Broadcast(ctx, n.UserID, payload); err != nil {
		s.logger.Warn("notification broadcast skipped", "user_id", n.UserID, "error", err)
	}
}
