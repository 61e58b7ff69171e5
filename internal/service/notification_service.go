package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/vindel10/vindel-api/internal/models"
	"github.com/vindel10/vindel-api/internal/realtime"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) (bool, error)
}

// notifier is the narrow dependency other services use to raise notifications.
type notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// NotificationService persists notifications and pushes them to live subscribers.
type NotificationService struct {
	repo   notificationRepository
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationRepository, hub *realtime.Hub, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = realtime.NewHub(0)
	}
	return &NotificationService{repo: repo, hub: hub, logger: logger}
}

// Notify stores n and publishes it with the user's new unread count.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	if err := s.repo.Create(ctx, n); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store notification")
	}
	unread, err := s.repo.CountUnread(ctx, n.UserID)
	if err != nil {
		s.logger.Warn("count unread notifications failed", zap.String("user_id", n.UserID), zap.Error(err))
	}
	s.hub.Publish(n.UserID, models.NotificationEvent{Type: models.EventCreated, Notification: n, Unread: unread})
	return nil
}

// List returns the latest notifications of a user.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	items, err := s.repo.List(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return items, nil
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

// MarkRead flags a notification as read and returns the remaining unread count.
// Marking an already read notification is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (int, error) {
	changed, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}
	if changed {
		s.hub.Publish(userID, models.NotificationEvent{Type: models.EventRead, Unread: unread})
	}
	return unread, nil
}

// Subscribe opens a live event stream for userID.
func (s *NotificationService) Subscribe(userID string) *realtime.Subscription {
	return s.hub.Subscribe(userID)
}

// Unsubscribe closes a stream opened with Subscribe.
func (s *NotificationService) Unsubscribe(sub *realtime.Subscription) {
	s.hub.Unsubscribe(sub)
}
