package service

import (
	"context"
	"log/slog"

	"anoa.com/gamification/internal/entity"
	notifRepo "anoa.com/gamification/internal/modules/notification/repository"
	"anoa.com/gamification/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationService persists gamification side effects (level ups, unlocks,
// streak milestones) for presentation layers to pick up.
type NotificationService interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, message string, payload map[string]any)
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationService struct {
	repo notifRepo.NotificationRepository
}

func NewNotificationService(repo notifRepo.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// Notify is best effort. The state change it describes is already committed.
func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, kind, message string, payload map[string]any) {
	notification := &entity.Notification{
		UserID:  userID,
		Type:    kind,
		Message: message,
		Payload: datatypes.JSONMap(payload),
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		slog.Error("Failed to persist notification",
			slog.String("user_id", userID.String()),
			slog.String("type", kind),
			slog.Any("error", err))
	}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	ok, err := s.repo.MarkAsRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound("notification not found")
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
