package service

import (
	"context"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/logger"
	"evrental-backend/internal/repository"
)

type notificationService struct {
	noteRepo      repository.NotificationRepository
	principalRepo repository.PrincipalRepository
}

func NewNotificationService(
	noteRepo repository.NotificationRepository,
	principalRepo repository.PrincipalRepository,
) NotificationService {
	return &notificationService{
		noteRepo:      noteRepo,
		principalRepo: principalRepo,
	}
}

// Notify is fire-and-forget: a failed insert is logged, never returned,
// so notification faults cannot fail a lifecycle operation.
func (s *notificationService) Notify(ctx context.Context, userID int32, typ domain.NotificationType, title, message, link string) {
	n := &domain.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Link:    link,
	}
	if err := s.noteRepo.Create(ctx, n); err != nil {
		logger.Error("notification insert failed", "user_id", userID, "title", title, "error", err)
	}
}

// NotifyStaff fans the notification out to every admin and station
// master in the directory.
func (s *notificationService) NotifyStaff(ctx context.Context, typ domain.NotificationType, title, message, link string) {
	staff, err := s.principalRepo.ListStaff(ctx)
	if err != nil {
		logger.Error("staff lookup for notification failed", "title", title, "error", err)
		return
	}
	for _, member := range staff {
		s.Notify(ctx, member.ID, typ, title, message, link)
	}
}

func (s *notificationService) List(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.noteRepo.List(ctx, userID, pageSize, (page-1)*pageSize)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id int32) error {
	return s.noteRepo.MarkAsRead(ctx, id, userID)
}
