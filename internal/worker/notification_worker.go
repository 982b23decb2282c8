package worker

import (
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/service"
)

// StartNotificationWorker subscribes the notification fan-out to every
// domain event.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if logger != nil {
		logger.Info("notification worker registered")
	}
}
