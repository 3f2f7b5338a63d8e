// Package notify provides Notifier implementations: a zap-backed sink for
// headless runs and a fan-out sink that also pushes to connected clients.
package notify

import (
	"time"

	"go.uber.org/zap"

	"github.com/clawlab/companion/domain/entities"
	"github.com/clawlab/companion/domain/repositories"
)

// LogNotifier writes notifications to the structured log. It is the
// fallback sink when no client channel is wired.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a sink writing to logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

var _ repositories.Notifier = (*LogNotifier)(nil)

// Notify logs the notification at a level matching its kind. It never
// blocks and never panics.
func (n *LogNotifier) Notify(notification entities.Notification) {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	fields := []zap.Field{
		zap.String("kind", string(notification.Kind)),
		zap.String("title", notification.Title),
	}
	if notification.Description != "" {
		fields = append(fields, zap.String("description", notification.Description))
	}
	if notification.Code != "" {
		fields = append(fields, zap.String("code", notification.Code))
	}

	switch notification.Kind {
	case entities.NotificationError:
		n.logger.Warn("User notification", fields...)
	default:
		n.logger.Info("User notification", fields...)
	}
}
