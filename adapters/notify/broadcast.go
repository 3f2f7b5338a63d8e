package notify

import (
	"time"

	"go.uber.org/zap"

	"github.com/clawlab/companion/domain/entities"
	"github.com/clawlab/companion/domain/repositories"
)

// Broadcaster pushes a notification to connected clients. The WebSocket
// hub satisfies this.
type Broadcaster interface {
	BroadcastNotification(n entities.Notification)
}

// BroadcastNotifier fans a notification out to connected clients and the
// structured log. Delivery to clients is best effort.
type BroadcastNotifier struct {
	broadcaster Broadcaster
	log         *LogNotifier
}

// NewBroadcastNotifier creates a sink pushing to broadcaster and logging
// through logger.
func NewBroadcastNotifier(broadcaster Broadcaster, logger *zap.Logger) *BroadcastNotifier {
	return &BroadcastNotifier{
		broadcaster: broadcaster,
		log:         NewLogNotifier(logger),
	}
}

var _ repositories.Notifier = (*BroadcastNotifier)(nil)

func (n *BroadcastNotifier) Notify(notification entities.Notification) {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	n.log.Notify(notification)
	n.broadcaster.BroadcastNotification(notification)
}
