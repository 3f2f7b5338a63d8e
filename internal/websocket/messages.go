package websocket

import (
	"github.com/clawlab/companion/domain/entities"
	"github.com/clawlab/companion/usecase"
)

// Outbound message types pushed to subscribed clients.
const (
	MessageTypeNotification = "notification"
	MessageTypeTelemetry    = "telemetry"
)

// Envelope wraps every message pushed over the socket.
type Envelope struct {
	Type         string                    `json:"type"`
	Notification *entities.Notification    `json:"notification,omitempty"`
	Telemetry    *usecase.HardwareSnapshot `json:"telemetry,omitempty"`
}
