package entities

import (
	"errors"
	"time"
)

// NotificationKind classifies a transient user-visible message.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationInfo    NotificationKind = "info"
	NotificationError   NotificationKind = "error"
)

// Stable error codes carried in Notification.Code. Clients match on these,
// never on the human-readable text.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeMissingFields      = "missing_fields"
	CodeNotAuthenticated   = "not_authenticated"
	CodeEmptyCart          = "empty_cart"
	CodeInvalidShipping    = "invalid_shipping"
	CodePaymentFailed      = "payment_failed"
	CodeNoDevices          = "no_devices"
	CodeNoModelSelected    = "no_model_selected"
	CodeConnectionFailed   = "connection_failed"
	CodeNotConnected       = "not_connected"
	CodePersistenceCorrupt = "persistence_corrupt"
)

// ErrCommandInFlight rejects a suspending command while another one is
// still running on the same core. It is returned to the caller only; the
// core's state, lastError and notifications are untouched.
var ErrCommandInFlight = errors.New("another command is already in flight")

// Notification is a fire-and-forget message surfaced to the user. Kind
// values for errors carry the stable taxonomy string in Code.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Code        string           `json:"code,omitempty"`
	Duration    time.Duration    `json:"duration,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}
