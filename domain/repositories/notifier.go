package repositories

import "github.com/clawlab/companion/domain/entities"

// Notifier is the append-only sink the cores use for transient
// user-visible messages. Implementations must not block and must not
// panic; delivery is best effort.
type Notifier interface {
	Notify(n entities.Notification)
}
