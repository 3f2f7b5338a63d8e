package usecase

import (
	"go.uber.org/zap"

	"github.com/clawlab/companion/domain/repositories"
)

// Registry holds the three process-wide state cores. Views reach the cores
// through this single capability instead of constructing their own.
type Registry struct {
	Session  *SessionService
	Cart     *CartService
	Hardware *HardwareService
}

// NewRegistry wires the three cores against the shared persistence store
// and notification sink. The hardware link deliberately gets no store: it
// is volatile and must be re-established every run.
func NewRegistry(store repositories.KeyValueStore, notifier repositories.Notifier, logger *zap.Logger) *Registry {
	return &Registry{
		Session:  NewSessionService(store, notifier, logger.Named("session")),
		Cart:     NewCartService(store, notifier, logger.Named("cart")),
		Hardware: NewHardwareService(notifier, logger.Named("hardware")),
	}
}
