package usecase

import (
	"sync"

	"github.com/clawlab/companion/domain/entities"
)

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	notes []entities.Notification
}

func (r *recordingNotifier) Notify(n entities.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recordingNotifier) all() []entities.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.Notification, len(r.notes))
	copy(out, r.notes)
	return out
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notes)
}

func (r *recordingNotifier) last() (entities.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return entities.Notification{}, false
	}
	return r.notes[len(r.notes)-1], true
}

func (r *recordingNotifier) countKind(kind entities.NotificationKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, note := range r.notes {
		if note.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recordingNotifier) countCode(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, note := range r.notes {
		if note.Code == code {
			n++
		}
	}
	return n
}

// always returns a fixed outcome for the simulated randomness.
func always(v float64) func() float64 {
	return func() float64 { return v }
}
