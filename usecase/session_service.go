package usecase

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clawlab/companion/domain/entities"
	"github.com/clawlab/companion/domain/repositories"
	"github.com/clawlab/companion/internal/auth"
)

const userStorageKey = "user"

// The backend does not exist; commands simulate its latency so clients
// exercise their loading states the same way the shipped app will.
const (
	defaultLoginDelay    = 1 * time.Second
	defaultRegisterDelay = 1500 * time.Millisecond
	defaultUpdateDelay   = 1 * time.Second
)

// Login constructs the same synthetic account every time; there is no
// account database behind the companion.
const (
	syntheticUserID   = "123456"
	defaultUserName   = "John Doe"
	defaultUserAvatar = "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?auto=format&fit=facearea&facepad=2&w=256&h=256&q=80"
)

// SessionSnapshot is the Session core read model.
type SessionSnapshot struct {
	User            *entities.User `json:"user"`
	IsAuthenticated bool           `json:"is_authenticated"`
	IsMember        bool           `json:"is_member"`
	IsLoading       bool           `json:"is_loading"`
	LastError       string         `json:"last_error,omitempty"`
}

// SessionService owns the current user record, mediates authentication
// commands and serializes the record across restarts. It is a process-wide
// singleton; at most one suspending command runs at a time.
type SessionService struct {
	mu       sync.Mutex
	store    repositories.KeyValueStore
	notifier repositories.Notifier
	logger   *zap.Logger

	user      *entities.User
	isLoading bool
	lastError string

	loginDelay    time.Duration
	registerDelay time.Duration
	updateDelay   time.Duration
}

// NewSessionService creates the Session core and adopts a previously
// persisted user. A present-but-corrupt record is removed and the session
// starts unauthenticated with no notification.
func NewSessionService(store repositories.KeyValueStore, notifier repositories.Notifier, logger *zap.Logger) *SessionService {
	s := &SessionService{
		store:         store,
		notifier:      notifier,
		logger:        logger,
		loginDelay:    defaultLoginDelay,
		registerDelay: defaultRegisterDelay,
		updateDelay:   defaultUpdateDelay,
	}
	s.restore()
	return s
}

func (s *SessionService) restore() {
	raw, ok := s.store.Get(userStorageKey)
	if !ok {
		return
	}

	var user entities.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.Validate() != nil {
		s.logger.Warn("Persisted user record is corrupt, clearing it",
			zap.String("key", userStorageKey))
		s.store.Remove(userStorageKey)
		return
	}

	s.user = &user
	s.logger.Info("Restored persisted user",
		zap.String("userID", user.ID),
		zap.String("email", user.Email))
}

// Snapshot returns a consistent copy of the read model.
func (s *SessionService) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		User:            copyUser(s.user),
		IsAuthenticated: s.user != nil,
		IsMember:        s.user.IsMember(),
		IsLoading:       s.isLoading,
		LastError:       s.lastError,
	}
}

// Login authenticates with email and password. Both fields must be
// non-empty; any non-empty pair is accepted and yields the synthetic
// account. On success it returns a signed session token for the client to
// carry between requests.
func (s *SessionService) Login(email, password string) (string, error) {
	if err := s.begin(); err != nil {
		return "", err
	}
	time.Sleep(s.loginDelay)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.isLoading = false }()

	if email == "" || password == "" {
		return "", s.failLocked(entities.CodeInvalidCredentials, entities.ErrInvalidCredentials)
	}

	now := time.Now()
	user := &entities.User{
		ID:        syntheticUserID,
		Name:      defaultUserName,
		Email:     email,
		AvatarURL: defaultUserAvatar,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.user = user
	s.persistLocked()

	token, err := auth.GenerateSessionToken(user.ID, user.Email)
	if err != nil {
		// The login itself succeeded; the token is a client convenience.
		s.logger.Error("Failed to mint session token", zap.Error(err))
	}

	s.logger.Info("User logged in", zap.String("userID", user.ID), zap.String("email", email))
	s.notifier.Notify(entities.Notification{
		Kind:     entities.NotificationSuccess,
		Title:    "Successfully logged in!",
		Duration: 2 * time.Second,
	})
	return token, nil
}

// Register creates an account from name, email and password. All three
// fields must be non-empty.
func (s *SessionService) Register(name, email, password string) (string, error) {
	if err := s.begin(); err != nil {
		return "", err
	}
	time.Sleep(s.registerDelay)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.isLoading = false }()

	if name == "" || email == "" || password == "" {
		return "", s.failLocked(entities.CodeMissingFields, entities.ErrMissingFields)
	}

	now := time.Now()
	user := &entities.User{
		ID:        syntheticUserID,
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.user = user
	s.persistLocked()

	token, err := auth.GenerateSessionToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("Failed to mint session token", zap.Error(err))
	}

	s.logger.Info("User registered", zap.String("userID", user.ID), zap.String("email", email))
	s.notifier.Notify(entities.Notification{
		Kind:     entities.NotificationSuccess,
		Title:    "Account created successfully!",
		Duration: 2 * time.Second,
	})
	return token, nil
}

// Logout clears the in-memory user and the persisted record. It is
// synchronous and never fails.
func (s *SessionService) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	s.lastError = ""
	s.store.Remove(userStorageKey)

	s.logger.Info("User logged out")
	s.notifier.Notify(entities.Notification{
		Kind:  entities.NotificationInfo,
		Title: "You have been logged out",
	})
}

// UpdateProfile merges the patch onto the current user. Fields outside the
// patch schema are ignored.
func (s *SessionService) UpdateProfile(patch entities.ProfilePatch) error {
	if err := s.begin(); err != nil {
		return err
	}
	time.Sleep(s.updateDelay)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.isLoading = false }()

	if s.user == nil {
		return s.failLocked(entities.CodeNotAuthenticated, entities.ErrNotAuthenticated)
	}

	patch.Apply(s.user)
	s.persistLocked()

	s.logger.Info("Profile updated", zap.String("userID", s.user.ID))
	s.notifier.Notify(entities.Notification{
		Kind:     entities.NotificationSuccess,
		Title:    "Profile updated successfully!",
		Duration: 2 * time.Second,
	})
	return nil
}

// UpgradeMembership switches the user onto a membership plan. Paid tiers
// get an expiry one month out; basic is the free tier and clears it.
func (s *SessionService) UpgradeMembership(tier entities.MembershipTier) error {
	if err := s.begin(); err != nil {
		return err
	}
	time.Sleep(s.updateDelay)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.isLoading = false }()

	if s.user == nil {
		return s.failLocked(entities.CodeNotAuthenticated, entities.ErrNotAuthenticated)
	}
	if !tier.Valid() {
		return s.failLocked(entities.CodeMissingFields, entities.ErrInvalidTier)
	}

	s.user.MembershipTier = &tier
	if tier == entities.TierPremium || tier == entities.TierPro {
		expires := time.Now().AddDate(0, 1, 0)
		s.user.MembershipExpiresAt = &expires
	} else {
		s.user.MembershipExpiresAt = nil
	}
	s.user.UpdatedAt = time.Now()
	s.persistLocked()

	s.logger.Info("Membership updated",
		zap.String("userID", s.user.ID),
		zap.String("tier", string(tier)))
	s.notifier.Notify(entities.Notification{
		Kind:        entities.NotificationSuccess,
		Title:       "Membership updated!",
		Description: "You are now on the " + string(tier) + " plan",
		Duration:    2 * time.Second,
	})
	return nil
}

// SetCommandDelays overrides the simulated backend latency. Tests use this
// to run the suspension paths without real waits.
func (s *SessionService) SetCommandDelays(login, register, update time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginDelay = login
	s.registerDelay = register
	s.updateDelay = update
}

// begin claims the core's single in-flight slot and clears lastError.
func (s *SessionService) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isLoading {
		return entities.ErrCommandInFlight
	}
	s.isLoading = true
	s.lastError = ""
	return nil
}

// failLocked records the failure on the read model and emits the single
// error notification the command is allowed.
func (s *SessionService) failLocked(code string, err error) error {
	s.lastError = err.Error()
	s.notifier.Notify(entities.Notification{
		Kind:  entities.NotificationError,
		Title: err.Error(),
		Code:  code,
	})
	return err
}

func (s *SessionService) persistLocked() {
	data, err := json.Marshal(s.user)
	if err != nil {
		s.logger.Error("Failed to encode user record", zap.Error(err))
		return
	}
	s.store.Set(userStorageKey, string(data))
}

func copyUser(u *entities.User) *entities.User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.MembershipTier != nil {
		tier := *u.MembershipTier
		cp.MembershipTier = &tier
	}
	if u.MembershipExpiresAt != nil {
		expires := *u.MembershipExpiresAt
		cp.MembershipExpiresAt = &expires
	}
	return &cp
}
