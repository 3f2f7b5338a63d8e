package entities

import (
	"errors"
	"time"
)

// Session domain errors.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingFields      = errors.New("all fields are required")
	ErrNotAuthenticated   = errors.New("you must be logged in")
	ErrInvalidTier        = errors.New("unknown membership tier")
)

// MembershipTier identifies a ClawLab membership plan.
type MembershipTier string

const (
	TierBasic   MembershipTier = "basic"
	TierPremium MembershipTier = "premium"
	TierPro     MembershipTier = "pro"
)

// Valid reports whether the tier is one of the known plans.
func (t MembershipTier) Valid() bool {
	return t == TierBasic || t == TierPremium || t == TierPro
}

// User represents the signed-in ClawLab account.
type User struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Email               string          `json:"email"`
	AvatarURL           string          `json:"avatar_url,omitempty"`
	MembershipTier      *MembershipTier `json:"membership_tier,omitempty"`
	MembershipExpiresAt *time.Time      `json:"membership_expires_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// IsMember reports whether the user holds a paid plan. Basic is the free
// tier and does not count as membership.
func (u *User) IsMember() bool {
	if u == nil || u.MembershipTier == nil {
		return false
	}
	return *u.MembershipTier == TierPremium || *u.MembershipTier == TierPro
}

// Validate validates the user record. A paid tier must carry an expiry.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Name == "" {
		return errors.New("name is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.MembershipTier != nil {
		if !u.MembershipTier.Valid() {
			return ErrInvalidTier
		}
		if (*u.MembershipTier == TierPremium || *u.MembershipTier == TierPro) && u.MembershipExpiresAt == nil {
			return errors.New("paid membership requires an expiry date")
		}
	}
	return nil
}

// ProfilePatch carries the fields updateProfile may change. Nil fields are
// left untouched; anything outside this set is ignored.
type ProfilePatch struct {
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Apply merges the patch onto the user and bumps UpdatedAt.
func (p ProfilePatch) Apply(u *User) {
	if p.Name != nil && *p.Name != "" {
		u.Name = *p.Name
	}
	if p.Email != nil && *p.Email != "" {
		u.Email = *p.Email
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	u.UpdatedAt = time.Now()
}
