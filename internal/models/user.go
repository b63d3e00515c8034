package models

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus represents the lifecycle status of a user account
type AccountStatus string

const (
	StatusActive     AccountStatus = "active"
	StatusBlocked    AccountStatus = "blocked"
	StatusSuspended  AccountStatus = "suspended"
	StatusTerminated AccountStatus = "terminated"
)

// Valid reports whether s is one of the known account statuses.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusBlocked, StatusSuspended, StatusTerminated:
		return true
	}
	return false
}

// Values stored in password_changed_by
const (
	PasswordChangedBySystem = "system"
	PasswordChangedByAdmin  = "admin"
	PasswordChangedBySelf   = "self"
)

// LockedBySystem is stored in locked_by when the auto-block path locks an account
const LockedBySystem = "system"

// User represents a user account together with its security state
type User struct {
	ID       int64     `json:"-"`
	UUID     uuid.UUID `json:"uuid"`
	Username string    `json:"username"`
	FullName string    `json:"full_name"`
	Position *string   `json:"position,omitempty"`
	Email    string    `json:"email"`
	Password string    `json:"-"`
	IsAdmin  bool      `json:"is_admin"`

	// Password bookkeeping
	PasswordChangedAt   *time.Time `json:"password_changed_at,omitempty"`
	PasswordChangedBy   *string    `json:"-"`
	PasswordChangeCount int        `json:"-"`

	// Login history
	FirstLoginAt    *time.Time    `json:"first_login_at,omitempty"`
	LastLoginAt     *time.Time    `json:"last_login_at,omitempty"`
	TotalLoginCount int           `json:"total_login_count"`
	LastLogin       ClientContext `json:"-"`

	// Current-session snapshot, refreshed on every authenticated request
	CurrentSession ClientContext `json:"-"`

	// Security & blocking state
	FailedLoginAttempts int           `json:"-"`
	AccountStatus       AccountStatus `json:"account_status"`
	IsActive            bool          `json:"is_active"`
	IsLocked            bool          `json:"is_locked"`
	LockedAt            *time.Time    `json:"locked_at,omitempty"`
	LockedBy            *string       `json:"-"`
	LockedReason        *string       `json:"locked_reason,omitempty"`
	BlockedBy           *int64        `json:"-"`
	BlockedUntil        *time.Time    `json:"blocked_until,omitempty"`

	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsBlocked reports whether the account currently sits in the blocked status.
func (u *User) IsBlocked() bool {
	return u.AccountStatus == StatusBlocked
}

// BlockExpired reports whether a temporary block exists and has already lapsed.
func (u *User) BlockExpired(now time.Time) bool {
	return u.AccountStatus == StatusBlocked && u.BlockedUntil != nil && now.After(*u.BlockedUntil)
}

// HasLoggedIn reports whether the account has ever completed a login.
func (u *User) HasLoggedIn() bool {
	return u.LastLoginAt != nil
}

// DisplayName returns the best human-readable name for messages and logs.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
