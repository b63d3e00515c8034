package repository

import (
	"context"
	"time"

	"finwatch/internal/models"

	"github.com/google/uuid"
)

// StatusUpdate carries the full security-state write for a status transition.
// All lock metadata is written together so a transition is a single UPDATE.
type StatusUpdate struct {
	Status       models.AccountStatus
	IsActive     bool
	IsLocked     bool
	LockedAt     *time.Time
	LockedBy     *string
	LockedReason *string
	BlockedBy    *int64
	BlockedUntil *time.Time
}

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Repository
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	SoftDelete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// GetByIdentifier resolves an account by username or email, first match wins.
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	List(ctx context.Context, filter UserFilter) ([]models.User, error)

	// IncrementFailedAttempts atomically bumps the failure counter and returns
	// the new value. The increment and read happen in one statement so two
	// concurrent failures can never observe the same count.
	IncrementFailedAttempts(ctx context.Context, id int64) (int, error)

	// ApplyStatus writes a status transition plus its lock metadata.
	ApplyStatus(ctx context.Context, id int64, upd StatusUpdate) error

	// ResetSecurityState returns an account to active with a zero failure
	// counter and cleared lock metadata (auto-unlock and successful login).
	ResetSecurityState(ctx context.Context, id int64) error

	// RecordLogin updates the login history and current-session snapshot:
	// first_login_at when unset, last-login fields, total_login_count.
	RecordLogin(ctx context.Context, id int64, at time.Time, client models.ClientContext) error

	// UpdateCurrentSession refreshes only the current_* snapshot columns.
	UpdateCurrentSession(ctx context.Context, id int64, client models.ClientContext) error

	UpdatePassword(ctx context.Context, id int64, hashedPassword, changedBy string) error
}

// UserFilter defines the filter options for listing users
type UserFilter struct {
	Search    *string // Search by username, full name or email
	Status    *models.AccountStatus
	OrderBy   string
	OrderDesc bool
	Limit     *int
	Offset    *int
}
