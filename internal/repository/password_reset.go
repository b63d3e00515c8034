package repository

import (
	"context"

	"finwatch/internal/models"
)

// PasswordResetRepository defines the interface for password reset tokens
type PasswordResetRepository interface {
	Repository
	Create(ctx context.Context, userID int64) (*models.PasswordReset, error)
	GetByToken(ctx context.Context, token string) (*models.PasswordReset, error)
	MarkAsUsed(ctx context.Context, id int64) error
	// DeleteExpired removes lapsed or used tokens and returns the purge count.
	DeleteExpired(ctx context.Context) (int64, error)
}
