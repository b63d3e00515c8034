package repository

import (
	"context"
	"time"

	"finwatch/internal/models"
)

// RefreshTokenRepository defines the interface for refresh token operations
type RefreshTokenRepository interface {
	Repository
	Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUserID(ctx context.Context, userID int64) error
	// DeleteExpired removes lapsed tokens and returns how many were purged.
	DeleteExpired(ctx context.Context) (int64, error)
}
