package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"time"

	"finwatch/internal/models"
	"finwatch/internal/repository"
)

// resetTokenTTL bounds how long a reset link stays valid
const resetTokenTTL = time.Hour

type passwordResetRepository struct {
	repository.BaseRepository
}

// NewPasswordResetRepository creates a new PostgreSQL password reset repository
func NewPasswordResetRepository(db *sql.DB) repository.PasswordResetRepository {
	return &passwordResetRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *passwordResetRepository) Create(ctx context.Context, userID int64) (*models.PasswordReset, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	token := base64.URLEncoding.EncodeToString(b)

	now := time.Now()
	reset := &models.PasswordReset{
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	}

	query := `
		INSERT INTO password_resets (user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.DB().QueryRowContext(ctx, query,
		reset.UserID,
		reset.Token,
		reset.ExpiresAt,
		reset.CreatedAt,
	).Scan(&reset.ID)
	if err != nil {
		return nil, err
	}
	return reset, nil
}

func (r *passwordResetRepository) GetByToken(ctx context.Context, token string) (*models.PasswordReset, error) {
	query := `
		SELECT id, user_id, token, expires_at, used_at, created_at
		FROM password_resets
		WHERE token = $1`

	reset := &models.PasswordReset{}
	err := r.DB().QueryRowContext(ctx, query, token).Scan(
		&reset.ID,
		&reset.UserID,
		&reset.Token,
		&reset.ExpiresAt,
		&reset.UsedAt,
		&reset.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrResetTokenInvalid
	}
	if err != nil {
		return nil, err
	}

	if reset.UsedAt != nil {
		return nil, repository.ErrResetTokenUsed
	}
	if time.Now().After(reset.ExpiresAt) {
		return nil, repository.ErrResetTokenExpired
	}
	return reset, nil
}

func (r *passwordResetRepository) MarkAsUsed(ctx context.Context, id int64) error {
	query := `UPDATE password_resets SET used_at = $1 WHERE id = $2 AND used_at IS NULL`

	result, err := r.DB().ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrResetTokenUsed
	}
	return nil
}

func (r *passwordResetRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM password_resets WHERE expires_at < $1 OR used_at IS NOT NULL`

	result, err := r.DB().ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
