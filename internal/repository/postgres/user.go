package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"finwatch/internal/models"
	"finwatch/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type userRepository struct {
	repository.BaseRepository
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

// userColumns is the shared SELECT list; scanUser must stay in sync with it.
const userColumns = `
	id, uuid, username, full_name, position, email, password, is_admin,
	password_changed_at, password_changed_by, password_change_count,
	first_login_at, last_login_at, total_login_count,
	COALESCE(last_login_ip_private, ''), COALESCE(last_login_ip_public, ''),
	COALESCE(last_login_browser, ''), COALESCE(last_login_browser_version, ''),
	COALESCE(last_login_platform, ''), COALESCE(last_login_user_agent, ''),
	COALESCE(current_ip_private, ''), COALESCE(current_ip_public, ''),
	COALESCE(current_browser, ''), COALESCE(current_browser_version, ''),
	COALESCE(current_platform, ''), COALESCE(current_user_agent, ''),
	failed_login_attempts, account_status, is_active, is_locked,
	locked_at, locked_by, locked_reason, blocked_by, blocked_until,
	deleted_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.UUID,
		&user.Username,
		&user.FullName,
		&user.Position,
		&user.Email,
		&user.Password,
		&user.IsAdmin,
		&user.PasswordChangedAt,
		&user.PasswordChangedBy,
		&user.PasswordChangeCount,
		&user.FirstLoginAt,
		&user.LastLoginAt,
		&user.TotalLoginCount,
		&user.LastLogin.IPPrivate,
		&user.LastLogin.IPPublic,
		&user.LastLogin.Browser,
		&user.LastLogin.BrowserVersion,
		&user.LastLogin.Platform,
		&user.LastLogin.UserAgent,
		&user.CurrentSession.IPPrivate,
		&user.CurrentSession.IPPublic,
		&user.CurrentSession.Browser,
		&user.CurrentSession.BrowserVersion,
		&user.CurrentSession.Platform,
		&user.CurrentSession.UserAgent,
		&user.FailedLoginAttempts,
		&user.AccountStatus,
		&user.IsActive,
		&user.IsLocked,
		&user.LockedAt,
		&user.LockedBy,
		&user.LockedReason,
		&user.BlockedBy,
		&user.BlockedUntil,
		&user.DeletedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.UUID == uuid.Nil {
		user.UUID = uuid.New()
	}
	if user.AccountStatus == "" {
		user.AccountStatus = models.StatusActive
	}

	query := `
		INSERT INTO users (
			uuid, username, full_name, position, email, password, is_admin,
			failed_login_attempts, account_status, is_active, is_locked,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, 0, $8, $9, false, $10, $10
		)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	err := r.DB().QueryRowContext(ctx, query,
		user.UUID,
		user.Username,
		user.FullName,
		user.Position,
		user.Email,
		user.Password,
		user.IsAdmin,
		user.AccountStatus,
		user.IsActive,
		now,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		if strings.Contains(pqErr.Constraint, "email") {
			return repository.ErrEmailExists
		}
		return repository.ErrUsernameExists
	}
	return err
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	// Check if new email conflicts with another account
	var count int
	err := r.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email = $1 AND id != $2 AND deleted_at IS NULL",
		user.Email,
		user.ID,
	).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return repository.ErrEmailExists
	}

	query := `
		UPDATE users
		SET full_name = $1,
			position = $2,
			email = $3,
			updated_at = $4
		WHERE id = $5 AND deleted_at IS NULL
		RETURNING updated_at`

	result := r.DB().QueryRowContext(ctx, query,
		user.FullName,
		user.Position,
		user.Email,
		time.Now(),
		user.ID,
	)
	if err := result.Scan(&user.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return repository.ErrUserNotFound
		}
		return err
	}
	return nil
}

func (r *userRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL`

	result, err := r.DB().ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return scanUser(r.DB().QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE uuid = $1 AND deleted_at IS NULL`
	return scanUser(r.DB().QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	// Username match wins over email when both exist.
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE (username = $1 OR email = $1) AND deleted_at IS NULL
		ORDER BY username = $1 DESC
		LIMIT 1`
	return scanUser(r.DB().QueryRowContext(ctx, query, identifier))
}

func (r *userRepository) List(ctx context.Context, filter repository.UserFilter) ([]models.User, error) {
	conditions := make([]string, 0)
	args := make([]interface{}, 0)
	argCount := 1

	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("(username ILIKE $%d OR full_name ILIKE $%d OR email ILIKE $%d)", argCount, argCount, argCount))
		args = append(args, "%"+*filter.Search+"%")
		argCount++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("account_status = $%d", argCount))
		args = append(args, *filter.Status)
		argCount++
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NULL`
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	if filter.OrderBy != "" {
		query += fmt.Sprintf(" ORDER BY %s", filter.OrderBy)
		if filter.OrderDesc {
			query += " DESC"
		}
	} else {
		query += " ORDER BY username ASC"
	}

	if filter.Limit != nil {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, *filter.Limit)
		argCount++
	}

	if filter.Offset != nil {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, *filter.Offset)
	}

	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) IncrementFailedAttempts(ctx context.Context, id int64) (int, error) {
	// Single-statement increment-and-read: concurrent callers serialize on the
	// row lock, so no two of them can observe the same counter value.
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING failed_login_attempts`

	var attempts int
	err := r.DB().QueryRowContext(ctx, query, id).Scan(&attempts)
	if err == sql.ErrNoRows {
		return 0, repository.ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

func (r *userRepository) ApplyStatus(ctx context.Context, id int64, upd repository.StatusUpdate) error {
	query := `
		UPDATE users
		SET account_status = $1,
			is_active = $2,
			is_locked = $3,
			locked_at = $4,
			locked_by = $5,
			locked_reason = $6,
			blocked_by = $7,
			blocked_until = $8,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $9 AND deleted_at IS NULL`

	result, err := r.DB().ExecContext(ctx, query,
		upd.Status,
		upd.IsActive,
		upd.IsLocked,
		upd.LockedAt,
		upd.LockedBy,
		upd.LockedReason,
		upd.BlockedBy,
		upd.BlockedUntil,
		id,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) ResetSecurityState(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET account_status = $1,
			failed_login_attempts = 0,
			locked_at = NULL,
			locked_by = NULL,
			locked_reason = NULL,
			blocked_by = NULL,
			blocked_until = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND deleted_at IS NULL`

	result, err := r.DB().ExecContext(ctx, query, models.StatusActive, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) RecordLogin(ctx context.Context, id int64, at time.Time, client models.ClientContext) error {
	query := `
		UPDATE users
		SET first_login_at = COALESCE(first_login_at, $1),
			last_login_at = $1,
			last_login_ip_private = $2,
			last_login_ip_public = $3,
			last_login_browser = $4,
			last_login_browser_version = $5,
			last_login_platform = $6,
			last_login_user_agent = $7,
			total_login_count = total_login_count + 1,
			current_ip_private = $2,
			current_ip_public = $3,
			current_browser = $4,
			current_browser_version = $5,
			current_platform = $6,
			current_user_agent = $7,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $8 AND deleted_at IS NULL`

	result, err := r.DB().ExecContext(ctx, query,
		at,
		client.IPPrivate,
		client.IPPublic,
		client.Browser,
		client.BrowserVersion,
		client.Platform,
		client.UserAgent,
		id,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdateCurrentSession(ctx context.Context, id int64, client models.ClientContext) error {
	query := `
		UPDATE users
		SET current_ip_private = $1,
			current_ip_public = $2,
			current_browser = $3,
			current_browser_version = $4,
			current_platform = $5,
			current_user_agent = $6
		WHERE id = $7 AND deleted_at IS NULL`

	_, err := r.DB().ExecContext(ctx, query,
		client.IPPrivate,
		client.IPPublic,
		client.Browser,
		client.BrowserVersion,
		client.Platform,
		client.UserAgent,
		id,
	)
	return err
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, hashedPassword, changedBy string) error {
	query := `
		UPDATE users
		SET password = $1,
			password_changed_at = CURRENT_TIMESTAMP,
			password_changed_by = $2,
			password_change_count = password_change_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND deleted_at IS NULL
		RETURNING password_changed_at`

	var changedAt time.Time
	err := r.DB().QueryRowContext(ctx, query, hashedPassword, changedBy, id).Scan(&changedAt)
	if err == sql.ErrNoRows {
		return repository.ErrUserNotFound
	}
	return err
}
