package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"finwatch/internal/models"
	"finwatch/internal/repository"
)

type activityLogRepository struct {
	repository.BaseRepository
}

// NewActivityLogRepository creates a new PostgreSQL activity log repository
func NewActivityLogRepository(db *sql.DB) repository.ActivityLogRepository {
	return &activityLogRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.CreateActivityLogRequest) error {
	var data interface{}
	if entry.Data != nil {
		encoded, err := json.Marshal(entry.Data)
		if err != nil {
			return err
		}
		data = string(encoded)
	}

	result := entry.ActionResult
	if result == "" {
		result = models.ResultSuccess
	}

	query := `
		INSERT INTO user_activity_logs (
			user_id, activity_type, activity_description, activity_data,
			ip_address_private, ip_address_public, browser, browser_version,
			platform, user_agent, performed_by, action_result, error_message,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err := r.DB().ExecContext(ctx, query,
		entry.UserID,
		entry.ActivityType,
		entry.Description,
		data,
		entry.Client.IPPrivate,
		entry.Client.IPPublic,
		entry.Client.Browser,
		entry.Client.BrowserVersion,
		entry.Client.Platform,
		entry.Client.UserAgent,
		entry.PerformedBy,
		result,
		entry.ErrorMessage,
		time.Now(),
	)
	return err
}
