package repository

import (
	"context"

	"finwatch/internal/models"
)

// ActivityLogRepository is the append-only sink for the security audit trail.
// There is deliberately no update or delete operation: entries are immutable
// once written, and accounts referenced by entries are only ever soft-deleted.
type ActivityLogRepository interface {
	Repository
	Create(ctx context.Context, entry *models.CreateActivityLogRequest) error
}
