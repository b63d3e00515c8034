package security

import (
	"context"
	"log"

	"finwatch/internal/models"
	"finwatch/internal/repository"
)

// AuditRecorder writes activity log entries without letting a storage
// failure abort the security transition that produced them. Failed writes
// degrade to a process-log warning.
type AuditRecorder struct {
	logs repository.ActivityLogRepository
}

// NewAuditRecorder creates a new audit recorder
func NewAuditRecorder(logs repository.ActivityLogRepository) *AuditRecorder {
	return &AuditRecorder{logs: logs}
}

// Record appends one audit entry. Errors never propagate to the caller.
func (r *AuditRecorder) Record(ctx context.Context, entry *models.CreateActivityLogRequest) {
	if err := r.logs.Create(ctx, entry); err != nil {
		log.Printf("WARNING: Failed to write activity log entry (type=%s): %v", entry.ActivityType, err)
	}
}
