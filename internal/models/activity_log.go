package models

import (
	"time"
)

// ActivityType identifies the kind of event an activity log entry records.
// The set is open: admin tooling may introduce new types without a migration.
type ActivityType string

const (
	ActivityLogin               ActivityType = "login"
	ActivityLogout              ActivityType = "logout"
	ActivityLoginFailed         ActivityType = "login_failed"
	ActivityPasswordChanged     ActivityType = "password_changed"
	ActivityPasswordReset       ActivityType = "password_reset"
	ActivityProfileUpdated      ActivityType = "profile_updated"
	ActivityAccountBlocked      ActivityType = "account_blocked"
	ActivityAccountBlockedAdmin ActivityType = "account_blocked_by_admin"
	ActivityAccountSuspended    ActivityType = "account_suspended"
	ActivityAccountTerminated   ActivityType = "account_terminated"
	ActivityAccountUnblocked    ActivityType = "account_unblocked"
	ActivityAccountAutoUnlocked ActivityType = "account_auto_unlocked"
	ActivityUserCreated         ActivityType = "user_created"
	ActivityUserDeleted         ActivityType = "user_deleted"
	ActivityUnknownIdentifier   ActivityType = "login_failed_unknown_identifier"
)

// ActionResult classifies the outcome of the logged activity
type ActionResult string

const (
	ResultSuccess ActionResult = "success"
	ResultFailed  ActionResult = "failed"
	ResultError   ActionResult = "error"
)

// ActivityLogEntry is one immutable row of the security audit trail.
// Entries are append-only: there is no updated_at and no delete path.
type ActivityLogEntry struct {
	ID           int64         `json:"id"`
	UserID       *int64        `json:"user_id"`
	ActivityType ActivityType  `json:"activity_type"`
	Description  string        `json:"description"`
	Data         string        `json:"data"` // JSON payload of context-dependent metadata
	Client       ClientContext `json:"client"`
	PerformedBy  *int64        `json:"performed_by,omitempty"`
	ActionResult ActionResult  `json:"action_result"`
	ErrorMessage *string       `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// CreateActivityLogRequest carries the fields for a new audit entry
type CreateActivityLogRequest struct {
	UserID       *int64
	ActivityType ActivityType
	Description  string
	Data         map[string]interface{}
	Client       ClientContext
	PerformedBy  *int64
	ActionResult ActionResult
	ErrorMessage *string
}
