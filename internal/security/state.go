package security

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"finwatch/internal/config"
	"finwatch/internal/models"
	"finwatch/internal/repository"
)

// AccountSecurityState is the single source of truth for whether an account
// may authenticate, and the only component that mutates status and lock
// fields. Everything else goes through it.
type AccountSecurityState struct {
	users repository.UserRepository
	audit *AuditRecorder
	cfg   config.SecurityConfig
	now   func() time.Time
}

// NewAccountSecurityState creates a new account security state service
func NewAccountSecurityState(users repository.UserRepository, audit *AuditRecorder, cfg config.SecurityConfig) *AccountSecurityState {
	return &AccountSecurityState{
		users: users,
		audit: audit,
		cfg:   cfg,
		now:   time.Now,
	}
}

// AttemptOutcome reports which branch a failed-attempt recording took.
type AttemptOutcome struct {
	Blocked      bool
	Attempts     int
	Remaining    int
	BlockedUntil *time.Time
}

// CanLogin evaluates the access invariant: active status, is_active set, not
// manually locked, no future block. If a temporary block has lapsed it first
// performs the auto-unlock transition, so the check itself is the unlock
// sweep. The user struct is updated in place to reflect any transition.
func (s *AccountSecurityState) CanLogin(ctx context.Context, user *models.User, client models.ClientContext) (bool, *DeniedReason, error) {
	now := s.now()

	if user.BlockExpired(now) {
		if err := s.users.ResetSecurityState(ctx, user.ID); err != nil {
			return false, nil, err
		}
		user.AccountStatus = models.StatusActive
		user.FailedLoginAttempts = 0
		user.LockedAt = nil
		user.LockedBy = nil
		user.LockedReason = nil
		user.BlockedBy = nil
		user.BlockedUntil = nil

		s.audit.Record(ctx, &models.CreateActivityLogRequest{
			UserID:       &user.ID,
			ActivityType: models.ActivityAccountAutoUnlocked,
			Description:  "Account automatically unlocked after block period expired",
			Data: map[string]interface{}{
				"unlocked_at": now.Format(time.RFC3339),
			},
			Client: client,
		})
	}

	if user.AccountStatus != models.StatusActive {
		return false, &DeniedReason{Title: statusTitle(user.AccountStatus)}, nil
	}
	if !user.IsActive {
		return false, &DeniedReason{Deactivated: true}, nil
	}
	if user.IsLocked {
		return false, &DeniedReason{Title: "Account Locked"}, nil
	}
	if user.BlockedUntil != nil && now.Before(*user.BlockedUntil) {
		return false, &DeniedReason{Title: "Temporary Block Active"}, nil
	}

	return true, nil, nil
}

// RecordFailedAttempt bumps the failure counter atomically and blocks the
// account once the threshold is reached. The block lasts twice as long when
// anomaly flags fired on this attempt.
func (s *AccountSecurityState) RecordFailedAttempt(ctx context.Context, user *models.User, client models.ClientContext, flags []string) (AttemptOutcome, error) {
	count, err := s.users.IncrementFailedAttempts(ctx, user.ID)
	if err != nil {
		return AttemptOutcome{}, err
	}
	user.FailedLoginAttempts = count

	if count < s.cfg.MaxFailedAttempts {
		remaining := s.cfg.MaxFailedAttempts - count
		s.audit.Record(ctx, &models.CreateActivityLogRequest{
			UserID:       &user.ID,
			ActivityType: models.ActivityLoginFailed,
			Description:  "Failed login attempt",
			Data: map[string]interface{}{
				"failed_attempts":    count,
				"remaining_attempts": remaining,
				"anomaly_flags":      flags,
				"risk_level":         string(ClassifyRisk(flags)),
			},
			Client:       client,
			ActionResult: models.ResultFailed,
		})
		return AttemptOutcome{Attempts: count, Remaining: remaining}, nil
	}

	now := s.now()
	duration := s.cfg.BlockDuration
	if len(flags) > 0 {
		duration = s.cfg.AnomalyBlockDuration
	}
	until := now.Add(duration)
	lockedBy := models.LockedBySystem
	reason := blockReason(count, flags)

	update := repository.StatusUpdate{
		Status:       models.StatusBlocked,
		IsActive:     user.IsActive,
		IsLocked:     user.IsLocked,
		LockedAt:     &now,
		LockedBy:     &lockedBy,
		LockedReason: &reason,
		BlockedUntil: &until,
	}
	if err := s.users.ApplyStatus(ctx, user.ID, update); err != nil {
		return AttemptOutcome{}, err
	}
	user.AccountStatus = models.StatusBlocked
	user.LockedAt = &now
	user.LockedBy = &lockedBy
	user.LockedReason = &reason
	user.BlockedUntil = &until

	s.audit.Record(ctx, &models.CreateActivityLogRequest{
		UserID:       &user.ID,
		ActivityType: models.ActivityAccountBlocked,
		Description:  fmt.Sprintf("Account automatically blocked after %d consecutive failed authentication attempts", count),
		Data: map[string]interface{}{
			"failed_attempts":        count,
			"blocked_until":          until.Format(time.RFC3339),
			"block_duration_minutes": int(duration.Minutes()),
			"anomaly_flags":          flags,
			"risk_level":             string(ClassifyRisk(flags)),
		},
		Client:       client,
		ActionResult: models.ResultFailed,
	})

	return AttemptOutcome{Blocked: true, Attempts: count, BlockedUntil: &until}, nil
}

// RecordSuccess resets the failure state and writes the login history update
// plus the current-session snapshot.
func (s *AccountSecurityState) RecordSuccess(ctx context.Context, user *models.User, client models.ClientContext) error {
	now := s.now()
	firstLogin := !user.HasLoggedIn()

	if err := s.users.ResetSecurityState(ctx, user.ID); err != nil {
		return err
	}
	if err := s.users.RecordLogin(ctx, user.ID, now, client); err != nil {
		return err
	}

	user.AccountStatus = models.StatusActive
	user.FailedLoginAttempts = 0
	user.LockedAt = nil
	user.LockedBy = nil
	user.LockedReason = nil
	user.BlockedBy = nil
	user.BlockedUntil = nil
	if user.FirstLoginAt == nil {
		user.FirstLoginAt = &now
	}
	user.LastLoginAt = &now
	user.LastLogin = client
	user.CurrentSession = client
	user.TotalLoginCount++

	s.audit.Record(ctx, &models.CreateActivityLogRequest{
		UserID:       &user.ID,
		ActivityType: models.ActivityLogin,
		Description:  "User logged in successfully",
		Data: map[string]interface{}{
			"first_login":       firstLogin,
			"total_login_count": user.TotalLoginCount,
		},
		Client: client,
	})

	return nil
}

// AdminTransition applies an admin-attributed status change. The target
// status must be valid and the reason non-empty; violations fail fast.
// Terminated additionally switches the account off entirely.
func (s *AccountSecurityState) AdminTransition(ctx context.Context, user, admin *models.User, target models.AccountStatus, reason string, until *time.Time) error {
	if !target.Valid() {
		return fmt.Errorf("invalid target status %q", target)
	}
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("a reason is required for status transitions")
	}

	now := s.now()

	if target == models.StatusActive {
		if err := s.users.ResetSecurityState(ctx, user.ID); err != nil {
			return err
		}
		user.AccountStatus = models.StatusActive
		user.FailedLoginAttempts = 0
		user.LockedAt = nil
		user.LockedBy = nil
		user.LockedReason = nil
		user.BlockedBy = nil
		user.BlockedUntil = nil

		s.audit.Record(ctx, &models.CreateActivityLogRequest{
			UserID:       &user.ID,
			ActivityType: models.ActivityAccountUnblocked,
			Description:  "Account unblocked by administrator",
			Data: map[string]interface{}{
				"reason": reason,
			},
			PerformedBy: &admin.ID,
		})
		return nil
	}

	lockedBy := strconv.FormatInt(admin.ID, 10)
	update := repository.StatusUpdate{
		Status:       target,
		IsActive:     target != models.StatusTerminated && user.IsActive,
		IsLocked:     user.IsLocked,
		LockedAt:     &now,
		LockedBy:     &lockedBy,
		LockedReason: &reason,
		BlockedBy:    &admin.ID,
		BlockedUntil: until,
	}
	if err := s.users.ApplyStatus(ctx, user.ID, update); err != nil {
		return err
	}
	user.AccountStatus = target
	user.IsActive = update.IsActive
	user.LockedAt = &now
	user.LockedBy = &lockedBy
	user.LockedReason = &reason
	user.BlockedBy = &admin.ID
	user.BlockedUntil = until

	activityType := models.ActivityAccountBlockedAdmin
	description := "Account blocked by administrator"
	switch target {
	case models.StatusSuspended:
		activityType = models.ActivityAccountSuspended
		description = "Account suspended by administrator"
	case models.StatusTerminated:
		activityType = models.ActivityAccountTerminated
		description = "Account terminated by administrator"
	}

	data := map[string]interface{}{
		"reason": reason,
	}
	if until != nil {
		data["blocked_until"] = until.Format(time.RFC3339)
	}
	s.audit.Record(ctx, &models.CreateActivityLogRequest{
		UserID:       &user.ID,
		ActivityType: activityType,
		Description:  description,
		Data:         data,
		PerformedBy:  &admin.ID,
	})

	return nil
}

// NeedsPasswordChange reports whether the password is older than the expiry
// policy. This is advisory only and never blocks a login.
func (s *AccountSecurityState) NeedsPasswordChange(user *models.User) bool {
	changedAt := user.CreatedAt
	if user.PasswordChangedAt != nil {
		changedAt = *user.PasswordChangedAt
	}
	return s.now().Sub(changedAt) > s.cfg.PasswordExpiry
}

// blockReason builds the locked_reason text stored with an auto-block. When
// anomaly flags fired, the pipe-joined form is surfaced verbatim in the
// denial message shown to the user.
func blockReason(count int, flags []string) string {
	base := fmt.Sprintf("Account automatically blocked after %d consecutive failed authentication attempts", count)
	if len(flags) == 0 {
		return base
	}
	return fmt.Sprintf("Suspicious activity detected (%s) | Risk level: %s | %s",
		strings.Join(flags, ", "), ClassifyRisk(flags), base)
}

func statusTitle(status models.AccountStatus) string {
	switch status {
	case models.StatusBlocked:
		return "Account Blocked"
	case models.StatusSuspended:
		return "Account Suspended"
	case models.StatusTerminated:
		return "Account Terminated"
	}
	return "Account Restricted"
}
