package security

import (
	"fmt"
	"strings"
	"time"

	"finwatch/internal/models"
)

// DeniedReason describes why CanLogin rejected an account.
type DeniedReason struct {
	// Title heads the denial message, e.g. "Account Blocked"
	Title string
	// Deactivated is set when the is_active switch is off, which gets a
	// fixed message instead of the detailed block breakdown
	Deactivated bool
}

// LoginDenied is the structured error returned when an account exists but is
// not eligible to log in. Unlike the generic credential error, the message is
// deliberately detailed: by this point the account's existence is no secret.
type LoginDenied struct {
	Status  models.AccountStatus
	Message string
}

func (e *LoginDenied) Error() string {
	return e.Message
}

const deactivatedMessage = "Your account has been deactivated. Please contact the administrator for assistance."

// BuildDeniedMessage composes the pipe-delimited denial message: title,
// reason, remaining time, the security policy line, attempt count and
// attribution. admin is the blocking admin when one is recorded, else nil.
func BuildDeniedMessage(user *models.User, reason *DeniedReason, admin *models.User, maxAttempts int, now time.Time) string {
	if reason.Deactivated {
		return deactivatedMessage
	}

	lines := []string{reason.Title}

	if user.LockedReason != nil && *user.LockedReason != "" {
		lines = append(lines, "Reason: "+*user.LockedReason)
	}

	if user.BlockedUntil != nil && now.Before(*user.BlockedUntil) {
		remaining := user.BlockedUntil.Sub(now)
		// Round up so a 30-minute block never reads as 29 minutes
		minutes := int((remaining + time.Minute - 1) / time.Minute)
		hours := minutes / 60
		minutes = minutes % 60

		display := fmt.Sprintf("%d minute(s)", minutes)
		if hours > 0 {
			display = fmt.Sprintf("%d hour(s) %d minute(s)", hours, minutes)
		}
		lines = append(lines, "Auto-unlock in: "+display)
		lines = append(lines, "Unlock time: "+user.BlockedUntil.Format("02 Jan 2006, 15:04"))
	}

	lines = append(lines, fmt.Sprintf("Security Policy: Maximum %d failed attempts allowed", maxAttempts))

	if user.FailedLoginAttempts > 0 {
		lines = append(lines, fmt.Sprintf("Your failed attempts: %d", user.FailedLoginAttempts))
	}

	if user.LockedBy != nil && *user.LockedBy == models.LockedBySystem {
		lines = append(lines, "Action: Automatic Security Lock")
	} else if admin != nil {
		position := "Administrator"
		if admin.Position != nil && *admin.Position != "" {
			position = *admin.Position
		}
		lines = append(lines, fmt.Sprintf("Blocked by: %s (%s)", admin.DisplayName(), position))
	}

	lines = append(lines, "For assistance, contact your system administrator")

	return strings.Join(lines, " | ")
}
