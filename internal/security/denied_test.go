package security

import (
	"testing"
	"time"

	"finwatch/internal/models"
	"finwatch/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func TestBuildDeniedMessageDeactivated(t *testing.T) {
	msg := BuildDeniedMessage(&models.User{}, &DeniedReason{Deactivated: true}, nil, 3, time.Now())
	assert.Equal(t, "Your account has been deactivated. Please contact the administrator for assistance.", msg)
}

func TestBuildDeniedMessageAutoBlock(t *testing.T) {
	now := time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)
	until := now.Add(90 * time.Minute)

	user := &models.User{
		FailedLoginAttempts: 3,
		LockedReason:        testutil.String("Account automatically blocked after 3 consecutive failed authentication attempts"),
		LockedBy:            testutil.String(models.LockedBySystem),
		BlockedUntil:        &until,
	}

	msg := BuildDeniedMessage(user, &DeniedReason{Title: "Account Blocked"}, nil, 3, now)

	expected := "Account Blocked" +
		" | Reason: Account automatically blocked after 3 consecutive failed authentication attempts" +
		" | Auto-unlock in: 1 hour(s) 30 minute(s)" +
		" | Unlock time: 11 Mar 2026, 15:30" +
		" | Security Policy: Maximum 3 failed attempts allowed" +
		" | Your failed attempts: 3" +
		" | Action: Automatic Security Lock" +
		" | For assistance, contact your system administrator"
	assert.Equal(t, expected, msg)
}

func TestBuildDeniedMessageRemainingTimeRoundsUp(t *testing.T) {
	now := time.Date(2026, 3, 11, 14, 0, 1, 0, time.UTC)
	until := time.Date(2026, 3, 11, 14, 30, 0, 0, time.UTC)

	user := &models.User{
		LockedBy:     testutil.String(models.LockedBySystem),
		BlockedUntil: &until,
	}

	// 29m59s remaining still reads as the full 30 minutes
	msg := BuildDeniedMessage(user, &DeniedReason{Title: "Account Blocked"}, nil, 3, now)
	assert.Contains(t, msg, "Auto-unlock in: 30 minute(s)")

	// 1h0m1s remaining rounds up into the next hour
	msg = BuildDeniedMessage(user, &DeniedReason{Title: "Account Blocked"}, nil, 3, until.Add(-61*time.Minute+59*time.Second))
	assert.Contains(t, msg, "Auto-unlock in: 1 hour(s) 1 minute(s)")
}

func TestBuildDeniedMessageAdminBlock(t *testing.T) {
	now := time.Now()
	admin := &models.User{FullName: "Alex Mercer", Position: testutil.String("Finance Manager")}
	user := &models.User{
		LockedReason: testutil.String("pending review"),
		LockedBy:     testutil.String("7"),
	}

	msg := BuildDeniedMessage(user, &DeniedReason{Title: "Account Suspended"}, admin, 3, now)

	assert.Contains(t, msg, "Account Suspended")
	assert.Contains(t, msg, "Reason: pending review")
	assert.Contains(t, msg, "Blocked by: Alex Mercer (Finance Manager)")
	assert.NotContains(t, msg, "Auto-unlock in:")
	assert.NotContains(t, msg, "Your failed attempts:")
}

func TestBuildDeniedMessageAdminWithoutPosition(t *testing.T) {
	admin := &models.User{Username: "boss"}
	user := &models.User{LockedBy: testutil.String("7")}

	msg := BuildDeniedMessage(user, &DeniedReason{Title: "Account Blocked"}, admin, 3, time.Now())
	assert.Contains(t, msg, "Blocked by: boss (Administrator)")
}
