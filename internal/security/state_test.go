package security

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"finwatch/internal/config"
	"finwatch/internal/models"
	"finwatch/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecurityConfig() config.SecurityConfig {
	return config.SecurityConfig{
		MaxFailedAttempts:    3,
		BlockDuration:        30 * time.Minute,
		AnomalyBlockDuration: 60 * time.Minute,
		PasswordExpiry:       90 * 24 * time.Hour,
		FailureDedupWindow:   2 * time.Second,
	}
}

func newTestState(t *testing.T, now time.Time) (*AccountSecurityState, *fakeUserRepo, *fakeActivityLog) {
	t.Helper()
	users := newFakeUserRepo()
	logs := &fakeActivityLog{}
	state := NewAccountSecurityState(users, NewAuditRecorder(logs), testSecurityConfig())
	state.now = func() time.Time { return now }
	return state, users, logs
}

func activeUser() *models.User {
	return &models.User{
		Username:      "jdoe",
		FullName:      "Jane Doe",
		Email:         "jdoe@example.com",
		AccountStatus: models.StatusActive,
		IsActive:      true,
	}
}

func TestCanLoginActiveAccount(t *testing.T) {
	state, users, _ := newTestState(t, time.Now())
	user := users.add(activeUser())

	ok, denied, err := state.CanLogin(context.Background(), user, models.ClientContext{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, denied)
}

func TestCanLoginDenials(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name          string
		mutate        func(u *models.User)
		expectedTitle string
		deactivated   bool
	}{
		{
			name: "blocked status",
			mutate: func(u *models.User) {
				u.AccountStatus = models.StatusBlocked
				u.BlockedUntil = testutil.Time(now.Add(20 * time.Minute))
			},
			expectedTitle: "Account Blocked",
		},
		{
			name:          "suspended status",
			mutate:        func(u *models.User) { u.AccountStatus = models.StatusSuspended },
			expectedTitle: "Account Suspended",
		},
		{
			name:          "terminated status",
			mutate:        func(u *models.User) { u.AccountStatus = models.StatusTerminated },
			expectedTitle: "Account Terminated",
		},
		{
			name:        "deactivated",
			mutate:      func(u *models.User) { u.IsActive = false },
			deactivated: true,
		},
		{
			name:          "manually locked",
			mutate:        func(u *models.User) { u.IsLocked = true },
			expectedTitle: "Account Locked",
		},
		{
			name:          "future block timer on active status",
			mutate:        func(u *models.User) { u.BlockedUntil = testutil.Time(now.Add(10 * time.Minute)) },
			expectedTitle: "Temporary Block Active",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, users, _ := newTestState(t, now)
			user := activeUser()
			tt.mutate(user)
			user = users.add(user)

			ok, denied, err := state.CanLogin(context.Background(), user, models.ClientContext{})
			require.NoError(t, err)
			assert.False(t, ok)
			require.NotNil(t, denied)
			assert.Equal(t, tt.expectedTitle, denied.Title)
			assert.Equal(t, tt.deactivated, denied.Deactivated)
		})
	}
}

func TestCanLoginAutoUnlock(t *testing.T) {
	now := time.Now()
	state, users, logs := newTestState(t, now)

	user := activeUser()
	user.AccountStatus = models.StatusBlocked
	user.FailedLoginAttempts = 3
	user.LockedAt = testutil.Time(now.Add(-35 * time.Minute))
	user.LockedBy = testutil.String(models.LockedBySystem)
	user.LockedReason = testutil.String("Account automatically blocked after 3 consecutive failed authentication attempts")
	user.BlockedUntil = testutil.Time(now.Add(-5 * time.Minute))
	user = users.add(user)

	ok, denied, err := state.CanLogin(context.Background(), user, models.ClientContext{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, denied)

	assert.Equal(t, models.StatusActive, user.AccountStatus)
	assert.Equal(t, 0, user.FailedLoginAttempts)
	assert.Nil(t, user.BlockedUntil)
	assert.Nil(t, user.LockedReason)

	stored := users.get(user.ID)
	assert.Equal(t, models.StatusActive, stored.AccountStatus)
	assert.Equal(t, 0, stored.FailedLoginAttempts)

	require.Len(t, logs.byType(models.ActivityAccountAutoUnlocked), 1)

	// Second call after expiry is a no-op transition
	ok, denied, err = state.CanLogin(context.Background(), user, models.ClientContext{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, denied)
	assert.Len(t, logs.byType(models.ActivityAccountAutoUnlocked), 1)
}

func TestRecordFailedAttemptBelowThreshold(t *testing.T) {
	state, users, logs := newTestState(t, time.Now())
	user := users.add(activeUser())

	outcome, err := state.RecordFailedAttempt(context.Background(), user, models.ClientContext{}, nil)
	require.NoError(t, err)

	assert.False(t, outcome.Blocked)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, 2, outcome.Remaining)
	assert.Equal(t, models.StatusActive, users.get(user.ID).AccountStatus)
	assert.Len(t, logs.byType(models.ActivityLoginFailed), 1)
	assert.Empty(t, logs.byType(models.ActivityAccountBlocked))
}

func TestRecordFailedAttemptBlocksAtThreshold(t *testing.T) {
	now := time.Now()
	state, users, logs := newTestState(t, now)

	user := activeUser()
	user.FailedLoginAttempts = 2
	user = users.add(user)

	outcome, err := state.RecordFailedAttempt(context.Background(), user, models.ClientContext{}, nil)
	require.NoError(t, err)

	assert.True(t, outcome.Blocked)
	assert.Equal(t, 3, outcome.Attempts)
	require.NotNil(t, outcome.BlockedUntil)
	assert.WithinDuration(t, now.Add(30*time.Minute), *outcome.BlockedUntil, time.Second)

	stored := users.get(user.ID)
	assert.Equal(t, models.StatusBlocked, stored.AccountStatus)
	assert.Equal(t, 3, stored.FailedLoginAttempts)
	require.NotNil(t, stored.LockedBy)
	assert.Equal(t, models.LockedBySystem, *stored.LockedBy)
	require.NotNil(t, stored.LockedReason)
	assert.Contains(t, *stored.LockedReason, "3 consecutive failed authentication attempts")

	assert.Len(t, logs.byType(models.ActivityAccountBlocked), 1)
}

func TestRecordFailedAttemptAnomalyDoublesBlock(t *testing.T) {
	now := time.Now()
	state, users, _ := newTestState(t, now)

	user := activeUser()
	user.FailedLoginAttempts = 2
	user = users.add(user)

	outcome, err := state.RecordFailedAttempt(context.Background(), user, models.ClientContext{},
		[]string{FlagIPChangeSignificant})
	require.NoError(t, err)

	assert.True(t, outcome.Blocked)
	require.NotNil(t, outcome.BlockedUntil)
	assert.WithinDuration(t, now.Add(60*time.Minute), *outcome.BlockedUntil, time.Second)

	stored := users.get(user.ID)
	require.NotNil(t, stored.LockedReason)
	assert.Contains(t, *stored.LockedReason, FlagIPChangeSignificant)
	assert.Contains(t, *stored.LockedReason, "|")
}

func TestRecordFailedAttemptConcurrent(t *testing.T) {
	state, users, _ := newTestState(t, time.Now())
	user := users.add(activeUser())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clone := *user
			_, err := state.RecordFailedAttempt(context.Background(), &clone, models.ClientContext{}, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// No lost update: both increments land
	assert.Equal(t, 2, users.get(user.ID).FailedLoginAttempts)
}

func TestRecordSuccessResetsState(t *testing.T) {
	now := time.Now()
	state, users, logs := newTestState(t, now)

	user := activeUser()
	user.FailedLoginAttempts = 2
	user = users.add(user)

	client := models.ClientContext{IPPublic: "203.0.113.10", Browser: "Google Chrome"}
	require.NoError(t, state.RecordSuccess(context.Background(), user, client))

	stored := users.get(user.ID)
	assert.Equal(t, 0, stored.FailedLoginAttempts)
	assert.Equal(t, models.StatusActive, stored.AccountStatus)
	require.NotNil(t, stored.FirstLoginAt)
	require.NotNil(t, stored.LastLoginAt)
	assert.Equal(t, 1, stored.TotalLoginCount)
	assert.Equal(t, client, stored.LastLogin)
	assert.Equal(t, client, stored.CurrentSession)

	entries := logs.byType(models.ActivityLogin)
	require.Len(t, entries, 1)
	assert.Equal(t, true, entries[0].Data["first_login"])

	// A second login is no longer a first login
	require.NoError(t, state.RecordSuccess(context.Background(), user, client))
	entries = logs.byType(models.ActivityLogin)
	require.Len(t, entries, 2)
	assert.Equal(t, false, entries[1].Data["first_login"])
	assert.Equal(t, 2, users.get(user.ID).TotalLoginCount)
}

func TestAdminTransitionValidation(t *testing.T) {
	state, users, _ := newTestState(t, time.Now())
	admin := users.add(&models.User{Username: "admin", IsAdmin: true, AccountStatus: models.StatusActive, IsActive: true})
	user := users.add(activeUser())

	err := state.AdminTransition(context.Background(), user, admin, models.AccountStatus("frozen"), "reason", nil)
	assert.Error(t, err)

	err = state.AdminTransition(context.Background(), user, admin, models.StatusSuspended, "   ", nil)
	assert.Error(t, err)
}

func TestAdminTransitionTerminate(t *testing.T) {
	state, users, logs := newTestState(t, time.Now())
	admin := users.add(&models.User{Username: "admin", IsAdmin: true, AccountStatus: models.StatusActive, IsActive: true})
	user := users.add(activeUser())

	err := state.AdminTransition(context.Background(), user, admin, models.StatusTerminated, "policy violation", nil)
	require.NoError(t, err)

	stored := users.get(user.ID)
	assert.Equal(t, models.StatusTerminated, stored.AccountStatus)
	assert.False(t, stored.IsActive)
	require.NotNil(t, stored.BlockedBy)
	assert.Equal(t, admin.ID, *stored.BlockedBy)

	ok, denied, err := state.CanLogin(context.Background(), user, models.ClientContext{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "Account Terminated", denied.Title)

	entries := logs.byType(models.ActivityAccountTerminated)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].PerformedBy)
	assert.Equal(t, admin.ID, *entries[0].PerformedBy)
}

func TestAdminTransitionUnblock(t *testing.T) {
	state, users, logs := newTestState(t, time.Now())
	admin := users.add(&models.User{Username: "admin", IsAdmin: true, AccountStatus: models.StatusActive, IsActive: true})

	user := activeUser()
	user.AccountStatus = models.StatusSuspended
	user.FailedLoginAttempts = 3
	user.LockedReason = testutil.String("suspended pending review")
	user = users.add(user)

	err := state.AdminTransition(context.Background(), user, admin, models.StatusActive, "review complete", nil)
	require.NoError(t, err)

	stored := users.get(user.ID)
	assert.Equal(t, models.StatusActive, stored.AccountStatus)
	assert.Equal(t, 0, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockedReason)
	assert.Len(t, logs.byType(models.ActivityAccountUnblocked), 1)
}

func TestNeedsPasswordChange(t *testing.T) {
	now := time.Now()
	state, _, _ := newTestState(t, now)

	fresh := activeUser()
	fresh.CreatedAt = now.Add(-10 * 24 * time.Hour)
	assert.False(t, state.NeedsPasswordChange(fresh))

	stale := activeUser()
	stale.CreatedAt = now.Add(-200 * 24 * time.Hour)
	stale.PasswordChangedAt = testutil.Time(now.Add(-91 * 24 * time.Hour))
	assert.True(t, state.NeedsPasswordChange(stale))

	neverChanged := activeUser()
	neverChanged.CreatedAt = now.Add(-91 * 24 * time.Hour)
	assert.True(t, state.NeedsPasswordChange(neverChanged))
}

func TestBlockReasonFormat(t *testing.T) {
	plain := blockReason(3, nil)
	assert.Equal(t, "Account automatically blocked after 3 consecutive failed authentication attempts", plain)
	assert.False(t, strings.Contains(plain, "|"))

	flagged := blockReason(3, []string{FlagBrowserChange, FlagPlatformChange})
	assert.Contains(t, flagged, "Suspicious activity detected")
	assert.Contains(t, flagged, "Risk level: medium")
	assert.Contains(t, flagged, " | ")
}
