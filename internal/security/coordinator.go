// Package security implements the account security state machine: the
// status lifecycle, the failed-attempt counter with auto-blocking and lazy
// auto-unlock, login anomaly heuristics and the audit trail that accompanies
// every security-relevant transition.
package security

import (
	"context"
	"errors"
	"log"
	"time"

	"finwatch/internal/config"
	"finwatch/internal/models"
	"finwatch/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned whether the identifier does not exist or
// the password is wrong. The wording is identical in both cases so callers
// cannot distinguish them.
var ErrInvalidCredentials = errors.New("These credentials do not match our records.")

// BlockNotifier sends the owner a notification when their account gets
// auto-blocked. Implemented by the email service; may be nil.
type BlockNotifier interface {
	SendAccountBlockedEmail(to, username, reason, unlockTime string) error
}

// Coordinator orchestrates one login attempt end to end. It is the only
// entry point external callers use to authenticate.
type Coordinator struct {
	users    repository.UserRepository
	state    *AccountSecurityState
	audit    *AuditRecorder
	dedup    *FailureDeduper
	notifier BlockNotifier
	cfg      config.SecurityConfig
	now      func() time.Time
}

// NewCoordinator creates a new authentication coordinator
func NewCoordinator(users repository.UserRepository, state *AccountSecurityState, audit *AuditRecorder, notifier BlockNotifier, cfg config.SecurityConfig) *Coordinator {
	return &Coordinator{
		users:    users,
		state:    state,
		audit:    audit,
		dedup:    NewFailureDeduper(cfg.FailureDedupWindow),
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Attempt runs a full login attempt: account resolution, eligibility check
// with lazy auto-unlock, password verification, failure accounting and
// success recording. It returns the authenticated user, or
// ErrInvalidCredentials / *LoginDenied.
func (c *Coordinator) Attempt(ctx context.Context, identifier, password string, client models.ClientContext) (*models.User, error) {
	user, err := c.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, repository.ErrNotFound) {
			// Logged account-less for attack-pattern visibility
			c.audit.Record(ctx, &models.CreateActivityLogRequest{
				ActivityType: models.ActivityUnknownIdentifier,
				Description:  "Failed login attempt for unknown identifier",
				Data: map[string]interface{}{
					"identifier": identifier,
				},
				Client:       client,
				ActionResult: models.ResultFailed,
			})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	eligible, denied, err := c.state.CanLogin(ctx, user, client)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, &LoginDenied{
			Status:  user.AccountStatus,
			Message: c.deniedMessage(ctx, user, denied),
		}
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		flags := DetectAnomalies(user, client, c.now())
		if c.dedup.Allow(user.ID, client.IPPublic) {
			outcome, err := c.state.RecordFailedAttempt(ctx, user, client, flags)
			if err != nil {
				log.Printf("WARNING: Failed to record failed login attempt for user %d: %v", user.ID, err)
			} else if outcome.Blocked {
				c.notifyBlocked(user)
			}
		}
		return nil, ErrInvalidCredentials
	}

	if err := c.state.RecordSuccess(ctx, user, client); err != nil {
		return nil, err
	}

	return user, nil
}

// notifyBlocked emails the account owner about the auto-block. Best effort,
// never blocks the login response.
func (c *Coordinator) notifyBlocked(user *models.User) {
	if c.notifier == nil {
		return
	}
	reason := ""
	if user.LockedReason != nil {
		reason = *user.LockedReason
	}
	unlockTime := ""
	if user.BlockedUntil != nil {
		unlockTime = user.BlockedUntil.Format("02 Jan 2006, 15:04")
	}
	go func() {
		if err := c.notifier.SendAccountBlockedEmail(user.Email, user.Username, reason, unlockTime); err != nil {
			log.Printf("WARNING: Failed to send account blocked email to %s: %v", user.Email, err)
		}
	}()
}

// deniedMessage resolves the blocking admin, when one is recorded, and builds
// the detailed denial message.
func (c *Coordinator) deniedMessage(ctx context.Context, user *models.User, denied *DeniedReason) string {
	var admin *models.User
	if user.BlockedBy != nil {
		blocker, err := c.users.GetByID(ctx, *user.BlockedBy)
		if err != nil {
			log.Printf("WARNING: Failed to resolve blocking admin %d: %v", *user.BlockedBy, err)
		} else {
			admin = blocker
		}
	}
	return BuildDeniedMessage(user, denied, admin, c.cfg.MaxFailedAttempts, c.now())
}
