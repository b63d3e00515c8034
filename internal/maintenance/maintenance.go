// Package maintenance runs the scheduled token hygiene jobs.
package maintenance

import (
	"context"
	"fmt"
	"log"

	"finwatch/internal/config"
	"finwatch/internal/repository"

	"github.com/robfig/cron/v3"
)

// Manager schedules the purge of expired refresh tokens and used or expired
// password reset tokens. Account auto-unlock is deliberately not a job here:
// it happens lazily on access checks.
type Manager struct {
	cfg               config.MaintenanceConfig
	refreshTokenRepo  repository.RefreshTokenRepository
	passwordResetRepo repository.PasswordResetRepository
	cron              *cron.Cron
}

// NewManager creates a new maintenance manager
func NewManager(cfg config.MaintenanceConfig, refreshTokenRepo repository.RefreshTokenRepository, passwordResetRepo repository.PasswordResetRepository) *Manager {
	// Create a new cron scheduler with seconds disabled
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
	)))

	return &Manager{
		cfg:               cfg,
		refreshTokenRepo:  refreshTokenRepo,
		passwordResetRepo: passwordResetRepo,
		cron:              c,
	}
}

// PurgeTokens removes expired refresh tokens and spent reset tokens
func (m *Manager) PurgeTokens(ctx context.Context) error {
	refreshCount, err := m.refreshTokenRepo.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge refresh tokens: %w", err)
	}

	resetCount, err := m.passwordResetRepo.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge password reset tokens: %w", err)
	}

	log.Printf("Token purge removed %d refresh tokens and %d password reset tokens", refreshCount, resetCount)
	return nil
}

// StartScheduler runs the purge job on the configured schedule until the
// context is cancelled.
func (m *Manager) StartScheduler(ctx context.Context) error {
	if !m.cfg.Enabled {
		log.Println("Maintenance scheduler is disabled")
		return nil
	}

	if m.cfg.Schedule == "" {
		return fmt.Errorf("maintenance has no schedule configured")
	}

	_, err := m.cron.AddFunc(m.cfg.Schedule, func() {
		log.Println("Running scheduled token purge")
		if err := m.PurgeTokens(ctx); err != nil {
			log.Printf("Error purging tokens: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule token purge: %w", err)
	}

	m.cron.Start()
	log.Printf("Maintenance scheduler started with schedule %s", m.cfg.Schedule)

	// Wait for context cancellation
	<-ctx.Done()
	log.Println("Stopping maintenance scheduler...")
	m.cron.Stop()

	return nil
}
