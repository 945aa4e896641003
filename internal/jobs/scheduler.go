package jobs

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/sellerdesk/sellerdesk-backend/internal/config"
	"github.com/sellerdesk/sellerdesk-backend/internal/services"
)

// Scheduler owns the background cron jobs: Shopee token keep-alive and
// the webhook retry dispatcher. Specs come from config and use the
// six-field form with a seconds column.
type Scheduler struct {
	cfg          *config.Config
	integrations *services.IntegrationService
	webhooks     *services.WebhookService
	cron         *cron.Cron
}

func NewScheduler(cfg *config.Config, integrations *services.IntegrationService, webhooks *services.WebhookService) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		integrations: integrations,
		webhooks:     webhooks,
		cron:         cron.New(cron.WithSeconds()),
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.TokenRefreshSpec, s.refreshTokens); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.WebhookRetrySpec, s.retryWebhooks); err != nil {
		return err
	}

	// Tokens may already be near expiry after a restart, so check once
	// right away instead of waiting for the first tick.
	go s.refreshTokens()

	s.cron.Start()
	slog.Info("Background jobs started",
		"token_refresh_spec", s.cfg.TokenRefreshSpec,
		"webhook_retry_spec", s.cfg.WebhookRetrySpec)
	return nil
}

// Stop halts scheduling and blocks until in-flight jobs return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("Background jobs stopped")
}

func (s *Scheduler) refreshTokens() {
	s.integrations.RefreshExpiring(s.cfg.TokenRefreshWindow)
}

func (s *Scheduler) retryWebhooks() {
	s.webhooks.RetryDue()
}
