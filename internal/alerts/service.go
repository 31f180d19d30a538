package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pilotcd/pilotcd/internal/health"
	"go.uber.org/zap"
)

// Service delivers alerts. Every alert is logged; when a webhook URL is
// configured the alert is also POSTed there. Delivery is fire-and-forget
// from the caller's perspective.
type Service struct {
	client *http.Client
	config Config
	logger *zap.Logger
}

func NewService(config Config, logger *zap.Logger) *Service {
	return &Service{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
		logger: logger,
	}
}

// Notify implements health.AlertSink.
func (s *Service) Notify(ctx context.Context, alert health.Alert) error {
	log := s.logger.With(
		zap.String("deployment_id", alert.DeploymentID.String()),
		zap.String("project_id", alert.ProjectID.String()),
		zap.String("severity", string(alert.Severity)))

	if alert.Severity == health.SeverityCritical {
		log.Error("alert", zap.String("message", alert.Message))
	} else {
		log.Warn("alert", zap.String("message", alert.Message))
	}

	if s.config.WebhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}

	return nil
}
