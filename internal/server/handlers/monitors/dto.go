package monitors

import (
	"time"

	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/internal/health"
)

// StartRequest represents the request payload for starting a monitor.
// Unset tuning fields inherit the service defaults.
type StartRequest struct {
	DeploymentID uuid.UUID `json:"deployment_id" validate:"required"`

	IntervalSeconds     int    `json:"interval_seconds,omitempty"      validate:"omitempty,min=1,max=3600"`
	ProbeTimeoutSeconds int    `json:"probe_timeout_seconds,omitempty" validate:"omitempty,min=1,max=300"`
	ExpectedStatus      int    `json:"expected_status,omitempty"       validate:"omitempty,min=100,max=599"`
	FailureThreshold    int    `json:"failure_threshold,omitempty"     validate:"omitempty,min=1,max=100"`
	AutoRollback        bool   `json:"auto_rollback"`
	Endpoint            string `json:"endpoint,omitempty"              validate:"omitempty,url"`
}

// MonitorResponse acknowledges a started monitor.
type MonitorResponse struct {
	DeploymentID uuid.UUID `json:"deployment_id"`
	Status       string    `json:"status"`
}

// MetricsResponse represents a monitor's accumulated metrics.
type MetricsResponse struct {
	DeploymentID          uuid.UUID `json:"deployment_id"`
	Status                string    `json:"status"`
	UptimePercent         float64   `json:"uptime_percent"`
	AverageResponseTimeMS int64     `json:"average_response_time_ms"`
	TotalChecks           int       `json:"total_checks"`
	SuccessCount          int       `json:"success_count"`
	ErrorCount            int       `json:"error_count"`
	ConsecutiveFailures   int       `json:"consecutive_failures"`
	LastCheckedAt         time.Time `json:"last_checked_at"`
}

// CheckResponse represents one historical health check.
type CheckResponse struct {
	Status         string    `json:"status"`
	ResponseTimeMS int64     `json:"response_time_ms"`
	CheckedAt      time.Time `json:"checked_at"`
	Error          string    `json:"error,omitempty"`
}

func newMetricsResponse(metrics *health.Metrics) MetricsResponse {
	return MetricsResponse{
		DeploymentID:          metrics.DeploymentID,
		Status:                string(metrics.Status),
		UptimePercent:         metrics.UptimePercent,
		AverageResponseTimeMS: metrics.AverageResponseTime.Milliseconds(),
		TotalChecks:           metrics.TotalChecks,
		SuccessCount:          metrics.SuccessCount,
		ErrorCount:            metrics.ErrorCount,
		ConsecutiveFailures:   metrics.ConsecutiveFailures,
		LastCheckedAt:         metrics.LastCheckedAt,
	}
}
