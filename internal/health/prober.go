package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ProbeResult is the raw outcome of one outbound check.
type ProbeResult struct {
	Healthy      bool
	StatusCode   int
	ResponseTime time.Duration
	Err          error
}

// Prober issues a single bounded probe against a health endpoint.
type Prober interface {
	Probe(ctx context.Context, endpoint string, timeout time.Duration, expectedStatus int) ProbeResult
}

// HTTPProber probes over HTTP GET. Success is a configurable expected
// status code; a timeout aborts the call and counts as a failed probe.
type HTTPProber struct {
	client *http.Client
	config Config
	logger *zap.Logger
}

func NewHTTPProber(config Config, logger *zap.Logger) *HTTPProber {
	return &HTTPProber{
		// per-request deadlines come from the probe context
		client: &http.Client{},
		config: config,
		logger: logger,
	}
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context, endpoint string, timeout time.Duration, expectedStatus int) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ProbeResult{Err: fmt.Errorf("%w: %w", ErrProbeFailed, err)}
	}

	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		p.logger.Debug("probe failed", zap.String("endpoint", endpoint), zap.Error(err))
		return ProbeResult{ResponseTime: elapsed, Err: fmt.Errorf("%w: %w", ErrProbeFailed, err)}
	}
	defer resp.Body.Close()

	return ProbeResult{
		Healthy:      resp.StatusCode == expectedStatus,
		StatusCode:   resp.StatusCode,
		ResponseTime: elapsed,
	}
}

// Verify performs the single post-deploy check of the pipeline's
// health_check stage.
func (p *HTTPProber) Verify(ctx context.Context, endpoint string) error {
	result := p.Probe(ctx, endpoint, p.config.ProbeTimeout, p.config.ExpectedStatus)
	if result.Err != nil {
		return result.Err
	}
	if !result.Healthy {
		return fmt.Errorf("%w: unexpected status %d", ErrProbeFailed, result.StatusCode)
	}
	return nil
}
