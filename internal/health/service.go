package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/internal/events"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// monitor is the per-deployment recurring check process and its
// accumulated state. One active monitor per deployment.
type monitor struct {
	deploymentID uuid.UUID
	projectID    uuid.UUID
	cfg          MonitorConfig

	done     chan struct{}
	stopOnce sync.Once

	mu                  sync.Mutex
	status              Status
	consecutiveFailures int
	samples             []time.Duration
	totalChecks         int
	successCount        int
	errorCount          int
	lastCheckedAt       time.Time
	rollbackFired       bool
	sawRunning          bool
	startedAt           time.Time
}

func (m *monitor) stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// Handle refers to one active monitor.
type Handle struct {
	DeploymentID uuid.UUID

	stop func()
}

// Stop cancels the monitor. Safe to call more than once.
func (h *Handle) Stop() { h.stop() }

// Service owns the monitor registry and the retained check history.
type Service struct {
	repository *Repository
	source     DeploymentSource
	rollback   RollbackRequester
	alerts     AlertSink
	prober     Prober
	hub        *events.Hub
	metrics    *collector
	config     Config
	logger     *zap.Logger

	mu       sync.Mutex
	monitors map[uuid.UUID]*monitor

	subsMu    sync.RWMutex
	subs      map[uuid.UUID]map[uint64]func(CheckResult)
	nextSubID uint64

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

func NewService(
	repository *Repository,
	source DeploymentSource,
	rollback RollbackRequester,
	alerts AlertSink,
	prober Prober,
	hub *events.Hub,
	metrics *collector,
	config Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		repository: repository,
		source:     source,
		rollback:   rollback,
		alerts:     alerts,
		prober:     prober,
		hub:        hub,
		metrics:    metrics,
		config:     config,
		logger:     logger,

		monitors: make(map[uuid.UUID]*monitor),
		subs:     make(map[uuid.UUID]map[uint64]func(CheckResult)),
		shutdown: make(chan struct{}),
	}
}

// StartMonitoring begins periodic probing of a deployment. The first check
// fires immediately, not on the first interval tick.
func (s *Service) StartMonitoring(_ context.Context, deploymentID, projectID uuid.UUID, cfg MonitorConfig) (*Handle, error) {
	cfg = s.resolveConfig(cfg)

	m := &monitor{
		deploymentID: deploymentID,
		projectID:    projectID,
		cfg:          cfg,
		done:         make(chan struct{}),
		status:       StatusMonitoring,
		startedAt:    time.Now(),
	}

	s.mu.Lock()
	if _, exists := s.monitors[deploymentID]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyMonitoring, deploymentID.String())
	}
	s.monitors[deploymentID] = m
	s.mu.Unlock()

	s.logger.Info("monitoring started",
		zap.String("deployment_id", deploymentID.String()),
		zap.Duration("interval", cfg.Interval),
		zap.Bool("auto_rollback", cfg.AutoRollback))

	go s.loop(m)

	return &Handle{
		DeploymentID: deploymentID,
		stop:         func() { s.StopMonitoring(deploymentID) },
	}, nil
}

// StopMonitoring cancels a deployment's monitor and discards its in-memory
// state. Stopping an unknown or already-stopped deployment is a no-op.
func (s *Service) StopMonitoring(deploymentID uuid.UUID) {
	s.mu.Lock()
	m, ok := s.monitors[deploymentID]
	if ok {
		delete(s.monitors, deploymentID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	m.stop()
	s.logger.Info("monitoring stopped", zap.String("deployment_id", deploymentID.String()))
}

// GetMetrics returns a snapshot of a monitor's accumulated state.
func (s *Service) GetMetrics(deploymentID uuid.UUID) (*Metrics, error) {
	s.mu.Lock()
	m, ok := s.monitors[deploymentID]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotMonitored, deploymentID.String())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := &Metrics{
		DeploymentID:        m.deploymentID,
		Status:              m.status,
		TotalChecks:         m.totalChecks,
		SuccessCount:        m.successCount,
		ErrorCount:          m.errorCount,
		ConsecutiveFailures: m.consecutiveFailures,
		LastCheckedAt:       m.lastCheckedAt,
	}
	if m.totalChecks > 0 {
		snapshot.UptimePercent = float64(m.successCount) / float64(m.totalChecks) * 100
	}
	if len(m.samples) > 0 {
		snapshot.AverageResponseTime = lo.Sum(m.samples) / time.Duration(len(m.samples))
	}

	return snapshot, nil
}

// History returns a deployment's retained check results, newest first.
func (s *Service) History(ctx context.Context, deploymentID uuid.UUID, limit int) ([]CheckResult, error) {
	if limit <= 0 {
		limit = s.config.HistoryLimit
	}
	return s.repository.ListByDeployment(ctx, deploymentID, limit)
}

// Subscribe delivers every check result for a deployment to cb. The
// returned unsubscribe function is safe to call repeatedly.
func (s *Service) Subscribe(deploymentID uuid.UUID, cb func(CheckResult)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	s.nextSubID++
	id := s.nextSubID

	if _, ok := s.subs[deploymentID]; !ok {
		s.subs[deploymentID] = make(map[uint64]func(CheckResult))
	}
	s.subs[deploymentID][id] = cb

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()

		if subs, ok := s.subs[deploymentID]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(s.subs, deploymentID)
			}
		}
	}
}

// Shutdown stops every monitor and the pruner.
func (s *Service) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })

	s.mu.Lock()
	monitors := lo.Values(s.monitors)
	s.monitors = make(map[uuid.UUID]*monitor)
	s.mu.Unlock()

	for _, m := range monitors {
		m.stop()
	}
}

func (s *Service) resolveConfig(cfg MonitorConfig) MonitorConfig {
	if cfg.Interval <= 0 {
		cfg.Interval = s.config.Interval
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = s.config.ProbeTimeout
	}
	if cfg.ExpectedStatus == 0 {
		cfg.ExpectedStatus = s.config.ExpectedStatus
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = s.config.FailureThreshold
	}
	return cfg
}

// loop drives one monitor until it is stopped. The done channel is checked
// again after a tick fires so no check runs once the monitor stopped.
func (s *Service) loop(m *monitor) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	s.check(context.Background(), m)

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			select {
			case <-m.done:
				return
			default:
			}

			if s.expired(m) {
				s.expire(m)
				return
			}

			s.check(context.Background(), m)
		}
	}
}

// expired reports whether the monitor outlived the overall timeout without
// ever seeing its deployment run.
func (s *Service) expired(m *monitor) bool {
	if s.config.MonitorTimeout <= 0 {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.sawRunning && time.Since(m.startedAt) > s.config.MonitorTimeout
}

func (s *Service) expire(m *monitor) {
	s.logger.Warn("monitor timed out before deployment ever ran",
		zap.String("deployment_id", m.deploymentID.String()))

	m.mu.Lock()
	m.status = StatusError
	m.mu.Unlock()

	s.notifyAlert(context.Background(), Alert{
		DeploymentID: m.deploymentID,
		ProjectID:    m.projectID,
		Severity:     SeverityWarning,
		Message:      "monitoring timed out: deployment never reached running state",
		At:           time.Now(),
	})

	s.StopMonitoring(m.deploymentID)
}

// check performs one poll cycle: deployment status lookup, optional probe,
// health evaluation.
func (s *Service) check(ctx context.Context, m *monitor) {
	result := CheckResult{
		DeploymentID: m.deploymentID,
		CheckedAt:    time.Now(),
	}

	info, err := s.source.Info(ctx, m.deploymentID)
	switch {
	case err != nil:
		result.Status = StatusError
		result.Error = err.Error()

	case info.Status == DeploymentFailed || info.Status == DeploymentError:
		result.Status = StatusUnhealthy
		result.Error = fmt.Sprintf("deployment status is %s", info.Status)

	case info.Status != DeploymentRunning:
		// still deploying, not judged yet
		result.Status = StatusHealthy

	default:
		endpoint := m.cfg.Endpoint
		if endpoint == "" {
			endpoint = info.HealthEndpoint
		}

		if endpoint == "" {
			// running with no endpoint configured is healthy by definition
			result.Status = StatusHealthy
			break
		}

		probe := s.prober.Probe(ctx, endpoint, m.cfg.ProbeTimeout, m.cfg.ExpectedStatus)
		result.ResponseTime = probe.ResponseTime
		switch {
		case probe.Err != nil:
			result.Status = StatusError
			result.Error = probe.Err.Error()
		case probe.Healthy:
			result.Status = StatusHealthy
		default:
			result.Status = StatusUnhealthy
			result.Error = fmt.Sprintf("unexpected status %d", probe.StatusCode)
		}
	}

	s.record(ctx, m, info, result)
}

// record folds one result into the monitor state and fans it out: metrics,
// history, subscribers, hub, alerts, and the rollback trigger.
func (s *Service) record(ctx context.Context, m *monitor, info *DeploymentInfo, result CheckResult) {
	healthy := result.Status == StatusHealthy

	m.mu.Lock()
	previous := m.status
	m.totalChecks++
	m.lastCheckedAt = result.CheckedAt
	if info != nil && info.Status == DeploymentRunning {
		m.sawRunning = true
	}
	if result.ResponseTime > 0 {
		m.samples = append(m.samples, result.ResponseTime)
		if window := s.config.SampleWindow; len(m.samples) > window {
			m.samples = m.samples[len(m.samples)-window:]
		}
	}
	if healthy {
		m.successCount++
		m.consecutiveFailures = 0
	} else {
		m.errorCount++
		m.consecutiveFailures++
	}
	m.status = result.Status
	failures := m.consecutiveFailures
	thresholdReached := !healthy && failures >= m.cfg.FailureThreshold
	shouldRollback := thresholdReached && m.cfg.AutoRollback && !m.rollbackFired
	if shouldRollback {
		m.rollbackFired = true
	}
	m.mu.Unlock()

	s.metrics.observe(result)

	if appendErr := s.repository.Append(ctx, result); appendErr != nil {
		s.logger.Error("failed to store check result",
			zap.String("deployment_id", m.deploymentID.String()), zap.Error(appendErr))
	}

	s.notifySubscribers(result)
	s.hub.Publish(events.Event{
		DeploymentID: result.DeploymentID,
		Type:         events.TypeHealth,
		Status:       string(result.Status),
		Message:      result.Error,
		At:           result.CheckedAt,
	})

	if !healthy {
		severity := SeverityWarning
		if thresholdReached {
			severity = SeverityCritical
		}
		if previous == StatusHealthy || previous == StatusMonitoring || thresholdReached {
			s.notifyAlert(ctx, Alert{
				DeploymentID: m.deploymentID,
				ProjectID:    m.projectID,
				Severity:     severity,
				Message:      fmt.Sprintf("deployment unhealthy (%d consecutive failures): %s", failures, result.Error),
				At:           result.CheckedAt,
			})
		}
	}

	if shouldRollback {
		s.triggerRollback(ctx, m)
	}
}

// triggerRollback fires exactly once per monitor: it stops the failing
// monitor, requests the rollback, and starts a successor monitor with
// auto-rollback disabled so rollback chains stay bounded. The request is
// never retried.
func (s *Service) triggerRollback(ctx context.Context, m *monitor) {
	s.logger.Warn("failure threshold reached, requesting rollback",
		zap.String("deployment_id", m.deploymentID.String()),
		zap.Int("threshold", m.cfg.FailureThreshold))

	s.StopMonitoring(m.deploymentID)
	s.metrics.rollbacksTotal.Inc()

	successor, err := s.rollback.Rollback(ctx, m.deploymentID)
	if err != nil {
		s.logger.Error("automatic rollback failed",
			zap.String("deployment_id", m.deploymentID.String()), zap.Error(err))
		s.notifyAlert(ctx, Alert{
			DeploymentID: m.deploymentID,
			ProjectID:    m.projectID,
			Severity:     SeverityCritical,
			Message:      fmt.Sprintf("automatic rollback failed: %v", err),
			At:           time.Now(),
		})
		return
	}

	cfg := m.cfg
	cfg.AutoRollback = false
	cfg.Endpoint = "" // re-resolve from the successor deployment

	if _, startErr := s.StartMonitoring(ctx, successor, m.projectID, cfg); startErr != nil {
		s.logger.Error("failed to monitor rollback deployment",
			zap.String("deployment_id", successor.String()), zap.Error(startErr))
	}
}

func (s *Service) notifySubscribers(result CheckResult) {
	s.subsMu.RLock()
	callbacks := lo.Values(s.subs[result.DeploymentID])
	s.subsMu.RUnlock()

	for _, cb := range callbacks {
		cb(result)
	}
}

func (s *Service) notifyAlert(ctx context.Context, alert Alert) {
	if err := s.alerts.Notify(ctx, alert); err != nil {
		s.logger.Warn("failed to deliver alert",
			zap.String("deployment_id", alert.DeploymentID.String()), zap.Error(err))
	}
}

// pruneLoop enforces the history count cap until shutdown.
func (s *Service) pruneLoop() {
	ticker := time.NewTicker(s.config.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			removed, err := s.repository.Prune(context.Background(), s.config.HistoryLimit)
			if err != nil {
				s.logger.Error("failed to prune health history", zap.Error(err))
				continue
			}
			if removed > 0 {
				s.logger.Info("pruned health history", zap.Int("removed", removed))
			}
		}
	}
}
