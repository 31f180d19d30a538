package health

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pilotcd/pilotcd/internal/events"
	"github.com/pilotcd/pilotcd/pkg/badgerfx"
	"go.uber.org/zap/zaptest"
)

type fakeSource struct {
	mu   sync.Mutex
	info DeploymentInfo
	err  error
}

func (f *fakeSource) Info(_ context.Context, _ uuid.UUID) (*DeploymentInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	info := f.info
	return &info, nil
}

func (f *fakeSource) set(info DeploymentInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info = info
}

type fakeRollback struct {
	mu        sync.Mutex
	count     int
	successor uuid.UUID
	err       error
}

func (f *fakeRollback) Rollback(_ context.Context, _ uuid.UUID) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return f.successor, nil
}

func (f *fakeRollback) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

type fakeAlerts struct {
	mu     sync.Mutex
	alerts []Alert
}

func (f *fakeAlerts) Notify(_ context.Context, alert Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeAlerts) recorded() []Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Alert(nil), f.alerts...)
}

type fakeProber struct {
	mu      sync.Mutex
	results []ProbeResult
}

func (f *fakeProber) Probe(_ context.Context, _ string, _ time.Duration, _ int) ProbeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) == 0 {
		return ProbeResult{Healthy: true, StatusCode: 200, ResponseTime: time.Millisecond}
	}
	result := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return result
}

// script sets the probe outcomes; the last one repeats.
func (f *fakeProber) script(results ...ProbeResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = results
}

func unhealthyProbe() ProbeResult {
	return ProbeResult{Healthy: false, StatusCode: 503, ResponseTime: time.Millisecond}
}

func healthyProbe() ProbeResult {
	return ProbeResult{Healthy: true, StatusCode: 200, ResponseTime: time.Millisecond}
}

type healthFixture struct {
	svc      *Service
	source   *fakeSource
	rollback *fakeRollback
	alerts   *fakeAlerts
	prober   *fakeProber
}

func newHealthFixture(t *testing.T, cfg Config) *healthFixture {
	t.Helper()

	opts := badgerfx.Config{InMemory: true}.Build()
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := zaptest.NewLogger(t)

	f := &healthFixture{
		source:   &fakeSource{info: DeploymentInfo{ProjectID: uuid.New(), Status: DeploymentRunning, HealthEndpoint: "http://127.0.0.1:1/healthz"}},
		rollback: &fakeRollback{successor: uuid.New()},
		alerts:   &fakeAlerts{},
		prober:   &fakeProber{},
	}

	f.svc = NewService(
		NewRepository(db, cfg),
		f.source,
		f.rollback,
		f.alerts,
		f.prober,
		events.NewHub(logger),
		newCollector(),
		cfg,
		logger,
	)
	t.Cleanup(f.svc.Shutdown)

	return f
}

// registerMonitor installs a monitor without starting its loop, so tests
// can drive checks deterministically.
func (f *healthFixture) registerMonitor(deploymentID uuid.UUID, cfg MonitorConfig) *monitor {
	m := &monitor{
		deploymentID: deploymentID,
		projectID:    uuid.New(),
		cfg:          f.svc.resolveConfig(cfg),
		done:         make(chan struct{}),
		status:       StatusMonitoring,
		startedAt:    time.Now(),
	}

	f.svc.mu.Lock()
	f.svc.monitors[deploymentID] = m
	f.svc.mu.Unlock()

	return m
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Interval = time.Hour // loops driven manually unless a test overrides
	return cfg
}

func TestService_StartMonitoring_RejectsDuplicate(t *testing.T) {
	f := newHealthFixture(t, quietConfig())
	deploymentID := uuid.New()

	if _, err := f.svc.StartMonitoring(context.Background(), deploymentID, uuid.New(), MonitorConfig{}); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.StartMonitoring(context.Background(), deploymentID, uuid.New(), MonitorConfig{})
	if !errors.Is(err, ErrAlreadyMonitoring) {
		t.Fatalf("expected ErrAlreadyMonitoring, got %v", err)
	}
}

func TestService_StopMonitoring_UnknownIsNoOp(t *testing.T) {
	f := newHealthFixture(t, quietConfig())

	f.svc.StopMonitoring(uuid.New()) // must not panic

	deploymentID := uuid.New()
	if _, err := f.svc.StartMonitoring(context.Background(), deploymentID, uuid.New(), MonitorConfig{}); err != nil {
		t.Fatal(err)
	}

	f.svc.StopMonitoring(deploymentID)
	f.svc.StopMonitoring(deploymentID) // second stop is a no-op

	if _, err := f.svc.GetMetrics(deploymentID); !errors.Is(err, ErrNotMonitored) {
		t.Fatalf("expected ErrNotMonitored after stop, got %v", err)
	}
}

func TestService_Check_ThresholdFiresRollbackExactlyOnce(t *testing.T) {
	f := newHealthFixture(t, quietConfig())
	f.prober.script(unhealthyProbe())

	deploymentID := uuid.New()
	m := f.registerMonitor(deploymentID, MonitorConfig{FailureThreshold: 3, AutoRollback: true})

	ctx := context.Background()

	f.svc.check(ctx, m)
	f.svc.check(ctx, m)
	if calls := f.rollback.calls(); calls != 0 {
		t.Fatalf("rollback fired before the threshold: %d calls", calls)
	}

	f.svc.check(ctx, m)
	if calls := f.rollback.calls(); calls != 1 {
		t.Fatalf("expected exactly one rollback at the threshold, got %d", calls)
	}

	// further failures on the same monitor never re-fire
	f.svc.check(ctx, m)
	f.svc.check(ctx, m)
	if calls := f.rollback.calls(); calls != 1 {
		t.Fatalf("rollback re-fired: %d calls", calls)
	}

	// the successor deployment is monitored, without auto-rollback
	if _, err := f.svc.GetMetrics(f.rollback.successor); err != nil {
		t.Errorf("expected a successor monitor: %v", err)
	}
}

func TestService_Check_RollbackFailureAlertsWithoutRetry(t *testing.T) {
	f := newHealthFixture(t, quietConfig())
	f.prober.script(unhealthyProbe())
	f.rollback.err = errors.New("no previous deployment")

	deploymentID := uuid.New()
	m := f.registerMonitor(deploymentID, MonitorConfig{FailureThreshold: 2, AutoRollback: true})

	ctx := context.Background()
	f.svc.check(ctx, m)
	f.svc.check(ctx, m) // threshold: rollback attempted and fails
	f.svc.check(ctx, m) // never retried

	if calls := f.rollback.calls(); calls != 1 {
		t.Fatalf("expected a single rollback attempt, got %d", calls)
	}

	var failures int
	for _, alert := range f.alerts.recorded() {
		if alert.Severity == SeverityCritical && strings.Contains(alert.Message, "rollback failed") {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("expected 1 rollback-failure alert, got %d", failures)
	}

	if _, err := f.svc.GetMetrics(deploymentID); !errors.Is(err, ErrNotMonitored) {
		t.Error("failing monitor should be stopped after the rollback attempt")
	}
}

func TestService_Check_HealthyResetsFailureStreak(t *testing.T) {
	f := newHealthFixture(t, quietConfig())
	f.prober.script(unhealthyProbe(), unhealthyProbe(), healthyProbe())

	deploymentID := uuid.New()
	m := f.registerMonitor(deploymentID, MonitorConfig{FailureThreshold: 3, AutoRollback: true})

	ctx := context.Background()
	f.svc.check(ctx, m)
	f.svc.check(ctx, m)
	f.svc.check(ctx, m)

	metrics, err := f.svc.GetMetrics(deploymentID)
	if err != nil {
		t.Fatal(err)
	}

	if metrics.ConsecutiveFailures != 0 {
		t.Errorf("expected the streak to reset, got %d", metrics.ConsecutiveFailures)
	}
	if metrics.TotalChecks != 3 || metrics.SuccessCount != 1 || metrics.ErrorCount != 2 {
		t.Errorf("unexpected counters: %+v", metrics)
	}
	if metrics.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", metrics.Status)
	}
	if f.rollback.calls() != 0 {
		t.Error("rollback must not fire when the streak is broken")
	}
}

func TestService_Check_ProbeErrorRecordedAsError(t *testing.T) {
	f := newHealthFixture(t, quietConfig())
	f.prober.script(ProbeResult{Err: errors.New("connection refused"), ResponseTime: time.Millisecond})

	deploymentID := uuid.New()
	m := f.registerMonitor(deploymentID, MonitorConfig{})

	var received []CheckResult
	f.svc.Subscribe(deploymentID, func(result CheckResult) {
		received = append(received, result)
	})

	f.svc.check(context.Background(), m)

	if len(received) != 1 {
		t.Fatalf("expected 1 result, got %d", len(received))
	}
	if received[0].Status != StatusError {
		t.Errorf("expected error status, got %s", received[0].Status)
	}
	if received[0].Error == "" {
		t.Error("expected the probe error to be recorded")
	}
}

func TestService_Check_InFlightDeploymentNotJudged(t *testing.T) {
	f := newHealthFixture(t, quietConfig())
	f.source.set(DeploymentInfo{Status: "cloning"})
	f.prober.script(unhealthyProbe()) // must not matter: no probe for in-flight deployments

	deploymentID := uuid.New()
	m := f.registerMonitor(deploymentID, MonitorConfig{})

	f.svc.check(context.Background(), m)

	metrics, err := f.svc.GetMetrics(deploymentID)
	if err != nil {
		t.Fatal(err)
	}
	if metrics.Status != StatusHealthy {
		t.Errorf("in-flight deployment should be healthy, got %s", metrics.Status)
	}
	if metrics.AverageResponseTime != 0 {
		t.Error("no probe should run for an in-flight deployment")
	}
}

func TestService_Check_FailedDeploymentIsUnhealthy(t *testing.T) {
	f := newHealthFixture(t, quietConfig())
	f.source.set(DeploymentInfo{Status: DeploymentFailed})

	deploymentID := uuid.New()
	m := f.registerMonitor(deploymentID, MonitorConfig{})

	f.svc.check(context.Background(), m)

	metrics, err := f.svc.GetMetrics(deploymentID)
	if err != nil {
		t.Fatal(err)
	}
	if metrics.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", metrics.Status)
	}
}

func TestService_Check_RunningWithoutEndpointIsHealthy(t *testing.T) {
	f := newHealthFixture(t, quietConfig())
	f.source.set(DeploymentInfo{Status: DeploymentRunning})
	f.prober.script(unhealthyProbe()) // must not be consulted

	deploymentID := uuid.New()
	m := f.registerMonitor(deploymentID, MonitorConfig{})

	f.svc.check(context.Background(), m)

	metrics, err := f.svc.GetMetrics(deploymentID)
	if err != nil {
		t.Fatal(err)
	}
	if metrics.Status != StatusHealthy {
		t.Errorf("expected healthy without an endpoint, got %s", metrics.Status)
	}
}

func TestService_Check_AlertsOnTransitionAndThreshold(t *testing.T) {
	f := newHealthFixture(t, quietConfig())
	f.prober.script(unhealthyProbe())

	deploymentID := uuid.New()
	m := f.registerMonitor(deploymentID, MonitorConfig{FailureThreshold: 3})

	ctx := context.Background()
	f.svc.check(ctx, m) // transition into unhealthy: warning
	f.svc.check(ctx, m) // still unhealthy, below threshold: silent
	f.svc.check(ctx, m) // threshold: critical

	alerts := f.alerts.recorded()
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].Severity != SeverityWarning {
		t.Errorf("expected a warning first, got %s", alerts[0].Severity)
	}
	if alerts[1].Severity != SeverityCritical {
		t.Errorf("expected a critical alert at the threshold, got %s", alerts[1].Severity)
	}
}

func TestService_Subscribe_UnsubscribeStopsDelivery(t *testing.T) {
	f := newHealthFixture(t, quietConfig())

	deploymentID := uuid.New()
	m := f.registerMonitor(deploymentID, MonitorConfig{})

	var count int
	unsubscribe := f.svc.Subscribe(deploymentID, func(CheckResult) { count++ })

	ctx := context.Background()
	f.svc.check(ctx, m)

	unsubscribe()
	unsubscribe() // idempotent

	f.svc.check(ctx, m)

	if count != 1 {
		t.Errorf("expected 1 delivery, got %d", count)
	}
}

func TestService_History_NewestFirstWithLimit(t *testing.T) {
	f := newHealthFixture(t, quietConfig())
	f.prober.script(unhealthyProbe(), healthyProbe())

	deploymentID := uuid.New()
	m := f.registerMonitor(deploymentID, MonitorConfig{})

	ctx := context.Background()
	f.svc.check(ctx, m)
	time.Sleep(time.Millisecond) // distinct history keys
	f.svc.check(ctx, m)

	history, err := f.svc.History(ctx, deploymentID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 results, got %d", len(history))
	}
	if history[0].Status != StatusHealthy || history[1].Status != StatusUnhealthy {
		t.Error("expected newest-first ordering")
	}

	limited, err := f.svc.History(ctx, deploymentID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].Status != StatusHealthy {
		t.Error("expected the limit to keep only the newest result")
	}
}

func TestService_Monitor_LoopChecksPeriodically(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interval = 5 * time.Millisecond
	f := newHealthFixture(t, cfg)

	deploymentID := uuid.New()
	if _, err := f.svc.StartMonitoring(context.Background(), deploymentID, uuid.New(), MonitorConfig{}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 5*time.Second, func() bool {
		metrics, err := f.svc.GetMetrics(deploymentID)
		return err == nil && metrics.TotalChecks >= 3
	})

	f.svc.StopMonitoring(deploymentID)
}

func TestService_Monitor_ExpiresWhenDeploymentNeverRuns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interval = 2 * time.Millisecond
	cfg.MonitorTimeout = 10 * time.Millisecond
	f := newHealthFixture(t, cfg)
	f.source.set(DeploymentInfo{Status: "cloning"}) // never reaches running

	deploymentID := uuid.New()
	if _, err := f.svc.StartMonitoring(context.Background(), deploymentID, uuid.New(), MonitorConfig{}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 5*time.Second, func() bool {
		_, err := f.svc.GetMetrics(deploymentID)
		return errors.Is(err, ErrNotMonitored)
	})

	waitFor(t, 5*time.Second, func() bool {
		for _, alert := range f.alerts.recorded() {
			if alert.Severity == SeverityWarning && alert.DeploymentID == deploymentID {
				return true
			}
		}
		return false
	})
}

func TestService_SampleWindowIsBounded(t *testing.T) {
	cfg := quietConfig()
	cfg.SampleWindow = 5
	f := newHealthFixture(t, cfg)

	deploymentID := uuid.New()
	m := f.registerMonitor(deploymentID, MonitorConfig{})

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		f.svc.check(ctx, m)
	}

	m.mu.Lock()
	samples := len(m.samples)
	m.mu.Unlock()

	if samples != 5 {
		t.Errorf("expected the sample window to cap at 5, got %d", samples)
	}
}
