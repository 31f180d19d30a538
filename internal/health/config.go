package health

import "time"

type Config struct {
	// Per-monitor defaults.
	Interval         time.Duration
	ProbeTimeout     time.Duration
	ExpectedStatus   int
	FailureThreshold int

	// MonitorTimeout stops a monitor whose deployment never reaches the
	// running state, so a stuck deployment is not polled forever.
	MonitorTimeout time.Duration

	// SampleWindow caps the rolling response-time sample list.
	SampleWindow int

	// History bounds: entries expire after HistoryRetention, the pruner
	// additionally caps the per-deployment count every PruneInterval.
	HistoryRetention time.Duration
	HistoryLimit     int
	PruneInterval    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:         30 * time.Second,
		ProbeTimeout:     10 * time.Second,
		ExpectedStatus:   200,
		FailureThreshold: 3,
		MonitorTimeout:   30 * time.Minute,
		SampleWindow:     100,
		HistoryRetention: 24 * time.Hour,
		HistoryLimit:     500,
		PruneInterval:    time.Hour,
	}
}
