package triage

import (
	"time"
)

// Config holds the engine thresholds and cadences. StabilityThreshold is
// shared by Classify (major boundary) and SyncPolicy (emergency boundary);
// keeping it a single field is what guarantees major-or-worse patients
// always land in emergency mode.
type Config struct {
	StabilityThreshold int
	EmergencyInterval  time.Duration
	PowerSaveInterval  time.Duration
	ShortageHighCount  int
	ShortageHighRatio  float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		StabilityThreshold: 70,
		EmergencyInterval:  15 * time.Second,
		PowerSaveInterval:  5 * time.Minute,
		ShortageHighCount:  3,
		ShortageHighRatio:  0.5,
	}
}

// Engine evaluates severity, sync policy, and shortage predictions over
// scored patient metrics. All methods are pure and safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates a triage engine with the given thresholds.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Default returns an engine with production thresholds.
func Default() *Engine {
	return NewEngine(DefaultConfig())
}
