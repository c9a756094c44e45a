package alert

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitalwatch/platform/internal/shared/metrics"
	"github.com/vitalwatch/platform/internal/shared/types"
	"github.com/vitalwatch/platform/internal/triage"
)

// EscalationNotifier delivers escalation messages to a care-team target.
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, alert *Alert, level int, target string) error
}

// LevelStore persists the escalation level. Satisfied by *Repository.
type LevelStore interface {
	SetEscalationLevel(ctx context.Context, id types.ID, level int) error
}

type activeEscalation struct {
	alert        *Alert
	currentLevel int
	startedAt    time.Time
	nextCheck    time.Time
}

// EscalationConfig holds escalation configuration
type EscalationConfig struct {
	// Base escalation timeouts per alert category
	TimeoutByCategory map[triage.StatusCategory]time.Duration

	// Notification targets per escalation level
	Targets map[int][]string

	// Check interval for escalation
	CheckInterval time.Duration

	// Maximum escalation level
	MaxLevel int

	// Enable automatic escalation
	AutoEscalate bool
}

// DefaultEscalationConfig returns the standard care-team ladder: an
// unacknowledged alert climbs from the assigned nurse to the charge nurse,
// the attending physician, and finally the medical director, with the
// timeout shrinking at each step.
func DefaultEscalationConfig() EscalationConfig {
	return EscalationConfig{
		TimeoutByCategory: map[triage.StatusCategory]time.Duration{
			triage.StatusCritical: 5 * time.Minute,
			triage.StatusMajor:    15 * time.Minute,
		},
		Targets: map[int][]string{
			1: {"charge_nurse"},
			2: {"attending_physician"},
			3: {"medical_director"},
		},
		CheckInterval: 30 * time.Second,
		MaxLevel:      3,
		AutoEscalate:  true,
	}
}

// Escalator walks unacknowledged alerts up the care-team ladder. Alerts are
// registered when raised and removed on acknowledgement or resolution.
type Escalator struct {
	notifier EscalationNotifier
	store    LevelStore
	logger   *zap.Logger

	active   map[string]*activeEscalation
	activeMu sync.RWMutex

	config EscalationConfig

	stopCh chan struct{}
}

// NewEscalator creates an escalator. store may be nil, in which case levels
// are tracked in memory only.
func NewEscalator(notifier EscalationNotifier, store LevelStore, config EscalationConfig, logger *zap.Logger) *Escalator {
	return &Escalator{
		notifier: notifier,
		store:    store,
		logger:   logger,
		active:   make(map[string]*activeEscalation),
		config:   config,
		stopCh:   make(chan struct{}),
	}
}

// SetNotifier wires the notifier after construction. The alert service and
// the escalator reference each other, so one side is attached late; call
// this before Start.
func (e *Escalator) SetNotifier(notifier EscalationNotifier) {
	e.notifier = notifier
}

// Start begins the escalation monitoring loop. It blocks until the context
// is cancelled or Stop is called.
func (e *Escalator) Start(ctx context.Context) error {
	ticker := time.NewTicker(e.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopCh:
			return nil
		case <-ticker.C:
			e.checkEscalations(ctx)
		}
	}
}

// Stop stops the escalation loop
func (e *Escalator) Stop() {
	close(e.stopCh)
}

// Register starts escalation tracking for a raised alert. Registering an
// already-tracked alert is a no-op, so the roster monitor may re-raise the
// same patient every cycle without resetting the clock.
func (e *Escalator) Register(alert *Alert) {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()

	key := alert.ID.String()
	if _, ok := e.active[key]; ok {
		return
	}

	timeout := e.baseTimeout(alert.Category)
	e.active[key] = &activeEscalation{
		alert:        alert,
		currentLevel: 0,
		startedAt:    time.Now(),
		nextCheck:    time.Now().Add(timeout),
	}
}

// Acknowledge removes an alert from escalation tracking.
func (e *Escalator) Acknowledge(id types.ID) {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	delete(e.active, id.String())
}

// Resolve removes an alert from escalation tracking.
func (e *Escalator) Resolve(id types.ID) {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	delete(e.active, id.String())
}

// ActiveCount returns the number of alerts currently tracked.
func (e *Escalator) ActiveCount() int {
	e.activeMu.RLock()
	defer e.activeMu.RUnlock()
	return len(e.active)
}

// checkEscalations checks all tracked alerts for overdue acknowledgement
func (e *Escalator) checkEscalations(ctx context.Context) {
	if !e.config.AutoEscalate {
		return
	}

	e.activeMu.Lock()
	toEscalate := make([]*activeEscalation, 0)
	now := time.Now()
	for _, active := range e.active {
		if now.After(active.nextCheck) {
			toEscalate = append(toEscalate, active)
		}
	}
	e.activeMu.Unlock()

	// Escalate outside the lock
	for _, active := range toEscalate {
		e.escalate(ctx, active)
	}
}

// escalate moves an alert to the next level of the ladder
func (e *Escalator) escalate(ctx context.Context, active *activeEscalation) {
	e.activeMu.Lock()

	if active.currentLevel >= e.config.MaxLevel {
		// Top of the ladder; keep it tracked but stop climbing.
		active.nextCheck = time.Now().Add(e.baseTimeout(active.alert.Category))
		e.activeMu.Unlock()
		return
	}

	active.currentLevel++
	level := active.currentLevel
	alert := active.alert
	active.nextCheck = time.Now().Add(e.timeoutForLevel(alert.Category, level))

	e.activeMu.Unlock()

	metrics.RecordAlertEscalated(level)

	if e.store != nil {
		if err := e.store.SetEscalationLevel(ctx, alert.ID, level); err != nil {
			e.logger.Error("Failed to persist escalation level",
				zap.String("alert_id", alert.ID.String()),
				zap.Int("level", level),
				zap.Error(err),
			)
		}
	}

	if e.notifier != nil {
		for _, target := range e.targetsForLevel(level) {
			if err := e.notifier.NotifyEscalation(ctx, alert, level, target); err != nil {
				e.logger.Error("Failed to send escalation notification",
					zap.String("alert_id", alert.ID.String()),
					zap.Int("level", level),
					zap.String("target", target),
					zap.Error(err),
				)
			}
		}
	}

	e.logger.Warn("Alert escalated",
		zap.String("alert_id", alert.ID.String()),
		zap.String("patient_id", alert.PatientID.String()),
		zap.String("category", string(alert.Category)),
		zap.Int("level", level),
	)
}

func (e *Escalator) baseTimeout(category triage.StatusCategory) time.Duration {
	if timeout, ok := e.config.TimeoutByCategory[category]; ok {
		return timeout
	}
	return e.config.TimeoutByCategory[triage.StatusMajor]
}

// timeoutForLevel shrinks the wait at each level; the higher the ladder,
// the faster the next hop.
func (e *Escalator) timeoutForLevel(category triage.StatusCategory, level int) time.Duration {
	base := e.baseTimeout(category)
	return time.Duration(float64(base) / float64(level+1))
}

func (e *Escalator) targetsForLevel(level int) []string {
	if targets, ok := e.config.Targets[level]; ok {
		return targets
	}
	return []string{"charge_nurse"}
}
