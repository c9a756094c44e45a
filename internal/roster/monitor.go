package roster

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vitalwatch/platform/internal/shared/events"
	"github.com/vitalwatch/platform/internal/shared/metrics"
	"github.com/vitalwatch/platform/internal/triage"
)

// Publisher emits domain events. Satisfied by *events.Bus.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// AlertSink receives roster entries that warrant an alert. Satisfied by the
// alert service; it owns deduplication, so the monitor may hand it the same
// deteriorating patient on every cycle.
type AlertSink interface {
	Raise(ctx context.Context, entry Entry) error
}

// Monitor owns the periodic roster refresh. It is the single writer of the
// snapshot cache and the producer of shortage and alert signals; handlers
// only ever read. Start blocks, so callers run it in a goroutine and stop it
// through context cancellation or Stop.
type Monitor struct {
	service  *Service
	bus      Publisher
	alerts   AlertSink
	interval time.Duration
	logger   *zap.Logger

	stopCh chan struct{}
}

// NewMonitor creates a roster monitor. bus and alerts may be nil; the
// corresponding signals are then skipped.
func NewMonitor(service *Service, bus Publisher, alerts AlertSink, interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		service:  service,
		bus:      bus,
		alerts:   alerts,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the refresh loop until the context is cancelled or Stop is
// called. The first refresh happens immediately so the cache is warm before
// the first tick.
func (m *Monitor) Start(ctx context.Context) error {
	m.refresh(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.stopCh:
			return nil
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

// Stop terminates the refresh loop.
func (m *Monitor) Stop() {
	close(m.stopCh)
}

func (m *Monitor) refresh(ctx context.Context) {
	snap, err := m.service.Refresh(ctx)
	if err != nil {
		m.logger.Error("Roster refresh failed", zap.Error(err))
		return
	}

	for _, category := range []triage.StatusCategory{
		triage.StatusCritical, triage.StatusMajor, triage.StatusMinor, triage.StatusStable,
	} {
		metrics.SetPatientsByCategory(string(category), snap.Totals[category])
	}
	metrics.SetSectorsAtRisk(len(snap.Shortages))

	m.raiseAlerts(ctx, snap)
	m.publishShortages(ctx, snap)

	m.logger.Info("Roster refreshed",
		zap.Int("patients", len(snap.Entries)),
		zap.Int("critical", snap.Totals[triage.StatusCritical]),
		zap.Int("major", snap.Totals[triage.StatusMajor]),
		zap.Int("sectors_at_risk", len(snap.Shortages)),
		zap.Int("unscored", snap.Unscored),
	)
}

func (m *Monitor) raiseAlerts(ctx context.Context, snap *Snapshot) {
	if m.alerts == nil {
		return
	}
	for _, entry := range snap.Entries {
		if entry.Category != triage.StatusCritical && entry.Category != triage.StatusMajor {
			continue
		}
		if err := m.alerts.Raise(ctx, entry); err != nil {
			m.logger.Error("Failed to raise alert",
				zap.String("patient_id", entry.ID.String()),
				zap.String("category", string(entry.Category)),
				zap.Error(err),
			)
		}
	}
}

func (m *Monitor) publishShortages(ctx context.Context, snap *Snapshot) {
	if m.bus == nil {
		return
	}
	for _, shortage := range snap.Shortages {
		metrics.RecordShortage(string(shortage.Severity))
		event := events.NewEvent("triage.shortage.predicted", "roster-monitor", map[string]any{
			"sector":           shortage.Sector,
			"patients_at_risk": shortage.PatientsAtRisk,
			"severity":         string(shortage.Severity),
		})
		if err := m.bus.Publish(ctx, event); err != nil {
			m.logger.Error("Failed to publish shortage event",
				zap.String("sector", shortage.Sector),
				zap.Error(err),
			)
		}
	}
}
