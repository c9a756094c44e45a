package alert

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vitalwatch/platform/internal/notification"
	"github.com/vitalwatch/platform/internal/roster"
	"github.com/vitalwatch/platform/internal/shared/events"
	"github.com/vitalwatch/platform/internal/shared/metrics"
	"github.com/vitalwatch/platform/internal/shared/types"
	"github.com/vitalwatch/platform/internal/triage"
)

// Sender enqueues notifications. Satisfied by *notification.Service.
type Sender interface {
	Send(ctx context.Context, n *notification.Notification) error
}

// Publisher emits domain events. Satisfied by *events.Bus.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service owns the alert lifecycle: raising from roster observations with
// per-patient deduplication, acknowledgement, resolution, and handing raised
// alerts to the escalator. It implements roster.AlertSink.
type Service struct {
	repo      *Repository
	escalator *Escalator
	sender    Sender
	bus       Publisher
	logger    *zap.Logger
}

// NewService creates an alert service. sender and bus may be nil.
func NewService(repo *Repository, escalator *Escalator, sender Sender, bus Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		escalator: escalator,
		sender:    sender,
		bus:       bus,
		logger:    logger,
	}
}

// Raise opens an alert for a deteriorated roster entry. A patient with an
// unresolved alert gets its observation refreshed instead of a duplicate row,
// so the monitor can hand over the full critical/major set every cycle.
func (s *Service) Raise(ctx context.Context, entry roster.Entry) error {
	existing, err := s.repo.FindOpenByPatient(ctx, entry.ID)
	if err != nil {
		return err
	}

	if existing != nil {
		if existing.Category == entry.Category &&
			existing.StabilityIndex == entry.StabilityIndex &&
			existing.News2Score == entry.News2Score {
			return nil
		}
		existing.Category = entry.Category
		existing.StabilityIndex = entry.StabilityIndex
		existing.News2Score = entry.News2Score
		existing.Sector = entry.Sector
		return s.repo.RefreshObservation(ctx, existing)
	}

	a := &Alert{
		ID:             types.NewID(),
		PatientID:      entry.ID,
		Category:       entry.Category,
		StabilityIndex: entry.StabilityIndex,
		News2Score:     entry.News2Score,
		Sector:         entry.Sector,
		Status:         StatusOpen,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return err
	}

	metrics.RecordAlertRaised(string(a.Category))
	s.escalator.Register(a)

	s.notify(ctx, a, 0, "nurse", entry.Name)
	s.publish(ctx, "triage.alert.raised", a)

	s.logger.Info("Alert raised",
		zap.String("alert_id", a.ID.String()),
		zap.String("patient_id", a.PatientID.String()),
		zap.String("category", string(a.Category)),
		zap.String("sector", a.Sector),
	)
	return nil
}

// Acknowledge marks an alert as owned by a care-team member and stops its
// escalation clock.
func (s *Service) Acknowledge(ctx context.Context, id types.ID, by string) (*Alert, error) {
	a, err := s.repo.Acknowledge(ctx, id, by)
	if err != nil {
		return nil, err
	}

	s.escalator.Acknowledge(id)
	s.publish(ctx, "triage.alert.acknowledged", a)
	return a, nil
}

// Resolve closes an alert.
func (s *Service) Resolve(ctx context.Context, id types.ID) (*Alert, error) {
	a, err := s.repo.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	s.escalator.Resolve(id)
	s.publish(ctx, "triage.alert.resolved", a)
	return a, nil
}

// NotifyEscalation implements EscalationNotifier.
func (s *Service) NotifyEscalation(ctx context.Context, a *Alert, level int, target string) error {
	return s.notify(ctx, a, level, target, "")
}

func (s *Service) notify(ctx context.Context, a *Alert, level int, target, patientName string) error {
	if s.sender == nil {
		return nil
	}

	priority := notification.PriorityUrgent
	if a.Category == triage.StatusCritical {
		priority = notification.PriorityCritical
	}

	title := fmt.Sprintf("%s alert in %s", a.Category, a.Sector)
	body := fmt.Sprintf("Stability %d, NEWS2 %d", a.StabilityIndex, a.News2Score)
	if patientName != "" {
		body = patientName + ": " + body
	}
	if level > 0 {
		title = fmt.Sprintf("[escalation L%d] %s", level, title)
	}

	return s.sender.Send(ctx, &notification.Notification{
		Channel:   notification.ChannelPush,
		Priority:  priority,
		Recipient: target,
		Title:     title,
		Body:      body,
		AlertID:   a.ID,
		PatientID: a.PatientID,
	})
}

func (s *Service) publish(ctx context.Context, eventType string, a *Alert) {
	if s.bus == nil {
		return
	}

	event := events.NewEvent(eventType, "alert-service", map[string]any{
		"alert_id":         a.ID.String(),
		"patient_id":       a.PatientID.String(),
		"category":         string(a.Category),
		"sector":           a.Sector,
		"status":           string(a.Status),
		"escalation_level": a.EscalationLevel,
	})
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish alert event",
			zap.String("event_type", eventType),
			zap.String("alert_id", a.ID.String()),
			zap.Error(err),
		)
	}
}
