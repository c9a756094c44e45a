package ehr

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vitalwatch/platform/internal/patient"
	"github.com/vitalwatch/platform/internal/shared/events"
	"github.com/vitalwatch/platform/internal/shared/types"
)

// Registry is the slice of the patient repository the ingestor needs.
// Satisfied by *patient.Repository.
type Registry interface {
	Upsert(ctx context.Context, p *patient.Patient) error
	GetByMRN(ctx context.Context, mrn types.MRN) (*patient.Patient, error)
	Delete(ctx context.Context, id types.ID) error
}

// Publisher emits domain events. Satisfied by *events.Bus.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Ingestor feeds EHR admission and discharge events into the patient
// registry. Admitted patients are upserted (keyed by MRN, so replayed events
// are idempotent); discharged patients leave the monitored roster.
type Ingestor struct {
	adapter  Adapter
	registry Registry
	bus      Publisher
	logger   *zap.Logger
}

// NewIngestor creates an ingestor. bus may be nil.
func NewIngestor(adapter Adapter, registry Registry, bus Publisher, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		adapter:  adapter,
		registry: registry,
		bus:      bus,
		logger:   logger,
	}
}

// Start subscribes to the adapter's event streams. Handlers run until the
// context is cancelled.
func (i *Ingestor) Start(ctx context.Context) error {
	if err := i.adapter.SubscribeAdmissions(ctx, func(event AdmissionEvent) {
		i.handleAdmission(ctx, event)
	}); err != nil {
		return err
	}
	return i.adapter.SubscribeDischarges(ctx, func(event DischargeEvent) {
		i.handleDischarge(ctx, event)
	})
}

func (i *Ingestor) handleAdmission(ctx context.Context, event AdmissionEvent) {
	mrn, err := types.ParseMRN(event.PatientMRN)
	if err != nil {
		// A malformed MRN from the EHR is a data defect upstream; refuse the
		// record instead of guessing an identity.
		i.logger.Error("Rejecting admission with invalid MRN",
			zap.String("event_id", event.EventID),
			zap.String("source_system", event.SourceSystem),
			zap.Error(err),
		)
		return
	}

	p := &patient.Patient{
		ID:           types.NewID(),
		MRN:          mrn,
		Condition:    event.Condition,
		Sector:       event.Ward,
		SourceSystem: event.SourceSystem,
	}

	if record, err := i.adapter.FetchPatientRecord(ctx, event.PatientMRN); err == nil {
		p.FirstName = record.FirstName
		p.LastName = record.LastName
		p.Age = record.Age(time.Now())
		if p.Condition == "" {
			p.Condition = record.Condition
		}
	} else {
		p.FirstName, p.LastName = splitName(event.PatientName)
		i.logger.Warn("Admitting with event data only, record fetch failed",
			zap.String("mrn", mrn.Masked()),
			zap.Error(err),
		)
	}

	if err := i.registry.Upsert(ctx, p); err != nil {
		i.logger.Error("Failed to upsert admitted patient",
			zap.String("mrn", mrn.Masked()),
			zap.Error(err),
		)
		return
	}

	i.publish(ctx, "patient.admitted", map[string]any{
		"mrn":           mrn.Masked(),
		"sector":        p.Sector,
		"source_system": event.SourceSystem,
		"facility":      event.Facility,
	})

	i.logger.Info("Patient admitted from EHR",
		zap.String("mrn", mrn.Masked()),
		zap.String("sector", p.Sector),
		zap.String("source_system", event.SourceSystem),
	)
}

func (i *Ingestor) handleDischarge(ctx context.Context, event DischargeEvent) {
	mrn, err := types.ParseMRN(event.PatientMRN)
	if err != nil {
		i.logger.Error("Rejecting discharge with invalid MRN",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
		return
	}

	p, err := i.registry.GetByMRN(ctx, mrn)
	if err != nil {
		i.logger.Warn("Discharge for unknown patient",
			zap.String("mrn", mrn.Masked()),
			zap.Error(err),
		)
		return
	}

	if err := i.registry.Delete(ctx, p.ID); err != nil {
		i.logger.Error("Failed to remove discharged patient",
			zap.String("mrn", mrn.Masked()),
			zap.Error(err),
		)
		return
	}

	i.publish(ctx, "patient.discharged", map[string]any{
		"mrn":           mrn.Masked(),
		"sector":        event.Ward,
		"source_system": event.SourceSystem,
	})

	i.logger.Info("Patient discharged from EHR",
		zap.String("mrn", mrn.Masked()),
		zap.String("sector", event.Ward),
	)
}

func (i *Ingestor) publish(ctx context.Context, eventType string, data map[string]any) {
	if i.bus == nil {
		return
	}
	event := events.NewEvent(eventType, "ehr-ingestor", data)
	if err := i.bus.Publish(ctx, event); err != nil {
		i.logger.Error("Failed to publish EHR event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
