package ehr

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vitalwatch/platform/internal/patient"
	"github.com/vitalwatch/platform/internal/shared/types"
)

type fakeAdapter struct {
	records    map[string]*PatientRecord
	admissions AdmissionHandler
	discharges DischargeHandler
}

func (f *fakeAdapter) FetchPatientRecord(ctx context.Context, mrn string) (*PatientRecord, error) {
	if r, ok := f.records[mrn]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("patient not found: %s", mrn)
}

func (f *fakeAdapter) SubscribeAdmissions(ctx context.Context, handler AdmissionHandler) error {
	f.admissions = handler
	return nil
}

func (f *fakeAdapter) SubscribeDischarges(ctx context.Context, handler DischargeHandler) error {
	f.discharges = handler
	return nil
}

func (f *fakeAdapter) SourceSystem() string             { return "medis" }
func (f *fakeAdapter) Facility() string                 { return "General Hospital" }
func (f *fakeAdapter) IsConnected() bool                { return true }
func (f *fakeAdapter) Start(ctx context.Context) error  { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error   { return nil }
func (f *fakeAdapter) Health(ctx context.Context) error { return nil }

type fakeRegistry struct {
	upserted []*patient.Patient
	deleted  []types.ID
	byMRN    map[string]*patient.Patient
}

func (f *fakeRegistry) Upsert(ctx context.Context, p *patient.Patient) error {
	f.upserted = append(f.upserted, p)
	return nil
}

func (f *fakeRegistry) GetByMRN(ctx context.Context, mrn types.MRN) (*patient.Patient, error) {
	if p, ok := f.byMRN[mrn.String()]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("not found")
}

func (f *fakeRegistry) Delete(ctx context.Context, id types.ID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestIngestAdmission(t *testing.T) {
	adapter := &fakeAdapter{
		records: map[string]*PatientRecord{
			"GH-1234566": {
				MRN:         "GH-1234566",
				FirstName:   "Mara",
				LastName:    "Novak",
				DateOfBirth: time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC),
				Condition:   "copd",
			},
		},
	}
	registry := &fakeRegistry{}
	ingestor := NewIngestor(adapter, registry, nil, zap.NewNop())

	ctx := context.Background()
	if err := ingestor.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	adapter.admissions(AdmissionEvent{
		EventID:      "H-1",
		PatientMRN:   "GH-1234566",
		PatientName:  "Mara Novak",
		Ward:         "cardiology",
		SourceSystem: "medis",
	})

	if len(registry.upserted) != 1 {
		t.Fatalf("Expected 1 upsert, got %d", len(registry.upserted))
	}
	p := registry.upserted[0]
	if p.FirstName != "Mara" || p.LastName != "Novak" {
		t.Errorf("Expected name from EHR record, got %s %s", p.FirstName, p.LastName)
	}
	if p.Sector != "cardiology" {
		t.Errorf("Expected sector cardiology, got %s", p.Sector)
	}
	if p.Condition != "copd" {
		t.Errorf("Expected condition copd, got %s", p.Condition)
	}
	if p.Age <= 0 {
		t.Errorf("Expected derived age, got %d", p.Age)
	}
}

func TestIngestAdmissionRejectsInvalidMRN(t *testing.T) {
	adapter := &fakeAdapter{}
	registry := &fakeRegistry{}
	ingestor := NewIngestor(adapter, registry, nil, zap.NewNop())

	if err := ingestor.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	adapter.admissions(AdmissionEvent{
		EventID:    "H-2",
		PatientMRN: "not-an-mrn",
	})

	if len(registry.upserted) != 0 {
		t.Errorf("Expected invalid MRN to be rejected, got %d upserts", len(registry.upserted))
	}
}

func TestIngestAdmissionFallsBackToEventName(t *testing.T) {
	adapter := &fakeAdapter{}
	registry := &fakeRegistry{}
	ingestor := NewIngestor(adapter, registry, nil, zap.NewNop())

	if err := ingestor.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	adapter.admissions(AdmissionEvent{
		EventID:     "H-3",
		PatientMRN:  "GH-1234566",
		PatientName: "Ana Maria Petrov",
		Ward:        "icu",
	})

	if len(registry.upserted) != 1 {
		t.Fatalf("Expected 1 upsert, got %d", len(registry.upserted))
	}
	p := registry.upserted[0]
	if p.FirstName != "Ana" || p.LastName != "Maria Petrov" {
		t.Errorf("Expected split event name, got %q %q", p.FirstName, p.LastName)
	}
}

func TestIngestDischarge(t *testing.T) {
	existing := &patient.Patient{ID: types.NewID()}
	adapter := &fakeAdapter{}
	registry := &fakeRegistry{
		byMRN: map[string]*patient.Patient{"GH-1234566": existing},
	}
	ingestor := NewIngestor(adapter, registry, nil, zap.NewNop())

	if err := ingestor.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	adapter.discharges(DischargeEvent{
		EventID:    "H-4",
		PatientMRN: "GH-1234566",
		Ward:       "cardiology",
	})

	if len(registry.deleted) != 1 {
		t.Fatalf("Expected 1 delete, got %d", len(registry.deleted))
	}
	if registry.deleted[0] != existing.ID {
		t.Errorf("Expected discharged patient removed")
	}
}

func TestIngestDischargeUnknownPatient(t *testing.T) {
	adapter := &fakeAdapter{}
	registry := &fakeRegistry{}
	ingestor := NewIngestor(adapter, registry, nil, zap.NewNop())

	if err := ingestor.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	adapter.discharges(DischargeEvent{
		EventID:    "H-5",
		PatientMRN: "GH-1234566",
	})

	if len(registry.deleted) != 0 {
		t.Errorf("Expected no deletes for unknown patient")
	}
}
