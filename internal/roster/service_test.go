package roster

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/vitalwatch/platform/internal/patient"
	"github.com/vitalwatch/platform/internal/scoring"
	"github.com/vitalwatch/platform/internal/shared/types"
	"github.com/vitalwatch/platform/internal/triage"
)

type fakePatientSource struct {
	patients []*patient.Patient
	err      error
}

func (f *fakePatientSource) List(ctx context.Context, filter patient.ListPatientsFilter) ([]*patient.Patient, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	if filter.Offset >= len(f.patients) {
		return nil, len(f.patients), nil
	}
	end := filter.Offset + filter.Limit
	if end > len(f.patients) {
		end = len(f.patients)
	}
	return f.patients[filter.Offset:end], len(f.patients), nil
}

type fakeScorer struct {
	scores []scoring.VitalScore
	err    error
}

func (f *fakeScorer) ScoreBatch(ctx context.Context, patients []scoring.ScoreRequest) ([]scoring.VitalScore, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func testPatient(first, last, sector string) *patient.Patient {
	return &patient.Patient{
		ID:        types.NewID(),
		FirstName: first,
		LastName:  last,
		Age:       70,
		Condition: "copd",
		Sector:    sector,
	}
}

func TestSnapshotOrdersBySeverity(t *testing.T) {
	stable := testPatient("Ana", "Stable", "north")
	critical := testPatient("Bo", "Critical", "north")
	major := testPatient("Cy", "Major", "south")

	source := &fakePatientSource{patients: []*patient.Patient{stable, critical, major}}
	scorer := &fakeScorer{scores: []scoring.VitalScore{
		{PatientID: stable.ID, StabilityIndex: 90, News2Score: 0, Trend: triage.TrendFlat},
		{PatientID: critical.ID, StabilityIndex: 20, News2Score: 3, Trend: triage.TrendDown},
		{PatientID: major.ID, StabilityIndex: 55, News2Score: 1, Trend: triage.TrendDown},
	}}

	svc := NewService(source, scorer, triage.Default(), nil, zap.NewNop())

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if len(snap.Entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(snap.Entries))
	}
	if snap.Entries[0].ID != critical.ID {
		t.Errorf("Expected critical patient first, got %s", snap.Entries[0].Category)
	}
	if snap.Entries[1].ID != major.ID {
		t.Errorf("Expected major patient second, got %s", snap.Entries[1].Category)
	}
	if snap.Entries[2].ID != stable.ID {
		t.Errorf("Expected stable patient last, got %s", snap.Entries[2].Category)
	}

	if snap.Totals[triage.StatusCritical] != 1 || snap.Totals[triage.StatusMajor] != 1 || snap.Totals[triage.StatusStable] != 1 {
		t.Errorf("Unexpected totals: %v", snap.Totals)
	}
}

func TestSnapshotDerivesPolicies(t *testing.T) {
	p := testPatient("Dee", "Emergency", "east")
	source := &fakePatientSource{patients: []*patient.Patient{p}}
	scorer := &fakeScorer{scores: []scoring.VitalScore{
		{PatientID: p.ID, StabilityIndex: 40, News2Score: 2, Trend: triage.TrendDown},
	}}

	svc := NewService(source, scorer, triage.Default(), nil, zap.NewNop())

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	entry := snap.Entries[0]
	if entry.Category != triage.StatusMajor {
		t.Errorf("Expected major, got %s", entry.Category)
	}
	if entry.Policy.Mode != triage.ModeEmergency {
		t.Errorf("Expected emergency mode, got %s", entry.Policy.Mode)
	}
	if !entry.AtRisk() {
		t.Error("Expected downward-trending entry to be at risk")
	}
}

func TestSnapshotSkipsUnscoredPatients(t *testing.T) {
	scored := testPatient("Eve", "Scored", "west")
	unscored := testPatient("Fay", "Unscored", "west")

	source := &fakePatientSource{patients: []*patient.Patient{scored, unscored}}
	scorer := &fakeScorer{scores: []scoring.VitalScore{
		{PatientID: scored.ID, StabilityIndex: 80, News2Score: 0, Trend: triage.TrendFlat},
	}}

	svc := NewService(source, scorer, triage.Default(), nil, zap.NewNop())

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if len(snap.Entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(snap.Entries))
	}
	if snap.Unscored != 1 {
		t.Errorf("Expected 1 unscored patient, got %d", snap.Unscored)
	}
}

func TestSnapshotSkipsOutOfRangeScores(t *testing.T) {
	p := testPatient("Gil", "Broken", "west")
	source := &fakePatientSource{patients: []*patient.Patient{p}}
	scorer := &fakeScorer{scores: []scoring.VitalScore{
		{PatientID: p.ID, StabilityIndex: 150, News2Score: 0, Trend: triage.TrendFlat},
	}}

	svc := NewService(source, scorer, triage.Default(), nil, zap.NewNop())

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if len(snap.Entries) != 0 {
		t.Errorf("Expected out-of-range score to be excluded, got %d entries", len(snap.Entries))
	}
	if snap.Unscored != 1 {
		t.Errorf("Expected rejected score counted as unscored, got %d", snap.Unscored)
	}
}

func TestSnapshotPredictsShortages(t *testing.T) {
	a1 := testPatient("Hal", "One", "sector-a")
	a2 := testPatient("Ida", "Two", "sector-a")
	b1 := testPatient("Jon", "Three", "sector-b")

	source := &fakePatientSource{patients: []*patient.Patient{a1, a2, b1}}
	scorer := &fakeScorer{scores: []scoring.VitalScore{
		{PatientID: a1.ID, StabilityIndex: 50, News2Score: 1, Trend: triage.TrendDown},
		{PatientID: a2.ID, StabilityIndex: 60, News2Score: 1, Trend: triage.TrendDown},
		{PatientID: b1.ID, StabilityIndex: 90, News2Score: 0, Trend: triage.TrendUp},
	}}

	svc := NewService(source, scorer, triage.Default(), nil, zap.NewNop())

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if len(snap.Shortages) != 1 {
		t.Fatalf("Expected 1 shortage report, got %d", len(snap.Shortages))
	}
	if snap.Shortages[0].Sector != "sector-a" {
		t.Errorf("Expected sector-a at risk, got %s", snap.Shortages[0].Sector)
	}
	if snap.Shortages[0].PatientsAtRisk != 2 {
		t.Errorf("Expected 2 patients at risk, got %d", snap.Shortages[0].PatientsAtRisk)
	}
}

func TestSnapshotScorerFailure(t *testing.T) {
	source := &fakePatientSource{patients: []*patient.Patient{testPatient("Kim", "Lee", "north")}}
	scorer := &fakeScorer{err: errors.New("scoring service down")}

	svc := NewService(source, scorer, triage.Default(), nil, zap.NewNop())

	if _, err := svc.Snapshot(context.Background()); err == nil {
		t.Fatal("Expected error when scorer fails, got nil")
	}
}

func TestExportXLSX(t *testing.T) {
	p := testPatient("Lia", "Row", "north")
	source := &fakePatientSource{patients: []*patient.Patient{p}}
	scorer := &fakeScorer{scores: []scoring.VitalScore{
		{PatientID: p.ID, StabilityIndex: 30, News2Score: 2, Trend: triage.TrendDown},
	}}

	svc := NewService(source, scorer, triage.Default(), nil, zap.NewNop())
	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	data, err := ExportXLSX(snap)
	if err != nil {
		t.Fatalf("ExportXLSX failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("Expected non-empty workbook")
	}
}
