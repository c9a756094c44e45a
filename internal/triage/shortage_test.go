package triage

import (
	"reflect"
	"testing"
)

func metric(sector string, trend Trend) PatientMetric {
	return PatientMetric{Sector: sector, Trend: trend, StabilityIndex: 50, News2Score: 1}
}

func TestPredictShortagesEmptyRoster(t *testing.T) {
	engine := Default()

	got := engine.PredictShortages(nil)
	if len(got) != 0 {
		t.Errorf("Expected empty report for empty roster, got %v", got)
	}

	got = engine.PredictShortages([]PatientMetric{})
	if len(got) != 0 {
		t.Errorf("Expected empty report for empty slice, got %v", got)
	}
}

func TestPredictShortagesNoDeterioration(t *testing.T) {
	engine := Default()

	roster := []PatientMetric{
		metric("A", TrendUp),
		metric("A", TrendFlat),
		metric("B", TrendUp),
	}

	if got := engine.PredictShortages(roster); len(got) != 0 {
		t.Errorf("Expected no shortages, got %v", got)
	}
}

func TestPredictShortagesGroupsBySector(t *testing.T) {
	engine := Default()

	roster := []PatientMetric{
		metric("A", TrendDown),
		metric("A", TrendDown),
		metric("B", TrendUp),
	}

	got := engine.PredictShortages(roster)
	if len(got) != 1 {
		t.Fatalf("Expected exactly one report, got %d", len(got))
	}
	if got[0].Sector != "A" {
		t.Errorf("Expected sector A, got %s", got[0].Sector)
	}
	if got[0].PatientsAtRisk != 2 {
		t.Errorf("Expected 2 patients at risk, got %d", got[0].PatientsAtRisk)
	}
}

func TestPredictShortagesSeverityTiers(t *testing.T) {
	engine := Default()

	tests := []struct {
		name   string
		roster []PatientMetric
		want   ShortageSeverity
	}{
		{
			// 1 of 4 down: below both thresholds
			name: "moderate below thresholds",
			roster: []PatientMetric{
				metric("A", TrendDown),
				metric("A", TrendUp),
				metric("A", TrendFlat),
				metric("A", TrendFlat),
			},
			want: ShortageModerate,
		},
		{
			// 3 down hits the absolute count threshold
			name: "high at absolute count",
			roster: []PatientMetric{
				metric("A", TrendDown),
				metric("A", TrendDown),
				metric("A", TrendDown),
				metric("A", TrendUp),
				metric("A", TrendUp),
				metric("A", TrendUp),
				metric("A", TrendUp),
			},
			want: ShortageHigh,
		},
		{
			// 1 of 2 down hits the 50% ratio threshold
			name: "high at ratio boundary",
			roster: []PatientMetric{
				metric("A", TrendDown),
				metric("A", TrendUp),
			},
			want: ShortageHigh,
		},
		{
			// 2 of 5 down: 40% and below count threshold
			name: "moderate just under ratio",
			roster: []PatientMetric{
				metric("A", TrendDown),
				metric("A", TrendDown),
				metric("A", TrendUp),
				metric("A", TrendUp),
				metric("A", TrendFlat),
			},
			want: ShortageModerate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.PredictShortages(tt.roster)
			if len(got) != 1 {
				t.Fatalf("Expected one report, got %d", len(got))
			}
			if got[0].Severity != tt.want {
				t.Errorf("Expected severity %s, got %s", tt.want, got[0].Severity)
			}
		})
	}
}

func TestPredictShortagesMissingSector(t *testing.T) {
	engine := Default()

	roster := []PatientMetric{
		metric("", TrendDown),
		metric("", TrendDown),
	}

	got := engine.PredictShortages(roster)
	if len(got) != 1 {
		t.Fatalf("Expected one report, got %d", len(got))
	}
	if got[0].Sector != UnknownSector {
		t.Errorf("Expected sector %q, got %q", UnknownSector, got[0].Sector)
	}
}

func TestPredictShortagesOrdering(t *testing.T) {
	engine := Default()

	roster := []PatientMetric{
		metric("icu", TrendDown),
		metric("west", TrendDown),
		metric("west", TrendDown),
		metric("east", TrendDown),
	}

	got := engine.PredictShortages(roster)

	sectors := make([]string, len(got))
	for i, r := range got {
		sectors[i] = r.Sector
	}

	// Most at-risk first, ties broken by sector name.
	want := []string{"west", "east", "icu"}
	if !reflect.DeepEqual(sectors, want) {
		t.Errorf("Expected order %v, got %v", want, sectors)
	}
}

func TestPredictShortagesIdempotent(t *testing.T) {
	engine := Default()

	roster := []PatientMetric{
		metric("A", TrendDown),
		metric("B", TrendDown),
		metric("B", TrendFlat),
	}

	first := engine.PredictShortages(roster)
	second := engine.PredictShortages(roster)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("PredictShortages not idempotent: %v vs %v", first, second)
	}
}
