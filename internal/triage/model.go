package triage

import (
	"encoding/json"
	"time"

	"github.com/vitalwatch/platform/internal/shared/types"
)

// StatusCategory is the derived severity bucket for a patient. It has no
// identity of its own; it is recomputed from the metric on every read.
type StatusCategory string

const (
	StatusCritical StatusCategory = "critical"
	StatusMajor    StatusCategory = "major"
	StatusMinor    StatusCategory = "minor"
	StatusStable   StatusCategory = "stable"
)

// Trend is the short-term direction of a patient's stability index,
// supplied by the scoring service.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// SyncMode selects the telemetry cadence class for a patient.
type SyncMode string

const (
	// ModeEmergency streams vitals at a sub-minute cadence
	ModeEmergency SyncMode = "emergency"
	// ModePowerSave backs off to a multi-minute cadence for stable patients
	ModePowerSave SyncMode = "power-save"
)

// Duration renders as a duration string ("15s", "5m") in JSON, matching the
// portal contract for sync intervals.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// PatientMetric is one patient's scored snapshot as delivered by the roster
// supplier. StabilityIndex and News2Score are computed upstream by the
// scoring service and treated as inputs here.
type PatientMetric struct {
	ID             types.ID `json:"id"`
	Name           string   `json:"name,omitempty"`
	Age            int      `json:"age,omitempty"`
	Condition      string   `json:"condition,omitempty"`
	StabilityIndex int      `json:"stabilityIndex"`
	News2Score     int      `json:"news2Score"`
	Trend          Trend    `json:"trend"`
	Sector         string   `json:"sector"`
}

// SyncPolicy is the derived telemetry cadence decision for one patient.
// Never persisted; recomputed on every read.
type SyncPolicy struct {
	Mode     SyncMode `json:"mode"`
	Interval Duration `json:"interval"`
}

// ShortageSeverity tiers a sector's predicted resource shortage.
type ShortageSeverity string

const (
	ShortageHigh     ShortageSeverity = "high"
	ShortageModerate ShortageSeverity = "moderate"
)

// ShortageReport flags one sector at risk of an ambulance/resource shortage.
type ShortageReport struct {
	Sector         string           `json:"sector"`
	PatientsAtRisk int              `json:"patientsAtRisk"`
	Severity       ShortageSeverity `json:"severity"`
}

// UnknownSector buckets metrics that arrive without a sector label, so a
// deteriorating unassigned patient still shows up in shortage prediction.
const UnknownSector = "unknown"
