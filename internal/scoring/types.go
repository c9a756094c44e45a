package scoring

import (
	"time"

	"github.com/vitalwatch/platform/internal/shared/types"
	"github.com/vitalwatch/platform/internal/triage"
)

// ScoreRequest identifies one patient whose vitals should be scored.
type ScoreRequest struct {
	PatientID types.ID `json:"patient_id"`
	Sector    string   `json:"sector,omitempty"`
}

// VitalScore is the scoring service's assessment of a single patient.
type VitalScore struct {
	PatientID      types.ID     `json:"patient_id"`
	StabilityIndex int          `json:"stability_index"`
	News2Score     int          `json:"news2_score"`
	Trend          triage.Trend `json:"trend"`
	ScoredAt       time.Time    `json:"scored_at"`
}

// scoreBatchRequest is the wire format of a batch scoring call.
type scoreBatchRequest struct {
	Patients []ScoreRequest `json:"patients"`
}

// scoreBatchResponse is the wire format of a batch scoring result.
type scoreBatchResponse struct {
	Scores []VitalScore `json:"scores"`
	Model  string       `json:"model,omitempty"`
}

// healthResponse is the scoring service health payload.
type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model,omitempty"`
}
