package alert

import (
	"time"

	"github.com/vitalwatch/platform/internal/shared/types"
	"github.com/vitalwatch/platform/internal/triage"
)

// Status tracks an alert through its handling lifecycle.
type Status string

const (
	StatusOpen         Status = "open"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// Alert is one persisted deterioration alert for a patient. The category
// and scores are the values observed when the alert was raised or last
// refreshed; the live roster may have moved on since.
type Alert struct {
	ID             types.ID              `json:"id"`
	PatientID      types.ID              `json:"patient_id"`
	Category       triage.StatusCategory `json:"category"`
	StabilityIndex int                   `json:"stability_index"`
	News2Score     int                   `json:"news2_score"`
	Sector         string                `json:"sector"`

	Status          Status     `json:"status"`
	EscalationLevel int        `json:"escalation_level"`
	AcknowledgedBy  string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AcknowledgeRequest records who took ownership of an alert.
type AcknowledgeRequest struct {
	AcknowledgedBy string `json:"acknowledged_by"`
}

// ListAlertsFilter defines filters for listing alerts
type ListAlertsFilter struct {
	Status    *Status   `json:"status,omitempty"`
	PatientID *types.ID `json:"patient_id,omitempty"`
	Sector    *string   `json:"sector,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Offset    int       `json:"offset,omitempty"`
}
