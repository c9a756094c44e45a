package notification

import (
	"time"

	"github.com/vitalwatch/platform/internal/shared/types"
)

// Channel selects the delivery transport for a notification.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
)

// Priority orders notifications for delivery and preference filtering.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityUrgent   Priority = "urgent"
	PriorityNormal   Priority = "normal"
)

// Status tracks a notification through its delivery lifecycle.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Notification is one message to a care-team member about a patient alert.
type Notification struct {
	ID        string   `json:"id"`
	Channel   Channel  `json:"channel"`
	Priority  Priority `json:"priority"`
	Recipient string   `json:"recipient"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`

	AlertID   types.ID `json:"alert_id,omitempty"`
	PatientID types.ID `json:"patient_id,omitempty"`

	Status       Status     `json:"status"`
	RetryCount   int        `json:"retry_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Stats aggregates delivery outcomes since service start.
type Stats struct {
	TotalSent      int64              `json:"total_sent"`
	TotalDelivered int64              `json:"total_delivered"`
	TotalFailed    int64              `json:"total_failed"`
	ByChannel      map[Channel]int64  `json:"by_channel"`
	ByPriority     map[Priority]int64 `json:"by_priority"`
	DeliveryRate   float64            `json:"delivery_rate"`
}
