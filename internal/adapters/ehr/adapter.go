package ehr

import (
	"context"
	"time"
)

// Adapter connects to a hospital EHR system and surfaces the patient data
// the triage platform needs: demographic records and admission/discharge
// movements. Implementations exist per vendor system (Medis today).
type Adapter interface {
	// Patient data retrieval
	FetchPatientRecord(ctx context.Context, mrn string) (*PatientRecord, error)

	// Real-time event subscriptions
	SubscribeAdmissions(ctx context.Context, handler AdmissionHandler) error
	SubscribeDischarges(ctx context.Context, handler DischargeHandler) error

	// Adapter metadata
	SourceSystem() string
	Facility() string
	IsConnected() bool

	// Lifecycle
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) error
}

// AdmissionHandler is called when a new patient admission is detected
type AdmissionHandler func(event AdmissionEvent)

// DischargeHandler is called when a patient is discharged
type DischargeHandler func(event DischargeEvent)

// PatientRecord is a patient's demographic record as held by the EHR.
type PatientRecord struct {
	LocalID     string    `json:"local_id"`
	MRN         string    `json:"mrn"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Condition   string    `json:"condition,omitempty"`
	Ward        string    `json:"ward,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// Age derives the patient's age at the given time.
func (r *PatientRecord) Age(at time.Time) int {
	years := at.Year() - r.DateOfBirth.Year()
	if at.YearDay() < r.DateOfBirth.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// AdmissionEvent represents a patient admission
type AdmissionEvent struct {
	EventID      string    `json:"event_id"`
	Timestamp    time.Time `json:"timestamp"`
	PatientMRN   string    `json:"patient_mrn"`
	PatientName  string    `json:"patient_name"`
	Ward         string    `json:"ward"`
	Condition    string    `json:"condition,omitempty"`
	SourceSystem string    `json:"source_system"`
	Facility     string    `json:"facility"`
}

// DischargeEvent represents a patient discharge
type DischargeEvent struct {
	EventID       string    `json:"event_id"`
	Timestamp     time.Time `json:"timestamp"`
	PatientMRN    string    `json:"patient_mrn"`
	PatientName   string    `json:"patient_name"`
	Ward          string    `json:"ward"`
	AdmissionDate time.Time `json:"admission_date"`
	DischargeDate time.Time `json:"discharge_date"`
	SourceSystem  string    `json:"source_system"`
	Facility      string    `json:"facility"`
}

// Config holds the common EHR adapter settings.
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"ssl_mode"`

	FacilityName    string        `json:"facility_name"`
	PollInterval    time.Duration `json:"poll_interval"`
	EventBufferSize int           `json:"event_buffer_size"`
}

// DefaultConfig returns default adapter settings
func DefaultConfig() Config {
	return Config{
		Port:            1433,
		SSLMode:         "disable",
		PollInterval:    time.Minute,
		EventBufferSize: 256,
	}
}
