package patient

import (
	"time"

	"github.com/vitalwatch/platform/internal/shared/types"
)

// Patient represents a monitored patient in the registry. Scored metrics
// (stability index, NEWS2, trend) are not stored here; they are supplied by
// the scoring service per roster snapshot.
type Patient struct {
	ID           types.ID  `json:"id"`
	MRN          types.MRN `json:"mrn"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Age          int       `json:"age"`
	Condition    string    `json:"condition"`
	Sector       string    `json:"sector"`
	SourceSystem string    `json:"source_system,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName returns the patient's full name
func (p Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// CreatePatientRequest is the request to register a patient
type CreatePatientRequest struct {
	MRN       string `json:"mrn"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
	Condition string `json:"condition"`
	Sector    string `json:"sector"`
}

// UpdatePatientRequest is the request to update a patient
type UpdatePatientRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Age       *int    `json:"age,omitempty"`
	Condition *string `json:"condition,omitempty"`
	Sector    *string `json:"sector,omitempty"`
}

// ListPatientsFilter defines filters for listing patients
type ListPatientsFilter struct {
	Sector    *string `json:"sector,omitempty"`
	Condition *string `json:"condition,omitempty"`
	Search    string  `json:"search,omitempty"`
	Limit     int     `json:"limit,omitempty"`
	Offset    int     `json:"offset,omitempty"`
}
