package medis

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver
	"github.com/vitalwatch/platform/internal/adapters/ehr"
)

// Adapter implements ehr.Adapter for the Medis hospital information system.
// Medis exposes a read-only SQL Server reporting replica; admissions and
// discharges are discovered by polling the hospitalization table.
type Adapter struct {
	db     *sql.DB
	config Config

	// Event channels
	admissionChan chan ehr.AdmissionEvent
	dischargeChan chan ehr.DischargeEvent

	// State
	running  bool
	mu       sync.RWMutex
	cancel   context.CancelFunc
	lastPoll time.Time
	wg       sync.WaitGroup
}

// Config holds Medis adapter configuration
type Config struct {
	ehr.Config

	// Medis-specific settings
	PatientTable         string `json:"patient_table"`
	HospitalizationTable string `json:"hospitalization_table"`
}

// DefaultConfig returns default Medis configuration
func DefaultConfig() Config {
	return Config{
		Config:               ehr.DefaultConfig(),
		PatientTable:         "dbo.Patients",
		HospitalizationTable: "dbo.Hospitalizations",
	}
}

// New creates a new Medis adapter
func New(cfg Config) (*Adapter, error) {
	return &Adapter{
		config:        cfg,
		admissionChan: make(chan ehr.AdmissionEvent, cfg.EventBufferSize),
		dischargeChan: make(chan ehr.DischargeEvent, cfg.EventBufferSize),
	}, nil
}

// Start initializes the database connection and starts polling
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("adapter already running")
	}

	connStr := fmt.Sprintf("server=%s;port=%d;database=%s;user id=%s;password=%s",
		a.config.Host,
		a.config.Port,
		a.config.Database,
		a.config.User,
		a.config.Password,
	)
	if a.config.SSLMode != "disable" {
		connStr += ";encrypt=true;TrustServerCertificate=true"
	}

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = db
	a.running = true
	a.lastPoll = time.Now().Add(-a.config.PollInterval)

	pollCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(1)
	go a.pollLoop(pollCtx)

	return nil
}

// Stop stops the adapter and closes connections
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}

	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	close(a.admissionChan)
	close(a.dischargeChan)

	if a.db != nil {
		a.db.Close()
	}

	a.running = false
	return nil
}

// Health checks database connectivity
func (a *Adapter) Health(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.running {
		return fmt.Errorf("adapter not running")
	}
	return a.db.PingContext(ctx)
}

// SourceSystem returns the source system name
func (a *Adapter) SourceSystem() string {
	return "medis"
}

// Facility returns the facility name
func (a *Adapter) Facility() string {
	return a.config.FacilityName
}

// IsConnected returns connection status
func (a *Adapter) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running && a.db != nil
}

// FetchPatientRecord retrieves patient data by MRN
func (a *Adapter) FetchPatientRecord(ctx context.Context, mrn string) (*ehr.PatientRecord, error) {
	if !a.IsConnected() {
		return nil, fmt.Errorf("adapter not connected")
	}

	query := fmt.Sprintf(`
		SELECT
			PatientID,
			MRN,
			FirstName,
			LastName,
			DateOfBirth,
			PrimaryCondition,
			Ward,
			LastModified
		FROM %s
		WHERE MRN = @mrn
	`, a.config.PatientTable)

	row := a.db.QueryRowContext(ctx, query, sql.Named("mrn", mrn))

	var record ehr.PatientRecord
	var condition, ward sql.NullString

	err := row.Scan(
		&record.LocalID,
		&record.MRN,
		&record.FirstName,
		&record.LastName,
		&record.DateOfBirth,
		&condition,
		&ward,
		&record.LastUpdated,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("patient not found: %s", mrn)
		}
		return nil, fmt.Errorf("failed to fetch patient: %w", err)
	}

	if condition.Valid {
		record.Condition = condition.String
	}
	if ward.Valid {
		record.Ward = ward.String
	}

	return &record, nil
}

// SubscribeAdmissions delivers admission events to the handler until the
// context is cancelled.
func (a *Adapter) SubscribeAdmissions(ctx context.Context, handler ehr.AdmissionHandler) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-a.admissionChan:
				if !ok {
					return
				}
				handler(event)
			}
		}
	}()
	return nil
}

// SubscribeDischarges delivers discharge events to the handler until the
// context is cancelled.
func (a *Adapter) SubscribeDischarges(ctx context.Context, handler ehr.DischargeHandler) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-a.dischargeChan:
				if !ok {
					return
				}
				handler(event)
			}
		}
	}()
	return nil
}

// pollLoop polls for new admissions and discharges
func (a *Adapter) pollLoop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.mu.Lock()
			lastPoll := a.lastPoll
			a.lastPoll = time.Now()
			a.mu.Unlock()

			if err := a.pollAdmissions(ctx, lastPoll); err != nil {
				fmt.Printf("Error polling admissions: %v\n", err)
			}
			if err := a.pollDischarges(ctx, lastPoll); err != nil {
				fmt.Printf("Error polling discharges: %v\n", err)
			}
		}
	}
}

// pollAdmissions checks for new admissions since lastPoll
func (a *Adapter) pollAdmissions(ctx context.Context, since time.Time) error {
	query := fmt.Sprintf(`
		SELECT
			h.HospitalizationID,
			h.AdmissionDate,
			p.MRN,
			p.FirstName + ' ' + p.LastName as PatientName,
			h.Ward,
			h.PrimaryCondition
		FROM %s h
		INNER JOIN %s p ON h.PatientID = p.PatientID
		WHERE h.AdmissionDate > @since
		ORDER BY h.AdmissionDate ASC
	`, a.config.HospitalizationTable, a.config.PatientTable)

	rows, err := a.db.QueryContext(ctx, query, sql.Named("since", since))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var event ehr.AdmissionEvent
		var condition sql.NullString

		err := rows.Scan(
			&event.EventID,
			&event.Timestamp,
			&event.PatientMRN,
			&event.PatientName,
			&event.Ward,
			&condition,
		)
		if err != nil {
			continue
		}

		if condition.Valid {
			event.Condition = condition.String
		}
		event.SourceSystem = a.SourceSystem()
		event.Facility = a.Facility()

		select {
		case a.admissionChan <- event:
		default:
			// Channel full, skip event
		}
	}

	return rows.Err()
}

// pollDischarges checks for new discharges since lastPoll
func (a *Adapter) pollDischarges(ctx context.Context, since time.Time) error {
	query := fmt.Sprintf(`
		SELECT
			h.HospitalizationID,
			h.DischargeDate,
			p.MRN,
			p.FirstName + ' ' + p.LastName as PatientName,
			h.Ward,
			h.AdmissionDate
		FROM %s h
		INNER JOIN %s p ON h.PatientID = p.PatientID
		WHERE h.DischargeDate > @since
		  AND h.DischargeDate IS NOT NULL
		ORDER BY h.DischargeDate ASC
	`, a.config.HospitalizationTable, a.config.PatientTable)

	rows, err := a.db.QueryContext(ctx, query, sql.Named("since", since))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var event ehr.DischargeEvent

		err := rows.Scan(
			&event.EventID,
			&event.Timestamp,
			&event.PatientMRN,
			&event.PatientName,
			&event.Ward,
			&event.AdmissionDate,
		)
		if err != nil {
			continue
		}

		event.DischargeDate = event.Timestamp
		event.SourceSystem = a.SourceSystem()
		event.Facility = a.Facility()

		select {
		case a.dischargeChan <- event:
		default:
			// Channel full, skip event
		}
	}

	return rows.Err()
}
