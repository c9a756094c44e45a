package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitalwatch/platform/internal/shared/errors"
	"github.com/vitalwatch/platform/internal/shared/metrics"
	"github.com/vitalwatch/platform/internal/shared/types"
)

// Repository provides database operations for the patient registry
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new patient repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const patientColumns = `id, mrn, first_name, last_name, age, condition, sector, source_system, created_at, updated_at`

// Create registers a new patient
func (r *Repository) Create(ctx context.Context, p *Patient) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("patient_create", time.Since(start)) }()

	query := `
		INSERT INTO patients (
			id, mrn, first_name, last_name, age, condition, sector, source_system
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.MRN, p.FirstName, p.LastName, p.Age, p.Condition, p.Sector, p.SourceSystem,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("patient with this MRN already exists")
		}
		return errors.Wrap(err, "failed to create patient")
	}

	return nil
}

// Get retrieves a patient by ID
func (r *Repository) Get(ctx context.Context, id types.ID) (*Patient, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("patient_get", time.Since(start)) }()

	query := fmt.Sprintf(`SELECT %s FROM patients WHERE id = $1`, patientColumns)

	p := &Patient{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.Age,
		&p.Condition, &p.Sector, &p.SourceSystem, &p.CreatedAt, &p.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("patient", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get patient")
	}

	return p, nil
}

// GetByMRN retrieves a patient by medical record number
func (r *Repository) GetByMRN(ctx context.Context, mrn types.MRN) (*Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE mrn = $1`, patientColumns)

	p := &Patient{}
	err := r.pool.QueryRow(ctx, query, mrn).Scan(
		&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.Age,
		&p.Condition, &p.Sector, &p.SourceSystem, &p.CreatedAt, &p.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("patient", mrn.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get patient by MRN")
	}

	return p, nil
}

// Update updates a patient
func (r *Repository) Update(ctx context.Context, p *Patient) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("patient_update", time.Since(start)) }()

	query := `
		UPDATE patients SET
			first_name = $2, last_name = $3, age = $4,
			condition = $5, sector = $6, source_system = $7,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		p.ID, p.FirstName, p.LastName, p.Age, p.Condition, p.Sector, p.SourceSystem,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update patient")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("patient", p.ID.String())
	}

	return nil
}

// Upsert creates or refreshes a patient record keyed by MRN. Used by EHR
// ingestion, which replays admissions and must stay idempotent.
func (r *Repository) Upsert(ctx context.Context, p *Patient) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("patient_upsert", time.Since(start)) }()

	query := `
		INSERT INTO patients (
			id, mrn, first_name, last_name, age, condition, sector, source_system
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (mrn) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			age = EXCLUDED.age,
			condition = EXCLUDED.condition,
			sector = EXCLUDED.sector,
			source_system = EXCLUDED.source_system,
			updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.MRN, p.FirstName, p.LastName, p.Age, p.Condition, p.Sector, p.SourceSystem,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert patient")
	}

	return nil
}

// Delete removes a patient from the registry
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete patient")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("patient", id.String())
	}

	return nil
}

// List retrieves patients matching the filter
func (r *Repository) List(ctx context.Context, filter ListPatientsFilter) ([]*Patient, int, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("patient_list", time.Since(start)) }()

	var conditions []string
	var args []any
	argPos := 1

	if filter.Sector != nil {
		conditions = append(conditions, fmt.Sprintf("sector = $%d", argPos))
		args = append(args, *filter.Sector)
		argPos++
	}
	if filter.Condition != nil {
		conditions = append(conditions, fmt.Sprintf("condition = $%d", argPos))
		args = append(args, *filter.Condition)
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR mrn ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM patients" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count patients")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := fmt.Sprintf(
		`SELECT %s FROM patients%s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`,
		patientColumns, where, argPos, argPos+1,
	)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list patients")
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p := &Patient{}
		if err := rows.Scan(
			&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.Age,
			&p.Condition, &p.Sector, &p.SourceSystem, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan patient")
		}
		patients = append(patients, p)
	}

	return patients, total, nil
}

// Sectors returns the distinct sector labels present in the registry
func (r *Repository) Sectors(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT sector FROM patients WHERE sector <> '' ORDER BY sector`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sectors")
	}
	defer rows.Close()

	var sectors []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errors.Wrap(err, "failed to scan sector")
		}
		sectors = append(sectors, s)
	}

	return sectors, nil
}
