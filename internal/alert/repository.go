package alert

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

// Repository provides database operations for alerts
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new alert repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const alertColumns = `id, patient_id, category, stability_index, news2_score, sector,
	status, escalation_level, acknowledged_by, acknowledged_at, resolved_at, created_at, updated_at`

func scanAlert(row pgx.Row) (*Alert, error) {
	a := &Alert{}
	err := row.Scan(
		&a.ID, &a.PatientID, &a.Category, &a.StabilityIndex, &a.News2Score, &a.Sector,
		&a.Status, &a.EscalationLevel, &a.AcknowledgedBy, &a.AcknowledgedAt,
		&a.ResolvedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create persists a new alert
func (r *Repository) Create(ctx context.Context, a *Alert) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("alert_create", time.Since(start)) }()

	query := `
		INSERT INTO alerts (
			id, patient_id, category, stability_index, news2_score, sector, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.PatientID, a.Category, a.StabilityIndex, a.News2Score, a.Sector, a.Status,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create alert")
	}
	return nil
}

// Get retrieves an alert by ID
func (r *Repository) Get(ctx context.Context, id types.ID) (*Alert, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("alert_get", time.Since(start)) }()

	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE id = $1`, alertColumns)

	a, err := scanAlert(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("alert", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get alert")
	}
	return a, nil
}

// FindOpenByPatient returns the patient's unresolved alert, or nil when none
// exists. At most one unresolved alert is kept per patient.
func (r *Repository) FindOpenByPatient(ctx context.Context, patientID types.ID) (*Alert, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("alert_find_open", time.Since(start)) }()

	query := fmt.Sprintf(`
		SELECT %s FROM alerts
		WHERE patient_id = $1 AND status != 'resolved'
		ORDER BY created_at DESC
		LIMIT 1`, alertColumns)

	a, err := scanAlert(r.pool.QueryRow(ctx, query, patientID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find open alert")
	}
	return a, nil
}

// RefreshObservation updates the scores on an open alert after a new roster
// cycle observed the same patient.
func (r *Repository) RefreshObservation(ctx context.Context, a *Alert) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("alert_refresh", time.Since(start)) }()

	query := `
		UPDATE alerts SET
			category = $2, stability_index = $3, news2_score = $4, sector = $5,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, a.ID, a.Category, a.StabilityIndex, a.News2Score, a.Sector)
	if err != nil {
		return errors.Wrap(err, "failed to refresh alert")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("alert", a.ID.String())
	}
	return nil
}

// Acknowledge marks an open alert as acknowledged by a care-team member.
func (r *Repository) Acknowledge(ctx context.Context, id types.ID, by string) (*Alert, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("alert_acknowledge", time.Since(start)) }()

	query := fmt.Sprintf(`
		UPDATE alerts SET
			status = 'acknowledged', acknowledged_by = $2, acknowledged_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'open'
		RETURNING %s`, alertColumns)

	a, err := scanAlert(r.pool.QueryRow(ctx, query, id, by))
	if err == pgx.ErrNoRows {
		return nil, errors.Conflict("alert is not open")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to acknowledge alert")
	}
	return a, nil
}

// Resolve closes an alert.
func (r *Repository) Resolve(ctx context.Context, id types.ID) (*Alert, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("alert_resolve", time.Since(start)) }()

	query := fmt.Sprintf(`
		UPDATE alerts SET
			status = 'resolved', resolved_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status != 'resolved'
		RETURNING %s`, alertColumns)

	a, err := scanAlert(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.Conflict("alert is already resolved")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve alert")
	}
	return a, nil
}

// SetEscalationLevel records the current escalation level on an alert.
func (r *Repository) SetEscalationLevel(ctx context.Context, id types.ID, level int) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("alert_set_level", time.Since(start)) }()

	query := `UPDATE alerts SET escalation_level = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, level)
	if err != nil {
		return errors.Wrap(err, "failed to set escalation level")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("alert", id.String())
	}
	return nil
}

// List lists alerts matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListAlertsFilter) ([]*Alert, int, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("alert_list", time.Since(start)) }()

	where := []string{"1=1"}
	args := []any{}
	argN := 1

	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, *filter.Status)
		argN++
	}
	if filter.PatientID != nil {
		where = append(where, fmt.Sprintf("patient_id = $%d", argN))
		args = append(args, *filter.PatientID)
		argN++
	}
	if filter.Sector != nil {
		where = append(where, fmt.Sprintf("sector = $%d", argN))
		args = append(args, *filter.Sector)
		argN++
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM alerts WHERE %s`, whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count alerts")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	query := fmt.Sprintf(`
		SELECT %s FROM alerts
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, alertColumns, whereClause, argN, argN+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list alerts")
	}
	defer rows.Close()

	alerts := make([]*Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan alert")
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "failed to read alerts")
	}

	return alerts, total, nil
}
