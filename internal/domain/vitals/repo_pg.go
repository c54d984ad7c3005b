package vitals

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polmed/mobiclinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const vitalsCols = `id, visit_id, blood_pressure_systolic, blood_pressure_diastolic, temperature, weight, height, pulse, respiratory_rate, oxygen_saturation, notes, recorded_by, recorded_at, created_at`

func scanVitals(row pgx.Row) (*VitalSigns, error) {
	var v VitalSigns
	err := row.Scan(&v.ID, &v.VisitID, &v.BloodPressureSystolic, &v.BloodPressureDiastolic,
		&v.Temperature, &v.Weight, &v.Height, &v.Pulse, &v.RespiratoryRate, &v.OxygenSaturation,
		&v.Notes, &v.RecordedBy, &v.RecordedAt, &v.CreatedAt)
	return &v, err
}

func (r *repoPG) Create(ctx context.Context, v *VitalSigns) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vital_signs (id, visit_id, blood_pressure_systolic, blood_pressure_diastolic,
			temperature, weight, height, pulse, respiratory_rate, oxygen_saturation, notes, recorded_by, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,COALESCE($13, NOW()))`,
		v.ID, v.VisitID, v.BloodPressureSystolic, v.BloodPressureDiastolic,
		v.Temperature, v.Weight, v.Height, v.Pulse, v.RespiratoryRate, v.OxygenSaturation,
		v.Notes, v.RecordedBy, nilTime(v.RecordedAt))
	return err
}

func (r *repoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*VitalSigns, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+vitalsCols+` FROM vital_signs WHERE visit_id = $1 ORDER BY recorded_at DESC`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*VitalSigns
	for rows.Next() {
		v, err := scanVitals(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}

func nilTime(t interface{ IsZero() bool }) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
