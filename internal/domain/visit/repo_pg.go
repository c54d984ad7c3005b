package visit

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

const visitCols = `id, patient_id, visit_type, current_stage, location, status, created_by, created_at, updated_at`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.VisitType, &v.CurrentStage, &v.Location,
		&v.Status, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt)
	return &v, err
}

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_visits (id, patient_id, visit_type, current_stage, location, status, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		v.ID, v.PatientID, v.VisitType, v.CurrentStage, v.Location, v.Status, v.CreatedBy)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return scanVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+` FROM patient_visits WHERE id = $1`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_visits WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+visitCols+` FROM patient_visits
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, nil
}

func (r *repoPG) UpdateStage(ctx context.Context, id uuid.UUID, stage string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient_visits SET current_stage=$2, updated_at=NOW() WHERE id = $1`, id, stage)
	return err
}

func (r *repoPG) Close(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient_visits SET status='closed', current_stage=$2, updated_at=NOW() WHERE id = $1`, id, StageClosure)
	return err
}

func (r *repoPG) StageArtifacts(ctx context.Context, id uuid.UUID) (*StageArtifacts, error) {
	var a StageArtifacts
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			v.created_at,
			(SELECT MIN(recorded_at) FROM vital_signs WHERE visit_id = v.id),
			(SELECT MIN(created_at) FROM clinical_notes WHERE visit_id = v.id AND note_type IN ('Diagnosis','Treatment')),
			(SELECT MIN(created_at) FROM clinical_notes WHERE visit_id = v.id AND note_type = 'Counseling'),
			(SELECT MIN(created_at) FROM clinical_notes WHERE visit_id = v.id AND note_type = 'Closure')
		FROM patient_visits v WHERE v.id = $1`, id).
		Scan(&a.VisitCreatedAt, &a.FirstVitalsAt, &a.FirstDoctorNoteAt, &a.FirstCounselingAt, &a.FirstClosureAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
