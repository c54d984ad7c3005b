package sync

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

const logCols = `id, device_id, record_id, kind, patient_id, visit_id, payload, applied, error, queued_at, received_at`

func scanEntry(row pgx.Row) (*LogEntry, error) {
	var e LogEntry
	err := row.Scan(&e.ID, &e.DeviceID, &e.RecordID, &e.Kind, &e.PatientID, &e.VisitID,
		&e.Payload, &e.Applied, &e.Error, &e.QueuedAt, &e.ReceivedAt)
	return &e, err
}

func (r *repoPG) Journal(ctx context.Context, e *LogEntry) error {
	e.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO sync_log (id, device_id, record_id, kind, patient_id, visit_id, payload, applied, error, queued_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING received_at`,
		e.ID, e.DeviceID, e.RecordID, e.Kind, e.PatientID, e.VisitID,
		e.Payload, e.Applied, e.Error, e.QueuedAt).Scan(&e.ReceivedAt)
}

func (r *repoPG) ListRecent(ctx context.Context, limit, offset int) ([]*LogEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM sync_log`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+logCols+` FROM sync_log ORDER BY received_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*LogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, nil
}
