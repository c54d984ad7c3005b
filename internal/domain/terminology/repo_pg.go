package terminology

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polmed/mobiclinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// Search ranks code-prefix matches first, then commonly used codes,
// then description matches.
func (r *repoPG) Search(ctx context.Context, query string, limit int) ([]*ICD10Code, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT code, description, COALESCE(category,''), is_common
		 FROM icd10_codes
		 WHERE code ILIKE $1 || '%' OR description ILIKE '%' || $1 || '%'
		 ORDER BY (code ILIKE $1 || '%') DESC, is_common DESC, code
		 LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("icd10 search: %w", err)
	}
	defer rows.Close()
	var results []*ICD10Code
	for rows.Next() {
		var c ICD10Code
		if err := rows.Scan(&c.Code, &c.Description, &c.Category, &c.IsCommon); err != nil {
			return nil, err
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*ICD10Code, error) {
	var c ICD10Code
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT code, description, COALESCE(category,''), is_common
		 FROM icd10_codes WHERE code = $1`, code).
		Scan(&c.Code, &c.Description, &c.Category, &c.IsCommon)
	if err != nil {
		return nil, fmt.Errorf("icd10 get: %w", err)
	}
	return &c, nil
}
