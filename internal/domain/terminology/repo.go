package terminology

import "context"

type Repository interface {
	Search(ctx context.Context, query string, limit int) ([]*ICD10Code, error)
	GetByCode(ctx context.Context, code string) (*ICD10Code, error)
}
