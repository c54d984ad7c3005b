package terminology

import (
	"context"
	"fmt"
	"strings"
)

const (
	minQueryLength = 2
	maxLimit       = 50
)

// Service provides diagnostic code lookup operations.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Search searches ICD-10 codes by code prefix or description text.
// Queries shorter than two characters are rejected.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*ICD10Code, error) {
	query = strings.TrimSpace(query)
	if len(query) < minQueryLength {
		return nil, fmt.Errorf("query must be at least %d characters", minQueryLength)
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return s.repo.Search(ctx, query, limit)
}

// Lookup resolves a single ICD-10 code.
func (s *Service) Lookup(ctx context.Context, code string) (*ICD10Code, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}
	return s.repo.GetByCode(ctx, code)
}
