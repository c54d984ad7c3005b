package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	p.MemberNumber = strings.TrimSpace(p.MemberNumber)
	if p.MemberNumber == "" {
		return fmt.Errorf("member_number is required")
	}
	if strings.TrimSpace(p.FirstName) == "" {
		return fmt.Errorf("first_name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("last_name is required")
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByMemberNumber(ctx context.Context, memberNumber string) (*Patient, error) {
	if strings.TrimSpace(memberNumber) == "" {
		return nil, fmt.Errorf("member_number is required")
	}
	return s.repo.GetByMemberNumber(ctx, memberNumber)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("id is required")
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) List(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	if q := strings.TrimSpace(query); q != "" {
		return s.repo.Search(ctx, q, limit, offset)
	}
	return s.repo.List(ctx, limit, offset)
}
