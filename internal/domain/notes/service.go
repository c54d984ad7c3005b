package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var validTypes = map[string]bool{
	TypeAssessment: true,
	TypeDiagnosis:  true,
	TypeTreatment:  true,
	TypeCounseling: true,
	TypeClosure:    true,
	TypeGeneral:    true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, n *ClinicalNote) error {
	if n.VisitID == uuid.Nil {
		return fmt.Errorf("visit_id is required")
	}
	if n.NoteType == "" {
		n.NoteType = TypeGeneral
	}
	if !validTypes[n.NoteType] {
		return fmt.Errorf("invalid note_type %q", n.NoteType)
	}
	n.Content = strings.TrimSpace(n.Content)
	if n.Content == "" {
		return fmt.Errorf("content is required")
	}
	return s.repo.Create(ctx, n)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*ClinicalNote, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByVisit(ctx context.Context, visitID uuid.UUID, limit, offset int) ([]*ClinicalNote, int, error) {
	return s.repo.ListByVisit(ctx, visitID, limit, offset)
}
