package referral

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var validStatuses = map[string]bool{
	StatusPending:   true,
	StatusApproved:  true,
	StatusRejected:  true,
	StatusCompleted: true,
}

// Terminal statuses can no longer change.
var terminal = map[string]bool{
	StatusRejected:  true,
	StatusCompleted: true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, ref *Referral) error {
	if ref.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if ref.ReferralType == "" {
		ref.ReferralType = TypeInternal
	}
	if ref.ReferralType != TypeInternal && ref.ReferralType != TypeExternal {
		return fmt.Errorf("invalid referral_type %q", ref.ReferralType)
	}
	ref.Reason = strings.TrimSpace(ref.Reason)
	if ref.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	if ref.Urgency == "" {
		ref.Urgency = "routine"
	}
	ref.Status = StatusPending
	return s.repo.Create(ctx, ref)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Referral, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Referral, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("invalid status %q", status)
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if terminal[current.Status] {
		return fmt.Errorf("referral is already %s", current.Status)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}
