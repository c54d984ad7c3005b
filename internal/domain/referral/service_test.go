package referral

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	referrals map[uuid.UUID]*Referral
}

func newMockRepo() *mockRepo {
	return &mockRepo{referrals: map[uuid.UUID]*Referral{}}
}

func (m *mockRepo) Create(ctx context.Context, r *Referral) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.referrals[r.ID] = r
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Referral, error) {
	r, ok := m.referrals[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return r, nil
}

func (m *mockRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Referral, int, error) {
	var items []*Referral
	for _, r := range m.referrals {
		if r.PatientID == patientID {
			items = append(items, r)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	r, ok := m.referrals[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return nil
}

func strp(s string) *string { return &s }

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMockRepo())
	patientID := uuid.New()

	cases := []struct {
		name string
		ref  Referral
		want string
	}{
		{"missing patient", Referral{Reason: "x-ray"}, "patient_id is required"},
		{"bad type", Referral{PatientID: patientID, ReferralType: "urgent", Reason: "x"}, "invalid referral_type"},
		{"empty reason", Referral{PatientID: patientID, Reason: "  "}, "reason is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Create(context.Background(), &tc.ref)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("got %v, want error containing %q", err, tc.want)
			}
		})
	}
}

func TestCreateDefaults(t *testing.T) {
	svc := NewService(newMockRepo())
	ref := &Referral{
		PatientID:  uuid.New(),
		Reason:     "specialist review",
		Provider:   strp("Dr Dlamini"),
		Department: strp("Cardiology"),
	}
	if err := svc.Create(context.Background(), ref); err != nil {
		t.Fatalf("create: %v", err)
	}
	if ref.ReferralType != TypeInternal {
		t.Fatalf("referral_type = %q, want %q", ref.ReferralType, TypeInternal)
	}
	if ref.Urgency != "routine" {
		t.Fatalf("urgency = %q, want routine", ref.Urgency)
	}
	if ref.Status != StatusPending {
		t.Fatalf("status = %q, want pending", ref.Status)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ref := &Referral{PatientID: uuid.New(), Reason: "follow-up"}
	if err := svc.Create(context.Background(), ref); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.UpdateStatus(context.Background(), ref.ID, "escalated"); err == nil {
		t.Fatal("expected invalid status to be rejected")
	}
	if err := svc.UpdateStatus(context.Background(), ref.ID, StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := svc.UpdateStatus(context.Background(), ref.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	err := svc.UpdateStatus(context.Background(), ref.ID, StatusApproved)
	if err == nil || !strings.Contains(err.Error(), "already completed") {
		t.Fatalf("expected terminal status error, got %v", err)
	}
}
