package patient

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
	byMember map[string]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients: make(map[uuid.UUID]*Patient),
		byMember: make(map[string]*Patient),
	}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	if _, exists := m.byMember[p.MemberNumber]; exists {
		return fmt.Errorf("duplicate member number")
	}
	p.ID = uuid.New()
	m.patients[p.ID] = p
	m.byMember[p.MemberNumber] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockRepo) GetByMemberNumber(_ context.Context, memberNumber string) (*Patient, error) {
	p, ok := m.byMember[memberNumber]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		items = append(items, p)
	}
	return items, len(items), nil
}

func (m *mockRepo) Search(_ context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		if strings.Contains(strings.ToLower(p.MemberNumber), strings.ToLower(query)) ||
			strings.Contains(strings.ToLower(p.LastName), strings.ToLower(query)) {
			items = append(items, p)
		}
	}
	return items, len(items), nil
}

func TestCreateRequiresIdentity(t *testing.T) {
	svc := NewService(newMockRepo())

	tests := []struct {
		name    string
		patient Patient
		wantErr string
	}{
		{"missing member number", Patient{FirstName: "Thandi", LastName: "Nkosi"}, "member_number"},
		{"missing first name", Patient{MemberNumber: "POL-001", LastName: "Nkosi"}, "first_name"},
		{"missing last name", Patient{MemberNumber: "POL-001", FirstName: "Thandi"}, "last_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Create(context.Background(), &tt.patient)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestCreateAndLookupByMemberNumber(t *testing.T) {
	svc := NewService(newMockRepo())

	p := &Patient{MemberNumber: " POL-12345 ", FirstName: "Thandi", LastName: "Nkosi"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Fatal("id not assigned")
	}
	if p.MemberNumber != "POL-12345" {
		t.Errorf("member number = %q, want trimmed", p.MemberNumber)
	}

	got, err := svc.GetByMemberNumber(context.Background(), "POL-12345")
	if err != nil {
		t.Fatalf("GetByMemberNumber: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("lookup returned id %s, want %s", got.ID, p.ID)
	}
}

func TestListWithQueryUsesSearch(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	for _, p := range []*Patient{
		{MemberNumber: "POL-001", FirstName: "Thandi", LastName: "Nkosi"},
		{MemberNumber: "POL-002", FirstName: "Sipho", LastName: "Dlamini"},
	} {
		if err := svc.Create(context.Background(), p); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	items, total, err := svc.List(context.Background(), "dlamini", 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].LastName != "Dlamini" {
		t.Errorf("search results = %v (total %d)", items, total)
	}

	items, total, err = svc.List(context.Background(), "", 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 {
		t.Errorf("unfiltered total = %d, want 2", total)
	}
}
