package notes

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	notes map[uuid.UUID]*ClinicalNote
	order []uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{notes: map[uuid.UUID]*ClinicalNote{}}
}

func (m *mockRepo) Create(ctx context.Context, n *ClinicalNote) error {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	m.notes[n.ID] = n
	m.order = append(m.order, n.ID)
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*ClinicalNote, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, context.Canceled
	}
	return n, nil
}

func (m *mockRepo) ListByVisit(ctx context.Context, visitID uuid.UUID, limit, offset int) ([]*ClinicalNote, int, error) {
	var items []*ClinicalNote
	for i := len(m.order) - 1; i >= 0; i-- {
		n := m.notes[m.order[i]]
		if n.VisitID == visitID {
			items = append(items, n)
		}
	}
	return items, len(items), nil
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMockRepo())
	visitID := uuid.New()

	cases := []struct {
		name string
		note ClinicalNote
		want string
	}{
		{"missing visit", ClinicalNote{NoteType: TypeDiagnosis, Content: "x"}, "visit_id is required"},
		{"bad type", ClinicalNote{VisitID: visitID, NoteType: "Referral", Content: "x"}, "invalid note_type"},
		{"empty content", ClinicalNote{VisitID: visitID, NoteType: TypeDiagnosis, Content: "   "}, "content is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Create(context.Background(), &tc.note)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("got %v, want error containing %q", err, tc.want)
			}
		})
	}
}

func TestCreateDefaultsToGeneral(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	n := &ClinicalNote{VisitID: uuid.New(), Content: "  follow up in two weeks  "}
	if err := svc.Create(context.Background(), n); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.NoteType != TypeGeneral {
		t.Fatalf("note_type = %q, want %q", n.NoteType, TypeGeneral)
	}
	if n.Content != "follow up in two weeks" {
		t.Fatalf("content not trimmed: %q", n.Content)
	}
}

func TestListByVisitNewestFirst(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	visitID := uuid.New()
	for _, typ := range []string{TypeDiagnosis, TypeTreatment, TypeCounseling} {
		if err := svc.Create(context.Background(), &ClinicalNote{VisitID: visitID, NoteType: typ, Content: typ}); err != nil {
			t.Fatalf("create %s: %v", typ, err)
		}
	}
	items, total, err := svc.ListByVisit(context.Background(), visitID, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("got %d items, total %d", len(items), total)
	}
	if items[0].NoteType != TypeCounseling || items[2].NoteType != TypeDiagnosis {
		t.Fatalf("wrong order: %s .. %s", items[0].NoteType, items[2].NoteType)
	}
}
