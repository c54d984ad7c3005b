package vitals

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	byVisit map[uuid.UUID][]*VitalSigns
}

func newMockRepo() *mockRepo {
	return &mockRepo{byVisit: make(map[uuid.UUID][]*VitalSigns)}
}

func (m *mockRepo) Create(_ context.Context, v *VitalSigns) error {
	v.ID = uuid.New()
	// newest first, matching the pg repo's ordering
	m.byVisit[v.VisitID] = append([]*VitalSigns{v}, m.byVisit[v.VisitID]...)
	return nil
}

func (m *mockRepo) ListByVisit(_ context.Context, visitID uuid.UUID) ([]*VitalSigns, error) {
	return m.byVisit[visitID], nil
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func TestCreateRejectsEmptyRecord(t *testing.T) {
	svc := NewService(newMockRepo())
	err := svc.Create(context.Background(), &VitalSigns{VisitID: uuid.New()})
	if err == nil || !strings.Contains(err.Error(), "at least one") {
		t.Errorf("err = %v", err)
	}
}

func TestCreateValidatesRanges(t *testing.T) {
	svc := NewService(newMockRepo())
	visitID := uuid.New()

	tests := []struct {
		name string
		v    VitalSigns
	}{
		{"temperature too high", VitalSigns{VisitID: visitID, Temperature: floatp(48)}},
		{"negative pulse", VitalSigns{VisitID: visitID, Pulse: intp(-10)}},
		{"saturation above 100", VitalSigns{VisitID: visitID, OxygenSaturation: intp(120)}},
		{"systolic too low", VitalSigns{VisitID: visitID, BloodPressureSystolic: intp(10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Create(context.Background(), &tt.v); err == nil || !strings.Contains(err.Error(), "out of range") {
				t.Errorf("err = %v, want out-of-range", err)
			}
		})
	}

	ok := VitalSigns{VisitID: visitID, Temperature: floatp(37.2), Pulse: intp(72)}
	if err := svc.Create(context.Background(), &ok); err != nil {
		t.Errorf("plausible record rejected: %v", err)
	}
}

func TestSummaryMergesLastNonNull(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	visitID := uuid.New()

	older := &VitalSigns{
		VisitID:     visitID,
		Temperature: floatp(36.5),
		Weight:      floatp(80),
		Pulse:       intp(70),
		RecordedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	newer := &VitalSigns{
		VisitID:    visitID,
		Weight:     floatp(81.5),
		RecordedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	if err := svc.Create(context.Background(), older); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Create(context.Background(), newer); err != nil {
		t.Fatalf("Create: %v", err)
	}

	sum, err := svc.Summary(context.Background(), visitID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Count != 2 {
		t.Errorf("count = %d, want 2", sum.Count)
	}
	if sum.Latest == nil || sum.Latest.Weight == nil || *sum.Latest.Weight != 81.5 {
		t.Errorf("latest = %+v", sum.Latest)
	}
	if sum.Latest.Temperature != nil {
		t.Error("latest temperature should be nil (not measured in the newest record)")
	}
	merged := sum.LastNonNull
	if merged == nil {
		t.Fatal("last_non_null missing")
	}
	if merged.Weight == nil || *merged.Weight != 81.5 {
		t.Errorf("merged weight = %v, want the newest value", merged.Weight)
	}
	if merged.Temperature == nil || *merged.Temperature != 36.5 {
		t.Errorf("merged temperature = %v, want the older fallback", merged.Temperature)
	}
	if merged.Pulse == nil || *merged.Pulse != 70 {
		t.Errorf("merged pulse = %v", merged.Pulse)
	}
}

func TestSummaryEmptyVisit(t *testing.T) {
	svc := NewService(newMockRepo())
	sum, err := svc.Summary(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Count != 0 || sum.Latest != nil || sum.LastNonNull != nil {
		t.Errorf("summary = %+v, want empty", sum)
	}
}
