package vitals

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Physiological plausibility bounds. Values outside these are data entry
// mistakes, not clinical findings.
func validateRanges(v *VitalSigns) error {
	checkInt := func(name string, p *int, lo, hi int) error {
		if p != nil && (*p < lo || *p > hi) {
			return fmt.Errorf("%s %d out of range (%d-%d)", name, *p, lo, hi)
		}
		return nil
	}
	checkFloat := func(name string, p *float64, lo, hi float64) error {
		if p != nil && (*p < lo || *p > hi) {
			return fmt.Errorf("%s %g out of range (%g-%g)", name, *p, lo, hi)
		}
		return nil
	}
	checks := []error{
		checkInt("blood_pressure_systolic", v.BloodPressureSystolic, 50, 300),
		checkInt("blood_pressure_diastolic", v.BloodPressureDiastolic, 30, 200),
		checkFloat("temperature", v.Temperature, 30, 45),
		checkFloat("weight", v.Weight, 0.5, 500),
		checkFloat("height", v.Height, 20, 280),
		checkInt("pulse", v.Pulse, 20, 300),
		checkInt("respiratory_rate", v.RespiratoryRate, 4, 80),
		checkInt("oxygen_saturation", v.OxygenSaturation, 40, 100),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a record without persisting it.
func Validate(v *VitalSigns) error {
	if v.Empty() {
		return fmt.Errorf("at least one measurement or a note is required")
	}
	return validateRanges(v)
}

func (s *Service) Create(ctx context.Context, v *VitalSigns) error {
	if v.VisitID == uuid.Nil {
		return fmt.Errorf("visit_id is required")
	}
	if err := Validate(v); err != nil {
		return err
	}
	return s.repo.Create(ctx, v)
}

// Summary returns the visit's vitals history together with the latest
// record and the per-field latest-non-null merge.
func (s *Service) Summary(ctx context.Context, visitID uuid.UUID) (*Summary, error) {
	history, err := s.repo.ListByVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Count: len(history), History: history}
	if len(history) == 0 {
		return sum, nil
	}
	sum.Latest = history[0]
	sum.LastNonNull = mergeLastNonNull(history)
	return sum, nil
}

// mergeLastNonNull walks the history newest-first and keeps the first
// non-null value seen for each field.
func mergeLastNonNull(history []*VitalSigns) *VitalSigns {
	merged := &VitalSigns{}
	for _, v := range history {
		if merged.BloodPressureSystolic == nil {
			merged.BloodPressureSystolic = v.BloodPressureSystolic
		}
		if merged.BloodPressureDiastolic == nil {
			merged.BloodPressureDiastolic = v.BloodPressureDiastolic
		}
		if merged.Temperature == nil {
			merged.Temperature = v.Temperature
		}
		if merged.Weight == nil {
			merged.Weight = v.Weight
		}
		if merged.Height == nil {
			merged.Height = v.Height
		}
		if merged.Pulse == nil {
			merged.Pulse = v.Pulse
		}
		if merged.RespiratoryRate == nil {
			merged.RespiratoryRate = v.RespiratoryRate
		}
		if merged.OxygenSaturation == nil {
			merged.OxygenSaturation = v.OxygenSaturation
		}
		if merged.Notes == nil {
			merged.Notes = v.Notes
		}
	}
	return merged
}
