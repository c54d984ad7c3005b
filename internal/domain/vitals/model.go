package vitals

import (
	"time"

	"github.com/google/uuid"
)

// VitalSigns maps to the vital_signs table.
type VitalSigns struct {
	ID                     uuid.UUID `db:"id" json:"id"`
	VisitID                uuid.UUID `db:"visit_id" json:"visit_id"`
	BloodPressureSystolic  *int      `db:"blood_pressure_systolic" json:"blood_pressure_systolic,omitempty"`
	BloodPressureDiastolic *int      `db:"blood_pressure_diastolic" json:"blood_pressure_diastolic,omitempty"`
	Temperature            *float64  `db:"temperature" json:"temperature,omitempty"`
	Weight                 *float64  `db:"weight" json:"weight,omitempty"`
	Height                 *float64  `db:"height" json:"height,omitempty"`
	Pulse                  *int      `db:"pulse" json:"pulse,omitempty"`
	RespiratoryRate        *int      `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	OxygenSaturation       *int      `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	Notes                  *string   `db:"notes" json:"notes,omitempty"`
	RecordedBy             *string   `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt             time.Time `db:"recorded_at" json:"recorded_at"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
}

// Empty reports whether the record carries no measurement and no note.
func (v *VitalSigns) Empty() bool {
	return v.BloodPressureSystolic == nil &&
		v.BloodPressureDiastolic == nil &&
		v.Temperature == nil &&
		v.Weight == nil &&
		v.Height == nil &&
		v.Pulse == nil &&
		v.RespiratoryRate == nil &&
		v.OxygenSaturation == nil &&
		(v.Notes == nil || *v.Notes == "")
}

// Summary is the read view of a visit's vitals: the most recent record plus
// a per-field merge of the latest non-null value, so sparse histories still
// prefill a usable form.
type Summary struct {
	Count       int           `json:"count"`
	Latest      *VitalSigns   `json:"latest,omitempty"`
	LastNonNull *VitalSigns   `json:"last_non_null,omitempty"`
	History     []*VitalSigns `json:"history"`
}
