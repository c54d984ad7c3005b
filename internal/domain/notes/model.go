package notes

import (
	"time"

	"github.com/google/uuid"
)

// Note types produced by the clinical workflow.
const (
	TypeAssessment = "Assessment"
	TypeDiagnosis  = "Diagnosis"
	TypeTreatment  = "Treatment"
	TypeCounseling = "Counseling"
	TypeClosure    = "Closure"
	TypeGeneral    = "General"
)

// ClinicalNote maps to the clinical_notes table.
type ClinicalNote struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	VisitID               uuid.UUID `db:"visit_id" json:"visit_id"`
	NoteType              string    `db:"note_type" json:"note_type"`
	Content               string    `db:"content" json:"content"`
	ICD10Codes            []string  `db:"icd10_codes" json:"icd10_codes,omitempty"`
	MedicationsPrescribed []string  `db:"medications_prescribed" json:"medications_prescribed,omitempty"`
	FollowUpRequired      bool      `db:"follow_up_required" json:"follow_up_required"`
	FollowUpDate          *string   `db:"follow_up_date" json:"follow_up_date,omitempty"`
	AuthorID              *string   `db:"author_id" json:"author_id,omitempty"`
	AuthorName            *string   `db:"author_name" json:"author_name,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}
