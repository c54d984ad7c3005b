package workflow

import (
	"context"
	"time"
)

// Note types persisted at stage completion.
const (
	NoteAssessment = "Assessment"
	NoteDiagnosis  = "Diagnosis"
	NoteTreatment  = "Treatment"
	NoteCounseling = "Counseling"
	NoteClosure    = "Closure"
)

// Visit is the engine's read handle on one clinical encounter.
type Visit struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Stage     string    `json:"current_stage"`
	CreatedAt time.Time `json:"created_at"`
}

// NewVisit is the payload for lazy visit creation.
type NewVisit struct {
	VisitType string `json:"visit_type"`
	Location  string `json:"location,omitempty"`
}

// VitalSigns is the wire form of one vitals record.
type VitalSigns struct {
	BloodPressureSystolic  *int     `json:"blood_pressure_systolic,omitempty"`
	BloodPressureDiastolic *int     `json:"blood_pressure_diastolic,omitempty"`
	Temperature            *float64 `json:"temperature,omitempty"`
	Weight                 *float64 `json:"weight,omitempty"`
	Height                 *float64 `json:"height,omitempty"`
	Pulse                  *int     `json:"pulse,omitempty"`
	RespiratoryRate        *int     `json:"respiratory_rate,omitempty"`
	OxygenSaturation       *int     `json:"oxygen_saturation,omitempty"`
	Notes                  string   `json:"notes,omitempty"`
}

// VitalsSummary is the backend's read view of a visit's vitals: the most
// recent record plus a per-field latest-non-null merge for sparse histories.
type VitalsSummary struct {
	Count       int         `json:"count"`
	Latest      *VitalSigns `json:"latest,omitempty"`
	LastNonNull *VitalSigns `json:"last_non_null,omitempty"`
}

// StageRecord is one entry of the authoritative workflow snapshot.
type StageRecord struct {
	Stage       Stage      `json:"stage"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Snapshot is the backend's authoritative per-stage completion record for a
// visit. Local step state is rebuilt from it on every load.
type Snapshot []StageRecord

// Completed reports whether the snapshot marks the given stage done.
func (s Snapshot) Completed(stage Stage) (bool, *time.Time) {
	for _, r := range s {
		if r.Stage == stage {
			return r.Completed, r.CompletedAt
		}
	}
	return false, nil
}

// NewNote is the payload for one typed clinical note.
type NewNote struct {
	NoteType         string   `json:"note_type"`
	Content          string   `json:"content"`
	ICD10Codes       []string `json:"icd10_codes,omitempty"`
	Medications      []string `json:"medications_prescribed,omitempty"`
	FollowUpRequired bool     `json:"follow_up_required,omitempty"`
	FollowUpDate     string   `json:"follow_up_date,omitempty"`
}

// Note is a persisted clinical note as returned by the backend.
type Note struct {
	ID          string    `json:"id"`
	NoteType    string    `json:"note_type"`
	Content     string    `json:"content"`
	ICD10Codes  []string  `json:"icd10_codes,omitempty"`
	Medications []string  `json:"medications_prescribed,omitempty"`
	AuthorName  string    `json:"author_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewReferral is the payload for the independent referral side-channel.
type NewReferral struct {
	ReferralType    string `json:"referral_type"` // internal or external
	FromStage       string `json:"from_stage"`
	ToStage         string `json:"to_stage,omitempty"`
	Provider        string `json:"provider,omitempty"`
	Department      string `json:"department,omitempty"`
	Reason          string `json:"reason"`
	Notes           string `json:"notes,omitempty"`
	AppointmentDate string `json:"appointment_date,omitempty"`
	VisitID         string `json:"visit_id,omitempty"`
}

// Referral is a persisted referral record.
type Referral struct {
	ID           string    `json:"id"`
	ReferralType string    `json:"referral_type"`
	FromStage    string    `json:"from_stage"`
	ToStage      string    `json:"to_stage,omitempty"`
	Reason       string    `json:"reason"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// ICD10Match is one ranked result from a diagnostic code search.
type ICD10Match struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	IsCommon    bool   `json:"is_common,omitempty"`
}

// Backend is the REST collaborator the engine persists against. The backend
// owns all durable state; the engine only holds the visit identifier.
type Backend interface {
	CreateVisit(ctx context.Context, patientID string, v NewVisit) (string, error)
	LatestVisit(ctx context.Context, patientID string) (*Visit, error)
	AddVitals(ctx context.Context, visitID string, v VitalSigns) error
	VisitVitals(ctx context.Context, visitID string) (*VitalsSummary, error)
	WorkflowStatus(ctx context.Context, visitID string) (Snapshot, error)
	CreateNote(ctx context.Context, visitID string, n NewNote) error
	VisitNotes(ctx context.Context, visitID string) ([]Note, error)
	CreateReferral(ctx context.Context, patientID string, r NewReferral) (*Referral, error)
	Referrals(ctx context.Context, patientID string) ([]Referral, error)
	SearchICD10(ctx context.Context, query string, limit int) ([]ICD10Match, error)
}

// FailedRecord describes an offline-queued write whose sync was permanently
// rejected after the workflow had already advanced past it.
type FailedRecord struct {
	Kind     string
	Error    string
	QueuedAt time.Time
}

// Queue is the durable local store for writes made while offline. Entries are
// drained by an external sync process; the engine only enqueues and inspects
// permanently failed entries on load.
type Queue interface {
	Enqueue(ctx context.Context, kind, patientID, visitID string, payload any) error
	FailedFor(patientID string) ([]FailedRecord, error)
}
