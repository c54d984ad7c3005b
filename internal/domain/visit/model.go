package visit

import (
	"time"

	"github.com/google/uuid"
)

// Stage names for the fixed clinical pipeline, in order.
const (
	StageRegistration = "registration"
	StageNursing      = "nursing"
	StageDoctor       = "doctor"
	StageCounseling   = "counseling"
	StageClosure      = "closure"
)

// Stages is the pipeline in its fixed order.
var Stages = []string{StageRegistration, StageNursing, StageDoctor, StageCounseling, StageClosure}

// Visit maps to the patient_visits table.
type Visit struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	VisitType    string    `db:"visit_type" json:"visit_type"`
	CurrentStage string    `db:"current_stage" json:"current_stage"`
	Location     *string   `db:"location" json:"location,omitempty"`
	Status       string    `db:"status" json:"status"`
	CreatedBy    *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StageStatus is one entry of a visit's derived workflow status.
type StageStatus struct {
	Stage       string     `json:"stage"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// WorkflowStatus is the authoritative per-stage completion record for a
// visit, derived from the clinical artifacts actually persisted against it.
type WorkflowStatus struct {
	VisitID uuid.UUID     `json:"visit_id"`
	Stages  []StageStatus `json:"stages"`
}

// StageArtifacts carries the earliest persisted artifact per stage, the raw
// material the workflow status is derived from.
type StageArtifacts struct {
	VisitCreatedAt    time.Time
	FirstVitalsAt     *time.Time
	FirstDoctorNoteAt *time.Time
	FirstCounselingAt *time.Time
	FirstClosureAt    *time.Time
}
