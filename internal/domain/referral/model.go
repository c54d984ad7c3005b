package referral

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeInternal = "internal"
	TypeExternal = "external"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
)

// Referral maps to the referrals table.
type Referral struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	VisitID         *uuid.UUID `db:"visit_id" json:"visit_id,omitempty"`
	ReferralType    string     `db:"referral_type" json:"referral_type"`
	FromStage       *string    `db:"from_stage" json:"from_stage,omitempty"`
	ToStage         *string    `db:"to_stage" json:"to_stage,omitempty"`
	Provider        *string    `db:"provider" json:"provider,omitempty"`
	Department      *string    `db:"department" json:"department,omitempty"`
	Reason          string     `db:"reason" json:"reason"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	Urgency         string     `db:"urgency" json:"urgency"`
	AppointmentDate *string    `db:"appointment_date" json:"appointment_date,omitempty"`
	Status          string     `db:"status" json:"status"`
	CreatedBy       *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
