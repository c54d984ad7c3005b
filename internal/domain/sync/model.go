package sync

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record kinds the intake knows how to apply.
const KindVitalSigns = "vital_signs"

// IncomingRecord is one client-queued mutation submitted for replay.
type IncomingRecord struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	PatientID string          `json:"patient_id"`
	VisitID   string          `json:"visit_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	QueuedAt  time.Time       `json:"queued_at"`
}

// PendingRequest is the body of a sync submission.
type PendingRequest struct {
	DeviceID string           `json:"device_id"`
	Records  []IncomingRecord `json:"records"`
}

// Result is the server's verdict on one submitted record. Applied false
// with an error message means the record was permanently rejected and the
// client should stop retrying it.
type Result struct {
	ID      string `json:"id"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// LogEntry maps to the sync_log journal table.
type LogEntry struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	DeviceID   *string         `db:"device_id" json:"device_id,omitempty"`
	RecordID   string          `db:"record_id" json:"record_id"`
	Kind       string          `db:"kind" json:"kind"`
	PatientID  *string         `db:"patient_id" json:"patient_id,omitempty"`
	VisitID    *string         `db:"visit_id" json:"visit_id,omitempty"`
	Payload    json.RawMessage `db:"payload" json:"payload"`
	Applied    bool            `db:"applied" json:"applied"`
	Error      *string         `db:"error" json:"error,omitempty"`
	QueuedAt   *time.Time      `db:"queued_at" json:"queued_at,omitempty"`
	ReceivedAt time.Time       `db:"received_at" json:"received_at"`
}
