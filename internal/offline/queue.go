// Package offline is the durable local store for writes made while the
// clinic has no connectivity. Records are appended to a JSON-lines log and
// carry a per-entry sync status, so eventual reconciliation can surface
// permanently rejected writes instead of silently dropping them.
package offline

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/polmed/mobiclinic/internal/workflow"
)

// Status is the sync state of one queued record.
type Status string

const (
	StatusPending Status = "pending"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
)

// Record is one queued mutation awaiting sync.
type Record struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	PatientID string          `json:"patient_id"`
	VisitID   string          `json:"visit_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Status    Status          `json:"status"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
	QueuedAt  time.Time       `json:"queued_at"`
	SyncedAt  *time.Time      `json:"synced_at,omitempty"`
}

// Queue is a file-backed append-only log of offline mutations. Appends go
// straight to the log file; status changes rewrite it atomically.
type Queue struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	records []Record
	log     zerolog.Logger
}

// Open loads (or creates) the queue log at path.
func Open(path string, log zerolog.Logger) (*Queue, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create queue directory: %w", err)
	}

	q := &Queue{path: path, log: log}
	if err := q.load(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open queue log: %w", err)
	}
	q.file = f
	return q, nil
}

func (q *Queue) load() error {
	f, err := os.Open(q.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open queue log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			// A torn final line from a crash mid-append is dropped.
			q.log.Warn().Int("line", line).Err(err).Msg("skipping corrupt queue entry")
			continue
		}
		q.records = append(q.records, rec)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read queue log: %w", err)
	}
	return nil
}

// Close releases the underlying log file.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.file == nil {
		return nil
	}
	err := q.file.Close()
	q.file = nil
	return err
}

// Enqueue appends a pending record to the log. Implements workflow.Queue.
func (q *Queue) Enqueue(_ context.Context, kind, patientID, visitID string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	rec := Record{
		ID:        uuid.New().String(),
		Kind:      kind,
		PatientID: patientID,
		VisitID:   visitID,
		Payload:   raw,
		Status:    StatusPending,
		QueuedAt:  time.Now().UTC(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.file == nil {
		return fmt.Errorf("queue is closed")
	}
	if err := q.appendLocked(rec); err != nil {
		return err
	}
	q.records = append(q.records, rec)
	q.log.Debug().Str("record_id", rec.ID).Str("kind", kind).Msg("queued offline record")
	return nil
}

func (q *Queue) appendLocked(rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	line = append(line, '\n')
	if _, err := q.file.Write(line); err != nil {
		return fmt.Errorf("append queue record: %w", err)
	}
	return q.file.Sync()
}

// Pending returns all records still awaiting sync, oldest first.
func (q *Queue) Pending() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Record
	for _, rec := range q.records {
		if rec.Status == StatusPending {
			out = append(out, rec)
		}
	}
	return out
}

// Failed returns all permanently rejected records.
func (q *Queue) Failed() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Record
	for _, rec := range q.records {
		if rec.Status == StatusFailed {
			out = append(out, rec)
		}
	}
	return out
}

// FailedFor reports permanently rejected records for one patient, in the
// shape the workflow engine surfaces as a retroactive alert.
func (q *Queue) FailedFor(patientID string) ([]workflow.FailedRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []workflow.FailedRecord
	for _, rec := range q.records {
		if rec.Status == StatusFailed && rec.PatientID == patientID {
			out = append(out, workflow.FailedRecord{
				Kind:     rec.Kind,
				Error:    rec.LastError,
				QueuedAt: rec.QueuedAt,
			})
		}
	}
	return out, nil
}

// MarkSynced records a successful sync for the given record.
func (q *Queue) MarkSynced(id string) error {
	now := time.Now().UTC()
	return q.update(id, func(rec *Record) {
		rec.Status = StatusSynced
		rec.SyncedAt = &now
		rec.LastError = ""
	})
}

// MarkFailed records a permanent server-side rejection.
func (q *Queue) MarkFailed(id, reason string) error {
	return q.update(id, func(rec *Record) {
		rec.Status = StatusFailed
		rec.LastError = reason
	})
}

// MarkAttempt bumps the attempt counter after a transient failure; the
// record stays pending.
func (q *Queue) MarkAttempt(id, reason string) error {
	return q.update(id, func(rec *Record) {
		rec.Attempts++
		rec.LastError = reason
	})
}

func (q *Queue) update(id string, fn func(*Record)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.records {
		if q.records[i].ID == id {
			fn(&q.records[i])
			return q.rewriteLocked()
		}
	}
	return fmt.Errorf("queue record %s not found", id)
}

// rewriteLocked persists the full record set atomically: write a temp file,
// fsync, rename over the log, reopen the append handle.
func (q *Queue) rewriteLocked() error {
	tmp := q.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temp queue log: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, rec := range q.records {
		line, err := json.Marshal(rec)
		if err != nil {
			f.Close()
			return fmt.Errorf("marshal record: %w", err)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			f.Close()
			return fmt.Errorf("write temp queue log: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush temp queue log: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp queue log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp queue log: %w", err)
	}
	if err := os.Rename(tmp, q.path); err != nil {
		return fmt.Errorf("replace queue log: %w", err)
	}

	if q.file != nil {
		q.file.Close()
	}
	q.file, err = os.OpenFile(q.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reopen queue log: %w", err)
	}
	return nil
}
