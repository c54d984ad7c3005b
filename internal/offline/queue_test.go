package offline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pending.jsonl")
	q, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func TestEnqueueAndDurableReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")
	q, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	payload := map[string]any{"temperature": 37.8, "notes": "febrile"}
	if err := q.Enqueue(context.Background(), "vital_signs", "patient-1", "visit-1", payload); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(context.Background(), "vital_signs", "patient-2", "", map[string]any{"pulse": 80}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	pending := reopened.Pending()
	if len(pending) != 2 {
		t.Fatalf("pending after reload = %d, want 2", len(pending))
	}
	first := pending[0]
	if first.Kind != "vital_signs" || first.PatientID != "patient-1" || first.VisitID != "visit-1" {
		t.Errorf("first record = %+v", first)
	}
	if first.Status != StatusPending {
		t.Errorf("status = %s, want pending", first.Status)
	}
	var decoded map[string]any
	if err := json.Unmarshal(first.Payload, &decoded); err != nil {
		t.Fatalf("payload did not round-trip: %v", err)
	}
	if decoded["notes"] != "febrile" {
		t.Errorf("payload = %v", decoded)
	}
}

func TestMarkSyncedAndFailedSurviveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")
	q, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := q.Enqueue(context.Background(), "vital_signs", "patient-1", "", map[string]int{"n": i}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	pending := q.Pending()
	if err := q.MarkSynced(pending[0].ID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if err := q.MarkFailed(pending[1].ID, "validation rejected"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	q.Close()

	reopened, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if got := len(reopened.Pending()); got != 1 {
		t.Errorf("pending = %d, want 1", got)
	}
	failed := reopened.Failed()
	if len(failed) != 1 || failed[0].LastError != "validation rejected" {
		t.Errorf("failed = %+v", failed)
	}

	alerts, err := reopened.FailedFor("patient-1")
	if err != nil {
		t.Fatalf("FailedFor: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Error != "validation rejected" {
		t.Errorf("alerts = %+v", alerts)
	}
	if alerts, _ := reopened.FailedFor("patient-2"); len(alerts) != 0 {
		t.Errorf("alerts for other patient = %+v", alerts)
	}
}

func TestCorruptTailLineIsSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")
	q, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := q.Enqueue(context.Background(), "vital_signs", "patient-1", "", map[string]int{"n": 1}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	q.Close()

	// Simulate a crash mid-append.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"id":"torn`)
	f.Close()

	reopened, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if got := len(reopened.Pending()); got != 1 {
		t.Errorf("pending = %d, want the intact record only", got)
	}
}

type mockSubmitter struct {
	results []Result
	err     error
	batches [][]Record
}

func (m *mockSubmitter) SubmitPending(_ context.Context, records []Record) ([]Result, error) {
	m.batches = append(m.batches, records)
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func TestSyncOnceAppliesVerdicts(t *testing.T) {
	q := openTestQueue(t)
	for i := 0; i < 2; i++ {
		if err := q.Enqueue(context.Background(), "vital_signs", "patient-1", "", map[string]int{"n": i}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	pending := q.Pending()

	sub := &mockSubmitter{results: []Result{
		{ID: pending[0].ID, Applied: true},
		{ID: pending[1].ID, Applied: false, Error: "unknown patient"},
	}}
	s := NewSyncer(q, sub, nil, time.Second, zerolog.Nop())

	synced, failed, err := s.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if synced != 1 || failed != 1 {
		t.Errorf("synced=%d failed=%d, want 1 and 1", synced, failed)
	}
	if got := len(q.Pending()); got != 0 {
		t.Errorf("pending = %d, want 0", got)
	}
	if got := q.Failed(); len(got) != 1 || got[0].LastError != "unknown patient" {
		t.Errorf("failed = %+v", got)
	}
}

func TestSyncOnceTransientFailureKeepsPending(t *testing.T) {
	q := openTestQueue(t)
	if err := q.Enqueue(context.Background(), "vital_signs", "patient-1", "", map[string]int{"n": 1}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	sub := &mockSubmitter{err: errors.New("connection refused")}
	s := NewSyncer(q, sub, nil, time.Second, zerolog.Nop())

	if _, _, err := s.SyncOnce(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	pending := q.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].Attempts != 1 || pending[0].LastError == "" {
		t.Errorf("record = %+v, want attempt recorded", pending[0])
	}
}

func TestSyncOnceSkipsWhileOffline(t *testing.T) {
	q := openTestQueue(t)
	if err := q.Enqueue(context.Background(), "vital_signs", "patient-1", "", map[string]int{"n": 1}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	sub := &mockSubmitter{}
	s := NewSyncer(q, sub, func() bool { return false }, time.Second, zerolog.Nop())

	if _, _, err := s.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if len(sub.batches) != 0 {
		t.Error("submitter called while offline")
	}
	if got := len(q.Pending()); got != 1 {
		t.Errorf("pending = %d, want 1", got)
	}
}
