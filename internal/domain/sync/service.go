package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/polmed/mobiclinic/internal/domain/visit"
	"github.com/polmed/mobiclinic/internal/domain/vitals"
)

type visitSource interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*visit.Visit, int, error)
	Create(ctx context.Context, v *visit.Visit) error
}

type vitalsSink interface {
	Create(ctx context.Context, v *vitals.VitalSigns) error
}

// Service replays client-queued offline mutations against the
// authoritative store. Every submitted record is journalled with its
// verdict, applied or not.
type Service struct {
	repo   Repository
	visits visitSource
	vitals vitalsSink
	log    zerolog.Logger
}

func NewService(repo Repository, visits visitSource, vitals vitalsSink, log zerolog.Logger) *Service {
	return &Service{repo: repo, visits: visits, vitals: vitals, log: log}
}

// Apply replays a batch in submission order and returns one verdict per
// record. A rejected record gets its error message in the verdict so the
// client can surface it for manual re-entry. A verdict with neither
// applied nor an error means a transient store failure; the client keeps
// the record pending and retries later.
func (s *Service) Apply(ctx context.Context, deviceID string, records []IncomingRecord) []Result {
	results := make([]Result, 0, len(records))
	for i := range records {
		rec := &records[i]
		res := s.applyOne(ctx, rec)
		s.journal(ctx, deviceID, rec, res)
		results = append(results, res)
	}
	return results
}

func (s *Service) applyOne(ctx context.Context, rec *IncomingRecord) Result {
	res := Result{ID: rec.ID}
	if rec.Kind != KindVitalSigns {
		res.Error = fmt.Sprintf("unsupported record kind %q", rec.Kind)
		return res
	}

	var v vitals.VitalSigns
	if err := json.Unmarshal(rec.Payload, &v); err != nil {
		res.Error = "malformed payload"
		return res
	}
	if err := vitals.Validate(&v); err != nil {
		res.Error = err.Error()
		return res
	}

	visitID, err := s.resolveVisit(ctx, rec)
	if err != nil {
		if permanent, ok := err.(rejection); ok {
			res.Error = string(permanent)
			return res
		}
		s.log.Warn().Err(err).Str("record_id", rec.ID).Msg("sync: visit resolution failed")
		return res
	}

	v.VisitID = visitID
	if v.RecordedAt.IsZero() {
		v.RecordedAt = rec.QueuedAt
	}
	if err := s.vitals.Create(ctx, &v); err != nil {
		s.log.Warn().Err(err).Str("record_id", rec.ID).Msg("sync: vitals write failed")
		return res
	}
	res.Applied = true
	return res
}

type rejection string

func (r rejection) Error() string { return string(r) }

// resolveVisit pins the record to a visit: the one the client named, else
// the patient's most recent open visit, else a fresh visit created for the
// replay.
func (s *Service) resolveVisit(ctx context.Context, rec *IncomingRecord) (uuid.UUID, error) {
	if rec.VisitID != "" {
		id, err := uuid.Parse(rec.VisitID)
		if err != nil {
			return uuid.Nil, rejection("invalid visit_id")
		}
		return id, nil
	}

	patientID, err := uuid.Parse(rec.PatientID)
	if err != nil {
		return uuid.Nil, rejection("invalid patient_id")
	}
	latest, _, err := s.visits.ListByPatient(ctx, patientID, 1, 0)
	if err != nil {
		return uuid.Nil, fmt.Errorf("list visits: %w", err)
	}
	if len(latest) > 0 && latest[0].Status == "open" {
		return latest[0].ID, nil
	}

	created := &visit.Visit{PatientID: patientID}
	if err := s.visits.Create(ctx, created); err != nil {
		return uuid.Nil, fmt.Errorf("create visit: %w", err)
	}
	return created.ID, nil
}

func (s *Service) journal(ctx context.Context, deviceID string, rec *IncomingRecord, res Result) {
	entry := &LogEntry{
		RecordID: rec.ID,
		Kind:     rec.Kind,
		Payload:  rec.Payload,
		Applied:  res.Applied,
	}
	if deviceID != "" {
		entry.DeviceID = &deviceID
	}
	if rec.PatientID != "" {
		entry.PatientID = &rec.PatientID
	}
	if rec.VisitID != "" {
		entry.VisitID = &rec.VisitID
	}
	if res.Error != "" {
		e := res.Error
		entry.Error = &e
	}
	if !rec.QueuedAt.IsZero() {
		q := rec.QueuedAt
		entry.QueuedAt = &q
	}
	if err := s.repo.Journal(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("record_id", rec.ID).Msg("sync: journal write failed")
	}
}

// ListRecent pages through the journal, newest first.
func (s *Service) ListRecent(ctx context.Context, limit, offset int) ([]*LogEntry, int, error) {
	return s.repo.ListRecent(ctx, limit, offset)
}
