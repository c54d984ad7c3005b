package offline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Result is the server's verdict on one submitted record.
type Result struct {
	ID      string `json:"id"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// Submitter ships a batch of queued records to the backend's sync intake.
// A returned error means the whole batch did not reach the server (transient,
// records stay pending); a per-record rejection in the results is permanent.
type Submitter interface {
	SubmitPending(ctx context.Context, records []Record) ([]Result, error)
}

// Syncer drains the queue to the backend whenever connectivity is available.
type Syncer struct {
	queue     *Queue
	submitter Submitter
	online    func() bool // nil means always online
	interval  time.Duration
	log       zerolog.Logger
}

// NewSyncer builds a syncer that drains queue through submitter every
// interval while online.
func NewSyncer(queue *Queue, submitter Submitter, online func() bool, interval time.Duration, log zerolog.Logger) *Syncer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Syncer{
		queue:     queue,
		submitter: submitter,
		online:    online,
		interval:  interval,
		log:       log,
	}
}

// Run loops until the context is cancelled, attempting a drain once per
// interval. Safe to run in its own goroutine.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := s.SyncOnce(ctx); err != nil {
				s.log.Warn().Err(err).Msg("offline sync attempt failed")
			}
		}
	}
}

// SyncOnce submits all pending records and applies the server's verdicts.
// Returns how many records were synced and how many were rejected.
func (s *Syncer) SyncOnce(ctx context.Context) (synced, failed int, err error) {
	if s.online != nil && !s.online() {
		return 0, 0, nil
	}
	pending := s.queue.Pending()
	if len(pending) == 0 {
		return 0, 0, nil
	}

	results, err := s.submitter.SubmitPending(ctx, pending)
	if err != nil {
		for _, rec := range pending {
			if markErr := s.queue.MarkAttempt(rec.ID, err.Error()); markErr != nil {
				s.log.Warn().Err(markErr).Str("record_id", rec.ID).Msg("could not record sync attempt")
			}
		}
		return 0, 0, err
	}

	verdicts := make(map[string]Result, len(results))
	for _, r := range results {
		verdicts[r.ID] = r
	}
	for _, rec := range pending {
		verdict, ok := verdicts[rec.ID]
		if !ok {
			// Server did not acknowledge this record; retry next round.
			if markErr := s.queue.MarkAttempt(rec.ID, "not acknowledged"); markErr != nil {
				s.log.Warn().Err(markErr).Str("record_id", rec.ID).Msg("could not record sync attempt")
			}
			continue
		}
		if verdict.Applied {
			if markErr := s.queue.MarkSynced(rec.ID); markErr != nil {
				s.log.Warn().Err(markErr).Str("record_id", rec.ID).Msg("could not mark record synced")
				continue
			}
			synced++
		} else {
			if markErr := s.queue.MarkFailed(rec.ID, verdict.Error); markErr != nil {
				s.log.Warn().Err(markErr).Str("record_id", rec.ID).Msg("could not mark record failed")
				continue
			}
			s.log.Error().Str("record_id", rec.ID).Str("kind", rec.Kind).
				Str("reason", verdict.Error).Msg("offline record permanently rejected")
			failed++
		}
	}

	s.log.Info().Int("synced", synced).Int("failed", failed).Msg("offline sync round complete")
	return synced, failed, nil
}
