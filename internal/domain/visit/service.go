package visit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validStages = func() map[string]bool {
	m := make(map[string]bool, len(Stages))
	for _, s := range Stages {
		m[s] = true
	}
	return m
}()

func (s *Service) Create(ctx context.Context, v *Visit) error {
	if v.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if v.VisitType == "" {
		v.VisitType = "clinic"
	}
	if v.CurrentStage == "" {
		v.CurrentStage = StageRegistration
	}
	if !validStages[v.CurrentStage] {
		return fmt.Errorf("invalid stage: %s", v.CurrentStage)
	}
	if v.Status == "" {
		v.Status = "open"
	}
	return s.repo.Create(ctx, v)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) UpdateStage(ctx context.Context, id uuid.UUID, stage string) error {
	if !validStages[stage] {
		return fmt.Errorf("invalid stage: %s", stage)
	}
	if stage == StageClosure {
		return s.repo.Close(ctx, id)
	}
	return s.repo.UpdateStage(ctx, id, stage)
}

// WorkflowStatus derives the authoritative per-stage completion record from
// the artifacts persisted against the visit. Registration is complete by
// definition once the visit exists; nursing once any vitals were recorded;
// the doctor stage once a Diagnosis or Treatment note exists; counseling and
// closure once their respective notes exist.
func (s *Service) WorkflowStatus(ctx context.Context, id uuid.UUID) (*WorkflowStatus, error) {
	a, err := s.repo.StageArtifacts(ctx, id)
	if err != nil {
		return nil, err
	}

	created := a.VisitCreatedAt
	stageAt := map[string]*time.Time{
		StageRegistration: &created,
		StageNursing:      a.FirstVitalsAt,
		StageDoctor:       a.FirstDoctorNoteAt,
		StageCounseling:   a.FirstCounselingAt,
		StageClosure:      a.FirstClosureAt,
	}

	status := &WorkflowStatus{VisitID: id, Stages: make([]StageStatus, 0, len(Stages))}
	for _, stage := range Stages {
		at := stageAt[stage]
		status.Stages = append(status.Stages, StageStatus{
			Stage:       stage,
			Completed:   at != nil,
			CompletedAt: at,
		})
	}
	return status, nil
}
