package visit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error)
	UpdateStage(ctx context.Context, id uuid.UUID, stage string) error
	Close(ctx context.Context, id uuid.UUID) error
	StageArtifacts(ctx context.Context, id uuid.UUID) (*StageArtifacts, error)
}
