package visit

import (
	"context"

	"github.com/google/uuid"
)

// Repository abstracts visit and transcript persistence.
type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	Update(ctx context.Context, v *Visit) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Visit, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error)
	SetAudioPath(ctx context.Context, id uuid.UUID, audioPath string) error

	UpsertTranscript(ctx context.Context, t *Transcript) error
	GetTranscript(ctx context.Context, visitID uuid.UUID) (*Transcript, error)
}
