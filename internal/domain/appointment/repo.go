package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository abstracts appointment persistence.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Appointment, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByClinicianBetween(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]*Appointment, error)
}
