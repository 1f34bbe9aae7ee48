package appointment

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

var validStatuses = map[string]bool{
	"booked":    true,
	"confirmed": true,
	"fulfilled": true,
	"cancelled": true,
	"noshow":    true,
}

const defaultDurationMin = 30

func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.ClinicianID == uuid.Nil {
		return fmt.Errorf("clinician_id is required")
	}
	if a.ScheduledAt.IsZero() {
		return fmt.Errorf("scheduled_at is required")
	}
	if a.Status == "" {
		a.Status = "booked"
	}
	if !validStatuses[a.Status] {
		return fmt.Errorf("invalid status: %s", a.Status)
	}
	if a.DurationMin <= 0 {
		a.DurationMin = defaultDurationMin
	}

	// Reject slots overlapping an existing appointment for the clinician.
	dayStart := a.ScheduledAt.Add(-24 * time.Hour)
	dayEnd := a.ScheduledAt.Add(24 * time.Hour)
	existing, err := s.repo.ListByClinicianBetween(ctx, a.ClinicianID, dayStart, dayEnd)
	if err != nil {
		return err
	}
	newEnd := a.ScheduledAt.Add(time.Duration(a.DurationMin) * time.Minute)
	for _, e := range existing {
		if e.Status == "cancelled" {
			continue
		}
		eEnd := e.ScheduledAt.Add(time.Duration(e.DurationMin) * time.Minute)
		if a.ScheduledAt.Before(eEnd) && e.ScheduledAt.Before(newEnd) {
			return fmt.Errorf("clinician already booked at %s", e.ScheduledAt.Format(time.RFC3339))
		}
	}

	return s.repo.Create(ctx, a)
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateAppointment(ctx context.Context, a *Appointment) error {
	if a.Status != "" && !validStatuses[a.Status] {
		return fmt.Errorf("invalid status: %s", a.Status)
	}
	return s.repo.Update(ctx, a)
}

func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("appointment not found: %w", err)
	}
	a.Status = "cancelled"
	return s.repo.Update(ctx, a)
}

func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
