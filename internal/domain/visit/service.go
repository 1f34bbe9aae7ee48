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

var validStatuses = map[string]bool{
	"planned":     true,
	"in-progress": true,
	"completed":   true,
	"cancelled":   true,
}

func (s *Service) CreateVisit(ctx context.Context, v *Visit) error {
	if v.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if v.ClinicianID == uuid.Nil {
		return fmt.Errorf("clinician_id is required")
	}
	if v.Status == "" {
		v.Status = "planned"
	}
	if !validStatuses[v.Status] {
		return fmt.Errorf("invalid status: %s", v.Status)
	}
	return s.repo.Create(ctx, v)
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateVisit(ctx context.Context, v *Visit) error {
	if v.Status != "" && !validStatuses[v.Status] {
		return fmt.Errorf("invalid status: %s", v.Status)
	}
	return s.repo.Update(ctx, v)
}

func (s *Service) UpdateVisitStatus(ctx context.Context, id uuid.UUID, newStatus string) error {
	if !validStatuses[newStatus] {
		return fmt.Errorf("invalid status: %s", newStatus)
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("visit not found: %w", err)
	}

	now := time.Now().UTC()
	switch newStatus {
	case "in-progress":
		if v.StartedAt == nil {
			v.StartedAt = &now
		}
	case "completed":
		if v.EndedAt == nil {
			v.EndedAt = &now
		}
	}
	v.Status = newStatus
	return s.repo.Update(ctx, v)
}

func (s *Service) DeleteVisit(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListVisits(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListVisitsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) AttachAudio(ctx context.Context, id uuid.UUID, audioPath string) error {
	if audioPath == "" {
		return fmt.Errorf("audio_path is required")
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("visit not found: %w", err)
	}
	return s.repo.SetAudioPath(ctx, id, audioPath)
}

// SaveTranscript stores the transcription result for a visit. The write is
// keyed by visit id, so repeated processing of the same visit overwrites the
// previous transcript rather than accumulating duplicates.
func (s *Service) SaveTranscript(ctx context.Context, visitID uuid.UUID, rawText string, structured map[string]interface{}, summary string) error {
	if visitID == uuid.Nil {
		return fmt.Errorf("visit_id is required")
	}
	if structured == nil {
		structured = map[string]interface{}{}
	}
	return s.repo.UpsertTranscript(ctx, &Transcript{
		VisitID:    visitID,
		RawText:    rawText,
		Structured: structured,
		Summary:    summary,
	})
}

func (s *Service) GetTranscript(ctx context.Context, visitID uuid.UUID) (*Transcript, error) {
	return s.repo.GetTranscript(ctx, visitID)
}
