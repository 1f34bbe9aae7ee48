package visit

import (
	"time"

	"github.com/google/uuid"
)

// Visit maps to the visit table. A visit is a single telehealth or
// in-person consultation between a patient and a clinician.
type Visit struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	ClinicianID uuid.UUID  `db:"clinician_id" json:"clinician_id"`
	Status      string     `db:"status" json:"status"`
	Reason      *string    `db:"reason" json:"reason,omitempty"`
	AudioPath   *string    `db:"audio_path" json:"audio_path,omitempty"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	EndedAt     *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Transcript maps to the visit_transcript table. At most one transcript
// exists per visit; reprocessing the same visit replaces it in full.
type Transcript struct {
	ID         uuid.UUID              `db:"id" json:"id"`
	VisitID    uuid.UUID              `db:"visit_id" json:"visit_id"`
	RawText    string                 `db:"raw_text" json:"raw_text"`
	Structured map[string]interface{} `db:"structured" json:"structured"`
	Summary    string                 `db:"summary" json:"summary"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time              `db:"updated_at" json:"updated_at"`
}
