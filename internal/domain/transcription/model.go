package transcription

import (
	"time"

	"github.com/google/uuid"
)

// CacheEntry maps to the transcription_cache_entry table. It tracks a staged
// audio object before any job references it. Entries are written once and
// never mutated.
type CacheEntry struct {
	ID        uuid.UUID              `db:"id" json:"id"`
	Owner     string                 `db:"owner_id" json:"owner_id"`
	Path      string                 `db:"path" json:"path"`
	Size      *int64                 `db:"size_bytes" json:"size_bytes,omitempty"`
	Metadata  map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Job maps to the transcription_job table. A job links a visit to a stored
// audio object. ProcessedAt is recorded on completion for reconciliation;
// it is not a claim, so the same job can be processed more than once and
// downstream upsert semantics keep the transcript convergent.
type Job struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	VisitID      uuid.UUID  `db:"visit_id" json:"visit_id"`
	Path         string     `db:"path" json:"path"`
	CacheEntryID *uuid.UUID `db:"cache_entry_id" json:"cache_entry_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

// Result is the caller-visible output of a processing run. It is returned
// even when the final transcript write fails.
type Result struct {
	Transcript string                 `json:"transcript"`
	Structured map[string]interface{} `json:"structured"`
	Summary    string                 `json:"summary"`
}
