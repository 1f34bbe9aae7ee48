package transcription

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telecare/telecare/internal/platform/auth"
)

type Service struct {
	repo   Repository
	stager *Stager
	worker *Worker
	log    zerolog.Logger
}

func NewService(repo Repository, stager *Stager, worker *Worker, log zerolog.Logger) *Service {
	return &Service{repo: repo, stager: stager, worker: worker, log: log}
}

// StageInput describes an upload intent.
type StageInput struct {
	Filename    string                 `json:"filename"`
	ContentType string                 `json:"contentType"`
	Size        *int64                 `json:"size,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// StageUpload issues an upload grant and registers a cache entry for the
// staged path. A registry write failure fails the whole request: an upload
// grant without a traceable registry entry is useless, even though the grant
// itself was already issued.
func (s *Service) StageUpload(ctx context.Context, ident auth.Identity, in StageInput) (*CacheEntry, *StageGrant, error) {
	grant, err := s.stager.Stage(ctx, ident, in.Filename, in.ContentType)
	if err != nil {
		return nil, nil, err
	}

	entry := &CacheEntry{
		Owner:    ident.UserID,
		Path:     grant.Path,
		Size:     in.Size,
		Metadata: in.Metadata,
	}
	if err := s.repo.CreateCacheEntry(ctx, entry); err != nil {
		return nil, nil, newError(KindPersistence, StageValidate, "cache entry creation failed", err)
	}
	return entry, grant, nil
}

// Enqueue resolves a storage path for the visit and creates a durable job
// record. A direct path is used verbatim; otherwise the cache entry is looked
// up and its registered path used. Duplicate jobs for the same visit and path
// are tolerated, the downstream upsert makes reprocessing convergent.
func (s *Service) Enqueue(ctx context.Context, ident auth.Identity, visitID uuid.UUID, cacheID *uuid.UUID, path string) (*Job, error) {
	if visitID == uuid.Nil {
		return nil, newError(KindValidation, StageValidate, "visit_id is required", nil)
	}

	var entryID *uuid.UUID
	switch {
	case path != "":
	case cacheID != nil && *cacheID != uuid.Nil:
		entry, err := s.repo.GetCacheEntry(ctx, *cacheID)
		if err != nil {
			return nil, newError(KindNotFound, StageValidate, "cache entry not found", err)
		}
		path = entry.Path
		entryID = cacheID
	default:
		return nil, newError(KindValidation, StageValidate, "missing path", nil)
	}

	job := &Job{VisitID: visitID, Path: path, CacheEntryID: entryID}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, newError(KindPersistence, StageValidate, "job creation failed", err)
	}

	s.log.Info().
		Str("job_id", job.ID.String()).
		Str("visit_id", visitID.String()).
		Str("path", path).
		Str("user_id", ident.UserID).
		Msg("transcription job enqueued")
	return job, nil
}

// ProcessJob runs the worker against a previously enqueued job. The job is
// not claimed first, so concurrent submissions of the same job id race on
// the final upsert and the last write wins.
func (s *Service) ProcessJob(ctx context.Context, ident auth.Identity, jobID uuid.UUID, simulate bool) (*Result, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, newError(KindNotFound, StageValidate, "job not found", err)
	}

	result, err := s.worker.Run(ctx, ident, job.Path, &job.VisitID, simulate)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkJobProcessed(ctx, job.ID); err != nil {
		s.log.Warn().
			Err(err).
			Str("job_id", job.ID.String()).
			Msg("failed to record job completion")
	}
	return result, nil
}

// Process runs the worker against a storage path directly, bypassing the job
// queue. visitID may be nil for transcription without persistence.
func (s *Service) Process(ctx context.Context, ident auth.Identity, path string, visitID *uuid.UUID, simulate bool) (*Result, error) {
	return s.worker.Run(ctx, ident, path, visitID, simulate)
}
