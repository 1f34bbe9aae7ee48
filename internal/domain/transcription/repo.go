package transcription

import (
	"context"

	"github.com/google/uuid"
)

// Repository abstracts cache entry and job persistence.
type Repository interface {
	CreateCacheEntry(ctx context.Context, e *CacheEntry) error
	GetCacheEntry(ctx context.Context, id uuid.UUID) (*CacheEntry, error)
	CreateJob(ctx context.Context, j *Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	MarkJobProcessed(ctx context.Context, id uuid.UUID) error
}
