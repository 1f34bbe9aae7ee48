package transcription

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telecare/telecare/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) CreateCacheEntry(ctx context.Context, e *CacheEntry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO transcription_cache_entry (id, owner_id, path, size_bytes, metadata)
		VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.Owner, e.Path, e.Size, e.Metadata,
	)
	return err
}

func (r *repoPG) GetCacheEntry(ctx context.Context, id uuid.UUID) (*CacheEntry, error) {
	var e CacheEntry
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, owner_id, path, size_bytes, metadata, created_at
		FROM transcription_cache_entry WHERE id = $1`, id).Scan(
		&e.ID, &e.Owner, &e.Path, &e.Size, &e.Metadata, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repoPG) CreateJob(ctx context.Context, j *Job) error {
	j.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO transcription_job (id, visit_id, path, cache_entry_id)
		VALUES ($1,$2,$3,$4)`,
		j.ID, j.VisitID, j.Path, j.CacheEntryID,
	)
	return err
}

func (r *repoPG) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	var j Job
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, visit_id, path, cache_entry_id, created_at, processed_at
		FROM transcription_job WHERE id = $1`, id).Scan(
		&j.ID, &j.VisitID, &j.Path, &j.CacheEntryID, &j.CreatedAt, &j.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *repoPG) MarkJobProcessed(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE transcription_job SET processed_at = NOW() WHERE id = $1`, id)
	return err
}
