package visit

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

const visitCols = `id, patient_id, clinician_id, status, reason, audio_path, started_at, ended_at, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO visit (id, patient_id, clinician_id, status, reason, audio_path, started_at, ended_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		v.ID, v.PatientID, v.ClinicianID, v.Status, v.Reason, v.AudioPath, v.StartedAt, v.EndedAt,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return scanVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+` FROM visit WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, v *Visit) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE visit SET
			status=$2, reason=$3, audio_path=$4, started_at=$5, ended_at=$6, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.Status, v.Reason, v.AudioPath, v.StartedAt, v.EndedAt,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM visit WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visit`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+visitCols+` FROM visit ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectVisits(rows, total)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visit WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+visitCols+` FROM visit WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectVisits(rows, total)
}

func (r *repoPG) SetAudioPath(ctx context.Context, id uuid.UUID, audioPath string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE visit SET audio_path = $2, updated_at = NOW() WHERE id = $1`, id, audioPath)
	return err
}

// UpsertTranscript replaces the transcript for a visit in full. The unique
// constraint on visit_id makes reprocessing converge on the latest result.
func (r *repoPG) UpsertTranscript(ctx context.Context, t *Transcript) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO visit_transcript (id, visit_id, raw_text, structured, summary)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (visit_id) DO UPDATE SET
			raw_text = EXCLUDED.raw_text,
			structured = EXCLUDED.structured,
			summary = EXCLUDED.summary,
			updated_at = NOW()`,
		t.ID, t.VisitID, t.RawText, t.Structured, t.Summary,
	)
	return err
}

func (r *repoPG) GetTranscript(ctx context.Context, visitID uuid.UUID) (*Transcript, error) {
	var t Transcript
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, visit_id, raw_text, structured, summary, created_at, updated_at
		FROM visit_transcript WHERE visit_id = $1`, visitID).Scan(
		&t.ID, &t.VisitID, &t.RawText, &t.Structured, &t.Summary, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(
		&v.ID, &v.PatientID, &v.ClinicianID, &v.Status, &v.Reason,
		&v.AudioPath, &v.StartedAt, &v.EndedAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func collectVisits(rows pgx.Rows, total int) ([]*Visit, int, error) {
	var visits []*Visit
	for rows.Next() {
		var v Visit
		err := rows.Scan(
			&v.ID, &v.PatientID, &v.ClinicianID, &v.Status, &v.Reason,
			&v.AudioPath, &v.StartedAt, &v.EndedAt, &v.CreatedAt, &v.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		visits = append(visits, &v)
	}
	return visits, total, nil
}
