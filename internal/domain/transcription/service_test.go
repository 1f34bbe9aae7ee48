package transcription

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telecare/telecare/internal/platform/blobstore"
	"github.com/telecare/telecare/internal/platform/llm"
)

// -- Mock Repository --

type mockRepo struct {
	entries  map[uuid.UUID]*CacheEntry
	jobs     map[uuid.UUID]*Job
	entryErr error
	jobErr   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		entries: make(map[uuid.UUID]*CacheEntry),
		jobs:    make(map[uuid.UUID]*Job),
	}
}

func (m *mockRepo) CreateCacheEntry(_ context.Context, e *CacheEntry) error {
	if m.entryErr != nil {
		return m.entryErr
	}
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.entries[e.ID] = e
	return nil
}

func (m *mockRepo) GetCacheEntry(_ context.Context, id uuid.UUID) (*CacheEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return e, nil
}

func (m *mockRepo) CreateJob(_ context.Context, j *Job) error {
	if m.jobErr != nil {
		return m.jobErr
	}
	j.ID = uuid.New()
	j.CreatedAt = time.Now()
	m.jobs[j.ID] = j
	return nil
}

func (m *mockRepo) GetJob(_ context.Context, id uuid.UUID) (*Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return j, nil
}

func (m *mockRepo) MarkJobProcessed(_ context.Context, id uuid.UUID) error {
	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	now := time.Now()
	j.ProcessedAt = &now
	return nil
}

func newTestService(repo *mockRepo, transcripts *mockTranscripts) *Service {
	store := seededStore("p/x.wav")
	stager := NewStager(store, "recordings")
	worker := NewWorker(WorkerConfig{
		Store:       store,
		STT:         sttFunc(func(context.Context, string) (string, error) { return "the transcript", nil }),
		LLM:         llmFunc(func(context.Context, string, llm.CompleteOptions) (string, error) { return `{"summary":"S"}`, nil }),
		Transcripts: transcripts,
		Bucket:      "recordings",
		Logger:      zerolog.Nop(),
	})
	return NewService(repo, stager, worker, zerolog.Nop())
}

// -- Tests --

func TestStageUpload(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, newMockTranscripts())

	size := int64(1024)
	entry, grant, err := svc.StageUpload(context.Background(), testIdentity(), StageInput{
		Filename:    "visit.wav",
		ContentType: "audio/wav",
		Size:        &size,
		Metadata:    map[string]interface{}{"visit": "intake"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ID == uuid.Nil {
		t.Error("expected cache entry id to be set")
	}
	if entry.Path != grant.Path {
		t.Errorf("cache entry path %q must match staged path %q", entry.Path, grant.Path)
	}
	if entry.Owner != "u1" {
		t.Errorf("expected owner u1, got %s", entry.Owner)
	}
	if grant.SignedURL == "" || grant.Token == "" {
		t.Error("expected upload grant with URL and token")
	}
}

func TestStageUpload_RegistryFailureIsFatal(t *testing.T) {
	repo := newMockRepo()
	repo.entryErr = fmt.Errorf("insert failed")
	svc := newTestService(repo, newMockTranscripts())

	_, _, err := svc.StageUpload(context.Background(), testIdentity(), StageInput{Filename: "visit.wav"})
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindPersistence {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestEnqueue_DirectPath(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, newMockTranscripts())

	job, err := svc.Enqueue(context.Background(), testIdentity(), uuid.New(), nil, "p/x.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Path != "p/x.wav" {
		t.Errorf("expected direct path to be used verbatim, got %q", job.Path)
	}
	if job.ID == uuid.Nil {
		t.Error("expected job id to be set")
	}
}

func TestEnqueue_ResolvesCacheEntry(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, newMockTranscripts())

	entry := &CacheEntry{Owner: "u1", Path: "p/x.wav"}
	repo.CreateCacheEntry(context.Background(), entry)

	job, err := svc.Enqueue(context.Background(), testIdentity(), uuid.New(), &entry.ID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Path != "p/x.wav" {
		t.Errorf("expected resolved path p/x.wav, got %q", job.Path)
	}
	if job.CacheEntryID == nil || *job.CacheEntryID != entry.ID {
		t.Error("expected cache entry reference on the job")
	}
}

func TestEnqueue_CacheEntryNotFound(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, newMockTranscripts())

	missing := uuid.New()
	_, err := svc.Enqueue(context.Background(), testIdentity(), uuid.New(), &missing, "")
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
	if len(repo.jobs) != 0 {
		t.Error("no job row may be created when resolution fails")
	}
}

func TestEnqueue_MissingPath(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, newMockTranscripts())

	_, err := svc.Enqueue(context.Background(), testIdentity(), uuid.New(), nil, "")
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if perr.Msg != "missing path" {
		t.Errorf("expected 'missing path', got %q", perr.Msg)
	}
	if len(repo.jobs) != 0 {
		t.Error("no job row may be created without a resolvable path")
	}
}

func TestEnqueue_VisitRequired(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, newMockTranscripts())

	_, err := svc.Enqueue(context.Background(), testIdentity(), uuid.Nil, nil, "p/x.wav")
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProcessJob(t *testing.T) {
	repo := newMockRepo()
	transcripts := newMockTranscripts()
	svc := newTestService(repo, transcripts)

	visitID := uuid.New()
	job, _ := svc.Enqueue(context.Background(), testIdentity(), visitID, nil, "p/x.wav")

	res, err := svc.ProcessJob(context.Background(), testIdentity(), job.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Transcript != "the transcript" {
		t.Errorf("unexpected transcript: %q", res.Transcript)
	}
	if _, ok := transcripts.rows[visitID]; !ok {
		t.Error("expected transcript persisted for the job's visit")
	}
	if repo.jobs[job.ID].ProcessedAt == nil {
		t.Error("expected processed_at to be recorded")
	}
}

func TestProcessJob_UnknownJob(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, newMockTranscripts())

	_, err := svc.ProcessJob(context.Background(), testIdentity(), uuid.New(), false)
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestProcessJob_Twice_SingleRow(t *testing.T) {
	repo := newMockRepo()
	transcripts := newMockTranscripts()
	svc := newTestService(repo, transcripts)

	visitID := uuid.New()
	job, _ := svc.Enqueue(context.Background(), testIdentity(), visitID, nil, "p/x.wav")

	if _, err := svc.ProcessJob(context.Background(), testIdentity(), job.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ProcessJob(context.Background(), testIdentity(), job.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(transcripts.rows) != 1 {
		t.Fatalf("expected exactly one transcript row after reprocessing, got %d", len(transcripts.rows))
	}
	if transcripts.calls != 2 {
		t.Errorf("expected two upsert attempts, got %d", transcripts.calls)
	}
}

func TestProcess_DirectPath(t *testing.T) {
	svc := newTestService(newMockRepo(), newMockTranscripts())

	res, err := svc.Process(context.Background(), testIdentity(), "p/x.wav", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Summary != "S" {
		t.Errorf("expected summary S, got %q", res.Summary)
	}
}

var _ blobstore.SignedStore = (*recordingStore)(nil)
