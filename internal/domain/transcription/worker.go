package transcription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telecare/telecare/internal/platform/auth"
	"github.com/telecare/telecare/internal/platform/blobstore"
	"github.com/telecare/telecare/internal/platform/llm"
	"github.com/telecare/telecare/internal/platform/stt"
)

// TranscriptStore is the single write path into transcript data from the
// pipeline. On conflict the existing row is fully replaced.
type TranscriptStore interface {
	Upsert(ctx context.Context, visitID uuid.UUID, rawText string, structured map[string]interface{}, summary string) error
}

// WorkerConfig wires the worker's external collaborators and policy knobs.
type WorkerConfig struct {
	Store       blobstore.SignedStore
	STT         stt.Client
	LLM         llm.Client
	Transcripts TranscriptStore
	Bucket      string
	ReadTTL     time.Duration
	MaxTokens   int

	// FailOnPersistError turns a transcript write failure into a run failure.
	// When false the error is logged and the caller still gets the result.
	FailOnPersistError bool

	Logger zerolog.Logger
}

// Worker runs the transcription pipeline: locate the audio behind a signed
// read URL, transcribe it, structure the transcript through the language
// model, and upsert the result onto the visit. Every stage before persist
// fails the run outright with no partial writes.
type Worker struct {
	cfg WorkerConfig
}

const (
	defaultReadTTL    = time.Hour
	defaultMaxTokens  = 2000
	promptTemperature = 0.2
)

func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.ReadTTL <= 0 {
		cfg.ReadTTL = defaultReadTTL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &Worker{cfg: cfg}
}

// Run processes one audio object. visitID may be nil, in which case no
// transcript is written and the result is only returned to the caller.
// The ident parameter is the caller's authorization context; the route
// boundary has already established that the caller may operate on the visit.
func (w *Worker) Run(ctx context.Context, ident auth.Identity, path string, visitID *uuid.UUID, simulate bool) (*Result, error) {
	if path == "" {
		return nil, newError(KindValidation, StageValidate, "missing path", nil)
	}
	if w.cfg.Bucket == "" {
		return nil, newError(KindConfiguration, StageValidate, "storage bucket not configured", nil)
	}

	var transcript, llmOutput string
	if simulate {
		transcript, llmOutput = simulatedTranscript, simulatedStructured
	} else {
		grant, err := w.cfg.Store.RequestReadGrant(ctx, w.cfg.Bucket, path, w.cfg.ReadTTL)
		if err != nil {
			return nil, newError(KindUpstream, StageLocate, "blob store refused read grant", err)
		}

		transcript, err = w.cfg.STT.Transcribe(ctx, grant.URL)
		if err != nil {
			return nil, newError(KindUpstream, StageTranscribe, "transcription failed or returned invalid result", err)
		}

		llmOutput, err = w.cfg.LLM.Complete(ctx, buildPrompt(transcript), llm.CompleteOptions{
			MaxTokens:    w.cfg.MaxTokens,
			Temperature:  promptTemperature,
			JSONResponse: true,
		})
		if err != nil {
			return nil, newError(KindUpstream, StageStructure, "language model request failed", err)
		}
	}

	structured, summary := SplitSummary(ExtractJSON(llmOutput))
	result := &Result{Transcript: transcript, Structured: structured, Summary: summary}

	if visitID != nil && *visitID != uuid.Nil {
		if err := w.cfg.Transcripts.Upsert(ctx, *visitID, transcript, structured, summary); err != nil {
			if w.cfg.FailOnPersistError {
				return nil, newError(KindPersistence, StagePersist, "transcript write failed", err)
			}
			w.cfg.Logger.Error().
				Err(err).
				Str("visit_id", visitID.String()).
				Str("path", path).
				Str("user_id", ident.UserID).
				Time("at", time.Now().UTC()).
				Msg("transcript write failed, returning result anyway")
		}
	}

	return result, nil
}

// Canned outputs for simulate runs, used in demos and smoke tests so the
// pipeline can be exercised without provider credentials.
const (
	simulatedTranscript = "Patient reports intermittent headaches over the past two weeks, worse in the morning. No visual changes. Blood pressure 128 over 82. Advised hydration and follow-up in two weeks."

	simulatedStructured = `{"past_medical_history":[],"current_symptoms":[{"symptom":"headache","severity":"moderate"}],"physical_exam_findings":{"blood_pressure":"128/82"},"diagnosis":"tension headache","treatment_plan":["hydration","follow-up in two weeks"],"prescriptions":[],"summary":"Patient with two weeks of intermittent morning headaches, exam unremarkable, advised hydration and short-interval follow-up."}`
)
