package transcription

import (
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure for HTTP mapping and retry policy.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindUpstream      Kind = "upstream"
	KindPersistence   Kind = "persistence"
)

// Stage identifies where in the pipeline a run failed.
type Stage string

const (
	StageValidate   Stage = "validate"
	StageLocate     Stage = "locate"
	StageTranscribe Stage = "transcribe"
	StageStructure  Stage = "structure"
	StagePersist    Stage = "persist"
)

// Error carries the failure classification and stage alongside the message.
// Stages before persist fail the whole run with no partial writes, so
// upstream errors are safe to retry from the top.
type Error struct {
	Kind  Kind
	Stage Stage
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the failure kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, stage Stage, msg string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Msg: msg, Err: err}
}
