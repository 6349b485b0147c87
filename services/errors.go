package services

import (
	"errors"
	"fmt"

	"github.com/adityarawat/examdesk/model"
)

var (
	// ErrEmptySelection is returned when an extraction run is requested with
	// no pages selected
	ErrEmptySelection = errors.New("no pages selected for extraction")

	// ErrSessionNotFound is returned when an import session ID is unknown or
	// has been swept
	ErrSessionNotFound = errors.New("import session not found")

	// ErrStaleRun is returned when an extraction run finishes after its
	// session was abandoned or reset; its results must be discarded
	ErrStaleRun = errors.New("extraction run superseded, results discarded")

	// ErrQuestionNotFound is returned for review operations on an unknown
	// question ID
	ErrQuestionNotFound = errors.New("question not found in working set")

	// ErrNoQuestionsSelected blocks proceeding to finalization with an empty
	// review selection
	ErrNoQuestionsSelected = errors.New("at least one question must be selected")
)

// DocumentFormatError indicates the uploaded bytes are not a usable PDF
type DocumentFormatError struct {
	Reason string
	Err    error
}

func (e *DocumentFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid document: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid document: %s", e.Reason)
}

func (e *DocumentFormatError) Unwrap() error { return e.Err }

// RenderError indicates a specific page could not be rasterized. Pages before
// Page remain valid; callers must treat the produced sequence as a prefix.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// IndexOutOfRangeError indicates a page index outside [0, PageCount)
type IndexOutOfRangeError struct {
	Index     int
	PageCount int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("page index %d out of range [0, %d)", e.Index, e.PageCount)
}

// InvalidQuestionKindError rejects an edit that sets an unrecognized
// question kind
type InvalidQuestionKindError struct {
	Kind model.QuestionKind
}

func (e *InvalidQuestionKindError) Error() string {
	return fmt.Sprintf("unknown question kind %q", e.Kind)
}

// ExtractionBatchError aborts an extraction run. Batch is the zero-based
// ordinal of the failed batch; no further batches are attempted.
type ExtractionBatchError struct {
	Batch int
	Err   error
}

func (e *ExtractionBatchError) Error() string {
	return fmt.Sprintf("extraction batch %d failed: %v", e.Batch+1, e.Err)
}

func (e *ExtractionBatchError) Unwrap() error { return e.Err }

// IncompleteTargetError blocks a commit whose target is missing required
// fields; the session stays in finalizing_details
type IncompleteTargetError struct {
	Missing string
}

func (e *IncompleteTargetError) Error() string {
	return fmt.Sprintf("incomplete commit target: %s is required", e.Missing)
}

// InvalidTransitionError is returned for an operation not allowed in the
// session's current state
type InvalidTransitionError struct {
	State  SessionState
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s while session is in state %q", e.Action, e.State)
}
