package core

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure for callers that map errors onto an
// outer surface. Recoverable degradation is not an error kind; it travels as
// an advisory on a successful result.
type Kind string

const (
	// KindInvalidInput means the caller's request could never succeed as given.
	KindInvalidInput Kind = "invalid_input"
	// KindUpstreamUnavailable means a dependency (news source, LLM backend)
	// could not be reached or kept failing after retries.
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	// KindAnalysisFailed means an upstream answered but the pipeline could not
	// turn its output into contract-valid data.
	KindAnalysisFailed Kind = "analysis_failed"
)

// PipelineError wraps a stage failure with its classification. Stage names
// the pipeline step for logs and error messages.
type PipelineError struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func invalidInput(stage, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Kind: KindInvalidInput, Stage: stage, Err: fmt.Errorf(format, args...)}
}

func upstreamUnavailable(stage string, err error) *PipelineError {
	return &PipelineError{Kind: KindUpstreamUnavailable, Stage: stage, Err: err}
}

func analysisFailed(stage string, err error) *PipelineError {
	return &PipelineError{Kind: KindAnalysisFailed, Stage: stage, Err: err}
}

// KindOf returns the classification of err, defaulting to KindAnalysisFailed
// for errors that escaped without one. Context timeouts stay visible to the
// caller through errors.Is.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindUpstreamUnavailable
	}
	return KindAnalysisFailed
}

// IsTransient reports whether retrying the same call could plausibly succeed.
// Malformed input and contract violations never are.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind == KindUpstreamUnavailable
	}
	return true
}
