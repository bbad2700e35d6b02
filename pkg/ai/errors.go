package ai

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformedResponse indicates the provider reply does not match the evaluation schema.
	ErrMalformedResponse = errors.New("malformed ai response")
	// ErrEvaluationFailed indicates the evaluator gave up after exhausting its attempts.
	ErrEvaluationFailed = errors.New("ai evaluation failed")
)

// MalformedResponseError points at the first offending part of a provider reply.
// Index is the category position, or -1 for problems outside the categories array.
type MalformedResponseError struct {
	Index  int
	Field  string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	switch {
	case e.Index >= 0 && e.Field != "":
		return fmt.Sprintf("malformed ai response: categories[%d].%s: %s", e.Index, e.Field, e.Reason)
	case e.Index >= 0:
		return fmt.Sprintf("malformed ai response: categories[%d]: %s", e.Index, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("malformed ai response: %s: %s", e.Field, e.Reason)
	default:
		return fmt.Sprintf("malformed ai response: %s", e.Reason)
	}
}

func (e *MalformedResponseError) Unwrap() error {
	return ErrMalformedResponse
}

// EvaluationError carries the context of a terminal evaluation failure.
type EvaluationError struct {
	ChallengeID string
	EssayLength int
	RubricSize  int
	Attempts    int
	Timestamp   time.Time
	Err         error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("ai evaluation failed for challenge %s after %d attempt(s): %v", e.ChallengeID, e.Attempts, e.Err)
}

// Is reports ErrEvaluationFailed as a match so callers can test the category.
func (e *EvaluationError) Is(target error) bool {
	return target == ErrEvaluationFailed
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
