package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Not-found and store-level errors.
var (
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned by a DocumentStore when the supplied version does not match the stored one.
	ErrVersionConflict = errors.New("version conflict")
	// ErrConflict is returned once an operation has exhausted its retry budget on version conflicts.
	ErrConflict = errors.New("conflict: too many concurrent modifications")
	// ErrPartialFailure marks an operation whose compensation failed; its effect is undefined until repaired.
	ErrPartialFailure = errors.New("partial failure")
	ErrInvalidInput   = errors.New("invalid input")
	// ErrForbidden is returned when an authenticated actor may not act on an aggregate.
	ErrForbidden = errors.New("forbidden")
)

// Enrollment rule violations.
var (
	ErrRoleNotEligible = errors.New("actor role is not eligible")
	ErrSeatsExhausted  = errors.New("no seats left")
	ErrAlreadyEnrolled = errors.New("already enrolled")
	ErrNotEnrolled     = errors.New("not enrolled")
)

// Event lifecycle rule violations.
var (
	ErrTemporalViolation       = errors.New("dates fall outside the conference")
	ErrCapacityExceeded        = errors.New("capacity exceeds the conference budget")
	ErrCapacityBelowEnrollment = errors.New("capacity below current enrollment")
	ErrConferenceHasEvents     = errors.New("conference still has events")
)

// Messaging rule violations.
var (
	ErrFolderMissing = errors.New("folder missing")
	ErrNotInBin      = errors.New("message is not in the bin")
)

// Actor and post rule violations.
var (
	ErrActorHasRelations = errors.New("actor still has relationships")
	ErrAlreadyVoted      = errors.New("already voted")
	ErrNotVoted          = errors.New("not voted")
)

// ErrInvalidCredentials is returned by login when the username or password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// StepRecord is one line of a saga trace.
type StepRecord struct {
	Step    string `json:"step"`
	Kind    Kind   `json:"kind"`
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
}

func (r StepRecord) String() string {
	return fmt.Sprintf("%s(%s/%s)=%s", r.Step, r.Kind, r.ID, r.Outcome)
}

// PartialFailureError reports a saga that could not be fully compensated.
type PartialFailureError struct {
	Saga  string
	Trace []StepRecord
	Cause error
}

func (e *PartialFailureError) Error() string {
	parts := make([]string, 0, len(e.Trace))
	for _, r := range e.Trace {
		parts = append(parts, r.String())
	}
	return fmt.Sprintf("partial failure in %s: %v [%s]", e.Saga, e.Cause, strings.Join(parts, " "))
}

func (e *PartialFailureError) Is(target error) bool {
	return target == ErrPartialFailure
}

func (e *PartialFailureError) Unwrap() error {
	return e.Cause
}
