package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"congresy/internal/domain"
)

// errorCodes maps domain sentinels to an envelope code. First match wins, so partial failures
// come before the sentinels their cause may wrap.
var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrPartialFailure, ErrCodePartialFailure},
	{domain.ErrInvalidInput, ErrCodeBadRequest},
	{domain.ErrInvalidCredentials, ErrCodeUnauthorized},
	{domain.ErrForbidden, ErrCodeForbidden},
	{domain.ErrRoleNotEligible, ErrCodeForbidden},
	{domain.ErrNotFound, ErrCodeNotFound},
	{domain.ErrFolderMissing, ErrCodeNotFound},
	{domain.ErrConflict, ErrCodeConflict},
	{domain.ErrSeatsExhausted, ErrCodeConflict},
	{domain.ErrAlreadyEnrolled, ErrCodeConflict},
	{domain.ErrNotEnrolled, ErrCodeConflict},
	{domain.ErrNotInBin, ErrCodeConflict},
	{domain.ErrConferenceHasEvents, ErrCodeConflict},
	{domain.ErrActorHasRelations, ErrCodeConflict},
	{domain.ErrAlreadyVoted, ErrCodeConflict},
	{domain.ErrNotVoted, ErrCodeConflict},
	{domain.ErrTemporalViolation, ErrCodeUnprocessable},
	{domain.ErrCapacityExceeded, ErrCodeUnprocessable},
	{domain.ErrCapacityBelowEnrollment, ErrCodeUnprocessable},
}

// StatusFor returns the HTTP status and envelope code for err. Unknown errors are internal.
func StatusFor(err error) (int, string) {
	code := ErrCodeInternalError
	for _, m := range errorCodes {
		if errors.Is(err, m.err) {
			code = m.code
			break
		}
	}
	return statusOfCode(code), code
}

// WriteServiceError writes err as an envelope. Server-side failures are logged; a partial failure
// also lists the saga trace so an operator knows what the repair pass has to fix.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := StatusFor(err)
	apiErr := &APIError{Code: code, Message: err.Error()}
	var pf *domain.PartialFailureError
	if errors.As(err, &pf) {
		apiErr.Message = "operation " + pf.Saga + " left partial state; run repair"
		for _, rec := range pf.Trace {
			apiErr.Details = append(apiErr.Details, rec.String())
		}
	}
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "code", code, "err", err)
	}
	writeAPIError(w, status, apiErr)
}
