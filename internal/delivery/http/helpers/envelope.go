package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// Codes carried in APIError.Code. Each one pairs with a single status, see codeStatus.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeForbidden      = "forbidden"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeUnprocessable  = "unprocessable"
	ErrCodePartialFailure = "partial_failure"
	ErrCodeInternalError  = "internal_error"
)

var codeStatus = map[string]int{
	ErrCodeBadRequest:     http.StatusBadRequest,
	ErrCodeUnauthorized:   http.StatusUnauthorized,
	ErrCodeForbidden:      http.StatusForbidden,
	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeConflict:       http.StatusConflict,
	ErrCodeUnprocessable:  http.StatusUnprocessableEntity,
	ErrCodePartialFailure: http.StatusInternalServerError,
	ErrCodeInternalError:  http.StatusInternalServerError,
}

// maxBodyBytes bounds request bodies; the largest legitimate one is a message body.
const maxBodyBytes = 1 << 20

// APIError is the error half of the envelope. Details lists every failed field check of a
// request body, or the steps a partially failed saga left behind.
// swagger:model APIError
type APIError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// APIResponse wraps every body the API writes. Exactly one of Data and Error is set.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

func writeEnvelope(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSONSuccess writes data with the given status.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeEnvelope(w, statusCode, APIResponse{Data: data})
}

// WriteJSONError writes an error envelope. A zero statusCode takes the status paired with code.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	writeAPIError(w, statusCode, &APIError{Code: code, Message: message})
}

func writeAPIError(w http.ResponseWriter, statusCode int, apiErr *APIError) {
	if statusCode == 0 {
		statusCode = statusOfCode(apiErr.Code)
	}
	writeEnvelope(w, statusCode, APIResponse{Error: apiErr})
}

func statusOfCode(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Validator is implemented by request DTOs. Validate returns one message per failed check.
type Validator interface {
	Validate() []string
}

// DecodeAndValidate reads a single JSON object into dest, rejecting unknown fields and trailing
// data, then runs dest's Validate. On failure it writes a bad_request envelope and returns false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		msg := "invalid request body: " + err.Error()
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		WriteJSONError(w, 0, ErrCodeBadRequest, msg)
		return false
	}
	if dec.More() {
		WriteJSONError(w, 0, ErrCodeBadRequest, "request body holds more than one JSON value")
		return false
	}
	if v, ok := dest.(Validator); ok {
		if errs := v.Validate(); len(errs) > 0 {
			writeAPIError(w, 0, &APIError{Code: ErrCodeBadRequest, Message: strings.Join(errs, "; "), Details: errs})
			return false
		}
	}
	return true
}
