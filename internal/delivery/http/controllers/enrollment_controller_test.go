package controllers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"congresy/internal/delivery/http/helpers"
	"congresy/internal/domain"
)

func newEnrollmentController(fake *fakeEnrollmentService) *EnrollmentController {
	return NewEnrollmentController(testLogger, fake,
		&fakeEventService{events: sampleEvents()},
		&fakeConferenceService{conferences: sampleConferences()})
}

func TestEnrollmentController_EnrollAndWithdraw(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		actorID    string
		fakeErr    error
		wantOp     string
		wantStatus int
		wantCode   string
	}{
		{"enroll", http.MethodPost, "a1", nil, "enroll", http.StatusOK, ""},
		{"enroll without token", http.MethodPost, "", nil, "", http.StatusUnauthorized, helpers.ErrCodeUnauthorized},
		{"enroll full event", http.MethodPost, "a1", fmt.Errorf("enroll: %w", domain.ErrSeatsExhausted), "enroll", http.StatusConflict, helpers.ErrCodeConflict},
		{"enroll twice", http.MethodPost, "a1", domain.ErrAlreadyEnrolled, "enroll", http.StatusConflict, helpers.ErrCodeConflict},
		{"enroll as organizer", http.MethodPost, "org", domain.ErrRoleNotEligible, "enroll", http.StatusForbidden, helpers.ErrCodeForbidden},
		{"enroll under contention", http.MethodPost, "a1", domain.ErrConflict, "enroll", http.StatusConflict, helpers.ErrCodeConflict},
		{"withdraw", http.MethodDelete, "a1", nil, "withdraw", http.StatusOK, ""},
		{"withdraw not enrolled", http.MethodDelete, "a1", domain.ErrNotEnrolled, "withdraw", http.StatusConflict, helpers.ErrCodeConflict},
		{"partial failure", http.MethodDelete, "a1", &domain.PartialFailureError{Saga: "withdraw", Cause: fmt.Errorf("disk")}, "withdraw", http.StatusInternalServerError, helpers.ErrCodePartialFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeEnrollmentService{event: sampleEvents()["e1"], err: tt.fakeErr}
			ctrl := newEnrollmentController(fake)
			rr := httptest.NewRecorder()
			req := newRequest(tt.method, "/events/e1/participants", "", tt.actorID, map[string]string{"eventID": "e1"})

			if tt.method == http.MethodPost {
				ctrl.Enroll(rr, req)
			} else {
				ctrl.Withdraw(rr, req)
			}

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantOp, fake.lastOp)
			apiErr := decodeEnvelope(t, rr, nil)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			assert.Equal(t, "e1", fake.lastEvent)
			assert.Equal(t, tt.actorID, fake.lastActor)
		})
	}
}

func TestEnrollmentController_AssignSpeaker(t *testing.T) {
	tests := []struct {
		name       string
		caller     string
		body       string
		wantStatus int
		wantOp     string
	}{
		{"organizer assigns", "org", `{"actor_id":"a2"}`, http.StatusOK, "assign"},
		{"non organizer", "a1", `{"actor_id":"a2"}`, http.StatusForbidden, ""},
		{"missing actor", "org", `{}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeEnrollmentService{event: sampleEvents()["e1"]}
			ctrl := newEnrollmentController(fake)
			rr := httptest.NewRecorder()

			ctrl.AssignSpeaker(rr, newRequest(http.MethodPost, "/events/e1/speakers", tt.body, tt.caller, map[string]string{"eventID": "e1"}))

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantOp, fake.lastOp)
			if tt.wantOp != "" {
				assert.Equal(t, "a2", fake.lastActor)
			}
		})
	}
}

func TestEnrollmentController_RemoveSpeaker(t *testing.T) {
	fake := &fakeEnrollmentService{event: sampleEvents()["e1"]}
	ctrl := newEnrollmentController(fake)
	rr := httptest.NewRecorder()

	ctrl.RemoveSpeaker(rr, newRequest(http.MethodDelete, "/events/e1/speakers/a2", "", "org", map[string]string{"eventID": "e1", "actorID": "a2"}))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "remove", fake.lastOp)
	assert.Equal(t, "a2", fake.lastActor)

	rr = httptest.NewRecorder()
	ctrl.RemoveSpeaker(rr, newRequest(http.MethodDelete, "/events/zz/speakers/a2", "", "org", map[string]string{"eventID": "zz", "actorID": "a2"}))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEnrollmentController_Rosters(t *testing.T) {
	fake := &fakeEnrollmentService{roster: []*domain.Actor{{ID: "a1"}, {ID: "a2"}}}
	ctrl := newEnrollmentController(fake)

	rr := httptest.NewRecorder()
	ctrl.ListParticipants(rr, newRequest(http.MethodGet, "/events/e1/participants", "", "", map[string]string{"eventID": "e1"}))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "participants", fake.lastOp)
	var actors []*domain.Actor
	require.Nil(t, decodeEnvelope(t, rr, &actors))
	assert.Len(t, actors, 2)

	rr = httptest.NewRecorder()
	ctrl.ListSpeakers(rr, newRequest(http.MethodGet, "/events/e1/speakers", "", "", map[string]string{"eventID": "e1"}))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "speakers", fake.lastOp)
}
