package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"congresy/internal/delivery/http/helpers"
	"congresy/internal/domain"
)

func sampleEvents() map[string]*domain.Event {
	return map[string]*domain.Event{
		"e1": {ID: "e1", Name: "Keynote", ConferenceID: "c1", AllowedParticipants: 10, SeatsLeft: 8},
	}
}

func newEventController() (*EventController, *fakeEventService) {
	events := &fakeEventService{events: sampleEvents()}
	return NewEventController(testLogger, events, &fakeConferenceService{conferences: sampleConferences()}), events
}

func TestEventController_CreateEvent(t *testing.T) {
	tests := []struct {
		name       string
		conference string
		actorID    string
		body       string
		fakeErr    error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "success",
			conference: "c1",
			actorID:    "org",
			body:       `{"name":"Keynote","start":"01/06/2026 09:00","end":"01/06/2026 10:00","allowed_participants":50}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "escaped slashes accepted",
			conference: "c1",
			actorID:    "org",
			body:       `{"name":"Keynote","start":"01\\/06\\/2026 09:00","end":"01/06/2026 10:00","allowed_participants":50}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "day only is not a moment",
			conference: "c1",
			actorID:    "org",
			body:       `{"name":"Keynote","start":"01/06/2026","end":"01/06/2026 10:00","allowed_participants":50}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
		{
			name:       "not an organizer of the conference",
			conference: "c1",
			actorID:    "mallory",
			body:       `{"name":"Keynote","start":"01/06/2026 09:00","end":"01/06/2026 10:00","allowed_participants":50}`,
			wantStatus: http.StatusForbidden,
			wantCode:   helpers.ErrCodeForbidden,
		},
		{
			name:       "over budget",
			conference: "c1",
			actorID:    "org",
			body:       `{"name":"Keynote","start":"01/06/2026 09:00","end":"01/06/2026 10:00","allowed_participants":500}`,
			fakeErr:    domain.ErrCapacityExceeded,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   helpers.ErrCodeUnprocessable,
		},
		{
			name:       "unknown conference",
			conference: "zz",
			actorID:    "org",
			body:       `{"name":"Keynote","start":"01/06/2026 09:00","end":"01/06/2026 10:00","allowed_participants":5}`,
			wantStatus: http.StatusNotFound,
			wantCode:   helpers.ErrCodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, events := newEventController()
			events.createErr = tt.fakeErr
			rr := httptest.NewRecorder()

			req := newRequest(http.MethodPost, "/conferences/"+tt.conference+"/events", tt.body, tt.actorID, map[string]string{"conferenceID": tt.conference})
			ctrl.CreateEvent(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			var event domain.Event
			apiErr := decodeEnvelope(t, rr, &event)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			assert.Equal(t, "c1", event.ConferenceID)
			assert.Equal(t, time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC), events.lastDraft.Start)
			assert.Equal(t, 50, events.lastDraft.AllowedParticipants)
		})
	}
}

func TestEventController_EditEvent(t *testing.T) {
	ctrl, events := newEventController()
	rr := httptest.NewRecorder()

	ctrl.EditEvent(rr, newRequest(http.MethodPatch, "/events/e1", `{"allowed_participants":1}`, "org", map[string]string{"eventID": "e1"}))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, events.lastPatch.AllowedParticipants)
	assert.Equal(t, 1, *events.lastPatch.AllowedParticipants)
	assert.Nil(t, events.lastPatch.Start)

	events.editErr = domain.ErrCapacityBelowEnrollment
	rr = httptest.NewRecorder()
	ctrl.EditEvent(rr, newRequest(http.MethodPatch, "/events/e1", `{"allowed_participants":1}`, "org", map[string]string{"eventID": "e1"}))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = httptest.NewRecorder()
	ctrl.EditEvent(rr, newRequest(http.MethodPatch, "/events/e1", `{"name":"x"}`, "mallory", map[string]string{"eventID": "e1"}))
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestEventController_DeleteEvent(t *testing.T) {
	ctrl, events := newEventController()

	rr := httptest.NewRecorder()
	ctrl.DeleteEvent(rr, newRequest(http.MethodDelete, "/events/e1", "", "mallory", map[string]string{"eventID": "e1"}))
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, events.deletedIDs)

	rr = httptest.NewRecorder()
	ctrl.DeleteEvent(rr, newRequest(http.MethodDelete, "/events/e1", "", "org", map[string]string{"eventID": "e1"}))
	require.Equal(t, http.StatusOK, rr.Code)
	var event domain.Event
	require.Nil(t, decodeEnvelope(t, rr, &event))
	assert.Equal(t, 8, event.SeatsLeft)
	assert.Equal(t, []string{"e1"}, events.deletedIDs)
}

func TestEventController_ListActorEvents(t *testing.T) {
	ctrl, events := newEventController()

	rr := httptest.NewRecorder()
	ctrl.ListActorEvents(rr, newRequest(http.MethodGet, "/actors/a1/events?day=01/06/2026", "", "", map[string]string{"actorID": "a1"}))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "a1", events.lastActor)
	require.NotNil(t, events.lastDay)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), *events.lastDay)

	rr = httptest.NewRecorder()
	ctrl.ListActorEvents(rr, newRequest(http.MethodGet, "/actors/a1/events", "", "", map[string]string{"actorID": "a1"}))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, events.lastDay)

	rr = httptest.NewRecorder()
	ctrl.ListActorEvents(rr, newRequest(http.MethodGet, "/actors/a1/events?day=June", "", "", map[string]string{"actorID": "a1"}))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEventController_GetAndListByConference(t *testing.T) {
	ctrl, _ := newEventController()

	rr := httptest.NewRecorder()
	ctrl.GetEvent(rr, newRequest(http.MethodGet, "/events/nope", "", "", map[string]string{"eventID": "nope"}))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	ctrl.ListConferenceEvents(rr, newRequest(http.MethodGet, "/conferences/c1/events", "", "", map[string]string{"conferenceID": "c1"}))
	require.Equal(t, http.StatusOK, rr.Code)
	var events []*domain.Event
	require.Nil(t, decodeEnvelope(t, rr, &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Keynote", events[0].Name)
}
