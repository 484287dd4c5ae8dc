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

func sampleConferences() map[string]*domain.Conference {
	return map[string]*domain.Conference{
		"c1": {ID: "c1", Name: "GopherCon", Organizers: []string{"org"}, AllowedParticipants: 100, SeatsLeft: 100},
	}
}

func TestConferenceController_CreateConference(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		actorID    string
		fakeErr    error
		wantStatus int
		wantSubstr string
	}{
		{
			name:       "success",
			body:       `{"name":"GopherCon","start":"01/06/2026","end":"03/06/2026","allowed_participants":100}`,
			actorID:    "org",
			wantStatus: http.StatusCreated,
		},
		{
			name:       "bad date format",
			body:       `{"name":"GopherCon","start":"2026-06-01","end":"03/06/2026","allowed_participants":100}`,
			actorID:    "org",
			wantStatus: http.StatusBadRequest,
			wantSubstr: "dd/MM/yyyy",
		},
		{
			name:       "missing capacity",
			body:       `{"name":"GopherCon","start":"01/06/2026","end":"03/06/2026"}`,
			actorID:    "org",
			wantStatus: http.StatusBadRequest,
			wantSubstr: "allowed_participants must be positive",
		},
		{
			name:       "no caller",
			body:       `{"name":"GopherCon","start":"01/06/2026","end":"03/06/2026","allowed_participants":100}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not an organizator",
			body:       `{"name":"GopherCon","start":"01/06/2026","end":"03/06/2026","allowed_participants":100}`,
			actorID:    "user",
			fakeErr:    domain.ErrRoleNotEligible,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "end before start",
			body:       `{"name":"GopherCon","start":"03/06/2026","end":"01/06/2026","allowed_participants":100}`,
			actorID:    "org",
			fakeErr:    domain.ErrTemporalViolation,
			wantStatus: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeConferenceService{createErr: tt.fakeErr}
			ctrl := NewConferenceController(testLogger, fake)
			rr := httptest.NewRecorder()

			ctrl.CreateConference(rr, newRequest(http.MethodPost, "/conferences", tt.body, tt.actorID, nil))

			require.Equal(t, tt.wantStatus, rr.Code)
			var conf domain.Conference
			apiErr := decodeEnvelope(t, rr, &conf)
			if tt.wantStatus != http.StatusCreated {
				require.NotNil(t, apiErr)
				assert.Contains(t, apiErr.Message, tt.wantSubstr)
				return
			}
			assert.Equal(t, []string{"org"}, conf.Organizers)
			assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), fake.lastDraft.Start)
			assert.Equal(t, 100, fake.lastDraft.AllowedParticipants)
		})
	}
}

func TestConferenceController_EditConference(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		actorID    string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"organizer edits", "c1", "org", `{"name":"GoCon","end":"05/06/2026"}`, http.StatusOK, ""},
		{"other actor", "c1", "mallory", `{"name":"GoCon"}`, http.StatusForbidden, helpers.ErrCodeForbidden},
		{"unknown conference", "zz", "org", `{"name":"GoCon"}`, http.StatusNotFound, helpers.ErrCodeNotFound},
		{"empty name", "c1", "org", `{"name":""}`, http.StatusBadRequest, helpers.ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeConferenceService{conferences: sampleConferences()}
			ctrl := NewConferenceController(testLogger, fake)
			rr := httptest.NewRecorder()

			ctrl.EditConference(rr, newRequest(http.MethodPatch, "/conferences/"+tt.id, tt.body, tt.actorID, map[string]string{"conferenceID": tt.id}))

			require.Equal(t, tt.wantStatus, rr.Code)
			apiErr := decodeEnvelope(t, rr, nil)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			require.NotNil(t, fake.lastPatch.Name)
			assert.Equal(t, "GoCon", *fake.lastPatch.Name)
			require.NotNil(t, fake.lastPatch.End)
			assert.Equal(t, time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC), *fake.lastPatch.End)
			assert.Nil(t, fake.lastPatch.Start)
		})
	}
}

func TestConferenceController_DeleteConference(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fake := &fakeConferenceService{conferences: sampleConferences()}
		ctrl := NewConferenceController(testLogger, fake)
		rr := httptest.NewRecorder()

		ctrl.DeleteConference(rr, newRequest(http.MethodDelete, "/conferences/c1", "", "org", map[string]string{"conferenceID": "c1"}))

		require.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, []string{"c1"}, fake.deleted)
	})

	t.Run("still has events", func(t *testing.T) {
		fake := &fakeConferenceService{conferences: sampleConferences(), deleteErr: domain.ErrConferenceHasEvents}
		ctrl := NewConferenceController(testLogger, fake)
		rr := httptest.NewRecorder()

		ctrl.DeleteConference(rr, newRequest(http.MethodDelete, "/conferences/c1", "", "org", map[string]string{"conferenceID": "c1"}))

		require.Equal(t, http.StatusConflict, rr.Code)
		assert.Empty(t, fake.deleted)
	})
}

func TestConferenceController_GetAndList(t *testing.T) {
	ctrl := NewConferenceController(testLogger, &fakeConferenceService{conferences: sampleConferences()})

	rr := httptest.NewRecorder()
	ctrl.GetConference(rr, newRequest(http.MethodGet, "/conferences/c1", "", "", map[string]string{"conferenceID": "c1"}))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	ctrl.ListConferences(rr, newRequest(http.MethodGet, "/conferences", "", "", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var page helpers.Page[*domain.Conference]
	require.Nil(t, decodeEnvelope(t, rr, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "GopherCon", page.Items[0].Name)
	assert.Equal(t, 1, page.Pagination.TotalPages)
}
