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

func TestAuthController_Register(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		fakeErr    error
		wantStatus int
		wantCode   string
		wantSubstr string
	}{
		{
			name:       "success",
			body:       `{"username":"alice","password":"secret-pw","name":"Alice","email":"alice@example.com","role":"User"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid role",
			body:       `{"username":"alice","password":"secret-pw","name":"Alice","email":"alice@example.com","role":"Guest"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
			wantSubstr: "role must be one of",
		},
		{
			name:       "missing fields",
			body:       `{"role":"User"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
			wantSubstr: "username is required",
		},
		{
			name:       "unknown field rejected",
			body:       `{"username":"alice","password":"secret-pw","name":"Alice","email":"a@b.c","role":"User","banned":true}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
			wantSubstr: "unknown field",
		},
		{
			name:       "username taken",
			body:       `{"username":"alice","password":"secret-pw","name":"Alice","email":"alice@example.com","role":"User"}`,
			fakeErr:    fmt.Errorf("username alice: %w", domain.ErrConflict),
			wantStatus: http.StatusConflict,
			wantCode:   helpers.ErrCodeConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actors := &fakeActorService{registerErr: tt.fakeErr}
			ctrl := NewAuthController(testLogger, &fakeAuthService{}, actors)
			rr := httptest.NewRecorder()

			ctrl.Register(rr, newRequest(http.MethodPost, "/auth/register", tt.body, "", nil))

			require.Equal(t, tt.wantStatus, rr.Code)
			var actor domain.Actor
			apiErr := decodeEnvelope(t, rr, &actor)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				assert.Contains(t, apiErr.Message, tt.wantSubstr)
				return
			}
			require.Nil(t, apiErr)
			assert.Equal(t, "alice", actor.ID)
			assert.Equal(t, domain.RoleUser, actors.lastDraft.Role)
			assert.Equal(t, "alice", actors.lastUsername)
		})
	}
}

func TestAuthController_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		actor := &domain.Actor{ID: "alice", Role: domain.RoleUser}
		ctrl := NewAuthController(testLogger, &fakeAuthService{token: "tok", actor: actor}, &fakeActorService{})
		rr := httptest.NewRecorder()

		ctrl.Login(rr, newRequest(http.MethodPost, "/auth/login", `{"username":"alice","password":"secret-pw"}`, "", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp LoginResponse
		require.Nil(t, decodeEnvelope(t, rr, &resp))
		assert.Equal(t, "tok", resp.Token)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.Equal(t, "alice", resp.Actor.ID)
	})

	t.Run("bad credentials", func(t *testing.T) {
		ctrl := NewAuthController(testLogger, &fakeAuthService{err: domain.ErrInvalidCredentials}, &fakeActorService{})
		rr := httptest.NewRecorder()

		ctrl.Login(rr, newRequest(http.MethodPost, "/auth/login", `{"username":"alice","password":"nope"}`, "", nil))

		require.Equal(t, http.StatusUnauthorized, rr.Code)
		apiErr := decodeEnvelope(t, rr, nil)
		require.NotNil(t, apiErr)
		assert.Equal(t, helpers.ErrCodeUnauthorized, apiErr.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		ctrl := NewAuthController(testLogger, &fakeAuthService{}, &fakeActorService{})
		rr := httptest.NewRecorder()

		ctrl.Login(rr, newRequest(http.MethodPost, "/auth/login", `{"username":"alice"}`, "", nil))

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
