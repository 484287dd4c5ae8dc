package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	h "congresy/internal/delivery/http/helpers"
	"congresy/internal/domain"
)

// RegisterRequest is the request body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Nick     string `json:"nick"`
	Email    string `json:"email"`
	Place    string `json:"place"`
	Role     string `json:"role"` // User, Speaker, Organizator or Administrator
}

// Validate implements Validator.
func (s RegisterRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(s.Username) == "" {
		errs = append(errs, "username is required")
	}
	if s.Password == "" {
		errs = append(errs, "password is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(s.Email) == "" {
		errs = append(errs, "email is required")
	}
	if !domain.Role(s.Role).Valid() {
		errs = append(errs, "role must be one of User, Speaker, Organizator, Administrator")
	}
	return errs
}

// RegisterSuccessResponse is the success response envelope for POST /auth/register (201).
type RegisterSuccessResponse struct {
	Data  *domain.Actor `json:"data"`
	Error *h.APIError   `json:"error"`
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate implements Validator.
func (l LoginRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(l.Username) == "" {
		errs = append(errs, "username is required")
	}
	if l.Password == "" {
		errs = append(errs, "password is required")
	}
	return errs
}

// LoginResponse is the response body for POST /auth/login.
type LoginResponse struct {
	Token     string        `json:"token"`
	TokenType string        `json:"token_type"`
	Actor     *domain.Actor `json:"actor"`
}

// LoginSuccessResponse is the success response envelope for POST /auth/login (200).
type LoginSuccessResponse struct {
	Data  LoginResponse `json:"data"`
	Error *h.APIError   `json:"error"`
}

type AuthController struct {
	Logger *slog.Logger
	Auth   domain.AuthService
	Actors domain.ActorService
}

func NewAuthController(logger *slog.Logger, auth domain.AuthService, actors domain.ActorService) *AuthController {
	return &AuthController{
		Logger: logger,
		Auth:   auth,
		Actors: actors,
	}
}

// Register godoc
// @Summary Register an actor
// @Description Creates the user account, the actor and its Inbox, Outbox and Bin folders.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Account and profile"
// @Success 201 {object} controllers.RegisterSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (username taken)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /auth/register [post]
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	draft := domain.ActorDraft{
		Name:    req.Name,
		Surname: req.Surname,
		Nick:    req.Nick,
		Email:   req.Email,
		Place:   req.Place,
		Role:    domain.Role(req.Role),
	}
	actor, err := c.Actors.Register(r.Context(), draft, req.Username, req.Password)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, actor)
}

// Login godoc
// @Summary Log in
// @Description Exchanges username and password for a bearer token.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} controllers.LoginSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /auth/login [post]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	token, actor, err := c.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, LoginResponse{Token: token, TokenType: "Bearer", Actor: actor})
}
