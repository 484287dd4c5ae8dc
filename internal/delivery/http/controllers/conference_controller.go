package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	h "congresy/internal/delivery/http/helpers"
	"congresy/internal/domain"
)

// CreateConferenceRequest is the request body for POST /conferences. Dates are "dd/MM/yyyy".
type CreateConferenceRequest struct {
	Name                string  `json:"name"`
	Theme               string  `json:"theme"`
	Description         string  `json:"description"`
	Place               string  `json:"place"`
	Price               float64 `json:"price"`
	Start               h.Day   `json:"start" swaggertype:"string" example:"01/06/2026"`
	End                 h.Day   `json:"end" swaggertype:"string" example:"03/06/2026"`
	AllowedParticipants int     `json:"allowed_participants"`
}

// Validate implements Validator.
func (c CreateConferenceRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.Start.IsZero() || c.End.IsZero() {
		errs = append(errs, "start and end are required")
	}
	if c.AllowedParticipants <= 0 {
		errs = append(errs, "allowed_participants must be positive")
	}
	if c.Price < 0 {
		errs = append(errs, "price must not be negative")
	}
	return errs
}

// UpdateConferenceRequest is the request body for PATCH /conferences/{conferenceID}. Omitted fields are unchanged.
type UpdateConferenceRequest struct {
	Name                *string  `json:"name"`
	Theme               *string  `json:"theme"`
	Description         *string  `json:"description"`
	Place               *string  `json:"place"`
	Price               *float64 `json:"price"`
	Start               *h.Day   `json:"start" swaggertype:"string"`
	End                 *h.Day   `json:"end" swaggertype:"string"`
	AllowedParticipants *int     `json:"allowed_participants"`
}

// Validate implements Validator.
func (u UpdateConferenceRequest) Validate() []string {
	var errs []string
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if u.AllowedParticipants != nil && *u.AllowedParticipants <= 0 {
		errs = append(errs, "allowed_participants must be positive")
	}
	if u.Price != nil && *u.Price < 0 {
		errs = append(errs, "price must not be negative")
	}
	return errs
}

// ConferencePageResponse is the success response envelope for GET /conferences (200).
type ConferencePageResponse struct {
	Data  h.Page[*domain.Conference] `json:"data"`
	Error *h.APIError                `json:"error"`
}

type ConferenceController struct {
	Logger      *slog.Logger
	Conferences domain.ConferenceService
}

func NewConferenceController(logger *slog.Logger, conferences domain.ConferenceService) *ConferenceController {
	return &ConferenceController{Logger: logger, Conferences: conferences}
}

// CreateConference godoc
// @Summary Create a conference
// @Description The caller must be an Organizator and becomes the conference's first organizer.
// @Tags conferences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateConferenceRequest true "Conference"
// @Success 201 {object} helpers.APIResponse "data contains the conference"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /conferences [post]
func (c *ConferenceController) CreateConference(w http.ResponseWriter, r *http.Request) {
	var req CreateConferenceRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	conf, err := c.Conferences.CreateConference(r.Context(), actorID, domain.ConferenceDraft{
		Name:                req.Name,
		Theme:               req.Theme,
		Description:         req.Description,
		Place:               req.Place,
		Price:               req.Price,
		Start:               req.Start.Time,
		End:                 req.End.Time,
		AllowedParticipants: req.AllowedParticipants,
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, conf)
}

// ListConferences godoc
// @Summary List conferences
// @Tags conferences
// @Produce json
// @Param page query int false "page (default 1)"
// @Param page_size query int false "page size (default 20, max 100)"
// @Success 200 {object} controllers.ConferencePageResponse
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /conferences [get]
func (c *ConferenceController) ListConferences(w http.ResponseWriter, r *http.Request) {
	confs, err := c.Conferences.ListConferences(r.Context())
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, h.Paginate(confs, h.ParsePagination(r)))
}

// GetConference godoc
// @Summary Get a conference
// @Tags conferences
// @Produce json
// @Param conferenceID path string true "Conference ID"
// @Success 200 {object} helpers.APIResponse "data contains the conference"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /conferences/{conferenceID} [get]
func (c *ConferenceController) GetConference(w http.ResponseWriter, r *http.Request) {
	conf, err := c.Conferences.GetConference(r.Context(), r.PathValue("conferenceID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, conf)
}

// EditConference godoc
// @Summary Edit a conference
// @Description New dates must still contain every event; capacity may not drop below the events' total.
// @Tags conferences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param conferenceID path string true "Conference ID"
// @Param body body UpdateConferenceRequest true "Fields to change"
// @Success 200 {object} helpers.APIResponse "data contains the conference"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /conferences/{conferenceID} [patch]
func (c *ConferenceController) EditConference(w http.ResponseWriter, r *http.Request) {
	var req UpdateConferenceRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	id := r.PathValue("conferenceID")
	if err := requireOrganizer(r.Context(), c.Conferences, id, actorID); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	conf, err := c.Conferences.EditConference(r.Context(), id, domain.ConferencePatch{
		Name:                req.Name,
		Theme:               req.Theme,
		Description:         req.Description,
		Place:               req.Place,
		Price:               req.Price,
		Start:               h.DayPtr(req.Start),
		End:                 h.DayPtr(req.End),
		AllowedParticipants: req.AllowedParticipants,
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, conf)
}

// DeleteConference godoc
// @Summary Delete a conference
// @Description Fails while the conference still lists events.
// @Tags conferences
// @Security BearerAuth
// @Param conferenceID path string true "Conference ID"
// @Success 204 "No Content"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /conferences/{conferenceID} [delete]
func (c *ConferenceController) DeleteConference(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	id := r.PathValue("conferenceID")
	if err := requireOrganizer(r.Context(), c.Conferences, id, actorID); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if err := c.Conferences.DeleteConference(r.Context(), id); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
