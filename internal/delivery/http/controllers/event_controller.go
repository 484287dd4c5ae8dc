package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	h "congresy/internal/delivery/http/helpers"
	"congresy/internal/domain"
)

// CreateEventRequest is the request body for POST /conferences/{conferenceID}/events.
// Start and end are "dd/MM/yyyy HH:mm".
type CreateEventRequest struct {
	Name                string   `json:"name"`
	Place               string   `json:"place"`
	Description         string   `json:"description"`
	Start               h.Moment `json:"start" swaggertype:"string" example:"01/06/2026 09:00"`
	End                 h.Moment `json:"end" swaggertype:"string" example:"01/06/2026 10:30"`
	AllowedParticipants int      `json:"allowed_participants"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
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
	return errs
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. Omitted fields are unchanged.
type UpdateEventRequest struct {
	Name                *string   `json:"name"`
	Place               *string   `json:"place"`
	Description         *string   `json:"description"`
	Start               *h.Moment `json:"start" swaggertype:"string"`
	End                 *h.Moment `json:"end" swaggertype:"string"`
	AllowedParticipants *int      `json:"allowed_participants"`
}

// Validate implements Validator.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if u.AllowedParticipants != nil && *u.AllowedParticipants <= 0 {
		errs = append(errs, "allowed_participants must be positive")
	}
	return errs
}

type EventController struct {
	Logger      *slog.Logger
	Events      domain.EventService
	Conferences domain.ConferenceService
}

func NewEventController(logger *slog.Logger, events domain.EventService, conferences domain.ConferenceService) *EventController {
	return &EventController{Logger: logger, Events: events, Conferences: conferences}
}

// CreateEvent godoc
// @Summary Create an event in a conference
// @Description The event must fit the conference's dates and its capacity the conference's remaining budget.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param conferenceID path string true "Conference ID"
// @Param body body CreateEventRequest true "Event"
// @Success 201 {object} helpers.APIResponse "data contains the event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /conferences/{conferenceID}/events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	conferenceID := r.PathValue("conferenceID")
	if err := requireOrganizer(r.Context(), c.Conferences, conferenceID, actorID); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	event, err := c.Events.CreateEvent(r.Context(), conferenceID, domain.EventDraft{
		Name:                req.Name,
		Place:               req.Place,
		Description:         req.Description,
		Start:               req.Start.Time,
		End:                 req.End.Time,
		AllowedParticipants: req.AllowedParticipants,
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListConferenceEvents godoc
// @Summary List a conference's events
// @Description Ordered by start, earliest first.
// @Tags events
// @Produce json
// @Param conferenceID path string true "Conference ID"
// @Success 200 {object} helpers.APIResponse "data contains the events"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /conferences/{conferenceID}/events [get]
func (c *EventController) ListConferenceEvents(w http.ResponseWriter, r *http.Request) {
	events, err := c.Events.ListByConference(r.Context(), r.PathValue("conferenceID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, events)
}

// GetEvent godoc
// @Summary Get an event
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := c.Events.GetEvent(r.Context(), r.PathValue("eventID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// EditEvent godoc
// @Summary Edit an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body UpdateEventRequest true "Fields to change"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /events/{eventID} [patch]
func (c *EventController) EditEvent(w http.ResponseWriter, r *http.Request) {
	var req UpdateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	eventID := r.PathValue("eventID")
	if err := requireEventOrganizer(r.Context(), c.Events, c.Conferences, eventID, actorID); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	event, err := c.Events.EditEvent(r.Context(), eventID, domain.EventPatch{
		Name:                req.Name,
		Place:               req.Place,
		Description:         req.Description,
		Start:               h.MomentPtr(req.Start),
		End:                 h.MomentPtr(req.End),
		AllowedParticipants: req.AllowedParticipants,
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Returns the event as it was before deletion. Its seats go back to the conference.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the deleted event"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	eventID := r.PathValue("eventID")
	if err := requireEventOrganizer(r.Context(), c.Events, c.Conferences, eventID, actorID); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	event, err := c.Events.DeleteEvent(r.Context(), eventID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListActorEvents godoc
// @Summary List an actor's events
// @Description Organizers get their conferences' events; everyone else the events they attend or speak at.
// @Tags events
// @Produce json
// @Param actorID path string true "Actor ID"
// @Param day query string false "only events starting or ending that day (dd/MM/yyyy)"
// @Success 200 {object} helpers.APIResponse "data contains the events"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /actors/{actorID}/events [get]
func (c *EventController) ListActorEvents(w http.ResponseWriter, r *http.Request) {
	var day *time.Time
	if s := r.URL.Query().Get("day"); s != "" {
		d, err := domain.ParseDay(s)
		if err != nil {
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, err.Error())
			return
		}
		day = &d
	}
	events, err := c.Events.ListForActor(r.Context(), r.PathValue("actorID"), day)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, events)
}
