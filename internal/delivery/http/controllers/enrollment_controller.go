package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	h "congresy/internal/delivery/http/helpers"
	"congresy/internal/domain"
)

// AssignSpeakerRequest is the request body for POST /events/{eventID}/speakers.
type AssignSpeakerRequest struct {
	ActorID string `json:"actor_id"`
}

// Validate implements Validator.
func (a AssignSpeakerRequest) Validate() []string {
	if strings.TrimSpace(a.ActorID) == "" {
		return []string{"actor_id is required"}
	}
	return nil
}

type EnrollmentController struct {
	Logger      *slog.Logger
	Enrollment  domain.EnrollmentService
	Events      domain.EventService
	Conferences domain.ConferenceService
}

func NewEnrollmentController(logger *slog.Logger, enrollment domain.EnrollmentService, events domain.EventService, conferences domain.ConferenceService) *EnrollmentController {
	return &EnrollmentController{Logger: logger, Enrollment: enrollment, Events: events, Conferences: conferences}
}

// Enroll godoc
// @Summary Enroll the caller in an event
// @Description Takes one seat from the event and one from its conference.
// @Tags enrollment
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (role not eligible)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (no seats, already enrolled, contention)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /events/{eventID}/participants [post]
func (c *EnrollmentController) Enroll(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	event, err := c.Enrollment.Enroll(r.Context(), r.PathValue("eventID"), actorID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// Withdraw godoc
// @Summary Withdraw the caller from an event
// @Tags enrollment
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not enrolled, contention)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /events/{eventID}/participants [delete]
func (c *EnrollmentController) Withdraw(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	event, err := c.Enrollment.Withdraw(r.Context(), r.PathValue("eventID"), actorID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListParticipants godoc
// @Summary List an event's participants
// @Tags enrollment
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the actors"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /events/{eventID}/participants [get]
func (c *EnrollmentController) ListParticipants(w http.ResponseWriter, r *http.Request) {
	actors, err := c.Enrollment.ListParticipants(r.Context(), r.PathValue("eventID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, actors)
}

// AssignSpeaker godoc
// @Summary Assign a speaker to an event
// @Description Only an organizer of the event's conference may assign speakers. Speakers take no seats.
// @Tags enrollment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body AssignSpeakerRequest true "Speaker"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /events/{eventID}/speakers [post]
func (c *EnrollmentController) AssignSpeaker(w http.ResponseWriter, r *http.Request) {
	var req AssignSpeakerRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	callerActorID, ok := callerID(w, r)
	if !ok {
		return
	}
	eventID := r.PathValue("eventID")
	if err := requireEventOrganizer(r.Context(), c.Events, c.Conferences, eventID, callerActorID); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	event, err := c.Enrollment.AssignSpeaker(r.Context(), eventID, req.ActorID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// RemoveSpeaker godoc
// @Summary Remove a speaker from an event
// @Tags enrollment
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param actorID path string true "Speaker actor ID"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /events/{eventID}/speakers/{actorID} [delete]
func (c *EnrollmentController) RemoveSpeaker(w http.ResponseWriter, r *http.Request) {
	callerActorID, ok := callerID(w, r)
	if !ok {
		return
	}
	eventID := r.PathValue("eventID")
	if err := requireEventOrganizer(r.Context(), c.Events, c.Conferences, eventID, callerActorID); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	event, err := c.Enrollment.RemoveSpeaker(r.Context(), eventID, r.PathValue("actorID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListSpeakers godoc
// @Summary List an event's speakers
// @Tags enrollment
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the actors"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /events/{eventID}/speakers [get]
func (c *EnrollmentController) ListSpeakers(w http.ResponseWriter, r *http.Request) {
	actors, err := c.Enrollment.ListSpeakers(r.Context(), r.PathValue("eventID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, actors)
}
