package controllers

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"congresy/internal/delivery/http/helpers"
	"congresy/internal/delivery/http/middleware"
	"congresy/internal/domain"
)

// callerID returns the authenticated actor or writes a 401.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.ActorIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
	}
	return id, ok
}

// requireOrganizer fails with ErrForbidden unless actorID organizes the conference.
func requireOrganizer(ctx context.Context, conferences domain.ConferenceService, conferenceID, actorID string) error {
	c, err := conferences.GetConference(ctx, conferenceID)
	if err != nil {
		return err
	}
	if !slices.Contains(c.Organizers, actorID) {
		return fmt.Errorf("%w: %s does not organize conference %s", domain.ErrForbidden, actorID, conferenceID)
	}
	return nil
}

// requireEventOrganizer fails with ErrForbidden unless actorID organizes the event's conference.
func requireEventOrganizer(ctx context.Context, events domain.EventService, conferences domain.ConferenceService, eventID, actorID string) error {
	e, err := events.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	return requireOrganizer(ctx, conferences, e.ConferenceID, actorID)
}

// isAdmin reports whether actorID is an Administrator.
func isAdmin(ctx context.Context, actors domain.ActorService, actorID string) (bool, error) {
	a, err := actors.Get(ctx, actorID)
	if err != nil {
		return false, err
	}
	return a.Role == domain.RoleAdministrator, nil
}

// requireSelfOrAdmin fails with ErrForbidden unless the caller is the target actor or an
// Administrator. It reports whether the caller is an Administrator.
func requireSelfOrAdmin(ctx context.Context, actors domain.ActorService, callerID, targetID string) (bool, error) {
	admin, err := isAdmin(ctx, actors, callerID)
	if err != nil {
		return false, err
	}
	if !admin && callerID != targetID {
		return false, fmt.Errorf("%w: %s may not act on actor %s", domain.ErrForbidden, callerID, targetID)
	}
	return admin, nil
}
