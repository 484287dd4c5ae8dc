package domain

import (
	"context"
	"time"
)

// Event is a scheduled session inside a conference. Participants and Speakers are authoritative;
// actor and conference back-references follow them.
// swagger:model Event
type Event struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Place               string    `json:"place"`
	Description         string    `json:"description"`
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end"`
	ConferenceID        string    `json:"conference_id"`
	AllowedParticipants int       `json:"allowed_participants"`
	SeatsLeft           int       `json:"seats_left"`
	Participants        []string  `json:"participants"`
	Speakers            []string  `json:"speakers"`
}

// SeatsUsed is the number of seats this event takes from its conference.
func (e *Event) SeatsUsed() int {
	return e.AllowedParticipants - e.SeatsLeft
}

// EventDraft is the caller-supplied part of a new event.
type EventDraft struct {
	Name                string
	Place               string
	Description         string
	Start               time.Time
	End                 time.Time
	AllowedParticipants int
}

// EventPatch carries optional changes to an event. Nil fields are left untouched.
type EventPatch struct {
	Name                *string
	Place               *string
	Description         *string
	Start               *time.Time
	End                 *time.Time
	AllowedParticipants *int
}

// NewEvent returns an Event with all seats free and empty rosters.
func NewEvent(id, conferenceID string, draft EventDraft) *Event {
	return &Event{
		ID:                  id,
		Name:                draft.Name,
		Place:               draft.Place,
		Description:         draft.Description,
		Start:               draft.Start,
		End:                 draft.End,
		ConferenceID:        conferenceID,
		AllowedParticipants: draft.AllowedParticipants,
		SeatsLeft:           draft.AllowedParticipants,
		Participants:        []string{},
		Speakers:            []string{},
	}
}

// EnrollmentService is the capacity and enrollment coordinator.
// Every operation returns the event as stored after the operation.
type EnrollmentService interface {
	Enroll(ctx context.Context, eventID, actorID string) (*Event, error)
	Withdraw(ctx context.Context, eventID, actorID string) (*Event, error)
	AssignSpeaker(ctx context.Context, eventID, actorID string) (*Event, error)
	RemoveSpeaker(ctx context.Context, eventID, actorID string) (*Event, error)
	ListParticipants(ctx context.Context, eventID string) ([]*Actor, error)
	ListSpeakers(ctx context.Context, eventID string) ([]*Actor, error)
}

// EventService is the event lifecycle manager.
type EventService interface {
	CreateEvent(ctx context.Context, conferenceID string, draft EventDraft) (*Event, error)
	EditEvent(ctx context.Context, eventID string, patch EventPatch) (*Event, error)
	// DeleteEvent returns the event as it was before deletion.
	DeleteEvent(ctx context.Context, eventID string) (*Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	// ListByConference returns the conference's events ordered by start.
	ListByConference(ctx context.Context, conferenceID string) ([]*Event, error)
	// ListForActor returns an organizer's conference events or another actor's own events,
	// optionally limited to events starting or ending on day.
	ListForActor(ctx context.Context, actorID string, day *time.Time) ([]*Event, error)
}
