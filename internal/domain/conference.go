package domain

import (
	"context"
	"time"
)

// Conference groups scheduled events under one seat budget and one date range.
// Events is the authoritative membership list; SeatsLeft and Participants are derived.
// swagger:model Conference
type Conference struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Theme               string    `json:"theme"`
	Description         string    `json:"description"`
	Place               string    `json:"place"`
	Price               float64   `json:"price"`
	Popularity          float64   `json:"popularity"`
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end"`
	AllowedParticipants int       `json:"allowed_participants"`
	SeatsLeft           int       `json:"seats_left"`
	Events              []string  `json:"events"`
	Organizers          []string  `json:"organizers"`
	// Participants holds the speakers of the conference's events.
	Participants []string `json:"participants"`
}

// ConferenceDraft is the caller-supplied part of a new conference.
type ConferenceDraft struct {
	Name                string
	Theme               string
	Description         string
	Place               string
	Price               float64
	Start               time.Time
	End                 time.Time
	AllowedParticipants int
}

// ConferencePatch carries optional changes to a conference. Nil fields are left untouched.
type ConferencePatch struct {
	Name                *string
	Theme               *string
	Description         *string
	Place               *string
	Price               *float64
	Start               *time.Time
	End                 *time.Time
	AllowedParticipants *int
}

// NewConference returns a Conference with its day range normalized and every list initialized.
func NewConference(id, organizerID string, draft ConferenceDraft) *Conference {
	return &Conference{
		ID:                  id,
		Name:                draft.Name,
		Theme:               draft.Theme,
		Description:         draft.Description,
		Place:               draft.Place,
		Price:               draft.Price,
		Start:               Day(draft.Start),
		End:                 Day(draft.End),
		AllowedParticipants: draft.AllowedParticipants,
		SeatsLeft:           draft.AllowedParticipants,
		Events:              []string{},
		Organizers:          []string{organizerID},
		Participants:        []string{},
	}
}

// Contains reports whether [start, end] lies within the conference's days.
func (c *Conference) Contains(start, end time.Time) bool {
	return !Day(start).Before(Day(c.Start)) && !Day(end).After(Day(c.End))
}

// ConferenceService manages conferences.
type ConferenceService interface {
	CreateConference(ctx context.Context, organizerID string, draft ConferenceDraft) (*Conference, error)
	EditConference(ctx context.Context, id string, patch ConferencePatch) (*Conference, error)
	// DeleteConference fails with ErrConferenceHasEvents while any event is listed.
	DeleteConference(ctx context.Context, id string) error
	GetConference(ctx context.Context, id string) (*Conference, error)
	ListConferences(ctx context.Context) ([]*Conference, error)
}
