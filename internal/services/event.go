package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"congresy/internal/consistency"
	"congresy/internal/domain"
	"congresy/internal/index"
	"congresy/internal/repository"
)

type eventService struct {
	logger *slog.Logger
	cols   *repository.Collections
	index  *index.Index
	saga   *consistency.Executor
	newID  func() string
}

// NewEventService creates the event lifecycle manager.
func NewEventService(logger *slog.Logger, cols *repository.Collections, ix *index.Index, saga *consistency.Executor) domain.EventService {
	return &eventService{logger: logger, cols: cols, index: ix, saga: saga, newID: uuid.NewString}
}

func validateEventDraft(d domain.EventDraft) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if d.AllowedParticipants <= 0 {
		return fmt.Errorf("%w: allowed participants must be positive", domain.ErrInvalidInput)
	}
	if d.End.Before(d.Start) {
		return fmt.Errorf("%w: event ends before it starts", domain.ErrTemporalViolation)
	}
	return nil
}

// checkBudget verifies that an event of allowed seats spanning [start, end] fits in c next to
// every other event of c.
func (s *eventService) checkBudget(ctx context.Context, c *domain.Conference, eventID string, start, end time.Time, allowed int) error {
	if !c.Contains(start, end) {
		return domain.ErrTemporalViolation
	}
	siblings, err := getMany(ctx, s.cols.Events, c.Events)
	if err != nil {
		return err
	}
	total := allowed
	for _, e := range siblings {
		if e.ID != eventID {
			total += e.AllowedParticipants
		}
	}
	if total > c.AllowedParticipants {
		return fmt.Errorf("%w: %d of %d seats", domain.ErrCapacityExceeded, total, c.AllowedParticipants)
	}
	return nil
}

func (s *eventService) CreateEvent(ctx context.Context, conferenceID string, draft domain.EventDraft) (*domain.Event, error) {
	if err := validateEventDraft(draft); err != nil {
		return nil, err
	}
	ev := domain.NewEvent(s.newID(), conferenceID, draft)
	err := s.saga.Run(ctx, "create event", func(ctx context.Context) ([]consistency.Step, error) {
		c, err := getOne(ctx, s.cols.Conferences, conferenceID)
		if err != nil {
			return nil, err
		}
		if err := s.checkBudget(ctx, c, ev.ID, ev.Start, ev.End, ev.AllowedParticipants); err != nil {
			return nil, err
		}
		return []consistency.Step{
			consistency.Create(s.cols.Events, ev.ID, "create event", ev),
			consistency.Update(s.cols.Conferences, conferenceID, "append event", consistency.Mutation[domain.Conference]{
				Apply: func(ctx context.Context, c *domain.Conference) error {
					// Concurrent creations race on the conference version, so the budget is
					// checked again against the list being saved.
					if err := s.checkBudget(ctx, c, ev.ID, ev.Start, ev.End, ev.AllowedParticipants); err != nil {
						return err
					}
					return add(conferenceEvents(c), ev.ID)
				},
				Inverse: removeRef(conferenceEvents, ev.ID).Apply,
			}),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create event in %s: %w", conferenceID, err)
	}
	s.index.ObserveEvent(ev)
	return ev, nil
}

func (s *eventService) EditEvent(ctx context.Context, eventID string, patch domain.EventPatch) (*domain.Event, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if patch.AllowedParticipants != nil && *patch.AllowedParticipants <= 0 {
		return nil, fmt.Errorf("%w: allowed participants must be positive", domain.ErrInvalidInput)
	}
	touchesBudget := patch.Start != nil || patch.End != nil || patch.AllowedParticipants != nil

	var saved *domain.Event
	err := s.saga.Run(ctx, "edit event", func(ctx context.Context) ([]consistency.Step, error) {
		current, err := getOne(ctx, s.cols.Events, eventID)
		if err != nil {
			return nil, err
		}
		next := applyEventPatch(*current, patch)
		if err := checkEventShape(&next); err != nil {
			return nil, err
		}
		conferenceID := current.ConferenceID
		if touchesBudget {
			c, err := getOne(ctx, s.cols.Conferences, conferenceID)
			if err != nil {
				return nil, err
			}
			if err := s.checkBudget(ctx, c, eventID, next.Start, next.End, next.AllowedParticipants); err != nil {
				return nil, err
			}
		}

		var before domain.Event
		steps := []consistency.Step{
			consistency.Update(s.cols.Events, eventID, "edit event", consistency.Mutation[domain.Event]{
				Apply: func(_ context.Context, e *domain.Event) error {
					before = *e
					*e = applyEventPatch(*e, patch)
					if err := checkEventShape(e); err != nil {
						return err
					}
					saved = e
					return nil
				},
				Inverse: func(_ context.Context, e *domain.Event) error {
					return restoreEventFields(e, &before)
				},
			}),
		}
		if touchesBudget {
			// The event is written first so that a creation or conference edit racing on the
			// conference version either sees the new capacity or makes this save conflict.
			steps = append(steps, consistency.Update(s.cols.Conferences, conferenceID, "check conference budget", consistency.Mutation[domain.Conference]{
				Apply: func(ctx context.Context, c *domain.Conference) error {
					return s.checkBudget(ctx, c, eventID, saved.Start, saved.End, saved.AllowedParticipants)
				},
				Inverse: func(context.Context, *domain.Conference) error { return consistency.ErrUnchanged },
			}))
		}
		return steps, nil
	})
	if err != nil {
		return nil, fmt.Errorf("edit event %s: %w", eventID, err)
	}
	return saved, nil
}

// applyEventPatch returns e with the patch applied and seatsLeft following the new capacity.
func applyEventPatch(e domain.Event, p domain.EventPatch) domain.Event {
	if p.Name != nil {
		e.Name = strings.TrimSpace(*p.Name)
	}
	if p.Place != nil {
		e.Place = *p.Place
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
	if p.AllowedParticipants != nil {
		e.AllowedParticipants = *p.AllowedParticipants
		e.SeatsLeft = e.AllowedParticipants - len(e.Participants)
	}
	return e
}

func checkEventShape(e *domain.Event) error {
	if e.End.Before(e.Start) {
		return fmt.Errorf("%w: event ends before it starts", domain.ErrTemporalViolation)
	}
	if e.AllowedParticipants < len(e.Participants) {
		return fmt.Errorf("%w: %d enrolled", domain.ErrCapacityBelowEnrollment, len(e.Participants))
	}
	return nil
}

// restoreEventFields puts back the editable fields of before, keeping the rosters as they are now.
// It fails when enrollments taken meanwhile no longer fit the old capacity.
func restoreEventFields(e, before *domain.Event) error {
	if len(e.Participants) > before.AllowedParticipants {
		return fmt.Errorf("%w: %d enrolled since the edit", domain.ErrCapacityBelowEnrollment, len(e.Participants))
	}
	e.Name = before.Name
	e.Place = before.Place
	e.Description = before.Description
	e.Start = before.Start
	e.End = before.End
	e.AllowedParticipants = before.AllowedParticipants
	e.SeatsLeft = e.AllowedParticipants - len(e.Participants)
	return nil
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	var deleted *domain.Event
	err := s.saga.Run(ctx, "delete event", func(ctx context.Context) ([]consistency.Step, error) {
		ev, err := getOne(ctx, s.cols.Events, eventID)
		if err != nil {
			return nil, err
		}
		var (
			used         = -1
			listed       bool
			participants []string
		)
		deleteStep := consistency.Delete(s.cols.Events, eventID, "delete event", func(e *domain.Event) error {
			// An enrollment landed after the conference released the seats.
			if used >= 0 && e.SeatsUsed() != used {
				return domain.ErrVersionConflict
			}
			deleted = e
			return nil
		})
		if _, _, err := s.cols.Conferences.Get(ctx, ev.ConferenceID); errors.Is(err, domain.ErrNotFound) {
			return []consistency.Step{deleteStep}, nil
		}
		return []consistency.Step{
			consistency.Update(s.cols.Conferences, ev.ConferenceID, "detach event", consistency.Mutation[domain.Conference]{
				Apply: func(ctx context.Context, c *domain.Conference) error {
					current, err := getOne(ctx, s.cols.Events, eventID)
					if err != nil {
						return err
					}
					participants = slices.Clone(c.Participants)
					used = current.SeatsUsed()
					listed = remove(conferenceEvents(c), eventID) == nil
					if listed {
						c.SeatsLeft += used
					}
					remaining, err := getMany(ctx, s.cols.Events, c.Events)
					if err != nil {
						return err
					}
					for _, speaker := range current.Speakers {
						if !speaksAtAny(remaining, speaker) {
							c.Participants, _ = domain.RemoveID(c.Participants, speaker)
						}
					}
					return nil
				},
				Inverse: func(_ context.Context, c *domain.Conference) error {
					if listed {
						c.Events, _ = domain.AddID(c.Events, eventID)
						c.SeatsLeft -= used
					}
					c.Participants = union(c.Participants, participants)
					return nil
				},
			}),
			deleteStep,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete event %s: %w", eventID, err)
	}
	s.index.ForgetEvent(eventID)
	return deleted, nil
}

func speaksAtAny(events []*domain.Event, actorID string) bool {
	for _, e := range events {
		if domain.ContainsID(e.Speakers, actorID) {
			return true
		}
	}
	return false
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return getOne(ctx, s.cols.Events, id)
}

func (s *eventService) ListByConference(ctx context.Context, conferenceID string) ([]*domain.Event, error) {
	c, err := getOne(ctx, s.cols.Conferences, conferenceID)
	if err != nil {
		return nil, err
	}
	events, err := getMany(ctx, s.cols.Events, c.Events)
	if err != nil {
		return nil, err
	}
	sortByStart(events)
	return events, nil
}

func (s *eventService) ListForActor(ctx context.Context, actorID string, day *time.Time) ([]*domain.Event, error) {
	actor, err := getOne(ctx, s.cols.Actors, actorID)
	if err != nil {
		return nil, err
	}

	var events []*domain.Event
	if actor.Role == domain.RoleOrganizator {
		conferences, err := getMany(ctx, s.cols.Conferences, union(actor.Conferences, s.index.OrganizedBy(actorID)))
		if err != nil {
			return nil, err
		}
		for _, c := range conferences {
			if !domain.ContainsID(c.Organizers, actorID) {
				continue
			}
			own, err := getMany(ctx, s.cols.Events, c.Events)
			if err != nil {
				return nil, err
			}
			events = append(events, own...)
		}
	} else {
		candidates, err := getMany(ctx, s.cols.Events, union(actor.Events, s.index.SpeakingAt(actorID)))
		if err != nil {
			return nil, err
		}
		for _, e := range candidates {
			if domain.ContainsID(e.Participants, actorID) || domain.ContainsID(e.Speakers, actorID) {
				events = append(events, e)
			}
		}
	}

	out := make([]*domain.Event, 0, len(events))
	for _, e := range events {
		if day == nil || domain.SameDay(e.Start, *day) || domain.SameDay(e.End, *day) {
			out = append(out, e)
		}
	}
	sortByStart(out)
	return out, nil
}

func sortByStart(events []*domain.Event) {
	slices.SortStableFunc(events, func(a, b *domain.Event) int {
		return cmp.Or(a.Start.Compare(b.Start), cmp.Compare(a.ID, b.ID))
	})
}
