package services

import (
	"context"
	"fmt"
	"log/slog"

	"congresy/internal/consistency"
	"congresy/internal/domain"
	"congresy/internal/index"
	"congresy/internal/repository"
)

type enrollmentService struct {
	logger *slog.Logger
	cols   *repository.Collections
	index  *index.Index
	saga   *consistency.Executor
}

// NewEnrollmentService creates the capacity and enrollment coordinator.
func NewEnrollmentService(logger *slog.Logger, cols *repository.Collections, ix *index.Index, saga *consistency.Executor) domain.EnrollmentService {
	return &enrollmentService{logger: logger, cols: cols, index: ix, saga: saga}
}

// eligibleActor fails with ErrRoleNotEligible unless the actor may attend or speak at events.
func (s *enrollmentService) eligibleActor(ctx context.Context, actorID string) (*domain.Actor, error) {
	actor, err := getOne(ctx, s.cols.Actors, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.CanAttend() {
		return nil, fmt.Errorf("%w: %s", domain.ErrRoleNotEligible, actor.Role)
	}
	return actor, nil
}

func (s *enrollmentService) Enroll(ctx context.Context, eventID, actorID string) (*domain.Event, error) {
	var saved *domain.Event
	err := s.saga.Run(ctx, "enroll", func(ctx context.Context) ([]consistency.Step, error) {
		if _, err := s.eligibleActor(ctx, actorID); err != nil {
			return nil, err
		}
		ev, err := getOne(ctx, s.cols.Events, eventID)
		if err != nil {
			return nil, err
		}
		if err := canEnroll(ev, actorID); err != nil {
			return nil, err
		}
		return []consistency.Step{
			consistency.Update(s.cols.Events, eventID, "add participant", consistency.Mutation[domain.Event]{
				Apply: func(_ context.Context, e *domain.Event) error {
					if err := canEnroll(e, actorID); err != nil {
						return err
					}
					e.Participants, _ = domain.AddID(e.Participants, actorID)
					e.SeatsLeft--
					saved = e
					return nil
				},
				Inverse: func(_ context.Context, e *domain.Event) error {
					var changed bool
					if e.Participants, changed = domain.RemoveID(e.Participants, actorID); !changed {
						return consistency.ErrUnchanged
					}
					e.SeatsLeft++
					return nil
				},
			}),
			consistency.Update(s.cols.Conferences, ev.ConferenceID, "take conference seat", consistency.Mutation[domain.Conference]{
				Apply:   func(_ context.Context, c *domain.Conference) error { c.SeatsLeft--; return nil },
				Inverse: func(_ context.Context, c *domain.Conference) error { c.SeatsLeft++; return nil },
			}),
			consistency.Update(s.cols.Actors, actorID, "link actor to event", addRef(actorEvents, eventID)),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("enroll %s in %s: %w", actorID, eventID, err)
	}
	s.index.ObserveEvent(saved)
	return saved, nil
}

func canEnroll(e *domain.Event, actorID string) error {
	if domain.ContainsID(e.Participants, actorID) {
		return domain.ErrAlreadyEnrolled
	}
	if e.SeatsLeft <= 0 {
		return domain.ErrSeatsExhausted
	}
	return nil
}

func (s *enrollmentService) Withdraw(ctx context.Context, eventID, actorID string) (*domain.Event, error) {
	var saved *domain.Event
	err := s.saga.Run(ctx, "withdraw", func(ctx context.Context) ([]consistency.Step, error) {
		ev, err := getOne(ctx, s.cols.Events, eventID)
		if err != nil {
			return nil, err
		}
		if !domain.ContainsID(ev.Participants, actorID) {
			return nil, domain.ErrNotEnrolled
		}
		return []consistency.Step{
			consistency.Update(s.cols.Events, eventID, "remove participant", consistency.Mutation[domain.Event]{
				Apply: func(_ context.Context, e *domain.Event) error {
					var changed bool
					if e.Participants, changed = domain.RemoveID(e.Participants, actorID); !changed {
						return domain.ErrNotEnrolled
					}
					e.SeatsLeft++
					saved = e
					return nil
				},
				Inverse: func(_ context.Context, e *domain.Event) error {
					var changed bool
					if e.Participants, changed = domain.AddID(e.Participants, actorID); !changed {
						return consistency.ErrUnchanged
					}
					e.SeatsLeft--
					return nil
				},
			}),
			consistency.Update(s.cols.Conferences, ev.ConferenceID, "release conference seat", consistency.Mutation[domain.Conference]{
				Apply:   func(_ context.Context, c *domain.Conference) error { c.SeatsLeft++; return nil },
				Inverse: func(_ context.Context, c *domain.Conference) error { c.SeatsLeft--; return nil },
			}),
			consistency.Update(s.cols.Actors, actorID, "unlink actor from event", removeRef(actorEvents, eventID)),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("withdraw %s from %s: %w", actorID, eventID, err)
	}
	s.index.ObserveEvent(saved)
	return saved, nil
}

func (s *enrollmentService) AssignSpeaker(ctx context.Context, eventID, actorID string) (*domain.Event, error) {
	var saved *domain.Event
	err := s.saga.Run(ctx, "assign speaker", func(ctx context.Context) ([]consistency.Step, error) {
		if _, err := s.eligibleActor(ctx, actorID); err != nil {
			return nil, err
		}
		ev, err := getOne(ctx, s.cols.Events, eventID)
		if err != nil {
			return nil, err
		}
		if domain.ContainsID(ev.Speakers, actorID) {
			return nil, domain.ErrAlreadyEnrolled
		}
		return []consistency.Step{
			consistency.Update(s.cols.Events, eventID, "add speaker", consistency.Mutation[domain.Event]{
				Apply: func(_ context.Context, e *domain.Event) error {
					var changed bool
					if e.Speakers, changed = domain.AddID(e.Speakers, actorID); !changed {
						return domain.ErrAlreadyEnrolled
					}
					saved = e
					return nil
				},
				Inverse: func(_ context.Context, e *domain.Event) error {
					var changed bool
					if e.Speakers, changed = domain.RemoveID(e.Speakers, actorID); !changed {
						return consistency.ErrUnchanged
					}
					return nil
				},
			}),
			consistency.Update(s.cols.Conferences, ev.ConferenceID, "add conference participant", addRef(conferenceParticipants, actorID)),
			consistency.Update(s.cols.Actors, actorID, "link actor to conference", addRef(actorConferences, ev.ConferenceID)),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("assign speaker %s to %s: %w", actorID, eventID, err)
	}
	s.index.ObserveEvent(saved)
	return saved, nil
}

func (s *enrollmentService) RemoveSpeaker(ctx context.Context, eventID, actorID string) (*domain.Event, error) {
	var saved *domain.Event
	err := s.saga.Run(ctx, "remove speaker", func(ctx context.Context) ([]consistency.Step, error) {
		ev, err := getOne(ctx, s.cols.Events, eventID)
		if err != nil {
			return nil, err
		}
		if !domain.ContainsID(ev.Speakers, actorID) {
			return nil, domain.ErrNotEnrolled
		}
		conferenceID := ev.ConferenceID
		// The actor stays a conference participant while speaking at any sibling event.
		stillSpeaks := func(ctx context.Context, c *domain.Conference) (bool, error) {
			return s.speaksElsewhere(ctx, c, eventID, actorID)
		}
		return []consistency.Step{
			consistency.Update(s.cols.Events, eventID, "remove speaker", consistency.Mutation[domain.Event]{
				Apply: func(_ context.Context, e *domain.Event) error {
					var changed bool
					if e.Speakers, changed = domain.RemoveID(e.Speakers, actorID); !changed {
						return domain.ErrNotEnrolled
					}
					saved = e
					return nil
				},
				Inverse: func(_ context.Context, e *domain.Event) error {
					var changed bool
					if e.Speakers, changed = domain.AddID(e.Speakers, actorID); !changed {
						return consistency.ErrUnchanged
					}
					return nil
				},
			}),
			consistency.Update(s.cols.Conferences, conferenceID, "drop conference participant", consistency.Mutation[domain.Conference]{
				Apply: func(ctx context.Context, c *domain.Conference) error {
					elsewhere, err := stillSpeaks(ctx, c)
					if err != nil {
						return err
					}
					if elsewhere {
						return consistency.ErrUnchanged
					}
					var changed bool
					if c.Participants, changed = domain.RemoveID(c.Participants, actorID); !changed {
						return consistency.ErrUnchanged
					}
					return nil
				},
				Inverse: addRef(conferenceParticipants, actorID).Apply,
			}),
			consistency.Update(s.cols.Actors, actorID, "unlink actor from conference", consistency.Mutation[domain.Actor]{
				Apply: func(ctx context.Context, a *domain.Actor) error {
					c, err := getOne(ctx, s.cols.Conferences, conferenceID)
					if err != nil {
						return err
					}
					if domain.ContainsID(c.Organizers, actorID) {
						return consistency.ErrUnchanged
					}
					elsewhere, err := stillSpeaks(ctx, c)
					if err != nil {
						return err
					}
					if elsewhere {
						return consistency.ErrUnchanged
					}
					var changed bool
					if a.Conferences, changed = domain.RemoveID(a.Conferences, conferenceID); !changed {
						return consistency.ErrUnchanged
					}
					return nil
				},
				Inverse: addRef(actorConferences, conferenceID).Apply,
			}),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("remove speaker %s from %s: %w", actorID, eventID, err)
	}
	s.index.ObserveEvent(saved)
	return saved, nil
}

// speaksElsewhere reports whether actorID speaks at any event of c other than eventID.
func (s *enrollmentService) speaksElsewhere(ctx context.Context, c *domain.Conference, eventID, actorID string) (bool, error) {
	siblings, err := getMany(ctx, s.cols.Events, c.Events)
	if err != nil {
		return false, err
	}
	for _, e := range siblings {
		if e.ID != eventID && domain.ContainsID(e.Speakers, actorID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *enrollmentService) ListParticipants(ctx context.Context, eventID string) ([]*domain.Actor, error) {
	ev, err := getOne(ctx, s.cols.Events, eventID)
	if err != nil {
		return nil, err
	}
	return getMany(ctx, s.cols.Actors, ev.Participants)
}

func (s *enrollmentService) ListSpeakers(ctx context.Context, eventID string) ([]*domain.Actor, error) {
	ev, err := getOne(ctx, s.cols.Events, eventID)
	if err != nil {
		return nil, err
	}
	return getMany(ctx, s.cols.Actors, ev.Speakers)
}
