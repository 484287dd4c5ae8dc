package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"congresy/internal/consistency"
	"congresy/internal/domain"
	"congresy/internal/index"
	"congresy/internal/repository"
)

type conferenceService struct {
	logger *slog.Logger
	cols   *repository.Collections
	index  *index.Index
	saga   *consistency.Executor
	newID  func() string
}

// NewConferenceService creates the service that manages conferences and their organizers.
func NewConferenceService(logger *slog.Logger, cols *repository.Collections, ix *index.Index, saga *consistency.Executor) domain.ConferenceService {
	return &conferenceService{logger: logger, cols: cols, index: ix, saga: saga, newID: uuid.NewString}
}

func (s *conferenceService) CreateConference(ctx context.Context, organizerID string, draft domain.ConferenceDraft) (*domain.Conference, error) {
	if strings.TrimSpace(draft.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if draft.AllowedParticipants <= 0 {
		return nil, fmt.Errorf("%w: allowed participants must be positive", domain.ErrInvalidInput)
	}
	if draft.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}
	if domain.Day(draft.End).Before(domain.Day(draft.Start)) {
		return nil, fmt.Errorf("%w: conference ends before it starts", domain.ErrTemporalViolation)
	}
	conf := domain.NewConference(s.newID(), organizerID, draft)
	err := s.saga.Run(ctx, "create conference", func(ctx context.Context) ([]consistency.Step, error) {
		organizer, err := getOne(ctx, s.cols.Actors, organizerID)
		if err != nil {
			return nil, err
		}
		if organizer.Role != domain.RoleOrganizator {
			return nil, fmt.Errorf("%w: %s cannot organize", domain.ErrRoleNotEligible, organizer.Role)
		}
		return []consistency.Step{
			consistency.Create(s.cols.Conferences, conf.ID, "create conference", conf),
			consistency.Update(s.cols.Actors, organizerID, "link organizer", addRef(actorConferences, conf.ID)),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create conference: %w", err)
	}
	s.index.ObserveConference(conf)
	return conf, nil
}

func (s *conferenceService) EditConference(ctx context.Context, id string, patch domain.ConferencePatch) (*domain.Conference, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if patch.AllowedParticipants != nil && *patch.AllowedParticipants <= 0 {
		return nil, fmt.Errorf("%w: allowed participants must be positive", domain.ErrInvalidInput)
	}
	if patch.Price != nil && *patch.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}

	var saved *domain.Conference
	err := s.saga.Run(ctx, "edit conference", func(ctx context.Context) ([]consistency.Step, error) {
		var before domain.Conference
		return []consistency.Step{
			consistency.Update(s.cols.Conferences, id, "edit conference", consistency.Mutation[domain.Conference]{
				Apply: func(ctx context.Context, c *domain.Conference) error {
					before = *c
					applyConferencePatch(c, patch)
					if err := s.checkEvents(ctx, c); err != nil {
						return err
					}
					saved = c
					return nil
				},
				Inverse: func(_ context.Context, c *domain.Conference) error {
					seatsUsed := c.AllowedParticipants - c.SeatsLeft
					events, participants := c.Events, c.Participants
					*c = before
					c.Events, c.Participants = events, participants
					c.SeatsLeft = c.AllowedParticipants - seatsUsed
					return nil
				},
			}),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("edit conference %s: %w", id, err)
	}
	return saved, nil
}

func applyConferencePatch(c *domain.Conference, p domain.ConferencePatch) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Theme != nil {
		c.Theme = *p.Theme
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Place != nil {
		c.Place = *p.Place
	}
	if p.Price != nil {
		c.Price = *p.Price
	}
	if p.Start != nil {
		c.Start = domain.Day(*p.Start)
	}
	if p.End != nil {
		c.End = domain.Day(*p.End)
	}
	if p.AllowedParticipants != nil {
		c.SeatsLeft += *p.AllowedParticipants - c.AllowedParticipants
		c.AllowedParticipants = *p.AllowedParticipants
	}
}

// checkEvents verifies that c still contains every one of its events and can seat them all.
func (s *conferenceService) checkEvents(ctx context.Context, c *domain.Conference) error {
	if c.End.Before(c.Start) {
		return fmt.Errorf("%w: conference ends before it starts", domain.ErrTemporalViolation)
	}
	events, err := getMany(ctx, s.cols.Events, c.Events)
	if err != nil {
		return err
	}
	total := 0
	for _, e := range events {
		if !c.Contains(e.Start, e.End) {
			return fmt.Errorf("%w: event %s falls outside", domain.ErrTemporalViolation, e.ID)
		}
		total += e.AllowedParticipants
	}
	if total > c.AllowedParticipants {
		return fmt.Errorf("%w: events need %d seats", domain.ErrCapacityExceeded, total)
	}
	return nil
}

func (s *conferenceService) DeleteConference(ctx context.Context, id string) error {
	err := s.saga.Run(ctx, "delete conference", func(ctx context.Context) ([]consistency.Step, error) {
		c, err := getOne(ctx, s.cols.Conferences, id)
		if err != nil {
			return nil, err
		}
		if len(c.Events) > 0 {
			return nil, domain.ErrConferenceHasEvents
		}
		steps := make([]consistency.Step, 0, len(c.Organizers)+1)
		for _, org := range c.Organizers {
			steps = append(steps, consistency.Update(s.cols.Actors, org, "unlink organizer", removeRef(actorConferences, id)))
		}
		return append(steps, consistency.Delete(s.cols.Conferences, id, "delete conference", func(c *domain.Conference) error {
			if len(c.Events) > 0 {
				return domain.ErrConferenceHasEvents
			}
			return nil
		})), nil
	})
	if err != nil {
		return fmt.Errorf("delete conference %s: %w", id, err)
	}
	s.index.ForgetConference(id)
	return nil
}

func (s *conferenceService) GetConference(ctx context.Context, id string) (*domain.Conference, error) {
	return getOne(ctx, s.cols.Conferences, id)
}

func (s *conferenceService) ListConferences(ctx context.Context) ([]*domain.Conference, error) {
	all, err := s.cols.Conferences.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conferences: %w", err)
	}
	out := make([]*domain.Conference, 0, len(all))
	for _, c := range all {
		out = append(out, c.Value)
	}
	return out, nil
}
