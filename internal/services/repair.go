package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"congresy/internal/consistency"
	"congresy/internal/domain"
	"congresy/internal/index"
	"congresy/internal/repository"
)

// Repairer recomputes derived references from the authoritative side of each relationship.
//
// Every rewrite is a one-step saga whose mutation re-reads the authoritative aggregates after the
// target was read, so it is safe to run next to live traffic: the compare-and-swap on the target
// fails if anything moved underneath. Conference seat counters are the exception that needs more
// care, because enroll and withdraw update the event before the conference; a counter is only
// rewritten when neither the conference nor any of its events changed since the pass started.
type Repairer struct {
	logger *slog.Logger
	cols   *repository.Collections
	index  *index.Index
	saga   *consistency.Executor
	newID  func() string
}

// NewRepairer creates the repair pass.
func NewRepairer(logger *slog.Logger, cols *repository.Collections, ix *index.Index, saga *consistency.Executor) *Repairer {
	return &Repairer{logger: logger.With("component", "repair"), cols: cols, index: ix, saga: saga, newID: uuid.NewString}
}

var _ domain.RepairService = (*Repairer)(nil)

type snapshot struct {
	events      []domain.Versioned[domain.Event]
	conferences []domain.Versioned[domain.Conference]
	actors      []domain.Versioned[domain.Actor]
	folders     []domain.Versioned[domain.Folder]
}

func (r *Repairer) snapshot(ctx context.Context) (*snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.events, err = r.cols.Events.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.conferences, err = r.cols.Conferences.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.actors, err = r.cols.Actors.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.folders, err = r.cols.Folders.List(gctx)
		return err
	})
	g.Go(func() error {
		return r.index.Rebuild(gctx, r.cols)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("repair snapshot: %w", err)
	}
	return &snap, nil
}

// Run performs one full pass. Individual rewrites that fail are recorded in the report and do not
// stop the pass; only a failure to read the store does.
func (r *Repairer) Run(ctx context.Context) (*domain.RepairReport, error) {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	report := &domain.RepairReport{OrphanEvents: []string{}, Failures: []string{}}
	fail := func(kind domain.Kind, id string, err error) {
		r.logger.WarnContext(ctx, "repair failed", "kind", kind, "id", id, "err", err)
		report.Failures = append(report.Failures, fmt.Sprintf("%s %s: %v", kind, id, err))
	}

	for _, e := range snap.events {
		changed, err := rewrite(ctx, r, r.cols.Events, e.Value.ID, "recount event seats", recountEvent)
		if err != nil {
			fail(domain.KindEvent, e.Value.ID, err)
		} else if changed {
			report.EventsFixed++
		}
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	// Seat counters are compared against state taken after the event recount.
	settledEvents, err := r.cols.Events.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list events: %w", err)
	}
	settledConferences, err := r.cols.Conferences.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list conferences: %w", err)
	}
	eventVersions := make(map[string]int64, len(settledEvents))
	for _, e := range settledEvents {
		eventVersions[e.Value.ID] = e.Version
	}
	for _, c := range settledConferences {
		changed, err := rewrite(ctx, r, r.cols.Conferences, c.Value.ID, "rebuild conference", func(ctx context.Context, cur *domain.Conference) (bool, error) {
			return r.rebuildConference(ctx, cur, c.Value, eventVersions)
		})
		if err != nil {
			fail(domain.KindConference, c.Value.ID, err)
		} else if changed {
			report.ConferencesFixed++
		}
	}
	for _, e := range snap.events {
		orphan, err := r.isOrphan(ctx, e.Value.ID)
		if err != nil {
			fail(domain.KindEvent, e.Value.ID, err)
		} else if orphan {
			report.OrphanEvents = append(report.OrphanEvents, e.Value.ID)
		}
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	owned := map[string]map[string]bool{}
	for _, f := range snap.folders {
		if owned[f.Value.OwnerID] == nil {
			owned[f.Value.OwnerID] = map[string]bool{}
		}
		owned[f.Value.OwnerID][f.Value.Name] = true
	}
	for _, a := range snap.actors {
		for _, name := range domain.ReservedFolders {
			if owned[a.Value.ID][name] {
				continue
			}
			created, err := r.createFolder(ctx, a.Value.ID, name)
			if err != nil {
				fail(domain.KindActor, a.Value.ID, err)
			} else if created {
				report.FoldersCreated++
			}
		}
	}

	for _, a := range snap.actors {
		changed, err := rewrite(ctx, r, r.cols.Actors, a.Value.ID, "rebuild actor references", r.rebuildActor)
		if err != nil {
			fail(domain.KindActor, a.Value.ID, err)
		} else if changed {
			report.ActorsFixed++
		}
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	for _, f := range snap.folders {
		changed, err := rewrite(ctx, r, r.cols.Folders, f.Value.ID, "drop destroyed messages", r.pruneFolder)
		if err != nil {
			fail(domain.KindFolder, f.Value.ID, err)
		} else if changed {
			report.FoldersFixed++
		}
	}

	r.logger.InfoContext(ctx, "repair pass finished",
		"events_fixed", report.EventsFixed,
		"conferences_fixed", report.ConferencesFixed,
		"actors_fixed", report.ActorsFixed,
		"folders_fixed", report.FoldersFixed,
		"folders_created", report.FoldersCreated,
		"orphan_events", len(report.OrphanEvents),
		"failures", len(report.Failures))
	return report, nil
}

// StartLoop runs a pass every interval until ctx is done. A non-positive interval disables it.
func (r *Repairer) StartLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Run(ctx); err != nil && ctx.Err() == nil {
					r.logger.WarnContext(ctx, "repair pass aborted", "err", err)
				}
			}
		}
	}()
}

// rewrite runs fn against a fresh read of one aggregate and saves the result when fn reports a
// change. An aggregate deleted in the meantime is not an error.
func rewrite[T any](ctx context.Context, r *Repairer, repo domain.Repository[T], id, name string, fn func(context.Context, *T) (bool, error)) (bool, error) {
	var changed bool
	err := r.saga.Run(ctx, name, func(context.Context) ([]consistency.Step, error) {
		return []consistency.Step{consistency.Update(repo, id, name, consistency.Mutation[T]{
			Apply: func(ctx context.Context, v *T) error {
				var err error
				changed, err = fn(ctx, v)
				if err != nil {
					return err
				}
				if !changed {
					return consistency.ErrUnchanged
				}
				return nil
			},
		})}, nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return changed, nil
}

func recountEvent(_ context.Context, e *domain.Event) (bool, error) {
	participants := dedupe(e.Participants)
	speakers := dedupe(e.Speakers)
	seats := e.AllowedParticipants - len(participants)
	if seats == e.SeatsLeft && len(participants) == len(e.Participants) && len(speakers) == len(e.Speakers) {
		return false, nil
	}
	e.Participants, e.Speakers, e.SeatsLeft = participants, speakers, seats
	return true, nil
}

func (r *Repairer) rebuildConference(ctx context.Context, c, seen *domain.Conference, versions map[string]int64) (bool, error) {
	stable := c.SeatsLeft == seen.SeatsLeft && slices.Equal(c.Events, seen.Events)
	var (
		events   []string
		speakers []string
		used     int
	)
	for _, id := range c.Events {
		e, version, err := r.cols.Events.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if version != versions[id] {
			stable = false
		}
		events, _ = domain.AddID(events, id)
		used += e.SeatsUsed()
		speakers = union(speakers, e.Speakers)
	}

	changed := false
	if !slices.Equal(events, c.Events) {
		c.Events = domain.NonNil(events)
		changed = true
	}
	if !domain.SameIDs(speakers, c.Participants) {
		kept := slices.DeleteFunc(slices.Clone(c.Participants), func(id string) bool { return !domain.ContainsID(speakers, id) })
		c.Participants = domain.NonNil(union(kept, speakers))
		changed = true
	}
	if seats := c.AllowedParticipants - used; stable && seats != c.SeatsLeft {
		c.SeatsLeft = seats
		changed = true
	}
	return changed, nil
}

func (r *Repairer) isOrphan(ctx context.Context, eventID string) (bool, error) {
	e, _, err := r.cols.Events.Get(ctx, eventID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	c, _, err := r.cols.Conferences.Get(ctx, e.ConferenceID)
	if errors.Is(err, domain.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !domain.ContainsID(c.Events, eventID), nil
}

// createFolder gives the actor a missing reserved folder, unless it turned up meanwhile.
func (r *Repairer) createFolder(ctx context.Context, actorID, name string) (bool, error) {
	folder := domain.NewFolder(r.newID(), actorID, name)
	err := r.saga.Run(ctx, "create missing folder", func(ctx context.Context) ([]consistency.Step, error) {
		_, err := folderOf(ctx, r.cols, r.index, actorID, name)
		if err == nil {
			return nil, consistency.ErrUnchanged
		}
		if !errors.Is(err, domain.ErrFolderMissing) {
			return nil, err
		}
		return []consistency.Step{
			consistency.Create(r.cols.Folders, folder.ID, "create "+name, folder),
			consistency.Update(r.cols.Actors, actorID, "link folder", addRef(actorFolders, folder.ID)),
		}, nil
	})
	if errors.Is(err, consistency.ErrUnchanged) || errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	r.index.ObserveFolder(folder)
	return true, nil
}

func (r *Repairer) rebuildActor(ctx context.Context, a *domain.Actor) (bool, error) {
	events, err := keepIDs(ctx, r.cols.Events, union(a.Events, r.index.EventsOf(a.ID)), func(e *domain.Event) (bool, error) {
		return domain.ContainsID(e.Participants, a.ID), nil
	})
	if err != nil {
		return false, err
	}
	conferences, err := keepIDs(ctx, r.cols.Conferences, union(a.Conferences, r.index.ConferencesOf(a.ID)), func(c *domain.Conference) (bool, error) {
		if domain.ContainsID(c.Organizers, a.ID) {
			return true, nil
		}
		siblings, err := getMany(ctx, r.cols.Events, c.Events)
		if err != nil {
			return false, err
		}
		return speaksAtAny(siblings, a.ID), nil
	})
	if err != nil {
		return false, err
	}
	folders, err := keepIDs(ctx, r.cols.Folders, union(a.Folders, r.index.FoldersOf(a.ID)), func(f *domain.Folder) (bool, error) {
		return f.OwnerID == a.ID, nil
	})
	if err != nil {
		return false, err
	}
	posts, err := keepIDs(ctx, r.cols.Posts, union(a.Posts, r.index.PostsOf(a.ID)), func(p *domain.Post) (bool, error) {
		return p.AuthorID == a.ID, nil
	})
	if err != nil {
		return false, err
	}

	changed := false
	for _, pair := range []struct {
		field *[]string
		want  []string
	}{
		{&a.Events, events},
		{&a.Conferences, conferences},
		{&a.Folders, folders},
		{&a.Posts, posts},
	} {
		if !slices.Equal(*pair.field, pair.want) {
			*pair.field = pair.want
			changed = true
		}
	}
	return changed, nil
}

func (r *Repairer) pruneFolder(ctx context.Context, f *domain.Folder) (bool, error) {
	kept, err := keepIDs(ctx, r.cols.Messages, f.Messages, func(*domain.Message) (bool, error) { return true, nil })
	if err != nil {
		return false, err
	}
	if slices.Equal(kept, f.Messages) {
		return false, nil
	}
	f.Messages = kept
	return true, nil
}

// keepIDs returns the ids, in order and without duplicates, whose aggregate exists and satisfies keep.
func keepIDs[T any](ctx context.Context, repo domain.Repository[T], ids []string, keep func(*T) (bool, error)) ([]string, error) {
	out := []string{}
	for _, id := range ids {
		if domain.ContainsID(out, id) {
			continue
		}
		v, _, err := repo.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ok, err := keep(v)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out, _ = domain.AddID(out, id)
	}
	return out
}
