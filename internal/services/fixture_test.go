package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"congresy/internal/consistency"
	"congresy/internal/domain"
	"congresy/internal/index"
	"congresy/internal/repository"
	"congresy/internal/repository/memory"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakePasswordHasher implements domain.PasswordHasher for tests.
type fakePasswordHasher struct{}

func (fakePasswordHasher) GenerateSalt() (string, error) { return "salt", nil }
func (fakePasswordHasher) Hash(salt, password string) (string, error) {
	return "hash-" + salt + "-" + password, nil
}
func (fakePasswordHasher) Compare(hash, salt, password string) error {
	if hash != "hash-"+salt+"-"+password {
		return fmt.Errorf("mismatch")
	}
	return nil
}

// fakeTokenIssuer implements domain.TokenIssuer for tests.
type fakeTokenIssuer struct {
	err error
}

func (f *fakeTokenIssuer) Issue(actorID string, role domain.Role, expiry time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + actorID + "-" + string(role), nil
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store domain.DocumentStore
	cols  *repository.Collections
	index *index.Index
	saga  *consistency.Executor

	actors      domain.ActorService
	conferences domain.ConferenceService
	events      domain.EventService
	enrollment  domain.EnrollmentService
	messages    domain.MessageService
	posts       domain.PostService

	seq atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, memory.NewStore())
}

func newFixtureOn(t *testing.T, store domain.DocumentStore) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: store,
		cols:  repository.NewCollections(store),
		index: index.New(),
		saga: consistency.NewExecutor(testLogger, consistency.Options{
			MaxAttempts: 20,
			BaseBackoff: 50 * time.Microsecond,
			MaxBackoff:  2 * time.Millisecond,
		}),
	}
	f.actors = NewActorService(testLogger, f.cols, f.index, f.saga, fakePasswordHasher{})
	f.conferences = NewConferenceService(testLogger, f.cols, f.index, f.saga)
	f.events = NewEventService(testLogger, f.cols, f.index, f.saga)
	f.enrollment = NewEnrollmentService(testLogger, f.cols, f.index, f.saga)
	f.messages = NewMessageService(testLogger, f.cols, f.index, f.saga, nil)
	f.posts = NewPostService(testLogger, f.cols, f.index, f.saga)
	return f
}

// hookStore runs a one-shot callback right after a matching save or delete lands, to force an
// interleaving between two sagas.
type hookStore struct {
	domain.DocumentStore

	mu       sync.Mutex
	onDelete bool
	kind     domain.Kind
	id       string
	hook     func()
}

func newHookStore() *hookStore {
	return &hookStore{DocumentStore: memory.NewStore()}
}

// afterSave arms fn to run once, after the next successful save of kind/id. An empty id matches any.
func (s *hookStore) afterSave(kind domain.Kind, id string, fn func()) {
	s.arm(false, kind, id, fn)
}

// afterDelete is afterSave for deletions.
func (s *hookStore) afterDelete(kind domain.Kind, id string, fn func()) {
	s.arm(true, kind, id, fn)
}

func (s *hookStore) arm(onDelete bool, kind domain.Kind, id string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete, s.kind, s.id, s.hook = onDelete, kind, id, fn
}

// fire runs the armed hook outside the lock if it matches.
func (s *hookStore) fire(onDelete bool, kind domain.Kind, id string) {
	s.mu.Lock()
	var fn func()
	if s.hook != nil && s.onDelete == onDelete && s.kind == kind && (s.id == "" || s.id == id) {
		fn, s.hook = s.hook, nil
	}
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *hookStore) Save(ctx context.Context, kind domain.Kind, id string, version int64, body []byte) (int64, error) {
	v, err := s.DocumentStore.Save(ctx, kind, id, version, body)
	if err != nil {
		return v, err
	}
	s.fire(false, kind, id)
	return v, nil
}

func (s *hookStore) Delete(ctx context.Context, kind domain.Kind, id string) error {
	if err := s.DocumentStore.Delete(ctx, kind, id); err != nil {
		return err
	}
	s.fire(true, kind, id)
	return nil
}

// sumAllowed adds up the capacity of every event the conference lists.
func (f *fixture) sumAllowed(conferenceID string) int {
	f.t.Helper()
	total := 0
	for _, id := range f.getConference(conferenceID).Events {
		total += f.getEvent(id).AllowedParticipants
	}
	return total
}

func day(s string) time.Time {
	t, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func moment(s string) time.Time {
	t, err := domain.ParseMoment(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (f *fixture) register(role domain.Role) *domain.Actor {
	f.t.Helper()
	n := f.seq.Add(1)
	a, err := f.actors.Register(f.ctx, domain.ActorDraft{
		Name:  fmt.Sprintf("Name%d", n),
		Nick:  fmt.Sprintf("nick%d", n),
		Email: fmt.Sprintf("actor%d@example.com", n),
		Role:  role,
	}, fmt.Sprintf("user%d", n), "password123")
	require.NoError(f.t, err)
	return a
}

func (f *fixture) conference(organizerID string, allowed int) *domain.Conference {
	f.t.Helper()
	c, err := f.conferences.CreateConference(f.ctx, organizerID, domain.ConferenceDraft{
		Name:                "GopherCon",
		Start:               day("01/06/2026"),
		End:                 day("03/06/2026"),
		AllowedParticipants: allowed,
	})
	require.NoError(f.t, err)
	return c
}

func (f *fixture) event(conferenceID string, allowed int) *domain.Event {
	f.t.Helper()
	e, err := f.events.CreateEvent(f.ctx, conferenceID, domain.EventDraft{
		Name:                "Talk",
		Start:               moment("01/06/2026 10:00"),
		End:                 moment("01/06/2026 11:00"),
		AllowedParticipants: allowed,
	})
	require.NoError(f.t, err)
	return e
}

func (f *fixture) getEvent(id string) *domain.Event {
	f.t.Helper()
	e, _, err := f.cols.Events.Get(f.ctx, id)
	require.NoError(f.t, err)
	return e
}

func (f *fixture) getConference(id string) *domain.Conference {
	f.t.Helper()
	c, _, err := f.cols.Conferences.Get(f.ctx, id)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) getActor(id string) *domain.Actor {
	f.t.Helper()
	a, _, err := f.cols.Actors.Get(f.ctx, id)
	require.NoError(f.t, err)
	return a
}

// assertSeatInvariants checks the seat counters of every event and conference in the store.
func (f *fixture) assertSeatInvariants() {
	f.t.Helper()
	events, err := f.cols.Events.List(f.ctx)
	require.NoError(f.t, err)
	used := map[string]int{}
	for _, e := range events {
		ev := e.Value
		assert.Equal(f.t, ev.AllowedParticipants-len(ev.Participants), ev.SeatsLeft, "event %s seats", ev.ID)
		assert.GreaterOrEqual(f.t, ev.SeatsLeft, 0, "event %s seats", ev.ID)
		used[ev.ID] = ev.SeatsUsed()
	}
	conferences, err := f.cols.Conferences.List(f.ctx)
	require.NoError(f.t, err)
	for _, c := range conferences {
		want := c.Value.AllowedParticipants
		for _, id := range c.Value.Events {
			want -= used[id]
		}
		assert.Equal(f.t, want, c.Value.SeatsLeft, "conference %s seats", c.Value.ID)
	}
}
