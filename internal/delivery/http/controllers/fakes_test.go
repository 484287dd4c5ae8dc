package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"congresy/internal/delivery/http/helpers"
	"congresy/internal/delivery/http/middleware"
	"congresy/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// newRequest builds a request with path values set and, when actorID is not empty, an authenticated caller.
func newRequest(method, target, body, actorID string, pathValues map[string]string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	if actorID != "" {
		req = req.WithContext(middleware.SetActorID(req.Context(), actorID))
	}
	return req
}

// decodeEnvelope decodes the response envelope, putting data into dest when dest is not nil.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) *helpers.APIError {
	t.Helper()
	var env struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	if dest != nil && env.Error == nil {
		require.NoError(t, json.Unmarshal(env.Data, dest))
	}
	return env.Error
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

type fakeAuthService struct {
	token string
	actor *domain.Actor
	err   error
}

func (f *fakeAuthService) Login(_ context.Context, _, _ string) (string, *domain.Actor, error) {
	return f.token, f.actor, f.err
}

type fakeActorService struct {
	actors          map[string]*domain.Actor
	registerErr     error
	lastDraft       domain.ActorDraft
	lastUsername    string
	folders         []*domain.Folder
	createFolderErr error
	lastFolderName  string
	lastQuery       string
	editErr         error
	lastPatch       domain.ActorPatch
	deleteErr       error
	deleted         []string
}

func (f *fakeActorService) Register(_ context.Context, draft domain.ActorDraft, username, _ string) (*domain.Actor, error) {
	f.lastDraft, f.lastUsername = draft, username
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return domain.NewActor(username, draft, username, time.Now()), nil
}

func (f *fakeActorService) Get(_ context.Context, id string) (*domain.Actor, error) {
	if a, ok := f.actors[id]; ok {
		return a, nil
	}
	return nil, notFound("actor", id)
}

func (f *fakeActorService) all() []*domain.Actor {
	out := make([]*domain.Actor, 0, len(f.actors))
	for _, id := range []string{"a1", "a2", "a3"} {
		if a, ok := f.actors[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeActorService) List(context.Context) ([]*domain.Actor, error) {
	f.lastQuery = "all"
	return f.all(), nil
}

func (f *fakeActorService) ListByRole(_ context.Context, role domain.Role) ([]*domain.Actor, error) {
	f.lastQuery = "role:" + string(role)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role %q", domain.ErrInvalidInput, role)
	}
	return f.all(), nil
}

func (f *fakeActorService) ListBanned(context.Context) ([]*domain.Actor, error) {
	f.lastQuery = "banned"
	return nil, nil
}

func (f *fakeActorService) ListPrivate(context.Context) ([]*domain.Actor, error) {
	f.lastQuery = "private"
	return nil, nil
}

func (f *fakeActorService) ListByPlace(_ context.Context, place string) ([]*domain.Actor, error) {
	f.lastQuery = "place:" + place
	return f.all(), nil
}

func (f *fakeActorService) EditActor(ctx context.Context, id string, patch domain.ActorPatch) (*domain.Actor, error) {
	f.lastPatch = patch
	if f.editErr != nil {
		return nil, f.editErr
	}
	a, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	edited := *a
	if patch.Place != nil {
		edited.Place = *patch.Place
	}
	if patch.Banned != nil {
		edited.Banned = *patch.Banned
	}
	return &edited, nil
}

func (f *fakeActorService) DeleteActor(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeActorService) Search(_ context.Context, keyword string) ([]*domain.Actor, error) {
	f.lastQuery = "search:" + keyword
	return f.all(), nil
}

func (f *fakeActorService) CreateFolder(_ context.Context, actorID, name string) (*domain.Folder, error) {
	f.lastFolderName = name
	if f.createFolderErr != nil {
		return nil, f.createFolderErr
	}
	return domain.NewFolder("f-new", actorID, name), nil
}

func (f *fakeActorService) ListFolders(context.Context, string) ([]*domain.Folder, error) {
	return f.folders, nil
}

type fakeConferenceService struct {
	conferences map[string]*domain.Conference
	createErr   error
	editErr     error
	deleteErr   error
	lastDraft   domain.ConferenceDraft
	lastPatch   domain.ConferencePatch
	deleted     []string
}

func (f *fakeConferenceService) CreateConference(_ context.Context, organizerID string, draft domain.ConferenceDraft) (*domain.Conference, error) {
	f.lastDraft = draft
	if f.createErr != nil {
		return nil, f.createErr
	}
	return domain.NewConference("c-new", organizerID, draft), nil
}

func (f *fakeConferenceService) EditConference(_ context.Context, id string, patch domain.ConferencePatch) (*domain.Conference, error) {
	f.lastPatch = patch
	if f.editErr != nil {
		return nil, f.editErr
	}
	return f.conferences[id], nil
}

func (f *fakeConferenceService) DeleteConference(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeConferenceService) GetConference(_ context.Context, id string) (*domain.Conference, error) {
	if c, ok := f.conferences[id]; ok {
		return c, nil
	}
	return nil, notFound("conference", id)
}

func (f *fakeConferenceService) ListConferences(context.Context) ([]*domain.Conference, error) {
	out := make([]*domain.Conference, 0, len(f.conferences))
	for _, c := range f.conferences {
		out = append(out, c)
	}
	return out, nil
}

type fakeEventService struct {
	events     map[string]*domain.Event
	createErr  error
	editErr    error
	deleteErr  error
	lastDraft  domain.EventDraft
	lastPatch  domain.EventPatch
	lastDay    *time.Time
	lastActor  string
	deletedIDs []string
}

func (f *fakeEventService) CreateEvent(_ context.Context, conferenceID string, draft domain.EventDraft) (*domain.Event, error) {
	f.lastDraft = draft
	if f.createErr != nil {
		return nil, f.createErr
	}
	return domain.NewEvent("e-new", conferenceID, draft), nil
}

func (f *fakeEventService) EditEvent(_ context.Context, id string, patch domain.EventPatch) (*domain.Event, error) {
	f.lastPatch = patch
	if f.editErr != nil {
		return nil, f.editErr
	}
	return f.events[id], nil
}

func (f *fakeEventService) DeleteEvent(_ context.Context, id string) (*domain.Event, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	return f.events[id], nil
}

func (f *fakeEventService) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	if e, ok := f.events[id]; ok {
		return e, nil
	}
	return nil, notFound("event", id)
}

func (f *fakeEventService) ListByConference(_ context.Context, conferenceID string) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range f.events {
		if e.ConferenceID == conferenceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventService) ListForActor(_ context.Context, actorID string, day *time.Time) ([]*domain.Event, error) {
	f.lastActor, f.lastDay = actorID, day
	return []*domain.Event{}, nil
}

type fakeEnrollmentService struct {
	event     *domain.Event
	err       error
	lastOp    string
	lastEvent string
	lastActor string
	roster    []*domain.Actor
}

func (f *fakeEnrollmentService) record(op, eventID, actorID string) (*domain.Event, error) {
	f.lastOp, f.lastEvent, f.lastActor = op, eventID, actorID
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEnrollmentService) Enroll(_ context.Context, eventID, actorID string) (*domain.Event, error) {
	return f.record("enroll", eventID, actorID)
}

func (f *fakeEnrollmentService) Withdraw(_ context.Context, eventID, actorID string) (*domain.Event, error) {
	return f.record("withdraw", eventID, actorID)
}

func (f *fakeEnrollmentService) AssignSpeaker(_ context.Context, eventID, actorID string) (*domain.Event, error) {
	return f.record("assign", eventID, actorID)
}

func (f *fakeEnrollmentService) RemoveSpeaker(_ context.Context, eventID, actorID string) (*domain.Event, error) {
	return f.record("remove", eventID, actorID)
}

func (f *fakeEnrollmentService) ListParticipants(_ context.Context, eventID string) ([]*domain.Actor, error) {
	f.lastOp, f.lastEvent = "participants", eventID
	return f.roster, f.err
}

func (f *fakeEnrollmentService) ListSpeakers(_ context.Context, eventID string) ([]*domain.Actor, error) {
	f.lastOp, f.lastEvent = "speakers", eventID
	return f.roster, f.err
}

type fakeMessageService struct {
	messages    map[string]*domain.Message
	err         error
	lastOp      string
	lastActor   string
	lastFolder  string
	lastKeyword string
	lastDraft   domain.MessageDraft
}

func (f *fakeMessageService) Send(_ context.Context, senderID, receiverID string, draft domain.MessageDraft) (*domain.Message, error) {
	f.lastOp, f.lastActor, f.lastDraft = "send", senderID, draft
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Message{ID: "m-new", SenderID: senderID, ReceiverID: receiverID, Subject: draft.Subject, Body: draft.Body}, nil
}

func (f *fakeMessageService) MoveToBin(_ context.Context, actorID, messageID string) (*domain.Message, error) {
	f.lastOp, f.lastActor = "bin", actorID
	if f.err != nil {
		return nil, f.err
	}
	return f.messages[messageID], nil
}

func (f *fakeMessageService) DeletePermanently(_ context.Context, actorID, messageID string) (*domain.Message, error) {
	f.lastOp, f.lastActor = "delete", actorID
	if f.err != nil {
		return nil, f.err
	}
	return f.messages[messageID], nil
}

func (f *fakeMessageService) Search(_ context.Context, actorID, folderName, keyword string) ([]*domain.Message, error) {
	f.lastOp, f.lastActor, f.lastFolder, f.lastKeyword = "search", actorID, folderName, keyword
	return nil, f.err
}

func (f *fakeMessageService) ListFolder(_ context.Context, actorID, folderName string) ([]*domain.Message, error) {
	f.lastOp, f.lastActor, f.lastFolder = "list", actorID, folderName
	return nil, f.err
}

func (f *fakeMessageService) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	if m, ok := f.messages[id]; ok {
		return m, nil
	}
	return nil, notFound("message", id)
}

type fakeRepairService struct {
	report *domain.RepairReport
	err    error
	calls  int
}

func (f *fakeRepairService) Run(context.Context) (*domain.RepairReport, error) {
	f.calls++
	return f.report, f.err
}

type fakePostService struct {
	posts     map[string]*domain.Post
	err       error
	lastOp    string
	lastPatch domain.PostPatch
	deleted   []string
}

func (f *fakePostService) get(id string) (*domain.Post, error) {
	if p, ok := f.posts[id]; ok {
		return p, nil
	}
	return nil, notFound("post", id)
}

func (f *fakePostService) list() []*domain.Post {
	out := make([]*domain.Post, 0, len(f.posts))
	for _, id := range []string{"p1", "p2", "p3"} {
		if p, ok := f.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakePostService) CreatePost(_ context.Context, authorID string, draft domain.PostDraft) (*domain.Post, error) {
	f.lastOp = "create"
	if f.err != nil {
		return nil, f.err
	}
	return domain.NewPost("p-new", authorID, draft, time.Now()), nil
}

func (f *fakePostService) EditPost(_ context.Context, id string, patch domain.PostPatch) (*domain.Post, error) {
	f.lastOp, f.lastPatch = "edit", patch
	if f.err != nil {
		return nil, f.err
	}
	return f.get(id)
}

func (f *fakePostService) Publish(_ context.Context, id string) (*domain.Post, error) {
	f.lastOp = "publish"
	p, err := f.get(id)
	if err != nil {
		return nil, err
	}
	published := *p
	published.Draft = false
	return &published, nil
}

func (f *fakePostService) DeletePost(_ context.Context, id string) error {
	f.lastOp = "delete"
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePostService) GetPost(_ context.Context, id string) (*domain.Post, error) {
	return f.get(id)
}

func (f *fakePostService) ListPublished(context.Context) ([]*domain.Post, error) {
	f.lastOp = "published"
	return f.list(), nil
}

func (f *fakePostService) ListByAuthor(_ context.Context, authorID string, withDrafts bool) ([]*domain.Post, error) {
	f.lastOp = fmt.Sprintf("author:%s:%t", authorID, withDrafts)
	return f.list(), nil
}

func (f *fakePostService) Search(_ context.Context, keyword string) ([]*domain.Post, error) {
	f.lastOp = "search:" + keyword
	return f.list(), nil
}

func (f *fakePostService) ListByCategory(_ context.Context, category string) ([]*domain.Post, error) {
	f.lastOp = "category:" + category
	return f.list(), nil
}

func (f *fakePostService) MostVoted(context.Context) ([]*domain.Post, error) {
	f.lastOp = "votes"
	return f.list(), nil
}

func (f *fakePostService) Vote(_ context.Context, postID, actorID string, up bool) (*domain.Post, error) {
	f.lastOp = fmt.Sprintf("vote:%s:%t", actorID, up)
	if f.err != nil {
		return nil, f.err
	}
	return f.get(postID)
}
