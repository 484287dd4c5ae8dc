// Package index keeps an in-memory view of who references whom, so the services can find the
// other side of a relationship without scanning the store.
//
// The index is a hint. It is rebuilt from authoritative state and updated after every committed
// saga, but a concurrent writer may have moved on; callers verify what they read from it against
// a fresh read of the aggregate before acting.
package index

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"congresy/internal/domain"
	"congresy/internal/repository"
)

type set map[string]struct{}

func (s set) add(id string)    { s[id] = struct{}{} }
func (s set) sorted() []string { return slices.Sorted(maps.Keys(s)) }

// Index maps actors to their events, conferences, folders and posts, events to their conference
// and folders and posts to their owner.
type Index struct {
	mu sync.RWMutex

	eventConference map[string]string
	eventMembers    map[string]eventMembers
	conferenceOrgs  map[string][]string
	folders         map[string]folderEntry
	postAuthor      map[string]string

	participating map[string]set // actor -> events
	speaking      map[string]set // actor -> events
	organizing    map[string]set // actor -> conferences
	writing       map[string]set // actor -> posts
	folderByName  map[string]map[string]string
}

type eventMembers struct {
	participants []string
	speakers     []string
}

type folderEntry struct {
	owner string
	name  string
}

// New returns an empty index.
func New() *Index {
	ix := &Index{}
	ix.reset()
	return ix
}

func (ix *Index) reset() {
	ix.eventConference = map[string]string{}
	ix.eventMembers = map[string]eventMembers{}
	ix.conferenceOrgs = map[string][]string{}
	ix.folders = map[string]folderEntry{}
	ix.postAuthor = map[string]string{}
	ix.participating = map[string]set{}
	ix.speaking = map[string]set{}
	ix.organizing = map[string]set{}
	ix.writing = map[string]set{}
	ix.folderByName = map[string]map[string]string{}
}

// Rebuild replaces the index content with what the store holds now. Every kind it covers is
// listed concurrently.
func (ix *Index) Rebuild(ctx context.Context, cols *repository.Collections) error {
	var (
		events      []domain.Versioned[domain.Event]
		conferences []domain.Versioned[domain.Conference]
		folders     []domain.Versioned[domain.Folder]
		posts       []domain.Versioned[domain.Post]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		events, err = cols.Events.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		conferences, err = cols.Conferences.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		folders, err = cols.Folders.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		posts, err = cols.Posts.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.reset()
	for _, e := range events {
		ix.observeEvent(e.Value)
	}
	for _, c := range conferences {
		ix.observeConference(c.Value)
	}
	for _, f := range folders {
		ix.observeFolder(f.Value)
	}
	for _, p := range posts {
		ix.observePost(p.Value)
	}
	return nil
}

// ObserveEvent records the event's conference and rosters, replacing what was known before.
func (ix *Index) ObserveEvent(e *domain.Event) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.observeEvent(e)
}

// ForgetEvent drops a deleted event.
func (ix *Index) ForgetEvent(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.forgetEvent(id)
}

// ObserveConference records the conference's organizers.
func (ix *Index) ObserveConference(c *domain.Conference) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.observeConference(c)
}

// ForgetConference drops a deleted conference.
func (ix *Index) ForgetConference(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.forgetConference(id)
}

// ObserveFolder records the folder's owner and name.
func (ix *Index) ObserveFolder(f *domain.Folder) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.observeFolder(f)
}

func (ix *Index) observeEvent(e *domain.Event) {
	ix.forgetEvent(e.ID)
	ix.eventConference[e.ID] = e.ConferenceID
	m := eventMembers{participants: slices.Clone(e.Participants), speakers: slices.Clone(e.Speakers)}
	ix.eventMembers[e.ID] = m
	for _, a := range m.participants {
		addTo(ix.participating, a, e.ID)
	}
	for _, a := range m.speakers {
		addTo(ix.speaking, a, e.ID)
	}
}

func (ix *Index) forgetEvent(id string) {
	m, ok := ix.eventMembers[id]
	if !ok {
		return
	}
	for _, a := range m.participants {
		removeFrom(ix.participating, a, id)
	}
	for _, a := range m.speakers {
		removeFrom(ix.speaking, a, id)
	}
	delete(ix.eventMembers, id)
	delete(ix.eventConference, id)
}

func (ix *Index) observeConference(c *domain.Conference) {
	ix.forgetConference(c.ID)
	ix.conferenceOrgs[c.ID] = slices.Clone(c.Organizers)
	for _, a := range c.Organizers {
		addTo(ix.organizing, a, c.ID)
	}
}

func (ix *Index) forgetConference(id string) {
	for _, a := range ix.conferenceOrgs[id] {
		removeFrom(ix.organizing, a, id)
	}
	delete(ix.conferenceOrgs, id)
}

// ObservePost records the post's author.
func (ix *Index) ObservePost(p *domain.Post) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.observePost(p)
}

// ForgetPost drops a deleted post.
func (ix *Index) ForgetPost(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if author, ok := ix.postAuthor[id]; ok {
		removeFrom(ix.writing, author, id)
		delete(ix.postAuthor, id)
	}
}

// ForgetActor drops the folders of a deleted actor. Event and conference entries are left to
// the aggregates that hold them.
func (ix *Index) ForgetActor(actorID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, id := range ix.folderByName[actorID] {
		delete(ix.folders, id)
	}
	delete(ix.folderByName, actorID)
}

func (ix *Index) observePost(p *domain.Post) {
	if old, ok := ix.postAuthor[p.ID]; ok {
		removeFrom(ix.writing, old, p.ID)
	}
	ix.postAuthor[p.ID] = p.AuthorID
	addTo(ix.writing, p.AuthorID, p.ID)
}

func (ix *Index) observeFolder(f *domain.Folder) {
	if old, ok := ix.folders[f.ID]; ok {
		delete(ix.folderByName[old.owner], old.name)
	}
	ix.folders[f.ID] = folderEntry{owner: f.OwnerID, name: f.Name}
	byName, ok := ix.folderByName[f.OwnerID]
	if !ok {
		byName = map[string]string{}
		ix.folderByName[f.OwnerID] = byName
	}
	byName[f.Name] = f.ID
}

// EventsOf returns the events the actor participates in.
func (ix *Index) EventsOf(actorID string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.participating[actorID].sorted()
}

// SpeakingAt returns the events the actor speaks at.
func (ix *Index) SpeakingAt(actorID string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.speaking[actorID].sorted()
}

// ConferencesOf returns the conferences the actor organizes or speaks at.
func (ix *Index) ConferencesOf(actorID string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := set{}
	for id := range ix.organizing[actorID] {
		out.add(id)
	}
	for ev := range ix.speaking[actorID] {
		if c, ok := ix.eventConference[ev]; ok {
			out.add(c)
		}
	}
	return out.sorted()
}

// OrganizedBy returns the conferences the actor organizes.
func (ix *Index) OrganizedBy(actorID string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.organizing[actorID].sorted()
}

// ConferenceOf returns the conference an event belongs to.
func (ix *Index) ConferenceOf(eventID string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	c, ok := ix.eventConference[eventID]
	return c, ok
}

// FolderByName returns the id of the actor's folder called name.
func (ix *Index) FolderByName(actorID, name string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	id, ok := ix.folderByName[actorID][name]
	return id, ok
}

// FoldersOf returns the ids of every folder the actor owns.
func (ix *Index) FoldersOf(actorID string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := set{}
	for _, id := range ix.folderByName[actorID] {
		out.add(id)
	}
	return out.sorted()
}

// PostsOf returns the posts the actor wrote.
func (ix *Index) PostsOf(actorID string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.writing[actorID].sorted()
}

// FolderOwner returns the actor owning a folder.
func (ix *Index) FolderOwner(folderID string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	f, ok := ix.folders[folderID]
	return f.owner, ok
}

func addTo(m map[string]set, key, id string) {
	s, ok := m[key]
	if !ok {
		s = set{}
		m[key] = s
	}
	s.add(id)
}

func removeFrom(m map[string]set, key, id string) {
	s, ok := m[key]
	if !ok {
		return
	}
	delete(s, id)
	if len(s) == 0 {
		delete(m, key)
	}
}
