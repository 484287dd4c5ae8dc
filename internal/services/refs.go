package services

import (
	"context"

	"congresy/internal/consistency"
	"congresy/internal/domain"
)

func actorEvents(a *domain.Actor) *[]string      { return &a.Events }
func actorConferences(a *domain.Actor) *[]string { return &a.Conferences }
func actorFolders(a *domain.Actor) *[]string     { return &a.Folders }
func actorPosts(a *domain.Actor) *[]string       { return &a.Posts }

func conferenceEvents(c *domain.Conference) *[]string       { return &c.Events }
func conferenceParticipants(c *domain.Conference) *[]string { return &c.Participants }

func folderMessages(f *domain.Folder) *[]string { return &f.Messages }

func postVoters(p *domain.Post) *[]string { return &p.Voters }

// addRef adds id to the list selected by field; its inverse removes it again.
func addRef[T any](field func(*T) *[]string, id string) consistency.Mutation[T] {
	return consistency.Mutation[T]{
		Apply:   func(_ context.Context, v *T) error { return add(field(v), id) },
		Inverse: func(_ context.Context, v *T) error { return remove(field(v), id) },
	}
}

// removeRef removes id from the list selected by field; its inverse adds it back.
func removeRef[T any](field func(*T) *[]string, id string) consistency.Mutation[T] {
	return consistency.Mutation[T]{
		Apply:   func(_ context.Context, v *T) error { return remove(field(v), id) },
		Inverse: func(_ context.Context, v *T) error { return add(field(v), id) },
	}
}

func add(ids *[]string, id string) error {
	var changed bool
	if *ids, changed = domain.AddID(*ids, id); !changed {
		return consistency.ErrUnchanged
	}
	return nil
}

func remove(ids *[]string, id string) error {
	var changed bool
	if *ids, changed = domain.RemoveID(*ids, id); !changed {
		return consistency.ErrUnchanged
	}
	return nil
}
