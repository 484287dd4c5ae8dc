package domain

import (
	"context"
	"time"
)

// Post is an actor's publication. The author's Posts set is the derived side of AuthorID.
// A post starts as a draft that only its author sees until it is published.
// swagger:model Post
type Post struct {
	ID       string    `json:"id"`
	AuthorID string    `json:"author_id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Category string    `json:"category"`
	Draft    bool      `json:"draft"`
	Votes    int       `json:"votes"`
	Voters   []string  `json:"voters"`
	Posted   time.Time `json:"posted"`
}

// PostDraft is the caller-supplied part of a new post.
type PostDraft struct {
	Title    string
	Body     string
	Category string
}

// PostPatch lists the fields EditPost changes. Nil fields are unchanged.
type PostPatch struct {
	Title    *string
	Body     *string
	Category *string
}

// NewPost returns an unpublished post.
func NewPost(id, authorID string, d PostDraft, posted time.Time) *Post {
	return &Post{
		ID:       id,
		AuthorID: authorID,
		Title:    d.Title,
		Body:     d.Body,
		Category: d.Category,
		Draft:    true,
		Voters:   []string{},
		Posted:   posted,
	}
}

// PostService manages posts and keeps every author's Posts set in step with them.
type PostService interface {
	CreatePost(ctx context.Context, authorID string, draft PostDraft) (*Post, error)
	EditPost(ctx context.Context, id string, patch PostPatch) (*Post, error)
	// Publish makes a draft visible to everyone. Publishing a public post is a no-op.
	Publish(ctx context.Context, id string) (*Post, error)
	DeletePost(ctx context.Context, id string) error
	GetPost(ctx context.Context, id string) (*Post, error)
	// ListPublished returns public posts, newest first.
	ListPublished(ctx context.Context) ([]*Post, error)
	// ListByAuthor returns the author's posts, newest first. Drafts are included on request.
	ListByAuthor(ctx context.Context, authorID string, withDrafts bool) ([]*Post, error)
	// Search matches keyword case-insensitively against title and body of public posts.
	Search(ctx context.Context, keyword string) ([]*Post, error)
	ListByCategory(ctx context.Context, category string) ([]*Post, error)
	// MostVoted returns public posts by descending votes.
	MostVoted(ctx context.Context) ([]*Post, error)
	// Vote records or takes back one actor's vote on a public post.
	Vote(ctx context.Context, postID, actorID string, up bool) (*Post, error)
}
