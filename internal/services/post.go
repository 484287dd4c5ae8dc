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

type postService struct {
	logger *slog.Logger
	cols   *repository.Collections
	index  *index.Index
	saga   *consistency.Executor
	newID  func() string
	now    func() time.Time
}

// NewPostService creates the service that manages posts and their authors' Posts sets.
func NewPostService(logger *slog.Logger, cols *repository.Collections, ix *index.Index, saga *consistency.Executor) domain.PostService {
	return &postService{logger: logger, cols: cols, index: ix, saga: saga, newID: uuid.NewString, now: time.Now}
}

func (s *postService) CreatePost(ctx context.Context, authorID string, draft domain.PostDraft) (*domain.Post, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	draft.Category = strings.TrimSpace(draft.Category)
	post := domain.NewPost(s.newID(), authorID, draft, s.now().UTC())
	err := s.saga.Run(ctx, "create post", func(ctx context.Context) ([]consistency.Step, error) {
		author, err := getOne(ctx, s.cols.Actors, authorID)
		if err != nil {
			return nil, err
		}
		if author.Banned {
			return nil, fmt.Errorf("%w: %s is banned", domain.ErrForbidden, authorID)
		}
		return []consistency.Step{
			consistency.Create(s.cols.Posts, post.ID, "create post", post),
			consistency.Update(s.cols.Actors, authorID, "link author", addRef(actorPosts, post.ID)),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.index.ObservePost(post)
	return post, nil
}

func (s *postService) EditPost(ctx context.Context, id string, patch domain.PostPatch) (*domain.Post, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	var saved *domain.Post
	err := s.saga.Run(ctx, "edit post", func(context.Context) ([]consistency.Step, error) {
		var before domain.Post
		return []consistency.Step{
			consistency.Update(s.cols.Posts, id, "edit post", consistency.Mutation[domain.Post]{
				Apply: func(_ context.Context, p *domain.Post) error {
					before = *p
					if patch.Title != nil {
						p.Title = strings.TrimSpace(*patch.Title)
					}
					if patch.Body != nil {
						p.Body = *patch.Body
					}
					if patch.Category != nil {
						p.Category = strings.TrimSpace(*patch.Category)
					}
					saved = p
					return nil
				},
				Inverse: func(_ context.Context, p *domain.Post) error {
					p.Title, p.Body, p.Category = before.Title, before.Body, before.Category
					return nil
				},
			}),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("edit post %s: %w", id, err)
	}
	return saved, nil
}

func (s *postService) Publish(ctx context.Context, id string) (*domain.Post, error) {
	err := s.saga.Run(ctx, "publish post", func(context.Context) ([]consistency.Step, error) {
		return []consistency.Step{
			consistency.Update(s.cols.Posts, id, "publish post", consistency.Mutation[domain.Post]{
				Apply: func(_ context.Context, p *domain.Post) error {
					if !p.Draft {
						return consistency.ErrUnchanged
					}
					p.Draft = false
					return nil
				},
				Inverse: func(_ context.Context, p *domain.Post) error {
					p.Draft = true
					return nil
				},
			}),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("publish post %s: %w", id, err)
	}
	return getOne(ctx, s.cols.Posts, id)
}

func (s *postService) DeletePost(ctx context.Context, id string) error {
	err := s.saga.Run(ctx, "delete post", func(ctx context.Context) ([]consistency.Step, error) {
		p, err := getOne(ctx, s.cols.Posts, id)
		if err != nil {
			return nil, err
		}
		return []consistency.Step{
			consistency.Update(s.cols.Actors, p.AuthorID, "unlink author", removeRef(actorPosts, id)),
			consistency.Delete(s.cols.Posts, id, "delete post", nil),
		}, nil
	})
	if err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	s.index.ForgetPost(id)
	return nil
}

func (s *postService) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	return getOne(ctx, s.cols.Posts, id)
}

func (s *postService) ListPublished(ctx context.Context) ([]*domain.Post, error) {
	return s.published(ctx, func(*domain.Post) bool { return true })
}

func (s *postService) ListByAuthor(ctx context.Context, authorID string, withDrafts bool) ([]*domain.Post, error) {
	author, err := getOne(ctx, s.cols.Actors, authorID)
	if err != nil {
		return nil, err
	}
	posts, err := getMany(ctx, s.cols.Posts, union(author.Posts, s.index.PostsOf(authorID)))
	if err != nil {
		return nil, err
	}
	posts = slices.DeleteFunc(posts, func(p *domain.Post) bool {
		return p.AuthorID != authorID || (p.Draft && !withDrafts)
	})
	newestFirst(posts)
	return posts, nil
}

func (s *postService) Search(ctx context.Context, keyword string) ([]*domain.Post, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	return s.published(ctx, func(p *domain.Post) bool {
		return strings.Contains(strings.ToLower(p.Title), keyword) || strings.Contains(strings.ToLower(p.Body), keyword)
	})
}

func (s *postService) ListByCategory(ctx context.Context, category string) ([]*domain.Post, error) {
	category = strings.TrimSpace(category)
	return s.published(ctx, func(p *domain.Post) bool { return strings.EqualFold(p.Category, category) })
}

func (s *postService) MostVoted(ctx context.Context) ([]*domain.Post, error) {
	posts, err := s.published(ctx, func(*domain.Post) bool { return true })
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(posts, func(a, b *domain.Post) int { return cmp.Compare(b.Votes, a.Votes) })
	return posts, nil
}

func (s *postService) Vote(ctx context.Context, postID, actorID string, up bool) (*domain.Post, error) {
	ref, name, refused := addRef(postVoters, actorID), "add vote", domain.ErrAlreadyVoted
	if !up {
		ref, name, refused = removeRef(postVoters, actorID), "take back vote", domain.ErrNotVoted
	}
	var saved *domain.Post
	err := s.saga.Run(ctx, "vote post", func(ctx context.Context) ([]consistency.Step, error) {
		if _, err := getOne(ctx, s.cols.Actors, actorID); err != nil {
			return nil, err
		}
		return []consistency.Step{
			consistency.Update(s.cols.Posts, postID, name, consistency.Mutation[domain.Post]{
				Apply: func(ctx context.Context, p *domain.Post) error {
					if p.Draft {
						return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
					}
					if err := ref.Apply(ctx, p); err != nil {
						if errors.Is(err, consistency.ErrUnchanged) {
							return refused
						}
						return err
					}
					p.Votes = len(p.Voters)
					saved = p
					return nil
				},
				Inverse: func(ctx context.Context, p *domain.Post) error {
					if err := ref.Inverse(ctx, p); err != nil {
						return err
					}
					p.Votes = len(p.Voters)
					return nil
				},
			}),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("vote on post %s: %w", postID, err)
	}
	return saved, nil
}

// published returns the public posts that satisfy keep, newest first.
func (s *postService) published(ctx context.Context, keep func(*domain.Post) bool) ([]*domain.Post, error) {
	all, err := s.cols.Posts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	out := make([]*domain.Post, 0, len(all))
	for _, p := range all {
		if !p.Value.Draft && keep(p.Value) {
			out = append(out, p.Value)
		}
	}
	newestFirst(out)
	return out, nil
}

func newestFirst(posts []*domain.Post) {
	slices.SortStableFunc(posts, func(a, b *domain.Post) int { return b.Posted.Compare(a.Posted) })
}
