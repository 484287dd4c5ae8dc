package controllers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	h "congresy/internal/delivery/http/helpers"
	"congresy/internal/domain"
)

// CreatePostRequest is the request body for POST /posts.
type CreatePostRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
}

// Validate implements Validator.
func (c CreatePostRequest) Validate() []string {
	if strings.TrimSpace(c.Title) == "" {
		return []string{"title is required"}
	}
	return nil
}

// UpdatePostRequest is the request body for PATCH /posts/{postID}. Omitted fields are unchanged.
type UpdatePostRequest struct {
	Title    *string `json:"title"`
	Body     *string `json:"body"`
	Category *string `json:"category"`
}

// Validate implements Validator.
func (u UpdatePostRequest) Validate() []string {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return []string{"title must not be empty"}
	}
	return nil
}

// PostPageResponse is the success response envelope for GET /posts (200).
type PostPageResponse struct {
	Data  h.Page[*domain.Post] `json:"data"`
	Error *h.APIError          `json:"error"`
}

type PostController struct {
	Logger *slog.Logger
	Posts  domain.PostService
	Actors domain.ActorService
}

func NewPostController(logger *slog.Logger, posts domain.PostService, actors domain.ActorService) *PostController {
	return &PostController{Logger: logger, Posts: posts, Actors: actors}
}

// requireAuthor loads the post and fails with ErrForbidden unless actorID wrote it, or, when
// adminToo is set, is an Administrator.
func (c *PostController) requireAuthor(ctx context.Context, postID, actorID string, adminToo bool) error {
	p, err := c.Posts.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if p.AuthorID == actorID {
		return nil
	}
	if adminToo {
		admin, err := isAdmin(ctx, c.Actors, actorID)
		if err != nil {
			return err
		}
		if admin {
			return nil
		}
	}
	return fmt.Errorf("%w: %s did not write post %s", domain.ErrForbidden, actorID, postID)
}

// CreatePost godoc
// @Summary Create a post
// @Description The post starts as a draft of the caller.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreatePostRequest true "Post"
// @Success 201 {object} helpers.APIResponse "data contains the post"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /posts [post]
func (c *PostController) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	post, err := c.Posts.CreatePost(r.Context(), actorID, domain.PostDraft{Title: req.Title, Body: req.Body, Category: req.Category})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, post)
}

// ListPosts godoc
// @Summary List public posts
// @Description Newest first. q searches title and body, category filters by category, sort=votes orders by votes.
// @Tags posts
// @Produce json
// @Param q query string false "keyword"
// @Param category query string false "category, matched ignoring case"
// @Param sort query string false "votes"
// @Param page query int false "page (default 1)"
// @Param page_size query int false "page size (default 20, max 100)"
// @Success 200 {object} controllers.PostPageResponse
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /posts [get]
func (c *PostController) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		posts []*domain.Post
		err   error
	)
	switch {
	case q.Has("q"):
		posts, err = c.Posts.Search(r.Context(), q.Get("q"))
	case q.Get("category") != "":
		posts, err = c.Posts.ListByCategory(r.Context(), q.Get("category"))
	case q.Get("sort") == "votes":
		posts, err = c.Posts.MostVoted(r.Context())
	default:
		posts, err = c.Posts.ListPublished(r.Context())
	}
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, h.Paginate(posts, h.ParsePagination(r)))
}

// GetPost godoc
// @Summary Get a public post
// @Tags posts
// @Produce json
// @Param postID path string true "Post ID"
// @Success 200 {object} helpers.APIResponse "data contains the post"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /posts/{postID} [get]
func (c *PostController) GetPost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("postID")
	post, err := c.Posts.GetPost(r.Context(), id)
	if err == nil && post.Draft {
		err = fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, post)
}

// ListActorPosts godoc
// @Summary List an actor's public posts
// @Tags posts
// @Produce json
// @Param actorID path string true "Actor ID"
// @Success 200 {object} helpers.APIResponse "data contains the posts"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /actors/{actorID}/posts [get]
func (c *PostController) ListActorPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := c.Posts.ListByAuthor(r.Context(), r.PathValue("actorID"), false)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, posts)
}

// ListMyPosts godoc
// @Summary List the caller's posts, drafts included
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the posts"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /me/posts [get]
func (c *PostController) ListMyPosts(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	posts, err := c.Posts.ListByAuthor(r.Context(), actorID, true)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, posts)
}

// EditPost godoc
// @Summary Edit a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postID path string true "Post ID"
// @Param body body UpdatePostRequest true "Fields to change"
// @Success 200 {object} helpers.APIResponse "data contains the post"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /posts/{postID} [patch]
func (c *PostController) EditPost(w http.ResponseWriter, r *http.Request) {
	var req UpdatePostRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	id := r.PathValue("postID")
	if err := c.requireAuthor(r.Context(), id, actorID, false); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	post, err := c.Posts.EditPost(r.Context(), id, domain.PostPatch{Title: req.Title, Body: req.Body, Category: req.Category})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, post)
}

// PublishPost godoc
// @Summary Make a post public
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param postID path string true "Post ID"
// @Success 200 {object} helpers.APIResponse "data contains the post"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /posts/{postID}/publish [post]
func (c *PostController) PublishPost(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	id := r.PathValue("postID")
	if err := c.requireAuthor(r.Context(), id, actorID, false); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	post, err := c.Posts.Publish(r.Context(), id)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, post)
}

// DeletePost godoc
// @Summary Delete a post
// @Description The author or an Administrator may delete a post.
// @Tags posts
// @Security BearerAuth
// @Param postID path string true "Post ID"
// @Success 204 "No Content"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /posts/{postID} [delete]
func (c *PostController) DeletePost(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	id := r.PathValue("postID")
	if err := c.requireAuthor(r.Context(), id, actorID, true); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if err := c.Posts.DeletePost(r.Context(), id); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Vote godoc
// @Summary Vote for a public post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param postID path string true "Post ID"
// @Success 200 {object} helpers.APIResponse "data contains the post"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already voted)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /posts/{postID}/votes [put]
func (c *PostController) Vote(w http.ResponseWriter, r *http.Request) {
	c.vote(w, r, true)
}

// Unvote godoc
// @Summary Take back a vote
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param postID path string true "Post ID"
// @Success 200 {object} helpers.APIResponse "data contains the post"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not voted)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /posts/{postID}/votes [delete]
func (c *PostController) Unvote(w http.ResponseWriter, r *http.Request) {
	c.vote(w, r, false)
}

func (c *PostController) vote(w http.ResponseWriter, r *http.Request, up bool) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	post, err := c.Posts.Vote(r.Context(), r.PathValue("postID"), actorID, up)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, post)
}
