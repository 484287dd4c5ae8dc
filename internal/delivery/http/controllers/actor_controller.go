package controllers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	h "congresy/internal/delivery/http/helpers"
	"congresy/internal/domain"
)

// CreateFolderRequest is the request body for POST /me/folders.
type CreateFolderRequest struct {
	Name string `json:"name"`
}

// Validate implements Validator.
func (c CreateFolderRequest) Validate() []string {
	if strings.TrimSpace(c.Name) == "" {
		return []string{"name is required"}
	}
	return nil
}

// UpdateActorRequest is the request body for PATCH /actors/{actorID}. Omitted fields are unchanged.
// Only an Administrator may set banned.
type UpdateActorRequest struct {
	Name    *string `json:"name"`
	Surname *string `json:"surname"`
	Nick    *string `json:"nick"`
	Email   *string `json:"email"`
	Place   *string `json:"place"`
	Banned  *bool   `json:"banned"`
	Private *bool   `json:"private"`
}

// Validate implements Validator.
func (u UpdateActorRequest) Validate() []string {
	var errs []string
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if u.Email != nil && strings.TrimSpace(*u.Email) == "" {
		errs = append(errs, "email must not be empty")
	}
	return errs
}

// ActorPageResponse is the success response envelope for GET /actors (200).
type ActorPageResponse struct {
	Data  h.Page[*domain.Actor] `json:"data"`
	Error *h.APIError           `json:"error"`
}

type ActorController struct {
	Logger *slog.Logger
	Actors domain.ActorService
}

func NewActorController(logger *slog.Logger, actors domain.ActorService) *ActorController {
	return &ActorController{Logger: logger, Actors: actors}
}

// ListActors godoc
// @Summary List actors
// @Description Lists actors. At most one filter applies, in this order: role, place, banned, private, q.
// @Tags actors
// @Produce json
// @Param role query string false "User, Speaker, Organizator or Administrator"
// @Param place query string false "place, matched ignoring case"
// @Param banned query bool false "only banned actors"
// @Param private query bool false "only private actors"
// @Param q query string false "keyword matched against name, surname and nick"
// @Param page query int false "page (default 1)"
// @Param page_size query int false "page size (default 20, max 100)"
// @Success 200 {object} controllers.ActorPageResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /actors [get]
func (c *ActorController) ListActors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		actors []*domain.Actor
		err    error
	)
	switch {
	case q.Get("role") != "":
		actors, err = c.Actors.ListByRole(r.Context(), domain.Role(q.Get("role")))
	case q.Get("place") != "":
		actors, err = c.Actors.ListByPlace(r.Context(), q.Get("place"))
	case q.Get("banned") == "true":
		actors, err = c.Actors.ListBanned(r.Context())
	case q.Get("private") == "true":
		actors, err = c.Actors.ListPrivate(r.Context())
	case q.Has("q"):
		actors, err = c.Actors.Search(r.Context(), q.Get("q"))
	default:
		actors, err = c.Actors.List(r.Context())
	}
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, h.Paginate(actors, h.ParsePagination(r)))
}

// GetActor godoc
// @Summary Get an actor
// @Tags actors
// @Produce json
// @Param actorID path string true "Actor ID"
// @Success 200 {object} helpers.APIResponse "data contains the actor"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /actors/{actorID} [get]
func (c *ActorController) GetActor(w http.ResponseWriter, r *http.Request) {
	actor, err := c.Actors.Get(r.Context(), r.PathValue("actorID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, actor)
}

// EditActor godoc
// @Summary Edit an actor
// @Description Actors edit their own profile; Administrators edit anyone and alone may ban.
// @Tags actors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param actorID path string true "Actor ID"
// @Param body body UpdateActorRequest true "Fields to change"
// @Success 200 {object} helpers.APIResponse "data contains the actor"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /actors/{actorID} [patch]
func (c *ActorController) EditActor(w http.ResponseWriter, r *http.Request) {
	var req UpdateActorRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id := r.PathValue("actorID")
	admin, err := requireSelfOrAdmin(r.Context(), c.Actors, caller, id)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if req.Banned != nil && !admin {
		h.WriteServiceError(w, r, c.Logger, fmt.Errorf("%w: only an administrator may ban", domain.ErrForbidden))
		return
	}
	actor, err := c.Actors.EditActor(r.Context(), id, domain.ActorPatch{
		Name:    req.Name,
		Surname: req.Surname,
		Nick:    req.Nick,
		Email:   req.Email,
		Place:   req.Place,
		Banned:  req.Banned,
		Private: req.Private,
	})
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, actor)
}

// DeleteActor godoc
// @Summary Delete an actor
// @Description Removes the actor, its account and its folders. Refused while the actor has events, conferences, posts or filed messages.
// @Tags actors
// @Security BearerAuth
// @Param actorID path string true "Actor ID"
// @Success 204 "No Content"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /actors/{actorID} [delete]
func (c *ActorController) DeleteActor(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id := r.PathValue("actorID")
	if _, err := requireSelfOrAdmin(r.Context(), c.Actors, caller, id); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if err := c.Actors.DeleteActor(r.Context(), id); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	c.Logger.InfoContext(r.Context(), "actor deleted", "actor_id", id, "by", caller)
	w.WriteHeader(http.StatusNoContent)
}

// ListMyFolders godoc
// @Summary List the caller's folders
// @Tags folders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the folders"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /me/folders [get]
func (c *ActorController) ListMyFolders(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	folders, err := c.Actors.ListFolders(r.Context(), actorID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, folders)
}

// CreateFolder godoc
// @Summary Create a folder
// @Description Creates a user-defined folder. Inbox, Outbox and Bin are reserved.
// @Tags folders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateFolderRequest true "Folder name"
// @Success 201 {object} helpers.APIResponse "data contains the folder"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /me/folders [post]
func (c *ActorController) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	folder, err := c.Actors.CreateFolder(r.Context(), actorID, strings.TrimSpace(req.Name))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, fmt.Errorf("create folder: %w", err))
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, folder)
}
