package domain

import (
	"context"
	"time"
)

// Role is the kind of actor.
type Role string

const (
	RoleUser          Role = "User"
	RoleSpeaker       Role = "Speaker"
	RoleOrganizator   Role = "Organizator"
	RoleAdministrator Role = "Administrator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSpeaker, RoleOrganizator, RoleAdministrator:
		return true
	}
	return false
}

// CanAttend reports whether actors with this role may enroll in or speak at events.
func (r Role) CanAttend() bool {
	return r == RoleUser || r == RoleSpeaker
}

// Actor is a registered person. Events, Conferences and Folders are derived back-references
// kept in sync with the authoritative side (event rosters, conference organizers, folder owners).
// swagger:model Actor
type Actor struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Surname     string    `json:"surname"`
	Nick        string    `json:"nick"`
	Email       string    `json:"email"`
	Place       string    `json:"place"`
	Role        Role      `json:"role"`
	Banned      bool      `json:"banned"`
	Private     bool      `json:"private"`
	AccountID   string    `json:"account_id"`
	Events      []string  `json:"events"`
	Conferences []string  `json:"conferences"`
	Posts       []string  `json:"posts"`
	Folders     []string  `json:"folders"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActorDraft is the caller-supplied part of a new actor.
type ActorDraft struct {
	Name    string
	Surname string
	Nick    string
	Email   string
	Place   string
	Role    Role
}

// NewActor returns an Actor with every relationship set initialized empty.
func NewActor(id string, draft ActorDraft, accountID string, createdAt time.Time) *Actor {
	return &Actor{
		ID:          id,
		Name:        draft.Name,
		Surname:     draft.Surname,
		Nick:        draft.Nick,
		Email:       draft.Email,
		Place:       draft.Place,
		Role:        draft.Role,
		AccountID:   accountID,
		Events:      []string{},
		Conferences: []string{},
		Posts:       []string{},
		Folders:     []string{},
		CreatedAt:   createdAt,
	}
}

// ActorPatch lists the fields EditActor changes. Nil fields are unchanged.
type ActorPatch struct {
	Name    *string
	Surname *string
	Nick    *string
	Email   *string
	Place   *string
	Banned  *bool
	Private *bool
}

// HasRelations reports whether any relationship set still names another aggregate.
// Folders are not counted; they belong to the actor.
func (a *Actor) HasRelations() bool {
	return len(a.Events) > 0 || len(a.Conferences) > 0 || len(a.Posts) > 0
}

// UserAccount holds login credentials for one actor.
type UserAccount struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Salt         string `json:"salt"`
	ActorID      string `json:"actor_id"`
}

// PasswordHasher handles salt generation, hashing, and verification.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated actor.
type TokenIssuer interface {
	Issue(actorID string, role Role, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated actor ID.
type TokenVerifier interface {
	Verify(token string) (actorID string, err error)
}

// ActorService registers actors and answers actor queries.
type ActorService interface {
	// Register creates the account, the actor and its Inbox, Outbox and Bin folders in one saga.
	Register(ctx context.Context, draft ActorDraft, username, password string) (*Actor, error)
	Get(ctx context.Context, id string) (*Actor, error)
	List(ctx context.Context) ([]*Actor, error)
	ListByRole(ctx context.Context, role Role) ([]*Actor, error)
	ListBanned(ctx context.Context) ([]*Actor, error)
	ListPrivate(ctx context.Context) ([]*Actor, error)
	// ListByPlace matches place case-insensitively and ignoring surrounding spaces.
	ListByPlace(ctx context.Context, place string) ([]*Actor, error)
	// Search matches keyword case-insensitively against name, surname and nick.
	Search(ctx context.Context, keyword string) ([]*Actor, error)
	EditActor(ctx context.Context, id string, patch ActorPatch) (*Actor, error)
	// DeleteActor removes the actor, its account and its folders. It fails with
	// ErrActorHasRelations while the actor has events, conferences, posts or filed messages.
	DeleteActor(ctx context.Context, id string) error
	CreateFolder(ctx context.Context, actorID, name string) (*Folder, error)
	ListFolders(ctx context.Context, actorID string) ([]*Folder, error)
}

// AuthService exchanges credentials for a token.
type AuthService interface {
	Login(ctx context.Context, username, password string) (token string, actor *Actor, err error)
}
