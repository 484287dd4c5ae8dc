package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"congresy/internal/consistency"
	"congresy/internal/domain"
	"congresy/internal/index"
	"congresy/internal/repository"
)

const minPasswordLen = 8

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type actorService struct {
	logger *slog.Logger
	cols   *repository.Collections
	index  *index.Index
	saga   *consistency.Executor
	hasher domain.PasswordHasher
	newID  func() string
	now    func() time.Time
}

// NewActorService creates the service that registers actors and owns their folders.
func NewActorService(logger *slog.Logger, cols *repository.Collections, ix *index.Index, saga *consistency.Executor, hasher domain.PasswordHasher) domain.ActorService {
	return &actorService{
		logger: logger,
		cols:   cols,
		index:  ix,
		saga:   saga,
		hasher: hasher,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// normalizeUsername is also the account id, which makes usernames unique through the store.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateActorDraft(d domain.ActorDraft) error {
	var problems []string
	if strings.TrimSpace(d.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !emailRegexp.MatchString(strings.TrimSpace(d.Email)) {
		problems = append(problems, "invalid email format")
	}
	if !d.Role.Valid() {
		problems = append(problems, fmt.Sprintf("unknown role %q", d.Role))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

func (s *actorService) Register(ctx context.Context, draft domain.ActorDraft, username, password string) (*domain.Actor, error) {
	if err := validateActorDraft(draft); err != nil {
		return nil, err
	}
	username = normalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}
	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(salt, password)
	if err != nil {
		return nil, err
	}

	draft.Email = strings.TrimSpace(strings.ToLower(draft.Email))
	actor := domain.NewActor(s.newID(), draft, username, s.now().UTC())
	account := &domain.UserAccount{ID: username, Username: username, PasswordHash: hash, Salt: salt, ActorID: actor.ID}
	folders := make([]*domain.Folder, 0, len(domain.ReservedFolders))
	for _, name := range domain.ReservedFolders {
		f := domain.NewFolder(s.newID(), actor.ID, name)
		folders = append(folders, f)
		actor.Folders = append(actor.Folders, f.ID)
	}

	err = s.saga.Run(ctx, "register actor", func(ctx context.Context) ([]consistency.Step, error) {
		if _, _, err := s.cols.Accounts.Get(ctx, username); err == nil {
			return nil, fmt.Errorf("%w: username %q is taken", domain.ErrConflict, username)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get account: %w", err)
		}
		steps := []consistency.Step{consistency.Create(s.cols.Accounts, username, "create account", account)}
		for _, f := range folders {
			steps = append(steps, consistency.Create(s.cols.Folders, f.ID, "create "+f.Name, f))
		}
		return append(steps, consistency.Create(s.cols.Actors, actor.ID, "create actor", actor)), nil
	})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", username, err)
	}
	for _, f := range folders {
		s.index.ObserveFolder(f)
	}
	s.logger.InfoContext(ctx, "actor registered", "actor_id", actor.ID, "role", actor.Role)
	return actor, nil
}

func (s *actorService) Get(ctx context.Context, id string) (*domain.Actor, error) {
	return getOne(ctx, s.cols.Actors, id)
}

func (s *actorService) List(ctx context.Context) ([]*domain.Actor, error) {
	return s.filter(ctx, func(*domain.Actor) bool { return true })
}

func (s *actorService) ListByRole(ctx context.Context, role domain.Role) ([]*domain.Actor, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	return s.filter(ctx, func(a *domain.Actor) bool { return a.Role == role })
}

func (s *actorService) ListBanned(ctx context.Context) ([]*domain.Actor, error) {
	return s.filter(ctx, func(a *domain.Actor) bool { return a.Banned })
}

func (s *actorService) ListPrivate(ctx context.Context) ([]*domain.Actor, error) {
	return s.filter(ctx, func(a *domain.Actor) bool { return a.Private })
}

func (s *actorService) ListByPlace(ctx context.Context, place string) ([]*domain.Actor, error) {
	place = strings.TrimSpace(place)
	return s.filter(ctx, func(a *domain.Actor) bool { return strings.EqualFold(strings.TrimSpace(a.Place), place) })
}

func (s *actorService) Search(ctx context.Context, keyword string) ([]*domain.Actor, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	return s.filter(ctx, func(a *domain.Actor) bool {
		return strings.Contains(strings.ToLower(a.Name), keyword) ||
			strings.Contains(strings.ToLower(a.Surname), keyword) ||
			strings.Contains(strings.ToLower(a.Nick), keyword)
	})
}

func (s *actorService) filter(ctx context.Context, keep func(*domain.Actor) bool) ([]*domain.Actor, error) {
	all, err := s.cols.Actors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list actors: %w", err)
	}
	out := make([]*domain.Actor, 0, len(all))
	for _, a := range all {
		if keep(a.Value) {
			out = append(out, a.Value)
		}
	}
	return out, nil
}

func (s *actorService) EditActor(ctx context.Context, id string, patch domain.ActorPatch) (*domain.Actor, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if patch.Email != nil && !emailRegexp.MatchString(strings.TrimSpace(*patch.Email)) {
		return nil, fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
	}
	var saved *domain.Actor
	err := s.saga.Run(ctx, "edit actor", func(context.Context) ([]consistency.Step, error) {
		var before domain.Actor
		return []consistency.Step{
			consistency.Update(s.cols.Actors, id, "edit actor", consistency.Mutation[domain.Actor]{
				Apply: func(_ context.Context, a *domain.Actor) error {
					before = *a
					applyActorPatch(a, patch)
					saved = a
					return nil
				},
				Inverse: func(_ context.Context, a *domain.Actor) error {
					restoreActorProfile(a, &before)
					return nil
				},
			}),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("edit actor %s: %w", id, err)
	}
	return saved, nil
}

func applyActorPatch(a *domain.Actor, p domain.ActorPatch) {
	if p.Name != nil {
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Surname != nil {
		a.Surname = *p.Surname
	}
	if p.Nick != nil {
		a.Nick = *p.Nick
	}
	if p.Email != nil {
		a.Email = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	if p.Place != nil {
		a.Place = strings.TrimSpace(*p.Place)
	}
	if p.Banned != nil {
		a.Banned = *p.Banned
	}
	if p.Private != nil {
		a.Private = *p.Private
	}
}

// restoreActorProfile puts back the profile fields of before and leaves the relationship sets alone.
func restoreActorProfile(a, before *domain.Actor) {
	a.Name, a.Surname, a.Nick, a.Email, a.Place = before.Name, before.Surname, before.Nick, before.Email, before.Place
	a.Banned, a.Private = before.Banned, before.Private
}

func (s *actorService) DeleteActor(ctx context.Context, id string) error {
	var accountID string
	err := s.saga.Run(ctx, "delete actor", func(ctx context.Context) ([]consistency.Step, error) {
		a, err := getOne(ctx, s.cols.Actors, id)
		if err != nil {
			return nil, err
		}
		if a.HasRelations() {
			return nil, fmt.Errorf("%w: %d events, %d conferences, %d posts",
				domain.ErrActorHasRelations, len(a.Events), len(a.Conferences), len(a.Posts))
		}
		folders, err := getMany(ctx, s.cols.Folders, union(a.Folders, s.index.FoldersOf(id)))
		if err != nil {
			return nil, err
		}
		for _, f := range folders {
			if f.OwnerID == id && len(f.Messages) > 0 {
				return nil, fmt.Errorf("%w: folder %s holds %d messages", domain.ErrActorHasRelations, f.Name, len(f.Messages))
			}
		}
		accountID = a.AccountID

		// The actor goes first: an enrollment or post racing with this saga then fails on the
		// missing actor instead of linking to it.
		steps := []consistency.Step{
			consistency.Delete(s.cols.Actors, id, "delete actor", func(a *domain.Actor) error {
				if a.HasRelations() {
					return domain.ErrActorHasRelations
				}
				return nil
			}),
		}
		for _, f := range folders {
			if f.OwnerID != id {
				continue
			}
			steps = append(steps, consistency.DeleteIfPresent(s.cols.Folders, f.ID, "delete "+f.Name, func(f *domain.Folder) error {
				if len(f.Messages) > 0 {
					return fmt.Errorf("%w: folder %s received a message", domain.ErrActorHasRelations, f.Name)
				}
				return nil
			}))
		}
		if accountID != "" {
			steps = append(steps, consistency.DeleteIfPresent(s.cols.Accounts, accountID, "delete account", nil))
		}
		return steps, nil
	})
	if err != nil {
		return fmt.Errorf("delete actor %s: %w", id, err)
	}
	s.index.ForgetActor(id)
	s.logger.InfoContext(ctx, "actor deleted", "actor_id", id, "account_id", accountID)
	return nil
}

func (s *actorService) CreateFolder(ctx context.Context, actorID, name string) (*domain.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" || domain.IsReservedFolder(name) {
		return nil, fmt.Errorf("%w: folder name %q is not allowed", domain.ErrInvalidInput, name)
	}
	folder := domain.NewFolder(s.newID(), actorID, name)
	err := s.saga.Run(ctx, "create folder", func(ctx context.Context) ([]consistency.Step, error) {
		_, err := folderOf(ctx, s.cols, s.index, actorID, name)
		if err == nil {
			return nil, fmt.Errorf("%w: folder %q exists", domain.ErrConflict, name)
		}
		if !errors.Is(err, domain.ErrFolderMissing) {
			return nil, err
		}
		return []consistency.Step{
			consistency.Create(s.cols.Folders, folder.ID, "create folder", folder),
			consistency.Update(s.cols.Actors, actorID, "link folder", addRef(actorFolders, folder.ID)),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create folder %q for %s: %w", name, actorID, err)
	}
	s.index.ObserveFolder(folder)
	return folder, nil
}

func (s *actorService) ListFolders(ctx context.Context, actorID string) ([]*domain.Folder, error) {
	actor, err := getOne(ctx, s.cols.Actors, actorID)
	if err != nil {
		return nil, err
	}
	return getMany(ctx, s.cols.Folders, actor.Folders)
}
