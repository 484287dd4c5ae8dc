package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"congresy/internal/domain"
	"congresy/internal/repository"
)

type authService struct {
	cols        *repository.Collections
	hasher      domain.PasswordHasher
	tokenIssuer domain.TokenIssuer
	tokenExpiry time.Duration
}

// NewAuthService creates an AuthService that checks credentials against stored accounts.
func NewAuthService(cols *repository.Collections, hasher domain.PasswordHasher, tokenIssuer domain.TokenIssuer, tokenExpiry time.Duration) domain.AuthService {
	return &authService{cols: cols, hasher: hasher, tokenIssuer: tokenIssuer, tokenExpiry: tokenExpiry}
}

func (s *authService) Login(ctx context.Context, username, password string) (string, *domain.Actor, error) {
	account, _, err := s.cols.Accounts.Get(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("get account: %w", err)
	}
	if err := s.hasher.Compare(account.PasswordHash, account.Salt, password); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	actor, err := getOne(ctx, s.cols.Actors, account.ActorID)
	if err != nil {
		return "", nil, err
	}
	if actor.Banned {
		return "", nil, fmt.Errorf("%w: actor is banned", domain.ErrInvalidCredentials)
	}
	token, err := s.tokenIssuer.Issue(actor.ID, actor.Role, s.tokenExpiry)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, actor, nil
}
