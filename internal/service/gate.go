package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/utafrali/GymTrack/internal/auth"
	"github.com/utafrali/GymTrack/internal/domain"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
)

// UserLoader is the read side of the user store needed by Gate.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Gate resolves access tokens into caller identities.
type Gate struct {
	tokens *auth.TokenManager
	users  UserLoader
}

// NewGate creates a Gate.
func NewGate(tokens *auth.TokenManager, users UserLoader) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// Resolve decodes an access token and computes the caller's tier from the
// current user record, so deactivation and re-verification apply
// immediately. Expired, malformed and orphaned tokens are all 401.
func (g *Gate) Resolve(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := g.tokens.DecodeAccessToken(token)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return nil, apperrors.Unauthorized("Token has expired")
	case err != nil:
		return nil, apperrors.Unauthorized("Token is invalid")
	}

	u, err := g.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("User not found")
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	if !u.IsActive {
		return nil, apperrors.Unauthorized(MsgAccountDisabled)
	}

	return &domain.Identity{
		UserID: u.ID,
		Email:  u.Email,
		Tier:   domain.TierFor(u),
	}, nil
}
