package auth

import (
	"context"

	"github.com/campuslink/backend/internal/models"
)

// Verifier resolves a bearer credential to a user. Both the HTTP middleware
// and the realtime handshake depend on it.
type Verifier interface {
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}

// AuthServiceInterface is the full account surface used by handlers.
type AuthServiceInterface interface {
	Verifier
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	GenerateToken(user *models.User) (*AuthResponse, error)
}

var _ AuthServiceInterface = (*Service)(nil)
