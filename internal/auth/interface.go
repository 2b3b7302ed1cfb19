package auth

import (
	"context"

	"github.com/contentanonymity/backend/internal/models"
)

// AuthService defines the contract handlers and middleware depend on.
// This enables mocking for unit tests without requiring a real database.
type AuthService interface {
	RegisterNativeUser(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	LoginNativeUser(ctx context.Context, req LoginRequest) (*AuthResponse, error)

	// Token operations
	GenerateToken(user *models.User) (*AuthResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*models.User, error)

	// Google sign-in
	GoogleOAuthURL(state string) (string, error)
	HandleGoogleCallback(ctx context.Context, code string) (*AuthResponse, error)

	// Password reset
	RequestPasswordReset(ctx context.Context, email string) (*models.PasswordReset, *models.User, error)
	ResetPassword(ctx context.Context, token, newPassword string) error

	// Two-factor
	SetupTOTP(ctx context.Context, user *models.User) (*TOTPSetup, error)
	EnableTOTP(ctx context.Context, user *models.User, code string) error
	DisableTOTP(ctx context.Context, user *models.User, code string) error
}

// Ensure Service implements AuthService
var _ AuthService = (*Service)(nil)
