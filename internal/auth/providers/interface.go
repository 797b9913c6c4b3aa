package providers

import (
	"context"

	"github.com/brizzai/cogauth/internal/auth/models"
)

// Provider defines the interface that all identity providers must implement.
// Failures are reported as *models.AuthError.
type Provider interface {
	// GetCurrentSession returns the signed-in user or models.ErrNoSession
	GetCurrentSession(ctx context.Context) (*models.SessionUser, error)

	// SignIn verifies the credentials and starts a session
	SignIn(ctx context.Context, email, password string) (*models.SessionUser, error)

	// SignUp registers a new account that still needs confirmation
	SignUp(ctx context.Context, email, password string) error

	// ConfirmSignUp confirms an account with the code delivered out of band
	ConfirmSignUp(ctx context.Context, email, code string) error

	// SignOut ends the session. The local session is gone even when an error is returned.
	SignOut(ctx context.Context) error
}
