package authview

import (
	"context"
	"sync"

	"github.com/brizzai/cogauth/internal/auth/models"
	"github.com/brizzai/cogauth/internal/auth/providers"
	"github.com/brizzai/cogauth/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Controller mediates between form input and the identity provider
type Controller struct {
	provider providers.Provider
	opts     Options
	logger   *zap.Logger

	mu    sync.Mutex
	state State
	creds Credentials
	user  *models.SessionUser
	err   string
	busy  bool
}

// NewController creates a controller showing the sign in view
func NewController(provider providers.Provider, opts Options, logger *zap.Logger) *Controller {
	return &Controller{
		provider: provider,
		opts:     opts,
		logger:   logger,
		state:    StateSignIn,
	}
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:        c.state,
		Credentials:  c.creds,
		ErrorMessage: c.err,
		Busy:         c.busy,
	}
	if c.user != nil {
		user := *c.user
		snap.User = &user
	}
	return snap
}

// SetField updates one credential field
func (c *Controller) SetField(field Field, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch field {
	case FieldEmail:
		c.creds.Email = value
	case FieldPassword:
		c.creds.Password = value
	case FieldConfirmPassword:
		c.creds.ConfirmPassword = value
	case FieldVerificationCode:
		c.creds.VerificationCode = value
	}
}

// begin admits one operation from state from. On success the error message
// is cleared, busy is set and a copy of the credentials is returned.
func (c *Controller) begin(from State) (Credentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return Credentials{}, ErrBusy
	}
	if c.state != from {
		return Credentials{}, ErrInvalidTransition
	}
	c.err = ""
	c.busy = true
	return c.creds, nil
}

func (c *Controller) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	c.err = models.UserMessage(err)
	c.mu.Unlock()
}

// call runs one provider call, bounded by the configured timeout
func (c *Controller) call(ctx context.Context, fn func(context.Context) error) error {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	return fn(ctx)
}

// Start resolves the initial view from an existing provider session. Any
// failure leaves the sign in view without an error message.
func (c *Controller) Start(ctx context.Context) error {
	if _, err := c.begin(StateSignIn); err != nil {
		return err
	}
	defer c.release()

	var user *models.SessionUser
	err := c.call(ctx, func(ctx context.Context) (err error) {
		user, err = c.provider.GetCurrentSession(ctx)
		return err
	})
	if err != nil {
		c.logger.Debug("No existing session", zap.Error(err))
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateAuthenticated
	c.user = user
	c.logger.Info("Resumed session", zap.String("username", user.Username))
	return nil
}

// SignIn submits the sign in form
func (c *Controller) SignIn(ctx context.Context) error {
	creds, err := c.begin(StateSignIn)
	if err != nil {
		return err
	}
	defer c.release()

	var user *models.SessionUser
	err = c.call(ctx, func(ctx context.Context) (err error) {
		user, err = c.provider.SignIn(ctx, creds.Email, creds.Password)
		return err
	})
	if err != nil {
		c.logger.Info("Sign in failed", zap.String("email", creds.Email), zap.Error(err))
		c.fail(err)
		return nil
	}

	signedIn := *user
	if signedIn.Email == "" {
		signedIn.Email = creds.Email
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateAuthenticated
	c.user = &signedIn
	c.logger.Info("Signed in", zap.String("username", signedIn.Username))
	return nil
}

// SignUp submits the create account form
func (c *Controller) SignUp(ctx context.Context) error {
	creds, err := c.begin(StateSignUp)
	if err != nil {
		return err
	}
	defer c.release()

	if creds.Password != creds.ConfirmPassword {
		c.fail(models.NewError(models.KindPolicyViolation, "Passwords do not match"))
		return nil
	}

	err = c.call(ctx, func(ctx context.Context) error {
		return c.provider.SignUp(ctx, creds.Email, creds.Password)
	})
	if err != nil {
		c.logger.Info("Sign up failed", zap.String("email", creds.Email), zap.Error(err))
		c.fail(err)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateConfirmSignUp
	c.logger.Info("Signed up, awaiting confirmation", zap.String("email", creds.Email))
	return nil
}

// ConfirmSignUp submits the confirmation code
func (c *Controller) ConfirmSignUp(ctx context.Context) error {
	creds, err := c.begin(StateConfirmSignUp)
	if err != nil {
		return err
	}
	defer c.release()

	err = c.call(ctx, func(ctx context.Context) error {
		return c.provider.ConfirmSignUp(ctx, creds.Email, creds.VerificationCode)
	})
	if err != nil {
		c.logger.Info("Confirmation failed", zap.String("email", creds.Email), zap.Error(err))
		c.fail(err)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateSignIn
	c.creds = Credentials{}
	c.logger.Info("Account confirmed", zap.String("email", creds.Email))
	return nil
}

// SignOut ends the session. Provider failures are logged and the view
// returns to sign in regardless.
func (c *Controller) SignOut(ctx context.Context) error {
	if _, err := c.begin(StateAuthenticated); err != nil {
		return err
	}
	defer c.release()

	err := c.call(ctx, c.provider.SignOut)
	if err != nil {
		c.logger.Warn("Sign out failed, dropping local session", zap.Error(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateSignIn
	c.user = nil
	c.creds = Credentials{}
	return nil
}

// ShowSignUp switches from sign in to the create account view
func (c *Controller) ShowSignUp() error {
	return c.show(StateSignIn, StateSignUp)
}

// ShowSignIn switches from create account back to sign in
func (c *Controller) ShowSignIn() error {
	return c.show(StateSignUp, StateSignIn)
}

func (c *Controller) show(from, to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrBusy
	}
	if c.state != from {
		return ErrInvalidTransition
	}
	c.state = to
	c.err = ""
	return nil
}

// New creates the controller from the auth configuration
func New(provider providers.Provider, cfg *config.AuthConfig, logger *zap.Logger) *Controller {
	return NewController(provider, Options{Timeout: cfg.Timeout}, logger.Named("authview"))
}

// Module provides the controller
var Module = fx.Module("authview",
	fx.Provide(New),
)
