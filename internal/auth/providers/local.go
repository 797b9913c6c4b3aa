package providers

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/brizzai/cogauth/internal/auth/constants"
	"github.com/brizzai/cogauth/internal/auth/models"
	"github.com/brizzai/cogauth/internal/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CodeDeliverer sends a confirmation code to the user out of band
type CodeDeliverer func(email, code string)

type localUser struct {
	id          string
	email       string
	hash        []byte
	confirmed   bool
	code        string
	codeExpires time.Time
}

// LocalProvider is an in-process identity provider. Accounts live as long as
// the process does, which is enough for demos and offline runs.
type LocalProvider struct {
	mu        sync.Mutex
	users     map[string]*localUser
	current   *models.SessionUser
	minLength int
	codeTTL   time.Duration
	deliver   CodeDeliverer
	now       func() time.Time
	logger    *zap.Logger
}

func NewLocalProvider(cfg *config.LocalConfig, logger *zap.Logger) *LocalProvider {
	logger = logger.Named("local")
	p := &LocalProvider{
		users:     make(map[string]*localUser),
		minLength: cfg.MinPasswordLength,
		codeTTL:   cfg.CodeTTL,
		now:       time.Now,
		logger:    logger,
	}
	p.deliver = func(email, code string) {
		logger.Info("Confirmation code issued", zap.String("email", email), zap.String("code", code))
	}
	return p
}

// WithDeliverer replaces how confirmation codes reach the user
func (p *LocalProvider) WithDeliverer(d CodeDeliverer) *LocalProvider {
	p.deliver = d
	return p
}

func userKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *LocalProvider) GetCurrentSession(ctx context.Context) (*models.SessionUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, models.ErrNoSession
	}
	user := *p.current
	return &user, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*models.SessionUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.Classify(err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[userKey(email)]
	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		return nil, models.NewError(models.KindInvalidCredentials, "Incorrect username or password.")
	}
	if !u.confirmed {
		return nil, models.NewError(models.KindInvalidCredentials, "User is not confirmed.")
	}

	p.current = &models.SessionUser{Username: u.email, Email: u.email, UserID: u.id}
	user := *p.current
	return &user, nil
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) error {
	if err := ctx.Err(); err != nil {
		return models.Classify(err)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.NewError(models.KindPolicyViolation, "Invalid email address format.")
	}
	if len(password) < p.minLength {
		return models.NewError(models.KindPolicyViolation, "Password did not conform with policy: Password not long enough")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := userKey(email)
	if _, exists := p.users[key]; exists {
		return models.NewError(models.KindDuplicateUser, "User already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.WrapError(models.KindPolicyViolation, "Password did not conform with policy", err)
	}
	code, err := newConfirmationCode()
	if err != nil {
		return models.WrapError(models.KindProviderUnavailable, "Failed to issue confirmation code", err)
	}

	p.users[key] = &localUser{
		id:          uuid.NewString(),
		email:       strings.TrimSpace(email),
		hash:        hash,
		code:        code,
		codeExpires: p.now().Add(p.codeTTL),
	}
	p.deliver(strings.TrimSpace(email), code)
	return nil
}

func (p *LocalProvider) ConfirmSignUp(ctx context.Context, email, code string) error {
	if err := ctx.Err(); err != nil {
		return models.Classify(err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[userKey(email)]
	if !ok {
		return models.NewError(models.KindUnknown, "Username/client id combination not found.")
	}
	if u.confirmed {
		return models.NewError(models.KindUnknown, "User cannot be confirmed. Current status is CONFIRMED")
	}
	if strings.TrimSpace(code) != u.code {
		return models.NewError(models.KindInvalidCode, "Invalid verification code provided, please try again.")
	}
	if !p.now().Before(u.codeExpires) {
		return models.NewError(models.KindExpired, "Invalid code provided, please request a code again.")
	}

	u.confirmed = true
	u.code = ""
	p.logger.Info("Account confirmed", zap.String("user_id", u.id))
	return nil
}

func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
	return nil
}

func newConfirmationCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < constants.ConfirmationCodeLength; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", constants.ConfirmationCodeLength, n), nil
}
