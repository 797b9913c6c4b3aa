package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/brizzai/cogauth/internal/auth/constants"
	"github.com/brizzai/cogauth/internal/auth/models"
	"github.com/brizzai/cogauth/internal/config"
	"github.com/brizzai/cogauth/internal/session"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// loadAWSConfig is a test seam for config.LoadDefaultConfig
var loadAWSConfig = awsconfig.LoadDefaultConfig

// CognitoAPI is the subset of the Cognito user pool API the provider uses
type CognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	SignUp(ctx context.Context, params *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	RevokeToken(ctx context.Context, params *cip.RevokeTokenInput, optFns ...func(*cip.Options)) (*cip.RevokeTokenOutput, error)
}

// NewCognitoClient creates a user pool client. The calls made by a public
// app client are unsigned, so no AWS credentials are needed.
func NewCognitoClient(ctx context.Context, cfg *config.CognitoConfig) (*cip.Client, error) {
	awsCfg, err := loadAWSConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return cip.NewFromConfig(awsCfg, func(o *cip.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// CognitoProvider signs users in against a Cognito user pool
type CognitoProvider struct {
	api          CognitoAPI
	clientID     string
	clientSecret string
	store        session.Store
	logger       *zap.Logger
	now          func() time.Time
}

func NewCognitoProvider(api CognitoAPI, cfg *config.CognitoConfig, store session.Store, logger *zap.Logger) *CognitoProvider {
	return &CognitoProvider{
		api:          api,
		clientID:     cfg.UserPoolClientID,
		clientSecret: cfg.ClientSecret,
		store:        store,
		logger:       logger.Named("cognito"),
		now:          time.Now,
	}
}

func (p *CognitoProvider) GetCurrentSession(ctx context.Context) (*models.SessionUser, error) {
	tokens, err := p.store.Load()
	if err != nil {
		if errors.Is(err, models.ErrNoSession) {
			return nil, models.ErrNoSession
		}
		return nil, models.WrapError(models.KindUnknown, "failed to load session", err)
	}

	if tokens.Expired(p.now(), constants.TokenExpirySkew) {
		refreshed, err := p.refresh(ctx, tokens)
		if err != nil {
			p.logger.Info("Stored session could not be refreshed", zap.Error(err))
			if clearErr := p.store.Clear(); clearErr != nil {
				p.logger.Warn("Failed to clear stale session", zap.Error(clearErr))
			}
			return nil, fmt.Errorf("%w: %w", models.ErrNoSession, err)
		}
		tokens = refreshed
	}

	return userFromTokens(tokens)
}

func (p *CognitoProvider) SignIn(ctx context.Context, email, password string) (*models.SessionUser, error) {
	params := map[string]string{
		constants.ParamUsername: email,
		constants.ParamPassword: password,
	}
	p.addSecretHash(params, email)

	out, err := p.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(p.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, mapCognitoError(err)
	}
	if out.AuthenticationResult == nil {
		return nil, models.NewError(models.KindUnknown,
			fmt.Sprintf("Sign-in requires an unsupported challenge: %s", out.ChallengeName))
	}

	tokens := p.tokensFromResult(out.AuthenticationResult, email, "")
	user, err := userFromTokens(tokens)
	if err != nil {
		return nil, err
	}
	if err := p.store.Save(tokens); err != nil {
		return nil, models.WrapError(models.KindUnknown, "failed to save session", err)
	}

	p.logger.Info("Signed in", zap.String("user_id", user.UserID))
	return user, nil
}

func (p *CognitoProvider) SignUp(ctx context.Context, email, password string) error {
	_, err := p.api.SignUp(ctx, &cip.SignUpInput{
		ClientId:   aws.String(p.clientID),
		Username:   aws.String(email),
		Password:   aws.String(password),
		SecretHash: p.secretHash(email),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
		},
	})
	if err != nil {
		return mapCognitoError(err)
	}
	p.logger.Info("Signed up, confirmation pending")
	return nil
}

func (p *CognitoProvider) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := p.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(p.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
		SecretHash:       p.secretHash(email),
	})
	if err != nil {
		return mapCognitoError(err)
	}
	return nil
}

// SignOut drops the stored session, then revokes the refresh token
func (p *CognitoProvider) SignOut(ctx context.Context) error {
	tokens, err := p.store.Load()
	if err != nil && !errors.Is(err, models.ErrNoSession) {
		p.logger.Warn("Failed to read session before sign out", zap.Error(err))
	}
	if err := p.store.Clear(); err != nil {
		return models.WrapError(models.KindUnknown, "failed to remove session", err)
	}
	if tokens == nil || tokens.RefreshToken == "" {
		return nil
	}

	input := &cip.RevokeTokenInput{
		ClientId: aws.String(p.clientID),
		Token:    aws.String(tokens.RefreshToken),
	}
	if p.clientSecret != "" {
		input.ClientSecret = aws.String(p.clientSecret)
	}
	if _, err := p.api.RevokeToken(ctx, input); err != nil {
		return mapCognitoError(err)
	}
	return nil
}

func (p *CognitoProvider) refresh(ctx context.Context, tokens *models.Tokens) (*models.Tokens, error) {
	if tokens.RefreshToken == "" {
		return nil, errors.New("session expired and has no refresh token")
	}

	params := map[string]string{
		constants.ParamRefreshToken: tokens.RefreshToken,
	}
	if p.clientSecret != "" {
		claims, err := parseIDToken(tokens.IDToken)
		if err != nil {
			return nil, err
		}
		p.addSecretHash(params, claims.username())
	}

	out, err := p.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeRefreshTokenAuth,
		ClientId:       aws.String(p.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, mapCognitoError(err)
	}
	if out.AuthenticationResult == nil {
		return nil, fmt.Errorf("refresh returned challenge %s", out.ChallengeName)
	}

	refreshed := p.tokensFromResult(out.AuthenticationResult, tokens.LoginID, tokens.RefreshToken)
	if err := p.store.Save(refreshed); err != nil {
		return nil, fmt.Errorf("failed to save refreshed session: %w", err)
	}
	p.logger.Debug("Session refreshed", zap.Time("expires_at", refreshed.ExpiresAt))
	return refreshed, nil
}

// tokensFromResult keeps previousRefresh when Cognito does not rotate it
func (p *CognitoProvider) tokensFromResult(res *types.AuthenticationResultType, loginID, previousRefresh string) *models.Tokens {
	refresh := aws.ToString(res.RefreshToken)
	if refresh == "" {
		refresh = previousRefresh
	}
	return &models.Tokens{
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: refresh,
		ExpiresAt:    p.now().Add(time.Duration(res.ExpiresIn) * time.Second),
		LoginID:      loginID,
	}
}

func (p *CognitoProvider) secretHash(username string) *string {
	if p.clientSecret == "" {
		return nil
	}
	return aws.String(computeSecretHash(p.clientSecret, username, p.clientID))
}

func (p *CognitoProvider) addSecretHash(params map[string]string, username string) {
	if hash := p.secretHash(username); hash != nil {
		params[constants.ParamSecretHash] = *hash
	}
}

// computeSecretHash is Base64(HMAC_SHA256(secret, username + clientID))
func computeSecretHash(secret, username, clientID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type idTokenClaims struct {
	Email    string `json:"email"`
	Username string `json:"cognito:username"`
	jwt.RegisteredClaims
}

func (c *idTokenClaims) username() string {
	if c.Username != "" {
		return c.Username
	}
	return c.Subject
}

// parseIDToken reads the claims of an ID token Cognito handed to us directly.
// The signature is not checked.
func parseIDToken(raw string) (*idTokenClaims, error) {
	claims := &idTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to parse id token: %w", err)
	}
	return claims, nil
}

func userFromTokens(tokens *models.Tokens) (*models.SessionUser, error) {
	claims, err := parseIDToken(tokens.IDToken)
	if err != nil {
		return nil, models.WrapError(models.KindUnknown, "Received an unreadable id token", err)
	}

	email := tokens.LoginID
	if email == "" {
		email = claims.Email
	}
	return &models.SessionUser{
		Username: claims.username(),
		Email:    email,
		UserID:   claims.Subject,
	}, nil
}
