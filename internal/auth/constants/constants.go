package constants

import "time"

const (
	// TokenExpirySkew treats tokens as expired slightly early
	TokenExpirySkew = 30 * time.Second

	// ConfirmationCodeLength matches the codes Cognito emails out
	ConfirmationCodeLength = 6

	// Cognito auth parameter names
	ParamUsername     = "USERNAME"
	ParamPassword     = "PASSWORD"
	ParamRefreshToken = "REFRESH_TOKEN"
	ParamSecretHash   = "SECRET_HASH"

	// Cognito ID token claims
	ClaimUsername = "cognito:username"
)

// DefaultScopes requested from the hosted UI
var DefaultScopes = []string{"email", "openid", "profile"}
