package auth

import (
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brizzai/cogauth/internal/auth/providers"
	"github.com/brizzai/cogauth/internal/config"
	"github.com/brizzai/cogauth/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func params(cfg *config.AuthConfig) ProviderParams {
	return ProviderParams{Config: cfg, Store: session.NewMemoryStore(), Logger: zap.NewNop()}
}

func TestNewProvider(t *testing.T) {
	// keep the SDK away from any real shared config
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")

	local, err := NewProvider(params(&config.AuthConfig{Provider: config.ProviderLocal}))
	require.NoError(t, err)
	assert.IsType(t, &providers.LocalProvider{}, local)

	cognito, err := NewProvider(params(&config.AuthConfig{
		Provider: config.ProviderCognito,
		Cognito:  config.CognitoConfig{Region: "us-east-1", UserPoolClientID: "client-1"},
	}))
	require.NoError(t, err)
	assert.IsType(t, &providers.CognitoProvider{}, cognito)

	_, err = NewProvider(params(&config.AuthConfig{Provider: "okta"}))
	assert.ErrorIs(t, err, ErrInvalidProvider)
}

func TestNewHostedUI(t *testing.T) {
	assert.Nil(t, NewHostedUI(&config.AuthConfig{Provider: config.ProviderCognito}))
	assert.Nil(t, NewHostedUI(&config.AuthConfig{Provider: config.ProviderLocal, Cognito: config.CognitoConfig{Domain: "demo"}}))

	ui := NewHostedUI(&config.AuthConfig{
		Provider: config.ProviderCognito,
		Cognito: config.CognitoConfig{
			Region:           "eu-west-1",
			UserPoolClientID: "client-1",
			Domain:           "demo",
			RedirectURL:      "http://localhost:3000/",
		},
	})
	require.NotNil(t, ui)
	assert.Equal(t, "https://demo.auth.eu-west-1.amazoncognito.com", ui.BaseURL())

	link, verifier := ui.SignInURL()
	assert.NotEmpty(t, verifier)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/oauth2/authorize", parsed.Path)

	query := parsed.Query()
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "client-1", query.Get("client_id"))
	assert.Equal(t, "email openid profile", query.Get("scope"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	assert.NotEmpty(t, query.Get("code_challenge"))
	assert.NotEqual(t, verifier, query.Get("state"))
}

func TestNewHostedUI_CustomDomain(t *testing.T) {
	ui := NewHostedUI(&config.AuthConfig{
		Provider: config.ProviderCognito,
		Cognito:  config.CognitoConfig{Region: "us-east-1", Domain: "https://login.example.com/", Scopes: []string{"openid"}},
	})
	require.NotNil(t, ui)
	assert.Equal(t, "https://login.example.com", ui.BaseURL())
	assert.True(t, strings.Contains(ui.AuthURL("st", "verifier"), "scope=openid"))
}
