package auth

import (
	"fmt"
	"strings"

	"github.com/brizzai/cogauth/internal/auth/constants"
	"github.com/brizzai/cogauth/internal/config"
	"golang.org/x/oauth2"
)

// HostedUI builds links to the Cognito hosted sign-in page
type HostedUI struct {
	baseURL      string
	oauth2Config *oauth2.Config
}

// NewHostedUI returns nil unless a Cognito domain is configured
func NewHostedUI(cfg *config.AuthConfig) *HostedUI {
	cognito := cfg.Cognito
	if cfg.Provider != config.ProviderCognito || cognito.Domain == "" {
		return nil
	}

	// A bare prefix expands to the Amazon hosted domain, anything with a dot is a custom domain
	host := cognito.Domain
	if !strings.Contains(host, ".") {
		host = fmt.Sprintf("%s.auth.%s.amazoncognito.com", cognito.Domain, cognito.Region)
	}
	baseURL := "https://" + strings.TrimSuffix(strings.TrimPrefix(host, "https://"), "/")

	scopes := cognito.Scopes
	if len(scopes) == 0 {
		scopes = constants.DefaultScopes
	}

	return &HostedUI{
		baseURL: baseURL,
		oauth2Config: &oauth2.Config{
			ClientID:     cognito.UserPoolClientID,
			ClientSecret: cognito.ClientSecret,
			RedirectURL:  cognito.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  baseURL + "/oauth2/authorize",
				TokenURL: baseURL + "/oauth2/token",
			},
		},
	}
}

// BaseURL returns the hosted UI origin
func (h *HostedUI) BaseURL() string {
	return h.baseURL
}

// AuthURL returns the authorization code URL with a PKCE S256 challenge for verifier
func (h *HostedUI) AuthURL(state, verifier string) string {
	return h.oauth2Config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// SignInURL returns a fresh link and the verifier the code exchange will need
func (h *HostedUI) SignInURL() (url, verifier string) {
	verifier = oauth2.GenerateVerifier()
	return h.AuthURL(oauth2.GenerateVerifier(), verifier), verifier
}
