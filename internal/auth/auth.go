// Package auth wires the identity provider selected in the configuration.
package auth

import (
	"context"
	"fmt"

	"github.com/brizzai/cogauth/internal/auth/providers"
	"github.com/brizzai/cogauth/internal/config"
	"github.com/brizzai/cogauth/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrInvalidProvider indicates an unsupported identity provider was specified
var ErrInvalidProvider = fmt.Errorf("unsupported identity provider")

type ProviderParams struct {
	fx.In

	Config *config.AuthConfig
	Store  session.Store
	Logger *zap.Logger
}

// NewProvider creates the identity provider named by the configuration
func NewProvider(p ProviderParams) (providers.Provider, error) {
	switch p.Config.Provider {
	case config.ProviderCognito:
		client, err := providers.NewCognitoClient(context.Background(), &p.Config.Cognito)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize provider %s: %w", p.Config.Provider, err)
		}
		p.Logger.Debug("Using Cognito user pool", zap.Any("cognito", p.Config.Cognito.Redacted()))
		return providers.NewCognitoProvider(client, &p.Config.Cognito, p.Store, p.Logger), nil
	case config.ProviderLocal:
		p.Logger.Debug("Using local identity provider")
		return providers.NewLocalProvider(&p.Config.Local, p.Logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProvider, p.Config.Provider)
	}
}

// Module provides the identity provider and hosted UI link builder
var Module = fx.Module("auth",
	fx.Provide(
		NewProvider,
		NewHostedUI,
	),
)
