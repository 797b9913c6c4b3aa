package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cogauth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	InitFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  provider: cognito
  timeout: 15s
  cognito:
    user_pool_id: eu-west-1_AbCdEf
    user_pool_client_id: client-123
    domain: demo
session:
  path: /tmp/cogauth-test/session.yaml
logging:
  level: debug
`)

	cfg, err := Load(newFlags(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, ProviderCognito, cfg.Auth.Provider)
	assert.Equal(t, 15*time.Second, cfg.Auth.Timeout)
	assert.Equal(t, "eu-west-1", cfg.Auth.Cognito.Region, "region should be derived from the pool id")
	assert.Equal(t, "client-123", cfg.Auth.Cognito.UserPoolClientID)
	assert.Equal(t, []string{"email", "openid", "profile"}, cfg.Auth.Cognito.Scopes)
	assert.Equal(t, "/tmp/cogauth-test/session.yaml", cfg.Session.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.DisableConsole)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  provider: cognito
  cognito:
    region: us-east-1
    user_pool_client_id: from-file
`)

	cfg, err := Load(newFlags(t, "--config", path, "--client-id", "from-flag", "--timeout", "3s"))
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.Auth.Cognito.UserPoolClientID)
	assert.Equal(t, 3*time.Second, cfg.Auth.Timeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  provider: cognito
  cognito:
    region: us-east-1
    user_pool_client_id: from-file
`)
	t.Setenv("COGAUTH_AUTH_COGNITO_USER_POOL_CLIENT_ID", "from-env")

	cfg, err := Load(newFlags(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.Cognito.UserPoolClientID)
}

func TestLoad_LocalProviderNeedsNoCognitoSettings(t *testing.T) {
	cfg, err := Load(newFlags(t, "--config", writeConfig(t, "auth:\n  provider: LOCAL\n")))
	require.NoError(t, err)

	assert.Equal(t, ProviderLocal, cfg.Auth.Provider)
	assert.Equal(t, 8, cfg.Auth.Local.MinPasswordLength)
	assert.Equal(t, 24*time.Hour, cfg.Auth.Local.CodeTTL)
	assert.Zero(t, cfg.Auth.Timeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{
			name:    "missing client id",
			content: "auth:\n  cognito:\n    region: us-east-1\n",
			errText: "user_pool_client_id is required",
		},
		{
			name:    "missing region",
			content: "auth:\n  cognito:\n    user_pool_client_id: abc\n",
			errText: "region is required",
		},
		{
			name:    "unknown provider",
			content: "auth:\n  provider: okta\n",
			errText: "unsupported identity provider",
		},
		{
			name:    "negative timeout",
			content: "auth:\n  provider: local\n  timeout: -1s\n",
			errText: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newFlags(t, "--config", writeConfig(t, tt.content)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	require.Error(t, err)
}

func TestCognitoConfig_Redacted(t *testing.T) {
	cfg := CognitoConfig{UserPoolClientID: "abc", ClientSecret: "s3cr3t"}
	redacted := cfg.Redacted()

	assert.Equal(t, "***", redacted.ClientSecret)
	assert.Equal(t, "s3cr3t", cfg.ClientSecret, "receiver must not change")
	assert.Empty(t, CognitoConfig{}.Redacted().ClientSecret)
}
