package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// AppName is used for the env prefix and default file locations.
const AppName = "cogauth"

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("cogauth version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Auth    AuthConfig    `mapstructure:"auth"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ProviderType selects the identity provider implementation
type ProviderType string

const (
	ProviderCognito ProviderType = "cognito"
	ProviderLocal   ProviderType = "local"
)

type AuthConfig struct {
	Provider ProviderType `mapstructure:"provider"`
	// Timeout bounds every provider call. Zero waits forever.
	Timeout time.Duration `mapstructure:"timeout"`
	Cognito CognitoConfig `mapstructure:"cognito"`
	Local   LocalConfig   `mapstructure:"local"`
}

type CognitoConfig struct {
	Region           string   `mapstructure:"region"`
	UserPoolID       string   `mapstructure:"user_pool_id"`
	UserPoolClientID string   `mapstructure:"user_pool_client_id"`
	ClientSecret     string   `mapstructure:"client_secret"`
	Domain           string   `mapstructure:"domain"`   // hosted UI prefix, e.g. "myapp"
	Endpoint         string   `mapstructure:"endpoint"` // override for local emulators
	RedirectURL      string   `mapstructure:"redirect_url"`
	Scopes           []string `mapstructure:"scopes"`
}

type LocalConfig struct {
	MinPasswordLength int           `mapstructure:"min_password_length"`
	CodeTTL           time.Duration `mapstructure:"code_ttl"`
}

type SessionConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// InitFlags registers the command line flags understood by Load
func InitFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to the config file")
	flags.String("provider", "", "Identity provider (cognito|local)")
	flags.String("region", "", "AWS region of the user pool")
	flags.String("user-pool-id", "", "Cognito user pool id")
	flags.String("client-id", "", "Cognito user pool app client id")
	flags.Duration("timeout", 0, "Timeout for identity provider calls (0 waits forever)")
}

// flagKeys maps flag names to config keys
var flagKeys = map[string]string{
	"provider":     "auth.provider",
	"region":       "auth.cognito.region",
	"user-pool-id": "auth.cognito.user_pool_id",
	"client-id":    "auth.cognito.user_pool_client_id",
	"timeout":      "auth.timeout",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("auth.provider", string(ProviderCognito))
	v.SetDefault("auth.timeout", "0s")
	v.SetDefault("auth.cognito.region", "")
	v.SetDefault("auth.cognito.user_pool_id", "")
	v.SetDefault("auth.cognito.user_pool_client_id", "")
	v.SetDefault("auth.cognito.client_secret", "")
	v.SetDefault("auth.cognito.domain", "")
	v.SetDefault("auth.cognito.endpoint", "")
	v.SetDefault("auth.cognito.redirect_url", "")
	v.SetDefault("auth.cognito.scopes", []string{"email", "openid", "profile"})
	v.SetDefault("auth.local.min_password_length", 8)
	v.SetDefault("auth.local.code_ttl", "24h")
	v.SetDefault("session.path", defaultPath(os.UserConfigDir, "session.yaml"))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", defaultPath(os.UserCacheDir, AppName+".log"))
	v.SetDefault("logging.append_to_file", true)
	v.SetDefault("logging.disable_console", true)
	v.SetDefault("logging.disable_stacktrace", true)
}

func defaultPath(base func() (string, error), name string) string {
	dir, err := base()
	if err != nil {
		return filepath.Join(".", name)
	}
	return filepath.Join(dir, AppName, name)
}

// Load builds the configuration from defaults, the config file, COGAUTH_*
// environment variables and flags, in increasing order of precedence.
// flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	configFile := ""
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
		configFile, _ = flags.GetString("config")
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, AppName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional unless it was named explicitly
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) normalize() error {
	c.Auth.Provider = ProviderType(strings.ToLower(string(c.Auth.Provider)))
	if c.Auth.Timeout < 0 {
		return fmt.Errorf("auth.timeout must not be negative")
	}

	switch c.Auth.Provider {
	case ProviderLocal:
		return nil
	case ProviderCognito:
	default:
		return fmt.Errorf("unsupported identity provider %q, expected cognito or local", c.Auth.Provider)
	}

	cognito := &c.Auth.Cognito
	// Pool ids are "<region>_<id>"
	if cognito.Region == "" {
		if region, _, ok := strings.Cut(cognito.UserPoolID, "_"); ok {
			cognito.Region = region
		}
	}
	if cognito.UserPoolClientID == "" {
		return fmt.Errorf("auth.cognito.user_pool_client_id is required, please adjust the config or pass --client-id or COGAUTH_AUTH_COGNITO_USER_POOL_CLIENT_ID environment variable")
	}
	if cognito.Region == "" {
		return fmt.Errorf("auth.cognito.region is required, please adjust the config or pass --region or COGAUTH_AUTH_COGNITO_REGION environment variable")
	}
	return nil
}

// Redacted returns a copy that is safe to log
func (c CognitoConfig) Redacted() CognitoConfig {
	if c.ClientSecret != "" {
		c.ClientSecret = "***"
	}
	return c
}

// Module exposes the sections of a supplied *Config to the rest of the graph
var Module = fx.Module("config",
	fx.Provide(
		func(c *Config) *AuthConfig { return &c.Auth },
		func(c *Config) *CognitoConfig { return &c.Auth.Cognito },
		func(c *Config) *LocalConfig { return &c.Auth.Local },
		func(c *Config) *SessionConfig { return &c.Session },
		func(c *Config) *LoggingConfig { return &c.Logging },
	),
)
