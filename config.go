package runeq

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Auth methods supported by the platform.
const (
	AuthMethodClientKeys  = "client_keys"
	AuthMethodAccessToken = "access_token"
	AuthMethodJWT         = "jwt"
)

// DefaultConfigPath is the default location of the YAML config file.
const DefaultConfigPath = "~/.rune/config"

const (
	defaultGraphURL  = "https://graph.runelabs.io"
	defaultStreamURL = "https://stream.runelabs.io"
	defaultStriveURL = "https://strive.runelabs.io"
)

// Config holds API base URLs and auth credentials. Load it from a YAML file
// (LoadConfig), from the environment (ConfigFromEnv), or construct it
// directly with credential fields set.
type Config struct {
	GraphURL  string `yaml:"graph_url" envconfig:"RUNEQ_GRAPH_URL"`
	StreamURL string `yaml:"stream_url" envconfig:"RUNEQ_STREAM_URL"`
	StriveURL string `yaml:"strive_url" envconfig:"RUNEQ_STRIVE_URL"`

	// AuthMethod is one of the AuthMethod* constants. If empty it is
	// inferred from which credential pair is populated.
	AuthMethod string `yaml:"auth_method" envconfig:"RUNEQ_AUTH_METHOD"`

	ClientKeyID       string `yaml:"client_key_id" envconfig:"RUNEQ_CLIENT_KEY_ID"`
	ClientAccessKey   string `yaml:"client_access_key" envconfig:"RUNEQ_CLIENT_ACCESS_KEY"`
	AccessTokenID     string `yaml:"access_token_id" envconfig:"RUNEQ_ACCESS_TOKEN_ID"`
	AccessTokenSecret string `yaml:"access_token_secret" envconfig:"RUNEQ_ACCESS_TOKEN_SECRET"`
	JWT               string `yaml:"jwt" envconfig:"RUNEQ_JWT"`

	// Refresh, when set, renews expired credentials in place. The transports
	// invoke it after an auth-class failure and retry the request exactly
	// once if it returns true.
	Refresh func(*Config) bool `yaml:"-" ignored:"true"`
}

// LoadConfig reads a YAML config file. An empty path means
// DefaultConfigPath; a leading "~" expands to the user's home directory.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("expand config path: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFromEnv builds a Config from RUNEQ_* environment variables.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("config from env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize applies URL defaults and infers the auth method when unset.
func (c *Config) normalize() error {
	if c.GraphURL == "" {
		c.GraphURL = defaultGraphURL
	}
	if c.StreamURL == "" {
		c.StreamURL = defaultStreamURL
	}
	if c.StriveURL == "" {
		c.StriveURL = defaultStriveURL
	}

	if c.AuthMethod != "" {
		_, err := c.AuthHeaders()
		return err
	}

	set := 0
	if c.AccessTokenID != "" || c.AccessTokenSecret != "" {
		set++
	}
	if c.ClientKeyID != "" || c.ClientAccessKey != "" {
		set++
	}
	if c.JWT != "" {
		set++
	}
	if set > 1 {
		return Usagef("cannot infer auth method: multiple credential sets provided; set AuthMethod to disambiguate")
	}

	switch {
	case c.AccessTokenID != "" && c.AccessTokenSecret != "":
		c.AuthMethod = AuthMethodAccessToken
	case c.ClientKeyID != "" && c.ClientAccessKey != "":
		c.AuthMethod = AuthMethodClientKeys
	case c.JWT != "":
		c.AuthMethod = AuthMethodJWT
	default:
		return Usagef("cannot infer auth method: no complete set of credentials provided")
	}
	return nil
}

// AuthHeaders returns the per-request authentication headers for the
// configured auth method.
func (c *Config) AuthHeaders() (map[string]string, error) {
	switch c.AuthMethod {
	case AuthMethodClientKeys:
		if c.ClientKeyID == "" || c.ClientAccessKey == "" {
			return nil, Usagef("client key credentials are not set")
		}
		return map[string]string{
			"X-Rune-Client-Key-ID":     c.ClientKeyID,
			"X-Rune-Client-Access-Key": c.ClientAccessKey,
		}, nil
	case AuthMethodAccessToken:
		if c.AccessTokenID == "" || c.AccessTokenSecret == "" {
			return nil, Usagef("access token credentials are not set")
		}
		return map[string]string{
			"X-Rune-User-Access-Token-Id":     c.AccessTokenID,
			"X-Rune-User-Access-Token-Secret": c.AccessTokenSecret,
		}, nil
	case AuthMethodJWT:
		if c.JWT == "" {
			return nil, Usagef("jwt is not set")
		}
		return map[string]string{
			"X-Rune-User-Access-Token": c.JWT,
		}, nil
	default:
		return nil, Usagef("invalid auth method %q", c.AuthMethod)
	}
}

// RefreshAuth invokes the refresh hook, if any. It reports whether
// credentials were renewed and a retry is worthwhile.
func (c *Config) RefreshAuth() bool {
	if c.Refresh == nil {
		return false
	}
	return c.Refresh(c)
}
