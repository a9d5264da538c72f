package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Environment variables recognized by FromEnv.
const (
	EnvHubID    = "HUBD_HUB_ID"
	EnvToken    = "HUBD_AUTH_TOKEN"
	EnvCloudURL = "HUBD_CLOUD_URL"
)

// Credentials identify this Hub to the Cloud control plane.
type Credentials struct {
	// HubID is the hub's UUID assigned at enrollment.
	HubID string `yaml:"hub_id"`

	// Token is the long-lived bearer token (an RS256 JWT).
	Token string `yaml:"auth_token"`

	// CloudURL is the Cloud base URL, e.g. "wss://cloud.example.com".
	// http/https schemes are accepted and mapped to ws/wss when dialing.
	CloudURL string `yaml:"cloud_url"`
}

// Validate checks that the credentials are complete and well-formed.
func (c *Credentials) Validate() error {
	if c.HubID == "" {
		return errors.New("hub_id is required")
	}
	if _, err := uuid.Parse(c.HubID); err != nil {
		return fmt.Errorf("hub_id is not a valid UUID: %w", err)
	}
	if c.Token == "" {
		return errors.New("auth_token is required")
	}
	if c.CloudURL == "" {
		return errors.New("cloud_url is required")
	}
	u, err := url.Parse(c.CloudURL)
	if err != nil {
		return fmt.Errorf("cloud_url is not a valid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("cloud_url has unsupported scheme %q", u.Scheme)
	}
	return nil
}

// TokenExpiry returns the token's expiration time, extracted from the JWT
// claims without signature verification. The signature is the Cloud's
// concern; the Hub only peeks at exp to warn before dialing with a token
// that cannot work.
func (c *Credentials) TokenExpiry() (time.Time, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(c.Token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read token expiry: %w", err)
	}
	if exp == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return exp.Time, nil
}

// TokenExpired reports whether the token's exp claim lies in the past.
// A token that cannot be parsed or carries no exp claim is not reported as
// expired; the Cloud's handshake response stays authoritative.
func (c *Credentials) TokenExpired(now time.Time) bool {
	exp, err := c.TokenExpiry()
	if err != nil {
		return false
	}
	return exp.Before(now)
}

// Provider supplies credentials for a connection attempt. Implementations
// may return different values across calls (token rotation).
type Provider interface {
	Resolve(ctx context.Context) (*Credentials, error)
}

// Static is a Provider returning fixed credentials.
type Static struct {
	creds Credentials
}

// NewStatic creates a provider that always returns creds.
func NewStatic(creds Credentials) *Static {
	return &Static{creds: creds}
}

// Resolve returns the fixed credentials after validating them.
func (s *Static) Resolve(ctx context.Context) (*Credentials, error) {
	c := s.creds
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// FileProvider reads credentials from a YAML file on every Resolve call, so
// an enrollment flow rewriting the file rotates the token without a restart.
type FileProvider struct {
	path string
}

// NewFileProvider creates a provider backed by the YAML file at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Resolve reads and validates the credentials file.
func (f *FileProvider) Resolve(ctx context.Context) (*Credentials, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	var c Credentials
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credentials in %s: %w", f.path, err)
	}
	return &c, nil
}

// FromEnv builds credentials from HUBD_HUB_ID, HUBD_AUTH_TOKEN and
// HUBD_CLOUD_URL.
func FromEnv() (*Credentials, error) {
	c := Credentials{
		HubID:    os.Getenv(EnvHubID),
		Token:    os.Getenv(EnvToken),
		CloudURL: os.Getenv(EnvCloudURL),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
