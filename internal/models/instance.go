package models

import (
	"fmt"
	"strings"
	"time"
)

// AuthType selects which fields of AuthConfig are meaningful for an instance.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBasic  AuthType = "basic"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "api_key"
	AuthOAuth  AuthType = "oauth"
	AuthCustom AuthType = "custom"
)

// ValidAuthTypes lists every recognized auth type.
var ValidAuthTypes = []AuthType{AuthNone, AuthBasic, AuthBearer, AuthAPIKey, AuthOAuth, AuthCustom}

// AuthConfig is the variant payload behind AuthType. Only the fields that
// belong to the active tag may be set; Validate rejects mixed configurations
// so a bearer instance cannot silently carry basic credentials.
type AuthConfig struct {
	// basic
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// bearer
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// api_key
	Key    string `json:"key,omitempty" yaml:"key,omitempty"`
	Header string `json:"header,omitempty" yaml:"header,omitempty"`

	// oauth (stored only; no token refresh flow)
	ClientID     string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty" yaml:"client_secret,omitempty"`
	TokenURL     string `json:"token_url,omitempty" yaml:"token_url,omitempty"`
	Scope        string `json:"scope,omitempty" yaml:"scope,omitempty"`

	// custom
	CustomHeaders map[string]string `json:"custom_headers,omitempty" yaml:"custom_headers,omitempty"`
}

// SSLConfig controls transport trust and the request deadline.
type SSLConfig struct {
	RejectUnauthorized *bool `json:"reject_unauthorized,omitempty" yaml:"reject_unauthorized,omitempty"`
	AllowSelfSigned    bool  `json:"allow_self_signed,omitempty" yaml:"allow_self_signed,omitempty"`
	TimeoutMs          int   `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// DefaultTimeout is applied when an instance does not configure one.
const DefaultTimeout = 30 * time.Second

// Timeout returns the configured request deadline, defaulting to 30s.
func (s SSLConfig) Timeout() time.Duration {
	if s.TimeoutMs > 0 {
		return time.Duration(s.TimeoutMs) * time.Millisecond
	}
	return DefaultTimeout
}

// InsecureSkipVerify reports whether the transport must accept otherwise
// invalid certificates.
func (s SSLConfig) InsecureSkipVerify() bool {
	if s.RejectUnauthorized != nil && !*s.RejectUnauthorized {
		return true
	}
	return s.AllowSelfSigned
}

// RateLimitConfig is the per-instance outbound call policy enforced by the
// query gateway. A zero RequestsPerMinute disables enforcement.
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute,omitempty" yaml:"requests_per_minute,omitempty"`
	BurstSize         int `json:"burst_size,omitempty" yaml:"burst_size,omitempty"`
}

// SystemInstance is one configured connection to a concrete external
// deployment of a connector-compatible system.
type SystemInstance struct {
	InstanceID  string          `json:"instance_id" yaml:"instance_id"`
	SystemName  string          `json:"system_name" yaml:"system_name"`
	DisplayName string          `json:"display_name" yaml:"display_name"`
	BaseURL     string          `json:"base_url" yaml:"base_url"`
	IsActive    bool            `json:"is_active" yaml:"is_active"`
	AuthType    AuthType        `json:"auth_type" yaml:"auth_type"`
	AuthConfig  AuthConfig      `json:"auth_config" yaml:"auth_config"`
	SSLConfig   SSLConfig       `json:"ssl_config" yaml:"ssl_config"`
	RateLimit   RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Tags        []string        `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt   time.Time       `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time       `json:"updated_at" yaml:"-"`
}

// Validate checks identity fields and that the auth payload matches its tag.
func (i *SystemInstance) Validate() error {
	if strings.TrimSpace(i.InstanceID) == "" {
		return fmt.Errorf("instance_id is required")
	}
	if strings.TrimSpace(i.SystemName) == "" {
		return fmt.Errorf("system_name is required")
	}
	if strings.TrimSpace(i.BaseURL) == "" {
		return fmt.Errorf("base_url is required")
	}
	if i.AuthType == "" {
		i.AuthType = AuthNone
	}
	if !validAuthType(i.AuthType) {
		return fmt.Errorf("unknown auth_type: %s", i.AuthType)
	}
	if err := i.AuthConfig.validateFor(i.AuthType); err != nil {
		return fmt.Errorf("auth_config: %w", err)
	}
	if i.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must not be negative")
	}
	return nil
}

func validAuthType(t AuthType) bool {
	for _, v := range ValidAuthTypes {
		if t == v {
			return true
		}
	}
	return false
}

// validateFor rejects fields that do not belong to the active tag, keeping
// invalid combinations (bearer with username/password, etc.) unrepresentable
// in stored configuration.
func (a AuthConfig) validateFor(t AuthType) error {
	groups := []struct {
		present bool
		owner   AuthType
		name    string
	}{
		{a.Username != "" || a.Password != "", AuthBasic, "basic credentials"},
		{a.Token != "", AuthBearer, "bearer token"},
		{a.Key != "" || a.Header != "", AuthAPIKey, "api key"},
		{a.ClientID != "" || a.ClientSecret != "" || a.TokenURL != "" || a.Scope != "", AuthOAuth, "oauth client settings"},
		{len(a.CustomHeaders) > 0, AuthCustom, "custom headers"},
	}

	for _, g := range groups {
		if g.present && g.owner != t {
			return fmt.Errorf("%s not allowed for auth_type %q", g.name, t)
		}
	}
	return nil
}
