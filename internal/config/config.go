// Package config loads pumpwood-auth YAML configuration and applies
// environment overrides so the service can run from either source.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no path is given on the command line.
const DefaultConfigPath = "config.yaml"

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Bind           string   `yaml:"bind"`
	Port           int      `yaml:"port"`
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DatabaseConfig holds the relational store DSN.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// CacheConfig selects the cache backend and entry lifetimes.
type CacheConfig struct {
	Backend                 string `yaml:"backend"`
	RedisURL                string `yaml:"redis_url"`
	AuthTTLSeconds          int    `yaml:"auth_ttl_seconds"`
	PermissionTTLSeconds    int    `yaml:"permission_ttl_seconds"`
	RowPermissionTTLSeconds int    `yaml:"row_permission_ttl_seconds"`
}

// AuthConfig holds session and login settings.
type AuthConfig struct {
	SessionTokenTTLSeconds int     `yaml:"session_token_ttl_seconds"`
	LoginRatePerSecond     float64 `yaml:"login_rate_per_second"`
	LoginBurst             int     `yaml:"login_burst"`
	ExternalOriginHeader   string  `yaml:"external_origin_header"`
	CookieName             string  `yaml:"cookie_name"`
}

// MFAConfig holds MFA token settings.
type MFAConfig struct {
	TokenExpirationSeconds int `yaml:"token_expiration_seconds"`
	CodeLength             int `yaml:"code_length"`
}

// TwilioConfig holds the SMS backend settings.
type TwilioConfig struct {
	AccountSID             string `yaml:"account_sid"`
	AuthToken              string `yaml:"auth_token"`
	SenderPhoneNumber      string `yaml:"sender_phone_number"`
	DeliveryTimeoutSeconds int    `yaml:"delivery_timeout_seconds"`
}

// SSOConfig holds the OAuth2 identity provider settings.
type SSOConfig struct {
	Server           string   `yaml:"server"`
	ClientID         string   `yaml:"client_id"`
	ClientSecret     string   `yaml:"client_secret"`
	AuthorizationURL string   `yaml:"authorization_url"`
	TokenURL         string   `yaml:"token_url"`
	UserInfoURL      string   `yaml:"userinfo_url"`
	RedirectURL      string   `yaml:"redirect_url"`
	Scopes           []string `yaml:"scopes"`
}

// RetentionConfig controls the purge of expired tokens and old login audits.
type RetentionConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	LoginAuditDays  int `yaml:"login_audit_days"`
	BatchSize       int `yaml:"batch_size"`
}

// ActionConfig declares the metadata of a model action.
type ActionConfig struct {
	PermissionRole string `yaml:"permission_role"`
}

// ActionRoles are the roles a catalog action may declare. An empty role
// means can_run_actions.
var ActionRoles = []string{
	"allow_any", "is_authenticated", "is_staff",
	"can_list", "can_list_without_pag", "can_retrieve", "can_retrieve_file",
	"can_delete", "can_delete_many", "can_delete_file", "can_save", "can_run_actions",
}

// ModelConfig declares the static metadata of a model class.
type ModelConfig struct {
	Actions map[string]ActionConfig `yaml:"actions"`
}

// Config mirrors the pumpwood-auth YAML schema.
type Config struct {
	HTTP          HTTPConfig             `yaml:"http"`
	Log           LogConfig              `yaml:"log"`
	Database      DatabaseConfig         `yaml:"database"`
	Cache         CacheConfig            `yaml:"cache"`
	Auth          AuthConfig             `yaml:"auth"`
	MFA           MFAConfig              `yaml:"mfa"`
	Twilio        TwilioConfig           `yaml:"twilio"`
	SSO           SSOConfig              `yaml:"sso"`
	Retention     RetentionConfig        `yaml:"retention"`
	ModelsCatalog map[string]ModelConfig `yaml:"models_catalog"`
}

// ResolveConfigPath returns the given path or the default one.
func ResolveConfigPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultConfigPath
	}
	return path
}

// Load reads a YAML config file, applies defaults and environment overrides,
// and validates the result. A missing file is not an error: the service can be
// configured from the environment alone.
func Load(path string) (Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if errUnmarshal := yaml.Unmarshal(b, &c); errUnmarshal != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	applyDefaults(&c)
	if err := applyEnv(&c, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := validate(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// applyDefaults populates zero-values with defaults.
func applyDefaults(c *Config) {
	if c.HTTP.Bind == "" {
		c.HTTP.Bind = "0.0.0.0"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 30
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "file:./data/pumpwood-auth.db"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.AuthTTLSeconds == 0 {
		c.Cache.AuthTTLSeconds = 30
	}
	if c.Cache.PermissionTTLSeconds == 0 {
		c.Cache.PermissionTTLSeconds = 30
	}
	if c.Cache.RowPermissionTTLSeconds == 0 {
		c.Cache.RowPermissionTTLSeconds = 30
	}
	if c.Auth.SessionTokenTTLSeconds == 0 {
		c.Auth.SessionTokenTTLSeconds = 10 * 60 * 60
	}
	if c.Auth.LoginRatePerSecond == 0 {
		c.Auth.LoginRatePerSecond = 5
	}
	if c.Auth.LoginBurst == 0 {
		c.Auth.LoginBurst = 10
	}
	if c.Auth.ExternalOriginHeader == "" {
		c.Auth.ExternalOriginHeader = "X-PUMPWOOD-Ingress-Request"
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "PumpwoodAuthorization"
	}
	if c.MFA.TokenExpirationSeconds == 0 {
		c.MFA.TokenExpirationSeconds = 300
	}
	if c.MFA.CodeLength == 0 {
		c.MFA.CodeLength = 6
	}
	if c.Twilio.DeliveryTimeoutSeconds == 0 {
		c.Twilio.DeliveryTimeoutSeconds = 10
	}
	if c.Retention.IntervalSeconds == 0 {
		c.Retention.IntervalSeconds = 60 * 60
	}
	if c.Retention.LoginAuditDays == 0 {
		c.Retention.LoginAuditDays = 90
	}
	if c.Retention.BatchSize == 0 {
		c.Retention.BatchSize = 5000
	}
	if len(c.SSO.Scopes) == 0 {
		c.SSO.Scopes = []string{"openid", "email", "profile"}
	}
}

// lookupFunc matches os.LookupEnv.
type lookupFunc func(string) (string, bool)

// applyEnv overrides config values with environment variables.
func applyEnv(c *Config, lookup lookupFunc) error {
	strs := map[string]*string{
		"DATABASE_DSN":                     &c.Database.DSN,
		"REDIS_URL":                        &c.Cache.RedisURL,
		"PUMPWOOD__AUTH__CACHE_BACKEND":    &c.Cache.Backend,
		"LOG_LEVEL":                        &c.Log.Level,
		"TWILIO_ACCOUNT_SID":               &c.Twilio.AccountSID,
		"TWILIO_AUTH_TOKEN":                &c.Twilio.AuthToken,
		"TWILIO_SENDER_PHONE_NUMBER":       &c.Twilio.SenderPhoneNumber,
		"PUMPWOOD__SSO__SERVER":            &c.SSO.Server,
		"PUMPWOOD__SSO__CLIENT_ID":         &c.SSO.ClientID,
		"PUMPWOOD__SSO__SECRET":            &c.SSO.ClientSecret,
		"PUMPWOOD__SSO__AUTHORIZATION_URL": &c.SSO.AuthorizationURL,
		"PUMPWOOD__SSO__TOKEN_URL":         &c.SSO.TokenURL,
		"PUMPWOOD__SSO__USERINFO_URL":      &c.SSO.UserInfoURL,
		"PUMPWOOD__SSO__REDIRECT_URL":      &c.SSO.RedirectURL,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"PUMPWOOD__AUTH__TOKEN_CACHE_EXPIRY":          &c.Cache.AuthTTLSeconds,
		"PUMPWOOD__AUTH__PERMISSION_CACHE_EXPIRY":     &c.Cache.PermissionTTLSeconds,
		"PUMPWOOD__AUTH__ROW_PERMISSION_CACHE_EXPIRY": &c.Cache.RowPermissionTTLSeconds,
		"PUMPWOOD__AUTH__SESSION_TOKEN_TTL":           &c.Auth.SessionTokenTTLSeconds,
		"PUMPWOOD__MFA__TOKEN_EXPIRATION_INTERVAL":    &c.MFA.TokenExpirationSeconds,
		"TWILIO_DELIVERY_TIMEOUT":                     &c.Twilio.DeliveryTimeoutSeconds,
		"PUMPWOOD__AUTH__LOGIN_AUDIT_RETENTION_DAYS":  &c.Retention.LoginAuditDays,
		"PORT":                                        &c.HTTP.Port,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s must be an integer: %w", key, err)
		}
		*dst = n
	}
	return nil
}

// validate checks required fields and value ranges.
func validate(c *Config) error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return errors.New("config: http.port must be between 1 and 65535")
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.RedisURL) == "" {
			return errors.New("config: cache.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unsupported cache backend %q", c.Cache.Backend)
	}
	positive := map[string]int{
		"cache.auth_ttl_seconds":           c.Cache.AuthTTLSeconds,
		"cache.permission_ttl_seconds":     c.Cache.PermissionTTLSeconds,
		"cache.row_permission_ttl_seconds": c.Cache.RowPermissionTTLSeconds,
		"auth.session_token_ttl_seconds":   c.Auth.SessionTokenTTLSeconds,
		"mfa.token_expiration_seconds":     c.MFA.TokenExpirationSeconds,
		"twilio.delivery_timeout_seconds":  c.Twilio.DeliveryTimeoutSeconds,
		"retention.interval_seconds":       c.Retention.IntervalSeconds,
		"retention.batch_size":             c.Retention.BatchSize,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("config: %s must be positive", name)
		}
	}
	if c.MFA.CodeLength < 4 || c.MFA.CodeLength > 10 {
		return errors.New("config: mfa.code_length must be between 4 and 10")
	}
	return validateCatalog(c.ModelsCatalog)
}

func validateCatalog(catalog map[string]ModelConfig) error {
	known := make(map[string]struct{}, len(ActionRoles))
	for _, role := range ActionRoles {
		known[role] = struct{}{}
	}
	for model, meta := range catalog {
		for action, cfg := range meta.Actions {
			if cfg.PermissionRole == "" {
				continue
			}
			if _, ok := known[cfg.PermissionRole]; !ok {
				return fmt.Errorf("config: models_catalog.%s.actions.%s: unknown permission_role %q", model, action, cfg.PermissionRole)
			}
		}
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// AuthTTL returns the auth cache lifetime.
func (c CacheConfig) AuthTTL() time.Duration {
	return time.Duration(c.AuthTTLSeconds) * time.Second
}

// PermissionTTL returns the permission cache lifetime.
func (c CacheConfig) PermissionTTL() time.Duration {
	return time.Duration(c.PermissionTTLSeconds) * time.Second
}

// RowPermissionTTL returns the row permission cache lifetime.
func (c CacheConfig) RowPermissionTTL() time.Duration {
	return time.Duration(c.RowPermissionTTLSeconds) * time.Second
}

// SessionTokenTTL returns the session token lifetime.
func (c AuthConfig) SessionTokenTTL() time.Duration {
	return time.Duration(c.SessionTokenTTLSeconds) * time.Second
}

// TokenExpiration returns the MFA token lifetime.
func (c MFAConfig) TokenExpiration() time.Duration {
	return time.Duration(c.TokenExpirationSeconds) * time.Second
}

// DeliveryTimeout returns the SMS delivery confirmation deadline.
func (c TwilioConfig) DeliveryTimeout() time.Duration {
	return time.Duration(c.DeliveryTimeoutSeconds) * time.Second
}

// Interval returns the retention sweep interval.
func (c RetentionConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Configured reports whether the Twilio credentials are present.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.SenderPhoneNumber != ""
}

// Configured reports whether an SSO provider is configured.
func (c SSOConfig) Configured() bool {
	return c.Server != "" && c.ClientID != "" && c.AuthorizationURL != "" && c.TokenURL != ""
}
