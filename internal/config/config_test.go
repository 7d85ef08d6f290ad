package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected missing file to fall back to defaults, got %v", err)
	}
	if c.Cache.AuthTTL() != 30*time.Second {
		t.Fatalf("expected auth ttl 30s, got %s", c.Cache.AuthTTL())
	}
	if c.MFA.TokenExpiration() != 300*time.Second {
		t.Fatalf("expected mfa token expiration 300s, got %s", c.MFA.TokenExpiration())
	}
	if c.Twilio.DeliveryTimeout() != 10*time.Second {
		t.Fatalf("expected delivery timeout 10s, got %s", c.Twilio.DeliveryTimeout())
	}
	if c.Retention.Interval() != time.Hour || c.Retention.LoginAuditDays != 90 {
		t.Fatalf("expected hourly retention keeping 90 days of audits, got %+v", c.Retention)
	}
	if c.Cache.Backend != "memory" {
		t.Fatalf("expected memory cache backend, got %q", c.Cache.Backend)
	}
}

func TestLoadParsesYAMLAndCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
http:
  port: 8080
cache:
  permission_ttl_seconds: 12
models_catalog:
  DescriptionModel:
    actions:
      recalculate:
        permission_role: can_save
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTP.Addr() != "0.0.0.0:8080" {
		t.Fatalf("expected addr 0.0.0.0:8080, got %s", c.HTTP.Addr())
	}
	if c.Cache.PermissionTTL() != 12*time.Second {
		t.Fatalf("expected permission ttl 12s, got %s", c.Cache.PermissionTTL())
	}
	role := c.ModelsCatalog["DescriptionModel"].Actions["recalculate"].PermissionRole
	if role != "can_save" {
		t.Fatalf("expected recalculate permission role can_save, got %q", role)
	}
}

func TestApplyEnvOverridesValues(t *testing.T) {
	var c Config
	applyDefaults(&c)
	env := map[string]string{
		"PUMPWOOD__AUTH__TOKEN_CACHE_EXPIRY":         "45",
		"PUMPWOOD__MFA__TOKEN_EXPIRATION_INTERVAL":   "60",
		"TWILIO_DELIVERY_TIMEOUT":                    "3",
		"PUMPWOOD__SSO__SERVER":                      "microsoft-entra-id",
		"PUMPWOOD__AUTH__LOGIN_AUDIT_RETENTION_DAYS": "7",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	if err := applyEnv(&c, lookup); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if c.Cache.AuthTTLSeconds != 45 || c.MFA.TokenExpirationSeconds != 60 || c.Twilio.DeliveryTimeoutSeconds != 3 {
		t.Fatalf("unexpected overrides: %+v %+v %+v", c.Cache, c.MFA, c.Twilio)
	}
	if c.Retention.LoginAuditDays != 7 {
		t.Fatalf("expected audit retention override, got %d", c.Retention.LoginAuditDays)
	}
	if c.SSO.Server != "microsoft-entra-id" {
		t.Fatalf("expected sso server override, got %q", c.SSO.Server)
	}
}

func TestApplyEnvRejectsNonInteger(t *testing.T) {
	var c Config
	lookup := func(k string) (string, bool) {
		if k == "TWILIO_DELIVERY_TIMEOUT" {
			return "soon", true
		}
		return "", false
	}
	if err := applyEnv(&c, lookup); err == nil {
		t.Fatalf("expected error for non-integer timeout")
	}
}

func TestValidateRejectsRedisWithoutURL(t *testing.T) {
	var c Config
	applyDefaults(&c)
	c.Cache.Backend = "redis"
	if err := validate(&c); err == nil {
		t.Fatalf("expected redis backend without url to fail validation")
	}
}

func TestValidateRejectsUnknownActionRole(t *testing.T) {
	var c Config
	applyDefaults(&c)
	c.ModelsCatalog = map[string]ModelConfig{
		"DescriptionModel": {Actions: map[string]ActionConfig{
			"recalculate": {},
			"rename":      {PermissionRole: "can_save"},
		}},
	}
	if err := validate(&c); err != nil {
		t.Fatalf("expected known roles to validate, got %v", err)
	}

	c.ModelsCatalog["DescriptionModel"].Actions["publish"] = ActionConfig{PermissionRole: "can_publish"}
	err := validate(&c)
	if err == nil || !strings.Contains(err.Error(), "can_publish") {
		t.Fatalf("expected unknown permission_role to fail validation, got %v", err)
	}
}
