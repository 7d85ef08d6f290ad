package mfa

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAuditPayloadRedactsSecrets(t *testing.T) {
	raw := auditPayload(map[string]any{"username": "alice", "Password": "pw", "mfa_code": "123456", "token": "t"})
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["username"] != "alice" {
		t.Fatalf("expected username to be kept, got %v", got)
	}
	for _, k := range []string{"Password", "mfa_code", "token"} {
		if got[k] != "****" {
			t.Fatalf("expected %s to be redacted, got %v", k, got[k])
		}
	}
}

func TestAuditPayloadTruncates(t *testing.T) {
	raw := auditPayload(map[string]any{"username": strings.Repeat("a", 4096)})
	var got map[string]string
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got["truncated"]) != auditPayloadLimit {
		t.Fatalf("expected %d truncated bytes, got %d", auditPayloadLimit, len(got["truncated"]))
	}
}

func TestMaskParameter(t *testing.T) {
	if got := maskParameter("+5511999991234"); got != "**********1234" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := maskParameter("abc"); got != "abc" {
		t.Fatalf("expected short parameter to be kept, got %q", got)
	}
}
