package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("P@ss1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "P@ss1") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected wrong password to fail")
	}
	if CheckPasswordAgainstDummy("P@ss1") {
		t.Fatalf("dummy comparison must always fail")
	}
}

func TestSessionTokenDigestIsStable(t *testing.T) {
	token, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(token))
	}
	if TokenDigest(token) != TokenDigest(token) {
		t.Fatalf("digest must be deterministic")
	}
	if len(TokenDigest(token)) != 128 {
		t.Fatalf("expected sha512 hex digest")
	}
	if TokenKey(token) != token[:TokenKeyLength] {
		t.Fatalf("unexpected token key")
	}
}

func TestGenerateMFATokenIsFreshEveryTime(t *testing.T) {
	now := time.Now()
	a, errA := GenerateMFAToken(now)
	b, errB := GenerateMFAToken(now)
	if errA != nil || errB != nil {
		t.Fatalf("generate: %v %v", errA, errB)
	}
	if a == b {
		t.Fatalf("expected salted tokens to differ for the same timestamp")
	}
	if len(a) != 64 {
		t.Fatalf("expected sha256 hex token, got %d chars", len(a))
	}
}

func TestGenerateNumericCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateNumericCode(6)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 || strings.Trim(code, "0123456789") != "" {
			t.Fatalf("expected 6 digits, got %q", code)
		}
	}
	if _, err := GenerateNumericCode(0); err == nil {
		t.Fatalf("expected zero length to fail")
	}
}

func TestParseIDTokenClaims(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, IDTokenClaims{
		PreferredUsername: "Alice@Example.com",
	})
	raw, err := token.SignedString([]byte("provider-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := ParseIDTokenClaims(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ResolvedEmail() != "alice@example.com" {
		t.Fatalf("expected alice@example.com, got %q", claims.ResolvedEmail())
	}
	if _, err := ParseIDTokenClaims("not-a-jwt"); err == nil {
		t.Fatalf("expected malformed token to fail")
	}
}
