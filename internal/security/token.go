package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"
)

// sessionTokenBytes is the entropy of a session token.
const sessionTokenBytes = 32

// TokenKeyLength is the number of leading token characters stored in clear.
const TokenKeyLength = 8

// GenerateSessionToken creates a new random session token string.
func GenerateSessionToken() (string, error) {
	secret := make([]byte, sessionTokenBytes)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(secret), nil
}

// TokenDigest returns the sha512 hex digest persisted for a session token.
func TokenDigest(token string) string {
	sum := sha512.Sum512([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenKey returns the leading characters of token kept for audit.
func TokenKey(token string) string {
	if len(token) <= TokenKeyLength {
		return token
	}
	return token[:TokenKeyLength]
}

// GenerateMFAToken returns a content-addressed MFA token: the sha256 of the
// creation time and a random salt.
func GenerateMFAToken(createdAt time.Time) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate mfa token: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(createdAt.UnixNano(), 10)))
	h.Write(salt)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GenerateNumericCode returns a uniformly random code of length digits.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("generate code: invalid length %d", length)
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
