package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuthToken is a persisted session credential. Only the digest is stored.
type AuthToken struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Digest   string `gorm:"type:varchar(128);not null;uniqueIndex"` // sha512 hex of the token.
	TokenKey string `gorm:"type:varchar(16);not null;index"`         // Leading characters, for audit.

	UserID uint64 `gorm:"not null;index"`    // Owning user.
	User   User   `gorm:"foreignKey:UserID"` // Owning user record.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	Expiry    time.Time `gorm:"not null;index"`          // Expiry timestamp.
}

// Login outcomes recorded by the audit trail.
const (
	LoginOutcomeOK         = "ok"
	LoginOutcomeMFAPending = "mfa_pending"
	LoginOutcomeFailed     = "failed"
)

// LoginAudit records every login attempt regardless of outcome.
type LoginAudit struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID   *uint64        `gorm:"index"`                            // Resolved user, nil when unknown.
	Outcome  string         `gorm:"type:text;not null;index"`         // ok, mfa_pending or failed.
	Reason   string         `gorm:"type:text"`                        // Failure cause code.
	Path     string         `gorm:"type:text;not null"`               // Request path.
	ClientIP string         `gorm:"type:text"`                        // Caller address.
	Payload  datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Truncated request payload, secrets redacted.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
