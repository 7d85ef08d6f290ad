package models

import (
	"time"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"gorm.io/gorm"
)

// MFAMethodType names a second-factor delivery backend.
type MFAMethodType string

// Supported MFA method types.
const (
	MFAMethodSMS    MFAMethodType = "sms"
	MFAMethodSSO    MFAMethodType = "sso"
	MFAMethodAppLog MFAMethodType = "app_log"
)

// Valid reports whether t is a supported method type.
func (t MFAMethodType) Valid() bool {
	return t == MFAMethodSMS || t == MFAMethodSSO || t == MFAMethodAppLog
}

// ErrImmutable is returned by hooks of rows that must never change after insert.
var ErrImmutable = pwerrors.Forbidden("MFA tokens and codes can not be updated", map[string]any{"error": "mfa_immutable"})

// MFAMethod is a second factor configured by a user.
type MFAMethod struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex:idx_mfa_method_user_priority"` // Owning user.
	User   User   `gorm:"foreignKey:UserID"`                                 // Owning user record.

	Type        MFAMethodType `gorm:"type:text;not null"`                                // Delivery backend.
	Priority    int           `gorm:"not null;uniqueIndex:idx_mfa_method_user_priority"` // Lower is tried first.
	IsEnabled   bool          `gorm:"not null"`                                          // User toggle.
	IsValidated bool          `gorm:"not null;default:false"`                            // Backend exercised successfully at creation.
	Parameter   string        `gorm:"type:text"`                                         // Backend specific target, e.g. phone number.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// MFAToken binds a half-completed login to a user until the second factor succeeds.
type MFAToken struct {
	Token string `gorm:"type:varchar(64);primaryKey"` // Content-addressed opaque token.

	UserID uint64 `gorm:"not null;index"`    // Bound user.
	User   User   `gorm:"foreignKey:UserID"` // Bound user record.

	CreatedAt time.Time `gorm:"not null"`       // Creation timestamp.
	ExpireAt  time.Time `gorm:"not null;index"` // Expiry, enforced at validation.
}

// Expired reports whether the token is no longer usable at now.
func (t *MFAToken) Expired(now time.Time) bool {
	return !t.ExpireAt.After(now)
}

// BeforeUpdate forbids in-place mutation of persisted tokens.
func (t *MFAToken) BeforeUpdate(*gorm.DB) error {
	return ErrImmutable
}

// MFACode is a one-time code issued for an MFA token through a method.
type MFACode struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Token       string `gorm:"type:varchar(64);not null;index"` // Owning MFA token.
	MFAMethodID uint64 `gorm:"not null;index"`                  // Method used to deliver the code.
	Code        string `gorm:"type:varchar(16);not null"`       // Numeric code.

	CreatedAt time.Time `gorm:"not null"` // Creation timestamp.
}

// BeforeUpdate forbids in-place mutation of persisted codes.
func (c *MFACode) BeforeUpdate(*gorm.DB) error {
	return ErrImmutable
}
