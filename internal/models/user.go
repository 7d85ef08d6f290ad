package models

import "time"

// User represents an account that can authenticate against the mesh.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Email    string `gorm:"type:text;index"`                // Contact and SSO identity email.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	IsActive      bool `gorm:"not null"`               // Whether the user can sign in.
	IsStaff       bool `gorm:"not null;default:false"` // Grants is_staff routes.
	IsSuperuser   bool `gorm:"not null;default:false"` // Bypasses every policy check.
	IsServiceUser bool `gorm:"not null;default:false"` // Service account, never logs in from outside the cluster.

	Groups []Group `gorm:"many2many:user_groups;"` // Group memberships.

	LastLogin *time.Time // Last successful session issuance.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// GroupIDs returns the ids of the loaded group memberships.
func (u *User) GroupIDs() []uint64 {
	ids := make([]uint64, 0, len(u.Groups))
	for _, g := range u.Groups {
		ids = append(ids, g.ID)
	}
	return ids
}
