package models

import "time"

// Group is a named set of users sharing permission and row assignments.
type Group struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:text;not null;uniqueIndex"` // Display name.
	Description string `gorm:"type:text"`                      // Free text description.

	Users []User `gorm:"many2many:user_groups;"` // Member users.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
