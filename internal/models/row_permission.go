package models

import "time"

// RowPermission is a tag restricting visibility of individual data rows.
type RowPermission struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:text;not null;uniqueIndex"` // Tag name.
	Description string `gorm:"type:text"`                      // Free text description.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// RowPermissionUser grants a row tag to a user.
type RowPermissionUser struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RowPermissionID uint64 `gorm:"not null;uniqueIndex:idx_row_permission_user"` // Granted tag.
	UserID          uint64 `gorm:"not null;uniqueIndex:idx_row_permission_user"` // Grantee.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// RowPermissionGroup grants a row tag to every member of a group.
type RowPermissionGroup struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RowPermissionID uint64 `gorm:"not null;uniqueIndex:idx_row_permission_group"` // Granted tag.
	GroupID         uint64 `gorm:"not null;uniqueIndex:idx_row_permission_group"` // Grantee group.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
