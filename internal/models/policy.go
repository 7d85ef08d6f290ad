package models

import "time"

// PolicyValue is the per-capability decision stored on a policy.
type PolicyValue string

// Capability decisions.
const (
	PolicyAllow    PolicyValue = "allow"
	PolicyDeny     PolicyValue = "deny"
	PolicyNoChange PolicyValue = "no_change"
	// PolicyCustom is only valid on CanRunActions and defers to PolicyAction rows.
	PolicyCustom PolicyValue = "custom"
)

// GeneralPolicy is the coarse mode of a policy assignment.
type GeneralPolicy string

// Assignment modes.
const (
	GeneralPolicyRead   GeneralPolicy = "read"
	GeneralPolicyWrite  GeneralPolicy = "write"
	GeneralPolicyCustom GeneralPolicy = "custom"
)

// Valid reports whether g is a known assignment mode.
func (g GeneralPolicy) Valid() bool {
	return g == GeneralPolicyRead || g == GeneralPolicyWrite || g == GeneralPolicyCustom
}

// PermissionPolicy bundles capability decisions for a single route.
type PermissionPolicy struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Description string `gorm:"type:text;not null"` // Human readable name.

	RouteID uint64 `gorm:"not null;index"`     // Route the policy applies to.
	Route   Route  `gorm:"foreignKey:RouteID"` // Route record.

	CanList           PolicyValue `gorm:"type:text;not null;default:'no_change'"`
	CanListWithoutPag PolicyValue `gorm:"type:text;not null;default:'no_change'"`
	CanRetrieve       PolicyValue `gorm:"type:text;not null;default:'no_change'"`
	CanRetrieveFile   PolicyValue `gorm:"type:text;not null;default:'no_change'"`
	CanDelete         PolicyValue `gorm:"type:text;not null;default:'no_change'"`
	CanDeleteMany     PolicyValue `gorm:"type:text;not null;default:'no_change'"`
	CanDeleteFile     PolicyValue `gorm:"type:text;not null;default:'no_change'"`
	CanSave           PolicyValue `gorm:"type:text;not null;default:'no_change'"`
	CanRunActions     PolicyValue `gorm:"type:text;not null;default:'no_change'"` // allow, deny, custom or no_change.

	ActionPermissions []PolicyAction `gorm:"foreignKey:PolicyID"` // Per-action overrides used by custom.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// PolicyAction overrides the action capability of a policy for one action.
type PolicyAction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PolicyID   uint64      `gorm:"not null;uniqueIndex:idx_policy_action"`           // Owning policy.
	Action     string      `gorm:"type:text;not null;uniqueIndex:idx_policy_action"` // Action name.
	Permission PolicyValue `gorm:"type:text;not null"`                               // allow or deny.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// PolicyUser assigns a policy directly to a user.
type PolicyUser struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID   uint64           `gorm:"not null;index"`      // Assigned user.
	PolicyID uint64           `gorm:"not null;index"`      // Assigned policy.
	Policy   PermissionPolicy `gorm:"foreignKey:PolicyID"` // Policy record.

	GeneralPolicy GeneralPolicy `gorm:"type:text;not null;default:'custom'"` // read, write or custom.
	Priority      int           `gorm:"not null;default:0"`                  // Lower wins.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// PolicyGroup assigns a policy to every member of a group.
type PolicyGroup struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	GroupID  uint64           `gorm:"not null;index"`      // Assigned group.
	PolicyID uint64           `gorm:"not null;index"`      // Assigned policy.
	Policy   PermissionPolicy `gorm:"foreignKey:PolicyID"` // Policy record.

	GeneralPolicy GeneralPolicy `gorm:"type:text;not null;default:'custom'"` // read, write or custom.
	Priority      int           `gorm:"not null;default:0"`                  // Lower wins.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
