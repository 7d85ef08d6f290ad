package models

import (
	"time"

	"gorm.io/datatypes"
)

// RouteType classifies what a route serves.
type RouteType string

// Route types known to the path classifier.
const (
	RouteTypeEndpoint RouteType = "endpoint"
	RouteTypeAux      RouteType = "aux"
	RouteTypeGUI      RouteType = "gui"
	RouteTypeDatavis  RouteType = "datavis"
	RouteTypeStatic   RouteType = "static"
	RouteTypeAdmin    RouteType = "admin"
	RouteTypeMedia    RouteType = "media"
)

// Valid reports whether t is a known route type.
func (t RouteType) Valid() bool {
	switch t {
	case RouteTypeEndpoint, RouteTypeAux, RouteTypeGUI, RouteTypeDatavis,
		RouteTypeStatic, RouteTypeAdmin, RouteTypeMedia:
		return true
	}
	return false
}

// KongService is a microservice registered behind the gateway.
type KongService struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name           string `gorm:"type:text;not null;uniqueIndex"` // Service name.
	Description    string `gorm:"type:text"`                      // Free text description.
	URL            string `gorm:"type:text;not null"`             // Upstream URL.
	HealthCheckURL string `gorm:"type:text"`                      // Optional health check path.
	KongID         string `gorm:"type:text;index"`                // Identifier returned by the registrar.

	Routes []Route `gorm:"foreignKey:ServiceID"` // Routes owned by the service.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Route maps a URL path prefix to a logical endpoint of a service.
type Route struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	URLPrefix string    `gorm:"type:text;not null;uniqueIndex"` // Path prefix, always slash terminated.
	RouteType RouteType `gorm:"type:text;not null"`             // Classifier input.
	Name      string    `gorm:"type:text;not null;uniqueIndex"` // Route name; model class for endpoint routes.

	ServiceID uint64      `gorm:"not null;index"`       // Owning service.
	Service   KongService `gorm:"foreignKey:ServiceID"` // Owning service record.

	Description string         `gorm:"type:text"`                        // Free text description.
	ExtraInfo   datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Opaque registration metadata.
	KongID      string         `gorm:"type:text;index"`                  // Identifier returned by the registrar.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
