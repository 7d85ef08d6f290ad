package db

import (
	"fmt"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table owned by the service.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if err := conn.AutoMigrate(
		&models.Group{},
		&models.User{},
		&models.KongService{},
		&models.Route{},
		&models.PermissionPolicy{},
		&models.PolicyAction{},
		&models.PolicyUser{},
		&models.PolicyGroup{},
		&models.RowPermission{},
		&models.RowPermissionUser{},
		&models.RowPermissionGroup{},
		&models.MFAMethod{},
		&models.MFAToken{},
		&models.MFACode{},
		&models.AuthToken{},
		&models.LoginAudit{},
	); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}
