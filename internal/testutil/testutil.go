// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/db"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/security"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// OpenDB returns a migrated, isolated in-memory SQLite database.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:pumpwood_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	sqlDB, errSQL := conn.DB()
	if errSQL != nil {
		t.Fatalf("sql db: %v", errSQL)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

// CreateUser inserts a user with the given password.
func CreateUser(t *testing.T, conn *gorm.DB, username, password string, mutate ...func(*models.User)) models.User {
	t.Helper()
	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{Username: username, Email: username + "@example.com", Password: hash, IsActive: true}
	for _, fn := range mutate {
		fn(&user)
	}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user %s: %v", username, errCreate)
	}
	return user
}

// CreateGroup inserts a group and adds the given users to it.
func CreateGroup(t *testing.T, conn *gorm.DB, name string, members ...models.User) models.Group {
	t.Helper()
	group := models.Group{Name: name}
	if errCreate := conn.Create(&group).Error; errCreate != nil {
		t.Fatalf("create group %s: %v", name, errCreate)
	}
	for i := range members {
		if err := conn.Model(&members[i]).Association("Groups").Append(&group); err != nil {
			t.Fatalf("add %s to group %s: %v", members[i].Username, name, err)
		}
	}
	return group
}

// CreateRoute inserts a route under a freshly created service.
func CreateRoute(t *testing.T, conn *gorm.DB, name, prefix string, routeType models.RouteType) models.Route {
	t.Helper()
	service := models.KongService{Name: "svc-" + name, URL: "http://" + name + ":5000"}
	if errCreate := conn.Create(&service).Error; errCreate != nil {
		t.Fatalf("create service: %v", errCreate)
	}
	route := models.Route{Name: name, URLPrefix: prefix, RouteType: routeType, ServiceID: service.ID}
	if errCreate := conn.Create(&route).Error; errCreate != nil {
		t.Fatalf("create route %s: %v", name, errCreate)
	}
	return route
}
