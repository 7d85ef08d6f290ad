package credentials

import (
	"time"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
)

// UserView is the public projection of a user returned to clients.
type UserView struct {
	ID            uint64     `json:"pk"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	IsActive      bool       `json:"is_active"`
	IsStaff       bool       `json:"is_staff"`
	IsSuperuser   bool       `json:"is_superuser"`
	IsServiceUser bool       `json:"is_service_user"`
	GroupIDs      []uint64   `json:"groups"`
	LastLogin     *time.Time `json:"last_login"`
}

// View projects user for the wire.
func View(user models.User) UserView {
	return UserView{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		IsActive:      user.IsActive,
		IsStaff:       user.IsStaff,
		IsSuperuser:   user.IsSuperuser,
		IsServiceUser: user.IsServiceUser,
		GroupIDs:      user.GroupIDs(),
		LastLogin:     user.LastLogin,
	}
}
