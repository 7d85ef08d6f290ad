// Package credentials verifies passwords and manages persisted session tokens.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/security"
	"gorm.io/gorm"
)

// Unauthorized causes reported by the store.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeInactiveUser       = "inactive_user"
)

// Store is the credential store backed by the users and auth_tokens tables.
type Store struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewStore constructs a Store issuing tokens valid for ttl.
func NewStore(db *gorm.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl, now: time.Now}
}

// VerifyCredentials returns the active user matching username and password.
// Unknown users still pay a bcrypt comparison.
func (s *Store) VerifyCredentials(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	var user models.User
	errFind := s.db.WithContext(ctx).Preload("Groups").Where("username = ?", username).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			security.CheckPasswordAgainstDummy(password)
			return models.User{}, pwerrors.Unauthorized(CodeInvalidCredentials, "username or password did not match")
		}
		return models.User{}, fmt.Errorf("credentials: find user: %w", errFind)
	}
	if !security.CheckPassword(user.Password, password) {
		return models.User{}, pwerrors.Unauthorized(CodeInvalidCredentials, "username or password did not match")
	}
	if !user.IsActive {
		return models.User{}, pwerrors.Unauthorized(CodeInactiveUser, "user is not active")
	}
	return user, nil
}

// IssueSessionToken persists a new session token for user and returns the
// clear token with its expiry. conn overrides the store handle when not nil,
// so callers can issue inside their own transaction.
func (s *Store) IssueSessionToken(ctx context.Context, conn *gorm.DB, user models.User) (string, time.Time, error) {
	if conn == nil {
		conn = s.db
	}
	token, errGen := security.GenerateSessionToken()
	if errGen != nil {
		return "", time.Time{}, fmt.Errorf("credentials: %w", errGen)
	}
	now := s.now().UTC()
	record := models.AuthToken{
		Digest:    security.TokenDigest(token),
		TokenKey:  security.TokenKey(token),
		UserID:    user.ID,
		CreatedAt: now,
		Expiry:    now.Add(s.ttl),
	}
	if errCreate := conn.WithContext(ctx).Create(&record).Error; errCreate != nil {
		return "", time.Time{}, fmt.Errorf("credentials: create token: %w", errCreate)
	}
	if errUpdate := conn.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("last_login", now).Error; errUpdate != nil {
		return "", time.Time{}, fmt.Errorf("credentials: update last login: %w", errUpdate)
	}
	return token, record.Expiry, nil
}

// ResolveToken maps a clear token to its user and credential record.
// Expired tokens are deleted on sight.
func (s *Store) ResolveToken(ctx context.Context, token string) (models.User, models.AuthToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.User{}, models.AuthToken{}, pwerrors.Unauthorized(CodeInvalidToken, "token is missing")
	}
	var record models.AuthToken
	errFind := s.db.WithContext(ctx).
		Preload("User").
		Preload("User.Groups").
		Where("digest = ?", security.TokenDigest(token)).
		First(&record).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.User{}, models.AuthToken{}, pwerrors.Unauthorized(CodeInvalidToken, "token is not valid")
		}
		return models.User{}, models.AuthToken{}, fmt.Errorf("credentials: find token: %w", errFind)
	}
	if !record.Expiry.After(s.now()) {
		if errDelete := s.db.WithContext(ctx).Delete(&models.AuthToken{}, record.ID).Error; errDelete != nil {
			return models.User{}, models.AuthToken{}, fmt.Errorf("credentials: delete expired token: %w", errDelete)
		}
		return models.User{}, models.AuthToken{}, pwerrors.Unauthorized(CodeTokenExpired, "token has expired")
	}
	if !record.User.IsActive {
		return models.User{}, models.AuthToken{}, pwerrors.Unauthorized(CodeInactiveUser, "user is not active")
	}
	user := record.User
	record.User = models.User{}
	return user, record, nil
}

// RevokeToken deletes the session token. Unknown tokens are ignored.
func (s *Store) RevokeToken(ctx context.Context, token string) error {
	errDelete := s.db.WithContext(ctx).
		Where("digest = ?", security.TokenDigest(strings.TrimSpace(token))).
		Delete(&models.AuthToken{}).Error
	if errDelete != nil {
		return fmt.Errorf("credentials: revoke token: %w", errDelete)
	}
	return nil
}

// NewUser describes an account to create.
type NewUser struct {
	Username      string
	Email         string
	Password      string
	IsStaff       bool
	IsSuperuser   bool
	IsServiceUser bool
}

// CreateUser inserts an active user with a hashed password.
func (s *Store) CreateUser(ctx context.Context, in NewUser) (models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return models.User{}, pwerrors.WrongParameters("username is required", map[string]any{"username": "missing"})
	}
	if strings.TrimSpace(in.Password) == "" {
		return models.User{}, pwerrors.WrongParameters("password is required", map[string]any{"password": "missing"})
	}
	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; errCount != nil {
		return models.User{}, fmt.Errorf("credentials: count users: %w", errCount)
	}
	if count > 0 {
		return models.User{}, pwerrors.WrongParameters("username already exists", map[string]any{"username": "duplicate"})
	}
	hash, errHash := security.HashPassword(in.Password)
	if errHash != nil {
		return models.User{}, fmt.Errorf("credentials: %w", errHash)
	}
	user := models.User{
		Username:      username,
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		Password:      hash,
		IsActive:      true,
		IsStaff:       in.IsStaff,
		IsSuperuser:   in.IsSuperuser,
		IsServiceUser: in.IsServiceUser,
	}
	if errCreate := s.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		return models.User{}, fmt.Errorf("credentials: create user: %w", errCreate)
	}
	return user, nil
}

// SetPassword replaces the password of userID and revokes its session tokens.
func (s *Store) SetPassword(ctx context.Context, userID uint64, password string) error {
	if strings.TrimSpace(password) == "" {
		return pwerrors.WrongParameters("password is required", map[string]any{"password": "missing"})
	}
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("credentials: %w", errHash)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", userID).Update("password", hash)
		if res.Error != nil {
			return fmt.Errorf("credentials: update password: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return pwerrors.DoesNotExist("user not found", map[string]any{"user_id": userID})
		}
		if errDelete := tx.Where("user_id = ?", userID).Delete(&models.AuthToken{}).Error; errDelete != nil {
			return fmt.Errorf("credentials: revoke tokens: %w", errDelete)
		}
		return nil
	})
}
