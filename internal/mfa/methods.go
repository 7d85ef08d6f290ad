package mfa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MethodView is the wire form of an MFA method. The parameter is masked.
type MethodView struct {
	ID          uint64               `json:"pk"`
	Type        models.MFAMethodType `json:"type"`
	Priority    int                  `json:"priority"`
	IsEnabled   bool                 `json:"is_enabled"`
	IsValidated bool                 `json:"is_validated"`
	Parameter   string               `json:"parameter"`
}

// NewMethodView projects method for the wire.
func NewMethodView(method models.MFAMethod) MethodView {
	return MethodView{
		ID:          method.ID,
		Type:        method.Type,
		Priority:    method.Priority,
		IsEnabled:   method.IsEnabled,
		IsValidated: method.IsValidated,
		Parameter:   maskParameter(method.Parameter),
	}
}

// maskParameter keeps the last four characters of a parameter.
func maskParameter(p string) string {
	p = strings.TrimSpace(p)
	if len(p) <= 4 {
		return p
	}
	return strings.Repeat("*", len(p)-4) + p[len(p)-4:]
}

// MethodInput describes a method to create.
type MethodInput struct {
	Type      models.MFAMethodType `json:"type"`
	Priority  int                  `json:"priority"`
	Parameter string               `json:"parameter"`
	IsEnabled *bool                `json:"is_enabled"`
}

// CreatedMethod is the outcome of CreateMethod. ValidationError names the
// cause when the backend could not be exercised.
type CreatedMethod struct {
	Method          MethodView `json:"method"`
	ValidationError string     `json:"validation_error,omitempty"`
}

// CreateMethod stores a new method for userID and validates it by exercising
// its backend once. Methods that fail validation are kept with is_validated
// false and never used at login.
func (s *Service) CreateMethod(ctx context.Context, userID uint64, in MethodInput) (CreatedMethod, error) {
	if !in.Type.Valid() {
		return CreatedMethod{}, pwerrors.WrongParameters("unknown mfa method type", map[string]any{"type": in.Type})
	}
	parameter := strings.TrimSpace(in.Parameter)
	if in.Type == models.MFAMethodSMS && parameter == "" {
		return CreatedMethod{}, pwerrors.WrongParameters("sms methods require a phone number", map[string]any{"parameter": "missing"})
	}
	var user models.User
	if errUser := s.db.WithContext(ctx).First(&user, userID).Error; errUser != nil {
		if errors.Is(errUser, gorm.ErrRecordNotFound) {
			return CreatedMethod{}, pwerrors.DoesNotExist("user not found", map[string]any{"user_id": userID})
		}
		return CreatedMethod{}, fmt.Errorf("mfa: load user: %w", errUser)
	}
	var taken int64
	errCount := s.db.WithContext(ctx).Model(&models.MFAMethod{}).
		Where("user_id = ? AND priority = ?", userID, in.Priority).
		Count(&taken).Error
	if errCount != nil {
		return CreatedMethod{}, fmt.Errorf("mfa: count methods: %w", errCount)
	}
	if taken > 0 {
		return CreatedMethod{}, pwerrors.WrongParameters("priority already used by another method", map[string]any{"priority": in.Priority})
	}

	method := models.MFAMethod{
		UserID:    userID,
		Type:      in.Type,
		Priority:  in.Priority,
		IsEnabled: in.IsEnabled == nil || *in.IsEnabled,
		Parameter: parameter,
	}
	if errCreate := s.db.WithContext(ctx).Omit("User").Create(&method).Error; errCreate != nil {
		return CreatedMethod{}, fmt.Errorf("mfa: create method: %w", errCreate)
	}

	out := CreatedMethod{}
	if errExercise := s.exercise(ctx, user, method); errExercise != nil {
		out.ValidationError = "error"
		if typed, ok := pwerrors.As(errExercise); ok && typed.Code() != "" {
			out.ValidationError = typed.Code()
		}
		log.WithError(errExercise).WithFields(log.Fields{"user_id": userID, "method_id": method.ID}).Warn("mfa method validation failed")
	} else {
		method.IsValidated = true
		if errUpdate := s.db.WithContext(ctx).Model(&method).Update("is_validated", true).Error; errUpdate != nil {
			return CreatedMethod{}, fmt.Errorf("mfa: validate method: %w", errUpdate)
		}
	}
	out.Method = NewMethodView(method)
	return out, nil
}

// exercise proves the method works: code methods receive a throwaway code,
// sso methods need a configured provider and a user email.
func (s *Service) exercise(ctx context.Context, user models.User, method models.MFAMethod) error {
	if method.Type == models.MFAMethodSSO {
		if s.sso == nil {
			return notConfigured(CodeSSONotConfigured, "sso provider is not configured")
		}
		if !strings.Contains(user.Email, "@") {
			return pwerrors.WrongParameters("sso methods require a user email", map[string]any{"error": "missing_email"})
		}
		return nil
	}
	code, errGen := security.GenerateNumericCode(s.cfg.CodeLength)
	if errGen != nil {
		return fmt.Errorf("mfa: %w", errGen)
	}
	return s.deliver(ctx, method, code)
}

// ListUserMethods returns every method owned by userID.
func (s *Service) ListUserMethods(ctx context.Context, userID uint64) ([]MethodView, error) {
	var methods []models.MFAMethod
	if errFind := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("priority ASC").Find(&methods).Error; errFind != nil {
		return nil, fmt.Errorf("mfa: list methods: %w", errFind)
	}
	out := make([]MethodView, 0, len(methods))
	for _, m := range methods {
		out = append(out, NewMethodView(m))
	}
	return out, nil
}

// DeleteMethod removes a method owned by userID together with its codes.
func (s *Service) DeleteMethod(ctx context.Context, userID, methodID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", methodID, userID).Delete(&models.MFAMethod{})
		if res.Error != nil {
			return fmt.Errorf("mfa: delete method: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return pwerrors.DoesNotExist("mfa method not found", map[string]any{"mfa_method_id": methodID})
		}
		if errCodes := tx.Where("mfa_method_id = ?", methodID).Delete(&models.MFACode{}).Error; errCodes != nil {
			return fmt.Errorf("mfa: delete method codes: %w", errCodes)
		}
		return nil
	})
}
