// Package mfa implements the login state machine: password, optional second
// factor through a delivery backend or an identity provider, then session.
package mfa

import (
	"context"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	log "github.com/sirupsen/logrus"
)

// Failure causes carried in the "error" payload entry.
const (
	CodeBackendNotConfigured = "backend_not_configured"
	CodeFailedStatus         = "failed_status"
	CodeDeliveryTimeout      = "delivery_timeout"
	CodeSSONotConfigured     = "sso_not_configured"
	CodeSSOExchangeFailed    = "sso_exchange_failed"
	CodeSSOEmailMismatch     = "sso_email_mismatch"
	CodeMFATokenNotFound     = "mfa_token_not_found"
	CodeMFATokenExpired      = "mfa_token_expired"
	CodeMFACodeNotFound      = "mfa_code_not_found"
	CodeMethodUnavailable    = "mfa_method_unavailable"
	CodeServiceUserExternal  = "service_user_external"
)

// Backend delivers a code through one MFA method type.
// Failures are typed errors naming the cause.
type Backend interface {
	Send(ctx context.Context, method models.MFAMethod, code string) error
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, method models.MFAMethod, code string) error

// Send implements Backend.
func (f BackendFunc) Send(ctx context.Context, method models.MFAMethod, code string) error {
	return f(ctx, method, code)
}

// AppLogBackend writes codes to the process log. Meant for development and tests.
type AppLogBackend struct{}

// Send implements Backend.
func (AppLogBackend) Send(_ context.Context, method models.MFAMethod, code string) error {
	log.WithFields(log.Fields{
		"user_id":   method.UserID,
		"method_id": method.ID,
		"code":      code,
	}).Info("mfa code issued")
	return nil
}

func notConfigured(code, message string) error {
	return pwerrors.NotImplemented(message, map[string]any{"error": code})
}

func deliveryFailed(code, message string) error {
	return pwerrors.Unauthorized(code, message)
}
