package mfa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/config"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/credentials"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/metrics"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Options wires a Service.
type Options struct {
	DB          *gorm.DB
	Credentials *credentials.Store
	Backends    map[models.MFAMethodType]Backend
	SSO         IdentityProvider
	Config      config.MFAConfig
}

// Service runs the login state machine. All state lives in the mfa_tokens
// and mfa_codes tables, so any replica can serve any step.
type Service struct {
	db       *gorm.DB
	creds    *credentials.Store
	backends map[models.MFAMethodType]Backend
	sso      IdentityProvider
	cfg      config.MFAConfig
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(opts Options) *Service {
	backends := opts.Backends
	if backends == nil {
		backends = map[models.MFAMethodType]Backend{}
	}
	return &Service{
		db:       opts.DB,
		creds:    opts.Credentials,
		backends: backends,
		sso:      opts.SSO,
		cfg:      opts.Config,
		now:      time.Now,
	}
}

// LoginRequest carries the first factor and request metadata for the audit trail.
type LoginRequest struct {
	Username string
	Password string
	External bool
	Path     string
	ClientIP string
	Payload  map[string]any
}

// LoginResult is either a session (Token set) or a pending second factor (MFAToken set).
type LoginResult struct {
	Token            string                `json:"token,omitempty"`
	MFAToken         string                `json:"mfa_token,omitempty"`
	Expiry           time.Time             `json:"expiry"`
	User             *credentials.UserView `json:"user,omitempty"`
	MFAMethod        *MethodView           `json:"mfa_method,omitempty"`
	AuthorizationURL string                `json:"authorization_url,omitempty"`
}

// Login verifies the password and either issues a session or starts the
// second factor through the user's preferred method.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	user, errVerify := s.creds.VerifyCredentials(ctx, req.Username, req.Password)
	if errVerify != nil {
		s.audit(ctx, nil, models.LoginOutcomeFailed, errVerify, req)
		return LoginResult{}, errVerify
	}
	if user.IsServiceUser {
		if req.External {
			errExternal := pwerrors.Unauthorized(CodeServiceUserExternal, "service users can not log in from outside the cluster")
			s.audit(ctx, &user.ID, models.LoginOutcomeFailed, errExternal, req)
			return LoginResult{}, errExternal
		}
		return s.issueSession(ctx, user, req)
	}

	method, found, errMethod := s.preferredMethod(ctx, user.ID)
	if errMethod != nil {
		s.audit(ctx, &user.ID, models.LoginOutcomeFailed, errMethod, req)
		return LoginResult{}, errMethod
	}
	if !found {
		return s.issueSession(ctx, user, req)
	}

	result, errStart := s.startSecondFactor(ctx, user, method)
	if errStart != nil {
		s.audit(ctx, &user.ID, models.LoginOutcomeFailed, errStart, req)
		return LoginResult{}, errStart
	}
	s.audit(ctx, &user.ID, models.LoginOutcomeMFAPending, nil, req)
	return result, nil
}

// preferredMethod returns the enabled and validated method with the lowest priority.
func (s *Service) preferredMethod(ctx context.Context, userID uint64) (models.MFAMethod, bool, error) {
	var method models.MFAMethod
	errFind := s.db.WithContext(ctx).
		Where("user_id = ? AND is_enabled = ? AND is_validated = ?", userID, true, true).
		Order("priority ASC").
		First(&method).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.MFAMethod{}, false, nil
		}
		return models.MFAMethod{}, false, fmt.Errorf("mfa: find method: %w", errFind)
	}
	return method, true, nil
}

// startSecondFactor creates a fresh MFA token and, for code methods, a code
// delivered through the backend. Delivery runs after the commit so no
// connection is held while the backend waits; a failed delivery deletes the
// token and its code again.
func (s *Service) startSecondFactor(ctx context.Context, user models.User, method models.MFAMethod) (LoginResult, error) {
	if method.Type == models.MFAMethodSSO && s.sso == nil {
		return LoginResult{}, notConfigured(CodeSSONotConfigured, "sso provider is not configured")
	}
	var token models.MFAToken
	var code models.MFACode
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, errToken := s.createToken(tx, user.ID)
		if errToken != nil {
			return errToken
		}
		token = created
		if method.Type == models.MFAMethodSSO {
			return nil
		}
		var errCode error
		code, errCode = s.createCode(tx, token, method)
		return errCode
	})
	if errTx != nil {
		return LoginResult{}, errTx
	}
	if method.Type != models.MFAMethodSSO {
		if errDeliver := s.deliver(ctx, method, code.Code); errDeliver != nil {
			if errDiscard := s.deleteToken(s.db.WithContext(context.WithoutCancel(ctx)), token.Token); errDiscard != nil {
				log.WithError(errDiscard).Error("discard undelivered mfa token failed")
			}
			return LoginResult{}, errDeliver
		}
	}

	view := NewMethodView(method)
	result := LoginResult{MFAToken: token.Token, Expiry: token.ExpireAt, MFAMethod: &view}
	if method.Type == models.MFAMethodSSO {
		result.AuthorizationURL = s.sso.AuthCodeURL(token.Token)
	}
	return result, nil
}

func (s *Service) createToken(tx *gorm.DB, userID uint64) (models.MFAToken, error) {
	now := s.now().UTC()
	value, errGen := security.GenerateMFAToken(now)
	if errGen != nil {
		return models.MFAToken{}, fmt.Errorf("mfa: %w", errGen)
	}
	token := models.MFAToken{
		Token:     value,
		UserID:    userID,
		CreatedAt: now,
		ExpireAt:  now.Add(s.cfg.TokenExpiration()),
	}
	if errCreate := tx.Omit("User").Create(&token).Error; errCreate != nil {
		return models.MFAToken{}, fmt.Errorf("mfa: create token: %w", errCreate)
	}
	return token, nil
}

func (s *Service) createCode(tx *gorm.DB, token models.MFAToken, method models.MFAMethod) (models.MFACode, error) {
	value, errGen := security.GenerateNumericCode(s.cfg.CodeLength)
	if errGen != nil {
		return models.MFACode{}, fmt.Errorf("mfa: %w", errGen)
	}
	code := models.MFACode{
		Token:       token.Token,
		MFAMethodID: method.ID,
		Code:        value,
		CreatedAt:   s.now().UTC(),
	}
	if errCreate := tx.Create(&code).Error; errCreate != nil {
		return models.MFACode{}, fmt.Errorf("mfa: create code: %w", errCreate)
	}
	return code, nil
}

// deliver dispatches code through the backend of method.Type.
func (s *Service) deliver(ctx context.Context, method models.MFAMethod, code string) error {
	backend, ok := s.backends[method.Type]
	if !ok {
		metrics.MFADelivery.WithLabelValues(string(method.Type), CodeBackendNotConfigured).Inc()
		return notConfigured(CodeBackendNotConfigured, "no delivery backend for "+string(method.Type))
	}
	if errSend := backend.Send(ctx, method, code); errSend != nil {
		cause := "error"
		if typed, ok := pwerrors.As(errSend); ok && typed.Code() != "" {
			cause = typed.Code()
		}
		metrics.MFADelivery.WithLabelValues(string(method.Type), cause).Inc()
		return errSend
	}
	metrics.MFADelivery.WithLabelValues(string(method.Type), "ok").Inc()
	return nil
}

// ValidateCode completes the second factor and issues the session.
// The token and its codes are consumed on success.
func (s *Service) ValidateCode(ctx context.Context, mfaToken, code string, req LoginRequest) (LoginResult, error) {
	mfaToken = strings.TrimSpace(mfaToken)
	code = strings.TrimSpace(code)
	if mfaToken == "" || code == "" {
		errMissing := pwerrors.WrongParameters("mfa_token and mfa_code are required", map[string]any{
			"mfa_token": mfaToken != "", "mfa_code": code != "",
		})
		s.audit(ctx, nil, models.LoginOutcomeFailed, errMissing, req)
		return LoginResult{}, errMissing
	}
	token, errToken := s.activeToken(ctx, mfaToken)
	if errToken != nil {
		s.audit(ctx, nil, models.LoginOutcomeFailed, errToken, req)
		return LoginResult{}, errToken
	}

	var match models.MFACode
	errFind := s.db.WithContext(ctx).Where("token = ? AND code = ?", token.Token, code).First(&match).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			errCode := pwerrors.Unauthorized(CodeMFACodeNotFound, "mfa code not found for token")
			s.audit(ctx, &token.UserID, models.LoginOutcomeFailed, errCode, req)
			return LoginResult{}, errCode
		}
		s.audit(ctx, &token.UserID, models.LoginOutcomeFailed, errFind, req)
		return LoginResult{}, fmt.Errorf("mfa: find code: %w", errFind)
	}
	return s.consumeAndIssue(ctx, token, req)
}

// activeToken loads a token, deleting it when expired.
func (s *Service) activeToken(ctx context.Context, value string) (models.MFAToken, error) {
	var token models.MFAToken
	errFind := s.db.WithContext(ctx).Where("token = ?", value).First(&token).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.MFAToken{}, pwerrors.Unauthorized(CodeMFATokenNotFound, "mfa token not found")
		}
		return models.MFAToken{}, fmt.Errorf("mfa: find token: %w", errFind)
	}
	if token.Expired(s.now()) {
		if errDelete := s.deleteToken(s.db.WithContext(ctx), token.Token); errDelete != nil {
			return models.MFAToken{}, errDelete
		}
		return models.MFAToken{}, pwerrors.Unauthorized(CodeMFATokenExpired, "mfa token has expired")
	}
	return token, nil
}

func (s *Service) deleteToken(conn *gorm.DB, value string) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		_, errDelete := s.removeToken(tx, value)
		return errDelete
	})
}

// removeToken deletes the codes and the token row, returning the number of
// token rows removed.
func (s *Service) removeToken(tx *gorm.DB, value string) (int64, error) {
	if errCodes := tx.Where("token = ?", value).Delete(&models.MFACode{}).Error; errCodes != nil {
		return 0, fmt.Errorf("mfa: delete codes: %w", errCodes)
	}
	res := tx.Where("token = ?", value).Delete(&models.MFAToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("mfa: delete token: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// consumeAndIssue deletes the token with its codes and issues the session in
// one transaction. Only the request whose delete removed the token row gets a
// session, so a token is redeemed at most once.
func (s *Service) consumeAndIssue(ctx context.Context, token models.MFAToken, req LoginRequest) (LoginResult, error) {
	var user models.User
	if errUser := s.db.WithContext(ctx).Preload("Groups").First(&user, token.UserID).Error; errUser != nil {
		s.audit(ctx, &token.UserID, models.LoginOutcomeFailed, errUser, req)
		return LoginResult{}, fmt.Errorf("mfa: load user: %w", errUser)
	}
	if !user.IsActive {
		errInactive := pwerrors.Unauthorized(credentials.CodeInactiveUser, "user is not active")
		s.audit(ctx, &user.ID, models.LoginOutcomeFailed, errInactive, req)
		return LoginResult{}, errInactive
	}

	var session string
	var expiry time.Time
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed, errDelete := s.removeToken(tx, token.Token)
		if errDelete != nil {
			return errDelete
		}
		if removed != 1 {
			return pwerrors.Unauthorized(CodeMFATokenNotFound, "mfa token not found")
		}
		var errIssue error
		session, expiry, errIssue = s.creds.IssueSessionToken(ctx, tx, user)
		return errIssue
	})
	if errTx != nil {
		s.audit(ctx, &user.ID, models.LoginOutcomeFailed, errTx, req)
		return LoginResult{}, errTx
	}
	s.audit(ctx, &user.ID, models.LoginOutcomeOK, nil, req)
	view := credentials.View(user)
	return LoginResult{Token: session, Expiry: expiry, User: &view}, nil
}

func (s *Service) issueSession(ctx context.Context, user models.User, req LoginRequest) (LoginResult, error) {
	token, expiry, errIssue := s.creds.IssueSessionToken(ctx, nil, user)
	if errIssue != nil {
		return LoginResult{}, errIssue
	}
	s.audit(ctx, &user.ID, models.LoginOutcomeOK, nil, req)
	view := credentials.View(user)
	return LoginResult{Token: token, Expiry: expiry, User: &view}, nil
}

// ListMethods returns the usable methods of the user bound to mfaToken.
func (s *Service) ListMethods(ctx context.Context, mfaToken string) ([]MethodView, error) {
	token, errToken := s.activeToken(ctx, strings.TrimSpace(mfaToken))
	if errToken != nil {
		return nil, errToken
	}
	var methods []models.MFAMethod
	errFind := s.db.WithContext(ctx).
		Where("user_id = ? AND is_enabled = ? AND is_validated = ?", token.UserID, true, true).
		Order("priority ASC").
		Find(&methods).Error
	if errFind != nil {
		return nil, fmt.Errorf("mfa: list methods: %w", errFind)
	}
	out := make([]MethodView, 0, len(methods))
	for _, m := range methods {
		out = append(out, NewMethodView(m))
	}
	return out, nil
}

// SendCode issues another code for mfaToken through a chosen method of its user.
func (s *Service) SendCode(ctx context.Context, mfaToken string, methodID uint64) (MethodView, error) {
	token, errToken := s.activeToken(ctx, strings.TrimSpace(mfaToken))
	if errToken != nil {
		return MethodView{}, errToken
	}
	var method models.MFAMethod
	errFind := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_enabled = ? AND is_validated = ?", methodID, token.UserID, true, true).
		First(&method).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return MethodView{}, pwerrors.Unauthorized(CodeMethodUnavailable, "mfa method is not available for this token")
		}
		return MethodView{}, fmt.Errorf("mfa: find method: %w", errFind)
	}
	if method.Type == models.MFAMethodSSO {
		return MethodView{}, pwerrors.WrongParameters("sso methods do not receive codes", map[string]any{"mfa_method_id": methodID})
	}
	code, errCode := s.createCode(s.db.WithContext(ctx), token, method)
	if errCode != nil {
		return MethodView{}, errCode
	}
	if errDeliver := s.deliver(ctx, method, code.Code); errDeliver != nil {
		errDiscard := s.db.WithContext(context.WithoutCancel(ctx)).Where("id = ?", code.ID).Delete(&models.MFACode{}).Error
		if errDiscard != nil {
			log.WithError(errDiscard).Error("discard undelivered mfa code failed")
		}
		return MethodView{}, errDeliver
	}
	return NewMethodView(method), nil
}

// AuthorizationURL starts an SSO login for email. The returned URL carries a
// fresh MFA token as state.
func (s *Service) AuthorizationURL(ctx context.Context, email string) (string, MFATokenView, error) {
	if s.sso == nil {
		return "", MFATokenView{}, notConfigured(CodeSSONotConfigured, "sso provider is not configured")
	}
	user, errUser := s.ssoUser(ctx, email)
	if errUser != nil {
		return "", MFATokenView{}, errUser
	}
	var token models.MFAToken
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, errToken := s.createToken(tx, user.ID)
		token = created
		return errToken
	})
	if errTx != nil {
		return "", MFATokenView{}, errTx
	}
	return s.sso.AuthCodeURL(token.Token), MFATokenView{MFAToken: token.Token, Expiry: token.ExpireAt}, nil
}

// CompleteSSO finishes the SSO login started with state. The email resolved by
// the provider must belong to the user bound to the token.
func (s *Service) CompleteSSO(ctx context.Context, state, code string, req LoginRequest) (LoginResult, error) {
	if s.sso == nil {
		return LoginResult{}, notConfigured(CodeSSONotConfigured, "sso provider is not configured")
	}
	if strings.TrimSpace(state) == "" || strings.TrimSpace(code) == "" {
		return LoginResult{}, pwerrors.WrongParameters("state and code are required", nil)
	}
	token, errToken := s.activeToken(ctx, strings.TrimSpace(state))
	if errToken != nil {
		s.audit(ctx, nil, models.LoginOutcomeFailed, errToken, req)
		return LoginResult{}, errToken
	}
	email, errResolve := s.sso.ResolveEmail(ctx, code)
	if errResolve != nil {
		log.WithError(errResolve).Warn("sso code exchange failed")
		errExchange := pwerrors.Unauthorized(CodeSSOExchangeFailed, "identity provider rejected the authorization code")
		s.audit(ctx, &token.UserID, models.LoginOutcomeFailed, errExchange, req)
		return LoginResult{}, errExchange
	}
	user, errUser := s.ssoUser(ctx, email)
	if errUser != nil || user.ID != token.UserID {
		errMismatch := pwerrors.Unauthorized(CodeSSOEmailMismatch, "identity provider user does not match the login")
		s.audit(ctx, &token.UserID, models.LoginOutcomeFailed, errMismatch, req)
		return LoginResult{}, errMismatch
	}
	return s.consumeAndIssue(ctx, token, req)
}

// ssoUser returns the active user owning email with a usable sso method.
func (s *Service) ssoUser(ctx context.Context, email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.User{}, pwerrors.WrongParameters("email is required", map[string]any{"email": "missing"})
	}
	var user models.User
	errFind := s.db.WithContext(ctx).
		Where("LOWER(email) = ? AND is_active = ?", email, true).
		Where("id IN (?)", s.db.Model(&models.MFAMethod{}).Select("user_id").
			Where("type = ? AND is_enabled = ? AND is_validated = ?", models.MFAMethodSSO, true, true)).
		First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.User{}, pwerrors.Unauthorized(CodeSSOEmailMismatch, "no user with sso login for this email")
		}
		return models.User{}, fmt.Errorf("mfa: find sso user: %w", errFind)
	}
	return user, nil
}

// MFATokenView is the wire form of a pending MFA token.
type MFATokenView struct {
	MFAToken string    `json:"mfa_token"`
	Expiry   time.Time `json:"expiry"`
}
