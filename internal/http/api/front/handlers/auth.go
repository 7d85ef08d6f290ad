package handlers

import (
	"net/http"
	"strings"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/credentials"
	authhttp "github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/mfa"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/security"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// AuthHandler handles login, second factor validation and logout.
type AuthHandler struct {
	mfa       *mfa.Service
	creds     *credentials.Store
	authCache *cache.AuthCache
	cookie    SessionCookie
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *mfa.Service, creds *credentials.Store, authCache *cache.AuthCache, cookie SessionCookie) *AuthHandler {
	return &AuthHandler{mfa: svc, creds: creds, authCache: authCache, cookie: cookie}
}

// loginRequest defines the request body for password login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies the password and returns a session or a pending MFA token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := decodeJSON(c, &body); errBind != nil {
		h.rejectLogin(c, errBind, nil)
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" {
		h.rejectLogin(c, pwerrors.WrongParameters("username and password are required", map[string]any{
			"username": username != "", "password": body.Password != "",
		}), map[string]any{"username": username})
		return
	}

	result, errLogin := h.mfa.Login(c.Request.Context(), h.loginRequest(c, username, body.Password, map[string]any{
		"username": username,
		"password": body.Password,
	}))
	if errLogin != nil {
		pwerrors.Abort(c, errLogin)
		return
	}
	h.cookie.set(c, result.Token, result.Expiry)
	c.JSON(http.StatusOK, result)
}

// validateRequest defines the request body for second factor validation.
type validateRequest struct {
	MFAToken string `json:"mfa_token"`
	MFACode  string `json:"mfa_code"`
}

// ValidateMFA completes the second factor.
func (h *AuthHandler) ValidateMFA(c *gin.Context) {
	var body validateRequest
	if errBind := decodeJSON(c, &body); errBind != nil {
		h.rejectLogin(c, errBind, nil)
		return
	}
	token := strings.TrimSpace(body.MFAToken)
	if token == "" {
		token = strings.TrimSpace(c.GetHeader("mfa_token"))
	}
	result, errValidate := h.mfa.ValidateCode(c.Request.Context(), token, body.MFACode, h.loginRequest(c, "", "", map[string]any{
		"mfa_token": token,
		"mfa_code":  body.MFACode,
	}))
	if errValidate != nil {
		pwerrors.Abort(c, errValidate)
		return
	}
	h.cookie.set(c, result.Token, result.Expiry)
	c.JSON(http.StatusOK, result)
}

// Logout revokes the session token of the request.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := authhttp.TokenFromContext(c)
	if token == "" {
		pwerrors.Abort(c, pwerrors.Unauthorized("not_authenticated", "authentication credentials were not provided"))
		return
	}
	if errRevoke := h.creds.RevokeToken(c.Request.Context(), token); errRevoke != nil {
		pwerrors.Abort(c, errRevoke)
		return
	}
	h.authCache.Forget(c.Request.Context(), security.TokenDigest(token))
	h.cookie.clear(c)
	if identity, ok := authhttp.IdentityFromContext(c); ok {
		log.WithFields(log.Fields{"user_id": identity.UserID, "token_key": identity.TokenKey}).Info("session revoked")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RetrieveAuthenticatedUser returns the caller resolved from its token.
func (h *AuthHandler) RetrieveAuthenticatedUser(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, credentials.View(identity.User()))
}

// rejectLogin audits a login attempt refused before reaching the state machine.
func (h *AuthHandler) rejectLogin(c *gin.Context, cause error, payload map[string]any) {
	h.mfa.AuditRejected(c.Request.Context(), cause, h.loginRequest(c, "", "", payload))
	pwerrors.Abort(c, cause)
}

func (h *AuthHandler) loginRequest(c *gin.Context, username, password string, payload map[string]any) mfa.LoginRequest {
	return mfa.LoginRequest{
		Username: username,
		Password: password,
		External: authhttp.IsExternal(c, h.cookie.ExternalHeader),
		Path:     c.Request.URL.Path,
		ClientIP: c.ClientIP(),
		Payload:  payload,
	}
}
