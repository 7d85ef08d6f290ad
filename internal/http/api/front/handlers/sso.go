package handlers

import (
	"net/http"
	"strings"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/mfa"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SSOHandler handles the OAuth2 authorization code login.
type SSOHandler struct {
	svc    *mfa.Service
	cookie SessionCookie
}

// NewSSOHandler constructs an SSOHandler.
func NewSSOHandler(svc *mfa.Service, cookie SessionCookie) *SSOHandler {
	return &SSOHandler{svc: svc, cookie: cookie}
}

// authorizeRequest defines the request body for starting an SSO login.
type authorizeRequest struct {
	Email string `json:"email"`
}

// Authorize returns the identity provider URL for the user owning email.
func (h *SSOHandler) Authorize(c *gin.Context) {
	var body authorizeRequest
	if !bindJSON(c, &body) {
		return
	}
	url, token, errAuthorize := h.svc.AuthorizationURL(c.Request.Context(), body.Email)
	if errAuthorize != nil {
		pwerrors.Abort(c, errAuthorize)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authorization_url": url,
		"mfa_token":         token.MFAToken,
		"expiry":            token.Expiry,
	})
}

// Callback completes the SSO login with the state and code sent back by the provider.
func (h *SSOHandler) Callback(c *gin.Context) {
	if providerErr := strings.TrimSpace(c.Query("error")); providerErr != "" {
		log.WithFields(log.Fields{"error": providerErr, "description": c.Query("error_description")}).Warn("identity provider returned an error")
		pwerrors.Abort(c, pwerrors.Unauthorized(mfa.CodeSSOExchangeFailed, "identity provider rejected the login"))
		return
	}
	state := c.Query("state")
	result, errComplete := h.svc.CompleteSSO(c.Request.Context(), state, c.Query("code"), mfa.LoginRequest{
		External: true,
		Path:     c.Request.URL.Path,
		ClientIP: c.ClientIP(),
		Payload:  map[string]any{"state": state},
	})
	if errComplete != nil {
		pwerrors.Abort(c, errComplete)
		return
	}
	h.cookie.set(c, result.Token, result.Expiry)
	c.JSON(http.StatusOK, result)
}
