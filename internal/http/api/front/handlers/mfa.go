package handlers

import (
	"net/http"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/mfa"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/gin-gonic/gin"
)

// MFATokenHeader carries the pending MFA token between login steps.
const MFATokenHeader = "mfa_token"

// MFAHandler handles MFA method endpoints, both for pending logins and for
// users managing their own methods.
type MFAHandler struct {
	svc *mfa.Service
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(svc *mfa.Service) *MFAHandler {
	return &MFAHandler{svc: svc}
}

// Methods lists the usable methods of the pending login.
func (h *MFAHandler) Methods(c *gin.Context) {
	methods, errList := h.svc.ListMethods(c.Request.Context(), c.GetHeader(MFATokenHeader))
	if errList != nil {
		pwerrors.Abort(c, errList)
		return
	}
	c.JSON(http.StatusOK, methods)
}

// SendCode delivers a new code for the pending login through a chosen method.
func (h *MFAHandler) SendCode(c *gin.Context) {
	methodID, ok := parseID(c, "method_id")
	if !ok {
		return
	}
	method, errSend := h.svc.SendCode(c.Request.Context(), c.GetHeader(MFATokenHeader), methodID)
	if errSend != nil {
		pwerrors.Abort(c, errSend)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mfa_method": method})
}

// ListUserMethods lists the methods of the caller.
func (h *MFAHandler) ListUserMethods(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	methods, errList := h.svc.ListUserMethods(c.Request.Context(), identity.UserID)
	if errList != nil {
		pwerrors.Abort(c, errList)
		return
	}
	c.JSON(http.StatusOK, methods)
}

// CreateUserMethod adds a method for the caller and validates it.
func (h *MFAHandler) CreateUserMethod(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var body mfa.MethodInput
	if !bindJSON(c, &body) {
		return
	}
	created, errCreate := h.svc.CreateMethod(c.Request.Context(), identity.UserID, body)
	if errCreate != nil {
		pwerrors.Abort(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteUserMethod removes a method of the caller.
func (h *MFAHandler) DeleteUserMethod(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	methodID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if errDelete := h.svc.DeleteMethod(c.Request.Context(), identity.UserID, methodID); errDelete != nil {
		pwerrors.Abort(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
