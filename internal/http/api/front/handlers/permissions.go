package handlers

import (
	"net/http"
	"strings"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	authhttp "github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/permission"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/gin-gonic/gin"
)

// PermissionHandler answers endpoint and row permission queries for the caller.
type PermissionHandler struct {
	authorizer *permission.Authorizer
	rows       *permission.RowResolver
}

// NewPermissionHandler constructs a PermissionHandler.
func NewPermissionHandler(authorizer *permission.Authorizer, rows *permission.RowResolver) *PermissionHandler {
	return &PermissionHandler{authorizer: authorizer, rows: rows}
}

// checkRequest defines the request body of a permission check.
type checkRequest struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

// Check resolves whether the caller may call method on path. Anonymous callers
// are checked too: allow_any routes pass without a token.
func (h *PermissionHandler) Check(c *gin.Context) {
	var body checkRequest
	if !bindJSON(c, &body) {
		return
	}
	if strings.TrimSpace(body.Path) == "" || strings.TrimSpace(body.Method) == "" {
		pwerrors.Abort(c, pwerrors.WrongParameters("path and method are required", map[string]any{
			"path": body.Path, "method": body.Method,
		}))
		return
	}
	identity, authenticated := authhttp.IdentityFromContext(c)
	var user models.User
	if authenticated {
		user = identity.User()
	}
	result, errCheck := h.authorizer.Require(c.Request.Context(), authenticated, user, body.Path, body.Method)
	if errCheck != nil {
		pwerrors.Abort(c, errCheck)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"allowed":  result.Allowed,
		"role":     result.Role,
		"route":    result.Route.Name,
		"endpoint": result.Endpoint,
		"action":   result.Action,
	})
}

// RowPermissions returns the row permission tags visible to the caller.
func (h *PermissionHandler) RowPermissions(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	tags, errTags := h.rows.VisibleTags(c.Request.Context(), identity.User())
	if errTags != nil {
		pwerrors.Abort(c, errTags)
		return
	}
	c.JSON(http.StatusOK, gin.H{"row_permissions": tags})
}
