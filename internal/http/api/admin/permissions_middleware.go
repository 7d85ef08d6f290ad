package admin

import (
	"net/http"

	authhttp "github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http"
	permissions "github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http/api/admin/permissions"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/gin-gonic/gin"
)

// adminPermissionMiddleware enforces the staff or superuser level of admin routes.
// Routes missing from the definition map are denied.
func adminPermissionMiddleware() gin.HandlerFunc {
	permissionMap := permissions.DefinitionMap()

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		path := c.FullPath()
		definition, ok := permissionMap[permissions.Key(c.Request.Method, path)]
		if path == "" || !ok {
			pwerrors.Abort(c, pwerrors.Forbidden("permission denied", map[string]any{"route": path}))
			return
		}

		identity, ok := authhttp.IdentityFromContext(c)
		if !ok {
			pwerrors.Abort(c, pwerrors.Unauthorized("not_authenticated", "authentication credentials were not provided"))
			return
		}
		if !definition.Level.Allows(identity.IsStaff, identity.IsSuperuser) {
			pwerrors.Abort(c, pwerrors.Forbidden("permission denied", map[string]any{
				"role": "is_" + string(definition.Level), "route": path,
			}))
			return
		}

		c.Next()
	}
}
